// Package safety screens generated text with a content classifier before a
// stage accepts it.
package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://commentanalyzer.googleapis.com/v1alpha1"

// DefaultAttributes are the attributes scored for every text.
var DefaultAttributes = []string{
	"TOXICITY",
	"SEVERE_TOXICITY",
	"IDENTITY_ATTACK",
	"INSULT",
	"SEXUALLY_EXPLICIT",
}

// ErrMalformedResponse means the classifier answered without a score for an
// attribute it was asked about.
var ErrMalformedResponse = errors.New("classifier response is missing scores")

// ClassifierError is an error payload from the classifier endpoint.
type ClassifierError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier error %s (status %d): %s", e.Status, e.StatusCode, e.Message)
}

// Scores maps attribute name to its summary score in [0, 1].
type Scores map[string]float64

// Classifier is a client for the comment analyzer endpoint.
type Classifier struct {
	baseURL    string
	attributes []string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type ClassifierOption func(*Classifier)

func WithBaseURL(baseURL string) ClassifierOption {
	return func(c *Classifier) {
		c.baseURL = baseURL
	}
}

func WithAttributes(attributes []string) ClassifierOption {
	return func(c *Classifier) {
		if len(attributes) > 0 {
			c.attributes = attributes
		}
	}
}

func WithTimeout(timeout time.Duration) ClassifierOption {
	return func(c *Classifier) {
		c.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: c.httpClient.Transport,
		}
	}
}

func WithRateLimit(requestsPerMinute int, burst int) ClassifierOption {
	return func(c *Classifier) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

func WithLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logger.With("component", "safety_classifier")
	}
}

func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		baseURL:    DefaultBaseURL,
		attributes: DefaultAttributes,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		logger:     slog.Default().With("component", "safety_classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attributes returns the attributes the classifier asks for.
func (c *Classifier) Attributes() []string {
	return c.attributes
}

type analyzeRequest struct {
	Comment struct {
		Text string `json:"text"`
	} `json:"comment"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore *struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Analyze scores text with key. Every requested attribute is present in the
// returned scores, or the call fails.
func (c *Classifier) Analyze(ctx context.Context, key, text string) (Scores, error) {
	requestID := uuid.NewString()
	startTime := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	reqBody := analyzeRequest{RequestedAttributes: make(map[string]struct{}, len(c.attributes))}
	reqBody.Comment.Text = text
	for _, attr := range c.attributes {
		reqBody.RequestedAttributes[attr] = struct{}{}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.baseURL + "/comments:analyze?key=" + url.QueryEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending classifier request",
		"request_id", requestID,
		"text_length", len(text),
		"attributes", len(c.attributes))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("classifier request failed",
			"request_id", requestID,
			"duration_ms", time.Since(startTime).Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var payload errorResponse
		_ = json.Unmarshal(respBody, &payload)
		c.logger.Warn("classifier API error",
			"request_id", requestID,
			"status_code", resp.StatusCode,
			"status", payload.Error.Status)
		return nil, &ClassifierError{
			StatusCode: resp.StatusCode,
			Status:     payload.Error.Status,
			Message:    payload.Error.Message,
		}
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	scores := make(Scores, len(c.attributes))
	for _, attr := range c.attributes {
		s, ok := parsed.AttributeScores[attr]
		if !ok || s.SummaryScore == nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, attr)
		}
		scores[attr] = s.SummaryScore.Value
	}

	c.logger.Debug("classifier request finished",
		"request_id", requestID,
		"duration_ms", time.Since(startTime).Milliseconds())
	return scores, nil
}
