// Package completion talks to the text completion endpoint the generation
// loop continues prompts with.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/vampirenirmal/dramaturg/internal/core"
	"github.com/vampirenirmal/dramaturg/internal/prompt"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-davinci-002"
	DefaultTimeout = 60 * time.Second
)

// ErrEmptyPayload is returned when the endpoint answers without any choice.
var ErrEmptyPayload = errors.New("completion response has no choices")

// Params are the sampling parameters sent with every request.
type Params struct {
	Model            string
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             []string
	N                int
}

// DefaultParams returns the sampling setup the few-shot templates were tuned
// with.
func DefaultParams() Params {
	return Params{
		Model:            DefaultModel,
		Temperature:      0.99,
		TopP:             1,
		FrequencyPenalty: 0.23,
		PresencePenalty:  0.23,
		Stop:             append([]string(nil), prompt.StopSequences...),
		N:                1,
	}
}

// Client implements core.Completer over the legacy completions API. The key
// travels with each request, so one client serves every session.
type Client struct {
	api        openai.Client
	baseURL    string
	params     Params
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithParams replaces the sampling parameters, model included.
func WithParams(params Params) Option {
	return func(c *Client) {
		c.params = params
	}
}

// WithTimeout bounds each request. An expired request counts as a timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithRateLimit(requestsPerMinute int, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "completion_client")
	}
}

func NewClient(opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		params:     DefaultParams(),
		timeout:    DefaultTimeout,
		httpClient: &http.Client{Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		logger:     slog.Default().With("component", "completion_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Retries belong to the retry controller, never to the transport.
	c.api = openai.NewClient(
		option.WithBaseURL(c.baseURL),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)

	c.logger.Debug("completion client initialized",
		"base_url", c.baseURL,
		"model", c.params.Model,
		"timeout_seconds", c.timeout.Seconds(),
		"rate_limit", fmt.Sprintf("%v req/s", c.limiter.Limit()))

	return c
}

// Complete sends one request. An error payload from the endpoint comes back
// as a refused result; anything that aborts the call comes back as an error.
func (c *Client) Complete(ctx context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	resp, err := c.request(ctx, req.APIKey, req.Prompt, req.MaxTokens)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return core.CompletionResult{ErrorType: errorType(apiErr)}, nil
		}
		return core.CompletionResult{}, err
	}
	if len(resp.Choices) == 0 {
		return core.CompletionResult{}, ErrEmptyPayload
	}
	return core.CompletionResult{Text: resp.Choices[0].Text}, nil
}

// ValidateKey issues a one-token request with key. It returns nil when the
// key works, a *core.APIError (matching core.ErrCredentials or core.ErrQuota
// where applicable) when the endpoint rejects it, and a timeout otherwise.
func (c *Client) ValidateKey(ctx context.Context, key string) error {
	_, err := c.request(ctx, key, "", 1)
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &core.APIError{
			Type:       errorType(apiErr),
			Message:    apiErr.Message,
			StatusCode: apiErr.StatusCode,
		}
	}
	return fmt.Errorf("%w: validating completion key: %w", core.ErrTimeout, err)
}

func (c *Client) request(ctx context.Context, key, prompt string, maxTokens int) (*openai.Completion, error) {
	requestID := uuid.NewString()
	startTime := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Error("rate limit wait failed",
			"request_id", requestID,
			"error", err)
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := openai.CompletionNewParams{
		Model:            openai.CompletionNewParamsModel(c.params.Model),
		Prompt:           openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		MaxTokens:        openai.Int(int64(maxTokens)),
		Temperature:      openai.Float(c.params.Temperature),
		TopP:             openai.Float(c.params.TopP),
		FrequencyPenalty: openai.Float(c.params.FrequencyPenalty),
		PresencePenalty:  openai.Float(c.params.PresencePenalty),
		N:                openai.Int(int64(c.params.N)),
	}
	if len(c.params.Stop) > 0 {
		params.Stop = openai.CompletionNewParamsStopUnion{OfStringArray: c.params.Stop}
	}

	c.logger.Debug("sending completion request",
		"request_id", requestID,
		"prompt_length", len(prompt),
		"max_tokens", maxTokens)

	resp, err := c.api.Completions.New(ctx, params,
		option.WithAPIKey(key),
		option.WithRequestTimeout(c.timeout),
	)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn("completion request failed",
			"request_id", requestID,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, err
	}

	c.logger.Debug("completion request finished",
		"request_id", requestID,
		"duration_ms", duration.Milliseconds(),
		"choices", len(resp.Choices))
	return resp, nil
}

func errorType(err *openai.Error) string {
	if err.Type != "" {
		return err.Type
	}
	if err.Code != "" {
		return err.Code
	}
	return fmt.Sprintf("http_%d", err.StatusCode)
}
