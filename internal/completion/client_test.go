package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vampirenirmal/dramaturg/internal/core"
)

const okBody = `{"id":"cmpl-1","object":"text_completion","created":1,"model":"text-davinci-002",` +
	`"choices":[{"text":" The Pub.","index":0,"finish_reason":"stop","logprobs":null}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL + "/v1"), WithRateLimit(6000, 10)}, opts...)
	return NewClient(opts...)
}

func TestCompleteSendsSamplingParams(t *testing.T) {
	var got map[string]any
	var auth, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okBody))
	})

	res, err := c.Complete(context.Background(), core.CompletionRequest{
		APIKey:    "sk-test",
		Prompt:    "Place:",
		MaxTokens: 128,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != " The Pub." || res.Refused() {
		t.Errorf("result = %+v", res)
	}
	if path != "/v1/completions" {
		t.Errorf("path = %q", path)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("authorization = %q", auth)
	}

	checks := map[string]any{
		"model":             "text-davinci-002",
		"prompt":            "Place:",
		"max_tokens":        float64(128),
		"temperature":       0.99,
		"frequency_penalty": 0.23,
		"presence_penalty":  0.23,
		"n":                 float64(1),
	}
	for key, want := range checks {
		if got[key] != want {
			t.Errorf("%s = %v, want %v", key, got[key], want)
		}
	}
	stop, _ := got["stop"].([]any)
	if len(stop) != 3 || stop[0] != "<stop>" || stop[2] != "<end>" {
		t.Errorf("stop = %v", got["stop"])
	}
}

func TestWithParamsOverridesSampling(t *testing.T) {
	var got map[string]any
	params := DefaultParams()
	params.Model = "davinci-002"
	params.Temperature = 0.7
	params.TopP = 0.9
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okBody))
	}, WithParams(params))

	if _, err := c.Complete(context.Background(), core.CompletionRequest{APIKey: "sk-test", Prompt: "x", MaxTokens: 8}); err != nil {
		t.Fatal(err)
	}
	if got["model"] != "davinci-002" || got["temperature"] != 0.7 || got["top_p"] != 0.9 {
		t.Errorf("request = %v", got)
	}
	if stop, _ := got["stop"].([]any); len(stop) != 3 {
		t.Errorf("stop = %v", got["stop"])
	}
}

func TestCompleteOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		delay     time.Duration
		wantErr   bool
		wantError string
	}{
		{"error payload is a refusal", http.StatusBadRequest,
			`{"error":{"message":"too long","type":"invalid_request_error","code":"context_length_exceeded"}}`,
			0, false, "invalid_request_error"},
		{"rate limited is a refusal", http.StatusTooManyRequests,
			`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`,
			0, false, "requests"},
		{"empty object aborts", http.StatusOK, `{}`, 0, true, ""},
		{"slow answer aborts", http.StatusOK, okBody, 300 * time.Millisecond, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, WithTimeout(50*time.Millisecond))

			res, err := c.Complete(context.Background(), core.CompletionRequest{APIKey: "k", Prompt: "p", MaxTokens: 1})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an aborted call, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.ErrorType != tt.wantError || !res.Refused() {
				t.Errorf("error type = %q, want %q", res.ErrorType, tt.wantError)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"valid", http.StatusOK, okBody, nil},
		{"bad key", http.StatusUnauthorized,
			`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`,
			core.ErrCredentials},
		{"no quota", http.StatusTooManyRequests,
			`{"error":{"message":"quota","type":"insufficient_quota","code":"insufficient_quota"}}`,
			core.ErrQuota},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&body)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			err := c.ValidateKey(context.Background(), "sk-test")
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if body["max_tokens"] != float64(1) {
				t.Errorf("validation request = %v", body)
			}
		})
	}

	t.Run("other API errors keep their type", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		})
		err := c.ValidateKey(context.Background(), "sk-test")
		var apiErr *core.APIError
		if !errors.As(err, &apiErr) || apiErr.Type != "server_error" {
			t.Fatalf("err = %v, want APIError server_error", err)
		}
		if errors.Is(err, core.ErrCredentials) || errors.Is(err, core.ErrQuota) {
			t.Error("server error should match no credential sentinel")
		}
	})
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	prompt := "Example 1. ...\nTitle: Star Wars<end>\n\nExample 2. A story"
	first, _ := m.Complete(ctx, core.CompletionRequest{Prompt: prompt})
	if !strings.Contains(first.Text, "Lighthouse") {
		t.Errorf("title response = %q", first.Text)
	}
	cont, _ := m.Complete(ctx, core.CompletionRequest{Prompt: prompt + first.Text + " "})
	if cont.Text != "" {
		t.Errorf("continuation should be empty, got %q", cont.Text)
	}
	again, _ := m.Complete(ctx, core.CompletionRequest{Prompt: prompt})
	if again.Text != first.Text {
		t.Errorf("replayed prompt got %q", again.Text)
	}
	if m.Calls() != 3 {
		t.Errorf("calls = %d, want 3", m.Calls())
	}

	if err := m.ValidateKey(ctx, ""); !errors.Is(err, core.ErrCredentials) {
		t.Errorf("empty key err = %v", err)
	}
}
