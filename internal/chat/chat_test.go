package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:     srv.URL,
		APIKey:      "sk-test",
		Model:       "llama-3.3-70b-versatile",
		Temperature: 0.7,
		MaxTokens:   500,
		Timeout:     2 * time.Second,
	}, nil)
}

func TestComplete_SendsRequestAndReturnsContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "llama-3.3-70b-versatile" || req.Temperature != 0.7 || req.MaxTokens != 500 {
			t.Errorf("request params = %+v", req)
		}
		if len(req.Messages) != 2 ||
			req.Messages[0].Role != "system" || req.Messages[0].Content != "be brief" ||
			req.Messages[1].Role != "user" || req.Messages[1].Content != "what projects?" {
			t.Errorf("messages = %+v", req.Messages)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Two of them."}}]}`))
	})

	got, err := c.Complete(context.Background(), "be brief", "what projects?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Two of them." {
		t.Fatalf("content = %q", got)
	}
}

func TestComplete_UpstreamErrorMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key"}}`))
	})

	_, err := c.Complete(context.Background(), "", "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Error() != "Invalid API Key" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestComplete_UpstreamErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := c.Complete(context.Background(), "", "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Error() != "HTTP error! status: 502" {
		t.Fatalf("message = %q", apiErr.Error())
	}
}

func TestComplete_InvalidPayload(t *testing.T) {
	for name, body := range map[string]string{
		"no choices":    `{"choices":[]}`,
		"empty content": `{"choices":[{"message":{"content":""}}]}`,
		"not json":      `surprise`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.Complete(context.Background(), "", "hi")
			if !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("err = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestComplete_SingleAttempt(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"tokens"}}`))
	})

	_, err := c.Complete(context.Background(), "", "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls)
	}
}

func TestComplete_MissingAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	if _, err := c.Complete(context.Background(), "", "hi"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	if called {
		t.Fatal("upstream must not be called without a key")
	}
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond}, nil)
	_, err := c.Complete(context.Background(), "", "hi")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
