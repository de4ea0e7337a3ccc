// Package chat calls an OpenAI-compatible chat-completion endpoint such as
// Groq's, through the go-openai client.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrMissingAPIKey   = errors.New("chat: API key is not configured")
	ErrInvalidResponse = errors.New("chat: invalid response format")
)

// APIError is a non-2xx reply from the upstream.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

type Config struct {
	// BaseURL is the API root; "/chat/completions" is appended per call.
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func NewHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

type Client struct {
	cfg Config
	api *openai.Client
}

// New returns a client. A nil transport uses NewHTTPTransport.
func New(cfg Config, tr http.RoundTripper) *Client {
	if tr == nil {
		tr = NewHTTPTransport()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Transport: tr}

	return &Client{
		cfg: cfg,
		api: openai.NewClientWithConfig(oc),
	}
}

// Complete sends the system prompt and question and returns the first
// choice's text. Each call is a single attempt.
func (c *Client) Complete(ctx context.Context, system, question string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", translate(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrInvalidResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// translate maps go-openai failures onto this package's errors.
func translate(err error) error {
	var (
		apiErr  *openai.APIError
		reqErr  *openai.RequestError
		syntax  *json.SyntaxError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &apiErr):
		return &APIError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
	case errors.As(err, &reqErr):
		return &APIError{Status: reqErr.HTTPStatusCode}
	case errors.As(err, &syntax), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	default:
		return fmt.Errorf("chat request: %w", err)
	}
}
