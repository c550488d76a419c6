// Package openai is a minimal HTTP client for the OpenAI chat completion
// and audio transcription endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultBaseURL      = "https://api.openai.com"
	chatCompletionsPath = "/v1/chat/completions"
	transcriptionsPath  = "/v1/audio/transcriptions"
)

// Config configures one Client. Each provider (chat, recipe, transcription) gets its own
// client so read timeouts can differ.
type Config struct {
	Name           string
	BaseURL        string
	APIKey         string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// BreakerFailures is the number of consecutive connection failures that opens the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func New(cfg Config) *Client {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 30 * time.Second
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = 120 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return NewWithHTTPClient(cfg, &http.Client{Transport: tr})
}

// NewWithHTTPClient is used by tests to point the client at a fake server.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	return &Client{
		name:       name,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// only transport failures say anything about upstream health
			IsSuccessful: func(err error) bool {
				return err == nil || !IsConnection(err)
			},
		}),
	}
}

// Name identifies the client in logs.
func (c *Client) Name() string { return c.name }

// do sends req through the circuit breaker and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(req, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Kind: KindAPI, Message: "circuit breaker open for " + c.name, Err: err}
	}
	return err
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindConnection, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return &Error{Kind: KindConnection, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := KindAPI
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = KindRateLimit
		}
		return &Error{Kind: kind, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindAPI, StatusCode: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// errorMessage extracts error.message from an OpenAI error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if r := []rune(s); len(r) > 300 {
		s = string(r[:300])
	}
	return s
}
