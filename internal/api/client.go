// Package api is a small GraphQL client for the squads backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blacktop/squadpost/internal/logutil"
	"github.com/sony/gobreaker"
)

const (
	defaultEndpoint = "https://api.daily.dev/graphql"
	defaultTimeout  = 30 * time.Second
	userAgent       = "squadpost/1"

	maxErrorBody = 512
)

// Config describes how to reach the GraphQL endpoint.
type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration

	// MaxFailures is the number of consecutive transport failures that opens
	// the circuit. Zero means 5.
	MaxFailures uint32
	// CoolDown is how long the circuit stays open. Zero means 30s.
	CoolDown time.Duration

	HTTPClient *http.Client
}

// Client talks to the squads GraphQL API.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("invalid API endpoint %q", endpoint)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	coolDown := cfg.CoolDown
	if coolDown <= 0 {
		coolDown = 30 * time.Second
	}

	st := gobreaker.Settings{Name: "squads-api", Timeout: coolDown}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= maxFailures }
	// GraphQL errors and 4xx responses are answers from a healthy server.
	st.IsSuccessful = func(err error) bool {
		var gqlErr *Error
		var statusErr *StatusError
		switch {
		case err == nil, errors.As(err, &gqlErr):
			return true
		case errors.As(err, &statusErr):
			return statusErr.Code < 500
		default:
			return false
		}
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logutil.Debugf("circuit %s: %s -> %s", name, from, to)
	}

	return &Client{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Token),
		http:     httpClient,
		breaker:  gobreaker.NewCircuitBreaker(st),
	}, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []errorEntry    `json:"errors"`
}

// do runs one GraphQL operation and decodes its data into out.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, op, query, vars, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logutil.Debugf("graphql request: op=%s", op)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w", op, &StatusError{Code: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody)})
	}

	var decoded response
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return fmt.Errorf("%s: parse response: %w", op, err)
	}
	if len(decoded.Errors) > 0 {
		return fmt.Errorf("%s: %w", op, &Error{Entries: decoded.Errors})
	}
	if out == nil || len(decoded.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
