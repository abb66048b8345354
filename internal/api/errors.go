package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("squads API temporarily unavailable")

type errorEntry struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Error carries the errors array of a GraphQL response.
type Error struct {
	Entries []errorEntry
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		if entry.Message != "" {
			msgs = append(msgs, entry.Message)
		}
	}
	if len(msgs) == 0 {
		return "graphql request failed"
	}
	return strings.Join(msgs, "; ")
}

// Code returns the first extensions.code, if any.
func (e *Error) Code() string {
	for _, entry := range e.Entries {
		if code, ok := entry.Extensions["code"].(string); ok {
			return code
		}
	}
	return ""
}

// StatusError is returned for non-200 HTTP responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
