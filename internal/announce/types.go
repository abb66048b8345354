// Package announce cross-posts a freshly shared squad post to other social
// networks.
package announce

import (
	"context"
	"fmt"
	"strings"

	"github.com/blacktop/squadpost/internal/squad"
)

// Request is the announcement payload shared across all providers.
type Request struct {
	Text  string
	Link  string
	Title string
}

// Poster abstracts a social network that can publish an announcement.
type Poster interface {
	Name() string
	Post(ctx context.Context, req Request) error
}

// FromShare builds the announcement of a post shared into sq.
func FromShare(sq squad.Squad, post *squad.Post, commentary string) Request {
	text := strings.TrimSpace(commentary)
	if sq.Handle != "" {
		suffix := fmt.Sprintf("(shared to @%s)", sq.Handle)
		if text == "" {
			text = suffix
		} else {
			text = text + " " + suffix
		}
	}
	return Request{
		Text:  text,
		Link:  post.Permalink,
		Title: post.Title,
	}
}

// Status renders the request as plain text for networks without link cards.
func (r Request) Status() string {
	if r.Link == "" {
		return r.Text
	}
	if r.Text == "" {
		return r.Link
	}
	return r.Text + "\n\n" + r.Link
}
