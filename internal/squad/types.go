package squad

import (
	"context"
	"time"
)

// Post is a post record as returned by the squad API.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Image     string    `json:"image,omitempty"`
	Permalink string    `json:"permalink,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ExternalLink is a link that has not been posted to the platform yet.
type ExternalLink struct {
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
	URL   string `json:"url"`
}

// Squad is the group a post gets shared into.
type Squad struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
	Image  string `json:"image,omitempty"`
}

// User identifies the member performing the share.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// AddPostInput is the payload of the "add post to squad" mutation.
type AddPostInput struct {
	PostID     string
	SquadID    string
	Commentary string
}

// ExternalLinkInput is the payload of the "submit external link" mutation.
type ExternalLinkInput struct {
	URL        string
	Title      string
	Image      string
	SquadID    string
	Commentary string
}

// API is the network layer the workflow dispatches its mutations to.
type API interface {
	AddPostToSquad(ctx context.Context, in AddPostInput) (*Post, error)
	SubmitExternalLink(ctx context.Context, in ExternalLinkInput) (*Post, error)
}

// FeedKey addresses a cached feed for a single user.
type FeedKey struct {
	Name   string
	UserID string
}

// Invalidator drops cached feed data so later reads hit the API again.
type Invalidator interface {
	Invalidate(ctx context.Context, key FeedKey) error
}

// Notifier displays transient messages to the user.
type Notifier interface {
	Show(message string)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(message string)

// Show calls f(message).
func (f NotifierFunc) Show(message string) { f(message) }

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, FeedKey) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Show(string) {}
