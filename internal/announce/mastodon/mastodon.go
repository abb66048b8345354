package mastodon

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blacktop/squadpost/internal/announce"
	mastodonapi "github.com/mattn/go-mastodon"
)

const (
	envServer       = "SQUADPOST_MASTODON_SERVER"
	envAccessToken  = "SQUADPOST_MASTODON_ACCESS_TOKEN"
	envClientID     = "SQUADPOST_MASTODON_CLIENT_ID"
	envClientSecret = "SQUADPOST_MASTODON_CLIENT_SECRET"
	envVisibility   = "SQUADPOST_MASTODON_VISIBILITY"

	providerName   = "mastodon"
	requestTimeout = 30 * time.Second

	// MaxLength is the default status limit of a Mastodon instance.
	MaxLength = 500
	// Mastodon counts every link as 23 characters.
	linkLength = 23
)

var visibilities = map[string]struct{}{
	"public":   {},
	"unlisted": {},
	"private":  {},
	"direct":   {},
}

// Config contains the settings needed to reach a Mastodon server.
type Config struct {
	Server       string
	AccessToken  string
	ClientID     string
	ClientSecret string
	Visibility   string
}

// Client wraps the Mastodon API client.
type Client struct {
	client     *mastodonapi.Client
	visibility string
}

// New constructs a Mastodon announcer based on environment configuration.
func New(ctx context.Context) (announce.Poster, error) {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	mastodonClient := mastodonapi.NewClient(&mastodonapi.Config{
		Server:       cfg.Server,
		AccessToken:  cfg.AccessToken,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	mastodonClient.Timeout = requestTimeout

	return &Client{client: mastodonClient, visibility: cfg.Visibility}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Post publishes the announcement as a toot. The instance builds the link
// preview card.
func (c *Client) Post(ctx context.Context, req announce.Request) error {
	_, err := c.client.PostStatus(ctx, &mastodonapi.Toot{
		Status:     buildStatus(req),
		Visibility: c.visibility,
	})
	if err != nil {
		return fmt.Errorf("post status: %w", err)
	}
	return nil
}

func buildStatus(req announce.Request) string {
	reserved := 0
	if req.Link != "" {
		reserved = linkLength + 2
	}
	req.Text = announce.Fit(req.Text, reserved, MaxLength)
	return req.Status()
}

func loadConfigFromEnv() (Config, error) {
	cfg := Config{
		Server:       strings.TrimSpace(os.Getenv(envServer)),
		AccessToken:  strings.TrimSpace(os.Getenv(envAccessToken)),
		ClientID:     strings.TrimSpace(os.Getenv(envClientID)),
		ClientSecret: strings.TrimSpace(os.Getenv(envClientSecret)),
		Visibility:   strings.ToLower(strings.TrimSpace(os.Getenv(envVisibility))),
	}
	if cfg.Visibility == "" {
		cfg.Visibility = "public"
	}

	var missing []string
	if cfg.Server == "" {
		missing = append(missing, envServer)
	}
	if cfg.AccessToken == "" {
		missing = append(missing, envAccessToken)
	}
	if len(missing) > 0 {
		return Config{}, announce.MissingEnvError{Provider: providerName, Variables: missing}
	}

	if _, ok := visibilities[cfg.Visibility]; !ok {
		return Config{}, fmt.Errorf("invalid %s %q", envVisibility, cfg.Visibility)
	}

	return cfg, nil
}
