package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/blacktop/squadpost/internal/announce"
	"github.com/blacktop/squadpost/internal/logutil"
	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/tweet/managetweet"
	managetweettypes "github.com/michimani/gotwi/tweet/managetweet/types"
)

const (
	envAPIKey       = "SQUADPOST_TWITTER_CONSUMER_KEY"
	envAPISecret    = "SQUADPOST_TWITTER_CONSUMER_SECRET"
	envAccessToken  = "SQUADPOST_TWITTER_ACCESS_TOKEN"
	envAccessSecret = "SQUADPOST_TWITTER_ACCESS_TOKEN_SECRET"

	providerName = "twitter"

	// MaxLength is the tweet limit.
	MaxLength = 280
	// t.co wraps every link to 23 characters.
	linkLength = 23
)

var httpTimeout = 30 * time.Second

// Config captures the credentials required for OAuth 1.0a user-context requests.
type Config struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Client implements the Poster interface for X (Twitter).
type Client struct {
	api *gotwi.Client
}

// New constructs a Twitter announcer using gotwi and OAuth 1.0a credentials.
func New(ctx context.Context) (announce.Poster, error) {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	client, err := gotwi.NewClient(&gotwi.NewClientInput{
		HTTPClient:           &http.Client{Timeout: httpTimeout},
		AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
		OAuthToken:           cfg.AccessToken,
		OAuthTokenSecret:     cfg.AccessSecret,
		APIKey:               cfg.APIKey,
		APIKeySecret:         cfg.APISecret,
		Debug:                os.Getenv("SQUADPOST_TWITTER_DEBUG") == "1" || logutil.Verbose(),
	})
	if err != nil {
		return nil, fmt.Errorf("create X client: %w", err)
	}
	if !client.IsReady() {
		return nil, fmt.Errorf("twitter client not ready")
	}

	return &Client{api: client}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return providerName }

// Post publishes the announcement as a tweet.
func (c *Client) Post(ctx context.Context, req announce.Request) error {
	text := buildText(req)
	logutil.Debugf("posting tweet: chars=%d", len([]rune(text)))
	if _, err := managetweet.Create(ctx, c.api, &managetweettypes.CreateInput{
		Text: gotwi.String(text),
	}); err != nil {
		return fmt.Errorf("post tweet: %w", unwrapGotwiError(err))
	}
	logutil.Debugf("tweet posted successfully")
	return nil
}

func buildText(req announce.Request) string {
	reserved := 0
	if req.Link != "" {
		reserved = linkLength + 2
	}
	req.Text = announce.Fit(req.Text, reserved, MaxLength)
	return req.Status()
}

func loadConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:       strings.TrimSpace(os.Getenv(envAPIKey)),
		APISecret:    strings.TrimSpace(os.Getenv(envAPISecret)),
		AccessToken:  strings.TrimSpace(os.Getenv(envAccessToken)),
		AccessSecret: strings.TrimSpace(os.Getenv(envAccessSecret)),
	}

	var missing []string
	for _, v := range []struct{ name, value string }{
		{envAPIKey, cfg.APIKey},
		{envAPISecret, cfg.APISecret},
		{envAccessToken, cfg.AccessToken},
		{envAccessSecret, cfg.AccessSecret},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return Config{}, announce.MissingEnvError{Provider: providerName, Variables: missing}
	}

	return cfg, nil
}

func unwrapGotwiError(err error) error {
	var gwErr *gotwi.GotwiError
	if errors.As(err, &gwErr) && gwErr != nil {
		return errors.New(summarizeGotwiError(gwErr))
	}
	return err
}

func summarizeGotwiError(err *gotwi.GotwiError) string {
	parts := make([]string, 0, 4)
	if err.Title != "" {
		parts = append(parts, err.Title)
	}
	if err.Detail != "" {
		parts = append(parts, err.Detail)
	}
	for _, apiErr := range err.APIErrors {
		if apiErr.Message != "" {
			parts = append(parts, apiErr.Message)
		}
	}
	if len(parts) == 0 {
		return "X API request failed"
	}
	return strings.Join(parts, "; ")
}
