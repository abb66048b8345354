package bluesky

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/blacktop/squadpost/internal/announce"
	"github.com/blacktop/squadpost/internal/logutil"
	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

const (
	envHandle      = "SQUADPOST_BLUESKY_HANDLE"
	envAppPassword = "SQUADPOST_BLUESKY_APP_PASSWORD"
	envPDSURL      = "SQUADPOST_BLUESKY_PDS_URL"

	providerName   = "bluesky"
	requestTimeout = 30 * time.Second

	// MaxLength is the post text limit in characters.
	MaxLength = 300

	defaultPDSURL = "https://bsky.social"
)

// Config allows the caller to supply defaults prior to reading environment variables.
type Config struct {
	PDSURL string
}

// Client implements the announce.Poster interface for Bluesky.
type Client struct {
	client *xrpc.Client
}

// New logs in and returns a Bluesky announcer.
func New(ctx context.Context, base Config) (announce.Poster, error) {
	cfg, err := loadConfig(base)
	if err != nil {
		return nil, err
	}

	userAgent := "squadpost/1"
	xrpcClient := &xrpc.Client{
		Client:    &http.Client{Timeout: requestTimeout},
		Host:      cfg.PDSURL,
		UserAgent: &userAgent,
	}

	session, err := atproto.ServerCreateSession(ctx, xrpcClient, &atproto.ServerCreateSession_Input{
		Identifier: cfg.Handle,
		Password:   cfg.AppPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	logutil.Debugf("bluesky session created: handle=%s", session.Handle)

	xrpcClient.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}

	return &Client{client: xrpcClient}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Post creates a Bluesky post with the shared link as an external card.
func (c *Client) Post(ctx context.Context, req announce.Request) error {
	_, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.client.Auth.Did,
		Record: &util.LexiconTypeDecoder{
			Val: buildPost(req, time.Now()),
		},
	})
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// buildPost keeps the text within the length limit. The link travels in the
// card, so it does not count against the limit.
func buildPost(req announce.Request, now time.Time) *bsky.FeedPost {
	post := &bsky.FeedPost{
		CreatedAt: now.UTC().Format(time.RFC3339),
		Text:      announce.Fit(req.Text, 0, MaxLength),
		Langs:     []string{"en"},
	}
	if req.Link != "" {
		post.Embed = &bsky.FeedPost_Embed{
			EmbedExternal: &bsky.EmbedExternal{
				External: &bsky.EmbedExternal_External{
					Uri:         req.Link,
					Title:       req.Title,
					Description: "",
				},
			},
		}
	}
	return post
}

// ProviderConfig merges defaults with environment-defined values.
type ProviderConfig struct {
	Handle      string
	AppPassword string
	PDSURL      string
}

func loadConfig(base Config) (ProviderConfig, error) {
	cfg := ProviderConfig{
		Handle:      strings.TrimSpace(os.Getenv(envHandle)),
		AppPassword: strings.TrimSpace(os.Getenv(envAppPassword)),
		PDSURL:      strings.TrimSpace(os.Getenv(envPDSURL)),
	}
	if cfg.PDSURL == "" {
		cfg.PDSURL = strings.TrimSpace(base.PDSURL)
	}
	if cfg.PDSURL == "" {
		cfg.PDSURL = defaultPDSURL
	}

	var missing []string
	if cfg.Handle == "" {
		missing = append(missing, envHandle)
	}
	if cfg.AppPassword == "" {
		missing = append(missing, envAppPassword)
	}
	if len(missing) > 0 {
		return ProviderConfig{}, announce.MissingEnvError{Provider: providerName, Variables: missing}
	}

	return cfg, nil
}
