package bluesky

import (
	"strings"
	"testing"
	"time"

	"github.com/blacktop/squadpost/internal/announce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPost(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	t.Run("link becomes an external card", func(t *testing.T) {
		post := buildPost(announce.Request{Text: "worth it", Link: "https://app/p/1", Title: "Go tips"}, now)
		assert.Equal(t, "worth it", post.Text)
		assert.Equal(t, "2026-10-18T12:00:00Z", post.CreatedAt)
		require.NotNil(t, post.Embed)
		require.NotNil(t, post.Embed.EmbedExternal)
		assert.Equal(t, "https://app/p/1", post.Embed.EmbedExternal.External.Uri)
		assert.Equal(t, "Go tips", post.Embed.EmbedExternal.External.Title)
	})

	t.Run("no link, no embed", func(t *testing.T) {
		post := buildPost(announce.Request{Text: "hi"}, now)
		assert.Nil(t, post.Embed)
	})

	t.Run("long text is cut", func(t *testing.T) {
		post := buildPost(announce.Request{Text: strings.Repeat("a", 400)}, now)
		assert.Len(t, []rune(post.Text), MaxLength)
		assert.True(t, strings.HasSuffix(post.Text, "…"))
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv(envHandle, "")
		t.Setenv(envAppPassword, "")
		_, err := loadConfig(Config{})
		var missing announce.MissingEnvError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{envHandle, envAppPassword}, missing.Variables)
	})

	t.Run("defaults pds", func(t *testing.T) {
		t.Setenv(envHandle, "gopher.bsky.social")
		t.Setenv(envAppPassword, "secret")
		t.Setenv(envPDSURL, "")
		cfg, err := loadConfig(Config{})
		require.NoError(t, err)
		assert.Equal(t, defaultPDSURL, cfg.PDSURL)
	})
}
