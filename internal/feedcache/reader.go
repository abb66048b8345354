package feedcache

import (
	"context"

	"github.com/blacktop/squadpost/internal/logutil"
	"github.com/blacktop/squadpost/internal/squad"
)

// Source loads a squad feed from the API.
type Source interface {
	SourceFeed(ctx context.Context, squadID string, first int) ([]squad.Post, error)
}

// Reader reads squad feeds through the cache.
type Reader struct {
	store  Store
	source Source
	size   int
}

// NewReader returns a cache-aside reader. A nil store disables caching.
func NewReader(store Store, source Source, size int) *Reader {
	if store == nil {
		store = Nop{}
	}
	if size <= 0 {
		size = 20
	}
	return &Reader{store: store, source: source, size: size}
}

// Read returns the squad feed as seen by user. Cache errors fall back to the
// API.
func (r *Reader) Read(ctx context.Context, user squad.User, squadID string) ([]squad.Post, error) {
	key := squad.FeedKey{Name: squad.SourceFeed, UserID: user.ID}

	posts, ok, err := r.store.Feed(ctx, key, squadID)
	switch {
	case err != nil:
		logutil.Warnf("feed cache read failed: %v", err)
	case ok:
		logutil.Debugf("feed cache hit: squad=%s", squadID)
		return posts, nil
	}

	posts, err = r.source.SourceFeed(ctx, squadID, r.size)
	if err != nil {
		return nil, err
	}
	if err := r.store.StoreFeed(ctx, key, squadID, posts); err != nil {
		logutil.Warnf("feed cache write failed: %v", err)
	}
	return posts, nil
}
