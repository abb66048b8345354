package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/blacktop/squadpost/internal/squad"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedKey = squad.FeedKey{Name: squad.SourceFeed, UserID: "u1"}

func TestKey(t *testing.T) {
	assert.Equal(t, "squadpost:feed:sourceFeed:u1", Key(feedKey))
	assert.Equal(t, "squadpost:feed:sourceFeed:u1:sq1", Key(feedKey, "sq1"))
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every key under the user prefix", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		cache := NewWithClient(db, time.Minute)

		base := "squadpost:feed:sourceFeed:u1"
		mock.ExpectScan(0, base+":*", scanCount).SetVal([]string{base + ":sq1"}, 7)
		mock.ExpectScan(7, base+":*", scanCount).SetVal([]string{base + ":sq2"}, 0)
		mock.ExpectDel(base, base+":sq1", base+":sq2").SetVal(2)

		require.NoError(t, cache.Invalidate(ctx, feedKey))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user id wildcards match literally", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		cache := NewWithClient(db, time.Minute)

		key := squad.FeedKey{Name: squad.SourceFeed, UserID: "u*[1]?"}
		base := "squadpost:feed:sourceFeed:u*[1]?"
		mock.ExpectScan(0, `squadpost:feed:sourceFeed:u\*\[1\]\?:*`, scanCount).SetVal(nil, 0)
		mock.ExpectDel(base).SetVal(0)

		require.NoError(t, cache.Invalidate(ctx, key))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scan error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		cache := NewWithClient(db, time.Minute)

		mock.ExpectScan(0, "squadpost:feed:sourceFeed:u1:*", scanCount).SetErr(errors.New("connection refused"))

		err := cache.Invalidate(ctx, feedKey)
		assert.ErrorContains(t, err, "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCache_Feed(t *testing.T) {
	ctx := context.Background()
	key := "squadpost:feed:sourceFeed:u1:sq1"

	t.Run("hit", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		cache := NewWithClient(db, time.Minute)

		data, err := json.Marshal([]squad.Post{{ID: "a", Title: "A"}})
		require.NoError(t, err)
		mock.ExpectGet(key).SetVal(string(data))

		posts, ok, err := cache.Feed(ctx, feedKey, "sq1")
		require.NoError(t, err)
		assert.True(t, ok)
		require.Len(t, posts, 1)
		assert.Equal(t, "A", posts[0].Title)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		cache := NewWithClient(db, time.Minute)

		mock.ExpectGet(key).RedisNil()

		posts, ok, err := cache.Feed(ctx, feedKey, "sq1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, posts)
	})

	t.Run("error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		cache := NewWithClient(db, time.Minute)

		mock.ExpectGet(key).SetErr(redis.TxFailedErr)

		_, _, err := cache.Feed(ctx, feedKey, "sq1")
		assert.Error(t, err)
	})
}

func TestCache_StoreFeed(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewWithClient(db, time.Minute)

	posts := []squad.Post{{ID: "a", Title: "A"}}
	data, err := json.Marshal(posts)
	require.NoError(t, err)
	mock.ExpectSet("squadpost:feed:sourceFeed:u1:sq1", data, time.Minute).SetVal("OK")

	require.NoError(t, cache.StoreFeed(context.Background(), feedKey, "sq1", posts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithClient_DefaultTTL(t *testing.T) {
	db, _ := redismock.NewClientMock()
	assert.Equal(t, defaultTTL, NewWithClient(db, 0).ttl)
}
