package squad

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSquad = Squad{ID: "squad-1", Name: "Gophers", Handle: "gophers"}

type harness struct {
	api        *mockAPI
	invalidate *mockInvalidator
	notifier   *recordingNotifier

	mu     sync.Mutex
	shared []*Post
	closed []*Post
}

func newHarness() *harness {
	return &harness{
		api:        &mockAPI{},
		invalidate: &mockInvalidator{},
		notifier:   &recordingNotifier{},
	}
}

func (h *harness) open(t *testing.T, post *Post, link *ExternalLink) *Workflow {
	t.Helper()
	wf, err := New(Options{
		Squad:        testSquad,
		User:         User{ID: "user-1"},
		Post:         post,
		ExternalLink: link,
		API:          h.api,
		Invalidator:  h.invalidate,
		Notifier:     h.notifier,
		OnShared: func(p *Post) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.shared = append(h.shared, p)
		},
		OnClose: func(p *Post) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.closed = append(h.closed, p)
		},
	})
	require.NoError(t, err)
	return wf
}

func (h *harness) closeCalls() []*Post {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Post(nil), h.closed...)
}

func TestNew(t *testing.T) {
	t.Run("requires api", func(t *testing.T) {
		_, err := New(Options{Squad: testSquad})
		assert.Error(t, err)
	})

	t.Run("requires squad id", func(t *testing.T) {
		_, err := New(Options{API: &mockAPI{}})
		var verr ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("optional collaborators default to no-ops", func(t *testing.T) {
		wf, err := New(Options{Squad: testSquad, API: &mockAPI{}})
		require.NoError(t, err)
		assert.NotEmpty(t, wf.ID())
		assert.Equal(t, testSquad, wf.Squad())
		assert.Equal(t, TwoStep{Current: SelectArticle}, wf.Steps().Layout())
	})
}

func TestSubmit_WithoutPostOrLink(t *testing.T) {
	t.Run("link without title", func(t *testing.T) {
		h := newHarness()
		wf := h.open(t, nil, &ExternalLink{URL: "https://x"})

		post, err := wf.Submit(context.Background(), "nice")
		assert.Nil(t, post)
		var verr ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, InvalidLink, verr.Reason)
		assert.Equal(t, []string{InvalidLink}, h.notifier.Messages())
		assert.False(t, wf.Closed())
		h.api.AssertNotCalled(t, "AddPostToSquad", mock.Anything, mock.Anything)
		h.api.AssertNotCalled(t, "SubmitExternalLink", mock.Anything, mock.Anything)
	})

	t.Run("two step flow without selection", func(t *testing.T) {
		h := newHarness()
		wf := h.open(t, nil, nil)

		_, err := wf.Submit(context.Background(), "nice")
		var verr ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, ArticleHint, verr.Reason)
		assert.Equal(t, SelectArticle, wf.Steps().Current())
		assert.Empty(t, h.api.Calls)
	})
}

func TestSubmit_EmptyCommentary(t *testing.T) {
	h := newHarness()
	wf := h.open(t, &Post{ID: "p1"}, nil)

	_, err := wf.Submit(context.Background(), "   ")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CommentHint, verr.Reason)
	assert.Equal(t, []string{CommentHint}, h.notifier.Messages())
	assert.Empty(t, h.api.Calls)
}

func TestSubmit_AttachesExistingPost(t *testing.T) {
	h := newHarness()
	created := &Post{ID: "squad-post-1", Title: "Go 1.26 is out"}
	h.api.On("AddPostToSquad", mock.Anything, AddPostInput{
		PostID:     "p1",
		SquadID:    "squad-1",
		Commentary: "must read",
	}).Return(created, nil).Once()
	h.invalidate.On("Invalidate", mock.Anything, FeedKey{Name: SourceFeed, UserID: "user-1"}).Return(nil).Once()

	// a link is ignored when a post is present
	wf := h.open(t, &Post{ID: "p1"}, &ExternalLink{Title: "Other", URL: "https://other"})
	post, err := wf.Submit(context.Background(), "must read")
	require.NoError(t, err)
	assert.Same(t, created, post)

	h.api.AssertExpectations(t)
	h.api.AssertNotCalled(t, "SubmitExternalLink", mock.Anything, mock.Anything)
	h.invalidate.AssertExpectations(t)
}

func TestSubmit_ExternalLink(t *testing.T) {
	h := newHarness()
	created := &Post{ID: "squad-post-2", Title: "Example"}
	h.api.On("SubmitExternalLink", mock.Anything, ExternalLinkInput{
		URL:        "https://x",
		Title:      "Example",
		Image:      "i.png",
		SquadID:    "squad-1",
		Commentary: "nice",
	}).Return(created, nil)
	h.invalidate.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	wf := h.open(t, nil, &ExternalLink{Title: "Example", URL: "https://x", Image: "i.png"})
	post, err := wf.Submit(context.Background(), "nice")
	require.NoError(t, err)
	assert.Equal(t, created, post)

	h.api.AssertNumberOfCalls(t, "SubmitExternalLink", 1)
	h.api.AssertNotCalled(t, "AddPostToSquad", mock.Anything, mock.Anything)
}

func TestSubmit_IgnoredWhileLoading(t *testing.T) {
	h := newHarness()
	release := make(chan time.Time)
	created := &Post{ID: "squad-post-3"}
	h.api.On("AddPostToSquad", mock.Anything, mock.Anything).WaitUntil(release).Return(created, nil)
	h.invalidate.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	wf := h.open(t, &Post{ID: "p1"}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = wf.Submit(context.Background(), "first")
	}()

	require.Eventually(t, wf.Loading, time.Second, time.Millisecond)

	post, err := wf.Submit(context.Background(), "second")
	assert.NoError(t, err)
	assert.Nil(t, post)

	close(release)
	wg.Wait()

	h.api.AssertNumberOfCalls(t, "AddPostToSquad", 1)
	assert.False(t, wf.Loading())
}

func TestSubmit_SuccessEffects(t *testing.T) {
	h := newHarness()
	created := &Post{ID: "squad-post-4"}
	h.api.On("AddPostToSquad", mock.Anything, mock.Anything).Return(created, nil)
	h.invalidate.On("Invalidate", mock.Anything, FeedKey{Name: SourceFeed, UserID: "user-1"}).Return(nil)

	wf := h.open(t, &Post{ID: "p1"}, nil)
	_, err := wf.Submit(context.Background(), "nice")
	require.NoError(t, err)

	assert.Equal(t, 1, h.notifier.Count(SharedMessage))
	assert.Equal(t, []*Post{created}, h.shared)
	assert.Equal(t, []*Post{created}, h.closeCalls())
	assert.True(t, wf.Closed())

	// later calls neither submit nor close again
	_, err = wf.Submit(context.Background(), "again")
	assert.ErrorIs(t, err, ErrClosed)
	wf.Close()
	assert.Len(t, h.closeCalls(), 1)
	h.api.AssertNumberOfCalls(t, "AddPostToSquad", 1)
}

func TestSubmit_InvalidationFailureStillCloses(t *testing.T) {
	h := newHarness()
	created := &Post{ID: "squad-post-5"}
	h.api.On("AddPostToSquad", mock.Anything, mock.Anything).Return(created, nil)
	h.invalidate.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	wf := h.open(t, &Post{ID: "p1"}, nil)
	post, err := wf.Submit(context.Background(), "nice")
	require.NoError(t, err)
	assert.Equal(t, created, post)
	assert.Equal(t, []*Post{created}, h.closeCalls())
}

func TestSubmit_NetworkErrorKeepsWorkflowOpen(t *testing.T) {
	h := newHarness()
	created := &Post{ID: "squad-post-6"}
	boom := errors.New("502 bad gateway")
	h.api.On("SubmitExternalLink", mock.Anything, mock.Anything).Return(nil, boom).Once()
	h.api.On("SubmitExternalLink", mock.Anything, mock.Anything).Return(created, nil).Once()
	h.invalidate.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	wf := h.open(t, nil, &ExternalLink{Title: "Example", URL: "https://x"})

	_, err := wf.Submit(context.Background(), "nice")
	var nerr NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.ErrorIs(t, err, boom)
	assert.False(t, wf.Closed())
	assert.False(t, wf.Loading())
	assert.Equal(t, "nice", wf.Form().Snapshot().Commentary)
	require.Len(t, h.notifier.Messages(), 1)
	assert.Contains(t, h.notifier.Messages()[0], "502 bad gateway")
	assert.Empty(t, h.closeCalls())

	post, err := wf.Submit(context.Background(), "nice")
	require.NoError(t, err)
	assert.Equal(t, created, post)
	assert.Equal(t, []*Post{created}, h.closeCalls())
}

func TestClose_DuringSubmit(t *testing.T) {
	h := newHarness()
	release := make(chan time.Time)
	h.api.On("AddPostToSquad", mock.Anything, mock.Anything).WaitUntil(release).Return(&Post{ID: "late"}, nil)

	wf := h.open(t, &Post{ID: "p1"}, nil)

	done := make(chan *Post)
	go func() {
		post, _ := wf.Submit(context.Background(), "nice")
		done <- post
	}()
	require.Eventually(t, wf.Loading, time.Second, time.Millisecond)

	wf.Close()
	close(release)

	// the network call still completes, but nothing reacts to it
	assert.Equal(t, "late", (<-done).ID)
	assert.Empty(t, h.notifier.Messages())
	assert.Empty(t, h.shared)
	assert.Equal(t, []*Post{nil}, h.closeCalls())
	h.invalidate.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestSelectArticle(t *testing.T) {
	h := newHarness()
	selected := &Post{ID: "p9", Title: "Generics in practice"}
	h.api.On("AddPostToSquad", mock.Anything, AddPostInput{PostID: "p9", SquadID: "squad-1", Commentary: "great"}).
		Return(&Post{ID: "squad-post-9"}, nil)
	h.invalidate.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	wf := h.open(t, nil, nil)
	assert.Equal(t, SelectArticle, wf.Steps().Current())

	var verr ValidationError
	require.ErrorAs(t, wf.SelectArticle(nil), &verr)
	assert.Equal(t, SelectArticle, wf.Steps().Current())

	require.NoError(t, wf.SelectArticle(selected))
	assert.Equal(t, TwoStep{Current: WriteComment}, wf.Steps().Layout())
	assert.Equal(t, "p9", wf.Form().Snapshot().Post.ID)

	wf.Back()
	assert.Equal(t, SelectArticle, wf.Steps().Current())
	require.NoError(t, wf.SelectArticle(selected))

	_, err := wf.Submit(context.Background(), "great")
	require.NoError(t, err)
	h.api.AssertExpectations(t)
}

func TestSelectArticle_SingleStep(t *testing.T) {
	h := newHarness()
	wf := h.open(t, &Post{ID: "p1"}, nil)
	assert.Error(t, wf.SelectArticle(&Post{ID: "p2"}))
	assert.Equal(t, "p1", wf.Form().Snapshot().Post.ID)
}

func TestClose(t *testing.T) {
	h := newHarness()
	wf := h.open(t, nil, nil)
	wf.Close()
	wf.Close()
	assert.True(t, wf.Closed())
	assert.Equal(t, []*Post{nil}, h.closeCalls())
}

func TestSelectArticle_AfterClose(t *testing.T) {
	h := newHarness()
	wf := h.open(t, nil, nil)
	wf.Close()

	assert.ErrorIs(t, wf.SelectArticle(&Post{ID: "p1"}), ErrClosed)
	assert.ErrorIs(t, wf.SelectArticle(nil), ErrClosed)
	assert.Equal(t, SelectArticle, wf.Steps().Current())
	assert.Nil(t, wf.Form().Snapshot().Post)
	assert.Empty(t, h.notifier.Messages())
}

func TestBack_IgnoredWhileLoadingAndAfterClose(t *testing.T) {
	h := newHarness()
	release := make(chan time.Time)
	h.api.On("AddPostToSquad", mock.Anything, mock.Anything).WaitUntil(release).Return(nil, errors.New("timeout"))

	wf := h.open(t, nil, nil)
	require.NoError(t, wf.SelectArticle(&Post{ID: "p1"}))

	done := make(chan error)
	go func() {
		_, err := wf.Submit(context.Background(), "nice")
		done <- err
	}()
	require.Eventually(t, wf.Loading, time.Second, time.Millisecond)

	wf.Back()
	assert.Equal(t, WriteComment, wf.Steps().Current())
	assert.Error(t, wf.SelectArticle(&Post{ID: "p2"}))

	close(release)
	assert.Error(t, <-done)

	wf.Close()
	wf.Back()
	assert.Equal(t, WriteComment, wf.Steps().Current())
	assert.Equal(t, "p1", wf.Form().Snapshot().Post.ID)
}

func TestSubmit_EffectsRunInOrder(t *testing.T) {
	tests := []struct {
		name          string
		invalidateErr error
	}{
		{name: "invalidation succeeds"},
		{name: "invalidation fails", invalidateErr: errors.New("redis down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu    sync.Mutex
				steps []string
			)
			record := func(step string) {
				mu.Lock()
				defer mu.Unlock()
				steps = append(steps, step)
			}

			api := &mockAPI{}
			api.On("AddPostToSquad", mock.Anything, mock.Anything).Return(&Post{ID: "squad-post-7"}, nil)
			invalidator := &mockInvalidator{}
			invalidator.On("Invalidate", mock.Anything, FeedKey{Name: SourceFeed, UserID: "user-1"}).
				Run(func(mock.Arguments) { record("invalidate") }).
				Return(tt.invalidateErr)

			wf, err := New(Options{
				Squad:       testSquad,
				User:        User{ID: "user-1"},
				Post:        &Post{ID: "p1"},
				API:         api,
				Invalidator: invalidator,
				Notifier: NotifierFunc(func(msg string) {
					if msg == SharedMessage {
						record("toast")
					}
				}),
				OnShared: func(*Post) { record("shared") },
				OnClose:  func(*Post) { record("close") },
			})
			require.NoError(t, err)

			_, err = wf.Submit(context.Background(), "nice")
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{"shared", "toast", "invalidate", "close"}, steps)
		})
	}
}
