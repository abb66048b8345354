package squad

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) AddPostToSquad(ctx context.Context, in AddPostInput) (*Post, error) {
	args := m.Called(ctx, in)
	post, _ := args.Get(0).(*Post)
	return post, args.Error(1)
}

func (m *mockAPI) SubmitExternalLink(ctx context.Context, in ExternalLinkInput) (*Post, error) {
	args := m.Called(ctx, in)
	post, _ := args.Get(0).(*Post)
	return post, args.Error(1)
}

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) Invalidate(ctx context.Context, key FeedKey) error {
	return m.Called(ctx, key).Error(0)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Show(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func (n *recordingNotifier) Count(message string) int {
	count := 0
	for _, m := range n.Messages() {
		if m == message {
			count++
		}
	}
	return count
}
