package tui

import "sync"

// Toaster collects notifications raised by the workflow. The workflow
// notifies from the goroutine running the mutation, so the model drains the
// queue when that command's result arrives instead of being called directly.
type Toaster struct {
	mu      sync.Mutex
	pending []string
}

// Show queues a message.
func (t *Toaster) Show(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, message)
}

// Drain returns and clears the queued messages.
func (t *Toaster) Drain() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.pending
	t.pending = nil
	return out
}
