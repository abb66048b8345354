package squad

import "sync"

// Form is the in-progress share form.
type Form struct {
	Post         *Post
	ExternalLink *ExternalLink

	// Squad display metadata.
	Name   string
	Handle string
	Image  string

	Commentary  string
	ActionLabel string
}

// HasContext reports whether the form already knows what is being shared.
func (f Form) HasContext() bool {
	return f.Post != nil || f.ExternalLink != nil
}

// FormStore holds the form of a single workflow.
type FormStore struct {
	mu   sync.RWMutex
	form Form
}

// NewFormStore seeds a fresh form from the squad and whatever the caller
// already knows about the shared content.
func NewFormStore(sq Squad, post *Post, link *ExternalLink) *FormStore {
	return &FormStore{form: Form{
		Post:         post,
		ExternalLink: link,
		Name:         sq.Name,
		Handle:       sq.Handle,
		Image:        sq.Image,
		ActionLabel:  defaultActionLabel,
	}}
}

// Snapshot returns a copy of the current form.
func (s *FormStore) Snapshot() Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.form
	if f.Post != nil {
		p := *f.Post
		f.Post = &p
	}
	if f.ExternalLink != nil {
		l := *f.ExternalLink
		f.ExternalLink = &l
	}
	return f
}

// Update applies fn to the form under the store lock.
func (s *FormStore) Update(fn func(*Form)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.form)
}

// SetPost records the selected post.
func (s *FormStore) SetPost(p *Post) {
	s.Update(func(f *Form) { f.Post = p })
}

// SetCommentary records the commentary.
func (s *FormStore) SetCommentary(commentary string) {
	s.Update(func(f *Form) { f.Commentary = commentary })
}
