package squad

import (
	"strings"
	"sync"
)

// Step is a stage of the two-step share flow.
type Step int

const (
	SelectArticle Step = iota
	WriteComment
)

func (s Step) String() string {
	switch s {
	case SelectArticle:
		return "select-article"
	case WriteComment:
		return "write-comment"
	default:
		return "unknown"
	}
}

// Layout is either SingleStep or TwoStep.
type Layout interface {
	isLayout()
}

// SingleStep is used when the post or link is known up front: only the
// comment step is shown.
type SingleStep struct{}

// TwoStep makes the user pick an article before writing the comment.
type TwoStep struct {
	Current Step
}

func (SingleStep) isLayout() {}
func (TwoStep) isLayout()    {}

// Sequencer moves a workflow between its steps.
type Sequencer struct {
	mu     sync.Mutex
	layout Layout
}

// NewSequencer picks the layout. hasContext is true when a post or an
// external link was supplied when the workflow opened.
func NewSequencer(hasContext bool) *Sequencer {
	if hasContext {
		return &Sequencer{layout: SingleStep{}}
	}
	return &Sequencer{layout: TwoStep{Current: SelectArticle}}
}

// Layout returns the current layout.
func (s *Sequencer) Layout() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Current is the active step. A single-step flow is always writing a comment.
func (s *Sequencer) Current() Step {
	switch l := s.Layout().(type) {
	case SingleStep:
		return WriteComment
	case TwoStep:
		return l.Current
	default:
		panic("squad: unknown layout")
	}
}

// Title is the header shown above the flow.
func (s *Sequencer) Title() string {
	switch s.Layout().(type) {
	case SingleStep:
		return "Post article"
	case TwoStep:
		return "Share post"
	default:
		panic("squad: unknown layout")
	}
}

// Select moves a two-step flow from SelectArticle to WriteComment.
func (s *Sequencer) Select() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch l := s.layout.(type) {
	case SingleStep:
		return ValidationError{Field: "post", Reason: reasonWrongStep}
	case TwoStep:
		if l.Current != SelectArticle {
			return ValidationError{Field: "post", Reason: reasonWrongStep}
		}
		s.layout = TwoStep{Current: WriteComment}
		return nil
	default:
		panic("squad: unknown layout")
	}
}

// Back returns a two-step flow to article selection.
func (s *Sequencer) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.layout.(TwoStep); ok && l.Current == WriteComment {
		s.layout = TwoStep{Current: SelectArticle}
	}
}

// CheckSubmit reports whether the terminal transition may fire.
func (s *Sequencer) CheckSubmit(commentary string) error {
	if s.Current() != WriteComment {
		return ValidationError{Field: "post", Reason: ArticleHint}
	}
	if strings.TrimSpace(commentary) == "" {
		return ValidationError{Field: "commentary", Reason: CommentHint}
	}
	return nil
}

// CanSubmit reports whether the Done affordance should be enabled.
func CanSubmit(commentary string, loading bool) bool {
	return !loading && strings.TrimSpace(commentary) != ""
}
