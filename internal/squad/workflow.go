package squad

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/blacktop/squadpost/internal/logutil"
	"github.com/google/uuid"
)

// ErrClosed is returned by Submit once the workflow has been closed.
var ErrClosed = errors.New("share workflow is closed")

// Options configures a share workflow.
type Options struct {
	Squad Squad
	// User is the member sharing the post. Its ID keys the feed invalidation.
	User User

	// Post or ExternalLink, when set, skip article selection.
	Post         *Post
	ExternalLink *ExternalLink

	API         API
	Invalidator Invalidator
	Notifier    Notifier

	// OnShared is called with the created post before the workflow closes.
	OnShared func(*Post)
	// OnClose is called exactly once, with the created post or nil.
	OnClose func(*Post)
}

// Workflow is one instance of the share-to-squad flow, from open to close.
type Workflow struct {
	id          string
	squad       Squad
	user        User
	api         API
	invalidator Invalidator
	notifier    Notifier
	onShared    func(*Post)
	onClose     func(*Post)

	form  *FormStore
	steps *Sequencer

	mu      sync.Mutex
	loading bool
	closed  bool
}

// New opens a workflow.
func New(opts Options) (*Workflow, error) {
	if opts.API == nil {
		return nil, errors.New("squad API is required")
	}
	if strings.TrimSpace(opts.Squad.ID) == "" {
		return nil, ValidationError{Field: "squad", Reason: "squad id is required"}
	}

	w := &Workflow{
		id:          uuid.NewString(),
		squad:       opts.Squad,
		user:        opts.User,
		api:         opts.API,
		invalidator: opts.Invalidator,
		notifier:    opts.Notifier,
		onShared:    opts.OnShared,
		onClose:     opts.OnClose,
		form:        NewFormStore(opts.Squad, opts.Post, opts.ExternalLink),
	}
	if w.invalidator == nil {
		w.invalidator = nopInvalidator{}
	}
	if w.notifier == nil {
		w.notifier = nopNotifier{}
	}
	w.steps = NewSequencer(w.form.Snapshot().HasContext())

	logutil.Debugf("workflow opened: id=%s squad=%s step=%s", w.id, w.squad.Handle, w.steps.Current())
	return w, nil
}

// ID identifies the workflow in logs.
func (w *Workflow) ID() string { return w.id }

// Squad returns the target squad.
func (w *Workflow) Squad() Squad { return w.squad }

// Form exposes the form store.
func (w *Workflow) Form() *FormStore { return w.form }

// Steps exposes the step sequencer.
func (w *Workflow) Steps() *Sequencer { return w.steps }

// Loading reports whether a mutation is in flight.
func (w *Workflow) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// Closed reports whether the workflow has been closed.
func (w *Workflow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// SelectArticle stores the chosen post and advances to the comment step.
func (w *Workflow) SelectArticle(p *Post) error {
	if p == nil || p.ID == "" {
		if w.Closed() {
			return ErrClosed
		}
		return w.reject(ValidationError{Field: "post", Reason: ArticleHint})
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.closed:
		return ErrClosed
	case w.loading:
		return ValidationError{Field: "post", Reason: reasonWrongStep}
	}
	if err := w.steps.Select(); err != nil {
		return err
	}
	w.form.SetPost(p)
	logutil.Debugf("article selected: id=%s post=%s", w.id, p.ID)
	return nil
}

// Back returns to article selection in a two-step flow. The selected post
// is kept so the user can confirm it again. It does nothing while a
// submission is in flight or after close.
func (w *Workflow) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.loading {
		return
	}
	w.steps.Back()
}

// Submit dispatches the share mutation.
//
// A call made while a previous one is still in flight returns (nil, nil)
// and makes no network call. Validation failures are shown through the
// Notifier and returned as ValidationError; mutation failures as
// NetworkError. In both cases the form is preserved and Submit may be called
// again.
func (w *Workflow) Submit(ctx context.Context, commentary string) (*Post, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	if w.loading {
		w.mu.Unlock()
		logutil.Debugf("submit ignored, already loading: id=%s", w.id)
		return nil, nil
	}

	w.form.SetCommentary(commentary)
	if err := w.steps.CheckSubmit(commentary); err != nil {
		w.mu.Unlock()
		return nil, w.reject(err)
	}

	form := w.form.Snapshot()
	op, call, err := w.mutation(form)
	if err != nil {
		w.mu.Unlock()
		return nil, w.reject(err)
	}
	w.loading = true
	w.mu.Unlock()

	logutil.Debugf("submitting: id=%s op=%s squad=%s", w.id, op, w.squad.ID)
	post, err := call(ctx)

	w.mu.Lock()
	w.loading = false
	if w.closed {
		w.mu.Unlock()
		logutil.Debugf("workflow closed before %s completed: id=%s", op, w.id)
		if err != nil {
			return nil, NetworkError{Op: op, Err: err}
		}
		return post, nil
	}
	if err != nil {
		w.mu.Unlock()
		nerr := NetworkError{Op: op, Err: err}
		logutil.Errorf("share failed: id=%s err=%v", w.id, nerr)
		w.notifier.Show(nerr.Error())
		return nil, nerr
	}
	// Claim the close while still holding the lock so a concurrent Close
	// cannot fire OnClose a second time.
	w.closed = true
	w.mu.Unlock()

	w.afterShare(ctx, post)
	return post, nil
}

type mutationFunc func(ctx context.Context) (*Post, error)

// mutation picks exactly one of the two mutations. An attached post always
// wins over an external link.
func (w *Workflow) mutation(form Form) (string, mutationFunc, error) {
	switch {
	case form.Post != nil:
		in := AddPostInput{
			PostID:     form.Post.ID,
			SquadID:    w.squad.ID,
			Commentary: form.Commentary,
		}
		return "add post to squad", func(ctx context.Context) (*Post, error) {
			return w.api.AddPostToSquad(ctx, in)
		}, nil
	case form.ExternalLink != nil && strings.TrimSpace(form.ExternalLink.Title) != "":
		in := ExternalLinkInput{
			URL:        form.ExternalLink.URL,
			Title:      form.ExternalLink.Title,
			Image:      form.ExternalLink.Image,
			SquadID:    w.squad.ID,
			Commentary: form.Commentary,
		}
		return "submit external link", func(ctx context.Context) (*Post, error) {
			return w.api.SubmitExternalLink(ctx, in)
		}, nil
	default:
		return "", nil, ValidationError{Field: "link", Reason: InvalidLink}
	}
}

func (w *Workflow) reject(err error) error {
	var verr ValidationError
	if errors.As(err, &verr) {
		w.notifier.Show(verr.Reason)
	}
	return err
}

// Close abandons the workflow. An in-flight mutation is not cancelled but
// its result no longer updates anything.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	logutil.Debugf("workflow closed: id=%s", w.id)
	if w.onClose != nil {
		w.onClose(nil)
	}
}
