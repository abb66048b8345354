package squad

import (
	"context"

	"github.com/blacktop/squadpost/internal/logutil"
)

// afterShare runs the post-submission effects in order. Each is best-effort:
// a failed cache invalidation does not keep the workflow open.
func (w *Workflow) afterShare(ctx context.Context, post *Post) {
	if post != nil && w.onShared != nil {
		w.onShared(post)
	}

	w.notifier.Show(SharedMessage)

	key := FeedKey{Name: SourceFeed, UserID: w.user.ID}
	if err := w.invalidator.Invalidate(ctx, key); err != nil {
		logutil.Errorf("invalidate %s feed: id=%s user=%s err=%v", key.Name, w.id, key.UserID, err)
	}

	logutil.Debugf("workflow closed after share: id=%s post=%s", w.id, postID(post))
	if w.onClose != nil {
		w.onClose(post)
	}
}

func postID(p *Post) string {
	if p == nil {
		return ""
	}
	return p.ID
}
