package squad

import "fmt"

// Messages shown to the user through the Notifier.
const (
	SharedMessage = "This post has been shared to your Squad"
	CommentHint   = "Please add a comment before proceeding"
	ArticleHint   = "Please select an article before proceeding"
	InvalidLink   = "Invalid link"
)

// SourceFeed is the feed invalidated after a successful share.
const SourceFeed = "sourceFeed"

const (
	defaultActionLabel = "Done"
	reasonWrongStep    = "article selection is only available in the first step"
)

// ValidationError is returned when the form is not complete enough to proceed.
// The form is left untouched so the user can correct it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NetworkError wraps a failed mutation. The workflow stays open for a retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e NetworkError) Unwrap() error { return e.Err }
