package announce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Dispatch posts req to every poster in turn. Failures are collected so one
// network being down does not stop the others.
func Dispatch(ctx context.Context, posters []Poster, req Request, out io.Writer, simulate bool) error {
	if simulate {
		for _, poster := range posters {
			fmt.Fprintf(out, "[dry-run] would announce on %s: %q\n", poster.Name(), req.Status())
		}
		return nil
	}

	var errs []error
	for _, poster := range posters {
		fmt.Fprintf(out, "announcing on %s...\n", poster.Name())
		if err := poster.Post(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", poster.Name(), err))
			continue
		}
		fmt.Fprintf(out, "announced on %s\n", poster.Name())
	}

	return errors.Join(errs...)
}

// Fit shortens text so that text plus reserved characters stays within
// limit, ending it with an ellipsis when cut.
func Fit(text string, reserved, limit int) string {
	room := limit - reserved
	if room <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= room {
		return text
	}
	runes := []rune(text)
	if room == 1 {
		return "…"
	}
	return string(runes[:room-1]) + "…"
}
