/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/blacktop/squadpost/internal/announce"
	"github.com/blacktop/squadpost/internal/announce/bluesky"
	"github.com/blacktop/squadpost/internal/announce/mastodon"
	"github.com/blacktop/squadpost/internal/announce/twitter"
	"github.com/blacktop/squadpost/internal/api"
	"github.com/blacktop/squadpost/internal/config"
	"github.com/blacktop/squadpost/internal/feedcache"
	"github.com/blacktop/squadpost/internal/logutil"
	"github.com/blacktop/squadpost/internal/squad"
	"github.com/blacktop/squadpost/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	squadFlag       string
	postFlag        string
	linkFlag        string
	titleFlag       string
	imageFlag       string
	messageFlag     string
	announceFlag    []string
	interactiveFlag bool
	dryRun          bool
	verbose         bool
)

var supportedTargets = map[string]struct{}{
	"bluesky":  {},
	"mastodon": {},
	"twitter":  {},
}

const defaultBlueskyPDSURL = "https://bsky.social"

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "squadpost [commentary]",
		Short: "Share posts to your squads",
		Long: "squadpost shares an existing post or an external link into a squad with your commentary. " +
			"Without --post or --link it opens an interactive picker over your reading history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          runShare,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logutil.SetVerbose(true)
			}
		},
		Example: `  squadpost --squad gophers --post 4f2a9c "Great write-up on PGO"
  squadpost -s gophers --link https://go.dev/blog/go1.26 -m "It's out!"
  squadpost -s gophers -i
  echo "worth a read" | squadpost -s gophers --post 4f2a9c --announce bluesky`,
	}

	cmd.Flags().StringVarP(&squadFlag, "squad", "s", "", "Squad handle to share into (default $SQUADPOST_SQUAD)")
	cmd.Flags().StringVar(&postFlag, "post", "", "ID of an existing post to share")
	cmd.Flags().StringVar(&linkFlag, "link", "", "External link to share")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Title of the external link (looked up when empty)")
	cmd.Flags().StringVar(&imageFlag, "image", "", "Cover image URL of the external link")
	cmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Commentary to attach")
	cmd.Flags().StringSliceVar(&announceFlag, "announce", nil, "Also announce the shared post on (bluesky, mastodon, twitter, or all)")
	cmd.Flags().BoolVarP(&interactiveFlag, "interactive", "i", false, "Open the interactive share modal")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print actions without sharing")
	cmd.Flags().SortFlags = false
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")

	cmd.AddCommand(newFeedCommand())
	cmd.AddCommand(newCompletionCommand())

	return cmd
}

// session bundles what every command needs to talk to the API.
type session struct {
	cfg    *config.Config
	client *api.Client
	store  feedcache.Store
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !verbose {
		logutil.SetLevel(cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := api.New(api.Config{Endpoint: cfg.APIURL, Token: cfg.Token, Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}

	var store feedcache.Store = feedcache.Nop{}
	if cfg.CacheEnabled() {
		cache, err := feedcache.New(ctx, feedcache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.FeedTTL,
		})
		if err != nil {
			// sharing still works, the feed just is not cached
			logutil.Warnf("feed cache disabled: %v", err)
		} else {
			store = cache
		}
	}

	return &session{cfg: cfg, client: client, store: store}, nil
}

func (s *session) Close() {
	if c, ok := s.store.(*feedcache.Cache); ok {
		c.Close()
	}
}

func (s *session) resolveUser(ctx context.Context) (squad.User, error) {
	if s.cfg.UserID != "" {
		return squad.User{ID: s.cfg.UserID}, nil
	}
	u, err := s.client.Whoami(ctx)
	if err != nil {
		return squad.User{}, err
	}
	return *u, nil
}

func (s *session) resolveSquad(ctx context.Context, handle string) (squad.Squad, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		handle = s.cfg.Squad
	}
	if handle == "" {
		return squad.Squad{}, errors.New("squad is required (use --squad or SQUADPOST_SQUAD)")
	}
	sq, err := s.client.Squad(ctx, handle)
	if err != nil {
		return squad.Squad{}, err
	}
	return *sq, nil
}

func runShare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	interactive := interactiveFlag || (postFlag == "" && linkFlag == "" && isTerminal(cmd.InOrStdin()))

	message, err := resolveMessage(cmd, args, interactive)
	if err != nil {
		return err
	}
	if postFlag != "" && linkFlag != "" {
		return errors.New("provide either --post or --link, not both")
	}
	if !interactive && postFlag == "" && linkFlag == "" {
		return errors.New("nothing to share: use --post, --link or --interactive")
	}

	targets, err := normalizeTargets(announceFlag)
	if err != nil {
		return err
	}

	if dryRun {
		return printPlan(out, message, targets)
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.cfg.ValidateForShare(); err != nil {
		return err
	}

	user, err := sess.resolveUser(ctx)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	sq, err := sess.resolveSquad(ctx, squadFlag)
	if err != nil {
		return fmt.Errorf("resolve squad: %w", err)
	}
	post, link, err := resolveContent(ctx, sess.client)
	if err != nil {
		return err
	}

	posters, err := buildPosters(ctx, targets)
	if err != nil {
		return err
	}

	// Announcements made while the modal owns the terminal are printed
	// after it closes.
	announceOut := out
	var deferred bytes.Buffer
	if interactive {
		announceOut = &deferred
	}

	var notifier squad.Notifier = squad.NotifierFunc(func(msg string) { fmt.Fprintln(cmd.ErrOrStderr(), msg) })
	toaster := &tui.Toaster{}
	if interactive {
		notifier = toaster
	}

	var wf *squad.Workflow
	wf, err = squad.New(squad.Options{
		Squad:        sq,
		User:         user,
		Post:         post,
		ExternalLink: link,
		API:          sess.client,
		Invalidator:  sess.store,
		Notifier:     notifier,
		OnShared: func(shared *squad.Post) {
			if len(posters) == 0 {
				return
			}
			req := announce.FromShare(sq, shared, wf.Form().Snapshot().Commentary)
			if err := announce.Dispatch(ctx, posters, req, announceOut, false); err != nil {
				logutil.Errorf("announce: %v", err)
			}
		},
		OnClose: func(shared *squad.Post) {
			if shared == nil {
				logutil.Debugf("share cancelled")
			}
		},
	})
	if err != nil {
		return err
	}

	if interactive {
		shared, err := runModal(ctx, newModal(ctx, wf, sess.client, toaster, message))
		_, _ = io.Copy(out, &deferred)
		if err != nil {
			return err
		}
		if shared != nil {
			printShared(out, sq, shared)
		}
		return nil
	}

	shared, err := wf.Submit(ctx, message)
	if err != nil {
		return notified(err)
	}
	printShared(out, sq, shared)
	return nil
}

// notifiedError is an error the workflow already printed through its
// notifier.
type notifiedError struct {
	err error
}

func (e notifiedError) Error() string { return e.err.Error() }
func (e notifiedError) Unwrap() error { return e.err }

func notified(err error) error {
	var verr squad.ValidationError
	var nerr squad.NetworkError
	if errors.As(err, &verr) || errors.As(err, &nerr) {
		return notifiedError{err: err}
	}
	return err
}

// Reported reports whether err has already been shown to the user.
func Reported(err error) bool {
	var n notifiedError
	return errors.As(err, &n)
}

// newModal builds the share modal with the commentary given on the command
// line already in the comment box.
func newModal(ctx context.Context, wf *squad.Workflow, history tui.HistoryLoader, toaster *tui.Toaster, message string) tui.Model {
	if message != "" {
		wf.Form().SetCommentary(message)
	}
	return tui.New(ctx, wf, history, toaster)
}

func runModal(ctx context.Context, modal tui.Model) (*squad.Post, error) {
	if !verbose {
		logutil.SetOutput(io.Discard)
		defer logutil.SetOutput(os.Stderr)
	}

	final, err := tea.NewProgram(modal, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("share modal: %w", err)
	}
	m, ok := final.(tui.Model)
	if !ok {
		return nil, errors.New("share modal: unexpected model")
	}
	if m.Result() == nil && m.Err() != nil {
		return nil, m.Err()
	}
	return m.Result(), nil
}

// resolveContent turns --post / --link into what the workflow starts from.
// A bare link is looked up so the share can carry its title and image, and
// links the platform already knows are shared as the existing post.
func resolveContent(ctx context.Context, client *api.Client) (*squad.Post, *squad.ExternalLink, error) {
	if postFlag != "" {
		return &squad.Post{ID: strings.TrimSpace(postFlag)}, nil, nil
	}
	if linkFlag == "" {
		return nil, nil, nil
	}

	link := &squad.ExternalLink{
		URL:   strings.TrimSpace(linkFlag),
		Title: strings.TrimSpace(titleFlag),
		Image: strings.TrimSpace(imageFlag),
	}
	if link.Title != "" {
		return nil, link, nil
	}

	preview, existing, err := client.LinkPreview(ctx, link.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("preview link: %w", err)
	}
	if existing != nil {
		logutil.Debugf("link already known as post %s", existing.ID)
		return existing, nil, nil
	}
	if link.Image == "" {
		link.Image = preview.Image
	}
	link.Title = preview.Title
	return nil, link, nil
}

func resolveMessage(cmd *cobra.Command, args []string, interactive bool) (string, error) {
	var message string

	if messageFlag != "" {
		message = messageFlag
	}

	if len(args) > 0 {
		if message != "" {
			return "", errors.New("provide the commentary either as an argument or with --message, not both")
		}
		message = strings.Join(args, " ")
	}

	if message != "" || interactive {
		return strings.TrimSpace(message), nil
	}

	stdin := cmd.InOrStdin()
	if !isTerminal(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		message = strings.TrimSpace(string(data))
	}

	return message, nil
}

func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func normalizeTargets(values []string) ([]string, error) {
	result := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, raw := range values {
		raw = strings.TrimSpace(strings.ToLower(raw))
		if raw == "" {
			continue
		}
		if raw == "all" {
			return sortedTargets([]string{"twitter", "mastodon", "bluesky"}), nil
		}
		if _, ok := supportedTargets[raw]; !ok {
			return nil, fmt.Errorf("unsupported target %q", raw)
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		result = append(result, raw)
	}

	return sortedTargets(result), nil
}

func sortedTargets(targets []string) []string {
	out := append([]string(nil), targets...)
	sort.Strings(out)
	return out
}

func buildPosters(ctx context.Context, targets []string) ([]announce.Poster, error) {
	constructors := map[string]func(context.Context) (announce.Poster, error){
		"bluesky": func(ctx context.Context) (announce.Poster, error) {
			return bluesky.New(ctx, bluesky.Config{PDSURL: defaultBlueskyPDSURL})
		},
		"mastodon": mastodon.New,
		"twitter":  twitter.New,
	}

	posters := make([]announce.Poster, 0, len(targets))
	var errs []error
	for _, target := range targets {
		constructor, ok := constructors[target]
		if !ok {
			errs = append(errs, fmt.Errorf("target %q is not implemented", target))
			continue
		}
		poster, err := constructor(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
			continue
		}
		posters = append(posters, poster)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return posters, nil
}

func printPlan(out io.Writer, message string, targets []string) error {
	handle := strings.TrimPrefix(squadFlag, "@")
	if handle == "" {
		handle = os.Getenv("SQUADPOST_SQUAD")
	}
	switch {
	case postFlag != "":
		fmt.Fprintf(out, "[dry-run] would share post %s to @%s\n", postFlag, handle)
	case linkFlag != "":
		fmt.Fprintf(out, "[dry-run] would share link %s to @%s\n", linkFlag, handle)
	default:
		fmt.Fprintf(out, "[dry-run] would open the share modal for @%s\n", handle)
	}
	if message != "" {
		fmt.Fprintf(out, "[dry-run] commentary: %q\n", message)
	}
	for _, target := range targets {
		fmt.Fprintf(out, "[dry-run] would announce on %s\n", target)
	}
	return nil
}

func printShared(out io.Writer, sq squad.Squad, post *squad.Post) {
	if post == nil {
		return
	}
	if post.Permalink != "" {
		fmt.Fprintf(out, "shared to @%s: %s\n", sq.Handle, post.Permalink)
		return
	}
	fmt.Fprintf(out, "shared to @%s (post %s)\n", sq.Handle, post.ID)
}
