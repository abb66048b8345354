package cmd

import (
	"fmt"
	"io"

	"github.com/blacktop/squadpost/internal/feedcache"
	"github.com/blacktop/squadpost/internal/squad"
	"github.com/spf13/cobra"
)

var (
	feedSquadFlag string
	feedRefresh   bool
)

func newFeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List the latest posts of a squad",
		Args:  cobra.NoArgs,
		RunE:  runFeed,
		Example: `  squadpost feed --squad gophers
  squadpost feed -s gophers --refresh`,
	}

	cmd.Flags().StringVarP(&feedSquadFlag, "squad", "s", "", "Squad handle (default $SQUADPOST_SQUAD)")
	cmd.Flags().BoolVar(&feedRefresh, "refresh", false, "Drop the cached feed before reading")

	return cmd
}

func runFeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	user, err := sess.resolveUser(ctx)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	sq, err := sess.resolveSquad(ctx, feedSquadFlag)
	if err != nil {
		return fmt.Errorf("resolve squad: %w", err)
	}

	if feedRefresh {
		if err := sess.store.Invalidate(ctx, squad.FeedKey{Name: squad.SourceFeed, UserID: user.ID}); err != nil {
			return fmt.Errorf("refresh feed: %w", err)
		}
	}

	posts, err := feedcache.NewReader(sess.store, sess.client, sess.cfg.FeedSize).Read(ctx, user, sq.ID)
	if err != nil {
		return fmt.Errorf("read feed: %w", err)
	}

	printFeed(cmd.OutOrStdout(), sq, posts)
	return nil
}

func printFeed(out io.Writer, sq squad.Squad, posts []squad.Post) {
	if len(posts) == 0 {
		fmt.Fprintf(out, "@%s has no posts yet\n", sq.Handle)
		return
	}
	fmt.Fprintf(out, "%s (@%s)\n", sq.Name, sq.Handle)
	for _, p := range posts {
		fmt.Fprintf(out, "  %s\n", p.Title)
		if p.Permalink != "" {
			fmt.Fprintf(out, "    %s\n", p.Permalink)
		}
	}
}
