package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/glabrego/readaloud-cli/internal/notify"
	"github.com/glabrego/readaloud-cli/internal/playback"
)

func newListenCommand(ctx *commandContext) *cobra.Command {
	var page int
	var all bool
	var article int

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Read a news page, one article or every page aloud",
		Long: "Read the news aloud and wait until playback ends.\n" +
			"Press Ctrl+C to stop; the audio player is stopped with the command.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && article > 0 {
				return errors.New("--all and --article cannot be combined")
			}
			out := cmd.OutOrStdout()
			progress := notify.Func(func(n notify.Notice) {
				if n.Level == notify.Info {
					fmt.Fprintln(out, n.Message)
				}
			})
			return ctx.withApp(cmd, progress, func(runCtx context.Context, rt *appRuntime) error {
				var (
					s   *playback.Session
					err error
				)
				switch {
				case all:
					fmt.Fprintf(out, "Reading %d pages...\n", rt.service.Pages())
					s, err = rt.service.ListenAll(runCtx)
				default:
					articles, loadErr := rt.service.LoadPage(runCtx, page)
					if loadErr != nil {
						return loadErr
					}
					if article > 0 {
						if article > len(articles) {
							return fmt.Errorf("page %d has %d articles", page, len(articles))
						}
						a := articles[article-1]
						fmt.Fprintf(out, "Reading %q...\n", a.Title)
						s, err = rt.service.ListenArticle(runCtx, a)
					} else {
						fmt.Fprintf(out, "Reading page %d (%d articles)...\n", page, len(articles))
						s, err = rt.service.ListenPage(runCtx, articles)
					}
				}
				if err != nil {
					return err
				}
				return waitSession(runCtx, rt.service.StopListening, s, out)
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Feed page to read")
	cmd.Flags().BoolVar(&all, "all", false, "Read every feed page in order")
	cmd.Flags().IntVarP(&article, "article", "a", 0, "Read only this article (1-based) of the page")
	return cmd
}

// waitSession blocks until s ends. Canceling ctx stops playback first.
func waitSession(ctx context.Context, stop func(), s *playback.Session, out io.Writer) error {
	select {
	case <-s.Done():
	case <-ctx.Done():
		stop()
		<-s.Done()
		fmt.Fprintln(out, "Stopped.")
		return nil
	}
	if err := s.Err(); err != nil {
		return err
	}
	if s.Stopped() {
		fmt.Fprintln(out, "Stopped.")
		return nil
	}
	fmt.Fprintln(out, "Done.")
	return nil
}
