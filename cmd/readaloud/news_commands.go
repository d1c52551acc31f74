package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/textutil"
)

func newBookmarksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bookmarks",
		Short: "List bookmarked articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				articles, err := rt.service.Bookmarks(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(articles) == 0 {
					fmt.Fprintln(out, "No bookmarks yet.")
					return nil
				}
				fmt.Fprintln(out, renderArticles(articles))
				return nil
			})
		},
	}
}

func newRankingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ranking",
		Short: "Show today's most read articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				ranked, err := rt.service.Ranking(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(ranked) == 0 {
					fmt.Fprintln(out, "No ranking available.")
					return nil
				}
				fmt.Fprintln(out, renderRanking(ranked))
				return nil
			})
		},
	}
}

func renderArticles(articles []news.Article) string {
	rows := make([][]string, 0, len(articles))
	for i, a := range articles {
		rows = append(rows, []string{strconv.Itoa(i + 1), cleanTitle(a.Title), a.URL})
	}
	return renderTable([]string{"#", "Title", "URL"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft})
}

func renderRanking(ranked []news.RankedArticle) string {
	rows := make([][]string, 0, len(ranked))
	for _, r := range ranked {
		rows = append(rows, []string{strconv.Itoa(r.Rank), cleanTitle(r.Title), r.Press})
	}
	return renderTable([]string{"Rank", "Title", "Press"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft})
}

func cleanTitle(raw string) string {
	title := strings.Join(strings.Fields(textutil.PlainText(raw)), " ")
	if title == "" {
		return "(untitled)"
	}
	return title
}
