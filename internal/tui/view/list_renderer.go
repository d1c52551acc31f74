package view

import (
	"strings"

	"github.com/glabrego/readaloud-cli/internal/news"
	tuitheme "github.com/glabrego/readaloud-cli/internal/tui/theme"
)

type ListRenderInput struct {
	Articles []news.Article
	Start    int
	End      int
	Cursor   int
	Width    int
	// SpeakingKey marks the article currently being read, if any.
	SpeakingKey string
}

func RenderListBody(in ListRenderInput, th tuitheme.Theme) string {
	if len(in.Articles) == 0 || in.Start >= in.End || in.Start < 0 {
		return ""
	}
	if in.End > len(in.Articles) {
		in.End = len(in.Articles)
	}
	var b strings.Builder
	for i := in.Start; i < in.End; i++ {
		a := in.Articles[i]
		b.WriteString(RenderArticleLine(ArticleLineParams{
			Article:    a,
			Position:   i,
			Active:     i == in.Cursor,
			Speaking:   in.SpeakingKey != "" && a.Key() == in.SpeakingKey,
			Width:      in.Width,
			ShowNumber: true,
		}, th))
		b.WriteString("\n")
	}
	return b.String()
}
