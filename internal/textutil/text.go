// Package textutil turns backend article fragments into plain text suitable
// for display and speech.
package textutil

import (
	"html"
	"strings"

	"github.com/mattn/go-runewidth"
	nethtml "golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "section": true, "article": true, "tr": true,
}

// PlainText strips markup from raw, collapses whitespace and normalizes to NFC.
// Input without any tags is only unescaped and collapsed.
func PlainText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "<") {
		return Clean(html.UnescapeString(raw))
	}

	var b strings.Builder
	z := nethtml.NewTokenizer(strings.NewReader(raw))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case nethtml.ErrorToken:
			// io.EOF or a malformed fragment; keep what was read so far.
			return Clean(b.String())
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == nethtml.StartTagToken {
					skip++
				}
				continue
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case nethtml.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skip > 0 {
					skip--
				}
				continue
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case nethtml.TextToken:
			if skip > 0 {
				continue
			}
			b.Write(z.Text())
		}
	}
}

// Clean collapses runs of whitespace inside each line, drops empty lines and
// normalizes to NFC so decomposed Hangul reaches the speech engine composed.
func Clean(s string) string {
	s = norm.NFC.String(s)
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.Join(strings.Fields(line), " "); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

// Sentence joins s with a terminating period unless it already ends with
// sentence punctuation.
func Sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	if strings.HasSuffix(s, "。") || strings.HasSuffix(s, "…") {
		return s
	}
	return s + "."
}

// Wrap breaks text into lines of at most width terminal cells on word
// boundaries. Wide runes such as Hangul count as two cells.
func Wrap(text string, width int) []string {
	if width < 1 {
		return []string{text}
	}
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		words := strings.Fields(p)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line, lineWidth := "", 0
		for _, word := range words {
			w := runewidth.StringWidth(word)
			if line == "" {
				line, lineWidth = word, w
				continue
			}
			if lineWidth+1+w <= width {
				line += " " + word
				lineWidth += 1 + w
				continue
			}
			out = append(out, line)
			line, lineWidth = word, w
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
