package content

import (
	"io"
	"strings"

	stripMarkdown "github.com/writeas/go-strip-markdown"
	"golang.org/x/net/html"
)

// DefaultPreviewWords is the preview length used by list and grid views.
const DefaultPreviewWords = 30

// Preview returns the first n words of the body's plain text followed by an
// ellipsis. HTML tags and then markdown syntax are removed first.
func Preview(body string, n int) string {
	words := strings.Fields(stripMarkdown.Strip(plainText(body)))
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ") + "..."
}

// plainText returns the text content of an HTML fragment. Script and style
// bodies are dropped and every tag counts as a word break.
func plainText(s string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				sb.Write(z.Raw())
			}
			return sb.String()
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(string(name)) {
				skip++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(string(name)) && skip > 0 {
				skip--
			}
			sb.WriteByte(' ')
		default:
			sb.WriteByte(' ')
		}
	}
}

func isRawTextTag(name string) bool {
	return name == "script" || name == "style"
}

// EnsurePreview caches the preview of body on the item unless one is cached
// already, and returns the cached text.
func EnsurePreview(it *Item, body string) string {
	if !it.HasPreview() {
		it.SetPreview(Preview(body, DefaultPreviewWords))
	}
	return it.Preview()
}
