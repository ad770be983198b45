// Package render turns item bodies into HTML for the item view.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"

	"github.com/ziadkadry99/folio/internal/content"
)

// Renderer converts markdown to HTML. Raw HTML embedded in markdown is not
// emitted. HTML documents pass through unchanged apart from relative URLs.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a renderer using the given chroma style for code blocks.
func New(style string) *Renderer {
	if style == "" {
		style = "github"
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(linkRebaser{}, 100)),
		),
	)
	return &Renderer{md: md}
}

// Markdown converts markdown source to HTML.
func (r *Renderer) Markdown(src []byte) (template.HTML, error) {
	return r.markdown(src, "")
}

func (r *Renderer) markdown(src []byte, base string) (template.HTML, error) {
	pc := parser.NewContext()
	if base != "" {
		pc.Set(baseKey, base)
	}
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Document renders a content document. Relative links and image sources are
// resolved against base, the URL path of the section's items directory.
func (r *Renderer) Document(doc *content.Document, base string) (template.HTML, error) {
	dir := ""
	if base != "" {
		dir = path.Join(base, path.Dir(doc.Filename))
	}
	switch doc.Kind {
	case content.KindHTML:
		if dir == "" {
			return template.HTML(doc.Body), nil
		}
		return template.HTML(RewriteRelativeURLs(doc.Body, dir)), nil
	default:
		h, err := r.markdown([]byte(doc.Body), dir)
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", doc.Filename, err)
		}
		return h, nil
	}
}

var baseKey = parser.NewContextKey()

// linkRebaser resolves relative link and image destinations against the
// base stored in the parser context.
type linkRebaser struct{}

func (linkRebaser) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	base, _ := pc.Get(baseKey).(string)
	if base == "" {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			v.Destination = []byte(Resolve(base, string(v.Destination)))
		case *ast.Image:
			v.Destination = []byte(Resolve(base, string(v.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

// urlAttrs are the attributes whose values RewriteRelativeURLs resolves.
var urlAttrs = map[string]bool{"src": true, "href": true}

// RewriteRelativeURLs resolves relative src and href attributes of an HTML
// document against base. Tags without such attributes are copied verbatim.
func RewriteRelativeURLs(doc, base string) string {
	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// Keep whatever the tokenizer could not read.
				out.Write(z.Raw())
			}
			return out.String()
		}
		raw := append([]byte(nil), z.Raw()...)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}
		tok := z.Token()
		changed := false
		for i, a := range tok.Attr {
			if a.Namespace != "" || !urlAttrs[a.Key] {
				continue
			}
			if u := Resolve(base, a.Val); u != a.Val {
				tok.Attr[i].Val = u
				changed = true
			}
		}
		if changed {
			out.WriteString(tok.String())
		} else {
			out.Write(raw)
		}
	}
}

// Resolve returns u resolved against the directory base. Absolute paths,
// fragments, queries and URLs with a scheme or host are returned unchanged.
func Resolve(base, u string) string {
	ref, err := url.Parse(strings.TrimSpace(u))
	if err != nil || ref.IsAbs() || ref.Host != "" || ref.Path == "" || strings.HasPrefix(ref.Path, "/") {
		return u
	}
	dir := &url.URL{Path: "/" + strings.Trim(base, "/") + "/"}
	if dir.Path == "//" {
		dir.Path = "/"
	}
	return dir.ResolveReference(ref).String()
}

// ExtractTitle pulls the first "# " heading from markdown, or "" if there is none.
func ExtractTitle(src string) string {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
