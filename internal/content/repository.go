package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
)

// ErrInvalidPath is returned for filenames that would escape the items directory.
var ErrInvalidPath = errors.New("invalid content path")

// Kind is the format of a content resource.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
)

// Document is a content resource with its metadata block removed.
type Document struct {
	Filename string
	Kind     Kind
	Body     string
	Meta     map[string]interface{}
}

// Repository reads content resources located at <Dir>/<filename>.
type Repository struct {
	FS  fs.FS
	Dir string
}

// NewRepository creates a repository rooted at dir inside fsys.
func NewRepository(fsys fs.FS, dir string) *Repository {
	return &Repository{FS: fsys, Dir: dir}
}

// resolve joins the filename onto Dir, rejecting anything that leaves it.
func (r *Repository) resolve(filename string) (string, error) {
	if filename == "" || strings.Contains(filename, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, filename)
	}
	clean := path.Clean(filename)
	if clean == "." || strings.HasPrefix(clean, "../") || clean == ".." || path.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, filename)
	}
	p := path.Join(r.Dir, clean)
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, filename)
	}
	return p, nil
}

// Read loads a content resource and strips its leading metadata block.
func (r *Repository) Read(ctx context.Context, filename string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := r.resolve(filename)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(r.FS, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	body, meta := StripFrontmatter(data)
	return &Document{
		Filename: filename,
		Kind:     KindOf(filename),
		Body:     string(body),
		Meta:     meta,
	}, nil
}

// LoadPreview computes and caches the item's preview if it has none yet.
func (r *Repository) LoadPreview(ctx context.Context, it *Item) error {
	if it.HasPreview() {
		return nil
	}
	doc, err := r.Read(ctx, it.Filename)
	if err != nil {
		return err
	}
	EnsurePreview(it, doc.Body)
	return nil
}

// KindOf infers the content kind from the file extension.
func KindOf(filename string) Kind {
	switch strings.ToLower(path.Ext(filename)) {
	case ".html", ".htm":
		return KindHTML
	default:
		return KindMarkdown
	}
}

// StripFrontmatter removes a leading metadata block delimited by "---" lines.
// Content without one, or with one that fails to parse, is returned whole.
func StripFrontmatter(data []byte) ([]byte, map[string]interface{}) {
	meta := map[string]interface{}{}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(data, []byte("---")) {
		return data, meta
	}
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return data, map[string]interface{}{}
	}
	return body, meta
}
