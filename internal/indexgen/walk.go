// Package indexgen builds the JSON index documents the site reads: the posts
// index, the songs index and the grid indexes for projects and music.
package indexgen

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are path patterns never indexed.
var DefaultExcludes = []string{
	"**/.*",
	"**/.*/**",
	"**/_*",
	"**/_*/**",
	"**/node_modules/**",
	"**/*.draft.md",
}

// Find returns the sorted slash-separated paths in fsys matching include and
// none of the exclude patterns. DefaultExcludes always apply.
func Find(fsys fs.FS, include string, exclude []string) ([]string, error) {
	matches, err := doublestar.Glob(fsys, include, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", include, err)
	}

	patterns := append(append([]string(nil), DefaultExcludes...), exclude...)
	out := matches[:0]
	for _, m := range matches {
		if matchesAny(m, patterns) {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// matchesAny checks the path, and then just its base name, against patterns.
func matchesAny(p string, patterns []string) bool {
	base := path.Base(p)
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(pattern, "./")
		if ok, err := doublestar.Match(pattern, p); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
