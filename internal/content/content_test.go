package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/fstest"
)

const sampleIndex = `[
  {"filename": "a.md", "title": "A", "date": "2025-01-01", "categories": ["X", " x ", "Travel"]},
  {"filename": "b.md", "title": "B", "date": "2025-02-01", "category": "Y"},
  {"filename": "c.md", "date": "not a date", "categories": "life, Travel"},
  {"filename": "d.md", "title": "D", "date": "2024-12-31 22:15:00"}
]`

func mustIndex(t *testing.T, doc string) *Index {
	t.Helper()
	idx, err := ReadIndex(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	return idx
}

func filenames(items []*Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Filename
	}
	return out
}

func TestDecodeNormalizesCategories(t *testing.T) {
	idx := mustIndex(t, sampleIndex)

	a, _ := idx.Lookup("a.md")
	if got := strings.Join(a.Categories, ","); got != "travel,x" {
		t.Errorf("a.md categories = %q, want %q", got, "travel,x")
	}
	b, _ := idx.Lookup("b.md")
	if got := strings.Join(b.Categories, ","); got != "y" {
		t.Errorf("b.md categories = %q, want %q", got, "y")
	}
	c, _ := idx.Lookup("c.md")
	if got := strings.Join(c.Categories, ","); got != "life,travel" {
		t.Errorf("c.md categories = %q, want %q", got, "life,travel")
	}
	if !c.HasCategory("TRAVEL") {
		t.Error("expected case-insensitive category match")
	}
	if c.Title != DefaultTitle {
		t.Errorf("missing title should default to %q, got %q", DefaultTitle, c.Title)
	}
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `[{"filename": "a.md"`},
		{"not an array", `{"filename": "a.md"}`},
		{"missing filename", `[{"title": "x"}]`},
		{"bad categories", `[{"filename": "a.md", "categories": 5}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadIndex(strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestDuplicateFilename(t *testing.T) {
	_, err := ReadIndex(strings.NewReader(`[{"filename":"a.md"},{"filename":"a.md"}]`))
	if !errors.Is(err, ErrDuplicateFilename) {
		t.Fatalf("expected ErrDuplicateFilename, got %v", err)
	}
}

func TestSortedKeepsFetchOrder(t *testing.T) {
	idx := mustIndex(t, sampleIndex)

	if got := strings.Join(filenames(idx.Sorted()), ","); got != "b.md,a.md,d.md,c.md" {
		t.Errorf("Sorted() = %s", got)
	}
	if got := strings.Join(filenames(idx.Items()), ","); got != "a.md,b.md,c.md,d.md" {
		t.Errorf("Items() lost fetch order: %s", got)
	}
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md"} {
		if _, ok := idx.Lookup(name); !ok {
			t.Errorf("Lookup(%s) failed after sorting", name)
		}
	}
}

func TestSortUnparsableDatesLast(t *testing.T) {
	items := []*Item{
		{Filename: "none.md"},
		{Filename: "old.md", Date: "1950-06-01"},
		{Filename: "junk.md", Date: "whenever"},
		{Filename: "new.md", Date: "2025-06-01"},
	}
	got := strings.Join(filenames(SortByDate(items)), ",")
	if got != "new.md,old.md,none.md,junk.md" {
		t.Errorf("SortByDate = %s", got)
	}
}

func TestCategoriesAndNeighbors(t *testing.T) {
	idx := mustIndex(t, sampleIndex)

	if got := strings.Join(idx.Categories(), ","); got != "life,travel,x,y" {
		t.Errorf("Categories() = %s", got)
	}

	prev, next := idx.Neighbors("a.md")
	if prev == nil || prev.Filename != "b.md" {
		t.Errorf("prev of a.md = %v, want b.md", prev)
	}
	if next == nil || next.Filename != "d.md" {
		t.Errorf("next of a.md = %v, want d.md", next)
	}
	prev, _ = idx.Neighbors("b.md")
	if prev != nil {
		t.Errorf("newest item should have no prev, got %s", prev.Filename)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want string
	}{
		{"2025-01-01", true, "2025-01-01T00:00:00Z"},
		{"2025-09-17 10:30:00", true, "2025-09-17T10:30:00Z"},
		{"2025-09-17T10:30:00Z", true, "2025-09-17T10:30:00Z"},
		{"", false, ""},
		{"someday", false, ""},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && FormatTimestamp(got) != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, FormatTimestamp(got), tt.want)
		}
		if !ok && !got.IsZero() {
			t.Errorf("ParseDate(%q) should return the zero time", tt.in)
		}
	}
}

type countingSource struct {
	opens int
	body  string
	err   error
}

func (s *countingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.opens++
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func (s *countingSource) String() string { return "test" }

func TestLoaderLoadsOnce(t *testing.T) {
	src := &countingSource{body: sampleIndex}
	l := NewLoader(src)

	if _, err := l.Index(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded before Load, got %v", err)
	}

	idx, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Len() != 4 {
		t.Errorf("expected 4 items, got %d", idx.Len())
	}
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if src.opens != 1 {
		t.Errorf("expected a single fetch, got %d", src.opens)
	}

	select {
	case <-l.Ready():
	default:
		t.Fatal("Ready should be closed after Load")
	}
}

func TestLoaderFailureLeavesNoIndex(t *testing.T) {
	tests := []struct {
		name string
		src  *countingSource
	}{
		{"network", &countingSource{err: fmt.Errorf("connection refused")}},
		{"malformed", &countingSource{body: `[{"filename":`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(tt.src)
			idx, err := l.Load(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if idx != nil {
				t.Error("failed load must not expose a partial index")
			}
			l.Load(context.Background())
			if tt.src.opens != 1 {
				t.Errorf("loader must not retry, opened %d times", tt.src.opens)
			}
			if _, werr := l.Wait(context.Background()); werr == nil {
				t.Error("Wait should report the load error")
			}
		})
	}
}

func TestFileSource(t *testing.T) {
	fsys := fstest.MapFS{"posts/index.json": {Data: []byte(sampleIndex)}}
	idx, err := NewLoader(FileSource{FS: fsys, Path: "posts/index.json"}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Len() != 4 {
		t.Errorf("expected 4 items, got %d", idx.Len())
	}
}

func TestRepositoryRead(t *testing.T) {
	fsys := fstest.MapFS{
		"posts/hello.md":       {Data: []byte("---\ntitle: Hello\ndate: 2025-01-01\n---\n# Hello\n\nBody text.\n")},
		"posts/plain.md":       {Data: []byte("Just text.")},
		"projects/widget.html": {Data: []byte("<p>Widget</p>")},
	}
	repo := NewRepository(fsys, "posts")
	ctx := context.Background()

	doc, err := repo.Read(ctx, "hello.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if strings.Contains(doc.Body, "title:") {
		t.Errorf("metadata block was not stripped: %q", doc.Body)
	}
	if !strings.Contains(doc.Body, "Body text.") {
		t.Errorf("body lost: %q", doc.Body)
	}
	if doc.Meta["title"] != "Hello" {
		t.Errorf("meta title = %v", doc.Meta["title"])
	}

	doc, err = repo.Read(ctx, "plain.md")
	if err != nil || doc.Body != "Just text." {
		t.Errorf("plain read = %+v, %v", doc, err)
	}

	html, err := NewRepository(fsys, "projects").Read(ctx, "widget.html")
	if err != nil {
		t.Fatalf("Read html: %v", err)
	}
	if html.Kind != KindHTML {
		t.Errorf("expected html kind, got %s", html.Kind)
	}

	if _, err := repo.Read(ctx, "missing.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	for _, bad := range []string{"../projects/widget.html", "/etc/passwd", "", `..\x`} {
		if _, err := repo.Read(ctx, bad); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Read(%q): expected ErrInvalidPath, got %v", bad, err)
		}
	}
}

func TestPreview(t *testing.T) {
	var words []string
	for i := 1; i <= 40; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	got := Preview(strings.Join(words, " "), DefaultPreviewWords)
	if want := strings.Join(words[:30], " ") + "..."; got != want {
		t.Errorf("Preview = %q, want %q", got, want)
	}

	md := Preview("Some **bold** text with <em>markup</em>.", 30)
	if strings.Contains(md, "**") || strings.Contains(md, "<em>") {
		t.Errorf("markup leaked into preview: %q", md)
	}
	if !strings.HasSuffix(md, "...") {
		t.Errorf("preview should end with an ellipsis: %q", md)
	}
}

func TestLoadPreviewCaches(t *testing.T) {
	fsys := fstest.MapFS{"posts/a.md": {Data: []byte("alpha beta gamma")}}
	repo := NewRepository(fsys, "posts")
	it := &Item{Filename: "a.md"}

	if err := repo.LoadPreview(context.Background(), it); err != nil {
		t.Fatalf("LoadPreview: %v", err)
	}
	if it.Preview() != "alpha beta gamma..." {
		t.Errorf("preview = %q", it.Preview())
	}

	delete(fsys, "posts/a.md")
	if err := repo.LoadPreview(context.Background(), it); err != nil {
		t.Errorf("cached preview should not be re-read: %v", err)
	}

	clone := it.Clone()
	clone.IsUnread = true
	if it.IsUnread {
		t.Error("annotating a clone must not touch the original")
	}
	if clone.Preview() != it.Preview() {
		t.Error("clone should carry the cached preview")
	}
}

func TestEnsurePreviewKeepsFirst(t *testing.T) {
	it := &Item{Filename: "a.md"}
	if got := EnsurePreview(it, "first body"); got != "first body..." {
		t.Errorf("EnsurePreview = %q", got)
	}
	if got := EnsurePreview(it, "second body"); got != "first body..." {
		t.Errorf("expected the cached preview, got %q", got)
	}
}

func TestPreviewStripsHTML(t *testing.T) {
	got := Preview(`<div class='intro'>Hello <B>world</B></div><script>var x = 1;</script><style>p{}</style>Fish &amp; chips`, 30)
	if want := "Hello world Fish & chips..."; got != want {
		t.Errorf("Preview = %q, want %q", got, want)
	}
}
