package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewReporterCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("indexing").(*LineReporter); !ok {
		t.Error("expected a LineReporter when CI is set")
	}
}

func TestLineReporterOutput(t *testing.T) {
	var buf bytes.Buffer
	r := &LineReporter{Task: "indexing posts", Out: &buf}
	r.Start(2)
	r.Update(1, "a.md")
	r.Update(2, "b.md")
	r.Finish()

	out := buf.String()
	for _, want := range []string{"indexing posts: starting (2 items)", "[1/2] a.md", "[2/2] b.md", "indexing posts: done in"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLineReporterThrottles(t *testing.T) {
	var buf bytes.Buffer
	r := &LineReporter{Task: "t", Out: &buf, Every: 10}
	r.Start(25)
	for i := 1; i <= 25; i++ {
		r.Update(i, "x")
	}

	out := buf.String()
	for _, want := range []string{"[10/25]", "[20/25]", "[25/25]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[11/25]") {
		t.Errorf("expected intermediate updates to be skipped:\n%s", out)
	}
}

func TestLineReporterUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	r := &LineReporter{Task: "fetching", Out: &buf}
	r.Start(0)
	r.Update(3, "page 3")

	if out := buf.String(); !strings.Contains(out, "fetching: starting\n") || !strings.Contains(out, "[3] page 3") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
