package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/compliance"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/normalizer"
)

func TestNormalize(t *testing.T) {
	var buf bytes.Buffer
	res := &normalizer.Result{
		Summary: models.Summary{Processed: 3, Updated: 1, Unchanged: 1, Failed: 1},
		Outcomes: []models.Outcome{
			{Path: "a.md", Status: models.StatusUpdated},
			{Path: "b.md", Status: models.StatusUnchanged},
			{Path: "c.md", Status: models.StatusFailed, Error: "boom"},
		},
	}
	New(&buf).Normalize("/tree", res)
	out := buf.String()

	for _, want := range []string{
		"root: /tree",
		"updated   a.md",
		"failed    c.md (boom)",
		"processed 3 documents: 1 updated, 1 unchanged, 0 skipped",
		"succeeded: 2",
		"failed: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "b.md") {
		t.Errorf("unchanged documents should not be listed:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("non-terminal output should be plain:\n%q", out)
	}
}

func TestCompliance(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Compliance(&compliance.Report{
		Root: "/tree",
		Issues: []compliance.Issue{
			{Kind: compliance.KindDocumentMissing, Message: "missing required document docs/testing/testing-strategy.md"},
		},
	})
	out := buf.String()
	if !strings.Contains(out, "found 1 issues:") || !strings.Contains(out, "document_missing missing required document") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	New(&buf).Compliance(&compliance.Report{Root: "/tree"})
	if !strings.Contains(buf.String(), "structure check passed") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestRuns(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Runs([]models.Run{{
		ID:         4,
		Root:       "/tree",
		Mode:       "refresh",
		StartedAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 6, 1, 9, 0, 1, 0, time.UTC),
		Summary:    models.Summary{Processed: 2, Updated: 2},
	}})
	out := buf.String()
	if !strings.Contains(out, "#4") || !strings.Contains(out, "2025-06-01 09:00:01") || !strings.Contains(out, "processed 2, updated 2") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	New(&buf).Runs(nil)
	if !strings.Contains(buf.String(), "no recorded runs") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestOutcome(t *testing.T) {
	var buf bytes.Buffer
	pr := New(&buf)
	pr.Outcome(models.Outcome{Path: "a.md", Status: models.StatusUnchanged})
	pr.Outcome(models.Outcome{Path: "b.md", Status: models.StatusSkipped})
	if buf.Len() != 0 {
		t.Errorf("unchanged and skipped should print nothing, got %q", buf.String())
	}
	pr.Outcome(models.Outcome{Path: "c.md", Status: models.StatusUpdated})
	if got, want := buf.String(), "updated   c.md\n"; got != want {
		t.Errorf("got = %q, want %q", got, want)
	}
}

func TestOutcome_ShowsDigests(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Outcome(models.Outcome{
		Path:           "d.md",
		Status:         models.StatusUpdated,
		ChecksumBefore: "0123456789abcdef0123",
		ChecksumAfter:  "fedcba9876543210fedc",
	})
	if got, want := buf.String(), "updated   d.md 0123456789ab -> fedcba987654\n"; got != want {
		t.Errorf("got = %q, want %q", got, want)
	}

	// A dry run leaves both digests equal; nothing to show.
	buf.Reset()
	New(&buf).Outcome(models.Outcome{Path: "e.md", Status: models.StatusUpdated, ChecksumBefore: "aa", ChecksumAfter: "aa"})
	if got, want := buf.String(), "updated   e.md\n"; got != want {
		t.Errorf("got = %q, want %q", got, want)
	}
}
