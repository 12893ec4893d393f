package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/normalizer"
	"github.com/starford/ansuz/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type outcomeLog struct {
	mu  sync.Mutex
	all []models.Outcome
}

func (l *outcomeLog) add(o models.Outcome) {
	l.mu.Lock()
	l.all = append(l.all, o)
	l.mu.Unlock()
}

func (l *outcomeLog) count(path string, status models.Status) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, o := range l.all {
		if o.Path == path && o.Status == status {
			n++
		}
	}
	return n
}

func startWatcher(t *testing.T) (string, *outcomeLog) {
	t.Helper()
	root, store := testutil.TestTree(t, nil)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	log := &outcomeLog{}
	n := normalizer.New(store, normalizer.Config{
		Project: normalizer.Project{Name: "Acme", Banner: "Docs", Author: "Acme Team", URL: "https://example.com"},
	}, normalizer.WithLogger(logger), normalizer.WithObserver(log.add))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, n, store, 50*time.Millisecond, logger)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return root, log
}

func TestWatch_NewDocumentStamped(t *testing.T) {
	root, log := startWatcher(t)

	testutil.WriteFile(t, root, "guide.md", "# Guide\n\nBody\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		data, _ := os.ReadFile(filepath.Join(root, "guide.md"))
		return strings.Contains(string(data), "@url https://example.com")
	}, "document not stamped by watcher")

	// The watcher sees its own rewrite and finds nothing left to change.
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.count("guide.md", models.StatusUnchanged) > 0
	}, "rewrite did not converge")
	if n := log.count("guide.md", models.StatusUpdated); n != 1 {
		t.Errorf("updated %d times, want 1", n)
	}
}

func TestWatch_NewDirectory(t *testing.T) {
	root, _ := startWatcher(t)

	if err := os.MkdirAll(filepath.Join(root, "api", "v1"), 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, root, "api/v1/ref.md", "# Ref\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		data, _ := os.ReadFile(filepath.Join(root, "api", "v1", "ref.md"))
		return strings.Contains(string(data), "@type api-reference")
	}, "document in new directory not stamped")
}

func TestWatch_IgnoresExcludedAndNonDocuments(t *testing.T) {
	root, log := startWatcher(t)

	testutil.WriteFile(t, root, "node_modules/pkg/readme.md", "# Dep\n")
	testutil.WriteFile(t, root, "notes.txt", "# Not a doc\n")
	time.Sleep(500 * time.Millisecond)

	if got := testutil.ReadFile(t, root, "node_modules/pkg/readme.md"); got != "# Dep\n" {
		t.Errorf("excluded document modified: %q", got)
	}
	if got := testutil.ReadFile(t, root, "notes.txt"); got != "# Not a doc\n" {
		t.Errorf("non-document modified: %q", got)
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.all) != 0 {
		t.Errorf("unexpected outcomes: %+v", log.all)
	}
}
