package history

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM run_documents`).Scan(&count); err != nil {
		t.Fatalf("run_documents table missing: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := testDB(t)
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	id, err := db.BeginRun("/tree", "refresh", started)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	outcomes := []models.Outcome{
		{Path: "a.md", Status: models.StatusUpdated, Metadata: models.Metadata{Type: "architecture", Version: "1.0.0"}, ChecksumBefore: "x", ChecksumAfter: "y"},
		{Path: "b.md", Status: models.StatusFailed, Error: "unreadable"},
	}
	for _, o := range outcomes {
		if err := db.RecordOutcome(id, o); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
	}
	sum := models.Summary{Processed: 2, Updated: 1, Failed: 1, DryRun: true}
	if err := db.FinishRun(id, started.Add(time.Second), sum); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, docs, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Root != "/tree" || run.Mode != "refresh" || run.Summary != sum {
		t.Errorf("run = %+v", run)
	}
	if !run.StartedAt.Equal(started) || !run.FinishedAt.Equal(started.Add(time.Second)) {
		t.Errorf("times = %v / %v", run.StartedAt, run.FinishedAt)
	}
	if len(docs) != 2 || docs[0].Path != "a.md" || docs[0].Metadata.Type != "architecture" || docs[1].Error != "unreadable" {
		t.Errorf("documents = %+v", docs)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := db.BeginRun("/tree", "refresh", now); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID <= runs[1].ID {
		t.Errorf("runs = %+v", runs)
	}
	if !runs[0].FinishedAt.IsZero() {
		t.Errorf("unfinished run has finished time %v", runs[0].FinishedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := testDB(t)
	if _, _, err := db.GetRun(42); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := db.FinishRun(42, time.Now(), models.Summary{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("FinishRun err = %v, want ErrNotFound", err)
	}
}
