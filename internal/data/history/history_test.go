package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_SaveAndLoadRuns(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first := Run{ID: "run-1", Source: "a.bind", StartedAt: base, Declarations: 2, Failures: 1}
	results := []Result{
		{Line: 1, Kind: "call", Text: "foo()", Success: true, Index: -1},
		{Line: 2, Kind: "inherit", Text: "IFoo, IFoo", Message: "'IFoo' cannot be inherited more than once", Index: 6},
	}
	if err := store.SaveRun(first, results); err != nil {
		t.Fatalf("save first run: %v", err)
	}
	second := Run{Source: "b.bind", StartedAt: base.Add(time.Hour), Declarations: 1}
	if err := store.SaveRun(second, nil); err != nil {
		t.Fatalf("save second run: %v", err)
	}

	runs, err := store.LoadRuns(0)
	if err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Source != "b.bind" || runs[0].ID == "" {
		t.Fatalf("expected newest run first with generated id, got %+v", runs[0])
	}
	if !runs[1].StartedAt.Equal(base) || runs[1].Failures != 1 {
		t.Fatalf("unexpected first run: %+v", runs[1])
	}

	limited, err := store.LoadRuns(1)
	if err != nil {
		t.Fatalf("load limited runs: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}

	got, err := store.LoadResults("run-1")
	if err != nil {
		t.Fatalf("load results: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if !got[0].Success || got[0].Index != -1 {
		t.Fatalf("unexpected success row: %+v", got[0])
	}
	if got[1].Success || got[1].Index != 6 || got[1].RunID != "run-1" {
		t.Fatalf("unexpected failure row: %+v", got[1])
	}
}

func TestStore_SaveRunRollsBackOnDuplicate(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	dup := []Result{{Line: 1, Kind: "call", Text: "a()"}, {Line: 1, Kind: "call", Text: "b()"}}
	if err := store.SaveRun(Run{ID: "r"}, dup); err == nil {
		t.Fatal("expected duplicate result key to fail")
	}
	runs, err := store.LoadRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected rollback to drop the run, got %+v", runs)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Run{{Declarations: 3, Failures: 1}, {Declarations: 1, Failures: 0}})
	if s.Runs != 2 || s.Declarations != 4 || s.Failures != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.FailureRate != 25 {
		t.Fatalf("expected failure rate 25, got %v", s.FailureRate)
	}
	if empty := Summarize(nil); empty.FailureRate != 0 {
		t.Fatalf("expected zero rate for no runs, got %v", empty.FailureRate)
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
	if IsCorruptError(nil) {
		t.Fatal("nil is not corrupt")
	}
}
