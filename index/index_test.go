package index

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestScanLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.StartScan("gt012345.fz.bz2")
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if id == "" {
		t.Fatal("scan id must not be empty")
	}

	id2, err := db.StartScan("gt012346.fz.bz2")
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if id == id2 {
		t.Error("scan ids must be unique")
	}

	if err := db.FinishScan(id, 100, 10, 36000, nil); err != nil {
		t.Fatalf("FinishScan: %v", err)
	}
	if err := db.FinishScan(id2, 5, 1, 360, errors.New("truncated")); err != nil {
		t.Fatalf("FinishScan with error: %v", err)
	}
}

func TestRunsJoin(t *testing.T) {
	db := openTestDB(t)

	id, err := db.StartScan("gt012345.fz.bz2")
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if err := db.InsertRun(id, 12345, "A", "ktkc", "clear skies", 51000.0, 51000.02); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if err := db.InsertSummary(id, RunSummary{
		RunNum: 12345, Events: 5000, Pedestals: 120,
		FirstGPSMJD: 51000.001, LastGPSMJD: 51000.019,
	}); err != nil {
		t.Fatalf("InsertSummary: %v", err)
	}
	// A run header with no events yet.
	if err := db.InsertRun(id, 12346, "B", "ktkc", "", 51001.0, 51001.02); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Most recent run number first.
	if runs[0].RunNum != 12346 || runs[0].Events != 0 {
		t.Errorf("runs[0] = %+v", runs[0])
	}
	if runs[1].RunNum != 12345 || runs[1].Events != 5000 || runs[1].Pedestals != 120 {
		t.Errorf("runs[1] = %+v", runs[1])
	}
	if runs[1].SkyQuality != "A" {
		t.Errorf("sky = %q", runs[1].SkyQuality)
	}
}
