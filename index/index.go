// Package index maintains a SQLite catalog of scanned data files: which
// files were decoded when, the run headers found in them, and per-run event
// tallies. It is the query side of a data archive; the decoder never writes
// here on its own.
package index

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scans (
			scan_id TEXT PRIMARY KEY,
			path TEXT,
			started TIMESTAMP,
			finished TIMESTAMP,
			records INT,
			packets INT,
			bytes BIGINT,
			error TEXT
		);
		CREATE TABLE IF NOT EXISTS runs (
			run_num INT,
			scan_id TEXT,
			sky_quality TEXT,
			observers TEXT,
			comment TEXT,
			nominal_mjd_start DOUBLE,
			nominal_mjd_end DOUBLE,
			FOREIGN KEY(scan_id) REFERENCES scans(scan_id)
		);
		CREATE TABLE IF NOT EXISTS run_summaries (
			run_num INT,
			scan_id TEXT,
			events INT,
			pedestals INT,
			first_gps_mjd DOUBLE,
			last_gps_mjd DOUBLE,
			FOREIGN KEY(scan_id) REFERENCES scans(scan_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// StartScan registers a new scan of path and returns its identifier.
func (db *DB) StartScan(path string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec("INSERT INTO scans (scan_id, path, started) VALUES (?, ?, ?)",
		id, path, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishScan records the outcome of a scan. scanErr may be nil.
func (db *DB) FinishScan(id string, records, packets int, bytes int64, scanErr error) error {
	errText := ""
	if scanErr != nil {
		errText = scanErr.Error()
	}
	_, err := db.Exec(
		"UPDATE scans SET finished = ?, records = ?, packets = ?, bytes = ?, error = ? WHERE scan_id = ?",
		time.Now().UTC(), records, packets, bytes, errText, id)
	return err
}

// InsertRun stores one run header found during a scan.
func (db *DB) InsertRun(scanID string, runNum uint32, skyQuality, observers, comment string, mjdStart, mjdEnd float64) error {
	_, err := db.Exec(
		"INSERT INTO runs (run_num, scan_id, sky_quality, observers, comment, nominal_mjd_start, nominal_mjd_end) VALUES (?, ?, ?, ?, ?, ?, ?)",
		runNum, scanID, skyQuality, observers, comment, mjdStart, mjdEnd)
	return err
}

// RunSummary tallies the events of one run within one file.
type RunSummary struct {
	RunNum      uint32
	Events      int
	Pedestals   int
	FirstGPSMJD float64
	LastGPSMJD  float64
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("run %d: %d events, %d pedestals, MJD %f..%f",
		s.RunNum, s.Events, s.Pedestals, s.FirstGPSMJD, s.LastGPSMJD)
}

// InsertSummary stores the event tallies of one run.
func (db *DB) InsertSummary(scanID string, s RunSummary) error {
	_, err := db.Exec(
		"INSERT INTO run_summaries (run_num, scan_id, events, pedestals, first_gps_mjd, last_gps_mjd) VALUES (?, ?, ?, ?, ?, ?)",
		s.RunNum, scanID, s.Events, s.Pedestals, s.FirstGPSMJD, s.LastGPSMJD)
	return err
}

// RunRow is one indexed run, joined with its tallies.
type RunRow struct {
	RunNum     uint32
	SkyQuality string
	Observers  string
	Events     int
	Pedestals  int
}

func (r *RunRow) String() string {
	return fmt.Sprintf("run %d [%s] %d events %d pedestals (%s)",
		r.RunNum, r.SkyQuality, r.Events, r.Pedestals, r.Observers)
}

// Runs lists the indexed runs, most recent run number first.
func (db *DB) Runs() ([]RunRow, error) {
	rows, err := db.Query(`
		SELECT r.run_num, r.sky_quality, r.observers,
		       COALESCE(s.events, 0), COALESCE(s.pedestals, 0)
		FROM runs r
		LEFT JOIN run_summaries s ON s.run_num = r.run_num AND s.scan_id = r.scan_id
		ORDER BY r.run_num DESC LIMIT 500`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunNum, &r.SkyQuality, &r.Observers, &r.Events, &r.Pedestals); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
