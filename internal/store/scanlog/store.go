// Package scanlog keeps an audit trail of autonomous scan ticks so operators
// can see what the scanner looked at and why, long after the chat scrollback
// is gone.
package scanlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Record is one scan invocation.
type Record struct {
	ID         int64    `json:"id"`
	TraceID    string   `json:"trace_id"`
	Timestamp  int64    `json:"ts"`
	Candidates []string `json:"candidates,omitempty"`
	Report     string   `json:"report,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Store persists scan records in a standalone SQLite file.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS scans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_id TEXT NOT NULL,
    ts INTEGER NOT NULL,
    candidates_json TEXT,
    report TEXT,
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(ts DESC);
`

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("scanlog: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("scanlog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("scanlog: migrate: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// RecordScan appends one scan entry.
func (s *Store) RecordScan(traceID, report, errText string, candidates []string) error {
	if s == nil || s.db == nil {
		return nil
	}
	var candJSON sql.NullString
	if len(candidates) > 0 {
		raw, err := json.Marshal(candidates)
		if err == nil {
			candJSON = sql.NullString{String: string(raw), Valid: true}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO scans (trace_id, ts, candidates_json, report, error) VALUES (?, ?, ?, ?, ?)`,
		traceID, time.Now().UnixMilli(), candJSON, report, errText,
	)
	return err
}

// Recent returns the newest records first, capped at limit.
func (s *Store) Recent(limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, trace_id, ts, candidates_json, report, error FROM scans ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var candJSON, report, errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.TraceID, &rec.Timestamp, &candJSON, &report, &errText); err != nil {
			return nil, err
		}
		if candJSON.Valid && candJSON.String != "" {
			_ = json.Unmarshal([]byte(candJSON.String), &rec.Candidates)
		}
		rec.Report = report.String
		rec.Error = errText.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
