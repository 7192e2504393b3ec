// Package db is the cycle journal: a SQLite record of bridge sessions, the
// command frames sent in each, and the updates the encoder rejected.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/nao-lola/internal/monitoring"
)

type DB struct {
	*sql.DB
	path string
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// OpenDB opens (creating if needed) the journal at path and applies any
// pending schema migrations.
func OpenDB(path string) (*DB, error) {
	db, err := openJournal(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openJournal opens the database without touching the schema.
func openJournal(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// Session is one connection to the robot.
type Session struct {
	ID        string
	Transport string
	Address   string
	FrameSize int
	StartedAt time.Time
	EndedAt   time.Time
	EndReason string
}

// FrameRecord is one transmitted command frame.
type FrameRecord struct {
	SessionID string
	Cycle     uint64
	Groups    []string
	Payload   []byte
	SentAt    time.Time
}

// RejectedUpdate is one update the encoder refused to apply.
type RejectedUpdate struct {
	SessionID  string
	Topic      string
	Kind       string
	Message    string
	RejectedAt time.Time
}

func (db *DB) RecordSession(s Session) error {
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, transport, address, frame_size, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Transport, s.Address, s.FrameSize, s.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", s.ID, err)
	}
	return nil
}

// EndSession stamps the end time and the reason the connection was lost.
func (db *DB) EndSession(id string, at time.Time, reason string) error {
	res, err := db.Exec(
		`UPDATE sessions SET ended_at = ?, end_reason = ? WHERE session_id = ?`,
		at.UnixNano(), reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

func (db *DB) RecordFrame(f FrameRecord) error {
	_, err := db.Exec(
		`INSERT INTO command_frames (session_id, cycle, group_keys, payload, sent_at)
		VALUES (?, ?, ?, ?, ?)`,
		f.SessionID, int64(f.Cycle), strings.Join(f.Groups, ","), f.Payload, f.SentAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record frame %d: %w", f.Cycle, err)
	}
	return nil
}

func (db *DB) RecordRejected(r RejectedUpdate) error {
	_, err := db.Exec(
		`INSERT INTO rejected_updates (session_id, topic, kind, message, rejected_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.SessionID, r.Topic, r.Kind, r.Message, r.RejectedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record rejected update on %s: %w", r.Topic, err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (db *DB) Sessions(limit int) ([]Session, error) {
	rows, err := db.Query(
		`SELECT session_id, transport, address, frame_size, started_at,
			COALESCE(ended_at, 0), COALESCE(end_reason, '')
		FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var started, ended int64
		if err := rows.Scan(&s.ID, &s.Transport, &s.Address, &s.FrameSize, &started, &ended, &s.EndReason); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(0, started)
		if ended != 0 {
			s.EndedAt = time.Unix(0, ended)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecentFrames returns up to limit frames of a session, latest cycle first.
func (db *DB) RecentFrames(sessionID string, limit int) ([]FrameRecord, error) {
	rows, err := db.Query(
		`SELECT cycle, group_keys, payload, sent_at FROM command_frames
		WHERE session_id = ? ORDER BY cycle DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		f := FrameRecord{SessionID: sessionID}
		var cycle, sent int64
		var keys string
		if err := rows.Scan(&cycle, &keys, &f.Payload, &sent); err != nil {
			return nil, err
		}
		f.Cycle = uint64(cycle)
		if keys != "" {
			f.Groups = strings.Split(keys, ",")
		}
		f.SentAt = time.Unix(0, sent)
		out = append(out, f)
	}
	return out, rows.Err()
}

// RejectedCounts returns the number of rejected updates per error kind.
func (db *DB) RejectedCounts() (map[string]int, error) {
	rows, err := db.Query(`SELECT kind, COUNT(*) FROM rejected_updates GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
		return
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "LoLA cycle journal",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the journal now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := fmt.Sprintf("journal-backup-%d.db", time.Now().Unix())
		backupPath := filepath.Join(os.TempDir(), name)
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			if err := os.Remove(backupPath); err != nil {
				monitoring.Logf("failed to remove backup file: %v", err)
			}
		}()

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer backupFile.Close()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			monitoring.Logf("failed to stream backup: %v", err)
		}
	}))
}
