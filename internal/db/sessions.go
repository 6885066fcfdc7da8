package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/teleop.bridge/internal/monitor"
)

// ErrSessionNotFound is returned for an unknown or already ended session.
var ErrSessionNotFound = errors.New("session not found")

// Session is one run of the bridge against a robot.
type Session struct {
	ID         uuid.UUID  `json:"session_id"`
	RobotType  string     `json:"robot_type"`
	Translator string     `json:"translator"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// StartSession records the start of a bridge run and returns its ID.
func (db *DB) StartSession(robotType, translator string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO bridge_sessions (session_id, robot_type, translator, started_at) VALUES (?, ?, ?, ?)`,
		id.String(), robotType, translator, time.Now().UnixMilli(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// EndSession marks a running session as ended.
func (db *DB) EndSession(id uuid.UUID) error {
	res, err := db.Exec(
		`UPDATE bridge_sessions SET ended_at = ? WHERE session_id = ? AND ended_at IS NULL`,
		time.Now().UnixMilli(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (db *DB) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT session_id, robot_type, translator, started_at, ended_at
		 FROM bridge_sessions ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s       Session
			rawID   string
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&rawID, &s.RobotType, &s.Translator, &started, &ended); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", rawID, err)
		}
		s.StartedAt = time.UnixMilli(started)
		if ended.Valid {
			t := time.UnixMilli(ended.Int64)
			s.EndedAt = &t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// RecordStats stores one stats interval for a session.
func (db *DB) RecordStats(id uuid.UUID, snap monitor.StatsSnapshot) error {
	_, err := db.Exec(
		`INSERT INTO bridge_stats (
			session_id, ts, interval_ms, packets, bytes, translated,
			invalid_length, unexpected_type, malformed, forward_dropped,
			p50_us, p99_us
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), snap.Timestamp.UnixMilli(), snap.Interval.Milliseconds(),
		snap.Packets, snap.Bytes, snap.Translated,
		snap.InvalidLength, snap.UnexpectedType, snap.Malformed, snap.ForwardDropped,
		durationToMicros(snap.P50), durationToMicros(snap.P99),
	)
	if err != nil {
		return fmt.Errorf("failed to record stats: %w", err)
	}
	return nil
}

// RecentStats returns up to limit intervals for a session, oldest first.
func (db *DB) RecentStats(id uuid.UUID, limit int) ([]monitor.StatsSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT ts, interval_ms, packets, bytes, translated,
			invalid_length, unexpected_type, malformed, forward_dropped,
			p50_us, p99_us
		 FROM (
			SELECT rowid AS rid, * FROM bridge_stats
			WHERE session_id = ? ORDER BY ts DESC, rowid DESC LIMIT ?
		 ) ORDER BY ts ASC, rid ASC`,
		id.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []monitor.StatsSnapshot
	for rows.Next() {
		var (
			s          monitor.StatsSnapshot
			ts, ivl    int64
			p50u, p99u float64
		)
		if err := rows.Scan(&ts, &ivl, &s.Packets, &s.Bytes, &s.Translated,
			&s.InvalidLength, &s.UnexpectedType, &s.Malformed, &s.ForwardDropped,
			&p50u, &p99u); err != nil {
			return nil, err
		}
		s.Timestamp = time.UnixMilli(ts)
		s.Interval = time.Duration(ivl) * time.Millisecond
		if secs := s.Interval.Seconds(); secs > 0 {
			s.PacketsPerSec = float64(s.Packets) / secs
			s.KBPerSec = float64(s.Bytes) / secs / 1024
		}
		s.P50 = microsToDuration(p50u)
		s.P99 = microsToDuration(p99u)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionRecorder writes snapshots for one session. It implements
// monitor.Recorder.
type SessionRecorder struct {
	db *DB
	id uuid.UUID
}

var _ monitor.Recorder = (*SessionRecorder)(nil)

// Recorder returns a monitor.Recorder bound to session id.
func (db *DB) Recorder(id uuid.UUID) *SessionRecorder {
	return &SessionRecorder{db: db, id: id}
}

// RecordStats implements monitor.Recorder.
func (r *SessionRecorder) RecordStats(snap monitor.StatsSnapshot) error {
	return r.db.RecordStats(r.id, snap)
}

func durationToMicros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func microsToDuration(us float64) time.Duration {
	return time.Duration(us * float64(time.Microsecond))
}
