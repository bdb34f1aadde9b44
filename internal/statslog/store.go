// Package statslog implements the game history ledger: an
// append-only SQLite record of finished games, used only to back the
// /stats observability endpoint. It never participates in
// an active room's state and is never read back to resume a room after a
// restart.
package statslog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"duotaire/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	room_code     TEXT NOT NULL,
	host_name     TEXT NOT NULL,
	guest_name    TEXT NOT NULL,
	winner        INTEGER NOT NULL,
	reason        TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL,
	final_version INTEGER NOT NULL,
	finished_at   DATETIME NOT NULL
);
`

// Store wraps the history database. The zero value is not usable; build
// one with Open.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite file at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("statslog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("statslog: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordResult appends one finished game. Best effort: a write failure
// here must never affect the outcome of the game it describes, so callers
// should log the error rather than propagate it into game logic.
func (s *Store) RecordResult(res model.GameResult) error {
	_, err := s.db.Exec(
		`INSERT INTO game_history(room_code, host_name, guest_name, winner, reason, duration_ms, final_version, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RoomCode, res.HostName, res.GuestName, res.Winner, res.Reason,
		res.Duration.Milliseconds(), res.FinalVersion, res.FinishedAt,
	)
	return err
}

// RecentResults returns the most recently finished games, newest first.
func (s *Store) RecentResults(limit int) ([]model.GameResult, error) {
	rows, err := s.db.Query(
		`SELECT room_code, host_name, guest_name, winner, reason, duration_ms, final_version, finished_at
		 FROM game_history ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GameResult
	for rows.Next() {
		var res model.GameResult
		var durationMs int64
		if err := rows.Scan(&res.RoomCode, &res.HostName, &res.GuestName, &res.Winner,
			&res.Reason, &durationMs, &res.FinalVersion, &res.FinishedAt); err != nil {
			return nil, err
		}
		res.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, res)
	}
	return out, rows.Err()
}

// PlayerWinRate reports how many recorded games name had a seat in, and
// how many of those it won.
func (s *Store) PlayerWinRate(name string) (games, wins int, err error) {
	row := s.db.QueryRow(
		`SELECT
			COUNT(*),
			SUM(CASE
				WHEN winner = 0 AND host_name = ? THEN 1
				WHEN winner = 1 AND guest_name = ? THEN 1
				ELSE 0
			END)
		 FROM game_history WHERE host_name = ? OR guest_name = ?`,
		name, name, name, name,
	)
	var sumWins sql.NullInt64
	if err := row.Scan(&games, &sumWins); err != nil {
		return 0, 0, err
	}
	return games, int(sumWins.Int64), nil
}
