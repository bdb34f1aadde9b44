package model

import "time"

// GameResult is an ambient, append-only record of one finished game. It
// feeds the history ledger (internal/statslog) for the /stats
// observability endpoint; it plays no part in an active room's state and
// is never read back to resume a room.
type GameResult struct {
	RoomCode     string
	HostName     string
	GuestName    string
	Winner       int
	Reason       string
	Duration     time.Duration
	FinalVersion uint64
	FinishedAt   time.Time
}
