// Package matchmaking implements the find_match queue: a simple FIFO
// pairing of waiting players, skipping over waiters whose connection has
// since died.
package matchmaking

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Waiter is one player waiting to be paired.
type Waiter struct {
	SessionID string
	Name      string
	Joined    time.Time
}

// Queue is the FIFO of waiting players. Safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	waiters []Waiter
	isAlive func(sessionID string) bool
	log     *zap.Logger
}

// New builds a queue. isAlive reports whether a previously queued
// session's connection is still open; pass nil to trust every queued
// waiter unconditionally.
func New(isAlive func(sessionID string) bool, log *zap.Logger) *Queue {
	return &Queue{isAlive: isAlive, log: log}
}

// Enqueue pairs sessionID with the oldest live waiter, if one exists, and
// returns it with matched=true. Dead waiters at the front of the queue are
// discarded along the way. If the queue is empty (or only held dead
// waiters), sessionID itself is queued and matched=false is returned.
func (q *Queue) Enqueue(sessionID, name string) (Waiter, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.waiters) > 0 {
		candidate := q.waiters[0]
		q.waiters = q.waiters[1:]
		if candidate.SessionID == sessionID {
			// Already queued; re-queuing the same session is a no-op from
			// the caller's perspective, it simply stays at the back.
			continue
		}
		if q.isAlive != nil && !q.isAlive(candidate.SessionID) {
			if q.log != nil {
				q.log.Debug("dropping dead matchmaking waiter", zap.String("sessionID", candidate.SessionID))
			}
			continue
		}
		return candidate, true
	}

	q.waiters = append(q.waiters, Waiter{SessionID: sessionID, Name: name, Joined: time.Now()})
	return Waiter{}, false
}

// Cancel removes sessionID from the queue, if present. Reports whether it
// was found.
func (q *Queue) Cancel(sessionID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiters {
		if w.SessionID == sessionID {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of players currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}
