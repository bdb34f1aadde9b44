// Package registry implements the room registry: short shareable room
// codes, collision-safe allocation, case-insensitive lookup, and the sweep
// that disposes of rooms nobody ever joined.
package registry

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"duotaire/internal/engine"
	"duotaire/internal/model"
)

// Alphabet excludes glyphs that are easily confused when read aloud or
// typed by hand: 0/O, 1/I/l.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of glyphs in a room code.
const CodeLength = 6

// maxCreateAttempts bounds the collision-retry loop; with a 6-glyph code
// drawn from a 32-glyph alphabet the keyspace is over a billion, so this is
// never expected to be exhausted in practice.
const maxCreateAttempts = 20

// StaleWaitingAge is how long a room may sit in the waiting phase, with no
// second player ever joining, before the sweep disposes of it.
const StaleWaitingAge = 30 * time.Minute

// SweepInterval is how often the sweep runs.
const SweepInterval = 60 * time.Second

// ErrCodesExhausted is returned if every attempt to mint a fresh code
// collided with an existing room.
var ErrCodesExhausted = errors.New("registry: exhausted code attempts")

// Entry pairs a room's authoritative state with the engine that owns it.
type Entry struct {
	Room   *model.Room
	Engine *engine.Engine
}

// Registry is the process-wide map of room code to Entry. All exported
// methods are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Entry
	rng    *rand.Rand
	rngMu  sync.Mutex
	log    *zap.Logger
	stopCh chan struct{}
}

// New builds an empty registry with its own code-generation source.
func New(log *zap.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]*Entry),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		log:   log,
	}
}

func (r *Registry) nextCode() string {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = Alphabet[r.rng.Intn(len(Alphabet))]
	}
	return string(b)
}

// NormalizeCode upper-cases and trims a client-supplied code so that
// "abc123", " ABC123 ", and "Abc123" all resolve to the same room.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create allocates a fresh, collision-free code and hands it to build,
// which must construct the room's Engine (and the model.Room it wraps)
// for that code. The returned entry is registered and its engine's
// worker goroutine is started before Create returns.
func (r *Registry) Create(build func(code string) *engine.Engine) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		code := r.nextCode()
		if _, exists := r.rooms[code]; exists {
			continue
		}
		e := build(code)
		entry := &Entry{Room: e.Room, Engine: e}
		e.OnDispose(func(room *model.Room) { r.Dispose(room.Code) })
		r.rooms[code] = entry
		go e.Run()
		if r.log != nil {
			r.log.Info("room created", zap.String("code", code))
		}
		return entry, nil
	}
	return nil, ErrCodesExhausted
}

// Lookup returns the entry for code, normalizing case and whitespace
// first.
func (r *Registry) Lookup(code string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rooms[NormalizeCode(code)]
	return e, ok
}

// Dispose removes code from the registry and stops its engine. Safe to
// call more than once for the same code.
func (r *Registry) Dispose(code string) {
	code = NormalizeCode(code)
	r.mu.Lock()
	entry, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	entry.Engine.Stop()
	if r.log != nil {
		r.log.Info("room disposed", zap.String("code", code))
	}
}

// Count returns the number of currently registered rooms.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// SweepStale disposes of every room still in the waiting phase whose
// CreatedAt is older than StaleWaitingAge. It returns the number of rooms
// disposed, for observability.
func (r *Registry) SweepStale(now time.Time) int {
	r.mu.Lock()
	var stale []string
	for code, entry := range r.rooms {
		if entry.Room.Phase == model.PhaseWaiting && now.Sub(entry.Room.CreatedAt) > StaleWaitingAge {
			stale = append(stale, code)
		}
	}
	r.mu.Unlock()

	for _, code := range stale {
		r.Dispose(code)
	}
	return len(stale)
}

// StartSweeper runs SweepStale on a ticker until the returned stop func is
// called.
func (r *Registry) StartSweeper(interval time.Duration) func() {
	stop := make(chan struct{})
	r.stopCh = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := r.SweepStale(now); n > 0 && r.log != nil {
					r.log.Info("swept stale rooms", zap.Int("count", n))
				}
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}
