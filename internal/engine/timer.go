package engine

import "time"

// TimerService owns the two cooperative timers scoped to a single room:
// the turn clock and the ZAP window. Both fire by submitting an Intent
// back into the room's own queue rather than mutating state directly, so
// a firing timer is never a preemptive mutation.
//
// All exported methods are only ever called from the room's own engine
// goroutine (during intent dispatch), so the unexported fields need no
// locking: the timer goroutines spawned here never touch them, they only
// call submit.
type TimerService struct {
	submit func(Intent)

	turnTicker *time.Ticker
	turnDone   chan struct{}

	zapTimer      *time.Timer
	zapGeneration uint64
}

// NewTimerService creates a timer service that delivers fired timers via
// submit.
func NewTimerService(submit func(Intent)) *TimerService {
	return &TimerService{submit: submit}
}

// StartTurnClock begins accumulating wall-time into the current player's
// timer at ~1Hz. A no-op if already running.
func (t *TimerService) StartTurnClock() {
	if t.turnTicker != nil {
		return
	}
	t.turnTicker = time.NewTicker(1 * time.Second)
	t.turnDone = make(chan struct{})
	ticker := t.turnTicker
	done := t.turnDone
	go func() {
		for {
			select {
			case <-ticker.C:
				t.submit(Intent{Kind: intentTurnTick})
			case <-done:
				return
			}
		}
	}()
}

// StopTurnClock cancels the turn clock.
func (t *TimerService) StopTurnClock() {
	if t.turnTicker == nil {
		return
	}
	t.turnTicker.Stop()
	close(t.turnDone)
	t.turnTicker = nil
	t.turnDone = nil
}

// ArmZapWindow schedules a one-shot expiry after d. Any previously armed
// window is cancelled first, so only the most recent window can fire.
func (t *TimerService) ArmZapWindow(d time.Duration) {
	t.CancelZapWindow()
	t.zapGeneration++
	gen := t.zapGeneration
	t.zapTimer = time.AfterFunc(d, func() {
		t.submit(Intent{Kind: intentZapExpiry, zapGeneration: gen})
	})
}

// CancelZapWindow cancels any armed ZAP window without firing it.
func (t *TimerService) CancelZapWindow() {
	if t.zapTimer != nil {
		t.zapTimer.Stop()
		t.zapTimer = nil
	}
	t.zapGeneration++
}

// IsCurrentZapGeneration reports whether gen is the most recently armed
// generation, used by the engine to discard stale expiry firings that
// raced against a cancellation.
func (t *TimerService) IsCurrentZapGeneration(gen uint64) bool {
	return gen == t.zapGeneration
}

// StopAll cancels both timers. Must be called on room disposal.
func (t *TimerService) StopAll() {
	t.StopTurnClock()
	t.CancelZapWindow()
}
