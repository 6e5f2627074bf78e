// internal/game/phase_timer.go
package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// PhaseTimer is the countdown worker of one session. Run owns a single goroutine
// for the session's lifetime; Start and Cancel hand it countdowns to drive.
//
// Tick and expiry callbacks run while holding the owner's lock, and each countdown
// carries a consumed flag flipped exactly once, either by expiry or by Cancel.
// Cancel is called under that same lock, so once it returns the expiry callback of
// the cancelled countdown can no longer run.
type PhaseTimer struct {
	clock    clockwork.Clock
	lock     sync.Locker
	interval time.Duration

	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	current *countdown
}

type countdown struct {
	consumed  atomic.Bool
	timer     clockwork.Timer
	remaining int
	onTick    func(remaining int)
	onExpire  func()
}

// NewPhaseTimer builds a timer whose callbacks run under lock. interval is the
// length of one countdown second.
func NewPhaseTimer(clock clockwork.Clock, lock sync.Locker, interval time.Duration) *PhaseTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &PhaseTimer{
		clock:    clock,
		lock:     lock,
		interval: interval,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Run drives countdowns until ctx is cancelled.
func (t *PhaseTimer) Run(ctx context.Context) {
	defer close(t.done)
	for {
		cd := t.active()
		var fired <-chan time.Time
		if cd != nil {
			fired = cd.timer.Chan()
		}

		select {
		case <-ctx.Done():
			t.lock.Lock()
			t.Cancel()
			t.lock.Unlock()
			return
		case <-t.wake:
		case <-fired:
			t.fire(cd)
		}
	}
}

// Wait blocks until Run has returned. It must not be called while holding the
// owner's lock.
func (t *PhaseTimer) Wait() {
	<-t.done
}

// Start begins a countdown of seconds ticks, replacing any running countdown.
// onTick receives the seconds left after each tick that does not end the countdown;
// onExpire runs once when it reaches zero. Callers must hold the owner's lock.
func (t *PhaseTimer) Start(seconds int, onTick func(remaining int), onExpire func()) {
	t.Cancel()

	if seconds < 1 {
		seconds = 1
	}
	cd := &countdown{
		timer:     t.clock.NewTimer(t.interval),
		remaining: seconds,
		onTick:    onTick,
		onExpire:  onExpire,
	}

	t.mu.Lock()
	t.current = cd
	t.mu.Unlock()
	t.signal()
}

// Cancel stops the running countdown, if any, and reports whether one was stopped
// before it expired. Callers must hold the owner's lock.
func (t *PhaseTimer) Cancel() bool {
	t.mu.Lock()
	cd := t.current
	t.current = nil
	t.mu.Unlock()

	if cd == nil {
		return false
	}
	stopped := cd.consumed.CompareAndSwap(false, true)
	cd.timer.Stop()
	t.signal()
	return stopped
}

// Active reports whether a countdown is running.
func (t *PhaseTimer) Active() bool {
	cd := t.active()
	return cd != nil && !cd.consumed.Load()
}

func (t *PhaseTimer) active() *countdown {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// fire handles one elapsed second of cd. The next second's clock timer is armed
// under the owner's lock, before the tick callback publishes anything.
func (t *PhaseTimer) fire(cd *countdown) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if cd.consumed.Load() {
		return
	}
	cd.remaining--
	if cd.remaining > 0 {
		cd.timer = t.clock.NewTimer(t.interval)
		if cd.onTick != nil {
			cd.onTick(cd.remaining)
		}
		return
	}
	if !cd.consumed.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	if t.current == cd {
		t.current = nil
	}
	t.mu.Unlock()
	if cd.onExpire != nil {
		cd.onExpire()
	}
}

func (t *PhaseTimer) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
