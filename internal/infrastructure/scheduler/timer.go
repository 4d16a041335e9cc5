package scheduler

import (
	"context"
	"sync"
	"time"

	"EditorialDesk/internal/ports"
)

// idle is how long the loop sleeps when nothing is registered.
const idle = time.Hour

// TimerLoop is a single goroutine that sleeps until the earliest registered
// occurrence, fires it, and asks again.
type TimerLoop struct {
	mu   sync.Mutex
	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	now  func() time.Time
}

var _ ports.Scheduler = (*TimerLoop)(nil)

// NewTimerLoop builds an idle driver.
func NewTimerLoop() *TimerLoop {
	return &TimerLoop{wake: make(chan struct{}, 1), now: time.Now}
}

// Start launches the loop. next reports the earliest fire time; fire runs
// everything due at the given instant. Calling Start twice is a no-op.
func (l *TimerLoop) Start(ctx context.Context, next func() (time.Time, bool), fire func(time.Time)) error {
	if next == nil || fire == nil {
		return nil
	}

	l.mu.Lock()
	if l.stop != nil {
		l.mu.Unlock()
		return nil
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stop, l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		timer := time.NewTimer(idle)
		defer timer.Stop()
		for {
			wait := idle
			if at, ok := next(); ok {
				wait = max(at.Sub(l.now()), 0)
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)

			select {
			case t := <-timer.C:
				fire(t)
			case <-l.wake:
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Wake makes the loop recompute its next fire time.
func (l *TimerLoop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Stop halts the loop and waits for an in-flight fire to return.
func (l *TimerLoop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stop == nil {
		l.mu.Unlock()
		return nil
	}
	close(l.stop)
	done := l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
