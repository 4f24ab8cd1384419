// Package alarm holds the OK/ALARM state machine evaluated once per period
// against the sentinel match count.
package alarm

import (
	"log/slog"
	"sync"
	"time"
)

// State of the alarm.
type State string

const (
	StateOK    State = "OK"
	StateAlarm State = "ALARM"
)

// Defaults for the evaluation policy.
const (
	DefaultThreshold = 1
	DefaultPeriod    = 60 * time.Second
)

// Transition records one state change of the dispatcher.
type Transition struct {
	From  State
	To    State
	Count int
	At    time.Time
}

// Recovery reports whether this transition cleared an alarm.
func (t Transition) Recovery() bool {
	return t.To == StateOK
}

// Notifier is invoked on every state transition: breach and recovery both.
type Notifier interface {
	Notify(tr Transition) error
}

// Dispatcher evaluates sentinel counts against a threshold and fans out a
// notification on each OK↔ALARM transition. Missing data never moves the
// state in either direction: it does not raise an alarm and it does not
// clear one. That can mask a total outage where the script never runs at
// all, which is the accepted cost of not paging on telemetry gaps.
type Dispatcher struct {
	threshold int
	period    time.Duration
	notifier  Notifier
	logger    *slog.Logger

	mu           sync.Mutex
	state        State
	lastEvalAt   time.Time
	transitionAt time.Time
}

// NewDispatcher builds a dispatcher starting in the OK state.
func NewDispatcher(threshold int, period time.Duration, notifier Notifier, logger *slog.Logger) *Dispatcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Dispatcher{
		threshold: threshold,
		period:    period,
		notifier:  notifier,
		logger:    logger,
		state:     StateOK,
	}
}

// State returns the current alarm state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Period returns the evaluation period.
func (d *Dispatcher) Period() time.Duration {
	return d.period
}

// LastTransition returns when the state last changed; zero if it never has.
func (d *Dispatcher) LastTransition() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transitionAt
}

// Evaluate applies one period's sample. present=false means no metric data
// landed in the window and the state is held as-is. A returned non-nil
// Transition means the state changed and the notifier was invoked; a
// notification delivery failure is logged but does not roll the state back,
// since delivery is downstream of this component's obligation.
func (d *Dispatcher) Evaluate(count int, present bool, now time.Time) *Transition {
	tr := d.apply(count, present, now)
	if tr == nil {
		return nil
	}

	// Delivery happens outside the state lock so a slow notifier cannot
	// block State() readers such as the HTTP status handler.
	if d.notifier != nil {
		if err := d.notifier.Notify(*tr); err != nil {
			d.logger.Error("notification failed", "to", tr.To, "error", err)
		}
	}
	return tr
}

func (d *Dispatcher) apply(count int, present bool, now time.Time) *Transition {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastEvalAt = now

	if !present {
		d.logger.Debug("no metric data in window, holding state", "state", d.state)
		return nil
	}

	want := StateOK
	if count >= d.threshold {
		want = StateAlarm
	}
	if want == d.state {
		d.logger.Debug("state unchanged", "state", d.state, "count", count)
		return nil
	}

	tr := Transition{From: d.state, To: want, Count: count, At: now}
	d.state = want
	d.transitionAt = now

	d.logger.Info("alarm state changed",
		"from", tr.From, "to", tr.To, "count", count, "threshold", d.threshold)
	return &tr
}
