// Package scheduler drives a queue of tasks, one Execute per tick on the task
// at the head. Failed tasks are retried through ResetForRetry up to a limit,
// urgent tasks can interrupt the queue, and every lifecycle change is reported
// to observers.
package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tickbot.ai/internal/task"
)

type Outcome string

const (
	OutcomeStarted     Outcome = "started"
	OutcomeRetry       Outcome = "retry"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeCompleted   Outcome = "completed"
	OutcomeFailed      Outcome = "failed"
)

// Final reports whether the run is over after this outcome.
func (o Outcome) Final() bool {
	return o == OutcomeCompleted || o == OutcomeFailed || o == OutcomeSkipped
}

// Event is one lifecycle change of a queued task.
type Event struct {
	RunID       string    `json:"run_id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Outcome     Outcome   `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	Attempt     int       `json:"attempt"`
	Ticks       int       `json:"ticks"`
	Tick        uint64    `json:"tick"`
	Urgent      bool      `json:"urgent,omitempty"`
	At          time.Time `json:"at"`
}

type Observer interface {
	TaskEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) TaskEvent(e Event) { f(e) }

type Config struct {
	// MaxRetries is how many times a failed task is reset and run again.
	MaxRetries int
	// MaxPendingTicks skips a head task that never becomes executable.
	// Zero disables skipping.
	MaxPendingTicks int
}

func DefaultConfig() Config {
	return Config{MaxRetries: 2, MaxPendingTicks: 200}
}

type entry struct {
	id           string
	t            task.Task
	urgent       bool
	attempt      int
	ticks        int
	pendingTicks int
	started      bool
}

type Executor struct {
	mu        sync.Mutex
	cfg       Config
	queue     []*entry
	urgent    []*entry
	paused    bool
	observers []Observer
	now       func() time.Time
}

func New(cfg Config, observers ...Observer) *Executor {
	return &Executor{cfg: cfg, observers: observers, now: time.Now}
}

func (e *Executor) SetConfig(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func (e *Executor) AddObserver(o Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// Enqueue appends t and returns its run ID.
func (e *Executor) Enqueue(t task.Task) string {
	en := &entry{id: uuid.NewString(), t: t}
	e.mu.Lock()
	e.queue = append(e.queue, en)
	e.mu.Unlock()
	return en.id
}

// Interrupt runs t before anything else. A task that was running is cleaned
// up and reset; it resumes from the start once the urgent work is done.
func (e *Executor) Interrupt(ctx *task.Context, t task.Task) string {
	en := &entry{id: uuid.NewString(), t: t, urgent: true}
	e.mu.Lock()
	cur := e.headLocked()
	e.urgent = append(e.urgent, en)
	var events []Event
	if cur != nil && cur.t.State() == task.Running {
		cleanup(ctx, cur.t)
		cur.t.ResetForRetry()
		cur.started = false
		cur.pendingTicks = 0
		events = append(events, e.eventLocked(cur, OutcomeInterrupted, ctx.Tick))
	}
	obs := e.observers
	e.mu.Unlock()
	notify(obs, events)
	return en.id
}

// Urgent reports whether an interrupting task of kind is queued or running.
func (e *Executor) Urgent(kind string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, en := range e.urgent {
		if en.t.Kind() == kind {
			return true
		}
	}
	return false
}

func (e *Executor) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

func (e *Executor) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

func (e *Executor) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Len counts queued and urgent tasks, including the one running.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue) + len(e.urgent)
}

// Current is the task the next Tick will execute, or nil.
func (e *Executor) Current() task.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	if en := e.headLocked(); en != nil {
		return en.t
	}
	return nil
}

func (e *Executor) headLocked() *entry {
	if n := len(e.urgent); n > 0 {
		return e.urgent[n-1]
	}
	if len(e.queue) > 0 {
		return e.queue[0]
	}
	return nil
}

func (e *Executor) popLocked(en *entry) {
	if en.urgent {
		e.urgent = e.urgent[:len(e.urgent)-1]
		return
	}
	e.queue = e.queue[1:]
}

// Tick executes the head task once. It reports false when paused or idle.
func (e *Executor) Tick(ctx *task.Context) bool {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return false
	}
	en := e.headLocked()
	if en == nil {
		e.mu.Unlock()
		return false
	}
	cfg := e.cfg
	e.mu.Unlock()

	en.ticks++
	en.t.Execute(ctx)
	state := en.t.State()

	e.mu.Lock()
	var events []Event
	if !en.started && state != task.Pending {
		en.started = true
		events = append(events, e.eventLocked(en, OutcomeStarted, ctx.Tick))
	}
	switch state {
	case task.Pending:
		en.pendingTicks++
		if cfg.MaxPendingTicks > 0 && en.pendingTicks > cfg.MaxPendingTicks {
			e.popLocked(en)
			ev := e.eventLocked(en, OutcomeSkipped, ctx.Tick)
			ev.Reason = "never became executable"
			events = append(events, ev)
		}
	case task.Failed:
		cleanup(ctx, en.t)
		if en.attempt < cfg.MaxRetries {
			events = append(events, e.eventLocked(en, OutcomeRetry, ctx.Tick))
			en.t.ResetForRetry()
			en.attempt++
			en.started = false
			en.pendingTicks = 0
		} else {
			e.popLocked(en)
			events = append(events, e.eventLocked(en, OutcomeFailed, ctx.Tick))
		}
	case task.Completed:
		cleanup(ctx, en.t)
		e.popLocked(en)
		events = append(events, e.eventLocked(en, OutcomeCompleted, ctx.Tick))
	}
	obs := e.observers
	e.mu.Unlock()
	notify(obs, events)
	return true
}

func (e *Executor) eventLocked(en *entry, o Outcome, tick uint64) Event {
	return Event{
		RunID:       en.id,
		Kind:        en.t.Kind(),
		Description: en.t.Description(),
		Outcome:     o,
		Reason:      en.t.FailureReason(),
		Attempt:     en.attempt,
		Ticks:       en.ticks,
		Tick:        tick,
		Urgent:      en.urgent,
		At:          e.now().UTC(),
	}
}

func cleanup(ctx *task.Context, t task.Task) {
	if c, ok := t.(task.Cleaner); ok {
		c.Cleanup(ctx)
	}
}

func notify(obs []Observer, events []Event) {
	for _, ev := range events {
		for _, o := range obs {
			o.TaskEvent(ev)
		}
	}
}
