package task

import (
	"fmt"

	"tickbot.ai/internal/async"
)

const (
	DefaultInactivityTimeout = 100
	DefaultPendingTimeout    = 50
)

type pendingOp struct {
	label  string
	handle async.Pollable
	settle func(*Context)
	ticks  int
}

// Base carries the lifecycle every task shares: state, phase tracking, the
// pending-operation slot and the progress watchdogs. Concrete tasks embed it
// and route Execute through Run.
type Base struct {
	kind       string
	initPhase  string
	state      State
	phase      string
	phaseTicks int
	ticks      int
	idleTicks  int
	failure    string
	pending    pendingOp

	// InactivityTimeout fails the task after this many stepped ticks without
	// progress. Zero means DefaultInactivityTimeout, negative disables it.
	InactivityTimeout int
	// PendingTimeout bounds how long a single async operation may stay
	// outstanding. Zero means DefaultPendingTimeout, negative disables it.
	PendingTimeout int
}

func NewBase(kind, initialPhase string) Base {
	return Base{kind: kind, initPhase: initialPhase, phase: initialPhase}
}

func (b *Base) Kind() string          { return b.kind }
func (b *Base) State() State          { return b.state }
func (b *Base) FailureReason() string { return b.failure }
func (b *Base) Phase() string         { return b.phase }

// PhaseTicks counts stepped ticks since the last transition, including the
// current one.
func (b *Base) PhaseTicks() int { return b.phaseTicks }

// Ticks counts Execute calls since the task started running.
func (b *Base) Ticks() int { return b.ticks }

func (b *Base) HasPending() bool { return b.pending.handle != nil }

// Run is the body of every Execute. Terminal tasks ignore the call; pending
// tasks stay pending until canExecute passes; running tasks either poll the
// outstanding operation or take one step.
func (b *Base) Run(ctx *Context, canExecute func(*Context) bool, step func(*Context)) {
	switch b.state {
	case Completed, Failed:
		return
	case Pending:
		if !canExecute(ctx) {
			return
		}
		b.state = Running
		ctx.Logger().Info("task started", "task", b.kind, "tick", ctx.Tick)
	}

	before := b.phase
	b.ticks++
	if b.pending.handle != nil {
		b.pollPending(ctx)
	} else {
		b.phaseTicks++
		b.idleTicks++
		if limit := budget(b.InactivityTimeout, DefaultInactivityTimeout); limit > 0 && b.idleTicks > limit {
			b.Fail(fmt.Sprintf("no progress for %d ticks", limit))
		} else {
			step(ctx)
		}
	}

	log := ctx.Logger()
	if b.phase != before {
		log.Debug("task phase", "task", b.kind, "from", before, "to", b.phase, "tick", ctx.Tick)
	}
	switch b.state {
	case Completed:
		log.Info("task completed", "task", b.kind, "ticks", b.ticks)
	case Failed:
		log.Warn("task failed", "task", b.kind, "reason", b.failure, "phase", b.phase, "ticks", b.ticks)
	}
}

func (b *Base) pollPending(ctx *Context) {
	p := &b.pending
	if !p.handle.Ready() {
		p.ticks++
		if limit := budget(b.PendingTimeout, DefaultPendingTimeout); limit > 0 && p.ticks > limit {
			label := p.label
			b.Fail(fmt.Sprintf("%s did not finish within %d ticks", label, limit))
		}
		return
	}
	settle := p.settle
	b.pending = pendingOp{}
	b.Progress()
	if settle != nil {
		settle(ctx)
	}
}

// Await parks an async operation. The task makes no further steps until it
// completes; settle then runs inside a later Execute, with that tick's
// context, as that tick's work.
func (b *Base) Await(label string, handle async.Pollable, settle func(*Context)) {
	if b.pending.handle != nil {
		b.Fail(fmt.Sprintf("%s issued while %s outstanding", label, b.pending.label))
		return
	}
	b.pending = pendingOp{label: label, handle: handle, settle: settle}
}

// Transition enters phase and restarts its tick count.
func (b *Base) Transition(phase string) {
	b.phase = phase
	b.phaseTicks = 0
	b.Progress()
}

// SetTimeouts sets InactivityTimeout and PendingTimeout together.
func (b *Base) SetTimeouts(inactivity, pending int) {
	b.InactivityTimeout, b.PendingTimeout = inactivity, pending
}

// Progress resets the inactivity watchdog.
func (b *Base) Progress() { b.idleTicks = 0 }

// WaitExpired reports whether the current phase has used up limit ticks.
func (b *Base) WaitExpired(limit int) bool { return b.phaseTicks > limit }

func (b *Base) Complete() {
	if b.state.Terminal() {
		return
	}
	b.state = Completed
	b.pending = pendingOp{}
}

func (b *Base) Fail(reason string) {
	if b.state.Terminal() {
		return
	}
	b.state = Failed
	b.failure = reason
	b.pending = pendingOp{}
}

// Reset drops all runtime state. A future still held by a collaborator may
// complete later; nothing references it any more, so that is a no-op.
func (b *Base) Reset() {
	b.state = Pending
	b.phase = b.initPhase
	b.phaseTicks = 0
	b.ticks = 0
	b.idleTicks = 0
	b.failure = ""
	b.pending = pendingOp{}
}

func budget(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
