// Package task is the cooperative execution engine. A driver calls Execute on
// a task once per game tick; each call does at most one unit of work and
// returns without blocking. Input and sleeps are asynchronous: the task parks
// the returned future in its pending slot and polls it on later ticks.
//
// Waits are always bounded. A soft wait that runs out is presumed to have
// succeeded and the task moves on; a hard wait that runs out fails the task
// with a reason string. Failures never escape Execute: the driver observes
// them through State and FailureReason.
package task

import (
	"log/slog"

	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/input"
)

type State int

const (
	Pending State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	default:
		return "PENDING"
	}
}

func (s State) Terminal() bool { return s == Completed || s == Failed }

type Task interface {
	Kind() string
	// CanExecute has no side effects and may be called at any time.
	CanExecute(ctx *Context) bool
	Execute(ctx *Context)
	State() State
	// ResetForRetry returns the task to Pending, keeping its configuration.
	ResetForRetry()
	Description() string
	FailureReason() string
}

// Context is the per-tick view of the game and the collaborators a task may
// drive. It is rebuilt every tick; tasks must not keep it or its fields.
// A nil collaborator is unavailable.
type Context struct {
	Tick     uint64
	LoggedIn bool

	Player    game.Player
	Inventory game.Inventory
	Equipment game.Equipment
	World     game.World
	Combat    game.Combat
	Account   game.Account
	Trade     game.Trade
	Death     game.Death

	Clicker  input.Clicker
	Mouse    input.Mouse
	Keyboard input.Keyboard
	Walker   input.Walker
	Gear     input.GearSwitcher

	Timer  humanize.Timer
	Random humanize.Random

	Log *slog.Logger
}

var discard = slog.New(slog.NewTextHandler(discardWriter{}, nil))

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (c *Context) Logger() *slog.Logger {
	if c == nil || c.Log == nil {
		return discard
	}
	return c.Log
}

// Cleaner is implemented by tasks that hold input state (a held key, say)
// which must be undone when the task ends or is abandoned. Drivers call it
// once after a task turns terminal or before it is reset.
type Cleaner interface {
	Cleanup(ctx *Context)
}
