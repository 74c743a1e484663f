// Package death recovers after the player dies: clears the death dialogue,
// loots the gravestone or pays the office, then walks back.
//
// The situation is re-detected on every tick. Client reconnects, teleports and
// other players can all change where the player is and which interface is
// open, so the task never trusts what it saw last tick.
package death

import (
	"fmt"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/input"
	"tickbot.ai/internal/task"
)

const Kind = "death"

const (
	WidgetOfficeRetrieve = "death.office.retrieve"
	WidgetOfficeTalk     = "death.office.talk"
	WidgetOfficePortal   = "death.office.portal"
	WidgetOfficeExit     = "death.office.exit"
	WidgetGravestoneTake = "death.gravestone.take_all"
)

type Config struct {
	// DeathLocation is where the player died, used when the gravestone has
	// not reported coordinates.
	DeathLocation    game.Point
	HasDeathLocation bool
	ReturnLocation   game.Point
	HasReturn        bool
	PreferGravestone bool
	MaxOfficeFee     int

	CoordinateWaitTicks int
	MaxWalks            int
	ArrivalDistance     int
	DialogueDelay       humanize.Profile
	// MaxClicks bounds clicks on one interface that keeps showing the same
	// state; MaxDialoguePresses bounds presses while the dialogue stays open.
	MaxClicks          int
	MaxDialoguePresses int
}

func DefaultConfig() Config {
	return Config{
		PreferGravestone:    true,
		MaxOfficeFee:        100_000,
		CoordinateWaitTicks: 10,
		MaxWalks:            8,
		ArrivalDistance:     3,
		DialogueDelay:       humanize.DialogueRead,
		MaxClicks:           4,
		MaxDialoguePresses:  8,
	}
}

// ReturningTo sets the location to walk back to after recovery.
func (c Config) ReturningTo(p game.Point) Config {
	c.ReturnLocation, c.HasReturn = p, true
	return c
}

// DiedAt records the death tile.
func (c Config) DiedAt(p game.Point) Config {
	c.DeathLocation, c.HasDeathLocation = p, true
	return c
}

type phase int

const (
	detect phase = iota
	dialogue
	lootGravestone
	retrieveOffice
	talkToDeath
	usePortal
	exitOffice
	goToGravestone
	waitCoordinates
	returnTo
	done
)

var phaseNames = [...]string{
	"DETECT_STATE", "DIALOGUE", "LOOT_GRAVESTONE", "RETRIEVE_OFFICE", "TALK_TO_DEATH",
	"USE_PORTAL", "EXIT_OFFICE", "GO_TO_GRAVESTONE", "WAIT_COORDINATES", "RETURN", "DONE",
}

func (p phase) String() string { return phaseNames[p] }

type Task struct {
	task.Base
	cfg Config

	phase         phase
	read          bool // dialogue delay elapsed
	walks         int
	attempts      int
	sawDialogue   bool
	sawGravestone bool
	looted        bool
	retrieved     bool
	outcome       string
}

func New(cfg Config) *Task {
	return &Task{Base: task.NewBase(Kind, detect.String()), cfg: cfg}
}

func (t *Task) Config() Config { return t.cfg }

// Retrieved reports whether items were recovered.
func (t *Task) Retrieved() bool { return t.retrieved }

// Outcome describes how the task ended; empty while running.
func (t *Task) Outcome() string { return t.outcome }

func (t *Task) CanExecute(ctx *task.Context) bool {
	return ctx.LoggedIn && !ctx.Player.Dead && ctx.Clicker != nil && ctx.Walker != nil &&
		ctx.Keyboard != nil && ctx.Timer != nil && ctx.Random != nil
}

func (t *Task) Execute(ctx *task.Context) { t.Run(ctx, t.CanExecute, t.step) }

func (t *Task) ResetForRetry() {
	t.Reset()
	t.phase = detect
	t.read = false
	t.walks, t.attempts = 0, 0
	t.sawDialogue, t.sawGravestone, t.looted, t.retrieved = false, false, false, false
	t.outcome = ""
}

func (t *Task) Description() string {
	return fmt.Sprintf("death[phase=%s retrieved=%t return=%t]", t.phase, t.retrieved, t.cfg.HasReturn)
}

func (t *Task) to(p phase) {
	t.phase = p
	t.read = false
	t.walks, t.attempts = 0, 0
	t.Transition(p.String())
}

func (t *Task) step(ctx *task.Context) {
	d := ctx.Death
	if d.GravestoneActive() {
		t.sawGravestone = true
	} else if t.sawGravestone && !t.retrieved {
		t.retrieved = true
		ctx.Logger().Info("gravestone gone, items retrieved or lost", "looted", t.looted)
	}
	if d.DialogueOpen {
		t.sawDialogue = true
	}
	if ctx.Combat.BeingAttacked && !d.InOffice {
		return
	}

	if next := t.detect(ctx); next != t.phase {
		t.to(next)
		return
	}
	switch t.phase {
	case dialogue:
		t.continueDialogue(ctx)
	case lootGravestone:
		t.click(ctx, input.Widget(WidgetGravestoneTake), "Take-All", func() { t.looted = true })
	case retrieveOffice:
		if d.OfficeFee > t.cfg.MaxOfficeFee {
			t.Fail(fmt.Sprintf("death office fee %d exceeds limit %d", d.OfficeFee, t.cfg.MaxOfficeFee))
			return
		}
		t.click(ctx, input.Widget(WidgetOfficeRetrieve), "Retrieve", func() { t.looted, t.retrieved = true, true })
	case talkToDeath:
		t.click(ctx, input.Widget(WidgetOfficeTalk), "Talk-to", nil)
	case usePortal:
		t.click(ctx, input.Widget(WidgetOfficePortal), "Use", nil)
	case exitOffice:
		t.click(ctx, input.Widget(WidgetOfficeExit), "Exit", nil)
	case goToGravestone:
		t.approachGravestone(ctx)
	case waitCoordinates:
		if t.WaitExpired(t.cfg.CoordinateWaitTicks) {
			t.Fail("gravestone location unknown")
		}
	case returnTo:
		t.walkBack(ctx)
	case done:
		t.finish("recovered")
	}
}

// detect maps the current snapshot to the phase that should handle it.
func (t *Task) detect(ctx *task.Context) phase {
	d := ctx.Death
	switch {
	case ctx.Account.IsUltimate():
		// Ultimate accounts keep nothing on death.
		if _, ok := t.destination(ctx); ok {
			return returnTo
		}
		return done
	case d.DialogueOpen:
		return dialogue
	case d.GravestoneOpen:
		return lootGravestone
	case d.OfficeOpen:
		return retrieveOffice
	case d.InOffice:
		if d.GravestoneActive() {
			return usePortal
		}
		if t.looted {
			return exitOffice
		}
		return talkToDeath
	case d.GravestoneActive() && (d.GravestoneKnown || (t.cfg.PreferGravestone && t.cfg.HasDeathLocation)):
		return goToGravestone
	case d.GravestoneActive():
		return waitCoordinates
	case t.cfg.HasReturn && (t.retrieved || t.looted || t.sawDialogue):
		return returnTo
	}
	return done
}

func (t *Task) finish(outcome string) {
	t.outcome = outcome
	t.Complete()
}

func (t *Task) click(ctx *task.Context, target input.Target, label string, ok func()) {
	if t.attempts >= orDefault(t.cfg.MaxClicks, 4) {
		t.Fail(fmt.Sprintf("%s had no effect after %d clicks", label, t.attempts))
		return
	}
	t.attempts++
	f := ctx.Clicker.Click(target, label)
	t.Await(label, f, func(*task.Context) {
		if async.Succeeded(f) && ok != nil {
			ok()
		}
	})
}

func (t *Task) continueDialogue(ctx *task.Context) {
	if !t.read {
		t.Await("dialogue read", ctx.Timer.SleepProfile(t.cfg.DialogueDelay), func(*task.Context) { t.read = true })
		return
	}
	if t.attempts >= orDefault(t.cfg.MaxDialoguePresses, 8) {
		t.Fail(fmt.Sprintf("death dialogue still open after %d presses", t.attempts))
		return
	}
	t.attempts++
	t.read = false
	t.Await("dialogue continue", ctx.Keyboard.Press(input.KeySpace), nil)
}

func (t *Task) gravestoneTile(d game.Death) game.Point {
	if d.GravestoneKnown {
		return d.Gravestone
	}
	return t.cfg.DeathLocation
}

func (t *Task) approachGravestone(ctx *task.Context) {
	d := ctx.Death
	dest := t.gravestoneTile(d)
	if ctx.Player.Pos.DistanceTo(dest) <= 1 {
		t.click(ctx, input.Tile(dest), "Loot", nil)
		return
	}
	cost, ok := ctx.Walker.PathCost(ctx.Player.Pos, dest)
	if !ok || cost*2 > d.GravestoneTicks {
		ctx.Logger().Warn("gravestone unreachable before expiry", "cost", cost, "ticks_left", d.GravestoneTicks)
		t.finish("gravestone unreachable before expiry")
		return
	}
	if t.walks >= t.cfg.MaxWalks {
		t.Fail("could not reach gravestone")
		return
	}
	t.walks++
	t.Await("walk to gravestone", ctx.Walker.WalkTo(dest), nil)
}

// destination is where RETURN walks to. Ultimate accounts with no return
// location go back to where they died.
func (t *Task) destination(ctx *task.Context) (game.Point, bool) {
	switch {
	case t.cfg.HasReturn:
		return t.cfg.ReturnLocation, true
	case ctx.Account.IsUltimate() && t.cfg.HasDeathLocation:
		return t.cfg.DeathLocation, true
	}
	return game.Point{}, false
}

func (t *Task) walkBack(ctx *task.Context) {
	dest, ok := t.destination(ctx)
	if !ok || ctx.Player.Pos.DistanceTo(dest) <= t.cfg.ArrivalDistance {
		t.finish("returned")
		return
	}
	if t.walks >= t.cfg.MaxWalks {
		t.Fail("could not return to location")
		return
	}
	t.walks++
	t.Await("walk back", ctx.Walker.WalkTo(dest), nil)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
