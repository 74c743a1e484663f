// Package drop empties inventory slots holding configured items, keeping a
// per-item reserve, optionally with shift held down.
package drop

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/input"
	"tickbot.ai/internal/task"
)

const Kind = "drop"

type Pattern int

const (
	Sequential Pattern = iota
	Random
	Column
)

func (p Pattern) String() string {
	switch p {
	case Random:
		return "random"
	case Column:
		return "column"
	default:
		return "sequential"
	}
}

func ParsePattern(s string) (Pattern, error) {
	switch strings.ToLower(s) {
	case "", "sequential":
		return Sequential, nil
	case "random":
		return Random, nil
	case "column":
		return Column, nil
	}
	return Sequential, fmt.Errorf("unknown drop pattern %q", s)
}

type phase int

const (
	prepare phase = iota
	holdShift
	dropItems
	releaseShift
)

func (p phase) String() string {
	switch p {
	case holdShift:
		return "HOLD_SHIFT"
	case dropItems:
		return "DROP_ITEMS"
	case releaseShift:
		return "RELEASE_SHIFT"
	default:
		return "PREPARE"
	}
}

type Config struct {
	ItemIDs []int
	// Keep is the number of slots of each item id left untouched.
	Keep             int
	Pattern          Pattern
	UseShift         bool
	DropDelayMin     time.Duration
	DropDelayMax     time.Duration
	MicroPauseChance float64
	MicroPauseMin    time.Duration
	MicroPauseMax    time.Duration
	ShiftPreDelay    time.Duration
	ShiftPostDelay   time.Duration
}

func DefaultConfig(keep int, itemIDs ...int) Config {
	return Config{
		ItemIDs:          itemIDs,
		Keep:             max(keep, 0),
		UseShift:         true,
		DropDelayMin:     80 * time.Millisecond,
		DropDelayMax:     200 * time.Millisecond,
		MicroPauseChance: 0.07,
		MicroPauseMin:    400 * time.Millisecond,
		MicroPauseMax:    1200 * time.Millisecond,
		ShiftPreDelay:    100 * time.Millisecond,
		ShiftPostDelay:   50 * time.Millisecond,
	}
}

type queued struct {
	slot   int
	itemID int
}

type Task struct {
	task.Base
	cfg Config

	phase     phase
	queue     []queued
	settled   bool // sub-step of HOLD_SHIFT / RELEASE_SHIFT / DROP_ITEMS delay
	shiftHeld bool
	dropped   int
	skipped   int
}

func New(cfg Config) *Task {
	cfg.Keep = max(cfg.Keep, 0)
	return &Task{Base: task.NewBase(Kind, prepare.String()), cfg: cfg, phase: prepare}
}

func (t *Task) Config() Config { return t.cfg }
func (t *Task) Dropped() int   { return t.dropped }
func (t *Task) Skipped() int   { return t.skipped }

func (t *Task) CanExecute(ctx *task.Context) bool {
	if !ctx.LoggedIn || ctx.Clicker == nil || ctx.Timer == nil || ctx.Random == nil {
		return false
	}
	if t.cfg.UseShift && ctx.Keyboard == nil {
		return false
	}
	for _, id := range t.cfg.ItemIDs {
		if slotsOf(ctx.Inventory, id) > t.cfg.Keep {
			return true
		}
	}
	return false
}

func (t *Task) Execute(ctx *task.Context) { t.Run(ctx, t.CanExecute, t.step) }

func (t *Task) ResetForRetry() {
	t.Reset()
	t.phase = prepare
	t.queue = nil
	t.settled = false
	t.shiftHeld = false
	t.dropped, t.skipped = 0, 0
}

// Cleanup releases shift if the task ended while holding it.
func (t *Task) Cleanup(ctx *task.Context) {
	if t.shiftHeld && ctx.Keyboard != nil {
		ctx.Keyboard.Release(input.KeyShift)
		t.shiftHeld = false
	}
}

func (t *Task) Description() string {
	ids := make([]string, len(t.cfg.ItemIDs))
	for i, id := range t.cfg.ItemIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("drop[items=%s keep=%d pattern=%s dropped=%d]", strings.Join(ids, ","), t.cfg.Keep, t.cfg.Pattern, t.dropped)
}

func (t *Task) to(p phase) {
	t.phase = p
	t.settled = false
	t.Transition(p.String())
}

func (t *Task) step(ctx *task.Context) {
	if ctx.Timer == nil || ctx.Random == nil {
		t.Fail("no timer available")
		return
	}
	switch t.phase {
	case prepare:
		t.prepare(ctx)
	case holdShift:
		t.hold(ctx)
	case dropItems:
		t.drop(ctx)
	case releaseShift:
		t.release(ctx)
	}
}

func (t *Task) prepare(ctx *task.Context) {
	t.queue = plan(ctx.Inventory, t.cfg.ItemIDs, t.cfg.Keep)
	switch t.cfg.Pattern {
	case Random:
		humanize.Shuffle(ctx.Random, len(t.queue), func(i, j int) { t.queue[i], t.queue[j] = t.queue[j], t.queue[i] })
	case Column:
		sort.SliceStable(t.queue, func(i, j int) bool {
			a, b := t.queue[i].slot, t.queue[j].slot
			if a%4 != b%4 {
				return a%4 < b%4
			}
			return a/4 < b/4
		})
	}
	if len(t.queue) == 0 {
		t.Complete()
		return
	}
	if t.cfg.UseShift {
		t.to(holdShift)
	} else {
		t.to(dropItems)
	}
}

// plan lists droppable slots in inventory order, skipping the first keep
// slots of each id.
func plan(inv game.Inventory, ids []int, keep int) []queued {
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	kept := map[int]int{}
	var out []queued
	for slot, it := range inv.Slots {
		if it.Empty() || !want[it.ID] {
			continue
		}
		if kept[it.ID] < keep {
			kept[it.ID]++
			continue
		}
		out = append(out, queued{slot: slot, itemID: it.ID})
	}
	return out
}

func slotsOf(inv game.Inventory, id int) int {
	n := 0
	for _, it := range inv.Slots {
		if !it.Empty() && it.ID == id {
			n++
		}
	}
	return n
}

func (t *Task) hold(ctx *task.Context) {
	if ctx.Keyboard == nil {
		t.Fail("no keyboard available")
		return
	}
	if !t.settled {
		t.Await("shift pre-delay", ctx.Timer.Sleep(t.cfg.ShiftPreDelay), func(*task.Context) { t.settled = true })
		return
	}
	t.shiftHeld = true
	t.Await("shift hold", ctx.Keyboard.Hold(input.KeyShift), func(*task.Context) { t.to(dropItems) })
}

func (t *Task) drop(ctx *task.Context) {
	if t.settled {
		// Pause after the previous click.
		d := humanize.UniformDuration(ctx.Random, t.cfg.DropDelayMin, t.cfg.DropDelayMax)
		if len(t.queue) > 0 && ctx.Random.Chance(t.cfg.MicroPauseChance) {
			d += humanize.UniformDuration(ctx.Random, t.cfg.MicroPauseMin, t.cfg.MicroPauseMax)
		}
		t.settled = false
		t.Await("drop delay", ctx.Timer.Sleep(d), nil)
		return
	}
	if len(t.queue) == 0 {
		if t.shiftHeld {
			t.to(releaseShift)
		} else {
			t.Complete()
		}
		return
	}
	if ctx.Clicker == nil {
		t.Fail("no click helper available")
		return
	}
	next := t.queue[0]
	t.queue = t.queue[1:]
	it, ok := ctx.Inventory.ItemAt(next.slot)
	if !ok || it.ID != next.itemID {
		t.skipped++
		t.Progress()
		return
	}
	f := ctx.Clicker.Click(input.InventorySlot(next.slot), "Drop")
	t.Await("drop click", f, func(*task.Context) {
		if async.Succeeded(f) {
			t.dropped++
		}
		t.settled = true
	})
}

func (t *Task) release(ctx *task.Context) {
	if ctx.Keyboard == nil {
		t.Fail("no keyboard available")
		return
	}
	if !t.settled {
		f := ctx.Keyboard.Release(input.KeyShift)
		t.Await("shift release", f, func(ctx *task.Context) {
			if _, err := f.Result(); err != nil {
				ctx.Logger().Warn("shift release failed", "err", err)
			}
			t.shiftHeld = false
			t.settled = true
		})
		return
	}
	t.Await("shift post-delay", ctx.Timer.Sleep(t.cfg.ShiftPostDelay), func(*task.Context) { t.Complete() })
}
