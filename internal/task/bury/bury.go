// Package bury buries bones from the inventory one at a time.
package bury

import (
	"fmt"
	"time"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/input"
	"tickbot.ai/internal/task"
)

const Kind = "bury"

type phase int

const (
	findBone phase = iota
	clickBone
	waitBury
	delayBetween
)

func (p phase) String() string {
	switch p {
	case clickBone:
		return "CLICK_BONE"
	case waitBury:
		return "WAIT_BURY"
	case delayBetween:
		return "DELAY_BETWEEN"
	default:
		return "FIND_BONE"
	}
}

type Config struct {
	BoneIDs []int
	// MaxBones stops after this many; zero or less buries everything.
	MaxBones int
	// WaitTicks bounds the confirmation wait. Expiry counts as buried.
	WaitTicks        int
	BuryAnimation    int
	MaxClickFailures int
	Delay            humanize.Profile
	MicroPauseChance float64
	MicroPause       humanize.Profile
}

func DefaultConfig(boneIDs ...int) Config {
	return Config{
		BoneIDs:          boneIDs,
		WaitTicks:        8,
		BuryAnimation:    827,
		MaxClickFailures: 3,
		Delay:            humanize.ActionGap,
		MicroPauseChance: 0.07,
		MicroPause: humanize.Profile{
			Name: "micro_pause", Dist: humanize.DistLogNormal,
			Center: 900 * time.Millisecond, Spread: 0.4,
			Min: 400 * time.Millisecond, Max: 3 * time.Second,
		},
	}
}

type Task struct {
	task.Base
	cfg Config

	phase       phase
	slot        int
	boneID      int
	countBefore int
	clickFails  int
	paused      bool
	buried      int
}

func New(cfg Config) *Task {
	t := &Task{Base: task.NewBase(Kind, findBone.String()), cfg: cfg}
	t.phase = findBone
	return t
}

func (t *Task) Config() Config { return t.cfg }
func (t *Task) Buried() int    { return t.buried }

func (t *Task) CanExecute(ctx *task.Context) bool {
	return ctx.LoggedIn && ctx.Clicker != nil && ctx.Timer != nil && ctx.Random != nil &&
		ctx.Inventory.CountAny(t.cfg.BoneIDs) > 0
}

func (t *Task) Execute(ctx *task.Context) { t.Run(ctx, t.CanExecute, t.step) }

func (t *Task) ResetForRetry() {
	t.Reset()
	t.phase = findBone
	t.slot, t.boneID, t.countBefore = 0, 0, 0
	t.clickFails = 0
	t.paused = false
	t.buried = 0
}

func (t *Task) Description() string {
	return fmt.Sprintf("bury[max=%d buried=%d]", t.cfg.MaxBones, t.buried)
}

func (t *Task) to(p phase) {
	t.phase = p
	t.Transition(p.String())
}

func (t *Task) step(ctx *task.Context) {
	switch t.phase {
	case findBone:
		t.find(ctx)
	case clickBone:
		t.click(ctx)
	case waitBury:
		t.wait(ctx)
	case delayBetween:
		t.delay(ctx)
	}
}

func (t *Task) find(ctx *task.Context) {
	if t.cfg.MaxBones > 0 && t.buried >= t.cfg.MaxBones {
		t.Complete()
		return
	}
	slot := ctx.Inventory.FirstSlotOfAny(t.cfg.BoneIDs)
	if slot < 0 {
		if t.buried > 0 {
			t.Complete()
		} else {
			t.Fail("no bones found in inventory")
		}
		return
	}
	it, _ := ctx.Inventory.ItemAt(slot)
	t.slot, t.boneID = slot, it.ID
	t.to(clickBone)
}

func (t *Task) click(ctx *task.Context) {
	it, ok := ctx.Inventory.ItemAt(t.slot)
	if !ok || it.ID != t.boneID {
		t.to(findBone)
		return
	}
	if ctx.Clicker == nil {
		t.Fail("no click helper available")
		return
	}
	t.countBefore = ctx.Inventory.CountAny(t.cfg.BoneIDs)
	f := ctx.Clicker.Click(input.InventorySlot(t.slot), "Bury")
	t.Await("bury click", f, func(*task.Context) {
		if async.Succeeded(f) {
			t.clickFails = 0
			t.to(waitBury)
			return
		}
		t.clickFails++
		if t.clickFails >= t.cfg.MaxClickFailures {
			t.Fail(fmt.Sprintf("bury click failed %d times", t.clickFails))
			return
		}
		t.to(findBone)
	})
}

func (t *Task) wait(ctx *task.Context) {
	switch {
	case ctx.Player.Animation == t.cfg.BuryAnimation,
		ctx.Inventory.CountAny(t.cfg.BoneIDs) < t.countBefore:
		t.buried++
		t.to(delayBetween)
	case t.WaitExpired(t.cfg.WaitTicks):
		// Soft timeout: presume the bone went in.
		ctx.Logger().Debug("bury unconfirmed, assuming success", "slot", t.slot)
		t.buried++
		t.to(delayBetween)
	}
}

func (t *Task) delay(ctx *task.Context) {
	if ctx.Timer == nil || ctx.Random == nil {
		t.Fail("no timer available")
		return
	}
	if t.paused {
		d := t.cfg.MicroPause.Sample(ctx.Random)
		t.Await("micro pause", ctx.Timer.Sleep(d), func(*task.Context) {
			t.paused = false
			t.to(findBone)
		})
		return
	}
	t.Await("bury delay", ctx.Timer.SleepProfile(t.cfg.Delay), func(ctx *task.Context) {
		if ctx.Random != nil && ctx.Random.Chance(t.cfg.MicroPauseChance) {
			t.paused = true
			return
		}
		t.to(findBone)
	})
}
