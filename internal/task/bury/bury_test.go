package bury

import (
	"strings"
	"testing"
	"time"

	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/task"
	"tickbot.ai/internal/task/tasktest"
)

const bones = 526

func withBones(env *tasktest.Env, n int, anim int) func() *task.Context {
	return func() *task.Context {
		ctx := env.Context()
		items := make([]game.Item, n)
		for i := range items {
			items[i] = game.Item{ID: bones, Quantity: 1}
		}
		ctx.Inventory = game.InventoryOf(items...)
		ctx.Player.Animation = anim
		return ctx
	}
}

func TestBuryStopsAtMax(t *testing.T) {
	env := tasktest.NewEnv()
	cfg := DefaultConfig(bones)
	cfg.MaxBones = 5
	b := New(cfg)

	tasktest.RunUntilTerminal(b, 200, withBones(env, 3, cfg.BuryAnimation))
	if b.State() != task.Completed {
		t.Fatalf("state=%v reason=%q", b.State(), b.FailureReason())
	}
	if b.Buried() != 5 {
		t.Fatalf("buried=%d want 5", b.Buried())
	}
	if got := len(env.Clicker.Clicks); got != 5 {
		t.Fatalf("clicks=%d want 5", got)
	}
	for i, c := range env.Clicker.Clicks {
		if c.Label != "Bury" || c.Target.Slot != 0 {
			t.Fatalf("click %d = %v", i, c)
		}
	}
	if b.Description() != "bury[max=5 buried=5]" {
		t.Fatalf("description=%q", b.Description())
	}
}

func TestBuryNotExecutableWithoutBones(t *testing.T) {
	env := tasktest.NewEnv()
	b := New(DefaultConfig(bones))
	for i := 0; i < 5; i++ {
		b.Execute(env.Context())
	}
	if b.State() != task.Pending || len(env.Clicker.Clicks) != 0 {
		t.Fatalf("state=%v clicks=%d", b.State(), len(env.Clicker.Clicks))
	}

	ctx := withBones(env, 1, -1)()
	ctx.Clicker = nil
	if b.CanExecute(ctx) {
		t.Fatalf("missing click helper must gate execution")
	}
}

func TestBuryVanishedSlotLoopsBack(t *testing.T) {
	env := tasktest.NewEnv()
	b := New(DefaultConfig(bones))

	b.Execute(withBones(env, 1, -1)()) // find slot 0
	b.Execute(env.Context())           // bone gone before the click
	if len(env.Clicker.Clicks) != 0 {
		t.Fatalf("clicked a vanished bone")
	}
	if b.Phase() != "FIND_BONE" || b.State() != task.Running {
		t.Fatalf("phase=%s state=%v", b.Phase(), b.State())
	}
	b.Execute(env.Context())
	if b.State() != task.Failed || !strings.Contains(b.FailureReason(), "no bones") {
		t.Fatalf("state=%v reason=%q", b.State(), b.FailureReason())
	}
}

func TestBurySoftTimeoutCountsAsBuried(t *testing.T) {
	env := tasktest.NewEnv()
	cfg := DefaultConfig(bones)
	cfg.MaxBones = 1
	b := New(cfg)
	ctx := withBones(env, 2, -1)

	b.Execute(ctx()) // find
	b.Execute(ctx()) // click
	b.Execute(ctx()) // settle -> wait
	for i := 0; i < cfg.WaitTicks; i++ {
		b.Execute(ctx())
		if b.Buried() != 0 {
			t.Fatalf("counted before the wait expired (tick %d)", i)
		}
	}
	b.Execute(ctx())
	if b.Buried() != 1 || b.Phase() != "DELAY_BETWEEN" {
		t.Fatalf("buried=%d phase=%s", b.Buried(), b.Phase())
	}
}

func TestBuryDelayUsesProfileAndMicroPause(t *testing.T) {
	env := tasktest.NewEnv()
	env.Random.Chances = []bool{true}
	cfg := DefaultConfig(bones)
	cfg.MaxBones = 1
	b := New(cfg)

	tasktest.RunUntilTerminal(b, 50, withBones(env, 2, cfg.BuryAnimation))
	if b.State() != task.Completed {
		t.Fatalf("state=%v", b.State())
	}
	if len(env.Timer.Profiles) != 1 || env.Timer.Profiles[0].Name != humanize.ActionGap.Name {
		t.Fatalf("profiles=%v", env.Timer.Profiles)
	}
	chances := env.Random.Of("Chance")
	if len(chances) != 1 || chances[0].Args[0] != 0.07 {
		t.Fatalf("chance calls=%v", chances)
	}
	hd := env.Random.Of("HumanizedDelay")
	if len(hd) != 1 {
		t.Fatalf("micro pause not sampled: %v", env.Random.Calls)
	}
	if hd[0].Args[0] != float64(900*time.Millisecond) || hd[0].Args[1] != 0.4 {
		t.Fatalf("micro pause params=%v", hd[0].Args)
	}
	if len(env.Timer.Sleeps) != 1 || env.Timer.Sleeps[0] != 900*time.Millisecond {
		t.Fatalf("sleeps=%v", env.Timer.Sleeps)
	}
}

func TestBuryResetForRetry(t *testing.T) {
	env := tasktest.NewEnv()
	cfg := DefaultConfig(bones)
	cfg.MaxBones = 2
	b := New(cfg)
	tasktest.RunUntilTerminal(b, 100, withBones(env, 3, cfg.BuryAnimation))
	b.ResetForRetry()
	if b.State() != task.Pending || b.Buried() != 0 || b.Phase() != "FIND_BONE" {
		t.Fatalf("state=%v buried=%d phase=%s", b.State(), b.Buried(), b.Phase())
	}
	if b.Config().MaxBones != 2 {
		t.Fatalf("config lost")
	}
}
