// Package combat fights NPCs picked by a Selector until a kill, attack or
// duration limit is reached or resources run out.
package combat

import (
	"fmt"
	"math"
	"time"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/input"
	"tickbot.ai/internal/task"
)

const Kind = "combat"

// Coordinator runs alongside the task (eating, prayer, escapes). The task
// starts it on its first step and stops it when it ends.
type Coordinator interface {
	Start()
	Stop()
	// Ready reports whether it is safe to begin; required for hardcore accounts.
	Ready(ctx *task.Context) bool
}

// Selector picks the next NPC to attack, skipping excluded indices.
type Selector interface {
	Select(ctx *task.Context, exclude map[int]bool) (game.NPC, bool)
}

type Config struct {
	// KillCount and AttackCount are limits; zero means none. AttackCount wins
	// when both are set.
	KillCount        int
	AttackCount      int
	MaxDurationTicks int

	UseSafeSpot         bool
	SafeSpot            game.Point
	SafeSpotMaxDistance int
	MaxPositionAttempts int
	// MaxDragAttempts bounds walks away from a safe spot an aggressor is
	// standing on. Once used up the task attacks from where it is.
	MaxDragAttempts int

	AttackDelayMin time.Duration
	AttackDelayMax time.Duration

	FoodIDs              []int
	StopWhenOutOfFood    bool
	StopWhenLowResources bool
	LowHealthFraction    float64

	FindTargetTicks    int
	AttackConfirmTicks int
	IdleTicks          int
	// FailedTargetReset clears the excluded target set every N ticks.
	FailedTargetReset int
}

func DefaultConfig(kills int) Config {
	return Config{
		KillCount:           kills,
		SafeSpotMaxDistance: 2,
		MaxPositionAttempts: 5,
		MaxDragAttempts:     5,
		AttackDelayMin:      200 * time.Millisecond,
		AttackDelayMax:      800 * time.Millisecond,
		LowHealthFraction:   0.30,
		FindTargetTicks:     20,
		AttackConfirmTicks:  8,
		IdleTicks:           10,
		FailedTargetReset:   50,
	}
}

type phase int

const (
	findTarget phase = iota
	position
	attack
	monitor
)

func (p phase) String() string {
	switch p {
	case position:
		return "POSITION"
	case attack:
		return "ATTACK"
	case monitor:
		return "MONITOR"
	default:
		return "FIND_TARGET"
	}
}

type Task struct {
	task.Base
	cfg    Config
	coord  Coordinator
	sel    Selector

	phase      phase
	target     int
	targetSeen bool // target was alive on the last observation
	engaged    bool
	idle       int
	delayed    bool
	walks      int
	drags      int
	started    bool
	failed     map[int]bool
	lastClear  int
	kills      int
	attacks    int
	stopReason string
}

// New builds the task. coord may be nil for non-hardcore accounts.
func New(cfg Config, coord Coordinator, sel Selector) *Task {
	return &Task{
		Base:   task.NewBase(Kind, findTarget.String()),
		cfg:    cfg,
		coord:  coord,
		sel:    sel,
		target: -1,
		failed: map[int]bool{},
	}
}

func (t *Task) Config() Config { return t.cfg }
func (t *Task) Kills() int     { return t.kills }
func (t *Task) Attacks() int   { return t.attacks }

// StopReason explains a resource-driven completion; empty otherwise.
func (t *Task) StopReason() string { return t.stopReason }

func (t *Task) CanExecute(ctx *task.Context) bool {
	if !ctx.LoggedIn || ctx.Clicker == nil || ctx.Timer == nil || ctx.Random == nil || t.sel == nil {
		return false
	}
	if t.cfg.UseSafeSpot && ctx.Walker == nil {
		return false
	}
	if ctx.Account.IsHardcore() && (t.coord == nil || !t.coord.Ready(ctx)) {
		return false
	}
	return true
}

func (t *Task) Execute(ctx *task.Context) { t.Run(ctx, t.CanExecute, t.step) }

func (t *Task) ResetForRetry() {
	t.Reset()
	t.stopCoordinator()
	t.phase = findTarget
	t.target = -1
	t.targetSeen, t.engaged, t.delayed = false, false, false
	t.idle, t.walks, t.drags = 0, 0, 0
	t.failed = map[int]bool{}
	t.lastClear = 0
	t.kills, t.attacks = 0, 0
	t.stopReason = ""
}

func (t *Task) Cleanup(*task.Context) { t.stopCoordinator() }

func (t *Task) Description() string {
	s := fmt.Sprintf("combat[kills=%d/%d attacks=%d", t.kills, t.cfg.KillCount, t.attacks)
	if t.cfg.AttackCount > 0 {
		s += fmt.Sprintf("/%d", t.cfg.AttackCount)
	}
	if t.stopReason != "" {
		s += " stopped=" + t.stopReason
	}
	return s + "]"
}

func (t *Task) to(p phase) {
	t.phase = p
	t.delayed = false
	t.Transition(p.String())
}

func (t *Task) finish(reason string) {
	t.stopReason = reason
	t.stopCoordinator()
	t.Complete()
}

func (t *Task) stopCoordinator() {
	if t.started && t.coord != nil {
		t.coord.Stop()
	}
	t.started = false
}

func (t *Task) step(ctx *task.Context) {
	if !t.started {
		t.started = true
		if t.coord != nil {
			t.coord.Start()
		}
	}
	if t.cfg.MaxDurationTicks > 0 && t.Ticks() >= t.cfg.MaxDurationTicks {
		t.finish("duration reached")
		return
	}
	if reason := t.outOfResources(ctx); reason != "" {
		t.finish(reason)
		return
	}
	if t.observeTarget(ctx) {
		return
	}
	switch t.phase {
	case findTarget:
		t.find(ctx)
	case position:
		t.walk(ctx)
	case attack:
		t.attack(ctx)
	case monitor:
		t.monitor(ctx)
	}
}

func (t *Task) outOfResources(ctx *task.Context) string {
	if len(t.cfg.FoodIDs) == 0 {
		return ""
	}
	food := ctx.Inventory.CountAny(t.cfg.FoodIDs)
	switch {
	case t.cfg.StopWhenOutOfFood && food == 0:
		return "out of food"
	case t.cfg.StopWhenLowResources && food == 0 && ctx.Player.HealthFraction() < t.cfg.LowHealthFraction:
		return "low hitpoints and no food"
	}
	return ""
}

// observeTarget counts a kill when the active target turned from alive to
// dead since the previous tick. It reports whether the tick was consumed.
func (t *Task) observeTarget(ctx *task.Context) bool {
	if t.target < 0 {
		return false
	}
	npc, ok := ctx.World.NPCByIndex(t.target)
	alive := ok && !npc.Dead
	if t.targetSeen && ok && npc.Dead {
		t.kills++
		ctx.Logger().Info("kill", "npc", npc.Name, "index", npc.Index, "kills", t.kills)
		t.target = -1
		t.targetSeen = false
		t.to(findTarget)
		return true
	}
	t.targetSeen = alive
	return false
}

func (t *Task) limitReached() bool {
	if t.cfg.AttackCount > 0 {
		return t.attacks >= t.cfg.AttackCount
	}
	return t.cfg.KillCount > 0 && t.kills >= t.cfg.KillCount
}

func (t *Task) find(ctx *task.Context) {
	if t.limitReached() {
		t.finish("")
		return
	}
	if t.cfg.FailedTargetReset > 0 && t.Ticks()-t.lastClear >= t.cfg.FailedTargetReset {
		clear(t.failed)
		t.lastClear = t.Ticks()
	}
	npc, ok := t.sel.Select(ctx, t.failed)
	if !ok {
		if t.WaitExpired(t.cfg.FindTargetTicks) {
			if t.kills > 0 || t.attacks > 0 {
				t.finish("no more targets")
			} else {
				t.Fail(fmt.Sprintf("no target found within %d ticks", t.cfg.FindTargetTicks))
			}
		}
		return
	}
	t.target = npc.Index
	t.targetSeen = !npc.Dead
	t.engaged = false
	t.idle = 0
	t.walks, t.drags = 0, 0
	if t.offSafeSpot(ctx) || t.safeSpotBlocked(ctx) {
		t.to(position)
		return
	}
	t.to(attack)
}

func (t *Task) offSafeSpot(ctx *task.Context) bool {
	return t.cfg.UseSafeSpot && ctx.Player.Pos.DistanceTo(t.cfg.SafeSpot) > t.cfg.SafeSpotMaxDistance
}

// safeSpotBlocked reports whether an NPC attacking us stands on the safe spot.
func (t *Task) safeSpotBlocked(ctx *task.Context) bool {
	if !t.cfg.UseSafeSpot {
		return false
	}
	for _, idx := range ctx.Combat.Aggressors {
		if npc, ok := ctx.World.NPCByIndex(idx); ok && !npc.Dead && npc.Pos == t.cfg.SafeSpot {
			return true
		}
	}
	return false
}

// dragPoint is 3 to 5 tiles further from the safe spot than the player, or 4
// tiles in a random direction when standing on it.
func dragPoint(r humanize.Random, pos, spot game.Point) game.Point {
	dx, dy := float64(pos.X-spot.X), float64(pos.Y-spot.Y)
	if mag := math.Hypot(dx, dy); mag == 0 {
		angle := r.Uniform(0, 2*math.Pi)
		dx, dy = math.Cos(angle)*4, math.Sin(angle)*4
	} else {
		dist := float64(r.UniformInt(3, 5))
		dx, dy = dx/mag*dist, dy/mag*dist
	}
	return game.Point{X: pos.X + int(math.Round(dx)), Y: pos.Y + int(math.Round(dy)), Plane: pos.Plane}
}

func (t *Task) walk(ctx *task.Context) {
	if !t.offSafeSpot(ctx) {
		t.walks = 0
		if t.safeSpotBlocked(ctx) && ctx.Walker != nil {
			if t.drags < t.cfg.MaxDragAttempts {
				t.drags++
				dest := dragPoint(ctx.Random, ctx.Player.Pos, t.cfg.SafeSpot)
				ctx.Logger().Debug("safe spot blocked, dragging", "attempt", t.drags, "to", dest)
				t.Await("drag from safe spot", ctx.Walker.WalkTo(dest), nil)
				return
			}
			ctx.Logger().Warn("safe spot still blocked, attacking anyway", "drags", t.drags)
		}
		if t.engaged {
			t.to(monitor)
		} else {
			t.to(attack)
		}
		return
	}
	if ctx.Walker == nil {
		t.Fail("no walker available")
		return
	}
	if t.walks >= t.cfg.MaxPositionAttempts {
		t.Fail(fmt.Sprintf("could not reach safe spot after %d attempts", t.walks))
		return
	}
	t.walks++
	t.Await("walk to safe spot", ctx.Walker.WalkTo(t.cfg.SafeSpot), nil)
}

func (t *Task) attack(ctx *task.Context) {
	npc, ok := ctx.World.NPCByIndex(t.target)
	if !ok || npc.Dead {
		t.target = -1
		t.to(findTarget)
		return
	}
	if ctx.Mouse != nil && ctx.Mouse.Busy() {
		return
	}
	if !t.delayed {
		d := humanize.UniformDuration(ctx.Random, t.cfg.AttackDelayMin, t.cfg.AttackDelayMax)
		t.Await("attack delay", ctx.Timer.Sleep(d), func(*task.Context) { t.delayed = true })
		return
	}
	f := ctx.Clicker.Click(input.NPC(t.target), "Attack")
	t.Await("attack click", f, func(*task.Context) {
		if !async.Succeeded(f) {
			t.failed[t.target] = true
			t.target = -1
			t.to(findTarget)
			return
		}
		t.attacks++
		t.to(monitor)
	})
}

func (t *Task) monitor(ctx *task.Context) {
	if t.limitReached() {
		t.finish("")
		return
	}
	if t.offSafeSpot(ctx) {
		t.to(position)
		return
	}
	npc, ok := ctx.World.NPCByIndex(t.target)
	if !ok {
		// Despawned without a death we saw.
		t.target = -1
		t.to(findTarget)
		return
	}
	if ctx.Player.TargetNPC == t.target || npc.TargetingMe {
		t.engaged = true
		t.idle = 0
		t.Progress()
		return
	}
	if !t.engaged {
		if t.WaitExpired(t.cfg.AttackConfirmTicks) {
			t.failed[t.target] = true
			t.target = -1
			t.to(findTarget)
		}
		return
	}
	t.idle++
	if t.idle > t.cfg.IdleTicks {
		t.target = -1
		t.to(findTarget)
	}
}
