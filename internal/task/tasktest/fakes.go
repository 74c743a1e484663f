// Package tasktest provides deterministic, recording stand-ins for the task
// collaborators so behavior tests can assert exactly which inputs were issued
// and which distributions were sampled.
package tasktest

import (
	"fmt"
	"time"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/input"
	"tickbot.ai/internal/task"
)

// Call is one recorded Random invocation with its numeric arguments.
type Call struct {
	Method string
	Args   []float64
}

// Random returns the lower bound (or center) of every distribution and pops
// scripted Chance results, defaulting to false.
type Random struct {
	Calls   []Call
	Chances []bool
}

func (r *Random) record(m string, args ...float64) { r.Calls = append(r.Calls, Call{Method: m, Args: args}) }

func (r *Random) Uniform(min, max float64) float64 {
	r.record("Uniform", min, max)
	return min
}

func (r *Random) UniformInt(min, max int) int {
	r.record("UniformInt", float64(min), float64(max))
	return min
}

func (r *Random) Gaussian(mean, stdDev, min, max float64) float64 {
	r.record("Gaussian", mean, stdDev, min, max)
	return mean
}

func (r *Random) HumanizedDelay(median time.Duration, spread float64, min, max time.Duration) time.Duration {
	r.record("HumanizedDelay", float64(median), spread, float64(min), float64(max))
	return median
}

func (r *Random) Chance(p float64) bool {
	r.record("Chance", p)
	if len(r.Chances) == 0 {
		return false
	}
	v := r.Chances[0]
	r.Chances = r.Chances[1:]
	return v
}

func (r *Random) Of(method string) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Timer records requested sleeps. Sleeps resolve at once unless Hold is set.
type Timer struct {
	Sleeps   []time.Duration
	Profiles []humanize.Profile
	Hold     bool
	held     []*async.Future[async.Void]
}

func (t *Timer) future() *async.Future[async.Void] {
	f := async.New[async.Void]()
	if t.Hold {
		t.held = append(t.held, f)
	} else {
		f.Resolve(async.Void{})
	}
	return f
}

func (t *Timer) Sleep(d time.Duration) *async.Future[async.Void] {
	t.Sleeps = append(t.Sleeps, d)
	return t.future()
}

func (t *Timer) SleepProfile(p humanize.Profile) *async.Future[async.Void] {
	t.Profiles = append(t.Profiles, p)
	return t.future()
}

// Release resolves every held sleep.
func (t *Timer) Release() {
	for _, f := range t.held {
		f.Resolve(async.Void{})
	}
	t.held = nil
}

type Click struct {
	Target input.Target
	Label  string
}

// Clicker records clicks and resolves them with Fail inverted.
type Clicker struct {
	Clicks []Click
	Fail   bool
	Hold   bool
	held   []*async.Future[bool]
}

func (c *Clicker) Click(t input.Target, label string) *async.Future[bool] {
	c.Clicks = append(c.Clicks, Click{Target: t, Label: label})
	f := async.New[bool]()
	if c.Hold {
		c.held = append(c.held, f)
	} else {
		f.Resolve(!c.Fail)
	}
	return f
}

func (c *Clicker) Release(ok bool) {
	for _, f := range c.held {
		f.Resolve(ok)
	}
	c.held = nil
}

// Keyboard records events as "hold:SHIFT", "type:hello" and so on.
type Keyboard struct {
	Events []string
}

func (k *Keyboard) do(ev string) *async.Future[async.Void] {
	k.Events = append(k.Events, ev)
	return async.Resolved(async.Void{})
}

func (k *Keyboard) Press(key input.Key) *async.Future[async.Void]   { return k.do("press:" + string(key)) }
func (k *Keyboard) Hold(key input.Key) *async.Future[async.Void]    { return k.do("hold:" + string(key)) }
func (k *Keyboard) Release(key input.Key) *async.Future[async.Void] { return k.do("release:" + string(key)) }
func (k *Keyboard) Type(text string) *async.Future[async.Void]      { return k.do("type:" + text) }

type Mouse struct {
	Events []string
	IsBusy bool
}

func (m *Mouse) MoveTo(t input.Target) *async.Future[async.Void] {
	m.Events = append(m.Events, "move:"+t.String())
	return async.Resolved(async.Void{})
}

func (m *Mouse) Click() *async.Future[async.Void] {
	m.Events = append(m.Events, "click")
	return async.Resolved(async.Void{})
}

func (m *Mouse) Busy() bool { return m.IsBusy }

// Walker records destinations. PathCost is Chebyshev distance unless Cost is set.
type Walker struct {
	Walks []game.Point
	Fail  bool
	Cost  func(from, to game.Point) (int, bool)
}

func (w *Walker) WalkTo(p game.Point) *async.Future[bool] {
	w.Walks = append(w.Walks, p)
	return async.Resolved(!w.Fail)
}

func (w *Walker) PathCost(from, to game.Point) (int, bool) {
	if w.Cost != nil {
		return w.Cost(from, to)
	}
	return from.DistanceTo(to), true
}

type Gear struct {
	Equipped []int
	Switched []string
	Fail     bool
}

func (g *Gear) Equip(itemID int) *async.Future[bool] {
	g.Equipped = append(g.Equipped, itemID)
	return async.Resolved(!g.Fail)
}

func (g *Gear) SwitchTo(set game.GearSet) *async.Future[bool] {
	g.Switched = append(g.Switched, set.Name)
	return async.Resolved(!g.Fail)
}

func (g *Gear) Inputs() int { return len(g.Equipped) + len(g.Switched) }

// Env bundles one set of stand-ins and stamps them onto each tick's context.
type Env struct {
	Random   *Random
	Timer    *Timer
	Clicker  *Clicker
	Mouse    *Mouse
	Keyboard *Keyboard
	Walker   *Walker
	Gear     *Gear
	tick     uint64
}

func NewEnv() *Env {
	return &Env{
		Random:   &Random{},
		Timer:    &Timer{},
		Clicker:  &Clicker{},
		Mouse:    &Mouse{},
		Keyboard: &Keyboard{},
		Walker:   &Walker{},
		Gear:     &Gear{},
	}
}

// Context returns a fresh logged-in context for the next tick with every
// collaborator present.
func (e *Env) Context() *task.Context {
	e.tick++
	return &task.Context{
		Tick:     e.tick,
		LoggedIn: true,
		Player:   game.Player{Animation: -1, TargetNPC: -1, HP: 10, MaxHP: 10},
		Clicker:  e.Clicker,
		Mouse:    e.Mouse,
		Keyboard: e.Keyboard,
		Walker:   e.Walker,
		Gear:     e.Gear,
		Timer:    e.Timer,
		Random:   e.Random,
	}
}

// Inputs counts every input side effect issued so far.
func (e *Env) Inputs() int {
	return len(e.Clicker.Clicks) + len(e.Keyboard.Events) + len(e.Mouse.Events) + len(e.Walker.Walks) + e.Gear.Inputs()
}

// RunUntilTerminal executes t up to limit times, building each context with
// build, and returns the number of calls made.
func RunUntilTerminal(t task.Task, limit int, build func() *task.Context) int {
	for i := 1; i <= limit; i++ {
		t.Execute(build())
		if t.State().Terminal() {
			return i
		}
	}
	return limit
}

func (c Click) String() string { return fmt.Sprintf("%s %q", c.Target, c.Label) }
