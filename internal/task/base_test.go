package task_test

import (
	"strings"
	"testing"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/task"
	"tickbot.ai/internal/task/tasktest"
)

// counter clicks slot 0 until it has n successful clicks.
type counter struct {
	task.Base
	n      int
	clicks int
	ready  bool
	hold   *async.Future[bool]
}

func newCounter(n int) *counter {
	return &counter{Base: task.NewBase("counter", "click"), n: n, ready: true}
}

func (c *counter) CanExecute(ctx *task.Context) bool { return c.ready && ctx.LoggedIn }
func (c *counter) Execute(ctx *task.Context)         { c.Run(ctx, c.CanExecute, c.step) }
func (c *counter) Description() string               { return "counter" }

func (c *counter) ResetForRetry() {
	c.Reset()
	c.clicks = 0
}

func (c *counter) step(ctx *task.Context) {
	if c.clicks >= c.n {
		c.Complete()
		return
	}
	f := c.hold
	if f == nil {
		f = async.Resolved(true)
	}
	c.Await("click", f, func(*task.Context) {
		if async.Succeeded(f) {
			c.clicks++
		}
	})
}

var _ task.Task = (*counter)(nil)

func TestStateTerminal(t *testing.T) {
	if task.Pending.Terminal() || task.Running.Terminal() {
		t.Fatalf("pending/running are not terminal")
	}
	if !task.Completed.Terminal() || !task.Failed.Terminal() {
		t.Fatalf("completed/failed are terminal")
	}
}

func TestGateKeepsPending(t *testing.T) {
	env := tasktest.NewEnv()
	c := newCounter(1)
	c.ready = false
	for i := 0; i < 5; i++ {
		c.Execute(env.Context())
	}
	if c.State() != task.Pending || c.Ticks() != 0 {
		t.Fatalf("state=%v ticks=%d", c.State(), c.Ticks())
	}
}

func TestOneUnitOfWorkPerTick(t *testing.T) {
	env := tasktest.NewEnv()
	c := newCounter(2)

	// click, settle, click, settle, complete
	want := []int{0, 1, 1, 2, 2}
	for i, w := range want {
		c.Execute(env.Context())
		if c.clicks != w {
			t.Fatalf("tick %d: clicks=%d want %d", i+1, c.clicks, w)
		}
	}
	if c.State() != task.Completed {
		t.Fatalf("state=%v", c.State())
	}
}

func TestTerminalIsNoop(t *testing.T) {
	env := tasktest.NewEnv()
	c := newCounter(1)
	tasktest.RunUntilTerminal(c, 10, env.Context)
	ticks, clicks := c.Ticks(), c.clicks
	for i := 0; i < 3; i++ {
		c.Execute(env.Context())
	}
	if c.State() != task.Completed || c.Ticks() != ticks || c.clicks != clicks {
		t.Fatalf("terminal task changed: state=%v ticks=%d clicks=%d", c.State(), c.Ticks(), c.clicks)
	}
}

func TestPendingTimeoutFails(t *testing.T) {
	env := tasktest.NewEnv()
	c := newCounter(1)
	c.PendingTimeout = 3
	c.hold = async.New[bool]()
	n := tasktest.RunUntilTerminal(c, 20, env.Context)
	if c.State() != task.Failed {
		t.Fatalf("state=%v", c.State())
	}
	if !strings.Contains(c.FailureReason(), "click did not finish") {
		t.Fatalf("reason=%q", c.FailureReason())
	}
	if n != 5 {
		t.Fatalf("failed after %d ticks, want 5", n)
	}
}

func TestResetDropsInflightFuture(t *testing.T) {
	env := tasktest.NewEnv()
	c := newCounter(3)
	f := async.New[bool]()
	c.hold = f
	c.Execute(env.Context())
	if !c.HasPending() {
		t.Fatalf("click should be outstanding")
	}
	c.ResetForRetry()
	if c.State() != task.Pending || c.HasPending() || c.Phase() != "click" || c.Ticks() != 0 {
		t.Fatalf("reset left state=%v pending=%v phase=%s ticks=%d", c.State(), c.HasPending(), c.Phase(), c.Ticks())
	}
	f.Resolve(true)
	c.hold = async.New[bool]()
	c.Execute(env.Context())
	c.Execute(env.Context())
	if c.clicks != 0 {
		t.Fatalf("late completion leaked into reset task: clicks=%d", c.clicks)
	}
	if c.n != 3 {
		t.Fatalf("configuration lost")
	}
}

// stuck never makes progress.
type stuck struct{ task.Base }

func (s *stuck) CanExecute(*task.Context) bool { return true }
func (s *stuck) Execute(ctx *task.Context)     { s.Run(ctx, s.CanExecute, func(*task.Context) {}) }
func (s *stuck) Description() string           { return "stuck" }
func (s *stuck) ResetForRetry()                { s.Reset() }

func TestInactivityTimeout(t *testing.T) {
	env := tasktest.NewEnv()
	s := &stuck{Base: task.NewBase("stuck", "idle")}
	s.InactivityTimeout = 4
	n := tasktest.RunUntilTerminal(s, 50, env.Context)
	if s.State() != task.Failed || n != 5 {
		t.Fatalf("state=%v after %d ticks", s.State(), n)
	}
	if s.FailureReason() != "no progress for 4 ticks" {
		t.Fatalf("reason=%q", s.FailureReason())
	}
}

func TestTransitionResetsPhaseTicks(t *testing.T) {
	b := task.NewBase("x", "a")
	b.Transition("b")
	if b.Phase() != "b" || b.PhaseTicks() != 0 || b.WaitExpired(0) {
		t.Fatalf("phase=%s ticks=%d", b.Phase(), b.PhaseTicks())
	}
}

func TestContextLoggerNilSafe(t *testing.T) {
	var ctx *task.Context
	ctx.Logger().Info("discarded")
	(&task.Context{}).Logger().Debug("discarded")
}
