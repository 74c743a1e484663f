// Package runner turns the client's OBS stream into executor ticks. It owns
// the single client session and starts death recovery on its own when the
// player dies.
package runner

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"tickbot.ai/internal/bridge"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/metrics"
	"tickbot.ai/internal/protocol"
	"tickbot.ai/internal/scheduler"
	"tickbot.ai/internal/task"
	"tickbot.ai/internal/task/death"
	"tickbot.ai/internal/transport/ws"
)

// DeathFactory builds a recovery task. diedAt is the last position seen
// alive; ok is false when no position was ever observed.
type DeathFactory func(diedAt game.Point, ok bool) task.Task

type Config struct {
	TickRateHz int
	Bridge     bridge.Config
}

type Runner struct {
	exec     *scheduler.Executor
	env      bridge.Env
	newDeath DeathFactory
	metrics  *metrics.Metrics
	log      *slog.Logger

	mu       sync.Mutex
	cfg      Config
	session  *bridge.Session
	wasDead  bool
	alivePos game.Point
	seenPos  bool
}

// New wires a runner. newDeath and m may be nil.
func New(cfg Config, exec *scheduler.Executor, env bridge.Env, newDeath DeathFactory, m *metrics.Metrics) *Runner {
	log := env.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{cfg: cfg, exec: exec, env: env, newDeath: newDeath, metrics: m, log: log}
}

// SetConfig applies to the next session; the attached one keeps its limits.
func (r *Runner) SetConfig(cfg Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

func (r *Runner) Hello(hello protocol.HelloMsg) (protocol.WelcomeMsg, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return protocol.WelcomeMsg{}, &ws.CodedError{Code: protocol.ErrBusy, Msg: "a client is already attached"}
	}
	bc := r.cfg.Bridge
	if n := hello.Capabilities.MaxCommands; n > 0 && (bc.MaxCommandsPerTick == 0 || n < bc.MaxCommandsPerTick) {
		bc.MaxCommandsPerTick = n
	}
	r.session = bridge.NewSession(bc)
	r.wasDead = false
	if r.metrics != nil {
		r.metrics.SetConnected(true)
	}
	r.log.Info("client attached", "session", r.session.ID, "client", hello.ClientName, "player", hello.Player, "account", hello.AccountMode)
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       r.session.ID,
		TickRateHz:      r.cfg.TickRateHz,
		AckTimeoutTicks: r.session.Config().AckTimeoutTicks,
	}, nil
}

// Obs runs one engine tick and returns the commands it produced.
func (r *Runner) Obs(obs *protocol.ObsMsg) protocol.ActMsg {
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	act := protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Tick: obs.Tick}
	if r.session == nil {
		return act
	}
	stats := r.session.Observe(obs)
	ctx := r.session.Context(obs, r.env)

	r.watchDeath(ctx)
	r.exec.Tick(ctx)

	act = r.session.Flush(obs.Tick)
	if r.metrics != nil {
		r.metrics.ObserveTick(time.Since(start), r.exec.Len(), stats)
	}
	return act
}

// watchDeath interrupts the queue once per death. The recovery task stays
// pending until the player has respawned.
func (r *Runner) watchDeath(ctx *task.Context) {
	dead := ctx.LoggedIn && ctx.Player.Dead
	if ctx.LoggedIn && !dead {
		r.alivePos, r.seenPos = ctx.Player.Pos, true
	}
	rising := dead && !r.wasDead
	r.wasDead = dead
	if !rising || r.newDeath == nil || r.exec.Urgent(death.Kind) {
		return
	}
	r.log.Warn("player died, starting recovery", "tick", ctx.Tick, "at", r.alivePos)
	r.exec.Interrupt(ctx, r.newDeath(r.alivePos, r.seenPos))
}

func (r *Runner) Disconnected(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.ID != sessionID {
		return
	}
	n := r.session.Abort(protocol.ErrStale)
	r.session = nil
	if r.metrics != nil {
		r.metrics.SetConnected(false)
	}
	r.log.Info("client detached", "session", sessionID, "aborted_commands", n)
}

// Attached reports whether a client session is open.
func (r *Runner) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}
