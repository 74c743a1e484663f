package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tickbot.ai/internal/humanize"
)

type Tuning struct {
	TickRateHz int   `yaml:"tick_rate_hz"`
	Seed       int64 `yaml:"seed"` // 0 seeds from the clock

	Engine Engine `yaml:"engine"`
	Bridge Bridge `yaml:"bridge"`

	Profiles map[string]Profile `yaml:"profiles"`

	Drop   Drop   `yaml:"drop"`
	Trade  Trade  `yaml:"trade"`
	Combat Combat `yaml:"combat"`
}

type Engine struct {
	InactivityTicks int `yaml:"inactivity_ticks"`
	PendingTicks    int `yaml:"pending_ticks"`
	MaxRetries      int `yaml:"max_retries"`
	MaxPendingTicks int `yaml:"max_pending_ticks"`
}

type Bridge struct {
	AckTimeoutTicks    int `yaml:"ack_timeout_ticks"`
	MaxCommandsPerTick int `yaml:"max_commands_per_tick"`
}

// Profile overrides a named delay distribution. Durations are milliseconds;
// for gaussian profiles Spread is the standard deviation in milliseconds, for
// log-normal it is sigma.
type Profile struct {
	Dist     string  `yaml:"dist"`
	CenterMs int     `yaml:"center_ms"`
	Spread   float64 `yaml:"spread"`
	MinMs    int     `yaml:"min_ms"`
	MaxMs    int     `yaml:"max_ms"`
}

type Drop struct {
	DelayMinMs       int     `yaml:"delay_min_ms"`
	DelayMaxMs       int     `yaml:"delay_max_ms"`
	MicroPauseChance float64 `yaml:"micro_pause_chance"`
	ShiftPreMs       int     `yaml:"shift_pre_ms"`
	ShiftPostMs      int     `yaml:"shift_post_ms"`
}

type Trade struct {
	AcceptDelayMinMs int `yaml:"accept_delay_min_ms"`
	AcceptDelayMaxMs int `yaml:"accept_delay_max_ms"`
	MaxWaitTicks     int `yaml:"max_wait_ticks"`
}

type Combat struct {
	AttackDelayMinMs  int     `yaml:"attack_delay_min_ms"`
	AttackDelayMaxMs  int     `yaml:"attack_delay_max_ms"`
	LowHealthFraction float64 `yaml:"low_health_fraction"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 2,
		Engine: Engine{
			InactivityTicks: 100,
			PendingTicks:    50,
			MaxRetries:      2,
			MaxPendingTicks: 200,
		},
		Bridge: Bridge{AckTimeoutTicks: 10, MaxCommandsPerTick: 4},
		Drop: Drop{
			DelayMinMs:       80,
			DelayMaxMs:       200,
			MicroPauseChance: 0.07,
			ShiftPreMs:       100,
			ShiftPostMs:      50,
		},
		Trade:  Trade{AcceptDelayMinMs: 600, AcceptDelayMaxMs: 1800, MaxWaitTicks: 100},
		Combat: Combat{AttackDelayMinMs: 200, AttackDelayMaxMs: 800, LowHealthFraction: 0.30},
	}
}

// Load reads path over Defaults, so a partial file only changes what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be positive")
	case t.Engine.MaxRetries < 0:
		return fmt.Errorf("engine.max_retries must not be negative")
	case t.Bridge.AckTimeoutTicks <= 0:
		return fmt.Errorf("bridge.ack_timeout_ticks must be positive")
	case t.Drop.DelayMinMs > t.Drop.DelayMaxMs:
		return fmt.Errorf("drop delay min %d > max %d", t.Drop.DelayMinMs, t.Drop.DelayMaxMs)
	case t.Trade.AcceptDelayMinMs > t.Trade.AcceptDelayMaxMs:
		return fmt.Errorf("trade accept delay min %d > max %d", t.Trade.AcceptDelayMinMs, t.Trade.AcceptDelayMaxMs)
	case t.Combat.AttackDelayMinMs > t.Combat.AttackDelayMaxMs:
		return fmt.Errorf("combat attack delay min %d > max %d", t.Combat.AttackDelayMinMs, t.Combat.AttackDelayMaxMs)
	case t.Drop.MicroPauseChance < 0 || t.Drop.MicroPauseChance > 1:
		return fmt.Errorf("drop.micro_pause_chance must be within [0,1]")
	}
	for name, p := range t.Profiles {
		if _, err := humanize.ParseDistribution(p.Dist); err != nil {
			return fmt.Errorf("profiles.%s: %w", name, err)
		}
		if p.MinMs > p.MaxMs {
			return fmt.Errorf("profiles.%s: min %d > max %d", name, p.MinMs, p.MaxMs)
		}
	}
	return nil
}

func (t Tuning) TickInterval() time.Duration { return time.Second / time.Duration(t.TickRateHz) }

// Profile returns the built-in profile name with any override applied.
func (t Tuning) Profile(name string) (humanize.Profile, bool) {
	p, ok := humanize.Builtin()[name]
	o, over := t.Profiles[name]
	if !over {
		return p, ok
	}
	dist, err := humanize.ParseDistribution(o.Dist)
	if err != nil {
		return p, ok
	}
	p = humanize.Profile{
		Name:   name,
		Dist:   dist,
		Center: Ms(o.CenterMs),
		Spread: o.Spread,
		Min:    Ms(o.MinMs),
		Max:    Ms(o.MaxMs),
	}
	if dist == humanize.DistGaussian {
		p.Spread = float64(time.Millisecond) * o.Spread
	}
	return p, true
}

// Ms converts a millisecond setting.
func Ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
