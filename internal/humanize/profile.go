package humanize

import (
	"fmt"
	"strings"
	"time"
)

type Distribution int

const (
	DistUniform Distribution = iota
	DistGaussian
	DistLogNormal
)

func (d Distribution) String() string {
	switch d {
	case DistGaussian:
		return "gaussian"
	case DistLogNormal:
		return "lognormal"
	default:
		return "uniform"
	}
}

func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uniform":
		return DistUniform, nil
	case "gaussian", "normal":
		return DistGaussian, nil
	case "lognormal", "log-normal", "humanized":
		return DistLogNormal, nil
	}
	return 0, fmt.Errorf("unknown distribution %q", s)
}

// Profile is a named delay distribution.
//
// Center is the mean for gaussian, the median for log-normal and unused for
// uniform. Spread is the standard deviation (gaussian, as a duration) or sigma
// (log-normal, dimensionless).
type Profile struct {
	Name   string
	Dist   Distribution
	Center time.Duration
	Spread float64
	Min    time.Duration
	Max    time.Duration
}

func (p Profile) Sample(r Random) time.Duration {
	switch p.Dist {
	case DistGaussian:
		v := r.Gaussian(float64(p.Center), p.Spread, float64(p.Min), float64(p.Max))
		return time.Duration(v)
	case DistLogNormal:
		return r.HumanizedDelay(p.Center, p.Spread, p.Min, p.Max)
	default:
		return UniformDuration(r, p.Min, p.Max)
	}
}

func (p Profile) String() string {
	return fmt.Sprintf("%s(%s center=%s spread=%g [%s,%s])", p.Name, p.Dist, p.Center, p.Spread, p.Min, p.Max)
}

var (
	ActionGap = Profile{
		Name: "action_gap", Dist: DistGaussian,
		Center: 800 * time.Millisecond, Spread: float64(200 * time.Millisecond),
		Min: 400 * time.Millisecond, Max: 2000 * time.Millisecond,
	}
	Reaction = Profile{
		Name: "reaction", Dist: DistLogNormal,
		Center: 250 * time.Millisecond, Spread: 0.3,
		Min: 150 * time.Millisecond, Max: 900 * time.Millisecond,
	}
	InventoryScan = Profile{
		Name: "inventory_scan", Dist: DistGaussian,
		Center: 300 * time.Millisecond, Spread: float64(80 * time.Millisecond),
		Min: 150 * time.Millisecond, Max: 600 * time.Millisecond,
	}
	MenuSelect = Profile{
		Name: "menu_select", Dist: DistGaussian,
		Center: 180 * time.Millisecond, Spread: float64(50 * time.Millisecond),
		Min: 80 * time.Millisecond, Max: 400 * time.Millisecond,
	}
	DialogueRead = Profile{
		Name: "dialogue_read", Dist: DistLogNormal,
		Center: 1200 * time.Millisecond, Spread: 0.35,
		Min: 600 * time.Millisecond, Max: 4000 * time.Millisecond,
	}
)

// Builtin returns the default profiles keyed by name.
func Builtin() map[string]Profile {
	out := map[string]Profile{}
	for _, p := range []Profile{ActionGap, Reaction, InventoryScan, MenuSelect, DialogueRead} {
		out[p.Name] = p
	}
	return out
}
