// Package humanize samples the delays and chance gates every task uses
// instead of fixed constants.
package humanize

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

type Random interface {
	// Uniform samples [min, max).
	Uniform(min, max float64) float64
	// UniformInt samples [min, max] inclusive.
	UniformInt(min, max int) int
	// Gaussian samples N(mean, stdDev) clamped to [min, max].
	Gaussian(mean, stdDev, min, max float64) float64
	// HumanizedDelay samples a log-normal delay with the given median and
	// sigma, clamped to [min, max].
	HumanizedDelay(median time.Duration, spread float64, min, max time.Duration) time.Duration
	Chance(p float64) bool
}

// Source is the production Random backed by math/rand.
type Source struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSource(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed))}
}

func (s *Source) Uniform(min, max float64) float64 {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.r.Float64()*(max-min)
}

func (s *Source) UniformInt(min, max int) int {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.r.Intn(max-min+1)
}

func (s *Source) Gaussian(mean, stdDev, min, max float64) float64 {
	s.mu.Lock()
	v := mean + s.r.NormFloat64()*stdDev
	s.mu.Unlock()
	return clamp(v, min, max)
}

func (s *Source) HumanizedDelay(median time.Duration, spread float64, min, max time.Duration) time.Duration {
	if median <= 0 {
		return min
	}
	mu := math.Log(float64(median))
	s.mu.Lock()
	v := math.Exp(mu + spread*s.r.NormFloat64())
	s.mu.Unlock()
	return time.Duration(clamp(v, float64(min), float64(max)))
}

func (s *Source) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64() < p
}

func clamp(v, lo, hi float64) float64 {
	if hi > lo {
		v = math.Min(v, hi)
	}
	return math.Max(v, lo)
}

// UniformDuration samples a duration in [min, max] through r.
func UniformDuration(r Random, min, max time.Duration) time.Duration {
	return time.Duration(r.Uniform(float64(min), float64(max)))
}

// Shuffle permutes n elements with Fisher-Yates driven by r.
func Shuffle(r Random, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.UniformInt(0, i)
		swap(i, j)
	}
}
