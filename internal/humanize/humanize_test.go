package humanize

import (
	"context"
	"testing"
	"time"
)

func TestSourceBounds(t *testing.T) {
	s := NewSource(1)
	for i := 0; i < 1000; i++ {
		if v := s.Uniform(80, 200); v < 80 || v >= 200 {
			t.Fatalf("Uniform out of range: %v", v)
		}
		if v := s.UniformInt(3, 5); v < 3 || v > 5 {
			t.Fatalf("UniformInt out of range: %v", v)
		}
		if v := s.Gaussian(800, 400, 400, 2000); v < 400 || v > 2000 {
			t.Fatalf("Gaussian not clamped: %v", v)
		}
		d := s.HumanizedDelay(300*time.Millisecond, 0.8, 100*time.Millisecond, time.Second)
		if d < 100*time.Millisecond || d > time.Second {
			t.Fatalf("HumanizedDelay not clamped: %v", d)
		}
	}
	if s.Chance(0) || !s.Chance(1) {
		t.Fatalf("Chance edges")
	}
}

func TestSourceDeterministicPerSeed(t *testing.T) {
	a, b := NewSource(42), NewSource(42)
	for i := 0; i < 20; i++ {
		if a.Uniform(0, 1) != b.Uniform(0, 1) {
			t.Fatalf("same seed diverged at %d", i)
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	xs := []int{0, 1, 2, 3, 4, 5, 6, 7}
	Shuffle(NewSource(7), len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
	seen := map[int]bool{}
	for _, x := range xs {
		seen[x] = true
	}
	if len(seen) != 8 {
		t.Fatalf("not a permutation: %v", xs)
	}
}

func TestProfileSampleWithinBounds(t *testing.T) {
	s := NewSource(3)
	for name, p := range Builtin() {
		for i := 0; i < 200; i++ {
			d := p.Sample(s)
			if d < p.Min || d > p.Max {
				t.Fatalf("%s sample %v outside [%v,%v]", name, d, p.Min, p.Max)
			}
		}
	}
}

func TestParseDistribution(t *testing.T) {
	if d, err := ParseDistribution("humanized"); err != nil || d != DistLogNormal {
		t.Fatalf("humanized => %v %v", d, err)
	}
	if _, err := ParseDistribution("poisson"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWallTimerResolves(t *testing.T) {
	tm := NewWallTimer(NewSource(1))
	if !tm.Sleep(0).Ready() {
		t.Fatalf("zero sleep resolves immediately")
	}
	f := tm.Sleep(5 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := f.Wait(ctx); err != nil {
		t.Fatalf("sleep never resolved: %v", err)
	}
}
