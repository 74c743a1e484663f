package tuning

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickbot.ai/internal/humanize"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadOverlaysDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	write(t, p, `
tick_rate_hz: 5
engine:
  max_retries: 4
drop:
  delay_min_ms: 50
  delay_max_ms: 90
`)
	tu, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 5, tu.TickRateHz)
	require.Equal(t, 4, tu.Engine.MaxRetries)
	require.Equal(t, 100, tu.Engine.InactivityTicks)
	require.Equal(t, 50, tu.Drop.DelayMinMs)
	require.Equal(t, 0.07, tu.Drop.MicroPauseChance)
	require.Equal(t, 200*time.Millisecond, tu.TickInterval())
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"rate":    "tick_rate_hz: 0\n",
		"range":   "trade:\n  accept_delay_min_ms: 900\n  accept_delay_max_ms: 100\n",
		"chance":  "drop:\n  micro_pause_chance: 1.5\n",
		"dist":    "profiles:\n  action_gap: {dist: bimodal, min_ms: 1, max_ms: 2}\n",
		"garbage": "tick_rate_hz: [\n",
	}
	for name, body := range cases {
		p := filepath.Join(dir, name+".yaml")
		write(t, p, body)
		_, err := Load(p)
		require.Error(t, err, name)
	}
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestProfileOverride(t *testing.T) {
	tu := Defaults()
	p, ok := tu.Profile("action_gap")
	require.True(t, ok)
	require.Equal(t, humanize.ActionGap, p)

	tu.Profiles = map[string]Profile{
		"action_gap":    {Dist: "gaussian", CenterMs: 500, Spread: 100, MinMs: 300, MaxMs: 900},
		"dialogue_read": {Dist: "lognormal", CenterMs: 1200, Spread: 0.3, MinMs: 600, MaxMs: 4000},
	}
	p, _ = tu.Profile("action_gap")
	require.Equal(t, humanize.DistGaussian, p.Dist)
	require.Equal(t, 500*time.Millisecond, p.Center)
	require.Equal(t, float64(100*time.Millisecond), p.Spread)

	p, _ = tu.Profile("dialogue_read")
	require.Equal(t, 0.3, p.Spread)
	require.Equal(t, 4*time.Second, p.Max)

	_, ok = tu.Profile("nope")
	require.False(t, ok)
}

func TestWatchReloads(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	write(t, p, "tick_rate_hz: 2\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Tuning, 4)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	go Watch(ctx, p, 20*time.Millisecond, log, func(tu Tuning) { got <- tu })

	// Give the watcher time to register before the first write.
	time.Sleep(100 * time.Millisecond)
	write(t, p, "tick_rate_hz: 0\n")
	time.Sleep(100 * time.Millisecond)
	write(t, p, "tick_rate_hz: 7\n")

	select {
	case tu := <-got:
		require.Equal(t, 7, tu.TickRateHz)
	case <-time.After(3 * time.Second):
		t.Fatalf("no reload observed")
	}
}

func TestShippedTuningLoads(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "configs", "tuning.yaml"))
	require.NoError(t, err)
	require.Equal(t, Defaults().Engine, tu.Engine)
	p, ok := tu.Profile("dialogue_read")
	require.True(t, ok)
	require.Equal(t, 4500*time.Millisecond, p.Max)
}
