package main

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickbot.ai/internal/persistence/indexdb"
	persistlog "tickbot.ai/internal/persistence/log"
	"tickbot.ai/internal/scheduler"
)

func configsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlanValidateShippedConfigs(t *testing.T) {
	out, err := execute(t, "plan", "validate", "--configs", configsDir(t))
	require.NoError(t, err)
	require.Contains(t, out, "ok (5 tasks)")
	require.Contains(t, out, "on death: death[")
}

func TestPlanValidateRejectsBadPlan(t *testing.T) {
	_, err := execute(t, "plan", "validate", "--configs", configsDir(t), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRunsFailuresAndEvents(t *testing.T) {
	data := t.TempDir()
	out, err := execute(t, "--data", data, "runs")
	require.NoError(t, err)
	require.Contains(t, out, "No runs recorded.")

	at := time.Now().Add(-2 * time.Hour)
	evs := []scheduler.Event{
		{RunID: "0123456789ab", Kind: "trade", Outcome: scheduler.OutcomeStarted, At: at},
		{RunID: "0123456789ab", Kind: "trade", Outcome: scheduler.OutcomeFailed, Reason: "trade partner declined", At: at},
		{RunID: "ffffffff0000", Kind: "bury", Outcome: scheduler.OutcomeCompleted, At: at},
	}
	idx, err := indexdb.OpenSQLite(filepath.Join(data, "index", "tickbot.sqlite"))
	require.NoError(t, err)
	l := persistlog.NewEventLogger(data, nil)
	for _, e := range evs {
		idx.TaskEvent(e)
		l.TaskEvent(e)
	}
	require.NoError(t, idx.Sync(context.Background()))
	require.NoError(t, idx.Close())
	require.NoError(t, l.Close())

	out, err = execute(t, "--data", data, "runs", "--kind", "bury")
	require.NoError(t, err)
	require.Contains(t, out, "ffffffff")
	require.NotContains(t, out, "01234567")

	out, err = execute(t, "--data", data, "failures")
	require.NoError(t, err)
	require.Contains(t, out, "trade partner declined")
	require.Contains(t, out, "2h ago")

	out, err = execute(t, "--data", data, "failures", "--by-reason")
	require.NoError(t, err)
	require.Contains(t, out, "1      trade")

	out, err = execute(t, "--data", data, "events", "0123")
	require.NoError(t, err)
	require.Contains(t, out, "failed")
	require.NotContains(t, out, "bury")
}
