package plan

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"tickbot.ai/internal/catalogs"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/task"
	"tickbot.ai/internal/task/bury"
	"tickbot.ai/internal/task/combat"
	"tickbot.ai/internal/task/death"
	"tickbot.ai/internal/task/drop"
	"tickbot.ai/internal/task/equip"
	"tickbot.ai/internal/task/tasktest"
	"tickbot.ai/internal/task/trade"
	"tickbot.ai/internal/tuning"
)

func configsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

func builder(t *testing.T) Builder {
	t.Helper()
	items, err := catalogs.Load(filepath.Join(configsDir(t), "items.yaml"))
	require.NoError(t, err)
	return Builder{Tuning: tuning.Defaults(), Items: items}
}

func TestShippedPlanBuilds(t *testing.T) {
	p, err := Load(filepath.Join(configsDir(t), "plan.yaml"))
	require.NoError(t, err)
	b := builder(t)

	tasks, err := b.Tasks(p)
	require.NoError(t, err)
	kinds := make([]string, 0, len(tasks))
	for _, tk := range tasks {
		kinds = append(kinds, tk.Kind())
		require.Equal(t, task.Pending, tk.State())
	}
	require.Equal(t, []string{"equip", "combat", "bury", "drop", "trade"}, kinds)

	c := tasks[1].(*combat.Task).Config()
	require.Equal(t, 25, c.KillCount)
	require.Contains(t, c.FoodIDs, 385)
	require.True(t, c.StopWhenOutOfFood)

	require.Equal(t, b.Items.BoneIDs(), tasks[2].(*bury.Task).Config().BoneIDs)
	require.Equal(t, drop.Column, tasks[3].(*drop.Task).Config().Pattern)
	require.Zero(t, tasks[4].(*trade.Task).Config().MaxWaitTicks)

	d := b.Death(p.OnDeath).Config()
	require.True(t, d.HasReturn)
	require.Equal(t, game.Point{X: 3222, Y: 3218}, d.ReturnLocation)
	require.Equal(t, 50000, d.MaxOfficeFee)
	require.True(t, d.PreferGravestone)
}

func TestSchemaRejects(t *testing.T) {
	cases := map[string]string{
		"no tasks":      "on_death: {}\n",
		"unknown kind":  "tasks: [{kind: fish}]\n",
		"drop no items": "tasks: [{kind: drop, params: {keep: 1}}]\n",
		"bad pattern":   "tasks: [{kind: drop, params: {items: [1], pattern: zigzag}}]\n",
		"two equips":    "tasks: [{kind: equip, params: {items: [1], style: magic}}]\n",
		"bad point":     "tasks: [{kind: death, params: {return_to: {x: 1}}}]\n",
		"stray field":   "tasks: [{kind: bury, params: {bones: [1], speed: 3}}]\n",
		"empty":         "",
	}
	for name, body := range cases {
		_, err := Parse([]byte(body))
		require.Error(t, err, name)
	}
}

func TestBuildErrors(t *testing.T) {
	b := Builder{Tuning: tuning.Defaults()}
	for name, body := range map[string]string{
		"bury without catalog": "tasks: [{kind: bury}]\n",
		"gear set no catalog":  "tasks: [{kind: equip, params: {gear_set: melee}}]\n",
		"style no catalog":     "tasks: [{kind: equip, params: {style: ranged}}]\n",
	} {
		p, err := Parse([]byte(body))
		require.NoError(t, err, name)
		_, err = b.Tasks(p)
		require.Error(t, err, name)
	}

	p, err := Parse([]byte("tasks: [{kind: equip, params: {gear_set: nope}}]\n"))
	require.NoError(t, err)
	_, err = builder(t).Tasks(p)
	require.ErrorContains(t, err, "unknown gear set")
}

func TestBuildAppliesTuning(t *testing.T) {
	b := builder(t)
	b.Tuning.Engine.InactivityTicks = 33
	b.Tuning.Engine.PendingTicks = 11
	b.Tuning.Trade.AcceptDelayMinMs = 100
	b.Tuning.Trade.AcceptDelayMaxMs = 200

	p, err := Parse([]byte(`
tasks:
  - kind: trade
    params:
      offer: [{item: 995, qty: 500}, {item: 995, qty: 500}]
      expected: [{item: 1333, qty: 1}]
      response: thanks
  - kind: equip
    params: {style: ranged}
  - kind: death
    params: {prefer_gravestone: false}
`))
	require.NoError(t, err)
	tasks, err := b.Tasks(p)
	require.NoError(t, err)

	tr := tasks[0].(*trade.Task)
	require.Equal(t, 33, tr.InactivityTimeout)
	require.Equal(t, 11, tr.PendingTimeout)
	cfg := tr.Config()
	require.Equal(t, map[int]int{995: 1000}, cfg.Offer)
	require.Equal(t, map[int]int{1333: 1}, cfg.Expected)
	require.True(t, cfg.SendResponse)
	require.Equal(t, "thanks", cfg.ResponseMessage)
	require.Equal(t, tuning.Ms(100), cfg.AcceptDelayMin)

	eq := tasks[1].(*equip.Task).Config()
	require.Equal(t, equip.ModeStyle, eq.Mode)
	require.Equal(t, game.StyleRanged, eq.Style)

	require.False(t, tasks[2].(*death.Task).Config().PreferGravestone)
}

func TestValidateChecksValues(t *testing.T) {
	require.NoError(t, Validate([]byte(`
on_death:
  return_to: {x: 3222, y: 3218, plane: 0}
  max_office_fee: 2147483647
tasks:
  - kind: drop
    params: {items: [1739], keep: 0}
`)))
	require.Error(t, Validate([]byte("tasks: [{kind: death, params: {return_to: {x: 1, y: 2, plane: 4}}}]\n")))
	require.Error(t, Validate([]byte("tasks: [{kind: drop, params: {items: [1739], keep: -1}}]\n")))
	require.Error(t, Validate([]byte("tasks: [{kind: drop, params: {items: [1.5]}}]\n")))
}

// Phase waits that do not report progress must run out before the
// inactivity watchdog, or the watchdog fails the task with a vaguer reason
// and skips the phase's own cleanup.
func TestBuiltWaitsFitInactivityBudget(t *testing.T) {
	b := builder(t)
	limit := b.Tuning.Engine.InactivityTicks
	p, err := Parse([]byte(`
tasks:
  - kind: bury
  - kind: equip
    params: {gear_set: melee}
  - kind: combat
    params: {names: [Cow]}
  - kind: trade
    params: {mode: random}
`))
	require.NoError(t, err)
	tasks, err := b.Tasks(p)
	require.NoError(t, err)

	waits := map[string]int{}
	for _, tk := range tasks {
		switch x := tk.(type) {
		case *bury.Task:
			waits["bury.wait"] = x.Config().WaitTicks
		case *equip.Task:
			waits["equip.verify"] = x.Config().VerifyTicks
		case *combat.Task:
			waits["combat.find"] = x.Config().FindTargetTicks
			waits["combat.confirm"] = x.Config().AttackConfirmTicks
		case *trade.Task:
			c := x.Config()
			waits["trade.open"] = c.OpenTicks
			waits["trade.second"] = c.SecondScreenTicks
			waits["trade.response"] = c.ResponseTicks
		}
	}
	waits["death.coordinates"] = b.Death(nil).Config().CoordinateWaitTicks
	require.Len(t, waits, 8)
	for name, w := range waits {
		require.Less(t, w, limit, name)
	}
}

func TestBuiltTradeDeclinesAtMaxWait(t *testing.T) {
	b := builder(t)
	b.Tuning.Trade.MaxWaitTicks = b.Tuning.Engine.InactivityTicks + 20
	p, err := Parse([]byte("tasks: [{kind: trade, params: {mode: random}}]\n"))
	require.NoError(t, err)
	tasks, err := b.Tasks(p)
	require.NoError(t, err)
	tr := tasks[0].(*trade.Task)

	env := tasktest.NewEnv()
	tasktest.RunUntilTerminal(tr, 500, func() *task.Context {
		ctx := env.Context()
		ctx.Trade.Stage = game.TradeOffer
		return ctx
	})
	require.Equal(t, task.Failed, tr.State())
	require.Equal(t, "trade timed out", tr.FailureReason())
	require.Len(t, env.Clicker.Clicks, 1)
	require.Equal(t, trade.WidgetDecline, env.Clicker.Clicks[0].Target.Widget)
}
