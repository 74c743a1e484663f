package plan

import (
	"fmt"

	"tickbot.ai/internal/catalogs"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/task"
	"tickbot.ai/internal/task/bury"
	"tickbot.ai/internal/task/combat"
	"tickbot.ai/internal/task/death"
	"tickbot.ai/internal/task/drop"
	"tickbot.ai/internal/task/equip"
	"tickbot.ai/internal/task/trade"
	"tickbot.ai/internal/tuning"
)

// Builder turns plan entries into tasks using the current tuning. Build a new
// Builder after a tuning reload; tasks already built keep their settings.
type Builder struct {
	Tuning tuning.Tuning
	Items  *catalogs.Items
}

type timeouts interface {
	SetTimeouts(inactivity, pending int)
}

// Tasks builds every entry in order. The first bad entry aborts the build.
func (b Builder) Tasks(p *Plan) ([]task.Task, error) {
	out := make([]task.Task, 0, len(p.Tasks))
	for i, e := range p.Tasks {
		t, err := b.Task(e)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (b Builder) Task(e Entry) (task.Task, error) {
	var (
		t   task.Task
		err error
	)
	switch e.Kind {
	case bury.Kind:
		t, err = b.bury(e)
	case drop.Kind:
		t, err = b.drop(e)
	case equip.Kind:
		t, err = b.equip(e)
	case combat.Kind:
		t, err = b.combat(e)
	case trade.Kind:
		t, err = b.trade(e)
	case death.Kind:
		var dp DeathParams
		if err = e.Decode(&dp); err == nil {
			t = b.Death(&dp)
		}
	default:
		return nil, fmt.Errorf("unknown task kind %q", e.Kind)
	}
	if err != nil {
		return nil, err
	}
	b.applyTimeouts(t)
	return t, nil
}

func (b Builder) applyTimeouts(t task.Task) {
	if w, ok := t.(timeouts); ok {
		w.SetTimeouts(b.Tuning.Engine.InactivityTicks, b.Tuning.Engine.PendingTicks)
	}
}

func (b Builder) bury(e Entry) (task.Task, error) {
	var p BuryParams
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	ids := p.Bones
	if len(ids) == 0 && b.Items != nil {
		ids = b.Items.BoneIDs()
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("bury: no bone ids in params or item catalog")
	}
	cfg := bury.DefaultConfig(ids...)
	cfg.MaxBones = p.Max
	if pr, ok := b.Tuning.Profile("action_gap"); ok {
		cfg.Delay = pr
	}
	cfg.MicroPauseChance = b.Tuning.Drop.MicroPauseChance
	return bury.New(cfg), nil
}

func (b Builder) drop(e Entry) (task.Task, error) {
	var p DropParams
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	pattern, err := drop.ParsePattern(p.Pattern)
	if err != nil {
		return nil, err
	}
	d := b.Tuning.Drop
	cfg := drop.DefaultConfig(p.Keep, p.Items...)
	cfg.Pattern = pattern
	if p.Shift != nil {
		cfg.UseShift = *p.Shift
	}
	cfg.DropDelayMin, cfg.DropDelayMax = tuning.Ms(d.DelayMinMs), tuning.Ms(d.DelayMaxMs)
	cfg.MicroPauseChance = d.MicroPauseChance
	cfg.ShiftPreDelay, cfg.ShiftPostDelay = tuning.Ms(d.ShiftPreMs), tuning.Ms(d.ShiftPostMs)
	return drop.New(cfg), nil
}

func (b Builder) equip(e Entry) (task.Task, error) {
	var p EquipParams
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	var classes equip.Classifier
	if b.Items != nil {
		classes = b.Items
	}
	switch {
	case p.GearSet != "":
		if b.Items == nil {
			return nil, fmt.Errorf("equip: gear set %q needs an item catalog", p.GearSet)
		}
		set, ok := b.Items.GearSet(p.GearSet)
		if !ok {
			return nil, fmt.Errorf("equip: unknown gear set %q", p.GearSet)
		}
		return equip.New(equip.ForGearSet(set), classes), nil
	case p.Style != "":
		style, ok := game.ParseStyle(p.Style)
		if !ok {
			return nil, fmt.Errorf("equip: unknown style %q", p.Style)
		}
		if classes == nil {
			return nil, fmt.Errorf("equip: style %s needs an item catalog", style)
		}
		return equip.New(equip.ForStyle(style), classes), nil
	case len(p.Items) > 0:
		return equip.New(equip.ForItems(p.Items...), classes), nil
	}
	return nil, fmt.Errorf("equip: one of items, gear_set or style is required")
}

func (b Builder) combat(e Entry) (task.Task, error) {
	var p CombatParams
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	c := b.Tuning.Combat
	cfg := combat.DefaultConfig(p.Kills)
	cfg.AttackCount = p.Attacks
	cfg.MaxDurationTicks = p.MaxDurationTicks
	cfg.AttackDelayMin, cfg.AttackDelayMax = tuning.Ms(c.AttackDelayMinMs), tuning.Ms(c.AttackDelayMaxMs)
	cfg.LowHealthFraction = c.LowHealthFraction
	if p.SafeSpot != nil {
		cfg.UseSafeSpot, cfg.SafeSpot = true, *p.SafeSpot
	}
	if p.Eat || p.StopWhenOutOfFood {
		if b.Items == nil {
			return nil, fmt.Errorf("combat: food checks need an item catalog")
		}
		cfg.FoodIDs = b.Items.FoodIDs()
	}
	cfg.StopWhenOutOfFood = p.StopWhenOutOfFood
	cfg.StopWhenLowResources = p.StopWhenLowResources
	sel := combat.NearestSelector{NPCIDs: p.NPCIDs, Names: p.Names, MaxDistance: p.MaxDistance}
	return combat.New(cfg, nil, sel), nil
}

func (b Builder) trade(e Entry) (task.Task, error) {
	var p TradeParams
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	var cfg trade.Config
	switch p.Mode {
	case "random":
		cfg = trade.ForRandomTrade()
	case "decline":
		cfg = trade.ForDecline()
	case "", "offer":
		cfg = trade.DefaultConfig()
		cfg.Offer = stacks(p.Offer)
		cfg.Expected = stacks(p.Expected)
	default:
		return nil, fmt.Errorf("trade: unknown mode %q", p.Mode)
	}
	if p.Response != "" {
		cfg.SendResponse, cfg.ResponseMessage = true, p.Response
	}
	if p.Verify != nil {
		cfg.VerifySecondScreen = *p.Verify
	}
	t := b.Tuning.Trade
	cfg.AcceptDelayMin, cfg.AcceptDelayMax = tuning.Ms(t.AcceptDelayMinMs), tuning.Ms(t.AcceptDelayMaxMs)
	if p.Mode != "decline" {
		cfg.MaxWaitTicks = t.MaxWaitTicks
	}
	return trade.New(cfg), nil
}

func stacks(in []Stack) map[int]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[int]int, len(in))
	for _, s := range in {
		out[s.Item] += s.Qty
	}
	return out
}

// Death builds a recovery task. p may be nil.
func (b Builder) Death(p *DeathParams) *death.Task {
	cfg := death.DefaultConfig()
	if pr, ok := b.Tuning.Profile("dialogue_read"); ok {
		cfg.DialogueDelay = pr
	}
	if p != nil {
		if p.ReturnTo != nil {
			cfg = cfg.ReturningTo(*p.ReturnTo)
		}
		if p.DiedAt != nil {
			cfg = cfg.DiedAt(*p.DiedAt)
		}
		if p.PreferGravestone != nil {
			cfg.PreferGravestone = *p.PreferGravestone
		}
		if p.MaxOfficeFee != nil {
			cfg.MaxOfficeFee = *p.MaxOfficeFee
		}
	}
	t := death.New(cfg)
	b.applyTimeouts(t)
	return t
}
