// Package equip puts on gear: the first available of a list of items, a named
// gear set, or whatever the inventory offers for a combat style.
package equip

import (
	"fmt"
	"strings"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/task"
)

const Kind = "equip"

type Mode int

const (
	ModeItems Mode = iota
	ModeGearSet
	ModeStyle
)

// Class is what a Classifier knows about an item.
type Class int

const (
	ClassOther Class = iota
	ClassMelee
	ClassRanged
	ClassMagic
	ClassAmmo
)

// Classifier maps item ids to weapon classes. Backed by config, not code.
type Classifier interface {
	Classify(itemID int) Class
}

type Config struct {
	Mode    Mode
	ItemIDs []int
	Set     game.GearSet
	Style   game.Style
	// VerifyTicks bounds the wait for equipment to reflect the switch.
	VerifyTicks int
}

const defaultVerifyTicks = 5

// ForItems equips the first of ids found in the inventory.
func ForItems(ids ...int) Config {
	return Config{Mode: ModeItems, ItemIDs: ids, VerifyTicks: defaultVerifyTicks}
}

func ForGearSet(set game.GearSet) Config {
	return Config{Mode: ModeGearSet, Set: set, VerifyTicks: defaultVerifyTicks}
}

func ForStyle(style game.Style) Config {
	return Config{Mode: ModeStyle, Style: style, VerifyTicks: defaultVerifyTicks}
}

type phase int

const (
	check phase = iota
	switchGear
	verify
)

func (p phase) String() string {
	switch p {
	case switchGear:
		return "SWITCH"
	case verify:
		return "VERIFY"
	default:
		return "CHECK"
	}
}

type Task struct {
	task.Base
	cfg     Config
	classes Classifier

	phase  phase
	itemID int
	set    game.GearSet
}

// New builds the task. classes may be nil unless cfg.Mode is ModeStyle.
func New(cfg Config, classes Classifier) *Task {
	return &Task{Base: task.NewBase(Kind, check.String()), cfg: cfg, classes: classes}
}

func (t *Task) Config() Config { return t.cfg }

func (t *Task) CanExecute(ctx *task.Context) bool {
	if !ctx.LoggedIn {
		return false
	}
	if t.cfg.Mode == ModeStyle && t.classes == nil {
		return false
	}
	if t.satisfied(ctx) {
		return true
	}
	if ctx.Gear == nil {
		return false
	}
	switch t.cfg.Mode {
	case ModeGearSet:
		return t.cfg.Set.IsAvailable(ctx.Inventory, ctx.Equipment)
	case ModeStyle:
		return !t.detect(ctx.Inventory).Empty()
	default:
		return ctx.Inventory.FirstSlotOfAny(t.cfg.ItemIDs) >= 0
	}
}

func (t *Task) Execute(ctx *task.Context) { t.Run(ctx, t.CanExecute, t.step) }

func (t *Task) ResetForRetry() {
	t.Reset()
	t.phase = check
	t.itemID = 0
	t.set = game.GearSet{}
}

func (t *Task) Description() string {
	switch t.cfg.Mode {
	case ModeGearSet:
		return fmt.Sprintf("equip[set=%s items=%d]", t.cfg.Set.Name, len(t.cfg.Set.Items))
	case ModeStyle:
		return fmt.Sprintf("equip[style=%s]", t.cfg.Style)
	}
	ids := make([]string, len(t.cfg.ItemIDs))
	for i, id := range t.cfg.ItemIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("equip[items=%s]", strings.Join(ids, ","))
}

func (t *Task) to(p phase) {
	t.phase = p
	t.Transition(p.String())
}

func (t *Task) step(ctx *task.Context) {
	switch t.phase {
	case check:
		t.check(ctx)
	case switchGear:
		t.switchGear(ctx)
	case verify:
		if t.satisfied(ctx) {
			t.Complete()
		} else if t.WaitExpired(t.cfg.VerifyTicks) {
			t.Fail(fmt.Sprintf("equipment not applied within %d ticks", t.cfg.VerifyTicks))
		}
	}
}

func (t *Task) check(ctx *task.Context) {
	if t.satisfied(ctx) {
		t.Complete()
		return
	}
	switch t.cfg.Mode {
	case ModeGearSet:
		if !t.cfg.Set.IsAvailable(ctx.Inventory, ctx.Equipment) {
			t.Fail(fmt.Sprintf("gear set %s not available", t.cfg.Set.Name))
			return
		}
		t.set = t.cfg.Set
	case ModeStyle:
		t.set = t.detect(ctx.Inventory)
		if t.set.Empty() {
			t.Fail(fmt.Sprintf("no gear available for attack style %s", t.cfg.Style))
			return
		}
	default:
		slot := ctx.Inventory.FirstSlotOfAny(t.cfg.ItemIDs)
		if slot < 0 {
			t.Fail("none of the requested items are available")
			return
		}
		it, _ := ctx.Inventory.ItemAt(slot)
		t.itemID = it.ID
	}
	t.to(switchGear)
}

func (t *Task) switchGear(ctx *task.Context) {
	if ctx.Gear == nil {
		t.Fail("no gear switcher available")
		return
	}
	var f *async.Future[bool]
	if t.cfg.Mode == ModeItems {
		f = ctx.Gear.Equip(t.itemID)
	} else {
		f = ctx.Gear.SwitchTo(t.set)
	}
	t.Await("gear switch", f, func(*task.Context) {
		if !async.Succeeded(f) {
			t.Fail("gear switch rejected")
			return
		}
		t.to(verify)
	})
}

// satisfied is the already-done fast path for each mode.
func (t *Task) satisfied(ctx *task.Context) bool {
	eq := ctx.Equipment
	switch t.cfg.Mode {
	case ModeGearSet:
		return t.cfg.Set.IsEquipped(eq)
	case ModeStyle:
		if t.classes == nil {
			return false
		}
		if !t.set.Empty() && t.set.IsEquipped(eq) {
			return true
		}
		return t.styleWorn(eq)
	default:
		for _, id := range t.cfg.ItemIDs {
			if eq.HasEquipped(id) {
				return true
			}
		}
		return false
	}
}

func (t *Task) styleWorn(eq game.Equipment) bool {
	weapon := eq.WeaponID()
	switch t.cfg.Style {
	case game.StyleRanged:
		return weapon > 0 && t.classes.Classify(weapon) == ClassRanged
	case game.StyleMagic:
		return weapon > 0 && t.classes.Classify(weapon) == ClassMagic
	default:
		if weapon <= 0 {
			return true
		}
		c := t.classes.Classify(weapon)
		return c != ClassRanged && c != ClassMagic
	}
}

// detect assembles a set for the configured style from carried items.
func (t *Task) detect(inv game.Inventory) game.GearSet {
	set := game.GearSet{Name: strings.ToLower(t.cfg.Style.String()), Style: t.cfg.Style}
	if t.classes == nil {
		return set
	}
	want := ClassMelee
	switch t.cfg.Style {
	case game.StyleRanged:
		want = ClassRanged
	case game.StyleMagic:
		want = ClassMagic
	}
	weapon, ammo := 0, 0
	for _, it := range inv.Slots {
		if it.Empty() {
			continue
		}
		c := t.classes.Classify(it.ID)
		if weapon == 0 && c == want {
			weapon = it.ID
		}
		if ammo == 0 && c == ClassAmmo {
			ammo = it.ID
		}
	}
	if weapon == 0 {
		return set
	}
	set.Items = append(set.Items, game.SlotItem{Slot: game.SlotWeapon, ItemID: weapon})
	if t.cfg.Style == game.StyleRanged && ammo != 0 {
		set.Items = append(set.Items, game.SlotItem{Slot: game.SlotAmmo, ItemID: ammo})
	}
	return set
}
