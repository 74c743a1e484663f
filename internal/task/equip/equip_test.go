package equip

import (
	"testing"

	"tickbot.ai/internal/game"
	"tickbot.ai/internal/task"
	"tickbot.ai/internal/task/tasktest"
)

const (
	scimitar = 1333
	shortbow = 841
	arrows   = 882
	staff    = 1381
)

type classes map[int]Class

func (c classes) Classify(id int) Class { return c[id] }

var catalog = classes{scimitar: ClassMelee, shortbow: ClassRanged, arrows: ClassAmmo, staff: ClassMagic}

func worn(items map[game.EquipSlot]int) game.Equipment {
	eq := game.Equipment{Slots: map[game.EquipSlot]game.Item{}}
	for s, id := range items {
		eq.Slots[s] = game.Item{ID: id, Quantity: 1}
	}
	return eq
}

func TestEquipFastPathsCompleteInOneCall(t *testing.T) {
	ranged := game.GearSet{Name: "ranged", Items: []game.SlotItem{
		{Slot: game.SlotWeapon, ItemID: shortbow},
		{Slot: game.SlotAmmo, ItemID: arrows},
	}}
	cases := []struct {
		name string
		cfg  Config
		eq   game.Equipment
	}{
		{"item", ForItems(scimitar), worn(map[game.EquipSlot]int{game.SlotWeapon: scimitar})},
		{"gear set", ForGearSet(ranged), worn(map[game.EquipSlot]int{game.SlotWeapon: shortbow, game.SlotAmmo: arrows})},
		{"ranged style", ForStyle(game.StyleRanged), worn(map[game.EquipSlot]int{game.SlotWeapon: shortbow})},
		{"magic style", ForStyle(game.StyleMagic), worn(map[game.EquipSlot]int{game.SlotWeapon: staff})},
		{"melee unarmed", ForStyle(game.StyleMelee), worn(nil)},
	}
	for _, tc := range cases {
		env := tasktest.NewEnv()
		eqt := New(tc.cfg, catalog)
		ctx := env.Context()
		ctx.Equipment = tc.eq
		ctx.Inventory = game.InventoryOf(game.Item{ID: staff, Quantity: 1})
		eqt.Execute(ctx)
		if eqt.State() != task.Completed {
			t.Fatalf("%s: state=%v reason=%q", tc.name, eqt.State(), eqt.FailureReason())
		}
		if env.Inputs() != 0 {
			t.Fatalf("%s: fast path issued %d inputs", tc.name, env.Inputs())
		}
	}
}

func TestEquipFirstAvailableItem(t *testing.T) {
	env := tasktest.NewEnv()
	eqt := New(ForItems(4151, scimitar), catalog)
	inv := game.InventoryOf(game.Item{ID: scimitar, Quantity: 1})
	eq := worn(nil)
	build := func() *task.Context {
		if len(env.Gear.Equipped) > 0 {
			eq = worn(map[game.EquipSlot]int{game.SlotWeapon: env.Gear.Equipped[0]})
		}
		ctx := env.Context()
		ctx.Inventory, ctx.Equipment = inv, eq
		return ctx
	}
	tasktest.RunUntilTerminal(eqt, 20, build)
	if eqt.State() != task.Completed {
		t.Fatalf("state=%v reason=%q", eqt.State(), eqt.FailureReason())
	}
	if len(env.Gear.Equipped) != 1 || env.Gear.Equipped[0] != scimitar {
		t.Fatalf("equipped=%v", env.Gear.Equipped)
	}
}

func TestEquipStyleDetectsRangedSet(t *testing.T) {
	env := tasktest.NewEnv()
	eqt := New(ForStyle(game.StyleRanged), catalog)
	ctx := env.Context()
	ctx.Equipment = worn(map[game.EquipSlot]int{game.SlotWeapon: scimitar})
	ctx.Inventory = game.InventoryOf(game.Item{ID: arrows, Quantity: 50}, game.Item{ID: shortbow, Quantity: 1})
	eqt.Execute(ctx)
	if eqt.Phase() != "SWITCH" {
		t.Fatalf("phase=%s", eqt.Phase())
	}
	want := []game.SlotItem{{Slot: game.SlotWeapon, ItemID: shortbow}, {Slot: game.SlotAmmo, ItemID: arrows}}
	if len(eqt.set.Items) != 2 || eqt.set.Items[0] != want[0] || eqt.set.Items[1] != want[1] {
		t.Fatalf("detected=%v", eqt.set.Items)
	}
}

func TestEquipStyleNothingAvailable(t *testing.T) {
	env := tasktest.NewEnv()
	eqt := New(ForStyle(game.StyleMagic), catalog)
	ctx := env.Context()
	ctx.Equipment = worn(map[game.EquipSlot]int{game.SlotWeapon: scimitar})
	if eqt.CanExecute(ctx) {
		t.Fatalf("no staff anywhere: not executable")
	}
	eqt.Execute(ctx)
	if eqt.State() != task.Pending {
		t.Fatalf("state=%v", eqt.State())
	}
}

func TestEquipVerifyIsHardWait(t *testing.T) {
	env := tasktest.NewEnv()
	eqt := New(ForItems(scimitar), catalog)
	build := func() *task.Context {
		ctx := env.Context()
		ctx.Inventory = game.InventoryOf(game.Item{ID: scimitar, Quantity: 1})
		return ctx
	}
	tasktest.RunUntilTerminal(eqt, 30, build)
	if eqt.State() != task.Failed || eqt.FailureReason() != "equipment not applied within 5 ticks" {
		t.Fatalf("state=%v reason=%q", eqt.State(), eqt.FailureReason())
	}
}

func TestEquipRequiresClassifierForStyle(t *testing.T) {
	env := tasktest.NewEnv()
	if New(ForStyle(game.StyleMelee), nil).CanExecute(env.Context()) {
		t.Fatalf("style mode without classifier must not run")
	}
	ctx := env.Context()
	ctx.Gear = nil
	ctx.Inventory = game.InventoryOf(game.Item{ID: scimitar, Quantity: 1})
	if New(ForItems(scimitar), nil).CanExecute(ctx) {
		t.Fatalf("missing gear switcher must gate execution")
	}
}
