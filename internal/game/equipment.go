package game

import "strings"

type EquipSlot int

const (
	SlotHead EquipSlot = iota
	SlotCape
	SlotAmulet
	SlotWeapon
	SlotBody
	SlotShield
	SlotLegs
	SlotGloves
	SlotBoots
	SlotRing
	SlotAmmo
	numEquipSlots
)

var slotNames = [...]string{"head", "cape", "amulet", "weapon", "body", "shield", "legs", "gloves", "boots", "ring", "ammo"}

func (s EquipSlot) String() string {
	if s < 0 || s >= numEquipSlots {
		return "unknown"
	}
	return slotNames[s]
}

// ParseEquipSlot accepts the lower-case names used in config files.
func ParseEquipSlot(name string) (EquipSlot, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range slotNames {
		if n == name {
			return EquipSlot(i), true
		}
	}
	return 0, false
}

type Equipment struct {
	Slots map[EquipSlot]Item `json:"slots"`
}

func (e Equipment) ItemIn(slot EquipSlot) (Item, bool) {
	it, ok := e.Slots[slot]
	if !ok || it.Empty() {
		return Item{}, false
	}
	return it, true
}

func (e Equipment) HasEquipped(id int) bool {
	for _, it := range e.Slots {
		if !it.Empty() && it.ID == id {
			return true
		}
	}
	return false
}

// WeaponID is -1 when nothing is wielded.
func (e Equipment) WeaponID() int {
	if it, ok := e.ItemIn(SlotWeapon); ok {
		return it.ID
	}
	return -1
}

// Style is the combat style a gear set is built for.
type Style int

const (
	StyleMelee Style = iota
	StyleRanged
	StyleMagic
)

func (s Style) String() string {
	switch s {
	case StyleRanged:
		return "RANGED"
	case StyleMagic:
		return "MAGIC"
	default:
		return "MELEE"
	}
}

func ParseStyle(s string) (Style, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MELEE":
		return StyleMelee, true
	case "RANGED":
		return StyleRanged, true
	case "MAGIC":
		return StyleMagic, true
	}
	return StyleMelee, false
}

type SlotItem struct {
	Slot   EquipSlot
	ItemID int
}

// GearSet is an ordered slot to item mapping.
type GearSet struct {
	Name  string
	Style Style
	Items []SlotItem
}

func (g GearSet) Empty() bool { return len(g.Items) == 0 }

func (g GearSet) IsEquipped(eq Equipment) bool {
	for _, si := range g.Items {
		it, ok := eq.ItemIn(si.Slot)
		if !ok || it.ID != si.ItemID {
			return false
		}
	}
	return true
}

// IsAvailable reports whether every piece is either worn or carried.
func (g GearSet) IsAvailable(inv Inventory, eq Equipment) bool {
	for _, si := range g.Items {
		if it, ok := eq.ItemIn(si.Slot); ok && it.ID == si.ItemID {
			continue
		}
		if !inv.Has(si.ItemID) {
			return false
		}
	}
	return true
}

// Missing lists the pieces not yet in their slot, in set order.
func (g GearSet) Missing(eq Equipment) []SlotItem {
	var out []SlotItem
	for _, si := range g.Items {
		if it, ok := eq.ItemIn(si.Slot); ok && it.ID == si.ItemID {
			continue
		}
		out = append(out, si)
	}
	return out
}

func (g GearSet) ItemIDs() []int {
	ids := make([]int, 0, len(g.Items))
	for _, si := range g.Items {
		ids = append(ids, si.ItemID)
	}
	return ids
}
