package game

const InventorySize = 28

// Item with ID <= 0 is an empty slot.
type Item struct {
	ID       int `json:"id"`
	Quantity int `json:"qty"`
}

func (it Item) Empty() bool { return it.ID <= 0 }

type Inventory struct {
	Slots [InventorySize]Item `json:"slots"`
}

// InventoryOf packs items into the first slots. Test and bridge helper.
func InventoryOf(items ...Item) Inventory {
	var inv Inventory
	for i, it := range items {
		if i >= InventorySize {
			break
		}
		inv.Slots[i] = it
	}
	return inv
}

func (inv Inventory) ItemAt(slot int) (Item, bool) {
	if slot < 0 || slot >= InventorySize || inv.Slots[slot].Empty() {
		return Item{}, false
	}
	return inv.Slots[slot], true
}

// Count sums quantities of id across slots.
func (inv Inventory) Count(id int) int {
	n := 0
	for _, it := range inv.Slots {
		if !it.Empty() && it.ID == id {
			n += max(it.Quantity, 1)
		}
	}
	return n
}

func (inv Inventory) CountAny(ids []int) int {
	n := 0
	for _, id := range ids {
		n += inv.Count(id)
	}
	return n
}

func (inv Inventory) Has(id int) bool { return inv.SlotOf(id) >= 0 }

// SlotOf returns the first slot holding id, or -1.
func (inv Inventory) SlotOf(id int) int {
	for i, it := range inv.Slots {
		if !it.Empty() && it.ID == id {
			return i
		}
	}
	return -1
}

// FirstSlotOfAny returns the first slot holding any of ids, or -1.
func (inv Inventory) FirstSlotOfAny(ids []int) int {
	for i, it := range inv.Slots {
		if it.Empty() {
			continue
		}
		for _, id := range ids {
			if it.ID == id {
				return i
			}
		}
	}
	return -1
}

func (inv Inventory) EmptySlots() int {
	n := 0
	for _, it := range inv.Slots {
		if it.Empty() {
			n++
		}
	}
	return n
}

func (inv Inventory) IsFull() bool { return inv.EmptySlots() == 0 }
