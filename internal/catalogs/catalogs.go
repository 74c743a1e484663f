package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"tickbot.ai/internal/game"
	"tickbot.ai/internal/task/equip"
)

// Items is the item knowledge tasks need but the client does not send:
// which ids are bones, food or weapons, and the named gear sets.
type Items struct {
	Bones   []ItemDef
	Food    []ItemDef
	Weapons map[int]WeaponDef
	Ammo    map[int]ItemDef

	gear map[string]game.GearSet

	Digest string
}

type ItemDef struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Heals int    `yaml:"heals,omitempty"`
}

type WeaponDef struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Style string `yaml:"style"`
}

type gearDef struct {
	Name  string `yaml:"name"`
	Style string `yaml:"style"`
	Items []struct {
		Slot string `yaml:"slot"`
		Item int    `yaml:"item"`
	} `yaml:"items"`
}

type itemsFile struct {
	Bones    []ItemDef   `yaml:"bones"`
	Food     []ItemDef   `yaml:"food"`
	Weapons  []WeaponDef `yaml:"weapons"`
	Ammo     []ItemDef   `yaml:"ammo"`
	GearSets []gearDef   `yaml:"gear_sets"`
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func Load(path string) (*Items, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Items, error) {
	var f itemsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("items.yaml: %w", err)
	}
	out := &Items{
		Bones:   f.Bones,
		Food:    f.Food,
		Weapons: map[int]WeaponDef{},
		Ammo:    map[int]ItemDef{},
		gear:    map[string]game.GearSet{},
		Digest:  sha256Hex(raw),
	}
	seen := map[int]string{}
	claim := func(id int, what string) error {
		if id <= 0 {
			return fmt.Errorf("items.yaml: %s has invalid id %d", what, id)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("items.yaml: id %d listed as both %s and %s", id, prev, what)
		}
		seen[id] = what
		return nil
	}
	for _, d := range f.Bones {
		if err := claim(d.ID, "bone"); err != nil {
			return nil, err
		}
	}
	for _, d := range f.Food {
		if err := claim(d.ID, "food"); err != nil {
			return nil, err
		}
	}
	for _, d := range f.Weapons {
		if err := claim(d.ID, "weapon"); err != nil {
			return nil, err
		}
		if _, ok := game.ParseStyle(d.Style); !ok {
			return nil, fmt.Errorf("items.yaml: weapon %d: unknown style %q", d.ID, d.Style)
		}
		out.Weapons[d.ID] = d
	}
	for _, d := range f.Ammo {
		if err := claim(d.ID, "ammo"); err != nil {
			return nil, err
		}
		out.Ammo[d.ID] = d
	}

	for _, g := range f.GearSets {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, fmt.Errorf("items.yaml: gear set without a name")
		}
		if _, dup := out.gear[name]; dup {
			return nil, fmt.Errorf("items.yaml: duplicate gear set %q", name)
		}
		style, ok := game.ParseStyle(g.Style)
		if !ok {
			return nil, fmt.Errorf("items.yaml: gear set %q: unknown style %q", name, g.Style)
		}
		set := game.GearSet{Name: name, Style: style}
		used := map[game.EquipSlot]bool{}
		for _, it := range g.Items {
			slot, ok := game.ParseEquipSlot(it.Slot)
			if !ok {
				return nil, fmt.Errorf("items.yaml: gear set %q: unknown slot %q", name, it.Slot)
			}
			if used[slot] {
				return nil, fmt.Errorf("items.yaml: gear set %q: slot %s listed twice", name, slot)
			}
			used[slot] = true
			set.Items = append(set.Items, game.SlotItem{Slot: slot, ItemID: it.Item})
		}
		if set.Empty() {
			return nil, fmt.Errorf("items.yaml: gear set %q is empty", name)
		}
		out.gear[name] = set
	}
	return out, nil
}

// Classify implements equip.Classifier.
func (c *Items) Classify(itemID int) equip.Class {
	if _, ok := c.Ammo[itemID]; ok {
		return equip.ClassAmmo
	}
	w, ok := c.Weapons[itemID]
	if !ok {
		return equip.ClassOther
	}
	style, _ := game.ParseStyle(w.Style)
	switch style {
	case game.StyleRanged:
		return equip.ClassRanged
	case game.StyleMagic:
		return equip.ClassMagic
	default:
		return equip.ClassMelee
	}
}

func (c *Items) BoneIDs() []int { return ids(c.Bones) }
func (c *Items) FoodIDs() []int { return ids(c.Food) }

func (c *Items) GearSet(name string) (game.GearSet, bool) {
	g, ok := c.gear[name]
	return g, ok
}

func (c *Items) GearSetNames() []string {
	out := make([]string, 0, len(c.gear))
	for n := range c.gear {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func ids(defs []ItemDef) []int {
	out := make([]int, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}
