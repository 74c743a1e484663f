// Package input declares the asynchronous input collaborators tasks drive.
// Every call returns immediately; the returned future completes when the
// client has performed (or refused) the interaction.
package input

import (
	"fmt"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/game"
)

type TargetKind string

const (
	TargetInventorySlot TargetKind = "INV_SLOT"
	TargetWidget        TargetKind = "WIDGET"
	TargetNPC           TargetKind = "NPC"
	TargetObject        TargetKind = "OBJECT"
	TargetTile          TargetKind = "TILE"
)

type Target struct {
	Kind   TargetKind
	Slot   int
	Widget string
	NPC    int
	Object int
	Tile   game.Point
}

func InventorySlot(slot int) Target { return Target{Kind: TargetInventorySlot, Slot: slot} }
func Widget(name string) Target     { return Target{Kind: TargetWidget, Widget: name} }
func NPC(index int) Target          { return Target{Kind: TargetNPC, NPC: index} }
func Tile(p game.Point) Target      { return Target{Kind: TargetTile, Tile: p} }

func Object(id int, at game.Point) Target {
	return Target{Kind: TargetObject, Object: id, Tile: at}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetInventorySlot:
		return fmt.Sprintf("slot:%d", t.Slot)
	case TargetWidget:
		return "widget:" + t.Widget
	case TargetNPC:
		return fmt.Sprintf("npc:%d", t.NPC)
	case TargetObject:
		return fmt.Sprintf("object:%d@%d,%d", t.Object, t.Tile.X, t.Tile.Y)
	default:
		return fmt.Sprintf("tile:%d,%d,%d", t.Tile.X, t.Tile.Y, t.Tile.Plane)
	}
}

// Clicker performs a single menu-labelled click on a target.
type Clicker interface {
	Click(t Target, label string) *async.Future[bool]
}

type Mouse interface {
	MoveTo(t Target) *async.Future[async.Void]
	Click() *async.Future[async.Void]
	// Busy reports an unfinished mouse operation.
	Busy() bool
}

type Key string

const (
	KeyShift  Key = "SHIFT"
	KeyEnter  Key = "ENTER"
	KeySpace  Key = "SPACE"
	KeyEscape Key = "ESCAPE"
)

type Keyboard interface {
	Press(k Key) *async.Future[async.Void]
	Hold(k Key) *async.Future[async.Void]
	Release(k Key) *async.Future[async.Void]
	Type(text string) *async.Future[async.Void]
}

type Walker interface {
	WalkTo(p game.Point) *async.Future[bool]
	// PathCost estimates travel ticks; ok is false when no path is known.
	PathCost(from, to game.Point) (ticks int, ok bool)
}

type GearSwitcher interface {
	Equip(itemID int) *async.Future[bool]
	SwitchTo(set game.GearSet) *async.Future[bool]
}
