package bridge

import (
	"log/slog"

	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/protocol"
	"tickbot.ai/internal/task"
)

// Env holds the collaborators that do not go through the client.
type Env struct {
	Timer  humanize.Timer
	Random humanize.Random
	Log    *slog.Logger
}

// Context builds the per-tick task context from obs, wiring this session in
// as every input collaborator.
func (s *Session) Context(obs *protocol.ObsMsg, env Env) *task.Context {
	return &task.Context{
		Tick:      obs.Tick,
		LoggedIn:  obs.LoggedIn,
		Player:    player(obs.Self),
		Inventory: inventory(obs.Inventory),
		Equipment: equipment(obs.Equipment),
		World:     world(obs),
		Combat:    game.Combat{BeingAttacked: obs.Combat.BeingAttacked, Aggressors: obs.Combat.Aggressors},
		Account:   game.Account{Mode: game.ParseAccountMode(obs.AccountMode)},
		Trade:     trade(obs.Trade),
		Death:     death(obs.Death),

		Clicker:  s,
		Mouse:    s.Mouse(),
		Keyboard: s,
		Walker:   s,
		Gear:     s,

		Timer:  env.Timer,
		Random: env.Random,
		Log:    env.Log,
	}
}

func point(p [3]int) game.Point { return game.Point{X: p[0], Y: p[1], Plane: p[2]} }

func player(o protocol.SelfObs) game.Player {
	return game.Player{
		Name:        o.Name,
		Pos:         point(o.Pos),
		Animation:   o.Animation,
		HP:          o.HP,
		MaxHP:       o.MaxHP,
		Moving:      o.Moving,
		Interacting: o.Interacting,
		InCombat:    o.InCombat,
		TargetNPC:   o.TargetNPC,
		Dead:        o.Dead,
	}
}

// inventory drops entries with out-of-range slots.
func inventory(slots []protocol.SlotObs) game.Inventory {
	var inv game.Inventory
	for _, s := range slots {
		if s.Slot < 0 || s.Slot >= game.InventorySize {
			continue
		}
		inv.Slots[s.Slot] = game.Item{ID: s.ID, Quantity: s.Qty}
	}
	return inv
}

func equipment(items []protocol.EquipObs) game.Equipment {
	eq := game.Equipment{Slots: map[game.EquipSlot]game.Item{}}
	for _, it := range items {
		slot, ok := game.ParseEquipSlot(it.Slot)
		if !ok {
			continue
		}
		eq.Slots[slot] = game.Item{ID: it.ID, Quantity: max(it.Qty, 1)}
	}
	return eq
}

func world(obs *protocol.ObsMsg) game.World {
	var w game.World
	for _, n := range obs.NPCs {
		w.NPCs = append(w.NPCs, game.NPC{
			Index:       n.Index,
			ID:          n.ID,
			Name:        n.Name,
			Pos:         point(n.Pos),
			Dead:        n.Dead,
			InCombat:    n.InCombat,
			TargetingMe: n.TargetingMe,
		})
	}
	for _, p := range obs.Players {
		w.Players = append(w.Players, game.OtherPlayer{Name: p.Name, Pos: point(p.Pos)})
	}
	for _, g := range obs.GroundItems {
		w.GroundItems = append(w.GroundItems, game.GroundItem{ItemID: g.ID, Quantity: g.Qty, Pos: point(g.Pos)})
	}
	return w
}

func items(list []protocol.ItemQty) map[int]int {
	if list == nil {
		return nil
	}
	m := make(map[int]int, len(list))
	for _, it := range list {
		m[it.ID] += it.Qty
	}
	return m
}

func trade(o *protocol.TradeObs) game.Trade {
	if o == nil {
		return game.Trade{}
	}
	t := game.Trade{
		Partner:           o.Partner,
		OtherAccepted:     o.OtherAccepted,
		MyOffer:           items(o.MyOffer),
		TheirOffer:        items(o.TheirOffer),
		TheirValue:        o.TheirValue,
		Receiving:         items(o.Receiving),
		ReceivingReadable: o.Readable,
	}
	switch o.Stage {
	case "OFFER":
		t.Stage = game.TradeOffer
	case "CONFIRM":
		t.Stage = game.TradeConfirm
	}
	return t
}

func death(o protocol.DeathObs) game.Death {
	d := game.Death{
		DialogueOpen:    o.DialogueOpen,
		GravestoneOpen:  o.GravestoneOpen,
		OfficeOpen:      o.OfficeOpen,
		InOffice:        o.InOffice,
		GravestoneTicks: o.GravestoneTicks,
		OfficeFee:       o.OfficeFee,
	}
	if o.Gravestone != nil {
		d.GravestoneKnown = true
		d.Gravestone = point(*o.Gravestone)
	}
	return d
}
