// Package bridge connects the task engine to a game client speaking the
// HELLO/OBS/ACT protocol. Each collaborator call becomes a queued command; the
// client acknowledges commands in later OBS messages and the session resolves
// the matching futures.
package bridge

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/input"
	"tickbot.ai/internal/protocol"
)

type Config struct {
	// AckTimeoutTicks bounds how long a sent command may go unacknowledged.
	AckTimeoutTicks int
	// MaxCommandsPerTick caps one ACT message; 0 means no cap.
	MaxCommandsPerTick int
}

func DefaultConfig() Config {
	return Config{AckTimeoutTicks: 10, MaxCommandsPerTick: 4}
}

// CommandError is the rejection carried by Void futures.
type CommandError struct {
	Kind string
	Code string
}

func (e *CommandError) Error() string { return fmt.Sprintf("%s rejected: %s", e.Kind, e.Code) }

type pendingCmd struct {
	kind     string
	sent     bool
	sentTick uint64
	settle   func(ok bool, code string)
}

// Stats summarizes one Observe call.
type Stats struct {
	Acked    int
	Rejected int
	Expired  int
	Queued   int
}

type Session struct {
	ID  string
	cfg Config

	mu        sync.Mutex
	tick      uint64
	mouseBusy bool
	outbox    []protocol.CommandReq
	waiting   map[string]*pendingCmd
}

func NewSession(cfg Config) *Session {
	if cfg.AckTimeoutTicks <= 0 {
		cfg.AckTimeoutTicks = DefaultConfig().AckTimeoutTicks
	}
	return &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		waiting: map[string]*pendingCmd{},
	}
}

func (s *Session) Config() Config { return s.cfg }

func (s *Session) enqueue(req protocol.CommandReq, settle func(ok bool, code string)) {
	req.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, req)
	s.waiting[req.ID] = &pendingCmd{kind: req.Kind, settle: settle}
}

func (s *Session) enqueueBool(req protocol.CommandReq) *async.Future[bool] {
	f := async.New[bool]()
	s.enqueue(req, func(ok bool, _ string) { f.Resolve(ok) })
	return f
}

func (s *Session) enqueueVoid(req protocol.CommandReq) *async.Future[async.Void] {
	f := async.New[async.Void]()
	kind := req.Kind
	s.enqueue(req, func(ok bool, code string) {
		if ok {
			f.Resolve(async.Void{})
			return
		}
		f.Reject(&CommandError{Kind: kind, Code: code})
	})
	return f
}

// Observe applies the acknowledgements in obs and expires commands that
// have waited too long.
func (s *Session) Observe(obs *protocol.ObsMsg) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = obs.Tick
	s.mouseBusy = obs.MouseBusy

	var st Stats
	for _, ack := range obs.Acks {
		p, ok := s.waiting[ack.ID]
		if !ok {
			continue
		}
		delete(s.waiting, ack.ID)
		if ack.OK {
			st.Acked++
		} else {
			st.Rejected++
		}
		p.settle(ack.OK, ack.Code)
	}
	for id, p := range s.waiting {
		if p.sent && obs.Tick > p.sentTick+uint64(s.cfg.AckTimeoutTicks) {
			delete(s.waiting, id)
			st.Expired++
			p.settle(false, protocol.ErrTimeout)
		}
	}
	st.Queued = len(s.outbox)
	return st
}

// Flush drains queued commands into the ACT for tick.
func (s *Session) Flush(tick uint64) protocol.ActMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.outbox)
	if limit := s.cfg.MaxCommandsPerTick; limit > 0 && n > limit {
		n = limit
	}
	cmds := make([]protocol.CommandReq, n)
	copy(cmds, s.outbox[:n])
	s.outbox = append(s.outbox[:0], s.outbox[n:]...)
	for _, c := range cmds {
		if p, ok := s.waiting[c.ID]; ok {
			p.sent, p.sentTick = true, tick
		}
	}
	return protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Tick: tick, Commands: cmds}
}

// Abort fails every queued and outstanding command, for example when the
// client disconnects.
func (s *Session) Abort(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.waiting)
	for id, p := range s.waiting {
		delete(s.waiting, id)
		p.settle(false, code)
	}
	s.outbox = nil
	return n
}

// Outstanding counts commands not yet acknowledged.
func (s *Session) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiting)
}

func (s *Session) Click(t input.Target, label string) *async.Future[bool] {
	return s.enqueueBool(protocol.CommandReq{Kind: protocol.CmdClick, Target: targetReq(t), Label: label})
}

func (s *Session) Press(k input.Key) *async.Future[async.Void] {
	return s.enqueueVoid(protocol.CommandReq{Kind: protocol.CmdKeyPress, Key: string(k)})
}

func (s *Session) Hold(k input.Key) *async.Future[async.Void] {
	return s.enqueueVoid(protocol.CommandReq{Kind: protocol.CmdKeyHold, Key: string(k)})
}

func (s *Session) Release(k input.Key) *async.Future[async.Void] {
	return s.enqueueVoid(protocol.CommandReq{Kind: protocol.CmdKeyRelease, Key: string(k)})
}

func (s *Session) Type(text string) *async.Future[async.Void] {
	return s.enqueueVoid(protocol.CommandReq{Kind: protocol.CmdType, Text: text})
}

func (s *Session) WalkTo(p game.Point) *async.Future[bool] {
	tile := tileOf(p)
	return s.enqueueBool(protocol.CommandReq{Kind: protocol.CmdWalk, Tile: &tile})
}

// PathCost is a straight-line estimate; the client does not report paths.
func (s *Session) PathCost(from, to game.Point) (int, bool) {
	d := from.DistanceTo(to)
	if d == game.Unreachable {
		return 0, false
	}
	return d, true
}

func (s *Session) Equip(itemID int) *async.Future[bool] {
	return s.enqueueBool(protocol.CommandReq{Kind: protocol.CmdEquip, ItemID: itemID})
}

func (s *Session) SwitchTo(set game.GearSet) *async.Future[bool] {
	items := make([]protocol.EquipObs, 0, len(set.Items))
	for _, si := range set.Items {
		items = append(items, protocol.EquipObs{Slot: si.Slot.String(), ID: si.ItemID})
	}
	return s.enqueueBool(protocol.CommandReq{Kind: protocol.CmdGearSwitch, Set: set.Name, Items: items})
}

// Mouse returns the pointer collaborator backed by this session.
func (s *Session) Mouse() input.Mouse { return mouse{s} }

type mouse struct{ s *Session }

func (m mouse) MoveTo(t input.Target) *async.Future[async.Void] {
	return m.s.enqueueVoid(protocol.CommandReq{Kind: protocol.CmdMouseMove, Target: targetReq(t)})
}

func (m mouse) Click() *async.Future[async.Void] {
	return m.s.enqueueVoid(protocol.CommandReq{Kind: protocol.CmdMouseClick})
}

func (m mouse) Busy() bool {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.mouseBusy {
		return true
	}
	for _, p := range m.s.waiting {
		if p.kind == protocol.CmdMouseMove || p.kind == protocol.CmdMouseClick {
			return true
		}
	}
	return false
}

func tileOf(p game.Point) [3]int { return [3]int{p.X, p.Y, p.Plane} }

func targetReq(t input.Target) *protocol.TargetReq {
	r := &protocol.TargetReq{Kind: string(t.Kind)}
	switch t.Kind {
	case input.TargetInventorySlot:
		r.Slot = t.Slot
	case input.TargetWidget:
		r.Widget = t.Widget
	case input.TargetNPC:
		r.NPC = t.NPC
	case input.TargetObject:
		r.Object = t.Object
		tile := tileOf(t.Tile)
		r.Tile = &tile
	case input.TargetTile:
		tile := tileOf(t.Tile)
		r.Tile = &tile
	}
	return r
}
