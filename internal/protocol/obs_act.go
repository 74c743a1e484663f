package protocol

// OBS (client -> bot), one per game tick.
type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	LoggedIn        bool   `json:"logged_in"`
	AccountMode     string `json:"account_mode,omitempty"`

	Self        SelfObs         `json:"self"`
	Inventory   []SlotObs       `json:"inventory"`
	Equipment   []EquipObs      `json:"equipment"`
	NPCs        []NPCObs        `json:"npcs,omitempty"`
	Players     []PlayerObs     `json:"players,omitempty"`
	GroundItems []GroundItemObs `json:"ground_items,omitempty"`
	Combat      CombatObs       `json:"combat"`
	Trade       *TradeObs       `json:"trade,omitempty"`
	Death       DeathObs        `json:"death"`

	// Acks report the outcome of commands sent in earlier ACT messages.
	Acks []AckObs `json:"acks,omitempty"`
	// Mouse is true while the client is still replaying a mouse path.
	MouseBusy bool `json:"mouse_busy,omitempty"`
}

type SelfObs struct {
	Name        string `json:"name"`
	Pos         [3]int `json:"pos"` // x, y, plane
	Animation   int    `json:"animation"`
	HP          int    `json:"hp"`
	MaxHP       int    `json:"max_hp"`
	Moving      bool   `json:"moving,omitempty"`
	Interacting bool   `json:"interacting,omitempty"`
	InCombat    bool   `json:"in_combat,omitempty"`
	TargetNPC   int    `json:"target_npc"` // -1 when none
	Dead        bool   `json:"dead,omitempty"`
}

type SlotObs struct {
	Slot int `json:"slot"`
	ID   int `json:"id"`
	Qty  int `json:"qty"`
}

type EquipObs struct {
	Slot string `json:"slot"`
	ID   int    `json:"id"`
	Qty  int    `json:"qty,omitempty"`
}

type NPCObs struct {
	Index       int    `json:"index"`
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Pos         [3]int `json:"pos"`
	Dead        bool   `json:"dead,omitempty"`
	InCombat    bool   `json:"in_combat,omitempty"`
	TargetingMe bool   `json:"targeting_me,omitempty"`
}

type PlayerObs struct {
	Name string `json:"name"`
	Pos  [3]int `json:"pos"`
}

type GroundItemObs struct {
	ID  int    `json:"id"`
	Qty int    `json:"qty"`
	Pos [3]int `json:"pos"`
}

type CombatObs struct {
	BeingAttacked bool  `json:"being_attacked,omitempty"`
	Aggressors    []int `json:"aggressors,omitempty"`
}

// ItemQty is one entry of a trade offer.
type ItemQty struct {
	ID  int `json:"id"`
	Qty int `json:"qty"`
}

type TradeObs struct {
	Stage         string    `json:"stage"` // "OFFER" or "CONFIRM"
	Partner       string    `json:"partner"`
	OtherAccepted bool      `json:"other_accepted,omitempty"`
	MyOffer       []ItemQty `json:"my_offer,omitempty"`
	TheirOffer    []ItemQty `json:"their_offer,omitempty"`
	TheirValue    int64     `json:"their_value,omitempty"`
	Receiving     []ItemQty `json:"receiving,omitempty"`
	// Readable is false when the confirmation list could not be parsed.
	Readable bool `json:"readable,omitempty"`
}

type DeathObs struct {
	DialogueOpen    bool    `json:"dialogue_open,omitempty"`
	GravestoneOpen  bool    `json:"gravestone_open,omitempty"`
	OfficeOpen      bool    `json:"office_open,omitempty"`
	InOffice        bool    `json:"in_office,omitempty"`
	GravestoneTicks int     `json:"gravestone_ticks,omitempty"`
	Gravestone      *[3]int `json:"gravestone,omitempty"`
	OfficeFee       int     `json:"office_fee,omitempty"`
}

type AckObs struct {
	ID   string `json:"id"`
	OK   bool   `json:"ok"`
	Code string `json:"code,omitempty"`
}

// ACT (bot -> client)
type ActMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Commands        []CommandReq `json:"commands,omitempty"`
}

// Command kinds.
const (
	CmdClick      = "CLICK"
	CmdMouseMove  = "MOUSE_MOVE"
	CmdMouseClick = "MOUSE_CLICK"
	CmdKeyPress   = "KEY_PRESS"
	CmdKeyHold    = "KEY_HOLD"
	CmdKeyRelease = "KEY_RELEASE"
	CmdType       = "TYPE"
	CmdWalk       = "WALK"
	CmdEquip      = "EQUIP"
	CmdGearSwitch = "GEAR_SWITCH"
)

type CommandReq struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	Target *TargetReq `json:"target,omitempty"`
	Label  string     `json:"label,omitempty"`
	Key    string     `json:"key,omitempty"`
	Text   string     `json:"text,omitempty"`
	Tile   *[3]int    `json:"tile,omitempty"`
	ItemID int        `json:"item_id,omitempty"`
	Set    string     `json:"set,omitempty"`
	Items  []EquipObs `json:"items,omitempty"`
}

// TargetReq fields not used by Kind are zero.
type TargetReq struct {
	Kind   string  `json:"kind"`
	Slot   int     `json:"slot"`
	Widget string  `json:"widget,omitempty"`
	NPC    int     `json:"npc"`
	Object int     `json:"object,omitempty"`
	Tile   *[3]int `json:"tile,omitempty"`
}
