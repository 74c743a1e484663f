package game

type Player struct {
	Name        string
	Pos         Point
	Animation   int // -1 idle
	HP          int
	MaxHP       int
	Moving      bool
	Interacting bool
	InCombat    bool
	TargetNPC   int // NPC index, -1 none
	Dead        bool
}

func (p Player) Idle() bool { return p.Animation < 0 && !p.Moving }

// HealthFraction is 1 when MaxHP is unknown.
func (p Player) HealthFraction() float64 {
	if p.MaxHP <= 0 {
		return 1
	}
	return float64(p.HP) / float64(p.MaxHP)
}

type NPC struct {
	Index       int // unique per spawn
	ID          int
	Name        string
	Pos         Point
	Dead        bool
	InCombat    bool
	TargetingMe bool
}

type OtherPlayer struct {
	Name string
	Pos  Point
}

type GroundItem struct {
	ItemID   int
	Quantity int
	Pos      Point
}

type World struct {
	NPCs        []NPC
	Players     []OtherPlayer
	GroundItems []GroundItem
}

func (w World) NPCByIndex(index int) (NPC, bool) {
	for _, n := range w.NPCs {
		if n.Index == index {
			return n, true
		}
	}
	return NPC{}, false
}

type Combat struct {
	BeingAttacked bool
	Aggressors    []int // NPC indices attacking the player
}

type AccountMode int

const (
	AccountNormal AccountMode = iota
	AccountIronman
	AccountHardcore
	AccountUltimate
	AccountGroupIronman
)

func (m AccountMode) String() string {
	switch m {
	case AccountIronman:
		return "IRONMAN"
	case AccountHardcore:
		return "HARDCORE_IRONMAN"
	case AccountUltimate:
		return "ULTIMATE_IRONMAN"
	case AccountGroupIronman:
		return "GROUP_IRONMAN"
	default:
		return "NORMAL"
	}
}

func ParseAccountMode(s string) AccountMode {
	for m := AccountNormal; m <= AccountGroupIronman; m++ {
		if m.String() == s {
			return m
		}
	}
	return AccountNormal
}

type Account struct {
	Mode AccountMode
}

func (a Account) IsIronman() bool { return a.Mode != AccountNormal }
func (a Account) IsHardcore() bool { return a.Mode == AccountHardcore }
func (a Account) IsUltimate() bool { return a.Mode == AccountUltimate }
