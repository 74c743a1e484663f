package game

type TradeStage int

const (
	TradeClosed TradeStage = iota
	TradeOffer
	TradeConfirm
)

func (s TradeStage) String() string {
	switch s {
	case TradeOffer:
		return "offer"
	case TradeConfirm:
		return "confirm"
	default:
		return "closed"
	}
}

// Trade describes the trade window. Item maps are item id to quantity.
type Trade struct {
	Stage         TradeStage
	Partner       string
	OtherAccepted bool
	MyOffer       map[int]int
	TheirOffer    map[int]int
	TheirValue    int64
	// Receiving is the confirmation screen's list of incoming items.
	Receiving         map[int]int
	ReceivingReadable bool
}

func (t Trade) Open() bool { return t.Stage != TradeClosed }

// Death describes death-recovery interfaces and the gravestone.
type Death struct {
	DialogueOpen    bool
	GravestoneOpen  bool
	OfficeOpen      bool
	InOffice        bool
	GravestoneTicks int // ticks left, 0 when none
	GravestoneKnown bool
	Gravestone      Point
	// OfficeFee is the retrieval price shown by the office interface.
	OfficeFee int
}

func (d Death) GravestoneActive() bool { return d.GravestoneTicks > 0 }

// SameItems compares two id to quantity maps ignoring zero entries.
func SameItems(a, b map[int]int) bool {
	return containsAll(a, b) && containsAll(b, a)
}

// ContainsItems reports whether have holds at least every quantity in want.
func ContainsItems(have, want map[int]int) bool { return containsAll(have, want) }

func containsAll(have, want map[int]int) bool {
	for id, q := range want {
		if q <= 0 {
			continue
		}
		if have[id] < q {
			return false
		}
	}
	return true
}
