// Package trade completes a two-screen player trade: offer screen, then
// confirmation screen, with optional verification of what is received.
package trade

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"tickbot.ai/internal/async"
	"tickbot.ai/internal/game"
	"tickbot.ai/internal/humanize"
	"tickbot.ai/internal/input"
	"tickbot.ai/internal/task"
)

const Kind = "trade"

// Widget names the bridge resolves to trade window buttons.
const (
	WidgetAccept        = "trade.offer.accept"
	WidgetDecline       = "trade.offer.decline"
	WidgetConfirmAccept = "trade.confirm.accept"
)

type Config struct {
	// Offer is what we put up, item id to quantity. Empty means passive.
	Offer map[int]int
	// Expected is the minimum we must receive, checked on the second screen.
	Expected           map[int]int
	VerifySecondScreen bool
	SendResponse       bool
	ResponseMessage    string

	OpenTicks         int
	MaxWaitTicks      int
	SecondScreenTicks int
	ResponseTicks     int
	AcceptDelayMin    time.Duration
	AcceptDelayMax    time.Duration
}

func DefaultConfig() Config {
	return Config{
		VerifySecondScreen: true,
		ResponseMessage:    "Ty!",
		OpenTicks:          10,
		MaxWaitTicks:       100,
		SecondScreenTicks:  20,
		ResponseTicks:      10,
		AcceptDelayMin:     600 * time.Millisecond,
		AcceptDelayMax:     1800 * time.Millisecond,
	}
}

// ForRandomTrade accepts whatever a stranger offers and thanks them.
func ForRandomTrade() Config {
	c := DefaultConfig()
	c.SendResponse = true
	return c
}

// ForDecline declines as soon as the offer screen opens.
func ForDecline() Config {
	c := DefaultConfig()
	c.MaxWaitTicks = 0
	return c
}

func (c Config) Passive() bool           { return len(c.Offer) == 0 }
func (c Config) HasExpectedItems() bool  { return len(c.Expected) > 0 }
func (c Config) ShouldVerifyTrade() bool { return c.VerifySecondScreen && !c.Passive() }

type phase int

const (
	waitFirstScreen phase = iota
	offerItems
	monitorFirst
	acceptDelay
	acceptFirst
	waitSecondScreen
	verifySecond
	acceptSecond
	sendResponse
)

var phaseNames = [...]string{
	"WAIT_FIRST_SCREEN", "OFFER_ITEMS", "MONITOR_FIRST", "ACCEPT_DELAY", "ACCEPT_FIRST",
	"WAIT_SECOND_SCREEN", "VERIFY_SECOND", "ACCEPT_SECOND", "SEND_RESPONSE",
}

func (p phase) String() string { return phaseNames[p] }

type Task struct {
	task.Base
	cfg Config

	phase      phase
	seen       bool
	moved      bool
	typed      bool
	offered    map[int]bool
	firstOffer map[int]int
	value      int64
	verified   bool
}

func New(cfg Config) *Task {
	return &Task{Base: task.NewBase(Kind, waitFirstScreen.String()), cfg: cfg, offered: map[int]bool{}}
}

func (t *Task) Config() Config { return t.cfg }

// Verified reports whether the second screen was checked.
func (t *Task) Verified() bool { return t.verified }

func (t *Task) CanExecute(ctx *task.Context) bool {
	return ctx.LoggedIn && !ctx.Account.IsIronman() &&
		ctx.Clicker != nil && ctx.Mouse != nil && ctx.Timer != nil && ctx.Random != nil
}

func (t *Task) Execute(ctx *task.Context) { t.Run(ctx, t.CanExecute, t.step) }

func (t *Task) ResetForRetry() {
	t.Reset()
	t.phase = waitFirstScreen
	t.seen, t.moved, t.typed, t.verified = false, false, false, false
	t.offered = map[int]bool{}
	t.firstOffer = nil
	t.value = 0
}

func (t *Task) Description() string {
	return fmt.Sprintf("trade[phase=%s value=%d passive=%t]", t.phase, t.value, t.cfg.Passive())
}

func (t *Task) to(p phase) {
	t.phase = p
	t.moved = false
	t.Transition(p.String())
}

func (t *Task) step(ctx *task.Context) {
	tr := ctx.Trade
	if tr.Open() {
		t.seen = true
	} else if t.seen && t.phase != sendResponse {
		t.Fail("trade cancelled by other player")
		return
	}
	switch t.phase {
	case waitFirstScreen:
		if tr.Stage == game.TradeOffer {
			if t.cfg.Passive() {
				t.to(monitorFirst)
			} else {
				t.to(offerItems)
			}
		} else if t.WaitExpired(t.cfg.OpenTicks) {
			t.Fail("trade not opened")
		}
	case offerItems:
		t.offer(ctx)
	case monitorFirst:
		t.monitor(ctx)
	case acceptDelay:
		d := humanize.UniformDuration(ctx.Random, t.cfg.AcceptDelayMin, t.cfg.AcceptDelayMax)
		t.Await("accept delay", ctx.Timer.Sleep(d), func(*task.Context) { t.to(acceptFirst) })
	case acceptFirst:
		t.press(ctx, WidgetAccept, waitSecondScreen)
	case waitSecondScreen:
		if tr.Stage == game.TradeConfirm {
			t.to(verifySecond)
		} else if t.WaitExpired(t.cfg.SecondScreenTicks) {
			t.Fail("second trade screen did not open")
		}
	case verifySecond:
		t.verify(ctx)
	case acceptSecond:
		t.press(ctx, WidgetConfirmAccept, sendResponse)
	case sendResponse:
		t.respond(ctx)
	}
}

func (t *Task) offer(ctx *task.Context) {
	for _, id := range slices.Sorted(maps.Keys(t.cfg.Offer)) {
		if t.offered[id] || ctx.Trade.MyOffer[id] >= t.cfg.Offer[id] {
			continue
		}
		slot := ctx.Inventory.SlotOf(id)
		if slot < 0 {
			t.decline(ctx)
			t.Fail(fmt.Sprintf("offered item %d not in inventory", id))
			return
		}
		f := ctx.Clicker.Click(input.InventorySlot(slot), "Offer-All")
		t.Await("offer click", f, func(*task.Context) {
			if async.Succeeded(f) {
				t.offered[id] = true
			}
		})
		return
	}
	t.to(monitorFirst)
}

func (t *Task) monitor(ctx *task.Context) {
	tr := ctx.Trade
	t.firstOffer = maps.Clone(tr.TheirOffer)
	t.value = tr.TheirValue
	// MaxWaitTicks bounds this phase, not the inactivity watchdog.
	t.Progress()
	if t.WaitExpired(t.cfg.MaxWaitTicks) {
		t.decline(ctx)
		t.Fail("trade timed out")
		return
	}
	if tr.OtherAccepted {
		t.to(acceptDelay)
	}
}

func (t *Task) verify(ctx *task.Context) {
	if !t.cfg.ShouldVerifyTrade() {
		t.to(acceptSecond)
		return
	}
	t.verified = true
	tr := ctx.Trade
	switch {
	case !tr.ReceivingReadable:
		t.decline(ctx)
		t.Fail("could not verify trade: scam protection")
	case !game.SameItems(tr.Receiving, t.firstOffer):
		t.decline(ctx)
		t.Fail("trade items changed: scam protection")
	case t.cfg.HasExpectedItems() && !game.ContainsItems(tr.Receiving, t.cfg.Expected):
		t.decline(ctx)
		t.Fail("trade missing expected items: scam protection")
	default:
		t.to(acceptSecond)
	}
}

// press moves to a button, then clicks it, then enters next.
func (t *Task) press(ctx *task.Context, widget string, next phase) {
	if ctx.Mouse == nil {
		t.Fail("no mouse available")
		return
	}
	if !t.moved {
		t.Await("move to "+widget, ctx.Mouse.MoveTo(input.Widget(widget)), func(*task.Context) { t.moved = true })
		return
	}
	t.Await("click "+widget, ctx.Mouse.Click(), func(*task.Context) { t.to(next) })
}

// decline is fire-and-forget: the task is about to fail and does not wait.
func (t *Task) decline(ctx *task.Context) {
	if ctx.Clicker != nil {
		ctx.Clicker.Click(input.Widget(WidgetDecline), "Decline")
	}
}

func (t *Task) respond(ctx *task.Context) {
	if !t.cfg.SendResponse {
		t.Complete()
		return
	}
	if ctx.Trade.Open() {
		if t.WaitExpired(t.cfg.ResponseTicks) {
			ctx.Logger().Debug("trade window still open, skipping response")
			t.Complete()
		}
		return
	}
	if ctx.Keyboard == nil {
		ctx.Logger().Debug("no keyboard, skipping response")
		t.Complete()
		return
	}
	if !t.typed {
		t.Await("type response", ctx.Keyboard.Type(t.cfg.ResponseMessage), func(*task.Context) { t.typed = true })
		return
	}
	t.Await("send response", ctx.Keyboard.Press(input.KeyEnter), func(*task.Context) { t.Complete() })
}
