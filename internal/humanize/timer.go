package humanize

import (
	"time"

	"tickbot.ai/internal/async"
)

type Timer interface {
	Sleep(d time.Duration) *async.Future[async.Void]
	SleepProfile(p Profile) *async.Future[async.Void]
}

// WallTimer resolves sleeps on the runtime timer wheel.
type WallTimer struct {
	Random Random
}

func NewWallTimer(r Random) *WallTimer { return &WallTimer{Random: r} }

func (t *WallTimer) Sleep(d time.Duration) *async.Future[async.Void] {
	f := async.New[async.Void]()
	if d <= 0 {
		f.Resolve(async.Void{})
		return f
	}
	time.AfterFunc(d, func() { f.Resolve(async.Void{}) })
	return f
}

func (t *WallTimer) SleepProfile(p Profile) *async.Future[async.Void] {
	return t.Sleep(p.Sample(t.Random))
}
