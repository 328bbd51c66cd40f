package browser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// WaitNetworkIdle blocks until no network request has been in flight for
// idleAfter, or timeout expires. Call it after Navigate on pages that load
// content over XHR before asserting on the DOM.
func (s *Session) WaitNetworkIdle(idleAfter, timeout time.Duration) error {
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = s.cfg.PageLoadTimeout
	}

	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	select {
	case <-watchNetworkIdle(ctx, idleAfter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watchNetworkIdle listens to CDP network events and closes the returned
// channel once the request counter has been zero for idleAfter.
func watchNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timerMu sync.Mutex
	var timer *time.Timer
	var once sync.Once

	startTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idleChan) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				startTimer()
			}
		}
	})

	// A page with no traffic at all should also become idle.
	startTimer()

	return idleChan
}
