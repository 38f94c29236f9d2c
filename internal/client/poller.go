package client

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval matches the original client's refresh cadence.
const DefaultPollInterval = 1500 * time.Millisecond

// Poller runs at most one fixed-interval polling loop. Start replaces any
// running loop before the new one begins, so a stale loop can never outlive
// the session it was started for.
type Poller struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches a loop invoking tick every interval until tick returns
// false or the loop is stopped. Any previously running loop is cancelled and
// fully drained first.
func (p *Poller) Start(interval time.Duration, tick func(ctx context.Context) bool) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		done := p.done
		p.mu.Unlock()
		<-done
		p.mu.Lock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !tick(ctx) {
					return
				}
			}
		}
	}()
}

// Stop cancels the running loop, if any. It is idempotent and safe to call
// concurrently with Start; it does not wait for the loop goroutine to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Wait blocks until the current loop goroutine has exited. It returns
// immediately when no loop was ever started.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
