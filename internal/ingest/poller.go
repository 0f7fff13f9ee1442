package ingest

import (
	"context"
	"sync"
	"time"
)

// DefaultPollTick is how often the poller checks whether a sync is due.
const DefaultPollTick = time.Minute

// Poller runs CheckSync in the background.
type Poller struct {
	coord    *Coordinator
	tick     time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPoller creates a background poller. A tick of zero uses DefaultPollTick.
func NewPoller(coord *Coordinator, tick time.Duration) *Poller {
	if tick <= 0 {
		tick = DefaultPollTick
	}
	return &Poller{
		coord:    coord,
		tick:     tick,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop. The first check runs immediately.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			// The pass carries its own timeout.
			_, ran, err := p.coord.CheckSync(context.Background(), p.coord.now())
			if err != nil {
				p.coord.logger.Error("poller sync failed", "err", err)
			} else if !ran {
				p.coord.logger.Debug("poller: sync not due")
			}

			select {
			case <-p.stopChan:
				return
			case <-time.After(p.tick):
			}
		}
	}()
}

// Stop stops the poller gracefully.
func (p *Poller) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}
