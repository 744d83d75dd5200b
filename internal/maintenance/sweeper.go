// Package maintenance hosts the scheduled jobs running next to the API.
package maintenance

import (
	"context"
	"time"

	"github.com/mx-wll/kinderkreisel/internal/server/service"
	"github.com/sirupsen/logrus"
)

// DefaultSweepInterval is how often expired reservations are resolved.
// A tunable, not a contract: a reservation can outlive its deadline by up
// to one interval.
const DefaultSweepInterval = 15 * time.Minute

// A Sweeper runs a background goroutine that periodically expires active
// reservations past their deadline and frees the matching items.
type Sweeper struct {
	reservations service.ReservationService
	interval     time.Duration
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewSweeper creates a new Sweeper. Call Start to begin sweeping.
func NewSweeper(reservations service.ReservationService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		reservations: reservations,
		interval:     interval,
		done:         make(chan struct{}),
	}
}

// Start launches the background sweep goroutine.
// The first sweep runs immediately to catch up after a restart.
func (sw *Sweeper) Start(ctx context.Context) {
	ctx, sw.cancel = context.WithCancel(ctx)

	go func() {
		defer close(sw.done)

		sw.runSweep()

		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sw.runSweep()
			}
		}
	}()
}

// Stop cancels the sweep goroutine and waits for it to finish.
func (sw *Sweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	<-sw.done
}

func (sw *Sweeper) runSweep() {
	count, err := sw.reservations.ExpireDue(time.Now().UTC())
	if err != nil {
		logrus.WithError(err).Error("sweeper: could not scan reservations")
		return
	}

	if count > 0 {
		logrus.WithField("count", count).Info("sweeper: expired reservations")
	}
}
