// Package worker runs the time-driven dispatch loop. Notifications due while
// the process was down are caught up on the first pass after restart, since
// the dispatcher selects by scheduled time rather than by timer.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wb-go/wbf/zlog"

	"calremind/internal/service/dispatcher"
)

type dispatcherService interface {
	ProcessPendingNotifications(ctx context.Context) (dispatcher.Result, error)
}

// Poller invokes the dispatcher at a fixed interval. It is the sole driver
// of delivery; the dispatcher never self-schedules.
type Poller struct {
	dispatcher dispatcherService
	interval   time.Duration
	cron       *cron.Cron
}

// NewPoller creates a poller with the given dispatch interval. Passes do not
// overlap: a tick is skipped while the previous run is still going. The cron
// schedule rounds intervals below one second up to one second.
func NewPoller(d dispatcherService, interval time.Duration) *Poller {
	return &Poller{
		dispatcher: d,
		interval:   interval,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.PrintfLogger(&zlog.Logger)),
		)),
	}
}

// Run starts the poll loop and blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	_, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule dispatch loop: %w", err)
	}

	zlog.Logger.Info().Dur("interval", p.interval).Msg("dispatch loop started")
	p.cron.Start()

	<-ctx.Done()

	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	zlog.Logger.Info().Msg("dispatch loop stopped")

	return nil
}

func (p *Poller) runOnce(ctx context.Context) {
	res, err := p.dispatcher.ProcessPendingNotifications(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("dispatch pass failed")
		return
	}

	if res.Processed > 0 {
		zlog.Logger.Info().
			Int("processed", res.Processed).
			Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).
			Msg("dispatch pass finished")
	}
}
