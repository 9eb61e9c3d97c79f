package stocksync

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/revendify/backoffice/pkg/logger"
)

// resyncTimeout bounds one scheduled repair pass.
const resyncTimeout = 5 * time.Minute

// Sweeper runs the stock repair pass on a cron schedule.
type Sweeper struct {
	svc  *Service
	cron *cron.Cron
	spec string
	log  *logger.Logger
}

// NewSweeper creates a sweeper with the given cron spec (e.g. "@hourly").
// An empty spec disables the sweeper.
func NewSweeper(svc *Service, spec string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("stocksync-sweeper")
	}
	return &Sweeper{svc: svc, cron: cron.New(), spec: spec, log: log}
}

// Start schedules the repair pass. It returns immediately; jobs run on the
// cron's goroutine.
func (s *Sweeper) Start() error {
	if s.spec == "" {
		s.log.Info("stock resync sweeper disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()
		if err := s.svc.ResyncAll(ctx); err != nil {
			s.log.WithError(err).Warn("scheduled stock resync failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("spec", s.spec).Info("stock resync sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
