package liquidation

import (
	"context"
	"time"

	"stablevault/internal/observability"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Scanner periodically sweeps all positions and publishes how many are
// currently liquidatable. It never submits liquidations itself; that is the
// job of external liquidator clients polling the read API.
type Scanner struct {
	engine   *Engine
	interval time.Duration
	sched    gocron.Scheduler
}

func NewScanner(engine *Engine, interval time.Duration) *Scanner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scanner{engine: engine, interval: interval}
}

func (s *Scanner) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = scheduler

	job := func(jobCtx context.Context) {
		execID := uuid.NewString()
		ids, scanErr := s.engine.ListLiquidatable(jobCtx)
		if scanErr != nil {
			logrus.WithError(scanErr).Errorf("Liquidation scan %s failed", execID)
			return
		}
		observability.LiquidatablePositions.Set(float64(len(ids)))
		if len(ids) > 0 {
			logrus.WithFields(logrus.Fields{"exec_id": execID, "positions": ids}).Warn("liquidatable positions found")
		}
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(job),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	scheduler.Start()

	// Stop scheduler when the provided context is canceled.
	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			logrus.Errorf("Scanner shutdown error: %v", sdErr)
		}
	}()
	return nil
}

func (s *Scanner) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched = nil
	return err
}
