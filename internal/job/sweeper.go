// Package job runs background maintenance for the review pipeline.
package job

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-co-op/gocron"
	"github.com/inconshreveable/log15"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/usecase"
)

var log = log15.New("module", "job")

// Finalizer is the slice of the publication use case the sweeper drives.
type Finalizer interface {
	PendingConsensus(ctx context.Context, limit int) ([]domain.Paper, error)
	Finalize(ctx context.Context, paperID string) (usecase.FinalizeResult, error)
}

type SweeperConfig struct {
	IntervalSeconds int
	BatchSize       int
	Workers         int
	Timeout         time.Duration
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 30
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Minute
	}
	return c
}

// Sweeper finalizes papers whose reviews are all in but whose consensus was
// never applied, e.g. after a crash between submit and finalize.
type Sweeper struct {
	finalizer Finalizer
	conf      SweeperConfig
	scheduler *gocron.Scheduler
}

func NewSweeper(finalizer Finalizer, conf SweeperConfig) *Sweeper {
	return &Sweeper{
		finalizer: finalizer,
		conf:      conf.withDefaults(),
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

func (s *Sweeper) Start() error {
	_, err := s.scheduler.Every(s.conf.IntervalSeconds).Seconds().SingletonMode().Do(s.sweep)
	if err != nil {
		return errors.Wrap(err, "schedule sweeper")
	}
	s.scheduler.StartAsync()
	log.Info("sweeper started", "interval", s.conf.IntervalSeconds, "workers", s.conf.Workers)
	return nil
}

func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.conf.Timeout)
	defer cancel()

	applied, err := s.RunOnce(ctx)
	if err != nil {
		log.Error("sweep failed", "err", err)
		sentry.CaptureException(err)
		return
	}
	if applied > 0 {
		log.Info("sweep finalized papers", "applied", applied)
	}
}

// RunOnce finalizes one batch of pending papers on a worker pool and returns
// how many decisions were applied.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	papers, err := s.finalizer.PendingConsensus(ctx, s.conf.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(papers) == 0 {
		log.Debug("nothing to sweep")
		return 0, nil
	}

	var (
		wg      sync.WaitGroup
		applied int64
	)
	p, err := ants.NewPoolWithFunc(s.conf.Workers, func(i interface{}) {
		defer wg.Done()
		paper, ok := i.(domain.Paper)
		if !ok {
			log.Error("unexpected sweep item", "item", i)
			return
		}
		result, err := s.finalizer.Finalize(ctx, paper.ID)
		if err != nil {
			log.Error("finalize failed", "paper", paper.ID, "err", err)
			sentry.CaptureException(err)
			return
		}
		if result.Applied {
			atomic.AddInt64(&applied, 1)
		}
	})
	if err != nil {
		return 0, errors.Wrap(err, "create sweep pool")
	}
	defer p.Release()

	for _, paper := range papers {
		wg.Add(1)
		if err := p.Invoke(paper); err != nil {
			wg.Done()
			log.Error("failed to queue paper", "paper", paper.ID, "err", err)
		}
	}
	wg.Wait()
	return int(atomic.LoadInt64(&applied)), nil
}
