package rate

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultRefreshInterval = 60 * time.Second

// Refresher is the part of Engine the scheduler drives.
type Refresher interface {
	RefreshIfNeeded(ctx context.Context) error
}

type Scheduler struct {
	refresher   Refresher
	jobDuration time.Duration
	// -----
	mu    sync.Mutex
	sched gocron.Scheduler
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	job := func(jobCtx context.Context) {
		execID := uuid.NewString()
		log := logrus.WithField("exec", execID)
		log.Debug("Refresh check started")
		if refErr := s.refresher.RefreshIfNeeded(jobCtx); refErr != nil {
			log.Errorf("Refresh check job %s failed: %v", execID, refErr)
		}
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.jobDuration),
		gocron.NewTask(job),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)

	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	scheduler.Start()
	s.mu.Lock()
	s.sched = scheduler
	s.mu.Unlock()

	// Stop scheduler when the provided context is canceled.
	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", sdErr)
		}
	}()
	return nil
}

// Shutdown stops the scheduler. It is safe to call concurrently and more than once,
// only the first call after Start stops gocron.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched == nil {
		return nil
	}
	return sched.Shutdown()
}

func (s *Scheduler) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched != nil
}

func NewScheduler(refresher Refresher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Scheduler{refresher: refresher, jobDuration: interval}
}
