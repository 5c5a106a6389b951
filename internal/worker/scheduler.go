package worker

import (
	"context"
	"sync"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Job периодическая задача
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	jobs     []scheduledJob
	logger   Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(logger Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Add регистрирует задачу; интервал <= 0 выключает её
func (s *Scheduler) Add(job Job, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info("Scheduler: job %s disabled", job.Name())
		return
	}
	s.jobs = append(s.jobs, scheduledJob{job: job, interval: interval})
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Scheduler: starting %d background jobs", len(s.jobs))

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

// Stop останавливает фоновые задачи и ждёт завершения текущих запусков
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Scheduler: stopping background jobs")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j scheduledJob) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.runOnce(ctx, j.job)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, j.job)
		case <-s.stopChan:
			s.logger.Info("Scheduler: job %s stopped", j.job.Name())
			return
		case <-ctx.Done():
			s.logger.Info("Scheduler: job %s cancelled", j.job.Name())
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if err := job.Run(ctx); err != nil {
		s.logger.Error("Scheduler: job %s failed: %v", job.Name(), err)
	}
}
