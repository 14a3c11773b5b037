package workers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bankbang/internal/config"
	"bankbang/internal/logger"
	"bankbang/internal/metrics"
	"bankbang/internal/services"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	JobCleanup          = "cleanup"
	JobCloseExpiredJobs = "close-expired-jobs"
	JobExpireReferrals  = "expire-referrals"
)

// runTimeout ограничивает одну итерацию задачи
const runTimeout = 10 * time.Minute

// China Standard Time, дедлайны хранятся в этой зоне
var cst = time.FixedZone("CST", 8*60*60)

type jobFunc func(ctx context.Context, db *gorm.DB, now time.Time) (string, error)

// Scheduler запускает периодические задачи по cron-расписанию из конфига
type Scheduler struct {
	db   *gorm.DB
	cron *cron.Cron
	now  func() time.Time

	jobs      map[string]jobFunc
	schedules map[string]string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(db *gorm.DB, cfg *config.Config, svc *services.ServiceContainer) *Scheduler {
	s := &Scheduler{
		db:   db,
		cron: cron.New(cron.WithLocation(cst)),
		now:  time.Now,
		schedules: map[string]string{
			JobCleanup:          cfg.Scheduler.Cleanup,
			JobCloseExpiredJobs: cfg.Scheduler.CloseExpiredJobs,
			JobExpireReferrals:  cfg.Scheduler.ExpireReferrals,
		},
	}

	s.jobs = map[string]jobFunc{
		JobCleanup: func(ctx context.Context, db *gorm.DB, now time.Time) (string, error) {
			stats, err := svc.MaintenanceService.Cleanup(ctx, db, now)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("verifications=%d refresh_tokens=%d uploads=%d",
				stats.Verifications, stats.RefreshTokens, stats.Uploads), nil
		},
		JobCloseExpiredJobs: func(ctx context.Context, db *gorm.DB, now time.Time) (string, error) {
			n, err := svc.JobService.CloseExpired(ctx, db, now)
			return fmt.Sprintf("closed=%d", n), err
		},
		JobExpireReferrals: func(ctx context.Context, db *gorm.DB, now time.Time) (string, error) {
			n, err := svc.ReferralService.ExpireOld(ctx, db, now)
			return fmt.Sprintf("expired=%d", n), err
		},
	}
	return s
}

// Start регистрирует задачи и запускает cron. Пустое расписание отключает задачу.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.Names() {
		spec := s.schedules[name]
		if spec == "" {
			logger.Info("Worker disabled", "worker", name)
			continue
		}
		name := name
		if _, err := s.cron.AddFunc(spec, func() { s.run(s.ctx, name) }); err != nil {
			s.cancel()
			s.cancel = nil
			return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
		}
		logger.Info("Worker scheduled", "worker", name, "spec", spec)
	}

	s.cron.Start()
	return nil
}

// Stop останавливает cron и ждет завершения текущих задач
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	done := s.cron.Stop()
	<-done.Done()
	cancel()
	logger.Info("Scheduler stopped")
}

// RunNow выполняет задачу синхронно (CLI и тесты)
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	if _, ok := s.jobs[name]; !ok {
		return fmt.Errorf("unknown worker job %q", name)
	}
	return s.run(ctx, name)
}

func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) run(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	started := time.Now()
	summary, err := s.jobs[name](ctx, s.db, s.now())
	metrics.WorkerRunsTotal.WithLabelValues(name, metrics.Outcome(err)).Inc()
	logger.WorkerLog(name, "run", err, "result", summary, "duration_ms", time.Since(started).Milliseconds())
	return err
}
