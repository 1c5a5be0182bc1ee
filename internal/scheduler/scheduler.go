// Package scheduler enqueues recurring catalog jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/tasks"
)

var ErrUnknownJob = errors.New("unknown job")

// Enqueuer hands a task to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// Job is a named task enqueued on a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Task     backlite.Task
}

// parser accepts standard five-field cron expressions.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks that a cron expression parses.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRun returns the first activation of schedule after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	s, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(from), nil
}

// Jobs returns the recurring jobs described by the configuration. Jobs with
// an empty schedule are left out.
func Jobs(sched config.Scheduler, audit config.Audit) []Job {
	var jobs []Job
	if sched.OverdueSchedule != "" {
		jobs = append(jobs, Job{Name: "report_overdue", Schedule: sched.OverdueSchedule, Task: tasks.ReportOverdueTask{}})
	}
	if sched.AuditCleanupSchedule != "" {
		jobs = append(jobs, Job{
			Name:     "cleanup_audit_events",
			Schedule: sched.AuditCleanupSchedule,
			Task:     tasks.CleanupAuditEventsTask{RetentionDays: audit.RetentionDays},
		})
	}
	return jobs
}

type Scheduler struct {
	queue  Enqueuer
	jobs   map[string]Job
	logger *zap.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

func New(queue Enqueuer, logger *zap.Logger, opts ...cron.Option) *Scheduler {
	opts = append([]cron.Option{cron.WithParser(parser)}, opts...)
	return &Scheduler{
		queue:  queue,
		jobs:   make(map[string]Job),
		logger: logger.Named("scheduler"),
		cron:   cron.New(opts...),
	}
}

// Add schedules a job. It must be called before Start.
func (s *Scheduler) Add(job Job) error {
	if err := ValidateSchedule(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Name, err)
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.enqueue(job) }); err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	s.jobs[job.Name] = job
	return nil
}

// Start runs the cron loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}

	s.cron.Start()
	s.isRunning = true
	for _, entry := range s.cron.Entries() {
		s.logger.Info("job scheduled", zap.Time("next_run", entry.Next))
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop waits for running jobs and halts the cron loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow enqueues the named job immediately.
func (s *Scheduler) RunNow(ctx context.Context, name string) (string, error) {
	job, ok := s.jobs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.queue.Enqueue(ctx, job.Task)
}

func (s *Scheduler) enqueue(job Job) {
	id, err := s.queue.Enqueue(context.Background(), job.Task)
	if err != nil {
		s.logger.Error("failed to enqueue scheduled job", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.logger.Info("scheduled job enqueued", zap.String("job", job.Name), zap.String("task_id", id))
}
