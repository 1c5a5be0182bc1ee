package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/tasks"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 7 * * *"))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule("0 0 7 * * *"), "seconds field is not accepted")
	assert.Error(t, ValidateSchedule("daily"))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	next, err := NextRun("0 7 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), next)
}

func TestJobs(t *testing.T) {
	jobs := Jobs(config.Scheduler{
		OverdueSchedule:      "0 7 * * *",
		AuditCleanupSchedule: "30 3 * * *",
	}, config.Audit{RetentionDays: 14})

	require.Len(t, jobs, 2)
	assert.Equal(t, tasks.ReportOverdueTask{}, jobs[0].Task)
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 14}, jobs[1].Task)

	assert.Empty(t, Jobs(config.Scheduler{}, config.Audit{}))
}

func TestAddRejectsInvalidSchedule(t *testing.T) {
	s := New(&recordingQueue{}, zap.NewNop())
	err := s.Add(Job{Name: "bad", Schedule: "not a schedule", Task: tasks.ReportOverdueTask{}})
	assert.Error(t, err)
}

func TestRunNow(t *testing.T) {
	queue := &recordingQueue{}
	s := New(queue, zap.NewNop())
	require.NoError(t, s.Add(Job{Name: "report_overdue", Schedule: "0 7 * * *", Task: tasks.ReportOverdueTask{}}))

	id, err := s.RunNow(context.Background(), "report_overdue")
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)
	assert.Len(t, queue.tasks, 1)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestEnqueueFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := New(&recordingQueue{err: errors.New("queue closed")}, zap.New(core))

	s.enqueue(Job{Name: "report_overdue", Task: tasks.ReportOverdueTask{}})

	entries := logs.FilterMessage("failed to enqueue scheduled job").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "report_overdue", entries[0].ContextMap()["job"])
}

func TestStartStop(t *testing.T) {
	s := New(&recordingQueue{}, zap.NewNop())
	require.NoError(t, s.Add(Job{Name: "report_overdue", Schedule: "0 7 * * *", Task: tasks.ReportOverdueTask{}}))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.True(t, s.IsRunning())

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}
