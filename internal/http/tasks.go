package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/tasks"
)

// TasksController lets staff trigger background jobs by hand and poll them.
type TasksController struct {
	queue  TaskQueue
	logger *zap.Logger
}

func NewTasksController(queue TaskQueue, logger *zap.Logger) *TasksController {
	return &TasksController{queue: queue, logger: logger}
}

// TaskTypeInfo describes a task that can be run by hand.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

var taskTypes = []TaskTypeInfo{
	{Type: "enrich_book", Description: "Fill a book's missing summary and ISBN from OpenLibrary"},
	{Type: "enrich_all_books", Description: "Enrich every book without a summary"},
	{Type: "report_overdue", Description: "Log and audit the copies past their due date"},
	{Type: "cleanup_audit_events", Description: "Delete audit events older than the retention period"},
}

// RunTaskRequest carries the optional arguments of a task.
type RunTaskRequest struct {
	BookID        uint `json:"book_id,omitempty" form:"book_id"`
	RetentionDays int  `json:"retention_days,omitempty" form:"retention_days"`
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"task_types": taskTypes})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if !tc.available(c) {
		return
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, tc.logger, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTask handles POST /api/tasks/:id/run, where the id names a task type.
func (tc *TasksController) RunTask(c *gin.Context) {
	if !tc.available(c) {
		return
	}
	taskType := c.Param("id")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid task arguments")
			return
		}
	}

	var task backlite.Task
	switch taskType {
	case "enrich_book":
		if req.BookID == 0 {
			respondBadRequest(c, "book_id is required for enrich_book task")
			return
		}
		task = tasks.EnrichBookTask{BookID: req.BookID}
	case "enrich_all_books":
		task = tasks.EnrichAllBooksTask{}
	case "report_overdue":
		task = tasks.ReportOverdueTask{}
	case "cleanup_audit_events":
		task = tasks.CleanupAuditEventsTask{RetentionDays: req.RetentionDays}
	default:
		respondNotFound(c, "task type "+taskType)
		return
	}

	taskID, err := tc.queue.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, tc.logger, err, "enqueue "+taskType)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": taskID,
		"type":    taskType,
		"message": "task enqueued",
	})
}

func (tc *TasksController) available(c *gin.Context) bool {
	if tc.queue == nil {
		respondError(c, http.StatusServiceUnavailable, "background tasks are disabled")
		return false
	}
	return true
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
