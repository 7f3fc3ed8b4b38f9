package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikestefanello/backlite"

	"github.com/exambank/exambank/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	client *tasks.Client
}

// NewTasksController creates a new TasksController.
func NewTasksController(client *tasks.Client) *TasksController {
	return &TasksController{client: client}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// ListTaskTypes handles GET /api/tasks/types
// Returns the list of available task types that can be triggered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := []TaskTypeInfo{
		{
			Type:        "cleanup_orphan_tags",
			Description: "Remove tags with no exercise links and no child tags",
			Queue:       "cleanup_orphan_tags",
		},
		{
			Type:        "cleanup_audit_events",
			Description: "Remove audit events past the retention period",
			Queue:       "cleanup_audit_events",
		},
		{
			Type:        "recount_variant_points",
			Description: "Recompute a variant's total points from its placements",
			Queue:       "recount_variant_points",
		},
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "get task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// RetentionDays overrides the retention for cleanup_audit_events
	RetentionDays int `json:"retention_days,omitempty"`
	// VariantID is required for recount_variant_points
	VariantID uuid.UUID `json:"variant_id,omitempty"`
}

// RunTask handles POST /api/tasks/:type/run
// Manually triggers a task of the specified type.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}

	var task backlite.Task
	switch taskType {
	case "cleanup_orphan_tags":
		task = tasks.CleanupOrphanTagsTask{}

	case "cleanup_audit_events":
		task = tasks.CleanupAuditEventsTask{RetentionDays: req.RetentionDays}

	case "recount_variant_points":
		if req.VariantID == uuid.Nil {
			respondBadRequest(c, "variant_id is required for recount_variant_points task")
			return
		}
		task = tasks.RecountVariantPointsTask{VariantID: req.VariantID}

	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	ids, err := tc.client.Add(task).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": ids[0],
		"type":    taskType,
		"message": "task enqueued",
	})
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
