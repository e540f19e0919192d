package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/ayumu-k/teamboard-api/internal/errors"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"gorm.io/gorm"
)

const ContextKeyTask = "task"

// RequireTaskAccess loads the task named by the route parameter and checks
// that the caller belongs to its team. Missing task is 404; existing task in
// a team the caller is not in is 403.
func RequireTaskAccess(taskRepo repository.TaskRepository, teamRepo repository.TeamRepository, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := taskRepo.FindByID(taskID, "Creator", "Assignee")
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.NotFound(c, "Task not found")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		member, err := teamRepo.FindMember(task.TeamID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.Forbidden(c, "You are not a member of this task's team")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyTask, *task)
		c.Set(ContextKeyTeamMember, *member)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess from context.
func GetTask(c *gin.Context) (models.Task, bool) {
	taskValue, exists := c.Get(ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := taskValue.(models.Task)
	return task, ok
}
