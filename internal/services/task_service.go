package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrTitleRequired       = errors.New("title is required")
	ErrInvalidStatus       = errors.New("status must be todo, in_progress or done")
	ErrInvalidPriority     = errors.New("priority must be low, medium or high")
	ErrAssigneeNotMember   = errors.New("assignee is not a member of the task's team")
	ErrNotCreatorOrAdmin   = errors.New("only the task creator or a team admin can delete tasks")
	ErrReorderListMismatch = repository.ErrReorderListMismatch
)

// TaskService holds the task CRUD rules and the ordering engine.
type TaskService struct {
	taskRepo repository.TaskRepository
	teamRepo repository.TeamRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, teamRepo repository.TeamRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		teamRepo: teamRepo,
	}
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	TeamID      uint64
	CreatorID   uint64
	AssignedTo  *uint64
	DueDate     *time.Time
}

// CreateTask appends a task to the end of its (team, status) bucket.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !models.ValidStatus(input.Status) {
		return nil, ErrInvalidStatus
	}

	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(input.Priority) {
		return nil, ErrInvalidPriority
	}

	if input.AssignedTo != nil {
		if err := s.ensureTeamMember(input.TeamID, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		TeamID:      input.TeamID,
		CreatedBy:   input.CreatorID,
		AssignedTo:  input.AssignedTo,
		DueDate:     input.DueDate,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

// GetTask returns a task with related data.
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Creator", "Assignee")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// ListTasks returns a team's tasks ordered by position with optional filters.
func (s *TaskService) ListTasks(filter repository.TaskFilter) ([]models.Task, int64, error) {
	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// ListMyTasks returns tasks assigned to a user across all teams.
func (s *TaskService) ListMyTasks(userID uint64) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListAssignedTo(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskInput represents input for updating a task; nil fields are left
// unchanged.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// UpdateTask updates a task's editable fields. Status changes go through
// UpdateStatus or MoveTask so bucket positions stay consistent.
func (s *TaskService) UpdateTask(taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleRequired
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

// DeleteTask deletes a task if the actor is its creator or a team admin.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatedBy != actorID {
		member, err := s.teamRepo.FindMember(task.TeamID, actorID)
		if err != nil || member.Role != models.RoleAdmin {
			return ErrNotCreatorOrAdmin
		}
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// UpdateStatus moves a task to another column, appending it to the end of
// the destination bucket. Same-status calls are a no-op and return the task
// unchanged.
func (s *TaskService) UpdateStatus(taskID uint64, status models.TaskStatus) (*models.Task, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.Status == status {
		return task, nil
	}

	maxPos, err := s.taskRepo.MaxPosition(task.TeamID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination position: %w", err)
	}

	task.Status = status
	task.Position = maxPos + 1

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	return task, nil
}

// MoveTask performs a cross-bucket move with an explicit target index.
func (s *TaskService) MoveTask(taskID uint64, status models.TaskStatus, index int) (*models.Task, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.taskRepo.MoveToBucket(taskID, status, index); err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}

	return s.taskRepo.FindByID(taskID, "Creator", "Assignee")
}

// Reorder replaces a bucket's ordering with the caller-supplied full list.
func (s *TaskService) Reorder(teamID uint64, status models.TaskStatus, taskIDs []uint64) error {
	if !models.ValidStatus(status) {
		return ErrInvalidStatus
	}

	if err := s.taskRepo.Reorder(teamID, status, taskIDs); err != nil {
		if errors.Is(err, repository.ErrReorderListMismatch) {
			return err
		}
		return fmt.Errorf("failed to reorder tasks: %w", err)
	}

	return nil
}

// AssignTask assigns a task to a team member, or unassigns with nil.
func (s *TaskService) AssignTask(taskID uint64, userID *uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if userID != nil {
		if err := s.ensureTeamMember(task.TeamID, *userID); err != nil {
			return nil, err
		}
	}

	task.AssignedTo = userID
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

func (s *TaskService) ensureTeamMember(teamID, userID uint64) error {
	_, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}
