package repository

import (
	"errors"

	"github.com/ayumu-k/teamboard-api/internal/database"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/utils"
	"gorm.io/gorm"
)

// ErrReorderListMismatch is returned when a reorder list is not a permutation
// of the bucket's current task IDs. The batch is rejected as a whole rather
// than partially applied.
var ErrReorderListMismatch = errors.New("task repository: reorder list does not match bucket contents")

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a task at the end of its (team, status) bucket. The max
// lookup and insert run in one transaction so positions stay monotonic.
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		maxPos, err := bucketMaxPosition(tx, task.TeamID, task.Status)
		if err != nil {
			return err
		}

		task.Position = maxPos + 1
		return tx.Create(task).Error
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves a team's tasks ordered by position with optional filters
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).Where("tasks.team_id = ?", filter.TeamID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("LOWER(tasks.title) LIKE LOWER(?) OR LOWER(tasks.description) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.position ASC, tasks.id ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:   filter.Page,
			Limit:  filter.PageSize,
			Offset: (filter.Page - 1) * filter.PageSize,
		}))
	}

	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// ListBucket returns one (team, status) bucket in render order. ID breaks
// position ties so repeated reads are stable.
func (r *GormTaskRepository) ListBucket(teamID uint64, status models.TaskStatus) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.
		Where("team_id = ? AND status = ?", teamID, status).
		Order("position ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListAssignedTo returns tasks assigned to a user ordered by due date
func (r *GormTaskRepository) ListAssignedTo(userID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Preload("Team").
		Where("assigned_to = ?", userID).
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete deletes a task together with its comments and attachments
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}

// MaxPosition returns the highest position in a bucket, or -1 when empty
func (r *GormTaskRepository) MaxPosition(teamID uint64, status models.TaskStatus) (int, error) {
	return bucketMaxPosition(r.db, teamID, status)
}

// Reorder assigns position = index for each ID in list order. The list must
// be a permutation of the bucket's current IDs; any mismatch rejects the
// whole batch.
func (r *GormTaskRepository) Reorder(teamID uint64, status models.TaskStatus, taskIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var currentIDs []uint64
		if err := tx.Model(&models.Task{}).
			Where("team_id = ? AND status = ?", teamID, status).
			Pluck("id", &currentIDs).Error; err != nil {
			return err
		}

		if !samePermutation(currentIDs, taskIDs) {
			return ErrReorderListMismatch
		}

		for index, taskID := range taskIDs {
			if err := tx.Model(&models.Task{}).
				Where("id = ?", taskID).
				Update("position", index).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// MoveToBucket re-homes a task into a bucket at the requested index and
// renumbers the whole destination bucket. Renumbering everything is enough
// to make the insertion order hold and avoids fractional positions.
func (r *GormTaskRepository) MoveToBucket(taskID uint64, status models.TaskStatus, index int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			return err
		}

		var bucket []models.Task
		if err := tx.
			Where("team_id = ? AND status = ? AND id <> ?", task.TeamID, status, taskID).
			Order("position ASC, id ASC").
			Find(&bucket).Error; err != nil {
			return err
		}

		if index < 0 {
			index = 0
		}
		if index > len(bucket) {
			index = len(bucket)
		}

		ordered := make([]uint64, 0, len(bucket)+1)
		for _, t := range bucket[:index] {
			ordered = append(ordered, t.ID)
		}
		ordered = append(ordered, taskID)
		for _, t := range bucket[index:] {
			ordered = append(ordered, t.ID)
		}

		if err := tx.Model(&models.Task{}).
			Where("id = ?", taskID).
			Update("status", status).Error; err != nil {
			return err
		}

		for i, id := range ordered {
			if err := tx.Model(&models.Task{}).
				Where("id = ?", id).
				Update("position", i).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// CountByStatus returns task counts grouped by status for a team
func (r *GormTaskRepository) CountByStatus(teamID uint64) (map[models.TaskStatus]int64, error) {
	type row struct {
		Status models.TaskStatus
		Count  int64
	}
	var rows []row
	if err := r.db.Model(&models.Task{}).
		Select("status, COUNT(*) as count").
		Where("team_id = ?", teamID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountByPriority returns task counts grouped by priority for a team
func (r *GormTaskRepository) CountByPriority(teamID uint64) (map[models.TaskPriority]int64, error) {
	type row struct {
		Priority models.TaskPriority
		Count    int64
	}
	var rows []row
	if err := r.db.Model(&models.Task{}).
		Select("priority, COUNT(*) as count").
		Where("team_id = ?", teamID).
		Group("priority").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.TaskPriority]int64, len(rows))
	for _, r := range rows {
		counts[r.Priority] = r.Count
	}
	return counts, nil
}

func bucketMaxPosition(tx *gorm.DB, teamID uint64, status models.TaskStatus) (int, error) {
	var maxPos int
	err := tx.Model(&models.Task{}).
		Where("team_id = ? AND status = ?", teamID, status).
		Select("COALESCE(MAX(position), -1)").
		Scan(&maxPos).Error
	return maxPos, err
}

func samePermutation(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}

	seen := make(map[uint64]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
		if seen[id] < 0 {
			return false
		}
	}
	return true
}
