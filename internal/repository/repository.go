package repository

import (
	"github.com/ayumu-k/teamboard-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// Update updates a user
	Update(user *models.User) error

	// Search finds users whose username or email contains the query string
	Search(query string, limit int) ([]models.User, error)
}

// TeamRepository defines the interface for team and membership data access
type TeamRepository interface {
	// CreateWithAdmin creates a team and the creator's admin membership atomically
	CreateWithAdmin(team *models.Team, member *models.TeamMember) error

	// FindByID finds a team by ID
	FindByID(id uint64) (*models.Team, error)

	// Update updates a team
	Update(team *models.Team) error

	// Delete deletes a team and all owned rows (members, tasks, task children)
	Delete(id uint64) error

	// FindMember finds a specific team membership
	FindMember(teamID, userID uint64) (*models.TeamMember, error)

	// AddMember inserts a membership row
	AddMember(member *models.TeamMember) error

	// RemoveMember deletes a membership row
	RemoveMember(teamID, userID uint64) error

	// UpdateMemberRole changes a member's role
	UpdateMemberRole(teamID, userID uint64, role models.TeamRole) error

	// CountAdmins counts members with the admin role
	CountAdmins(teamID uint64) (int64, error)

	// ListMembers lists all members of a team with user data preloaded
	ListMembers(teamID uint64) ([]models.TeamMember, error)

	// ListMembershipsByUserID lists all teams a user belongs to
	ListMembershipsByUserID(userID uint64) ([]models.TeamMember, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	TeamID     uint64
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *uint64
	Search     string
	Page       int
	PageSize   int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task, assigning the next position in its bucket
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves a team's tasks ordered by position with optional filters
	List(filter TaskFilter) ([]models.Task, int64, error)

	// ListBucket returns the tasks of one (team, status) bucket in render order
	ListBucket(teamID uint64, status models.TaskStatus) ([]models.Task, error)

	// ListAssignedTo returns tasks assigned to a user ordered by due date
	ListAssignedTo(userID uint64) ([]models.Task, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete deletes a task together with its comments and attachments
	Delete(id uint64) error

	// MaxPosition returns the highest position in a bucket, or -1 when empty
	MaxPosition(teamID uint64, status models.TaskStatus) (int, error)

	// Reorder assigns position = index for each ID in list order, atomically
	Reorder(teamID uint64, status models.TaskStatus, taskIDs []uint64) error

	// MoveToBucket re-homes a task into a bucket and renumbers that bucket so
	// the task lands at the requested index, atomically
	MoveToBucket(taskID uint64, status models.TaskStatus, index int) error

	// CountByStatus returns task counts grouped by status for a team
	CountByStatus(teamID uint64) (map[models.TaskStatus]int64, error)

	// CountByPriority returns task counts grouped by priority for a team
	CountByPriority(teamID uint64) (map[models.TaskPriority]int64, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create creates a new comment
	Create(comment *models.Comment) error

	// FindByID finds a comment by ID
	FindByID(id uint64) (*models.Comment, error)

	// ListByTaskID lists a task's comments oldest first with authors preloaded
	ListByTaskID(taskID uint64) ([]models.Comment, error)

	// Update updates a comment
	Update(comment *models.Comment) error

	// Delete deletes a comment
	Delete(id uint64) error
}

// AttachmentRepository defines the interface for attachment metadata access
type AttachmentRepository interface {
	// Create creates a new attachment row
	Create(attachment *models.Attachment) error

	// FindByID finds an attachment by ID
	FindByID(id uint64) (*models.Attachment, error)

	// ListByTaskID lists a task's attachments newest first with uploaders preloaded
	ListByTaskID(taskID uint64) ([]models.Attachment, error)

	// Delete deletes an attachment row
	Delete(id uint64) error
}
