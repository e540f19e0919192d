package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ayumu-k/teamboard-api/internal/models"
)

// AddIndexes creates the query-critical indexes that AutoMigrate does not
// derive from struct tags.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model any
		name  string
		sql   string
	}{
		{&models.Task{}, "idx_tasks_assigned_due", "CREATE INDEX idx_tasks_assigned_due ON tasks (assigned_to, due_date)"},
		{&models.Comment{}, "idx_comments_task_created", "CREATE INDEX idx_comments_task_created ON comments (task_id, created_at)"},
		{&models.TeamMember{}, "idx_team_members_user_id", "CREATE INDEX idx_team_members_user_id ON team_members (user_id)"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.model, idx.name) {
			continue
		}
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
