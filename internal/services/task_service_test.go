package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TaskService
	team    *models.Team
	user    *models.User
}

// SetupTest runs before each test
func (suite *TaskServiceTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.Comment{},
		&models.Attachment{},
	)
	suite.Require().NoError(err)

	taskRepo := repository.NewTaskRepository(suite.db)
	teamRepo := repository.NewTeamRepository(suite.db)
	suite.service = NewTaskService(taskRepo, teamRepo)

	suite.user = suite.createTestUser("admin@example.com", "admin")
	suite.team = suite.createTestTeam("Test Team", suite.user.ID)
	suite.addMember(suite.team.ID, suite.user.ID, models.RoleAdmin)
}

// TearDownTest runs after each test
func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createTestUser(email, username string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskServiceTestSuite) createTestTeam(name string, creatorID uint64) *models.Team {
	team := &models.Team{
		Name:      name,
		CreatedBy: creatorID,
	}
	suite.db.Create(team)
	return team
}

func (suite *TaskServiceTestSuite) addMember(teamID, userID uint64, role models.TeamRole) {
	suite.db.Create(&models.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	})
}

func (suite *TaskServiceTestSuite) createTask(title string, status models.TaskStatus) *models.Task {
	task, err := suite.service.CreateTask(CreateTaskInput{
		Title:     title,
		Status:    status,
		TeamID:    suite.team.ID,
		CreatorID: suite.user.ID,
	})
	suite.Require().NoError(err)
	return task
}

func (suite *TaskServiceTestSuite) columnIDs(status models.TaskStatus) []uint64 {
	var tasks []models.Task
	err := suite.db.Where("team_id = ? AND status = ?", suite.team.ID, status).
		Order("position ASC, id ASC").Find(&tasks).Error
	suite.Require().NoError(err)

	ids := make([]uint64, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

// TestCreateTask_FirstInColumnGetsPositionZero tests that the first task of a
// column lands at position 0
func (suite *TaskServiceTestSuite) TestCreateTask_FirstInColumnGetsPositionZero() {
	task := suite.createTask("First", models.TaskStatusTodo)

	assert.Equal(suite.T(), 0, task.Position)
}

// TestCreateTask_AppendsToColumnEnd tests that new tasks land after existing ones
func (suite *TaskServiceTestSuite) TestCreateTask_AppendsToColumnEnd() {
	suite.createTask("First", models.TaskStatusTodo)
	second := suite.createTask("Second", models.TaskStatusTodo)
	third := suite.createTask("Third", models.TaskStatusTodo)

	assert.Equal(suite.T(), 1, second.Position)
	assert.Equal(suite.T(), 2, third.Position)
}

// TestCreateTask_ColumnsCountIndependently tests that each column has its own
// position sequence
func (suite *TaskServiceTestSuite) TestCreateTask_ColumnsCountIndependently() {
	suite.createTask("Todo A", models.TaskStatusTodo)
	suite.createTask("Todo B", models.TaskStatusTodo)
	doing := suite.createTask("Doing A", models.TaskStatusInProgress)

	assert.Equal(suite.T(), 0, doing.Position)
}

// TestCreateTask_DefaultsToTodoMedium tests the default status and priority
func (suite *TaskServiceTestSuite) TestCreateTask_DefaultsToTodoMedium() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		Title:     "Defaults",
		TeamID:    suite.team.ID,
		CreatorID: suite.user.ID,
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusTodo, task.Status)
	assert.Equal(suite.T(), models.PriorityMedium, task.Priority)
}

// TestCreateTask_EmptyTitle tests that a blank title is rejected
func (suite *TaskServiceTestSuite) TestCreateTask_EmptyTitle() {
	_, err := suite.service.CreateTask(CreateTaskInput{
		Title:     "   ",
		TeamID:    suite.team.ID,
		CreatorID: suite.user.ID,
	})

	assert.ErrorIs(suite.T(), err, ErrTitleRequired)
}

// TestCreateTask_AssigneeMustBeMember tests assignment validation at creation
func (suite *TaskServiceTestSuite) TestCreateTask_AssigneeMustBeMember() {
	outsider := suite.createTestUser("outsider@example.com", "outsider")

	_, err := suite.service.CreateTask(CreateTaskInput{
		Title:      "Assigned",
		TeamID:     suite.team.ID,
		CreatorID:  suite.user.ID,
		AssignedTo: &outsider.ID,
	})

	assert.ErrorIs(suite.T(), err, ErrAssigneeNotMember)
}

// TestUpdateStatus_AppendsToDestinationColumn tests that a moved task lands at
// the end of its new column
func (suite *TaskServiceTestSuite) TestUpdateStatus_AppendsToDestinationColumn() {
	suite.createTask("Doing A", models.TaskStatusInProgress)
	suite.createTask("Doing B", models.TaskStatusInProgress)
	task := suite.createTask("Todo A", models.TaskStatusTodo)

	moved, err := suite.service.UpdateStatus(task.ID, models.TaskStatusInProgress)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusInProgress, moved.Status)
	assert.Equal(suite.T(), 2, moved.Position)
}

// TestUpdateStatus_SameStatusIsNoOp tests that re-setting the current status
// leaves the row untouched, including updated_at
func (suite *TaskServiceTestSuite) TestUpdateStatus_SameStatusIsNoOp() {
	task := suite.createTask("Stable", models.TaskStatusTodo)

	var before models.Task
	suite.Require().NoError(suite.db.First(&before, task.ID).Error)

	time.Sleep(10 * time.Millisecond)

	result, err := suite.service.UpdateStatus(task.ID, models.TaskStatusTodo)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), before.Position, result.Position)

	var after models.Task
	suite.Require().NoError(suite.db.First(&after, task.ID).Error)
	assert.Equal(suite.T(), before.UpdatedAt.UnixNano(), after.UpdatedAt.UnixNano())
}

// TestUpdateStatus_SourceColumnKeepsGaps tests that the source column is not
// compacted after a move
func (suite *TaskServiceTestSuite) TestUpdateStatus_SourceColumnKeepsGaps() {
	first := suite.createTask("A", models.TaskStatusTodo)
	second := suite.createTask("B", models.TaskStatusTodo)
	third := suite.createTask("C", models.TaskStatusTodo)

	_, err := suite.service.UpdateStatus(second.ID, models.TaskStatusDone)
	assert.NoError(suite.T(), err)

	// Remaining tasks keep their original positions; order is preserved
	assert.Equal(suite.T(), []uint64{first.ID, third.ID}, suite.columnIDs(models.TaskStatusTodo))

	var remaining models.Task
	suite.Require().NoError(suite.db.First(&remaining, third.ID).Error)
	assert.Equal(suite.T(), 2, remaining.Position)
}

// TestUpdateStatus_InvalidStatus tests the closed status set
func (suite *TaskServiceTestSuite) TestUpdateStatus_InvalidStatus() {
	task := suite.createTask("Task", models.TaskStatusTodo)

	_, err := suite.service.UpdateStatus(task.ID, models.TaskStatus("archived"))

	assert.ErrorIs(suite.T(), err, ErrInvalidStatus)
}

// TestReorder_AssignsListIndexAsPosition tests the full-list reorder
func (suite *TaskServiceTestSuite) TestReorder_AssignsListIndexAsPosition() {
	a := suite.createTask("A", models.TaskStatusTodo)
	b := suite.createTask("B", models.TaskStatusTodo)
	c := suite.createTask("C", models.TaskStatusTodo)

	err := suite.service.Reorder(suite.team.ID, models.TaskStatusTodo, []uint64{c.ID, a.ID, b.ID})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []uint64{c.ID, a.ID, b.ID}, suite.columnIDs(models.TaskStatusTodo))

	var first models.Task
	suite.Require().NoError(suite.db.First(&first, c.ID).Error)
	assert.Equal(suite.T(), 0, first.Position)
}

// TestReorder_IsIdempotent tests that replaying the same order changes nothing
func (suite *TaskServiceTestSuite) TestReorder_IsIdempotent() {
	a := suite.createTask("A", models.TaskStatusTodo)
	b := suite.createTask("B", models.TaskStatusTodo)

	order := []uint64{b.ID, a.ID}
	suite.Require().NoError(suite.service.Reorder(suite.team.ID, models.TaskStatusTodo, order))
	suite.Require().NoError(suite.service.Reorder(suite.team.ID, models.TaskStatusTodo, order))

	assert.Equal(suite.T(), order, suite.columnIDs(models.TaskStatusTodo))
}

// TestReorder_RejectsPartialList tests that an incomplete ID list fails and
// changes nothing
func (suite *TaskServiceTestSuite) TestReorder_RejectsPartialList() {
	a := suite.createTask("A", models.TaskStatusTodo)
	b := suite.createTask("B", models.TaskStatusTodo)

	err := suite.service.Reorder(suite.team.ID, models.TaskStatusTodo, []uint64{b.ID})

	assert.ErrorIs(suite.T(), err, ErrReorderListMismatch)
	assert.Equal(suite.T(), []uint64{a.ID, b.ID}, suite.columnIDs(models.TaskStatusTodo))
}

// TestReorder_RejectsForeignTask tests that IDs from another column fail
func (suite *TaskServiceTestSuite) TestReorder_RejectsForeignTask() {
	a := suite.createTask("A", models.TaskStatusTodo)
	done := suite.createTask("Done", models.TaskStatusDone)

	err := suite.service.Reorder(suite.team.ID, models.TaskStatusTodo, []uint64{a.ID, done.ID})

	assert.ErrorIs(suite.T(), err, ErrReorderListMismatch)
}

// TestMoveTask_InsertsAtRequestedIndex tests the cross-column indexed move
func (suite *TaskServiceTestSuite) TestMoveTask_InsertsAtRequestedIndex() {
	a := suite.createTask("Doing A", models.TaskStatusInProgress)
	b := suite.createTask("Doing B", models.TaskStatusInProgress)
	task := suite.createTask("Todo", models.TaskStatusTodo)

	moved, err := suite.service.MoveTask(task.ID, models.TaskStatusInProgress, 1)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusInProgress, moved.Status)
	assert.Equal(suite.T(), []uint64{a.ID, task.ID, b.ID}, suite.columnIDs(models.TaskStatusInProgress))
}

// TestMoveTask_ClampsIndexToColumnEnd tests an out-of-range target index
func (suite *TaskServiceTestSuite) TestMoveTask_ClampsIndexToColumnEnd() {
	a := suite.createTask("Doing A", models.TaskStatusInProgress)
	task := suite.createTask("Todo", models.TaskStatusTodo)

	_, err := suite.service.MoveTask(task.ID, models.TaskStatusInProgress, 99)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []uint64{a.ID, task.ID}, suite.columnIDs(models.TaskStatusInProgress))
}

// TestAssignTask_MemberSucceeds tests assigning a task to a team member
func (suite *TaskServiceTestSuite) TestAssignTask_MemberSucceeds() {
	member := suite.createTestUser("member@example.com", "member")
	suite.addMember(suite.team.ID, member.ID, models.RoleMember)
	task := suite.createTask("Task", models.TaskStatusTodo)

	assigned, err := suite.service.AssignTask(task.ID, &member.ID)

	assert.NoError(suite.T(), err)
	suite.Require().NotNil(assigned.AssignedTo)
	assert.Equal(suite.T(), member.ID, *assigned.AssignedTo)
}

// TestAssignTask_NonMemberRejected tests assignment to an outsider
func (suite *TaskServiceTestSuite) TestAssignTask_NonMemberRejected() {
	outsider := suite.createTestUser("outsider@example.com", "outsider")
	task := suite.createTask("Task", models.TaskStatusTodo)

	_, err := suite.service.AssignTask(task.ID, &outsider.ID)

	assert.ErrorIs(suite.T(), err, ErrAssigneeNotMember)
}

// TestAssignTask_NilUnassigns tests clearing the assignee
func (suite *TaskServiceTestSuite) TestAssignTask_NilUnassigns() {
	member := suite.createTestUser("member@example.com", "member")
	suite.addMember(suite.team.ID, member.ID, models.RoleMember)
	task := suite.createTask("Task", models.TaskStatusTodo)

	_, err := suite.service.AssignTask(task.ID, &member.ID)
	suite.Require().NoError(err)

	unassigned, err := suite.service.AssignTask(task.ID, nil)

	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), unassigned.AssignedTo)
}

// TestDeleteTask_CreatorSucceeds tests deletion by the creator
func (suite *TaskServiceTestSuite) TestDeleteTask_CreatorSucceeds() {
	task := suite.createTask("Task", models.TaskStatusTodo)

	err := suite.service.DeleteTask(task.ID, suite.user.ID)

	assert.NoError(suite.T(), err)

	var deleted models.Task
	assert.Error(suite.T(), suite.db.First(&deleted, task.ID).Error)
}

// TestDeleteTask_AdminSucceeds tests deletion by a team admin who is not the creator
func (suite *TaskServiceTestSuite) TestDeleteTask_AdminSucceeds() {
	admin := suite.createTestUser("admin2@example.com", "admin2")
	suite.addMember(suite.team.ID, admin.ID, models.RoleAdmin)
	task := suite.createTask("Task", models.TaskStatusTodo)

	err := suite.service.DeleteTask(task.ID, admin.ID)

	assert.NoError(suite.T(), err)
}

// TestDeleteTask_PlainMemberRejected tests deletion by a non-creator member
func (suite *TaskServiceTestSuite) TestDeleteTask_PlainMemberRejected() {
	member := suite.createTestUser("member@example.com", "member")
	suite.addMember(suite.team.ID, member.ID, models.RoleMember)
	task := suite.createTask("Task", models.TaskStatusTodo)

	err := suite.service.DeleteTask(task.ID, member.ID)

	assert.ErrorIs(suite.T(), err, ErrNotCreatorOrAdmin)
}

// TestUpdateTask_DoesNotTouchStatusOrPosition tests that field updates leave
// ordering alone
func (suite *TaskServiceTestSuite) TestUpdateTask_DoesNotTouchStatusOrPosition() {
	suite.createTask("A", models.TaskStatusTodo)
	task := suite.createTask("B", models.TaskStatusTodo)

	title := "B renamed"
	priority := models.PriorityHigh
	updated, err := suite.service.UpdateTask(task.ID, UpdateTaskInput{
		Title:    &title,
		Priority: &priority,
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "B renamed", updated.Title)
	assert.Equal(suite.T(), models.TaskStatusTodo, updated.Status)
	assert.Equal(suite.T(), 1, updated.Position)
}

// TestListMyTasks_ReturnsAssignedAcrossTeams tests the personal task list
func (suite *TaskServiceTestSuite) TestListMyTasks_ReturnsAssignedAcrossTeams() {
	member := suite.createTestUser("member@example.com", "member")
	suite.addMember(suite.team.ID, member.ID, models.RoleMember)

	otherTeam := suite.createTestTeam("Other Team", suite.user.ID)
	suite.addMember(otherTeam.ID, suite.user.ID, models.RoleAdmin)
	suite.addMember(otherTeam.ID, member.ID, models.RoleMember)

	taskA := suite.createTask("Mine A", models.TaskStatusTodo)
	_, err := suite.service.AssignTask(taskA.ID, &member.ID)
	suite.Require().NoError(err)

	taskB, err := suite.service.CreateTask(CreateTaskInput{
		Title:      "Mine B",
		TeamID:     otherTeam.ID,
		CreatorID:  suite.user.ID,
		AssignedTo: &member.ID,
	})
	suite.Require().NoError(err)

	suite.createTask("Not mine", models.TaskStatusTodo)

	tasks, err := suite.service.ListMyTasks(member.ID)

	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), tasks, 2)

	ids := []uint64{tasks[0].ID, tasks[1].ID}
	assert.Contains(suite.T(), ids, taskA.ID)
	assert.Contains(suite.T(), ids, taskB.ID)
}

// TestSuite runs the test suite
func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
