package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/ayumu-k/teamboard-api/internal/constants"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TeamAuthTestSuite defines the test suite for the team access middleware
type TeamAuthTestSuite struct {
	suite.Suite
	db       *gorm.DB
	teamRepo repository.TeamRepository
	taskRepo repository.TaskRepository
}

// SetupTest runs before each test
func (suite *TeamAuthTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
	)
	suite.Require().NoError(err)

	suite.teamRepo = repository.NewTeamRepository(suite.db)
	suite.taskRepo = repository.NewTaskRepository(suite.db)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TeamAuthTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TeamAuthTestSuite) createTestUser(email, username string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TeamAuthTestSuite) createTestTeam(name string, creatorID uint64) *models.Team {
	team := &models.Team{Name: name, CreatedBy: creatorID}
	suite.db.Create(team)
	return team
}

func (suite *TeamAuthTestSuite) addMember(teamID, userID uint64, role models.TeamRole) {
	suite.db.Create(&models.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	})
}

// teamRouter builds a router with the access middleware and a probe handler
func (suite *TeamAuthTestSuite) teamRouter(userID uint64, admin bool) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, userID)
	})

	handlers := []gin.HandlerFunc{RequireTeamAccess(suite.teamRepo)}
	if admin {
		handlers = append(handlers, RequireTeamAdmin())
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/teams/:id", handlers...)
	return r
}

func (suite *TeamAuthTestSuite) get(r *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", url, nil)
	r.ServeHTTP(w, req)
	return w
}

// TestTeamAccess_MemberPasses tests that a member reaches the handler
func (suite *TeamAuthTestSuite) TestTeamAccess_MemberPasses() {
	user := suite.createTestUser("member@example.com", "member")
	team := suite.createTestTeam("Team", user.ID)
	suite.addMember(team.ID, user.ID, models.RoleMember)

	w := suite.get(suite.teamRouter(user.ID, false), "/teams/1")

	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestTeamAccess_MissingTeamIs404 tests that a nonexistent team is not found
func (suite *TeamAuthTestSuite) TestTeamAccess_MissingTeamIs404() {
	user := suite.createTestUser("member@example.com", "member")

	w := suite.get(suite.teamRouter(user.ID, false), "/teams/9999")

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestTeamAccess_NonMemberIs403 tests that an existing team a caller does not
// belong to is forbidden, not hidden
func (suite *TeamAuthTestSuite) TestTeamAccess_NonMemberIs403() {
	owner := suite.createTestUser("owner@example.com", "owner")
	outsider := suite.createTestUser("outsider@example.com", "outsider")
	team := suite.createTestTeam("Team", owner.ID)
	suite.addMember(team.ID, owner.ID, models.RoleAdmin)

	w := suite.get(suite.teamRouter(outsider.ID, false), "/teams/1")

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestTeamAdmin_MemberIs403 tests that the admin guard rejects plain members
func (suite *TeamAuthTestSuite) TestTeamAdmin_MemberIs403() {
	user := suite.createTestUser("member@example.com", "member")
	team := suite.createTestTeam("Team", user.ID)
	suite.addMember(team.ID, user.ID, models.RoleMember)

	w := suite.get(suite.teamRouter(user.ID, true), "/teams/1")

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestTeamAdmin_AdminPasses tests that the admin guard accepts admins
func (suite *TeamAuthTestSuite) TestTeamAdmin_AdminPasses() {
	user := suite.createTestUser("admin@example.com", "admin")
	team := suite.createTestTeam("Team", user.ID)
	suite.addMember(team.ID, user.ID, models.RoleAdmin)

	w := suite.get(suite.teamRouter(user.ID, true), "/teams/1")

	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestTaskAccess_MissingTaskIs404 tests the task route variant
func (suite *TeamAuthTestSuite) TestTaskAccess_MissingTaskIs404() {
	user := suite.createTestUser("member@example.com", "member")

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, user.ID)
	})
	r.GET("/tasks/:id", RequireTaskAccess(suite.taskRepo, suite.teamRepo, "id"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := suite.get(r, "/tasks/9999")

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestTaskAccess_NonMemberIs403 tests that a foreign team's task is forbidden
func (suite *TeamAuthTestSuite) TestTaskAccess_NonMemberIs403() {
	owner := suite.createTestUser("owner@example.com", "owner")
	outsider := suite.createTestUser("outsider@example.com", "outsider")
	team := suite.createTestTeam("Team", owner.ID)
	suite.addMember(team.ID, owner.ID, models.RoleAdmin)

	suite.db.Create(&models.Task{
		Title:     "Task",
		Status:    models.TaskStatusTodo,
		Priority:  models.PriorityMedium,
		TeamID:    team.ID,
		CreatedBy: owner.ID,
	})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, outsider.ID)
	})
	r.GET("/tasks/:id", RequireTaskAccess(suite.taskRepo, suite.teamRepo, "id"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := suite.get(r, "/tasks/1")

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestSuite runs the test suite
func TestTeamAuthTestSuite(t *testing.T) {
	suite.Run(t, new(TeamAuthTestSuite))
}
