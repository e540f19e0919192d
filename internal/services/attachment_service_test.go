package services

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"github.com/ayumu-k/teamboard-api/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AttachmentServiceTestSuite defines the test suite for AttachmentService
type AttachmentServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	service  *AttachmentService
	team     *models.Team
	task     *models.Task
	uploader *models.User
}

// SetupTest runs before each test
func (suite *AttachmentServiceTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.Attachment{},
	)
	suite.Require().NoError(err)

	store, err := storage.NewLocalStore(suite.T().TempDir())
	suite.Require().NoError(err)

	attachmentRepo := repository.NewAttachmentRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	teamRepo := repository.NewTeamRepository(suite.db)
	suite.service = NewAttachmentService(attachmentRepo, taskRepo, teamRepo, store, 1024)

	suite.uploader = suite.createTestUser("uploader@example.com", "uploader")
	suite.team = &models.Team{Name: "Test Team", CreatedBy: suite.uploader.ID}
	suite.db.Create(suite.team)
	suite.addMember(suite.team.ID, suite.uploader.ID, models.RoleMember)

	suite.task = &models.Task{
		Title:     "Task",
		Status:    models.TaskStatusTodo,
		Priority:  models.PriorityMedium,
		TeamID:    suite.team.ID,
		CreatedBy: suite.uploader.ID,
	}
	suite.db.Create(suite.task)
}

// TearDownTest runs after each test
func (suite *AttachmentServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AttachmentServiceTestSuite) createTestUser(email, username string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *AttachmentServiceTestSuite) addMember(teamID, userID uint64, role models.TeamRole) {
	suite.db.Create(&models.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	})
}

func (suite *AttachmentServiceTestSuite) upload(name, content string) *models.Attachment {
	attachment, err := suite.service.Upload(UploadInput{
		TaskID:     suite.task.ID,
		UploadedBy: suite.uploader.ID,
		FileName:   name,
		FileType:   "text/plain",
		FileSize:   int64(len(content)),
		Content:    strings.NewReader(content),
	})
	suite.Require().NoError(err)
	return attachment
}

// TestUpload_Success tests storing a file and its metadata
func (suite *AttachmentServiceTestSuite) TestUpload_Success() {
	attachment := suite.upload("notes.txt", "hello")

	assert.Equal(suite.T(), "notes.txt", attachment.FileName)
	assert.Equal(suite.T(), int64(5), attachment.FileSize)

	// Blob is readable through the service
	blob, err := suite.service.Open(attachment)
	suite.Require().NoError(err)
	defer blob.Close()

	content, err := io.ReadAll(blob)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "hello", string(content))
}

// TestUpload_TooLarge tests the size cap before any disk write
func (suite *AttachmentServiceTestSuite) TestUpload_TooLarge() {
	_, err := suite.service.Upload(UploadInput{
		TaskID:     suite.task.ID,
		UploadedBy: suite.uploader.ID,
		FileName:   "big.bin",
		FileType:   "application/octet-stream",
		FileSize:   2048,
		Content:    strings.NewReader("ignored"),
	})

	assert.ErrorIs(suite.T(), err, ErrFileTooLarge)
}

// TestListAttachments_NewestFirst tests attachment ordering
func (suite *AttachmentServiceTestSuite) TestListAttachments_NewestFirst() {
	first := suite.upload("first.txt", "a")
	second := suite.upload("second.txt", "b")

	attachments, err := suite.service.ListAttachments(suite.task.ID)

	assert.NoError(suite.T(), err)
	suite.Require().Len(attachments, 2)
	assert.Equal(suite.T(), second.ID, attachments[0].ID)
	assert.Equal(suite.T(), first.ID, attachments[1].ID)
}

// TestDelete_UploaderSucceeds tests deletion by the uploader, including the blob
func (suite *AttachmentServiceTestSuite) TestDelete_UploaderSucceeds() {
	attachment := suite.upload("gone.txt", "bye")
	path := attachment.FilePath

	err := suite.service.Delete(attachment.ID, suite.uploader.ID)

	assert.NoError(suite.T(), err)
	_, err = suite.service.GetAttachment(attachment.ID)
	assert.ErrorIs(suite.T(), err, ErrAttachmentNotFound)

	_, err = os.Stat(path)
	assert.True(suite.T(), os.IsNotExist(err))
}

// TestDelete_AdminSucceeds tests deletion by a team admin
func (suite *AttachmentServiceTestSuite) TestDelete_AdminSucceeds() {
	admin := suite.createTestUser("admin@example.com", "admin")
	suite.addMember(suite.team.ID, admin.ID, models.RoleAdmin)

	attachment := suite.upload("moderated.txt", "x")

	err := suite.service.Delete(attachment.ID, admin.ID)

	assert.NoError(suite.T(), err)
}

// TestDelete_PlainMemberRejected tests deletion by a non-uploader member
func (suite *AttachmentServiceTestSuite) TestDelete_PlainMemberRejected() {
	member := suite.createTestUser("member@example.com", "member")
	suite.addMember(suite.team.ID, member.ID, models.RoleMember)

	attachment := suite.upload("protected.txt", "x")

	err := suite.service.Delete(attachment.ID, member.ID)

	assert.ErrorIs(suite.T(), err, ErrNotUploaderOrAdmin)

	// Row and blob untouched
	_, err = suite.service.GetAttachment(attachment.ID)
	assert.NoError(suite.T(), err)
}

// TestSuite runs the test suite
func TestAttachmentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AttachmentServiceTestSuite))
}
