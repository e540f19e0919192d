package services

import (
	"errors"
	"fmt"
	"io"

	"github.com/ayumu-k/teamboard-api/internal/logger"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"github.com/ayumu-k/teamboard-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrFileTooLarge       = errors.New("file exceeds the maximum upload size")
	ErrNotUploaderOrAdmin = errors.New("only the uploader or a team admin can delete attachments")
)

// AttachmentService handles attachment metadata and the backing blobs.
type AttachmentService struct {
	attachmentRepo repository.AttachmentRepository
	taskRepo       repository.TaskRepository
	teamRepo       repository.TeamRepository
	store          *storage.LocalStore
	maxBytes       int64
}

// NewAttachmentService creates a new AttachmentService.
func NewAttachmentService(attachmentRepo repository.AttachmentRepository, taskRepo repository.TaskRepository, teamRepo repository.TeamRepository, store *storage.LocalStore, maxBytes int64) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		taskRepo:       taskRepo,
		teamRepo:       teamRepo,
		store:          store,
		maxBytes:       maxBytes,
	}
}

// MaxBytes returns the configured upload cap.
func (s *AttachmentService) MaxBytes() int64 {
	return s.maxBytes
}

// UploadInput describes an incoming file.
type UploadInput struct {
	TaskID     uint64
	UploadedBy uint64
	FileName   string
	FileType   string
	FileSize   int64
	Content    io.Reader
}

// Upload stores the blob and its metadata row. The size cap is enforced
// before anything touches disk.
func (s *AttachmentService) Upload(input UploadInput) (*models.Attachment, error) {
	if input.FileSize > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	path, err := s.store.Save(input.Content, input.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	attachment := &models.Attachment{
		TaskID:     input.TaskID,
		UploadedBy: input.UploadedBy,
		FileName:   input.FileName,
		FilePath:   path,
		FileType:   input.FileType,
		FileSize:   input.FileSize,
	}

	if err := s.attachmentRepo.Create(attachment); err != nil {
		if removeErr := s.store.Remove(path); removeErr != nil {
			logger.L().Warn("failed to remove orphaned blob",
				zap.String("path", path), zap.Error(removeErr))
		}
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}

	return attachment, nil
}

// ListAttachments returns a task's attachments newest first.
func (s *AttachmentService) ListAttachments(taskID uint64) ([]models.Attachment, error) {
	attachments, err := s.attachmentRepo.ListByTaskID(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// GetAttachment returns an attachment by ID.
func (s *AttachmentService) GetAttachment(id uint64) (*models.Attachment, error) {
	attachment, err := s.attachmentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to find attachment: %w", err)
	}
	return attachment, nil
}

// Open opens an attachment's blob for streaming.
func (s *AttachmentService) Open(attachment *models.Attachment) (io.ReadCloser, error) {
	return s.store.Open(attachment.FilePath)
}

// Delete removes the metadata row and then the blob. Blob deletion is
// best-effort: a failed unlink is logged but does not undo the row delete.
func (s *AttachmentService) Delete(id, actorID uint64) error {
	attachment, err := s.GetAttachment(id)
	if err != nil {
		return err
	}

	if attachment.UploadedBy != actorID {
		task, err := s.taskRepo.FindByID(attachment.TaskID)
		if err != nil {
			return fmt.Errorf("failed to find attachment's task: %w", err)
		}

		member, err := s.teamRepo.FindMember(task.TeamID, actorID)
		if err != nil || member.Role != models.RoleAdmin {
			return ErrNotUploaderOrAdmin
		}
	}

	if err := s.attachmentRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	if err := s.store.Remove(attachment.FilePath); err != nil {
		logger.L().Warn("failed to delete attachment blob",
			zap.String("path", attachment.FilePath), zap.Error(err))
	}

	return nil
}
