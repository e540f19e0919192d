package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ayumu-k/teamboard-api/internal/dto"
	apierrors "github.com/ayumu-k/teamboard-api/internal/errors"
	"github.com/ayumu-k/teamboard-api/internal/logger"
	"github.com/ayumu-k/teamboard-api/internal/middleware"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"github.com/ayumu-k/teamboard-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttachmentHandler coordinates attachment-related HTTP handlers.
type AttachmentHandler struct {
	attachmentService *services.AttachmentService
	taskRepo          repository.TaskRepository
	teamRepo          repository.TeamRepository
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachmentService *services.AttachmentService, taskRepo repository.TaskRepository, teamRepo repository.TeamRepository) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		taskRepo:          taskRepo,
		teamRepo:          teamRepo,
	}
}

// Upload stores a multipart file as an attachment of the task loaded by the
// access middleware. Files over the configured cap are rejected before any
// disk write.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "Task not found")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apierrors.BadRequest(c, "A file field is required")
		return
	}

	if fileHeader.Size > h.attachmentService.MaxBytes() {
		apierrors.PayloadTooLarge(c, fmt.Sprintf("File exceeds the maximum upload size of %d bytes", h.attachmentService.MaxBytes()))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.L().Error("failed to open uploaded file", zap.Error(err))
		apierrors.InternalError(c, "")
		return
	}
	defer file.Close()

	attachment, err := h.attachmentService.Upload(services.UploadInput{
		TaskID:     task.ID,
		UploadedBy: userID,
		FileName:   fileHeader.Filename,
		FileType:   fileHeader.Header.Get("Content-Type"),
		FileSize:   fileHeader.Size,
		Content:    file,
	})
	if err != nil {
		respondAttachmentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAttachmentDTO(*attachment))
}

// List returns a task's attachments newest first.
func (h *AttachmentHandler) List(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.NotFound(c, "Task not found")
		return
	}

	attachments, err := h.attachmentService.ListAttachments(task.ID)
	if err != nil {
		respondAttachmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachments": dto.ToAttachmentDTOs(attachments)})
}

// Download streams an attachment's blob to the caller.
func (h *AttachmentHandler) Download(c *gin.Context) {
	attachment, ok := h.resolveAttachment(c)
	if !ok {
		return
	}

	blob, err := h.attachmentService.Open(attachment)
	if err != nil {
		logger.L().Error("failed to open attachment blob",
			zap.Uint64("attachment_id", attachment.ID), zap.Error(err))
		apierrors.InternalError(c, "")
		return
	}
	defer blob.Close()

	contentType := attachment.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	c.DataFromReader(http.StatusOK, attachment.FileSize, contentType, blob, nil)
}

// Delete removes an attachment. Uploader or team admin.
func (h *AttachmentHandler) Delete(c *gin.Context) {
	attachment, ok := h.resolveAttachment(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserID(c)

	if err := h.attachmentService.Delete(attachment.ID, userID); err != nil {
		respondAttachmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Attachment deleted successfully",
	})
}

// resolveAttachment loads the attachment named by the route and checks the
// caller belongs to its task's team. Missing attachment is 404; an existing
// one in a foreign team is 403.
func (h *AttachmentHandler) resolveAttachment(c *gin.Context) (*models.Attachment, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid attachment ID")
		return nil, false
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, false
	}

	attachment, err := h.attachmentService.GetAttachment(id)
	if err != nil {
		respondAttachmentError(c, err)
		return nil, false
	}

	task, err := h.taskRepo.FindByID(attachment.TaskID)
	if err != nil {
		logger.L().Error("failed to find attachment's task",
			zap.Uint64("attachment_id", id), zap.Error(err))
		apierrors.InternalError(c, "")
		return nil, false
	}

	if _, err := h.teamRepo.FindMember(task.TeamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierrors.Forbidden(c, "You are not a member of this task's team")
		} else {
			apierrors.InternalError(c, "")
		}
		return nil, false
	}

	return attachment, true
}

func respondAttachmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAttachmentNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		apierrors.PayloadTooLarge(c, err.Error())
	case errors.Is(err, services.ErrNotUploaderOrAdmin):
		apierrors.Forbidden(c, err.Error())
	default:
		logger.L().Error("attachment operation failed", zap.Error(err))
		apierrors.InternalError(c, "")
	}
}
