package dto

import (
	"time"

	"github.com/ayumu-k/teamboard-api/internal/models"
)

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID        uint64    `json:"id"`
	TaskID    uint64    `json:"task_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    *UserDTO  `json:"author,omitempty"`
}

// AttachmentDTO represents attachment metadata in API responses
type AttachmentDTO struct {
	ID         uint64    `json:"id"`
	TaskID     uint64    `json:"task_id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
	Uploader   *UserDTO  `json:"uploader,omitempty"`
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	dto := CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}

	if comment.User.ID != 0 {
		author := ToUserDTO(comment.User)
		dto.Author = &author
	}

	return dto
}

// ToCommentDTOs converts a slice of comments
func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	dtos := make([]CommentDTO, len(comments))
	for i, comment := range comments {
		dtos[i] = ToCommentDTO(comment)
	}
	return dtos
}

// ToAttachmentDTO converts an Attachment model to AttachmentDTO
func ToAttachmentDTO(attachment models.Attachment) AttachmentDTO {
	dto := AttachmentDTO{
		ID:         attachment.ID,
		TaskID:     attachment.TaskID,
		FileName:   attachment.FileName,
		FileType:   attachment.FileType,
		FileSize:   attachment.FileSize,
		UploadedAt: attachment.UploadedAt,
	}

	if attachment.Uploader.ID != 0 {
		uploader := ToUserDTO(attachment.Uploader)
		dto.Uploader = &uploader
	}

	return dto
}

// ToAttachmentDTOs converts a slice of attachments
func ToAttachmentDTOs(attachments []models.Attachment) []AttachmentDTO {
	dtos := make([]AttachmentDTO, len(attachments))
	for i, attachment := range attachments {
		dtos[i] = ToAttachmentDTO(attachment)
	}
	return dtos
}
