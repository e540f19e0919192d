package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayumu-k/teamboard-api/internal/constants"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrContentRequired = errors.New("content is required")
	ErrContentTooLong  = errors.New("content exceeds the maximum length")
	ErrNotCommentOwner = errors.New("only the comment author can edit it")
	ErrCannotDelete    = errors.New("only the comment author or a team admin can delete it")
)

// CommentService handles task comment rules.
type CommentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
	teamRepo    repository.TeamRepository
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, taskRepo repository.TaskRepository, teamRepo repository.TeamRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		teamRepo:    teamRepo,
	}
}

// CreateComment adds a comment to a task.
func (s *CommentService) CreateComment(taskID, userID uint64, content string) (*models.Comment, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		TaskID:  taskID,
		UserID:  userID,
		Content: content,
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// ListComments returns a task's comments oldest first.
func (s *CommentService) ListComments(taskID uint64) ([]models.Comment, error) {
	comments, err := s.commentRepo.ListByTaskID(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// GetComment returns a comment by ID.
func (s *CommentService) GetComment(commentID uint64) (*models.Comment, error) {
	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return comment, nil
}

// UpdateComment edits a comment; author only.
func (s *CommentService) UpdateComment(commentID, actorID uint64, content string) (*models.Comment, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	comment, err := s.GetComment(commentID)
	if err != nil {
		return nil, err
	}

	if comment.UserID != actorID {
		return nil, ErrNotCommentOwner
	}

	comment.Content = content
	if err := s.commentRepo.Update(comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	return comment, nil
}

// DeleteComment removes a comment; author or team admin.
func (s *CommentService) DeleteComment(commentID, actorID uint64) error {
	comment, err := s.GetComment(commentID)
	if err != nil {
		return err
	}

	if comment.UserID != actorID {
		task, err := s.taskRepo.FindByID(comment.TaskID)
		if err != nil {
			return fmt.Errorf("failed to find comment's task: %w", err)
		}

		member, err := s.teamRepo.FindMember(task.TeamID, actorID)
		if err != nil || member.Role != models.RoleAdmin {
			return ErrCannotDelete
		}
	}

	if err := s.commentRepo.Delete(commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}
	if len(content) > constants.MaxCommentLength {
		return ErrContentTooLong
	}
	return nil
}
