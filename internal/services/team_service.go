package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrInvalidTeamName    = errors.New("team name cannot be empty")
	ErrNotTeamMember      = errors.New("user is not a member of the team")
	ErrAlreadyTeamMember  = errors.New("user is already a member of this team")
	ErrTeamMemberNotFound = errors.New("team member not found")
	ErrLastAdmin          = errors.New("a team must keep at least one admin")
	ErrInvalidRole        = errors.New("role must be admin or member")
)

// TeamService provides membership and authorization rules for teams.
type TeamService struct {
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
}

// NewTeamService creates a new TeamService.
func NewTeamService(teamRepo repository.TeamRepository, userRepo repository.UserRepository, taskRepo repository.TaskRepository) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		userRepo: userRepo,
		taskRepo: taskRepo,
	}
}

// CreateTeamInput represents parameters to create a new team.
type CreateTeamInput struct {
	Name        string
	Description string
	CreatorID   uint64
}

// CreateTeam creates a team and its creator's admin membership atomically.
func (s *TeamService) CreateTeam(input CreateTeamInput) (*models.Team, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidTeamName
	}

	team := &models.Team{
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   input.CreatorID,
	}

	member := &models.TeamMember{
		UserID:   input.CreatorID,
		Role:     models.RoleAdmin,
		JoinedAt: time.Now(),
	}

	if err := s.teamRepo.CreateWithAdmin(team, member); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

// IsMember resolves a user's membership in a team, or ErrNotTeamMember.
// The team's existence is checked first so callers can distinguish a missing
// team from a membership failure.
func (s *TeamService) IsMember(teamID, userID uint64) (*models.TeamMember, error) {
	if _, err := s.teamRepo.FindByID(teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}

	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	return member, nil
}

// ListTeamsForUser returns memberships (team + role) for a user.
func (s *TeamService) ListTeamsForUser(userID uint64) ([]models.TeamMember, error) {
	memberships, err := s.teamRepo.ListMembershipsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return memberships, nil
}

// GetTeamWithMembers returns a team and all of its members.
func (s *TeamService) GetTeamWithMembers(teamID uint64) (*models.Team, []models.TeamMember, error) {
	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTeamNotFound
		}
		return nil, nil, fmt.Errorf("failed to find team: %w", err)
	}

	members, err := s.teamRepo.ListMembers(teamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list team members: %w", err)
	}

	return team, members, nil
}

// UpdateTeamInput holds optional team fields; nil leaves a field unchanged.
type UpdateTeamInput struct {
	Name        *string
	Description *string
}

// UpdateTeam updates a team's name and description.
func (s *TeamService) UpdateTeam(teamID uint64, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidTeamName
		}
		team.Name = *input.Name
	}
	if input.Description != nil {
		team.Description = *input.Description
	}

	if err := s.teamRepo.Update(team); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	return team, nil
}

// DeleteTeam removes a team and everything it owns.
func (s *TeamService) DeleteTeam(teamID uint64) error {
	if _, err := s.teamRepo.FindByID(teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to find team: %w", err)
	}

	if err := s.teamRepo.Delete(teamID); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	return nil
}

// AddMemberInput identifies the user to add either by ID or by email.
type AddMemberInput struct {
	TeamID uint64
	UserID uint64
	Email  string
	Role   models.TeamRole
}

// AddMember adds a user to a team. Fails with ErrAlreadyTeamMember when a
// membership row already exists.
func (s *TeamService) AddMember(input AddMemberInput) (*models.TeamMember, error) {
	role := input.Role
	if role == "" {
		role = models.RoleMember
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	userID := input.UserID
	if userID == 0 {
		user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(input.Email)))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		userID = user.ID
	} else if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.teamRepo.FindMember(input.TeamID, userID); err == nil {
		return nil, ErrAlreadyTeamMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.TeamMember{
		TeamID:   input.TeamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	}

	if err := s.teamRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// RemoveMember removes a member. Removing the last admin is rejected.
func (s *TeamService) RemoveMember(teamID, userID uint64) error {
	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamMemberNotFound
		}
		return fmt.Errorf("failed to find team member: %w", err)
	}

	if member.Role == models.RoleAdmin {
		if err := s.ensureNotLastAdmin(teamID); err != nil {
			return err
		}
	}

	if err := s.teamRepo.RemoveMember(teamID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// UpdateMemberRole changes a member's role. Downgrading the last admin is
// rejected.
func (s *TeamService) UpdateMemberRole(teamID, userID uint64, role models.TeamRole) (*models.TeamMember, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}

	if member.Role == models.RoleAdmin && role != models.RoleAdmin {
		if err := s.ensureNotLastAdmin(teamID); err != nil {
			return nil, err
		}
	}

	if err := s.teamRepo.UpdateMemberRole(teamID, userID, role); err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	member.Role = role
	return member, nil
}

// TeamStats aggregates task counts for a team.
type TeamStats struct {
	Total      int64                         `json:"total"`
	ByStatus   map[models.TaskStatus]int64   `json:"by_status"`
	ByPriority map[models.TaskPriority]int64 `json:"by_priority"`
}

// GetStats returns task statistics for a team.
func (s *TeamService) GetStats(teamID uint64) (*TeamStats, error) {
	byStatus, err := s.taskRepo.CountByStatus(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	byPriority, err := s.taskRepo.CountByPriority(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}

	return &TeamStats{
		Total:      total,
		ByStatus:   byStatus,
		ByPriority: byPriority,
	}, nil
}

func (s *TeamService) ensureNotLastAdmin(teamID uint64) error {
	admins, err := s.teamRepo.CountAdmins(teamID)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}
