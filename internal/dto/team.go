package dto

import (
	"time"

	"github.com/ayumu-k/teamboard-api/internal/models"
)

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   uint64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamWithRoleDTO annotates a team with the caller's role
type TeamWithRoleDTO struct {
	TeamDTO
	Role models.TeamRole `json:"role"`
}

// TeamMemberDTO represents a member in a team
type TeamMemberDTO struct {
	User     UserDTO         `json:"user"`
	Role     models.TeamRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// TeamDetailDTO represents detailed team information
type TeamDetailDTO struct {
	TeamDTO
	Members  []TeamMemberDTO `json:"members"`
	YourRole models.TeamRole `json:"your_role"`
}

// ToTeamDTO converts a Team model to TeamDTO
func ToTeamDTO(team models.Team) TeamDTO {
	return TeamDTO{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		CreatedBy:   team.CreatedBy,
		CreatedAt:   team.CreatedAt,
		UpdatedAt:   team.UpdatedAt,
	}
}

// ToTeamWithRoleDTO converts a membership to a team annotated with the role
func ToTeamWithRoleDTO(member models.TeamMember) TeamWithRoleDTO {
	return TeamWithRoleDTO{
		TeamDTO: ToTeamDTO(member.Team),
		Role:    member.Role,
	}
}

// ToTeamMemberDTO converts a member to DTO
func ToTeamMemberDTO(member models.TeamMember) TeamMemberDTO {
	return TeamMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToTeamDetailDTO converts a team with members to a detailed DTO
func ToTeamDetailDTO(team models.Team, members []models.TeamMember, yourRole models.TeamRole) TeamDetailDTO {
	memberDTOs := make([]TeamMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToTeamMemberDTO(member)
	}

	return TeamDetailDTO{
		TeamDTO:  ToTeamDTO(team),
		Members:  memberDTOs,
		YourRole: yourRole,
	}
}
