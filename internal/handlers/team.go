package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ayumu-k/teamboard-api/internal/dto"
	apierrors "github.com/ayumu-k/teamboard-api/internal/errors"
	"github.com/ayumu-k/teamboard-api/internal/logger"
	"github.com/ayumu-k/teamboard-api/internal/middleware"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/services"
	"go.uber.org/zap"
)

// TeamHandler coordinates team-related HTTP handlers.
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// CreateTeam creates a team; the caller becomes its first admin.
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTeamRequest struct {
		Name        string `json:"name" binding:"required,min=1,max=100"`
		Description string `json:"description" binding:"max=500"`
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, "Invalid request body", err.Error())
		return
	}

	team, err := h.teamService.CreateTeam(services.CreateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   userID,
	})
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamDTO(*team))
}

// ListTeams returns the teams the caller belongs to, with their role in each.
func (h *TeamHandler) ListTeams(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	memberships, err := h.teamService.ListTeamsForUser(userID)
	if err != nil {
		logger.L().Error("failed to list teams", zap.Error(err), zap.Uint64("user_id", userID))
		apierrors.InternalError(c, "")
		return
	}

	teams := make([]dto.TeamWithRoleDTO, len(memberships))
	for i, membership := range memberships {
		teams[i] = dto.ToTeamWithRoleDTO(membership)
	}

	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// GetTeam returns team detail including the member list.
func (h *TeamHandler) GetTeam(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}

	caller, ok := middleware.GetTeamMember(c)
	if !ok {
		apierrors.Forbidden(c, "Team access required")
		return
	}

	team, members, err := h.teamService.GetTeamWithMembers(teamID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDetailDTO(*team, members, caller.Role))
}

// ListMembers returns the team's member list.
func (h *TeamHandler) ListMembers(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}

	_, members, err := h.teamService.GetTeamWithMembers(teamID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	memberDTOs := make([]dto.TeamMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = dto.ToTeamMemberDTO(member)
	}

	c.JSON(http.StatusOK, gin.H{"members": memberDTOs})
}

// UpdateTeam updates a team's name and description. Admin only.
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}

	type UpdateTeamRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, "Invalid request body", err.Error())
		return
	}

	team, err := h.teamService.UpdateTeam(teamID, services.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team))
}

// DeleteTeam deletes a team and everything it owns. Admin only.
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}

	if err := h.teamService.DeleteTeam(teamID); err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Team deleted successfully",
	})
}

// AddMember adds a user to the team by ID or email. Admin only.
func (h *TeamHandler) AddMember(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}

	type AddMemberRequest struct {
		UserID uint64          `json:"user_id"`
		Email  string          `json:"email"`
		Role   models.TeamRole `json:"role"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, "Invalid request body", err.Error())
		return
	}

	if req.UserID == 0 && req.Email == "" {
		apierrors.BadRequest(c, "Either user_id or email is required")
		return
	}

	member, err := h.teamService.AddMember(services.AddMemberInput{
		TeamID: teamID,
		UserID: req.UserID,
		Email:  req.Email,
		Role:   req.Role,
	})
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Member added successfully",
		"member": gin.H{
			"user_id":   member.UserID,
			"role":      member.Role,
			"joined_at": member.JoinedAt,
		},
	})
}

// RemoveMember removes a member from the team. Admin only, except that any
// member may remove themselves.
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}

	memberID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	caller, ok := middleware.GetTeamMember(c)
	if !ok {
		apierrors.Forbidden(c, "Team access required")
		return
	}
	if caller.Role != models.RoleAdmin && caller.UserID != memberID {
		apierrors.Forbidden(c, "Only team admins can remove other members")
		return
	}

	if err := h.teamService.RemoveMember(teamID, memberID); err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

// UpdateMemberRole changes a member's role. Admin only.
func (h *TeamHandler) UpdateMemberRole(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}

	memberID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	type UpdateRoleRequest struct {
		Role models.TeamRole `json:"role" binding:"required"`
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, "Invalid request body", err.Error())
		return
	}

	member, err := h.teamService.UpdateMemberRole(teamID, memberID, req.Role)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Role updated successfully",
		"member": gin.H{
			"user_id": member.UserID,
			"role":    member.Role,
		},
	})
}

// GetStats returns task counts for the team grouped by status and priority.
func (h *TeamHandler) GetStats(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}

	stats, err := h.teamService.GetStats(teamID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func respondTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrTeamMemberNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidTeamName),
		errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAlreadyTeamMember):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrLastAdmin):
		apierrors.InvalidOperation(c, err.Error())
	default:
		logger.L().Error("team operation failed", zap.Error(err))
		apierrors.InternalError(c, "")
	}
}
