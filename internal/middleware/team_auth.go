package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/ayumu-k/teamboard-api/internal/errors"
	"github.com/ayumu-k/teamboard-api/internal/models"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"gorm.io/gorm"
)

const (
	ContextKeyTeam       = "team"
	ContextKeyTeamMember = "team_member"
)

// RequireTeamAccess checks that the team exists and that the caller is a
// member. A missing team is 404; an existing team the caller is not in is
// 403, so the two cases stay distinguishable.
func RequireTeamAccess(teamRepo repository.TeamRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid team ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		team, err := teamRepo.FindByID(teamID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.NotFound(c, "Team not found")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		member, err := teamRepo.FindMember(teamID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.Forbidden(c, "You are not a member of this team")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyTeam, *team)
		c.Set(ContextKeyTeamMember, *member)
		c.Next()
	}
}

// RequireTeamAdmin checks that the membership resolved by RequireTeamAccess
// carries the admin role.
func RequireTeamAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		memberValue, exists := c.Get(ContextKeyTeamMember)
		if !exists {
			apierrors.Forbidden(c, "Team access required")
			c.Abort()
			return
		}

		member, ok := memberValue.(models.TeamMember)
		if !ok {
			apierrors.InternalError(c, "Invalid team member data")
			c.Abort()
			return
		}

		if member.Role != models.RoleAdmin {
			apierrors.Forbidden(c, "Only team admins can perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetTeamMember retrieves the caller's membership from context.
func GetTeamMember(c *gin.Context) (models.TeamMember, bool) {
	memberValue, exists := c.Get(ContextKeyTeamMember)
	if !exists {
		return models.TeamMember{}, false
	}
	member, ok := memberValue.(models.TeamMember)
	return member, ok
}
