package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"wanderhub/pkg/models"
)

func adminError(c *gin.Context, err error) {
	c.JSON(models.StatusOf(err), models.APIResponse{
		Success:   false,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

func adminOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(400, models.APIResponse{
		Success:   false,
		Error:     msg,
		Timestamp: time.Now(),
	})
}

// --- Rules ---

func (s *Server) createRule(c *gin.Context) {
	var rule models.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := s.adminSvc.CreateRule(c.Request.Context(), &rule); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 201, "Rule created", gin.H{"rule": rule})
}

func (s *Server) listRules(c *gin.Context) {
	limit, offset := parsePagination(c)
	page, err := s.adminSvc.ListRules(c.Request.Context(), limit, offset)
	if err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "", page)
}

func (s *Server) getRule(c *gin.Context) {
	rule, err := s.adminSvc.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "", gin.H{"rule": rule})
}

func (s *Server) updateRule(c *gin.Context) {
	var rule models.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	rule.ID = c.Param("id")

	if err := s.adminSvc.UpdateRule(c.Request.Context(), &rule); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "Rule updated", gin.H{"rule": rule})
}

func (s *Server) deleteRule(c *gin.Context) {
	if err := s.adminSvc.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "Rule deleted", nil)
}

// --- Badges ---

func (s *Server) createBadge(c *gin.Context) {
	var badge models.Badge
	if err := c.ShouldBindJSON(&badge); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := s.adminSvc.CreateBadge(c.Request.Context(), &badge); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 201, "Badge created", gin.H{"badge": badge})
}

func (s *Server) listBadges(c *gin.Context) {
	limit, offset := parsePagination(c)
	page, err := s.adminSvc.ListBadges(c.Request.Context(), limit, offset)
	if err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "", page)
}

func (s *Server) updateBadge(c *gin.Context) {
	var badge models.Badge
	if err := c.ShouldBindJSON(&badge); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	badge.ID = c.Param("id")

	if err := s.adminSvc.UpdateBadge(c.Request.Context(), &badge); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "Badge updated", gin.H{"badge": badge})
}

func (s *Server) deleteBadge(c *gin.Context) {
	if err := s.adminSvc.DeleteBadge(c.Request.Context(), c.Param("id")); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "Badge deleted", nil)
}

// --- Campaigns ---

func (s *Server) createCampaign(c *gin.Context) {
	var campaign models.Campaign
	if err := c.ShouldBindJSON(&campaign); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := s.adminSvc.CreateCampaign(c.Request.Context(), &campaign); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 201, "Campaign created", gin.H{"campaign": campaign})
}

func (s *Server) listCampaigns(c *gin.Context) {
	limit, offset := parsePagination(c)
	page, err := s.adminSvc.ListCampaigns(c.Request.Context(), limit, offset)
	if err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "", page)
}

func (s *Server) updateCampaign(c *gin.Context) {
	var campaign models.Campaign
	if err := c.ShouldBindJSON(&campaign); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	campaign.ID = c.Param("id")

	if err := s.adminSvc.UpdateCampaign(c.Request.Context(), &campaign); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "Campaign updated", gin.H{"campaign": campaign})
}

func (s *Server) deleteCampaign(c *gin.Context) {
	if err := s.adminSvc.DeleteCampaign(c.Request.Context(), c.Param("id")); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "Campaign deleted", nil)
}

// awardBadge grants a badge to a user outside the rule pipeline
func (s *Server) awardBadge(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		badRequest(c, "user id is required")
		return
	}

	var req models.AwardBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.BadgeID == "" {
		badRequest(c, "badge_id is required")
		return
	}

	if err := s.gamificationSvc.AwardBadge(c.Request.Context(), userID, req.BadgeID, req.Reason); err != nil {
		adminError(c, err)
		return
	}
	adminOK(c, 200, "Badge awarded", nil)
}
