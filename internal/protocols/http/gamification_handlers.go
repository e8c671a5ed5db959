package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wanderhub/pkg/models"
)

// getProfile returns the caller's gamification profile
func (s *Server) getProfile(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	profile, err := s.gamificationSvc.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		c.JSON(models.StatusOf(err), models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      profile,
		Timestamp: time.Now(),
	})
}

// getEventHistory returns a page of the caller's reward history
func (s *Server) getEventHistory(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	limit, offset := parsePagination(c)
	page, err := s.gamificationSvc.GetEventHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(models.StatusOf(err), models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      page,
		Timestamp: time.Now(),
	})
}

// getLeaderboard ranks users by points. ?timeframe=all|daily|weekly|monthly
func (s *Server) getLeaderboard(c *gin.Context) {
	timeframe := c.DefaultQuery("timeframe", "all")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	board, err := s.gamificationSvc.GetLeaderboard(c.Request.Context(), timeframe, limit)
	if err != nil {
		c.JSON(models.StatusOf(err), models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      board,
		Timestamp: time.Now(),
	})
}

// redeemPoints spends the caller's points on a benefit
func (s *Server) redeemPoints(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	var req models.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	result, err := s.gamificationSvc.RedeemPoints(c.Request.Context(), userID, req.Points, req.Reason)
	if err != nil {
		c.JSON(models.StatusOf(err), models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Points redeemed",
		Data:      result,
		Timestamp: time.Now(),
	})
}

// parsePagination reads ?limit= and ?offset= with service-side clamping
func parsePagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
