package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"wanderhub/pkg/models"
)

// submitEvent feeds a trackable event into the reward engine. The caller
// is always the authenticated user; events on behalf of others are not a
// thing this endpoint supports.
func (s *Server) submitEvent(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	var req models.SubmitEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	result, err := s.gamificationSvc.ProcessEvent(c.Request.Context(), userID, req.EventType, req.EventData)
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
		Message:   "Event processed",
		Data:      result,
		Timestamp: time.Now(),
	})
}
