package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"wanderhub/pkg/logger"
	"wanderhub/pkg/models"
)

// register handles user registration
func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	if err := models.ValidateRegisterRequest(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	user, err := s.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		c.JSON(models.StatusOf(err), models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(201, models.APIResponse{
		Success:   true,
		Message:   "User registered successfully",
		Data:      gin.H{"user": user.PublicProfile()},
		Timestamp: time.Now(),
	})
}

// login authenticates the user and feeds a user_login event into the
// reward engine. A failing engine never fails the login itself.
func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	if req.Username == "" || req.Password == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "username and password are required",
			Timestamp: time.Now(),
		})
		return
	}

	resp, err := s.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "invalid credentials",
			Timestamp: time.Now(),
		})
		return
	}

	eventData := map[string]interface{}{}
	if req.Referrer != "" {
		eventData["referrer"] = req.Referrer
	}
	rewards, err := s.gamificationSvc.ProcessEvent(c.Request.Context(), resp.User.ID, models.EventUserLogin, eventData)
	if err != nil {
		logger.Warnf("login reward processing failed for user %s: %v", resp.User.ID, err)
	}

	data := gin.H{"auth": resp}
	if rewards != nil {
		data["rewards"] = rewards
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Login successful",
		Data:      data,
		Timestamp: time.Now(),
	})
}
