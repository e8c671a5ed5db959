package http

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"wanderhub/pkg/models"
)

func TestRateLimiter_BurstThenThrottle(t *testing.T) {
	rl := newRateLimiter(60, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("user-1"), "burst request %d should pass", i+1)
	}
	assert.False(t, rl.allow("user-1"), "burst exhausted")

	// Independent bucket per user
	assert.True(t, rl.allow("user-2"))
}

func TestRateLimiterMiddleware_RejectsOverBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := newRateLimiter(60, 1)

	router := gin.New()
	router.POST("/events",
		func(c *gin.Context) { c.Set("user_id", "user-1") },
		rl.Middleware(),
		func(c *gin.Context) { c.Status(200) },
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/events", nil))
	assert.Equal(t, 200, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/events", nil))
	assert.Equal(t, 429, w.Code)
}

func TestAdminMiddleware_RoleGate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(user *models.User) *gin.Engine {
		router := gin.New()
		router.GET("/admin",
			func(c *gin.Context) {
				if user != nil {
					c.Set("user", user)
				}
			},
			AdminMiddleware(),
			func(c *gin.Context) { c.Status(200) },
		)
		return router
	}

	w := httptest.NewRecorder()
	newRouter(&models.User{ID: "u1", Role: models.UserRoleAdmin}).
		ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
	assert.Equal(t, 200, w.Code)

	w = httptest.NewRecorder()
	newRouter(&models.User{ID: "u2", Role: models.UserRoleUser}).
		ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
	assert.Equal(t, 403, w.Code)

	w = httptest.NewRecorder()
	newRouter(nil).ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
	assert.Equal(t, 401, w.Code)
}
