package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/middleware"
)

type handlers struct {
	engine *tokengate.Engine
	log    zerolog.Logger
}

func (h *handlers) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "tokengate authentication service",
		"endpoints": gin.H{
			"register": "POST /auth/register",
			"login":    "POST /auth/login",
			"users":    "GET /auth/users",
			"profile":  "GET /protected/profile",
			"validate": "POST /protected/validate",
		},
	})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) register(c *gin.Context) {
	creds := middleware.CredentialsFromContext(c)
	user, err := h.engine.Register(c.Request.Context(), creds.Username, creds.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *handlers) login(c *gin.Context) {
	creds := middleware.CredentialsFromContext(c)
	res, err := h.engine.Login(c.Request.Context(), creds.Username, creds.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   res.Token,
		"message": "Login successful",
		"user":    res.User,
	})
}

func (h *handlers) users(c *gin.Context) {
	users, err := h.engine.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *handlers) protected(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Hello, %s! This is your profile.", id.Username),
	})
}

func (h *handlers) profile(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"username": id.Username,
			"iat":      id.IssuedAt.Unix(),
			"exp":      id.ExpiresAt.Unix(),
		},
		"message": "Profile retrieved successfully",
	})
}

func (h *handlers) validate(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"message": "Token is valid",
		"user":    tokengate.PublicUser{Username: id.Username},
	})
}

func (h *handlers) notFound(c *gin.Context) {
	h.log.Warn().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("client", c.ClientIP()).
		Msg("route not found")
	c.JSON(http.StatusNotFound, gin.H{"message": "Route not found"})
}

// identity fails the request with 401 if the guard did not run.
func (h *handlers) identity(c *gin.Context) (*tokengate.Identity, bool) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return nil, false
	}
	return id, true
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	body := errorBody(status, err)
	if body == nil {
		c.AbortWithStatus(status)
		return
	}
	c.AbortWithStatusJSON(status, body)
}
