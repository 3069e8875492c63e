package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/domain"
	"bookshelf/internal/repository"
	"bookshelf/internal/service"
	"bookshelf/internal/token"
)

// AuthHandler wires the identity service routes: registration, login, and
// the directory endpoint other services resolve users through.
type AuthHandler struct {
	users  service.UserService
	codec  *token.Codec
	logger *logrus.Logger
}

func NewAuthHandler(users service.UserService, codec *token.Codec, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		codec:  codec,
		logger: logger,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/auth/users/:id", h.getUser)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string          `json:"token"`
	User  profileResponse `json:"user"`
}

type profileResponse struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage"`
	CreatedAt    string `json:"createdAt"`
}

func profileToResponse(p *domain.UserProfile) profileResponse {
	return profileResponse{
		ID:           p.ID,
		Username:     p.Username,
		Email:        p.Email,
		ProfileImage: p.ProfileImage,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	signed, err := h.codec.Issue(profile.ID)
	if err != nil {
		h.logger.Errorf("issue token for %s: %v", profile.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{Token: signed, User: profileToResponse(profile)})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	signed, err := h.codec.Issue(profile.ID)
	if err != nil {
		h.logger.Errorf("issue token for %s: %v", profile.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, sessionResponse{Token: signed, User: profileToResponse(profile)})
}

// getUser is the directory endpoint consumed by the book service. The
// service layer already strips credentials; the response type cannot carry
// them either.
func (h *AuthHandler) getUser(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Errorf("get user %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, profileToResponse(profile))
}

func (h *AuthHandler) respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Errorf("auth request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
