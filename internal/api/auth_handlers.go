package api

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"slideforge/internal/service"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 32
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// AuthHandler serves registration, login and API key management.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler wires an AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	if len(req.Username) < minUsernameLength || len(req.Username) > maxUsernameLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Username length must be between 3 and 32 characters"})
		return
	}
	if !usernameRegex.MatchString(req.Username) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Username can only contain letters, numbers, underscores, and hyphens"})
		return
	}
	if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Password length must be between 8 and 72 characters"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID.String(),
		"username": user.Username,
		"email":    user.Email,
		"credits":  user.Credits,
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"user": gin.H{
			"id":       user.ID.String(),
			"username": user.Username,
			"email":    user.Email,
			"credits":  user.Credits,
		},
	})
}

type createKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *AuthHandler) createAPIKey(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}

	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	plaintext, key, err := h.auth.CreateAPIKey(c.Request.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// The plaintext key is shown exactly once.
	c.JSON(http.StatusCreated, gin.H{
		"key":    plaintext,
		"apiKey": key,
	})
}

func (h *AuthHandler) listAPIKeys(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}

	keys, err := h.auth.ListAPIKeys(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKeys": keys})
}

func (h *AuthHandler) revokeAPIKey(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}

	keyID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}

	if err := h.auth.RevokeAPIKey(c.Request.Context(), keyID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
