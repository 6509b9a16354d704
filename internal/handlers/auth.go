package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mines-arcade-backend/internal/services"
)

// AuthHandler issues development tokens. Real deployments authenticate
// through the surrounding platform, which signs JWTs with the shared
// secret; this endpoint is only mounted outside production.
type AuthHandler struct {
	jwtService *services.JWTService
}

func NewAuthHandler(jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{jwtService: jwtService}
}

type devTokenRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *AuthHandler) IssueDevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	token, err := h.jwtService.GenerateToken(req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
