package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"shop-system/config"
	"shop-system/internal/utils"
)

type AuthHTTPHandler struct {
	cfg config.AuthConfig
}

func NewAuthHTTPHandler(cfg config.AuthConfig) *AuthHTTPHandler {
	return &AuthHTTPHandler{cfg: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the single operator account and issues a token.
func (h *AuthHTTPHandler) Login(c *gin.Context) {
	if !h.cfg.Enabled() {
		c.JSON(http.StatusNotFound, errorResponse("Authentication is disabled"))
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid username or password"))
		return
	}

	token, exp, err := utils.GenerateToken([]byte(h.cfg.JWTSecret), h.cfg.Username, h.cfg.TokenTTL)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful", map[string]interface{}{
		"token":      token,
		"expires_at": exp,
		"username":   h.cfg.Username,
	}))
}
