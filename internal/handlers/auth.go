package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"proctrace/internal/models"
	"proctrace/internal/repository"
	"proctrace/internal/utils"
)

// Session keys shared with the router middleware.
const (
	adminSessionKey = "adminID"
	csrfSessionKey  = "csrf_token"
)

// AuthHandler signs reviewers in and out and manages machine-client API
// keys. Key management is admin-session only.
type AuthHandler struct {
	log    *zap.Logger
	admins *repository.Admins
	keys   *repository.APIKeys
}

func NewAuthHandler(log *zap.Logger, admins *repository.Admins, keys *repository.APIKeys) *AuthHandler {
	return &AuthHandler{log: log, admins: admins, keys: keys}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a reviewer and establishes the session cookie. The
// response carries the CSRF token subsequent unsafe requests must echo.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	admin, err := h.admins.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !admin.IsActive || !admin.CheckPassword(req.Password) {
		// One message for every failure mode; login errors must not reveal
		// which accounts exist.
		h.log.Warn("Failed admin login", zap.String("email", req.Email), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	csrfToken, err := utils.GenerateSecureToken(32)
	if err != nil {
		h.log.Error("Failed to generate CSRF token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	session := sessions.Default(c)
	session.Set(adminSessionKey, admin.ID)
	session.Set(csrfSessionKey, csrfToken)
	if err := session.Save(); err != nil {
		h.log.Error("Failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if err := h.admins.TouchLogin(c.Request.Context(), admin.ID, time.Now()); err != nil {
		h.log.Warn("Failed to stamp login time", zap.Uint("admin_id", admin.ID), zap.Error(err))
	}

	h.log.Info("Admin logged in", zap.String("email", admin.Email))
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"csrfToken": csrfToken,
		"admin":     admin,
	})
}

// Logout clears the reviewer session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		h.log.Error("Failed to clear session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type createKeyRequest struct {
	Name         string `json:"name" binding:"required,max=100"`
	Description  string `json:"description" binding:"max=500"`
	AllowedPaths string `json:"allowedPaths" binding:"max=500"`
	IsAdmin      bool   `json:"isAdmin"`
}

// CreateKey mints a new API key. The key material is returned exactly once;
// only its metadata is ever listed afterwards.
func (h *AuthHandler) CreateKey(c *gin.Context) {
	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a key name is required"})
		return
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		h.log.Error("Failed to generate API key", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create key"})
		return
	}

	row := &models.APIKey{
		Key:          key,
		Name:         req.Name,
		Description:  req.Description,
		AllowedPaths: req.AllowedPaths,
		IsAdmin:      req.IsAdmin,
		IsActive:     true,
	}
	if err := h.keys.Create(c.Request.Context(), row); err != nil {
		h.log.Error("Failed to store API key", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create key"})
		return
	}

	h.log.Info("API key created", zap.String("name", req.Name))
	c.JSON(http.StatusCreated, gin.H{"status": "success", "key": key, "name": req.Name})
}

// ListKeys serves API key metadata. Key material never leaves Create.
func (h *AuthHandler) ListKeys(c *gin.Context) {
	rows, err := h.keys.List(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list API keys", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list keys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": rows})
}

// RevokeKey deactivates every key carrying the given name.
func (h *AuthHandler) RevokeKey(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a key name is required"})
		return
	}

	revoked, err := h.keys.RevokeByName(c.Request.Context(), name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		h.log.Error("Failed to revoke API key", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke key"})
		return
	}
	if revoked == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active key with that name"})
		return
	}

	h.log.Info("API key revoked", zap.String("name", name), zap.Int64("count", revoked))
	c.JSON(http.StatusOK, gin.H{"status": "success", "revoked": revoked})
}
