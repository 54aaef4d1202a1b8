package handlers

import (
	"errors"
	"net/http"
	"time"

	"rekrut-portal/config"
	"rekrut-portal/internal/models"
	"rekrut-portal/pkg/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db         *gorm.DB
	logger     *zap.Logger
	jwtService *auth.JWTService
	config     *config.Config
}

func NewAuthHandler(db *gorm.DB, logger *zap.Logger, jwtService *auth.JWTService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		db:         db,
		logger:     logger,
		jwtService: jwtService,
		config:     cfg,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new account. Candidates and agents get their domain profile created alongside.
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body auth.RegisterRequest true "Registration data"
// @Success 201 {object} auth.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	var existingUser models.User
	if err := h.db.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleCandidate
	}

	// Password is hashed by the model's BeforeCreate hook.
	user := models.User{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      role,
		IsActive:  true,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		switch role {
		case models.RoleCandidate:
			candidate := models.Candidate{UserID: user.ID}
			if err := tx.Create(&candidate).Error; err != nil {
				return err
			}
		case models.RoleAgent:
			agent := models.Agent{UserID: user.ID, Level: models.AgentLevelBronze}
			if err := tx.Create(&agent).Error; err != nil {
				return err
			}
		}

		activity := &models.Activity{
			UserID:      &user.ID,
			Type:        models.ActivityTypeUserRegistered,
			Title:       "User registered",
			Description: string(role),
		}
		return tx.Create(activity).Error
	})
	if err != nil {
		h.logger.Error("Failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	tokens, err := h.issueTokens(&user)
	if err != nil {
		h.logger.Error("Failed to issue tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	h.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)))

	c.JSON(http.StatusCreated, auth.AuthResponse{
		User:   user.ToResponse(),
		Tokens: *tokens,
	})
}

// Login handles user login
// @Summary Log in
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body auth.LoginRequest true "Credentials"
// @Success 200 {object} auth.AuthResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
		return
	}

	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	tokens, err := h.issueTokens(&user)
	if err != nil {
		h.logger.Error("Failed to issue tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	activity := &models.Activity{
		UserID: &user.ID,
		Type:   models.ActivityTypeUserLogin,
		Title:  "User logged in",
	}
	if err := h.db.Create(activity).Error; err != nil {
		h.logger.Warn("Failed to record login activity", zap.Error(err))
	}

	c.JSON(http.StatusOK, auth.AuthResponse{
		User:   user.ToResponse(),
		Tokens: *tokens,
	})
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh tokens
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body auth.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} auth.AuthResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	var stored models.RefreshToken
	err := h.db.Preload("User").
		Where("token = ? AND is_revoked = ?", req.RefreshToken, false).
		First(&stored).Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	if time.Now().After(stored.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token has expired"})
		return
	}

	if err := h.db.Model(&stored).Update("is_revoked", true).Error; err != nil {
		h.logger.Error("Failed to revoke refresh token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh tokens"})
		return
	}

	tokens, err := h.issueTokens(&stored.User)
	if err != nil {
		h.logger.Error("Failed to issue tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, auth.AuthResponse{
		User:   stored.User.ToResponse(),
		Tokens: *tokens,
	})
}

// Logout revokes the current access token
// @Summary Log out
// @Tags authentication
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := auth.ExtractTokenFromBearer(authHeader)
	if token != "" {
		if err := h.jwtService.BlacklistToken(token); err != nil {
			h.logger.Warn("Failed to blacklist token", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user's account
// @Summary Current user
// @Tags authentication
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var user models.User
	err := h.db.Preload("CandidateProfile").Preload("AgentProfile").
		First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

// ChangePassword updates the authenticated user's password
// @Summary Change password
// @Tags authentication
// @Security BearerAuth
// @Param request body auth.ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req auth.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if !user.CheckPassword(req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	user.Password = req.NewPassword
	if err := user.HashPassword(); err != nil {
		h.logger.Error("Failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	if err := h.db.Model(&user).Update("password", user.Password).Error; err != nil {
		h.logger.Error("Failed to update password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *AuthHandler) issueTokens(user *models.User) (*auth.TokenPair, error) {
	tokens, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, err
	}

	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     tokens.RefreshToken,
		ExpiresAt: h.jwtService.RefreshTokenExpiry(),
	}
	if err := h.db.Create(&refreshToken).Error; err != nil {
		return nil, err
	}

	return tokens, nil
}
