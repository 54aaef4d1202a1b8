package handlers

import (
	"errors"
	"net/http"

	"rekrut-portal/internal/matching"
	"rekrut-portal/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CandidateHandler struct {
	db     *gorm.DB
	logger *zap.Logger
	search *matching.Search
}

func NewCandidateHandler(db *gorm.DB, logger *zap.Logger, search *matching.Search) *CandidateHandler {
	return &CandidateHandler{
		db:     db,
		logger: logger,
		search: search,
	}
}

// GetProfile returns the authenticated candidate's profile
// @Summary Get own candidate profile
// @Tags candidates
// @Security BearerAuth
// @Success 200 {object} models.CandidateResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/candidates/me [get]
func (h *CandidateHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var candidate models.Candidate
	err := h.db.Preload("User").First(&candidate, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Candidate profile not found"})
			return
		}
		h.logger.Error("Failed to load candidate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, candidate.ToResponse())
}

// UpdateProfile updates the authenticated candidate's profile
// @Summary Update own candidate profile
// @Tags candidates
// @Security BearerAuth
// @Param request body models.UpdateCandidateRequest true "Profile fields"
// @Success 200 {object} models.CandidateResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/candidates/me [put]
func (h *CandidateHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req models.UpdateCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	var candidate models.Candidate
	if err := h.db.First(&candidate, "user_id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Candidate profile not found"})
		return
	}

	if req.BirthDate != nil {
		candidate.BirthDate = req.BirthDate
	}
	if req.Gender != nil {
		candidate.Gender = *req.Gender
	}
	if req.EducationLevel != nil {
		candidate.EducationLevel = *req.EducationLevel
	}
	if req.ExperienceMonths != nil {
		candidate.ExperienceMonths = *req.ExperienceMonths
	}
	if req.TechnicalSkills != nil {
		if err := candidate.SetTechnicalSkills(req.TechnicalSkills); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid technical skills"})
			return
		}
	}
	if req.SoftSkills != nil {
		if err := candidate.SetSoftSkills(req.SoftSkills); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid soft skills"})
			return
		}
	}
	if req.City != nil {
		candidate.City = *req.City
	}
	if req.Province != nil {
		candidate.Province = *req.Province
	}
	if req.Availability != nil {
		candidate.Availability = *req.Availability
	}

	if err := h.db.Save(&candidate).Error; err != nil {
		h.logger.Error("Failed to update candidate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, candidate.ToResponse())
}

// Get returns a candidate by ID (recruiter view)
// @Summary Get a candidate
// @Tags candidates
// @Security BearerAuth
// @Param id path string true "Candidate ID"
// @Success 200 {object} models.CandidateResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/candidates/{id} [get]
func (h *CandidateHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var candidate models.Candidate
	err := h.db.Preload("User").First(&candidate, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Candidate not found"})
			return
		}
		h.logger.Error("Failed to load candidate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load candidate"})
		return
	}

	c.JSON(http.StatusOK, candidate.ToResponse())
}

// FindRequisitions runs the reverse match: open requisitions ranked for
// the authenticated candidate
// @Summary Find matching requisitions for the current candidate
// @Tags candidates
// @Security BearerAuth
// @Param limit query int false "Maximum results"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/candidates/me/matches [get]
func (h *CandidateHandler) FindRequisitions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var candidate models.Candidate
	if err := h.db.First(&candidate, "user_id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Candidate profile not found"})
		return
	}

	limit := parseLimit(c, 20, 100)

	matches, err := h.search.FindRequisitions(&candidate, limit)
	if err != nil {
		h.logger.Error("Requisition search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"count":   len(matches),
	})
}
