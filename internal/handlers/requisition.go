package handlers

import (
	"errors"
	"net/http"
	"time"

	"rekrut-portal/internal/matching"
	"rekrut-portal/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RequisitionHandler struct {
	db     *gorm.DB
	logger *zap.Logger
	search *matching.Search
	engine *matching.Engine
}

func NewRequisitionHandler(db *gorm.DB, logger *zap.Logger, search *matching.Search, engine *matching.Engine) *RequisitionHandler {
	return &RequisitionHandler{
		db:     db,
		logger: logger,
		search: search,
		engine: engine,
	}
}

// Create creates a draft requisition
// @Summary Create a requisition
// @Tags requisitions
// @Security BearerAuth
// @Param request body models.CreateRequisitionRequest true "Requisition data"
// @Success 201 {object} models.RequisitionResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/requisitions [post]
func (h *RequisitionHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req models.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	if req.MinAge != nil && req.MaxAge != nil && *req.MinAge > *req.MaxAge {
		c.JSON(http.StatusBadRequest, gin.H{"error": "min_age cannot exceed max_age"})
		return
	}

	requisition := models.Requisition{
		Title:               req.Title,
		Description:         req.Description,
		Status:              models.RequisitionStatusDraft,
		MinAge:              req.MinAge,
		MaxAge:              req.MaxAge,
		MinExperienceMonths: req.MinExperienceMonths,
		Salary:              req.Salary,
		TotalPositions:      req.TotalPositions,
		ApplicationDeadline: req.ApplicationDeadline,
		CreatedBy:           userID,
	}
	err := requisition.SetCriteria(req.RequiredEducationLevels, req.PreferredGenders,
		req.RequiredSkills, req.PreferredSkills, req.PreferredLocations)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid criteria"})
		return
	}

	if err := h.db.Create(&requisition).Error; err != nil {
		h.logger.Error("Failed to create requisition", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create requisition"})
		return
	}

	h.logger.Info("Requisition created",
		zap.String("requisition_id", requisition.ID.String()),
		zap.String("title", requisition.Title))

	c.JSON(http.StatusCreated, requisition.ToResponse())
}

// List returns requisitions, optionally filtered by status
// @Summary List requisitions
// @Tags requisitions
// @Param status query string false "Filter by status"
// @Param limit query int false "Maximum results"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/requisitions [get]
func (h *RequisitionHandler) List(c *gin.Context) {
	limit := parseLimit(c, 20, 100)

	query := h.db.Model(&models.Requisition{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else if !IsRecruiterRequest(c) {
		// Public listing shows published requisitions only.
		query = query.Where("status = ?", models.RequisitionStatusPublished)
	}

	var requisitions []models.Requisition
	if err := query.Order("created_at DESC").Limit(limit).Find(&requisitions).Error; err != nil {
		h.logger.Error("Failed to list requisitions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list requisitions"})
		return
	}

	responses := make([]models.RequisitionResponse, 0, len(requisitions))
	for i := range requisitions {
		responses = append(responses, requisitions[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"requisitions": responses,
		"count":        len(responses),
	})
}

// Get returns a requisition by ID
// @Summary Get a requisition
// @Tags requisitions
// @Param id path string true "Requisition ID"
// @Success 200 {object} models.RequisitionResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/requisitions/{id} [get]
func (h *RequisitionHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var requisition models.Requisition
	err := h.db.First(&requisition, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Requisition not found"})
			return
		}
		h.logger.Error("Failed to load requisition", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load requisition"})
		return
	}

	c.JSON(http.StatusOK, requisition.ToResponse())
}

// UpdateStatus transitions the requisition through its lifecycle
// @Summary Change requisition status
// @Tags requisitions
// @Security BearerAuth
// @Param id path string true "Requisition ID"
// @Param request body models.UpdateRequisitionStatusRequest true "Target status"
// @Success 200 {object} models.RequisitionResponse
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/requisitions/{id}/status [patch]
func (h *RequisitionHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateRequisitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	var requisition models.Requisition
	if err := h.db.First(&requisition, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Requisition not found"})
		return
	}

	if !requisition.CanTransitionTo(req.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Invalid status transition",
			"from":  requisition.Status,
			"to":    req.Status,
		})
		return
	}

	requisition.Status = req.Status
	if req.Status == models.RequisitionStatusPublished && requisition.PublishedAt == nil {
		now := time.Now()
		requisition.PublishedAt = &now
	}

	if err := h.db.Save(&requisition).Error; err != nil {
		h.logger.Error("Failed to update requisition status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	h.logger.Info("Requisition status changed",
		zap.String("requisition_id", requisition.ID.String()),
		zap.String("status", string(req.Status)))

	c.JSON(http.StatusOK, requisition.ToResponse())
}

// FindCandidates runs the forward match: available candidates ranked for
// the requisition
// @Summary Find matching candidates for a requisition
// @Tags requisitions
// @Security BearerAuth
// @Param id path string true "Requisition ID"
// @Param limit query int false "Maximum results"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/requisitions/{id}/matches [get]
func (h *RequisitionHandler) FindCandidates(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var requisition models.Requisition
	if err := h.db.First(&requisition, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Requisition not found"})
		return
	}

	limit := parseLimit(c, 20, 100)

	matches, err := h.search.FindCandidates(&requisition, limit)
	if err != nil {
		h.logger.Error("Candidate search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"count":   len(matches),
	})
}

// ScoreCandidate previews the matching score of one candidate against the
// requisition without creating an application
// @Summary Score a candidate against a requisition
// @Tags requisitions
// @Security BearerAuth
// @Param id path string true "Requisition ID"
// @Param candidate_id path string true "Candidate ID"
// @Success 200 {object} matching.Result
// @Router /api/v1/requisitions/{id}/score/{candidate_id} [get]
func (h *RequisitionHandler) ScoreCandidate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	candidateID, ok := parseIDParam(c, "candidate_id")
	if !ok {
		return
	}

	var requisition models.Requisition
	if err := h.db.First(&requisition, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Requisition not found"})
		return
	}

	var candidate models.Candidate
	if err := h.db.First(&candidate, "id = ?", candidateID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Candidate not found"})
		return
	}

	c.JSON(http.StatusOK, h.engine.Score(&requisition, &candidate))
}

// IsRecruiterRequest reports whether the request carries a recruiter or
// admin identity.
func IsRecruiterRequest(c *gin.Context) bool {
	role, exists := c.Get("user_role")
	if !exists {
		return false
	}
	r, ok := role.(models.UserRole)
	return ok && (r == models.RoleRecruiter || r == models.RoleAdmin)
}
