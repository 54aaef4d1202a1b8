package handlers

import (
	"net/http"

	"rekrut-portal/internal/models"
	"rekrut-portal/internal/pipeline"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ApplicationHandler struct {
	db       *gorm.DB
	logger   *zap.Logger
	pipeline *pipeline.Service
}

func NewApplicationHandler(db *gorm.DB, logger *zap.Logger, svc *pipeline.Service) *ApplicationHandler {
	return &ApplicationHandler{
		db:       db,
		logger:   logger,
		pipeline: svc,
	}
}

// Submit creates an application for the authenticated candidate
// @Summary Submit an application
// @Tags applications
// @Security BearerAuth
// @Param request body models.SubmitApplicationRequest true "Target requisition"
// @Success 201 {object} models.ApplicationResponse
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req models.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	var candidate models.Candidate
	if err := h.db.First(&candidate, "user_id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Candidate profile not found"})
		return
	}

	application, err := h.pipeline.Submit(candidate.ID, req.RequisitionID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, application.ToResponse())
}

// Get returns one application
// @Summary Get an application
// @Tags applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} models.ApplicationResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	application, err := h.pipeline.Get(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, application.ToResponse())
}

// List returns applications, filtered by requisition or by the
// authenticated candidate
// @Summary List applications
// @Tags applications
// @Security BearerAuth
// @Param requisition_id query string false "Filter by requisition"
// @Param stage query string false "Filter by current stage"
// @Param limit query int false "Maximum results"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	limit := parseLimit(c, 20, 100)

	query := h.db.Model(&models.Application{}).
		Preload("Candidate").
		Preload("Requisition")

	if reqID := c.Query("requisition_id"); reqID != "" {
		if !IsRecruiterRequest(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		query = query.Where("requisition_id = ?", reqID)
	} else if !IsRecruiterRequest(c) {
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
		query = query.Where("candidate_id = ?", candidate.ID)
	}

	if stage := c.Query("stage"); stage != "" {
		query = query.Where("current_stage = ?", stage)
	}

	var applications []models.Application
	err := query.Order("matching_score DESC, id ASC").Limit(limit).Find(&applications).Error
	if err != nil {
		h.logger.Error("Failed to list applications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list applications"})
		return
	}

	responses := make([]models.ApplicationResponse, 0, len(applications))
	for i := range applications {
		responses = append(responses, applications[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": responses,
		"count":        len(responses),
	})
}

// Advance moves an application to its next stage
// @Summary Advance an application
// @Tags applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} models.ApplicationResponse
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/applications/{id}/advance [post]
func (h *ApplicationHandler) Advance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actorID, _ := currentUserID(c)
	application, err := h.pipeline.Advance(id, &actorID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, application.ToResponse())
}

// Schedule records a schedule for the current stage
// @Summary Schedule the current stage
// @Tags applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body models.ScheduleStageRequest true "Schedule"
// @Success 200 {object} models.ApplicationResponse
// @Router /api/v1/applications/{id}/schedule [post]
func (h *ApplicationHandler) Schedule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.ScheduleStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, _ := currentUserID(c)
	application, err := h.pipeline.Schedule(id, &actorID, req.ScheduledAt)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, application.ToResponse())
}

// RecordResult stores the current stage's outcome
// @Summary Record a stage result
// @Tags applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body models.StageResultRequest true "Result"
// @Success 200 {object} models.ApplicationResponse
// @Router /api/v1/applications/{id}/result [post]
func (h *ApplicationHandler) RecordResult(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.StageResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, _ := currentUserID(c)
	application, err := h.pipeline.RecordResult(id, &actorID, req.Result, req.Notes)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, application.ToResponse())
}

// Reject closes the application. Rejecting twice reports the terminal
// state instead of failing.
// @Summary Reject an application
// @Tags applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body models.RejectApplicationRequest true "Reason"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/applications/{id}/reject [post]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.RejectApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, _ := currentUserID(c)
	application, already, err := h.pipeline.Reject(id, &actorID, req.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application":      application.ToResponse(),
		"already_rejected": already,
	})
}

// Accept makes the hiring decision. Admins may accept before final review.
// @Summary Accept an application
// @Tags applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body models.AcceptApplicationRequest true "Decision notes"
// @Success 200 {object} models.ApplicationResponse
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/applications/{id}/accept [post]
func (h *ApplicationHandler) Accept(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.AcceptApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	allowEarly := IsAdminRequest(c)
	application, err := h.pipeline.Accept(id, actorID, req.Notes, allowEarly)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, application.ToResponse())
}

// Withdraw lets the candidate leave the pipeline
// @Summary Withdraw an application
// @Tags applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} models.ApplicationResponse
// @Router /api/v1/applications/{id}/withdraw [post]
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

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

	application, err := h.pipeline.Withdraw(id, candidate.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, application.ToResponse())
}

// Place turns an accepted application into a placement
// @Summary Place an accepted application
// @Tags applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body models.CreatePlacementRequest true "Contract terms"
// @Success 201 {object} models.PlacementResponse
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/applications/{id}/place [post]
func (h *ApplicationHandler) Place(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.CreatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, _ := currentUserID(c)
	placement, err := h.pipeline.Place(id, &actorID, req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, placement.ToResponse())
}

// IsAdminRequest reports whether the request carries an admin identity.
func IsAdminRequest(c *gin.Context) bool {
	role, exists := c.Get("user_role")
	if !exists {
		return false
	}
	r, ok := role.(models.UserRole)
	return ok && r == models.RoleAdmin
}
