package handlers

import (
	"net/http"

	"rekrut-portal/internal/models"
	"rekrut-portal/internal/placement"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PlacementHandler struct {
	db      *gorm.DB
	logger  *zap.Logger
	manager *placement.Manager
}

func NewPlacementHandler(db *gorm.DB, logger *zap.Logger, manager *placement.Manager) *PlacementHandler {
	return &PlacementHandler{
		db:      db,
		logger:  logger,
		manager: manager,
	}
}

// List returns placements, optionally filtered by status
// @Summary List placements
// @Tags placements
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param limit query int false "Maximum results"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/placements [get]
func (h *PlacementHandler) List(c *gin.Context) {
	limit := parseLimit(c, 20, 100)

	query := h.db.Model(&models.Placement{}).
		Preload("Candidate").
		Preload("Requisition")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if !IsRecruiterRequest(c) {
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

	var placements []models.Placement
	if err := query.Order("created_at DESC").Limit(limit).Find(&placements).Error; err != nil {
		h.logger.Error("Failed to list placements", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list placements"})
		return
	}

	responses := make([]models.PlacementResponse, 0, len(placements))
	for i := range placements {
		responses = append(responses, placements[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"placements": responses,
		"count":      len(responses),
	})
}

// Get returns one placement
// @Summary Get a placement
// @Tags placements
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Success 200 {object} models.PlacementResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/placements/{id} [get]
func (h *PlacementHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.manager.Get(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, p.ToResponse())
}

// Activate starts a pending placement
// @Summary Activate a placement
// @Tags placements
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Success 200 {object} models.PlacementResponse
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/placements/{id}/activate [post]
func (h *PlacementHandler) Activate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actorID, _ := currentUserID(c)
	p, err := h.manager.Activate(id, &actorID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, p.ToResponse())
}

// Hold pauses an active placement
// @Summary Put a placement on hold
// @Tags placements
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Success 200 {object} models.PlacementResponse
// @Router /api/v1/placements/{id}/hold [post]
func (h *PlacementHandler) Hold(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actorID, _ := currentUserID(c)
	p, err := h.manager.Hold(id, &actorID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, p.ToResponse())
}

// Resume reactivates a held placement
// @Summary Resume a held placement
// @Tags placements
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Success 200 {object} models.PlacementResponse
// @Router /api/v1/placements/{id}/resume [post]
func (h *PlacementHandler) Resume(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actorID, _ := currentUserID(c)
	p, err := h.manager.Resume(id, &actorID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, p.ToResponse())
}

// Terminate ends a placement early
// @Summary Terminate a placement
// @Tags placements
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Param request body models.TerminatePlacementRequest true "Reason"
// @Success 200 {object} models.PlacementResponse
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/placements/{id}/terminate [post]
func (h *PlacementHandler) Terminate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.TerminatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	p, err := h.manager.Terminate(id, actorID, req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, p.ToResponse())
}

// Complete closes a placement that ran its full term
// @Summary Complete a placement
// @Tags placements
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Success 200 {object} models.PlacementResponse
// @Router /api/v1/placements/{id}/complete [post]
func (h *PlacementHandler) Complete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actorID, _ := currentUserID(c)
	p, err := h.manager.Complete(id, &actorID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, p.ToResponse())
}

// PayCommission triggers the one-time commission payout
// @Summary Pay the agent commission for a placement
// @Tags placements
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Success 200 {object} models.PlacementResponse
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/placements/{id}/commission [post]
func (h *PlacementHandler) PayCommission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.manager.ProcessCommission(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, p.ToResponse())
}

// RunSweeps triggers the lifecycle sweeps on demand: activation, expiry
// alerts and expiry itself
// @Summary Run placement lifecycle sweeps
// @Tags placements
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/placements/sweep [post]
func (h *PlacementHandler) RunSweeps(c *gin.Context) {
	activated, err := h.manager.ActivateDue()
	if err != nil {
		h.logger.Error("Activation sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	alerts, err := h.manager.SendExpiryAlerts()
	if err != nil {
		h.logger.Error("Alert sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	expired, err := h.manager.ExpireDue()
	if err != nil {
		h.logger.Error("Expiry sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activated":   activated,
		"alerts_sent": alerts,
		"expired":     expired,
	})
}
