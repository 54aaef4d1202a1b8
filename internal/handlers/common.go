package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"rekrut-portal/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUserID reads the authenticated user's ID set by the auth
// middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	return id, ok
}

// parseIDParam parses a UUID path parameter.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// parseLimit reads the ?limit query parameter with a default and cap.
func parseLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// respondDomainError maps a classified pipeline failure to an HTTP
// response. Unclassified errors surface as 500.
func respondDomainError(c *gin.Context, err error) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch pe.Kind {
	case pipeline.KindValidation:
		status = http.StatusBadRequest
	case pipeline.KindNotFound:
		status = http.StatusNotFound
	case pipeline.KindDuplicate, pipeline.KindNotAccepting, pipeline.KindBlocked, pipeline.KindAlreadyTerminal:
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{
		"error": pe.Message,
		"code":  string(pe.Kind),
	})
}
