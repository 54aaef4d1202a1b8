package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "pending"
	NotificationStatusSent     NotificationStatus = "sent"
	NotificationStatusFailed   NotificationStatus = "failed"
	NotificationStatusRetrying NotificationStatus = "retrying"
)

type NotificationTemplate string

const (
	TemplateApplicationSubmitted NotificationTemplate = "application_submitted"
	TemplateStageAdvanced        NotificationTemplate = "stage_advanced"
	TemplateStageScheduled       NotificationTemplate = "stage_scheduled"
	TemplateApplicationRejected  NotificationTemplate = "application_rejected"
	TemplateApplicationAccepted  NotificationTemplate = "application_accepted"
	TemplatePlacementCreated     NotificationTemplate = "placement_created"
	TemplateContractExpiryAlert  NotificationTemplate = "contract_expiry_alert"
	TemplatePlacementTerminated  NotificationTemplate = "placement_terminated"
	TemplatePlacementCompleted   NotificationTemplate = "placement_completed"
	TemplateCommissionPaid       NotificationTemplate = "commission_paid"
)

type NotificationContext string

const (
	ContextApplication NotificationContext = "application"
	ContextPlacement   NotificationContext = "placement"
)

// Notification is the durable outbound queue record. The domain enqueues it
// as pending inside its own transaction; the dispatcher delivers it with
// bounded retries and never reports back to the business operation.
type Notification struct {
	ID     uuid.UUID          `json:"id" gorm:"type:char(36);primary_key"`
	UserID uuid.UUID          `json:"user_id" gorm:"type:char(36);not null;index"`
	Status NotificationStatus `json:"status" gorm:"not null;default:'pending';index"`

	// Template information
	Template  NotificationTemplate `json:"template" gorm:"not null"`
	Variables string               `json:"variables" gorm:"type:text"`

	// Domain context
	ContextType NotificationContext `json:"context_type" gorm:"not null"`
	ContextID   uuid.UUID           `json:"context_id" gorm:"type:char(36);not null;index"`

	// Recipient address (email)
	Recipient string `json:"recipient" gorm:"not null"`

	// Delivery tracking
	SentAt   *time.Time `json:"sent_at" gorm:""`
	FailedAt *time.Time `json:"failed_at" gorm:""`

	// Retry mechanism
	RetryCount  int        `json:"retry_count" gorm:"default:0"`
	MaxRetries  int        `json:"max_retries" gorm:"default:3"`
	NextRetryAt *time.Time `json:"next_retry_at" gorm:""`

	// Error tracking
	ErrorMessage string `json:"error_message" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User User `json:"user,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// NotificationResponse represents notification data returned in API responses
type NotificationResponse struct {
	ID           uuid.UUID            `json:"id"`
	UserID       uuid.UUID            `json:"user_id"`
	Status       NotificationStatus   `json:"status"`
	Template     NotificationTemplate `json:"template"`
	Variables    map[string]string    `json:"variables"`
	ContextType  NotificationContext  `json:"context_type"`
	ContextID    uuid.UUID            `json:"context_id"`
	Recipient    string               `json:"recipient"`
	SentAt       *time.Time           `json:"sent_at"`
	FailedAt     *time.Time           `json:"failed_at"`
	RetryCount   int                  `json:"retry_count"`
	ErrorMessage string               `json:"error_message"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// BeforeCreate is a GORM hook that runs before creating a notification
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// GetVariables parses the stored template variables.
func (n *Notification) GetVariables() map[string]string {
	vars := map[string]string{}
	if n.Variables == "" {
		return vars
	}
	if err := json.Unmarshal([]byte(n.Variables), &vars); err != nil {
		return map[string]string{}
	}
	return vars
}

// SetVariables stores the template variables as JSON.
func (n *Notification) SetVariables(vars map[string]string) error {
	if vars == nil {
		vars = map[string]string{}
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return err
	}
	n.Variables = string(b)
	return nil
}

// CanRetry reports whether the dispatcher may attempt another delivery.
func (n *Notification) CanRetry() bool {
	return n.RetryCount < n.MaxRetries
}

// IsDue reports whether the notification should be attempted now.
func (n *Notification) IsDue(now time.Time) bool {
	if n.Status != NotificationStatusPending && n.Status != NotificationStatusRetrying {
		return false
	}
	if n.NextRetryAt == nil {
		return true
	}
	return !now.Before(*n.NextRetryAt)
}

// MarkAsSent records a successful delivery.
func (n *Notification) MarkAsSent(now time.Time) {
	n.Status = NotificationStatusSent
	n.SentAt = &now
}

// MarkAttemptFailed records a failed delivery attempt and schedules the
// next retry per the backoff schedule, or moves to terminal failed once
// the attempts are exhausted.
func (n *Notification) MarkAttemptFailed(now time.Time, errorMessage string, backoff []time.Duration) {
	n.RetryCount++
	n.ErrorMessage = errorMessage

	if !n.CanRetry() {
		n.Status = NotificationStatusFailed
		n.FailedAt = &now
		n.NextRetryAt = nil
		return
	}

	delay := time.Minute
	if len(backoff) > 0 {
		idx := n.RetryCount - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		delay = backoff[idx]
	}
	nextRetry := now.Add(delay)
	n.NextRetryAt = &nextRetry
	n.Status = NotificationStatusRetrying
}

// ToResponse converts a Notification to NotificationResponse
func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:           n.ID,
		UserID:       n.UserID,
		Status:       n.Status,
		Template:     n.Template,
		Variables:    n.GetVariables(),
		ContextType:  n.ContextType,
		ContextID:    n.ContextID,
		Recipient:    n.Recipient,
		SentAt:       n.SentAt,
		FailedAt:     n.FailedAt,
		RetryCount:   n.RetryCount,
		ErrorMessage: n.ErrorMessage,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}
