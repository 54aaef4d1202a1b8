package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityTypeApplicationSubmitted ActivityType = "application_submitted"
	ActivityTypeStageAdvanced        ActivityType = "stage_advanced"
	ActivityTypeStageScheduled       ActivityType = "stage_scheduled"
	ActivityTypeStageResultRecorded  ActivityType = "stage_result_recorded"
	ActivityTypeApplicationRejected  ActivityType = "application_rejected"
	ActivityTypeApplicationAccepted  ActivityType = "application_accepted"
	ActivityTypeApplicationWithdrawn ActivityType = "application_withdrawn"
	ActivityTypePlacementCreated     ActivityType = "placement_created"
	ActivityTypePlacementActivated   ActivityType = "placement_activated"
	ActivityTypePlacementTerminated  ActivityType = "placement_terminated"
	ActivityTypePlacementCompleted   ActivityType = "placement_completed"
	ActivityTypePlacementExpired     ActivityType = "placement_expired"
	ActivityTypeExpiryAlertSent      ActivityType = "expiry_alert_sent"
	ActivityTypeCommissionPaid       ActivityType = "commission_paid"
	ActivityTypeUserRegistered       ActivityType = "user_registered"
	ActivityTypeUserLogin            ActivityType = "user_login"
	ActivityTypeSystem               ActivityType = "system"
)

// Activity is the audit trail written alongside every pipeline and
// placement transition.
type Activity struct {
	ID            uuid.UUID  `json:"id" gorm:"type:char(36);primary_key"`
	UserID        *uuid.UUID `json:"user_id" gorm:"type:char(36);index"`
	ApplicationID *uuid.UUID `json:"application_id" gorm:"type:char(36);index"`
	PlacementID   *uuid.UUID `json:"placement_id" gorm:"type:char(36);index"`

	// Activity information
	Type        ActivityType `json:"type" gorm:"not null;index" validate:"required"`
	Title       string       `json:"title" gorm:"not null" validate:"required"`
	Description string       `json:"description" gorm:"type:text"`

	// Metadata as JSON
	Metadata json.RawMessage `json:"metadata" gorm:"type:text"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`

	// Relationships
	User        *User        `json:"user,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Application *Application `json:"application,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Placement   *Placement   `json:"placement,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

// ActivityResponse represents the activity data returned in API responses
type ActivityResponse struct {
	ID            uuid.UUID       `json:"id"`
	UserID        *uuid.UUID      `json:"user_id"`
	ApplicationID *uuid.UUID      `json:"application_id"`
	PlacementID   *uuid.UUID      `json:"placement_id"`
	Type          ActivityType    `json:"type"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Metadata      json.RawMessage `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
	User          *UserResponse   `json:"user,omitempty"`
}

// ActivityMetadata represents common metadata structure
type ActivityMetadata struct {
	OldValue   interface{} `json:"old_value,omitempty"`
	NewValue   interface{} `json:"new_value,omitempty"`
	Field      string      `json:"field,omitempty"`
	EntityID   string      `json:"entity_id,omitempty"`
	EntityType string      `json:"entity_type,omitempty"`
	ExtraData  interface{} `json:"extra_data,omitempty"`
}

// BeforeCreate is a GORM hook that runs before creating an activity
func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ToResponse converts an Activity to ActivityResponse
func (a *Activity) ToResponse() ActivityResponse {
	response := ActivityResponse{
		ID:            a.ID,
		UserID:        a.UserID,
		ApplicationID: a.ApplicationID,
		PlacementID:   a.PlacementID,
		Type:          a.Type,
		Title:         a.Title,
		Description:   a.Description,
		Metadata:      a.Metadata,
		CreatedAt:     a.CreatedAt,
	}

	if a.User != nil && a.User.ID != uuid.Nil {
		userResponse := a.User.ToResponse()
		response.User = &userResponse
	}

	return response
}

// SetMetadata sets the metadata field with proper JSON encoding
func (a *Activity) SetMetadata(metadata interface{}) error {
	if metadata == nil {
		a.Metadata = nil
		return nil
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	a.Metadata = data
	return nil
}

// GetMetadata decodes the metadata field into the given value
func (a *Activity) GetMetadata(v interface{}) error {
	if a.Metadata == nil {
		return nil
	}
	return json.Unmarshal(a.Metadata, v)
}

// NewStageActivity builds the audit record for a pipeline transition.
func NewStageActivity(activityType ActivityType, applicationID uuid.UUID, actorID *uuid.UUID, title, description string) *Activity {
	return &Activity{
		UserID:        actorID,
		ApplicationID: &applicationID,
		Type:          activityType,
		Title:         title,
		Description:   description,
	}
}

// NewPlacementActivity builds the audit record for a placement transition.
func NewPlacementActivity(activityType ActivityType, placementID uuid.UUID, actorID *uuid.UUID, title, description string) *Activity {
	return &Activity{
		UserID:      actorID,
		PlacementID: &placementID,
		Type:        activityType,
		Title:       title,
		Description: description,
	}
}
