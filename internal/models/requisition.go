package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequisitionStatus string

const (
	RequisitionStatusDraft     RequisitionStatus = "draft"
	RequisitionStatusPublished RequisitionStatus = "published"
	RequisitionStatusPaused    RequisitionStatus = "paused"
	RequisitionStatusClosed    RequisitionStatus = "closed"
	RequisitionStatusCancelled RequisitionStatus = "cancelled"
)

// Requisition represents an open job posting with hiring criteria and a
// position quota. Invariant: HiredCount <= TotalPositions.
type Requisition struct {
	ID    uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	Title string    `json:"title" gorm:"not null" validate:"required"`
	Slug  string    `json:"slug" gorm:"not null;uniqueIndex"`

	Description string            `json:"description" gorm:"type:text"`
	Status      RequisitionStatus `json:"status" gorm:"not null;default:'draft';index"`

	// Hiring criteria. Set-valued fields are stored as JSON arrays.
	RequiredEducationLevels string  `json:"required_education_levels" gorm:"type:text"`
	MinAge                  *int    `json:"min_age" gorm:""`
	MaxAge                  *int    `json:"max_age" gorm:""`
	PreferredGenders        string  `json:"preferred_genders" gorm:"type:text"`
	MinExperienceMonths     int     `json:"min_experience_months" gorm:"not null;default:0"`
	RequiredSkills          string  `json:"required_skills" gorm:"type:text"`
	PreferredSkills         string  `json:"preferred_skills" gorm:"type:text"`
	PreferredLocations      string  `json:"preferred_locations" gorm:"type:text"`
	Salary                  float64 `json:"salary" gorm:"not null;default:0"`

	// Quota
	TotalPositions int `json:"total_positions" gorm:"not null;default:1"`
	HiredCount     int `json:"hired_count" gorm:"not null;default:0"`

	// Deadline
	ApplicationDeadline *time.Time `json:"application_deadline" gorm:""`

	// Publication
	PublishedAt *time.Time `json:"published_at" gorm:""`

	// Management
	CreatedBy uuid.UUID `json:"created_by" gorm:"type:char(36);not null;index"`

	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Creator      User          `json:"creator,omitempty" gorm:"foreignKey:CreatedBy;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Applications []Application `json:"applications,omitempty" gorm:"foreignKey:RequisitionID"`
}

// RequisitionResponse represents requisition data returned in API responses
type RequisitionResponse struct {
	ID                      uuid.UUID         `json:"id"`
	Title                   string            `json:"title"`
	Slug                    string            `json:"slug"`
	Description             string            `json:"description"`
	Status                  RequisitionStatus `json:"status"`
	RequiredEducationLevels []EducationLevel  `json:"required_education_levels"`
	MinAge                  *int              `json:"min_age"`
	MaxAge                  *int              `json:"max_age"`
	PreferredGenders        []Gender          `json:"preferred_genders"`
	MinExperienceMonths     int               `json:"min_experience_months"`
	RequiredSkills          []string          `json:"required_skills"`
	PreferredSkills         []string          `json:"preferred_skills"`
	PreferredLocations      []string          `json:"preferred_locations"`
	Salary                  float64           `json:"salary"`
	TotalPositions          int               `json:"total_positions"`
	HiredCount              int               `json:"hired_count"`
	ApplicationDeadline     *time.Time        `json:"application_deadline"`
	PublishedAt             *time.Time        `json:"published_at"`
	IsAccepting             bool              `json:"is_accepting"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
	Creator                 *UserResponse     `json:"creator,omitempty"`
}

// CreateRequisitionRequest represents the request body for creating a requisition
type CreateRequisitionRequest struct {
	Title                   string           `json:"title" validate:"required"`
	Description             string           `json:"description"`
	RequiredEducationLevels []EducationLevel `json:"required_education_levels"`
	MinAge                  *int             `json:"min_age" validate:"omitempty,min=0"`
	MaxAge                  *int             `json:"max_age" validate:"omitempty,min=0"`
	PreferredGenders        []Gender         `json:"preferred_genders"`
	MinExperienceMonths     int              `json:"min_experience_months" validate:"min=0"`
	RequiredSkills          []string         `json:"required_skills"`
	PreferredSkills         []string         `json:"preferred_skills"`
	PreferredLocations      []string         `json:"preferred_locations"`
	Salary                  float64          `json:"salary" validate:"min=0"`
	TotalPositions          int              `json:"total_positions" validate:"required,min=1"`
	ApplicationDeadline     *time.Time       `json:"application_deadline"`
}

// UpdateRequisitionStatusRequest represents the request body for status changes
type UpdateRequisitionStatusRequest struct {
	Status RequisitionStatus `json:"status" validate:"required,oneof=draft published paused closed cancelled"`
}

// BeforeCreate is a GORM hook that runs before creating a requisition
func (r *Requisition) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Slug == "" {
		r.Slug = generateSlug(r.Title, r.ID)
	}
	return nil
}

// generateSlug builds a URL-friendly slug from the title plus a short id
// suffix to keep the unique index happy for duplicate titles.
func generateSlug(title string, id uuid.UUID) string {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
	return fmt.Sprintf("%s-%s", base, id.String()[:8])
}

// CanTransitionTo checks if the requisition can move to the given status
func (r *Requisition) CanTransitionTo(newStatus RequisitionStatus) bool {
	allowedTransitions := map[RequisitionStatus][]RequisitionStatus{
		RequisitionStatusDraft: {
			RequisitionStatusPublished,
			RequisitionStatusCancelled,
		},
		RequisitionStatusPublished: {
			RequisitionStatusPaused,
			RequisitionStatusClosed,
			RequisitionStatusCancelled,
		},
		RequisitionStatusPaused: {
			RequisitionStatusPublished,
			RequisitionStatusClosed,
			RequisitionStatusCancelled,
		},
		RequisitionStatusClosed:    {},
		RequisitionStatusCancelled: {},
	}

	allowed, exists := allowedTransitions[r.Status]
	if !exists {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}

	return false
}

// IsAcceptingAt reports whether the requisition accepts new applications at
// the given time: published, deadline not passed, quota not filled.
func (r *Requisition) IsAcceptingAt(now time.Time) bool {
	if r.Status != RequisitionStatusPublished {
		return false
	}
	if r.ApplicationDeadline != nil && now.After(*r.ApplicationDeadline) {
		return false
	}
	return r.HiredCount < r.TotalPositions
}

// HasOpenPositions checks the quota invariant headroom
func (r *Requisition) HasOpenPositions() bool {
	return r.HiredCount < r.TotalPositions
}

// GetRequiredEducationLevels parses the stored JSON array.
func (r *Requisition) GetRequiredEducationLevels() []EducationLevel {
	raw := parseStringArray(r.RequiredEducationLevels)
	levels := make([]EducationLevel, 0, len(raw))
	for _, s := range raw {
		levels = append(levels, EducationLevel(s))
	}
	return levels
}

// GetPreferredGenders parses the stored JSON array.
func (r *Requisition) GetPreferredGenders() []Gender {
	raw := parseStringArray(r.PreferredGenders)
	genders := make([]Gender, 0, len(raw))
	for _, s := range raw {
		genders = append(genders, Gender(s))
	}
	return genders
}

// GetRequiredSkills parses the stored JSON array.
func (r *Requisition) GetRequiredSkills() []string {
	return parseStringArray(r.RequiredSkills)
}

// GetPreferredSkills parses the stored JSON array.
func (r *Requisition) GetPreferredSkills() []string {
	return parseStringArray(r.PreferredSkills)
}

// GetPreferredLocations parses the stored JSON array.
func (r *Requisition) GetPreferredLocations() []string {
	return parseStringArray(r.PreferredLocations)
}

// SetCriteria stores the set-valued hiring criteria as JSON arrays.
func (r *Requisition) SetCriteria(levels []EducationLevel, genders []Gender, required, preferred, locations []string) error {
	levelStrings := make([]string, 0, len(levels))
	for _, l := range levels {
		levelStrings = append(levelStrings, string(l))
	}
	genderStrings := make([]string, 0, len(genders))
	for _, g := range genders {
		genderStrings = append(genderStrings, string(g))
	}

	var err error
	if r.RequiredEducationLevels, err = encodeStringArray(levelStrings); err != nil {
		return err
	}
	if r.PreferredGenders, err = encodeStringArray(genderStrings); err != nil {
		return err
	}
	if r.RequiredSkills, err = encodeStringArray(required); err != nil {
		return err
	}
	if r.PreferredSkills, err = encodeStringArray(preferred); err != nil {
		return err
	}
	if r.PreferredLocations, err = encodeStringArray(locations); err != nil {
		return err
	}
	return nil
}

// ToResponse converts a Requisition to RequisitionResponse
func (r *Requisition) ToResponse() RequisitionResponse {
	response := RequisitionResponse{
		ID:                      r.ID,
		Title:                   r.Title,
		Slug:                    r.Slug,
		Description:             r.Description,
		Status:                  r.Status,
		RequiredEducationLevels: r.GetRequiredEducationLevels(),
		MinAge:                  r.MinAge,
		MaxAge:                  r.MaxAge,
		PreferredGenders:        r.GetPreferredGenders(),
		MinExperienceMonths:     r.MinExperienceMonths,
		RequiredSkills:          r.GetRequiredSkills(),
		PreferredSkills:         r.GetPreferredSkills(),
		PreferredLocations:      r.GetPreferredLocations(),
		Salary:                  r.Salary,
		TotalPositions:          r.TotalPositions,
		HiredCount:              r.HiredCount,
		ApplicationDeadline:     r.ApplicationDeadline,
		PublishedAt:             r.PublishedAt,
		IsAccepting:             r.IsAcceptingAt(time.Now()),
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}

	if r.Creator.ID != uuid.Nil {
		creatorResponse := r.Creator.ToResponse()
		response.Creator = &creatorResponse
	}

	return response
}
