package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// EducationLevel is the Indonesian school ordinal. Rank() gives the
// position used by the matching engine's education comparator.
type EducationLevel string

const (
	EducationSD  EducationLevel = "sd"
	EducationSMP EducationLevel = "smp"
	EducationSMA EducationLevel = "sma"
	EducationSMK EducationLevel = "smk"
	EducationD3  EducationLevel = "d3"
	EducationS1  EducationLevel = "s1"
	EducationS2  EducationLevel = "s2"
)

// Rank returns the ordinal position of the education level.
// SMA and SMK share a rank. Unknown levels rank below SD.
func (e EducationLevel) Rank() int {
	switch e {
	case EducationSD:
		return 1
	case EducationSMP:
		return 2
	case EducationSMA, EducationSMK:
		return 3
	case EducationD3:
		return 4
	case EducationS1:
		return 5
	case EducationS2:
		return 6
	default:
		return 0
	}
}

type AvailabilityStatus string

const (
	AvailabilityAvailable    AvailabilityStatus = "available"
	AvailabilityWorking      AvailabilityStatus = "working"
	AvailabilityNotAvailable AvailabilityStatus = "not_available"
)

// Candidate represents a job seeker's profile. The matching engine and the
// application pipeline treat it as read-only; mutations happen through profile
// update handlers and the placement lifecycle (availability flips).
type Candidate struct {
	ID     uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	UserID uuid.UUID `json:"user_id" gorm:"type:char(36);not null;uniqueIndex"`

	// Demographics
	BirthDate *time.Time `json:"birth_date" gorm:""`
	Gender    Gender     `json:"gender" gorm:""`

	// Education and experience
	EducationLevel   EducationLevel `json:"education_level" gorm:"not null;default:'sma'"`
	ExperienceMonths int            `json:"experience_months" gorm:"not null;default:0"`

	// Skill tags, stored as JSON arrays
	TechnicalSkills string `json:"technical_skills" gorm:"type:text"`
	SoftSkills      string `json:"soft_skills" gorm:"type:text"`

	// Location
	City     string `json:"city" gorm:""`
	Province string `json:"province" gorm:""`

	Availability AvailabilityStatus `json:"availability" gorm:"not null;default:'available';index"`

	// Referral
	ReferredByAgentID *uuid.UUID `json:"referred_by_agent_id" gorm:"type:char(36);index"`

	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User            User          `json:"user,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ReferredByAgent *Agent        `json:"referred_by_agent,omitempty" gorm:"foreignKey:ReferredByAgentID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Applications    []Application `json:"applications,omitempty" gorm:"foreignKey:CandidateID"`
	Placements      []Placement   `json:"placements,omitempty" gorm:"foreignKey:CandidateID"`
}

// CandidateResponse represents candidate data returned in API responses
type CandidateResponse struct {
	ID               uuid.UUID          `json:"id"`
	UserID           uuid.UUID          `json:"user_id"`
	BirthDate        *time.Time         `json:"birth_date"`
	Age              *int               `json:"age"`
	Gender           Gender             `json:"gender"`
	EducationLevel   EducationLevel     `json:"education_level"`
	ExperienceMonths int                `json:"experience_months"`
	TechnicalSkills  []string           `json:"technical_skills"`
	SoftSkills       []string           `json:"soft_skills"`
	City             string             `json:"city"`
	Province         string             `json:"province"`
	Availability     AvailabilityStatus `json:"availability"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	User             *UserResponse      `json:"user,omitempty"`
}

// UpdateCandidateRequest represents the request body for profile updates
type UpdateCandidateRequest struct {
	BirthDate        *time.Time          `json:"birth_date"`
	Gender           *Gender             `json:"gender" validate:"omitempty,oneof=male female"`
	EducationLevel   *EducationLevel     `json:"education_level" validate:"omitempty,oneof=sd smp sma smk d3 s1 s2"`
	ExperienceMonths *int                `json:"experience_months" validate:"omitempty,min=0"`
	TechnicalSkills  []string            `json:"technical_skills"`
	SoftSkills       []string            `json:"soft_skills"`
	City             *string             `json:"city"`
	Province         *string             `json:"province"`
	Availability     *AvailabilityStatus `json:"availability" validate:"omitempty,oneof=available working not_available"`
}

// BeforeCreate is a GORM hook that runs before creating a candidate
func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// AgeAt returns the candidate's age in full years at the given time,
// or nil if the birth date is unknown.
func (c *Candidate) AgeAt(now time.Time) *int {
	if c.BirthDate == nil {
		return nil
	}
	age := now.Year() - c.BirthDate.Year()
	if now.YearDay() < c.BirthDate.YearDay() {
		age--
	}
	return &age
}

// GetTechnicalSkills parses the stored JSON skill array.
func (c *Candidate) GetTechnicalSkills() []string {
	return parseStringArray(c.TechnicalSkills)
}

// GetSoftSkills parses the stored JSON skill array.
func (c *Candidate) GetSoftSkills() []string {
	return parseStringArray(c.SoftSkills)
}

// AllSkills returns technical and soft skill tags combined.
func (c *Candidate) AllSkills() []string {
	return append(c.GetTechnicalSkills(), c.GetSoftSkills()...)
}

// SetTechnicalSkills stores the skill tags as a JSON array.
func (c *Candidate) SetTechnicalSkills(skills []string) error {
	s, err := encodeStringArray(skills)
	if err != nil {
		return err
	}
	c.TechnicalSkills = s
	return nil
}

// SetSoftSkills stores the skill tags as a JSON array.
func (c *Candidate) SetSoftSkills(skills []string) error {
	s, err := encodeStringArray(skills)
	if err != nil {
		return err
	}
	c.SoftSkills = s
	return nil
}

// IsAvailable checks if the candidate can be matched against requisitions
func (c *Candidate) IsAvailable() bool {
	return c.Availability == AvailabilityAvailable
}

// ToResponse converts a Candidate to CandidateResponse
func (c *Candidate) ToResponse() CandidateResponse {
	response := CandidateResponse{
		ID:               c.ID,
		UserID:           c.UserID,
		BirthDate:        c.BirthDate,
		Age:              c.AgeAt(time.Now()),
		Gender:           c.Gender,
		EducationLevel:   c.EducationLevel,
		ExperienceMonths: c.ExperienceMonths,
		TechnicalSkills:  c.GetTechnicalSkills(),
		SoftSkills:       c.GetSoftSkills(),
		City:             c.City,
		Province:         c.Province,
		Availability:     c.Availability,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}

	if c.User.ID != uuid.Nil {
		userResponse := c.User.ToResponse()
		response.User = &userResponse
	}

	return response
}

func parseStringArray(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func encodeStringArray(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
