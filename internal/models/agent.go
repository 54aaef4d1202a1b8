package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AgentLevel decides the commission rate applied to a placement's salary.
type AgentLevel string

const (
	AgentLevelBronze AgentLevel = "bronze"
	AgentLevelSilver AgentLevel = "silver"
	AgentLevelGold   AgentLevel = "gold"
)

// CommissionRate returns the fraction of the placement salary paid out
// for a successful referral at this level.
func (l AgentLevel) CommissionRate() float64 {
	switch l {
	case AgentLevelBronze:
		return 0.05
	case AgentLevelSilver:
		return 0.075
	case AgentLevelGold:
		return 0.10
	default:
		return 0.05
	}
}

// Agent represents a referring agent. The running totals are only mutated
// inside the same transaction as the commission payout that feeds them.
type Agent struct {
	ID     uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	UserID uuid.UUID `json:"user_id" gorm:"type:char(36);not null;uniqueIndex"`

	Level AgentLevel `json:"level" gorm:"not null;default:'bronze'"`

	// Running totals
	TotalPlacements     int     `json:"total_placements" gorm:"not null;default:0"`
	TotalCommission     float64 `json:"total_commission" gorm:"not null;default:0"`
	UnsettledCommission float64 `json:"unsettled_commission" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User       User        `json:"user,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Referrals  []Candidate `json:"referrals,omitempty" gorm:"foreignKey:ReferredByAgentID"`
	Placements []Placement `json:"placements,omitempty" gorm:"foreignKey:AgentID"`
}

// AgentResponse represents agent data returned in API responses
type AgentResponse struct {
	ID                  uuid.UUID     `json:"id"`
	UserID              uuid.UUID     `json:"user_id"`
	Level               AgentLevel    `json:"level"`
	CommissionRate      float64       `json:"commission_rate"`
	TotalPlacements     int           `json:"total_placements"`
	TotalCommission     float64       `json:"total_commission"`
	UnsettledCommission float64       `json:"unsettled_commission"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
	User                *UserResponse `json:"user,omitempty"`
}

// BeforeCreate is a GORM hook that runs before creating an agent
func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CreditCommission adds a paid-out commission to the running totals.
func (a *Agent) CreditCommission(amount float64) {
	a.TotalPlacements++
	a.TotalCommission += amount
	a.UnsettledCommission += amount
}

// ToResponse converts an Agent to AgentResponse
func (a *Agent) ToResponse() AgentResponse {
	response := AgentResponse{
		ID:                  a.ID,
		UserID:              a.UserID,
		Level:               a.Level,
		CommissionRate:      a.Level.CommissionRate(),
		TotalPlacements:     a.TotalPlacements,
		TotalCommission:     a.TotalCommission,
		UnsettledCommission: a.UnsettledCommission,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}

	if a.User.ID != uuid.Nil {
		userResponse := a.User.ToResponse()
		response.User = &userResponse
	}

	return response
}
