package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlacementStatus string

const (
	PlacementStatusPendingStart PlacementStatus = "pending_start"
	PlacementStatusActive       PlacementStatus = "active"
	PlacementStatusCompleted    PlacementStatus = "completed"
	PlacementStatusTerminated   PlacementStatus = "terminated"
	PlacementStatusExpired      PlacementStatus = "expired"
	PlacementStatusOnHold       PlacementStatus = "on_hold"
)

type ContractType string

const (
	ContractTypePermanent ContractType = "permanent"
	ContractTypeContract  ContractType = "contract"
	ContractTypeOutsource ContractType = "outsource"
)

// ExpiryAlertDays are the staged thresholds, in days before contract end,
// at which exactly one alert each is emitted.
var ExpiryAlertDays = []int{30, 14, 7}

// Placement is the employment contract created exactly once per accepted
// application. Invariant: at most one unpaid->paid commission transition.
type Placement struct {
	ID            uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	ApplicationID uuid.UUID `json:"application_id" gorm:"type:char(36);not null;uniqueIndex"`
	CandidateID   uuid.UUID `json:"candidate_id" gorm:"type:char(36);not null;index"`
	RequisitionID uuid.UUID `json:"requisition_id" gorm:"type:char(36);not null;index"`

	ContractType ContractType    `json:"contract_type" gorm:"not null;default:'contract'"`
	Status       PlacementStatus `json:"status" gorm:"not null;default:'pending_start';index"`

	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null"`
	Salary    float64   `json:"salary" gorm:"not null"`

	// Staged expiry alerts, one flag per threshold
	Alert30Sent bool `json:"alert_30_sent" gorm:"not null;default:false"`
	Alert14Sent bool `json:"alert_14_sent" gorm:"not null;default:false"`
	Alert7Sent  bool `json:"alert_7_sent" gorm:"not null;default:false"`

	// Commission payout
	AgentID          *uuid.UUID `json:"agent_id" gorm:"type:char(36);index"`
	CommissionAmount float64    `json:"commission_amount" gorm:"not null;default:0"`
	CommissionPaid   bool       `json:"commission_paid" gorm:"not null;default:false"`
	CommissionPaidAt *time.Time `json:"commission_paid_at" gorm:""`

	// Termination bookkeeping
	TerminatedAt      *time.Time `json:"terminated_at" gorm:""`
	TerminatedBy      *uuid.UUID `json:"terminated_by" gorm:"type:char(36);index"`
	TerminationReason string     `json:"termination_reason" gorm:"type:text"`
	TerminationNotes  string     `json:"termination_notes" gorm:"type:text"`
	CompletedAt       *time.Time `json:"completed_at" gorm:""`

	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Application Application `json:"application,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Candidate   Candidate   `json:"candidate,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Requisition Requisition `json:"requisition,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Agent       *Agent      `json:"agent,omitempty" gorm:"foreignKey:AgentID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Terminator  *User       `json:"terminator,omitempty" gorm:"foreignKey:TerminatedBy;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

// PlacementResponse represents placement data returned in API responses
type PlacementResponse struct {
	ID                   uuid.UUID       `json:"id"`
	ApplicationID        uuid.UUID       `json:"application_id"`
	CandidateID          uuid.UUID       `json:"candidate_id"`
	RequisitionID        uuid.UUID       `json:"requisition_id"`
	ContractType         ContractType    `json:"contract_type"`
	Status               PlacementStatus `json:"status"`
	StartDate            time.Time       `json:"start_date"`
	EndDate              time.Time       `json:"end_date"`
	Salary               float64         `json:"salary"`
	DaysUntilExpiry      int             `json:"days_until_expiry"`
	CompletionPercentage float64         `json:"completion_percentage"`
	Alert30Sent          bool            `json:"alert_30_sent"`
	Alert14Sent          bool            `json:"alert_14_sent"`
	Alert7Sent           bool            `json:"alert_7_sent"`
	CommissionAmount     float64         `json:"commission_amount"`
	CommissionPaid       bool            `json:"commission_paid"`
	TerminatedAt         *time.Time      `json:"terminated_at"`
	TerminationReason    string          `json:"termination_reason"`
	CompletedAt          *time.Time      `json:"completed_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CreatePlacementRequest represents the request body for placing an accepted application
type CreatePlacementRequest struct {
	ContractType ContractType `json:"contract_type" binding:"required,oneof=permanent contract outsource"`
	StartDate    time.Time    `json:"start_date" binding:"required"`
	EndDate      time.Time    `json:"end_date" binding:"required"`
	Salary       float64      `json:"salary" binding:"required,min=0"`
}

// TerminatePlacementRequest represents the request body for terminating a placement
type TerminatePlacementRequest struct {
	Reason string `json:"reason" binding:"required"`
	Notes  string `json:"notes,omitempty"`
}

// BeforeCreate is a GORM hook that runs before creating a placement
func (p *Placement) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DaysUntilExpiryAt returns max(0, end_date - now) in whole days.
// Only meaningful while the placement is active.
func (p *Placement) DaysUntilExpiryAt(now time.Time) int {
	days := int(p.EndDate.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// CompletionPercentageAt returns how much of the contract has elapsed,
// capped at 100. Zero-length contracts and contracts not yet started
// report 0.
func (p *Placement) CompletionPercentageAt(now time.Time) float64 {
	duration := p.EndDate.Sub(p.StartDate).Hours() / 24
	if duration <= 0 {
		return 0
	}
	elapsed := now.Sub(p.StartDate).Hours() / 24
	if elapsed <= 0 {
		return 0
	}
	pct := elapsed / duration * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// AlertSentFor reports whether the alert for the given threshold went out.
func (p *Placement) AlertSentFor(days int) bool {
	switch days {
	case 30:
		return p.Alert30Sent
	case 14:
		return p.Alert14Sent
	case 7:
		return p.Alert7Sent
	default:
		return false
	}
}

// MarkAlertSent sets the flag for the given threshold.
func (p *Placement) MarkAlertSent(days int) {
	switch days {
	case 30:
		p.Alert30Sent = true
	case 14:
		p.Alert14Sent = true
	case 7:
		p.Alert7Sent = true
	}
}

// IsActive checks if the placement contract is running
func (p *Placement) IsActive() bool {
	return p.Status == PlacementStatusActive
}

// IsClosed reports whether the placement reached a terminal status.
func (p *Placement) IsClosed() bool {
	switch p.Status {
	case PlacementStatusCompleted, PlacementStatusTerminated, PlacementStatusExpired:
		return true
	}
	return false
}

// ToResponse converts a Placement to PlacementResponse
func (p *Placement) ToResponse() PlacementResponse {
	now := time.Now()
	return PlacementResponse{
		ID:                   p.ID,
		ApplicationID:        p.ApplicationID,
		CandidateID:          p.CandidateID,
		RequisitionID:        p.RequisitionID,
		ContractType:         p.ContractType,
		Status:               p.Status,
		StartDate:            p.StartDate,
		EndDate:              p.EndDate,
		Salary:               p.Salary,
		DaysUntilExpiry:      p.DaysUntilExpiryAt(now),
		CompletionPercentage: p.CompletionPercentageAt(now),
		Alert30Sent:          p.Alert30Sent,
		Alert14Sent:          p.Alert14Sent,
		Alert7Sent:           p.Alert7Sent,
		CommissionAmount:     p.CommissionAmount,
		CommissionPaid:       p.CommissionPaid,
		TerminatedAt:         p.TerminatedAt,
		TerminationReason:    p.TerminationReason,
		CompletedAt:          p.CompletedAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
