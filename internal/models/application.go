package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stage is a step in the selection pipeline. The pipeline is a fixed
// sequence; Next() walks it and the transition table in CanMoveTo guards
// every mutation. Accepted and Rejected are terminal.
type Stage string

const (
	StageApplied     Stage = "applied"
	StageScreening   Stage = "screening"
	StagePsychometric Stage = "psychometric"
	StageInterview   Stage = "interview"
	StageMedical     Stage = "medical"
	StageFinalReview Stage = "final_review"
	StageAccepted    Stage = "accepted"
	StageRejected    Stage = "rejected"
)

// stageOrder is the forward pipeline sequence.
var stageOrder = []Stage{
	StageApplied,
	StageScreening,
	StagePsychometric,
	StageInterview,
	StageMedical,
	StageFinalReview,
	StageAccepted,
}

// Next returns the following pipeline stage and true, or "" and false when
// the stage is terminal or off the forward path.
func (s Stage) Next() (Stage, bool) {
	for i, stage := range stageOrder {
		if stage == s && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}

// IsTerminal reports whether the stage ends the pipeline.
func (s Stage) IsTerminal() bool {
	return s == StageAccepted || s == StageRejected
}

// HasResultGate reports whether advancing out of the stage requires a
// recorded pass. The applied stage advances unconditionally.
func (s Stage) HasResultGate() bool {
	switch s {
	case StageScreening, StagePsychometric, StageInterview, StageMedical, StageFinalReview:
		return true
	default:
		return false
	}
}

type StageResult string

const (
	StageResultPending StageResult = "pending"
	StageResultPass    StageResult = "pass"
	StageResultFail    StageResult = "fail"
)

type ApplicationStatus string

const (
	ApplicationStatusActive    ApplicationStatus = "active"
	ApplicationStatusWithdrawn ApplicationStatus = "withdrawn"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusAccepted  ApplicationStatus = "accepted"
	ApplicationStatusPlaced    ApplicationStatus = "placed"
)

// StageRecord holds the per-stage result and schedule bookkeeping.
type StageRecord struct {
	Result      StageResult `json:"result"`
	ScheduledAt *time.Time  `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// Application is the record of one candidate pursuing one requisition.
// The (candidate_id, requisition_id) pair is unique; the matching score is
// frozen at submission and never recomputed.
type Application struct {
	ID            uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	CandidateID   uuid.UUID `json:"candidate_id" gorm:"type:char(36);not null;uniqueIndex:idx_applications_pair"`
	RequisitionID uuid.UUID `json:"requisition_id" gorm:"type:char(36);not null;uniqueIndex:idx_applications_pair"`

	CurrentStage Stage             `json:"current_stage" gorm:"not null;default:'applied';index"`
	Status       ApplicationStatus `json:"status" gorm:"not null;default:'active';index"`

	// Per-stage results keyed by stage name, stored as JSON.
	StageRecords string `json:"stage_records" gorm:"type:text"`

	// Matching score captured at submission time
	MatchingScore  float64 `json:"matching_score" gorm:"not null;default:0"`
	ScoreBreakdown string  `json:"score_breakdown" gorm:"type:text"`

	// Decision bookkeeping
	DecidedBy      *uuid.UUID `json:"decided_by" gorm:"type:char(36);index"`
	DecidedAt      *time.Time `json:"decided_at" gorm:""`
	DecisionNotes  string     `json:"decision_notes" gorm:"type:text"`
	RejectionReason string    `json:"rejection_reason" gorm:"type:text"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Candidate   Candidate   `json:"candidate,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Requisition Requisition `json:"requisition,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Decider     *User       `json:"decider,omitempty" gorm:"foreignKey:DecidedBy;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Placement   *Placement  `json:"placement,omitempty" gorm:"foreignKey:ApplicationID"`
	Activities  []Activity  `json:"activities,omitempty" gorm:"foreignKey:ApplicationID"`
}

// ApplicationResponse represents application data returned in API responses
type ApplicationResponse struct {
	ID             uuid.UUID              `json:"id"`
	CandidateID    uuid.UUID              `json:"candidate_id"`
	RequisitionID  uuid.UUID              `json:"requisition_id"`
	CurrentStage   Stage                  `json:"current_stage"`
	Status         ApplicationStatus      `json:"status"`
	StageRecords   map[Stage]StageRecord  `json:"stage_records"`
	MatchingScore  float64                `json:"matching_score"`
	ScoreBreakdown map[string]interface{} `json:"score_breakdown,omitempty"`
	DecidedAt      *time.Time             `json:"decided_at"`
	DecisionNotes  string                 `json:"decision_notes"`
	RejectionReason string                `json:"rejection_reason"`
	SubmittedAt    time.Time              `json:"submitted_at"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Candidate      *CandidateResponse     `json:"candidate,omitempty"`
	Requisition    *RequisitionResponse   `json:"requisition,omitempty"`
}

// SubmitApplicationRequest represents the request body for submitting an application
type SubmitApplicationRequest struct {
	RequisitionID uuid.UUID `json:"requisition_id" binding:"required"`
}

// RejectApplicationRequest represents the request body for rejecting an application
type RejectApplicationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AcceptApplicationRequest represents the request body for accepting an application
type AcceptApplicationRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ScheduleStageRequest represents the request body for scheduling the current stage
type ScheduleStageRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// StageResultRequest represents the request body for recording a stage result
type StageResultRequest struct {
	Result StageResult `json:"result" binding:"required,oneof=pass fail pending"`
	Notes  string      `json:"notes,omitempty"`
}

// BeforeCreate is a GORM hook that runs before creating an application
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the application reached a terminal status.
func (a *Application) IsTerminal() bool {
	switch a.Status {
	case ApplicationStatusRejected, ApplicationStatusPlaced, ApplicationStatusWithdrawn:
		return true
	}
	return a.CurrentStage == StageRejected
}

// GetStageRecords parses the stored per-stage bookkeeping.
func (a *Application) GetStageRecords() map[Stage]StageRecord {
	records := map[Stage]StageRecord{}
	if a.StageRecords == "" {
		return records
	}
	if err := json.Unmarshal([]byte(a.StageRecords), &records); err != nil {
		return map[Stage]StageRecord{}
	}
	return records
}

// SetStageRecords stores the per-stage bookkeeping as JSON.
func (a *Application) SetStageRecords(records map[Stage]StageRecord) error {
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	a.StageRecords = string(b)
	return nil
}

// StageRecordFor returns the record of the given stage, defaulting to pending.
func (a *Application) StageRecordFor(stage Stage) StageRecord {
	if record, ok := a.GetStageRecords()[stage]; ok {
		return record
	}
	return StageRecord{Result: StageResultPending}
}

// CanAdvance reports whether the current stage may advance: not terminal
// and either gateless (applied) or recorded as pass.
func (a *Application) CanAdvance() bool {
	if a.IsTerminal() || a.CurrentStage.IsTerminal() {
		return false
	}
	if !a.CurrentStage.HasResultGate() {
		return true
	}
	return a.StageRecordFor(a.CurrentStage).Result == StageResultPass
}

// SetScoreBreakdown stores the frozen per-dimension breakdown as JSON.
func (a *Application) SetScoreBreakdown(breakdown interface{}) error {
	b, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}
	a.ScoreBreakdown = string(b)
	return nil
}

// ToResponse converts an Application to ApplicationResponse
func (a *Application) ToResponse() ApplicationResponse {
	response := ApplicationResponse{
		ID:              a.ID,
		CandidateID:     a.CandidateID,
		RequisitionID:   a.RequisitionID,
		CurrentStage:    a.CurrentStage,
		Status:          a.Status,
		StageRecords:    a.GetStageRecords(),
		MatchingScore:   a.MatchingScore,
		DecidedAt:       a.DecidedAt,
		DecisionNotes:   a.DecisionNotes,
		RejectionReason: a.RejectionReason,
		SubmittedAt:     a.SubmittedAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}

	if a.ScoreBreakdown != "" {
		var breakdown map[string]interface{}
		if err := json.Unmarshal([]byte(a.ScoreBreakdown), &breakdown); err == nil {
			response.ScoreBreakdown = breakdown
		}
	}

	if a.Candidate.ID != uuid.Nil {
		candidateResponse := a.Candidate.ToResponse()
		response.Candidate = &candidateResponse
	}

	if a.Requisition.ID != uuid.Nil {
		requisitionResponse := a.Requisition.ToResponse()
		response.Requisition = &requisitionResponse
	}

	return response
}
