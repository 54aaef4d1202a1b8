package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rekrut-portal/internal/matching"
	"rekrut-portal/internal/models"
	"rekrut-portal/internal/notify"
)

// Service drives applications through the selection pipeline. Every
// mutation runs inside one transaction: the state change, the audit
// activity and the queued notification commit together or not at all.
type Service struct {
	db     *gorm.DB
	engine *matching.Engine
	queue  notify.Enqueuer
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the pipeline service.
func NewService(db *gorm.DB, engine *matching.Engine, queue notify.Enqueuer, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		engine: engine,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.engine.WithClock(now)
	return s
}

// Submit creates an application for the candidate on the requisition.
// The matching score is computed once here and frozen on the record.
func (s *Service) Submit(candidateID, requisitionID uuid.UUID) (*models.Application, error) {
	if candidateID == uuid.Nil || requisitionID == uuid.Nil {
		return nil, newError(KindValidation, "candidate and requisition are required")
	}

	now := s.now()
	var application models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var candidate models.Candidate
		if err := tx.Preload("User").First(&candidate, "id = ?", candidateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, "candidate not found")
			}
			return err
		}

		var requisition models.Requisition
		if err := tx.First(&requisition, "id = ?", requisitionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, "requisition not found")
			}
			return err
		}

		if !requisition.IsAcceptingAt(now) {
			return newError(KindNotAccepting, "requisition %s is not accepting applications", requisition.Slug)
		}

		var count int64
		if err := tx.Model(&models.Application{}).
			Where("candidate_id = ? AND requisition_id = ?", candidateID, requisitionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return newError(KindDuplicate, "candidate already applied to this requisition")
		}

		result := s.engine.Score(&requisition, &candidate)

		application = models.Application{
			CandidateID:   candidateID,
			RequisitionID: requisitionID,
			CurrentStage:  models.StageApplied,
			Status:        models.ApplicationStatusActive,
			MatchingScore: result.Score,
			SubmittedAt:   now,
		}
		if err := application.SetScoreBreakdown(result.Breakdown); err != nil {
			return err
		}
		if err := application.SetStageRecords(map[models.Stage]models.StageRecord{
			models.StageApplied: {Result: models.StageResultPending},
		}); err != nil {
			return err
		}

		if err := tx.Create(&application).Error; err != nil {
			// The pair index catches the race two concurrent submissions
			// can win past the count check.
			if isDuplicateKey(err) {
				return newError(KindDuplicate, "candidate already applied to this requisition")
			}
			return err
		}

		activity := models.NewStageActivity(
			models.ActivityTypeApplicationSubmitted,
			application.ID,
			&candidateID,
			"Application submitted",
			fmt.Sprintf("Applied to %s with matching score %.1f", requisition.Title, result.Score),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		return s.queue.Enqueue(tx, notify.Event{
			UserID:      candidate.UserID,
			Recipient:   candidate.User.Email,
			Template:    models.TemplateApplicationSubmitted,
			ContextType: models.ContextApplication,
			ContextID:   application.ID,
			Variables: map[string]string{
				"requisition_title": requisition.Title,
				"matching_score":    fmt.Sprintf("%.1f", result.Score),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application submitted",
		zap.String("application_id", application.ID.String()),
		zap.String("candidate_id", candidateID.String()),
		zap.String("requisition_id", requisitionID.String()),
		zap.Float64("matching_score", application.MatchingScore))

	return &application, nil
}

// Advance moves the application to the next pipeline stage. Gated stages
// only advance off a recorded pass; the accepted stage is never entered
// here, acceptance is an explicit decision.
func (s *Service) Advance(applicationID uuid.UUID, actorID *uuid.UUID) (*models.Application, error) {
	var application models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, err := s.loadForUpdate(tx, applicationID)
		if err != nil {
			return err
		}

		if app.IsTerminal() {
			return newError(KindAlreadyTerminal, "application is already %s", app.Status)
		}
		if !app.CanAdvance() {
			return newError(KindBlocked, "stage %s requires a recorded pass before advancing", app.CurrentStage)
		}

		next, ok := app.CurrentStage.Next()
		if !ok {
			return newError(KindBlocked, "stage %s has no next stage", app.CurrentStage)
		}
		if next == models.StageAccepted {
			return newError(KindBlocked, "acceptance requires an explicit decision")
		}

		previous := app.CurrentStage
		app.CurrentStage = next
		records := app.GetStageRecords()
		if _, exists := records[next]; !exists {
			records[next] = models.StageRecord{Result: models.StageResultPending}
		}
		if err := app.SetStageRecords(records); err != nil {
			return err
		}

		if err := tx.Save(app).Error; err != nil {
			return err
		}

		activity := models.NewStageActivity(
			models.ActivityTypeStageAdvanced,
			app.ID,
			actorID,
			"Stage advanced",
			fmt.Sprintf("Moved from %s to %s", previous, next),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		if err := s.queue.Enqueue(tx, notify.Event{
			UserID:      app.Candidate.UserID,
			Recipient:   app.Candidate.User.Email,
			Template:    models.TemplateStageAdvanced,
			ContextType: models.ContextApplication,
			ContextID:   app.ID,
			Variables: map[string]string{
				"requisition_title": app.Requisition.Title,
				"previous_stage":    string(previous),
				"current_stage":     string(next),
			},
		}); err != nil {
			return err
		}

		application = *app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application advanced",
		zap.String("application_id", application.ID.String()),
		zap.String("stage", string(application.CurrentStage)))

	return &application, nil
}

// Schedule records a schedule for the current stage and notifies the
// candidate.
func (s *Service) Schedule(applicationID uuid.UUID, actorID *uuid.UUID, scheduledAt time.Time) (*models.Application, error) {
	var application models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, err := s.loadForUpdate(tx, applicationID)
		if err != nil {
			return err
		}

		if app.IsTerminal() {
			return newError(KindAlreadyTerminal, "application is already %s", app.Status)
		}

		records := app.GetStageRecords()
		record := app.StageRecordFor(app.CurrentStage)
		record.ScheduledAt = &scheduledAt
		records[app.CurrentStage] = record
		if err := app.SetStageRecords(records); err != nil {
			return err
		}

		if err := tx.Save(app).Error; err != nil {
			return err
		}

		activity := models.NewStageActivity(
			models.ActivityTypeStageScheduled,
			app.ID,
			actorID,
			"Stage scheduled",
			fmt.Sprintf("%s scheduled for %s", app.CurrentStage, scheduledAt.Format(time.RFC3339)),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		if err := s.queue.Enqueue(tx, notify.Event{
			UserID:      app.Candidate.UserID,
			Recipient:   app.Candidate.User.Email,
			Template:    models.TemplateStageScheduled,
			ContextType: models.ContextApplication,
			ContextID:   app.ID,
			Variables: map[string]string{
				"requisition_title": app.Requisition.Title,
				"stage":             string(app.CurrentStage),
				"scheduled_at":      scheduledAt.Format(time.RFC3339),
			},
		}); err != nil {
			return err
		}

		application = *app
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &application, nil
}

// RecordResult stores the outcome of the current stage. Only gated stages
// carry results.
func (s *Service) RecordResult(applicationID uuid.UUID, actorID *uuid.UUID, result models.StageResult, notes string) (*models.Application, error) {
	switch result {
	case models.StageResultPass, models.StageResultFail, models.StageResultPending:
	default:
		return nil, newError(KindValidation, "unknown stage result %q", result)
	}

	now := s.now()
	var application models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, err := s.loadForUpdate(tx, applicationID)
		if err != nil {
			return err
		}

		if app.IsTerminal() {
			return newError(KindAlreadyTerminal, "application is already %s", app.Status)
		}
		if !app.CurrentStage.HasResultGate() {
			return newError(KindValidation, "stage %s does not take a result", app.CurrentStage)
		}

		records := app.GetStageRecords()
		record := app.StageRecordFor(app.CurrentStage)
		record.Result = result
		record.Notes = notes
		if result != models.StageResultPending {
			record.CompletedAt = &now
		} else {
			record.CompletedAt = nil
		}
		records[app.CurrentStage] = record
		if err := app.SetStageRecords(records); err != nil {
			return err
		}

		if err := tx.Save(app).Error; err != nil {
			return err
		}

		activity := models.NewStageActivity(
			models.ActivityTypeStageResultRecorded,
			app.ID,
			actorID,
			"Stage result recorded",
			fmt.Sprintf("%s recorded as %s", app.CurrentStage, result),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		application = *app
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &application, nil
}

// Reject closes the application from any non-terminal stage. Rejecting an
// already rejected application is an idempotent no-op; the returned flag
// reports it.
func (s *Service) Reject(applicationID uuid.UUID, actorID *uuid.UUID, reason string) (*models.Application, bool, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, false, newError(KindValidation, "rejection reason is required")
	}

	now := s.now()
	var application models.Application
	var already bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, err := s.loadForUpdate(tx, applicationID)
		if err != nil {
			return err
		}

		if app.Status == models.ApplicationStatusRejected {
			application = *app
			already = true
			return nil
		}
		if app.IsTerminal() {
			return newError(KindAlreadyTerminal, "application is already %s", app.Status)
		}

		app.CurrentStage = models.StageRejected
		app.Status = models.ApplicationStatusRejected
		app.RejectionReason = reason
		app.DecidedBy = actorID
		app.DecidedAt = &now

		if err := tx.Save(app).Error; err != nil {
			return err
		}

		activity := models.NewStageActivity(
			models.ActivityTypeApplicationRejected,
			app.ID,
			actorID,
			"Application rejected",
			reason,
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		if err := s.queue.Enqueue(tx, notify.Event{
			UserID:      app.Candidate.UserID,
			Recipient:   app.Candidate.User.Email,
			Template:    models.TemplateApplicationRejected,
			ContextType: models.ContextApplication,
			ContextID:   app.ID,
			Variables: map[string]string{
				"requisition_title": app.Requisition.Title,
				"reason":            reason,
			},
		}); err != nil {
			return err
		}

		application = *app
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if !already {
		s.logger.Info("application rejected",
			zap.String("application_id", application.ID.String()),
			zap.String("reason", reason))
	}

	return &application, already, nil
}

// Accept makes the hiring decision. Regular actors accept from final
// review only; allowEarly lets an admin accept from any active stage.
func (s *Service) Accept(applicationID uuid.UUID, deciderID uuid.UUID, notes string, allowEarly bool) (*models.Application, error) {
	now := s.now()
	var application models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, err := s.loadForUpdate(tx, applicationID)
		if err != nil {
			return err
		}

		if app.IsTerminal() || app.CurrentStage == models.StageAccepted {
			return newError(KindAlreadyTerminal, "application is already %s", app.Status)
		}
		if app.CurrentStage != models.StageFinalReview && !allowEarly {
			return newError(KindBlocked, "acceptance from stage %s requires admin approval", app.CurrentStage)
		}

		app.CurrentStage = models.StageAccepted
		app.Status = models.ApplicationStatusAccepted
		app.DecidedBy = &deciderID
		app.DecidedAt = &now
		app.DecisionNotes = notes

		if err := tx.Save(app).Error; err != nil {
			return err
		}

		activity := models.NewStageActivity(
			models.ActivityTypeApplicationAccepted,
			app.ID,
			&deciderID,
			"Application accepted",
			fmt.Sprintf("Accepted for %s", app.Requisition.Title),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		if err := s.queue.Enqueue(tx, notify.Event{
			UserID:      app.Candidate.UserID,
			Recipient:   app.Candidate.User.Email,
			Template:    models.TemplateApplicationAccepted,
			ContextType: models.ContextApplication,
			ContextID:   app.ID,
			Variables: map[string]string{
				"requisition_title": app.Requisition.Title,
			},
		}); err != nil {
			return err
		}

		application = *app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application accepted",
		zap.String("application_id", application.ID.String()),
		zap.String("decided_by", deciderID.String()))

	return &application, nil
}

// Withdraw lets the owning candidate leave the pipeline. Terminal
// applications cannot be withdrawn.
func (s *Service) Withdraw(applicationID, candidateID uuid.UUID) (*models.Application, error) {
	var application models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, err := s.loadForUpdate(tx, applicationID)
		if err != nil {
			return err
		}

		if app.CandidateID != candidateID {
			return newError(KindNotFound, "application not found")
		}
		if app.IsTerminal() || app.CurrentStage == models.StageAccepted {
			return newError(KindAlreadyTerminal, "application is already %s", app.Status)
		}

		app.Status = models.ApplicationStatusWithdrawn

		if err := tx.Save(app).Error; err != nil {
			return err
		}

		activity := models.NewStageActivity(
			models.ActivityTypeApplicationWithdrawn,
			app.ID,
			&candidateID,
			"Application withdrawn",
			fmt.Sprintf("Withdrawn at stage %s", app.CurrentStage),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		application = *app
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &application, nil
}

// Place turns an accepted application into a placement. The placement,
// the hired count increment, the candidate availability flip and the
// commission precomputation all commit in one transaction. Each
// application yields at most one placement, enforced by the unique index
// on placements.application_id.
func (s *Service) Place(applicationID uuid.UUID, actorID *uuid.UUID, req models.CreatePlacementRequest) (*models.Placement, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, newError(KindValidation, "end date must be after start date")
	}

	var placement models.Placement

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, err := s.loadForUpdate(tx, applicationID)
		if err != nil {
			return err
		}

		if app.Status != models.ApplicationStatusAccepted {
			return newError(KindBlocked, "only accepted applications can be placed, status is %s", app.Status)
		}

		var existing int64
		if err := tx.Model(&models.Placement{}).
			Where("application_id = ?", applicationID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return newError(KindDuplicate, "application already has a placement")
		}

		var requisition models.Requisition
		if err := tx.First(&requisition, "id = ?", app.RequisitionID).Error; err != nil {
			return err
		}
		if !requisition.HasOpenPositions() {
			return newError(KindNotAccepting, "requisition %s has no open positions", requisition.Slug)
		}

		placement = models.Placement{
			ApplicationID: app.ID,
			CandidateID:   app.CandidateID,
			RequisitionID: app.RequisitionID,
			ContractType:  req.ContractType,
			Status:        models.PlacementStatusPendingStart,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			Salary:        req.Salary,
		}

		if app.Candidate.ReferredByAgentID != nil {
			var agent models.Agent
			if err := tx.First(&agent, "id = ?", *app.Candidate.ReferredByAgentID).Error; err == nil {
				placement.AgentID = &agent.ID
				placement.CommissionAmount = req.Salary * agent.Level.CommissionRate()
			}
		}

		if err := tx.Create(&placement).Error; err != nil {
			return err
		}

		app.Status = models.ApplicationStatusPlaced
		if err := tx.Save(app).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Candidate{}).
			Where("id = ?", app.CandidateID).
			Update("availability", models.AvailabilityWorking).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Requisition{}).
			Where("id = ?", app.RequisitionID).
			Update("hired_count", gorm.Expr("hired_count + 1")).Error; err != nil {
			return err
		}

		activity := models.NewPlacementActivity(
			models.ActivityTypePlacementCreated,
			placement.ID,
			actorID,
			"Placement created",
			fmt.Sprintf("Contract %s to %s", req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02")),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		return s.queue.Enqueue(tx, notify.Event{
			UserID:      app.Candidate.UserID,
			Recipient:   app.Candidate.User.Email,
			Template:    models.TemplatePlacementCreated,
			ContextType: models.ContextPlacement,
			ContextID:   placement.ID,
			Variables: map[string]string{
				"requisition_title": app.Requisition.Title,
				"start_date":        req.StartDate.Format("2006-01-02"),
				"end_date":          req.EndDate.Format("2006-01-02"),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("placement created",
		zap.String("placement_id", placement.ID.String()),
		zap.String("application_id", applicationID.String()))

	return &placement, nil
}

// Get loads a single application with its relations.
func (s *Service) Get(applicationID uuid.UUID) (*models.Application, error) {
	var application models.Application
	err := s.db.
		Preload("Candidate").
		Preload("Candidate.User").
		Preload("Requisition").
		First(&application, "id = ?", applicationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, "application not found")
		}
		return nil, err
	}
	return &application, nil
}

func (s *Service) loadForUpdate(tx *gorm.DB, applicationID uuid.UUID) (*models.Application, error) {
	if applicationID == uuid.Nil {
		return nil, newError(KindValidation, "application id is required")
	}

	var application models.Application
	err := tx.
		Preload("Candidate").
		Preload("Candidate.User").
		Preload("Requisition").
		First(&application, "id = ?", applicationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, "application not found")
		}
		return nil, err
	}
	return &application, nil
}
