package placement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rekrut-portal/internal/models"
	"rekrut-portal/internal/notify"
	"rekrut-portal/internal/pipeline"
)

// Manager owns the placement lifecycle after hiring: activation, staged
// contract expiry alerts, expiry, termination, completion and the agent
// commission payout. Sweeps are idempotent so the scheduler may run them
// as often as it likes.
type Manager struct {
	db     *gorm.DB
	queue  notify.Enqueuer
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates the placement lifecycle manager.
func NewManager(db *gorm.DB, queue notify.Enqueuer, logger *zap.Logger) *Manager {
	return &Manager{
		db:     db,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the manager clock. Intended for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Activate moves a pending placement to active once its start date is
// reached.
func (m *Manager) Activate(placementID uuid.UUID, actorID *uuid.UUID) (*models.Placement, error) {
	now := m.now()
	var placement models.Placement

	err := m.db.Transaction(func(tx *gorm.DB) error {
		p, err := m.load(tx, placementID)
		if err != nil {
			return err
		}

		if p.Status != models.PlacementStatusPendingStart {
			return pipeline.KindError(pipeline.KindBlocked, "placement is %s, not pending start", p.Status)
		}
		if now.Before(p.StartDate) {
			return pipeline.KindError(pipeline.KindBlocked, "contract starts %s", p.StartDate.Format("2006-01-02"))
		}

		p.Status = models.PlacementStatusActive
		if err := tx.Save(p).Error; err != nil {
			return err
		}

		activity := models.NewPlacementActivity(
			models.ActivityTypePlacementActivated,
			p.ID,
			actorID,
			"Placement activated",
			fmt.Sprintf("Contract active until %s", p.EndDate.Format("2006-01-02")),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		placement = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &placement, nil
}

// ActivateDue activates every pending placement whose start date has been
// reached. Returns the number of placements activated.
func (m *Manager) ActivateDue() (int, error) {
	now := m.now()

	var due []models.Placement
	err := m.db.
		Where("status = ? AND start_date <= ?", models.PlacementStatusPendingStart, now).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	activated := 0
	for i := range due {
		if _, err := m.Activate(due[i].ID, nil); err != nil {
			m.logger.Error("failed to activate placement",
				zap.String("placement_id", due[i].ID.String()),
				zap.Error(err))
			continue
		}
		activated++
	}

	return activated, nil
}

// SendExpiryAlerts sends the staged contract expiry alerts for every
// active placement. Each threshold fires exactly once per placement; a
// crossed threshold whose alert was already sent is skipped, and a sweep
// that runs late sends only the tightest crossed threshold.
func (m *Manager) SendExpiryAlerts() (int, error) {
	now := m.now()

	var active []models.Placement
	err := m.db.
		Preload("Candidate").
		Preload("Candidate.User").
		Preload("Requisition").
		Where("status = ?", models.PlacementStatusActive).
		Find(&active).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range active {
		p := &active[i]
		days := p.DaysUntilExpiryAt(now)

		threshold, ok := crossedThreshold(days)
		if !ok || p.AlertSentFor(threshold) {
			continue
		}

		if err := m.sendExpiryAlert(p, threshold, days); err != nil {
			m.logger.Error("failed to send expiry alert",
				zap.String("placement_id", p.ID.String()),
				zap.Int("threshold_days", threshold),
				zap.Error(err))
			continue
		}
		sent++
	}

	return sent, nil
}

func (m *Manager) sendExpiryAlert(p *models.Placement, threshold, daysLeft int) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		p.MarkAlertSent(threshold)
		for _, t := range models.ExpiryAlertDays {
			if t > threshold {
				p.MarkAlertSent(t)
			}
		}

		if err := tx.Save(p).Error; err != nil {
			return err
		}

		activity := models.NewPlacementActivity(
			models.ActivityTypeExpiryAlertSent,
			p.ID,
			nil,
			"Contract expiry alert sent",
			fmt.Sprintf("%d days until contract end", daysLeft),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		return m.queue.Enqueue(tx, notify.Event{
			UserID:      p.Candidate.UserID,
			Recipient:   p.Candidate.User.Email,
			Template:    models.TemplateContractExpiryAlert,
			ContextType: models.ContextPlacement,
			ContextID:   p.ID,
			Variables: map[string]string{
				"requisition_title": p.Requisition.Title,
				"days_left":         fmt.Sprintf("%d", daysLeft),
				"end_date":          p.EndDate.Format("2006-01-02"),
			},
		})
	})
}

// crossedThreshold returns the tightest alert threshold the remaining days
// have crossed.
func crossedThreshold(daysLeft int) (int, bool) {
	threshold := 0
	found := false
	for _, t := range models.ExpiryAlertDays {
		if daysLeft <= t {
			threshold = t
			found = true
		}
	}
	return threshold, found
}

// ExpireDue marks every active placement past its end date as expired and
// releases the candidate. Returns the number of placements expired.
func (m *Manager) ExpireDue() (int, error) {
	now := m.now()

	var due []models.Placement
	err := m.db.
		Preload("Candidate").
		Preload("Candidate.User").
		Preload("Requisition").
		Where("status = ? AND end_date < ?", models.PlacementStatusActive, now).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		p := &due[i]
		err := m.db.Transaction(func(tx *gorm.DB) error {
			p.Status = models.PlacementStatusExpired
			if err := tx.Save(p).Error; err != nil {
				return err
			}

			if err := m.releaseCandidate(tx, p.CandidateID); err != nil {
				return err
			}

			activity := models.NewPlacementActivity(
				models.ActivityTypePlacementExpired,
				p.ID,
				nil,
				"Placement expired",
				fmt.Sprintf("Contract ended %s", p.EndDate.Format("2006-01-02")),
			)
			return tx.Create(activity).Error
		})
		if err != nil {
			m.logger.Error("failed to expire placement",
				zap.String("placement_id", p.ID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}

	return expired, nil
}

// Terminate ends a placement early. The candidate is released back to
// available.
func (m *Manager) Terminate(placementID, terminatedBy uuid.UUID, req models.TerminatePlacementRequest) (*models.Placement, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, pipeline.KindError(pipeline.KindValidation, "termination reason is required")
	}

	now := m.now()
	var placement models.Placement

	err := m.db.Transaction(func(tx *gorm.DB) error {
		p, err := m.load(tx, placementID)
		if err != nil {
			return err
		}

		if p.IsClosed() {
			return pipeline.KindError(pipeline.KindAlreadyTerminal, "placement is already %s", p.Status)
		}

		p.Status = models.PlacementStatusTerminated
		p.TerminatedAt = &now
		p.TerminatedBy = &terminatedBy
		p.TerminationReason = req.Reason
		p.TerminationNotes = req.Notes

		if err := tx.Save(p).Error; err != nil {
			return err
		}

		if err := m.releaseCandidate(tx, p.CandidateID); err != nil {
			return err
		}

		activity := models.NewPlacementActivity(
			models.ActivityTypePlacementTerminated,
			p.ID,
			&terminatedBy,
			"Placement terminated",
			req.Reason,
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		if err := m.queue.Enqueue(tx, notify.Event{
			UserID:      p.Candidate.UserID,
			Recipient:   p.Candidate.User.Email,
			Template:    models.TemplatePlacementTerminated,
			ContextType: models.ContextPlacement,
			ContextID:   p.ID,
			Variables: map[string]string{
				"requisition_title": p.Requisition.Title,
				"reason":            req.Reason,
			},
		}); err != nil {
			return err
		}

		placement = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("placement terminated",
		zap.String("placement_id", placement.ID.String()),
		zap.String("reason", req.Reason))

	return &placement, nil
}

// Complete closes a placement that ran its full contract. The candidate
// returns to available.
func (m *Manager) Complete(placementID uuid.UUID, actorID *uuid.UUID) (*models.Placement, error) {
	now := m.now()
	var placement models.Placement

	err := m.db.Transaction(func(tx *gorm.DB) error {
		p, err := m.load(tx, placementID)
		if err != nil {
			return err
		}

		if p.IsClosed() {
			return pipeline.KindError(pipeline.KindAlreadyTerminal, "placement is already %s", p.Status)
		}
		if p.Status != models.PlacementStatusActive && p.Status != models.PlacementStatusExpired {
			return pipeline.KindError(pipeline.KindBlocked, "placement is %s, not active", p.Status)
		}

		p.Status = models.PlacementStatusCompleted
		p.CompletedAt = &now

		if err := tx.Save(p).Error; err != nil {
			return err
		}

		if err := m.releaseCandidate(tx, p.CandidateID); err != nil {
			return err
		}

		activity := models.NewPlacementActivity(
			models.ActivityTypePlacementCompleted,
			p.ID,
			actorID,
			"Placement completed",
			fmt.Sprintf("Contract completed at %.0f%%", p.CompletionPercentageAt(now)),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		if err := m.queue.Enqueue(tx, notify.Event{
			UserID:      p.Candidate.UserID,
			Recipient:   p.Candidate.User.Email,
			Template:    models.TemplatePlacementCompleted,
			ContextType: models.ContextPlacement,
			ContextID:   p.ID,
			Variables: map[string]string{
				"requisition_title": p.Requisition.Title,
			},
		}); err != nil {
			return err
		}

		placement = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &placement, nil
}

// Hold pauses an active placement.
func (m *Manager) Hold(placementID uuid.UUID, actorID *uuid.UUID) (*models.Placement, error) {
	return m.transition(placementID, actorID, models.PlacementStatusActive, models.PlacementStatusOnHold, "Placement put on hold")
}

// Resume reactivates a held placement.
func (m *Manager) Resume(placementID uuid.UUID, actorID *uuid.UUID) (*models.Placement, error) {
	return m.transition(placementID, actorID, models.PlacementStatusOnHold, models.PlacementStatusActive, "Placement resumed")
}

func (m *Manager) transition(placementID uuid.UUID, actorID *uuid.UUID, from, to models.PlacementStatus, title string) (*models.Placement, error) {
	var placement models.Placement

	err := m.db.Transaction(func(tx *gorm.DB) error {
		p, err := m.load(tx, placementID)
		if err != nil {
			return err
		}

		if p.Status != from {
			return pipeline.KindError(pipeline.KindBlocked, "placement is %s, not %s", p.Status, from)
		}

		p.Status = to
		if err := tx.Save(p).Error; err != nil {
			return err
		}

		activity := models.NewPlacementActivity(
			models.ActivityTypeSystem,
			p.ID,
			actorID,
			title,
			"",
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		placement = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &placement, nil
}

// ProcessCommission pays the agent commission for a placement exactly
// once. The paid flag is flipped with a guarded update so a concurrent or
// repeated call can never double credit the agent.
func (m *Manager) ProcessCommission(placementID uuid.UUID) (*models.Placement, error) {
	now := m.now()
	var placement models.Placement

	err := m.db.Transaction(func(tx *gorm.DB) error {
		p, err := m.load(tx, placementID)
		if err != nil {
			return err
		}

		if p.AgentID == nil {
			return pipeline.KindError(pipeline.KindValidation, "placement has no referring agent")
		}
		if p.Status != models.PlacementStatusActive && !p.IsClosed() {
			return pipeline.KindError(pipeline.KindBlocked, "commission is payable once the contract is running, placement is %s", p.Status)
		}
		if p.CommissionPaid {
			return pipeline.KindError(pipeline.KindAlreadyTerminal, "commission already paid")
		}

		claimed := tx.Model(&models.Placement{}).
			Where("id = ? AND commission_paid = ?", p.ID, false).
			Updates(map[string]interface{}{
				"commission_paid":    true,
				"commission_paid_at": now,
			})
		if claimed.Error != nil {
			return claimed.Error
		}
		if claimed.RowsAffected == 0 {
			return pipeline.KindError(pipeline.KindAlreadyTerminal, "commission already paid")
		}

		var agent models.Agent
		if err := tx.Preload("User").First(&agent, "id = ?", *p.AgentID).Error; err != nil {
			return err
		}
		agent.CreditCommission(p.CommissionAmount)
		if err := tx.Save(&agent).Error; err != nil {
			return err
		}

		activity := models.NewPlacementActivity(
			models.ActivityTypeCommissionPaid,
			p.ID,
			nil,
			"Commission paid",
			fmt.Sprintf("Rp %.2f credited to agent", p.CommissionAmount),
		)
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		if err := m.queue.Enqueue(tx, notify.Event{
			UserID:      agent.UserID,
			Recipient:   agent.User.Email,
			Template:    models.TemplateCommissionPaid,
			ContextType: models.ContextPlacement,
			ContextID:   p.ID,
			Variables: map[string]string{
				"amount": fmt.Sprintf("%.2f", p.CommissionAmount),
			},
		}); err != nil {
			return err
		}

		p.CommissionPaid = true
		p.CommissionPaidAt = &now
		placement = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("commission paid",
		zap.String("placement_id", placement.ID.String()),
		zap.Float64("amount", placement.CommissionAmount))

	return &placement, nil
}

// releaseCandidate marks a candidate as available again once their
// placement ends.
func (m *Manager) releaseCandidate(tx *gorm.DB, candidateID uuid.UUID) error {
	return tx.Model(&models.Candidate{}).
		Where("id = ?", candidateID).
		Update("availability", models.AvailabilityAvailable).Error
}

// Get loads a single placement with its relations.
func (m *Manager) Get(placementID uuid.UUID) (*models.Placement, error) {
	return m.load(m.db, placementID)
}

func (m *Manager) load(tx *gorm.DB, placementID uuid.UUID) (*models.Placement, error) {
	if placementID == uuid.Nil {
		return nil, pipeline.KindError(pipeline.KindValidation, "placement id is required")
	}

	var placement models.Placement
	err := tx.
		Preload("Candidate").
		Preload("Candidate.User").
		Preload("Requisition").
		First(&placement, "id = ?", placementID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pipeline.KindError(pipeline.KindNotFound, "placement not found")
		}
		return nil, err
	}
	return &placement, nil
}
