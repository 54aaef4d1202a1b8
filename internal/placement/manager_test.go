package placement

import (
	"path/filepath"
	"testing"
	"time"

	"rekrut-portal/internal/models"
	"rekrut-portal/internal/notify"
	"rekrut-portal/internal/pipeline"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	manager *Manager
	clock   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Agent{},
		&models.Candidate{},
		&models.Requisition{},
		&models.Application{},
		&models.Placement{},
		&models.Activity{},
		&models.Notification{},
	)
	require.NoError(t, err)

	clock := testNow
	f := &fixture{db: db, clock: &clock}
	queue := notify.NewQueue(3, zap.NewNop())
	f.manager = NewManager(db, queue, zap.NewNop()).
		WithClock(func() time.Time { return *f.clock })
	return f
}

func (f *fixture) advanceClock(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

// createPlacement seeds a placement with its full relation chain.
func (f *fixture) createPlacement(t *testing.T, status models.PlacementStatus, start, end time.Time) *models.Placement {
	t.Helper()

	user := &models.User{
		Email:     uuid.NewString() + "@example.com",
		Password:  "password123",
		FirstName: "Test",
		LastName:  "Candidate",
		Role:      models.RoleCandidate,
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(user).Error)

	candidate := &models.Candidate{
		UserID:       user.ID,
		Availability: models.AvailabilityWorking,
	}
	require.NoError(t, f.db.Create(candidate).Error)

	requisition := &models.Requisition{
		Title:          "Operator Produksi",
		Status:         models.RequisitionStatusPublished,
		TotalPositions: 3,
		HiredCount:     1,
		CreatedBy:      user.ID,
	}
	require.NoError(t, f.db.Create(requisition).Error)

	application := &models.Application{
		CandidateID:   candidate.ID,
		RequisitionID: requisition.ID,
		CurrentStage:  models.StageAccepted,
		Status:        models.ApplicationStatusPlaced,
		SubmittedAt:   testNow,
	}
	require.NoError(t, f.db.Create(application).Error)

	placement := &models.Placement{
		ApplicationID: application.ID,
		CandidateID:   candidate.ID,
		RequisitionID: requisition.ID,
		ContractType:  models.ContractTypeContract,
		Status:        status,
		StartDate:     start,
		EndDate:       end,
		Salary:        6000000,
	}
	require.NoError(t, f.db.Create(placement).Error)
	return placement
}

func (f *fixture) attachAgent(t *testing.T, placement *models.Placement, level models.AgentLevel, commission float64) *models.Agent {
	t.Helper()

	user := &models.User{
		Email:     uuid.NewString() + "@agent.example.com",
		Password:  "password123",
		FirstName: "Test",
		LastName:  "Agent",
		Role:      models.RoleAgent,
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(user).Error)

	agent := &models.Agent{UserID: user.ID, Level: level}
	require.NoError(t, f.db.Create(agent).Error)

	require.NoError(t, f.db.Model(placement).Updates(map[string]interface{}{
		"agent_id":          agent.ID,
		"commission_amount": commission,
	}).Error)
	placement.AgentID = &agent.ID
	placement.CommissionAmount = commission
	return agent
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Placement {
	t.Helper()
	var p models.Placement
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return &p
}

func TestManager_Activate(t *testing.T) {
	t.Run("activates_once_start_reached", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusPendingStart, testNow.AddDate(0, 0, -1), testNow.AddDate(1, 0, 0))

		activated, err := f.manager.Activate(p.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, models.PlacementStatusActive, activated.Status)
	})

	t.Run("blocks_before_start", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusPendingStart, testNow.AddDate(0, 0, 7), testNow.AddDate(1, 0, 0))

		_, err := f.manager.Activate(p.ID, nil)
		assert.Equal(t, pipeline.KindBlocked, pipeline.KindOf(err))
	})

	t.Run("active_cannot_be_activated_again", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(0, 0, -1), testNow.AddDate(1, 0, 0))

		_, err := f.manager.Activate(p.ID, nil)
		assert.Equal(t, pipeline.KindBlocked, pipeline.KindOf(err))
	})
}

func TestManager_ActivateDue(t *testing.T) {
	f := newFixture(t)
	f.createPlacement(t, models.PlacementStatusPendingStart, testNow.AddDate(0, 0, -2), testNow.AddDate(1, 0, 0))
	f.createPlacement(t, models.PlacementStatusPendingStart, testNow.AddDate(0, 0, -1), testNow.AddDate(1, 0, 0))
	f.createPlacement(t, models.PlacementStatusPendingStart, testNow.AddDate(0, 0, 5), testNow.AddDate(1, 0, 0))

	activated, err := f.manager.ActivateDue()
	require.NoError(t, err)
	assert.Equal(t, 2, activated)

	// Second sweep is a no-op.
	activated, err = f.manager.ActivateDue()
	require.NoError(t, err)
	assert.Equal(t, 0, activated)
}

func TestManager_SendExpiryAlerts(t *testing.T) {
	t.Run("thirty_day_threshold", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, 29))

		sent, err := f.manager.SendExpiryAlerts()
		require.NoError(t, err)
		assert.Equal(t, 1, sent)

		reloaded := f.reload(t, p.ID)
		assert.True(t, reloaded.Alert30Sent)
		assert.False(t, reloaded.Alert14Sent)
		assert.False(t, reloaded.Alert7Sent)
	})

	t.Run("each_threshold_fires_once", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, 29))

		sent, err := f.manager.SendExpiryAlerts()
		require.NoError(t, err)
		assert.Equal(t, 1, sent)

		// Same threshold window, nothing new to send.
		sent, err = f.manager.SendExpiryAlerts()
		require.NoError(t, err)
		assert.Equal(t, 0, sent)

		// Cross the 14 day threshold.
		f.advanceClock(16 * 24 * time.Hour)
		sent, err = f.manager.SendExpiryAlerts()
		require.NoError(t, err)
		assert.Equal(t, 1, sent)

		reloaded := f.reload(t, p.ID)
		assert.True(t, reloaded.Alert30Sent)
		assert.True(t, reloaded.Alert14Sent)
		assert.False(t, reloaded.Alert7Sent)

		var alerts int64
		f.db.Model(&models.Notification{}).
			Where("context_id = ? AND template = ?", p.ID, models.TemplateContractExpiryAlert).
			Count(&alerts)
		assert.Equal(t, int64(2), alerts)
	})

	t.Run("late_sweep_sends_tightest_only", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, 5))

		sent, err := f.manager.SendExpiryAlerts()
		require.NoError(t, err)
		assert.Equal(t, 1, sent)

		reloaded := f.reload(t, p.ID)
		assert.True(t, reloaded.Alert7Sent)
		// Wider thresholds are marked sent without separate alerts.
		assert.True(t, reloaded.Alert30Sent)
		assert.True(t, reloaded.Alert14Sent)

		var alerts int64
		f.db.Model(&models.Notification{}).
			Where("context_id = ? AND template = ?", p.ID, models.TemplateContractExpiryAlert).
			Count(&alerts)
		assert.Equal(t, int64(1), alerts)
	})

	t.Run("far_from_expiry_sends_nothing", func(t *testing.T) {
		f := newFixture(t)
		f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 6, 0))

		sent, err := f.manager.SendExpiryAlerts()
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
	})

	t.Run("pending_placements_are_skipped", func(t *testing.T) {
		f := newFixture(t)
		f.createPlacement(t, models.PlacementStatusPendingStart, testNow.AddDate(0, 0, 1), testNow.AddDate(0, 0, 20))

		sent, err := f.manager.SendExpiryAlerts()
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
	})
}

func TestManager_ExpireDue(t *testing.T) {
	f := newFixture(t)
	p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, -1))
	f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 1, 0))

	expired, err := f.manager.ExpireDue()
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	reloaded := f.reload(t, p.ID)
	assert.Equal(t, models.PlacementStatusExpired, reloaded.Status)

	var candidate models.Candidate
	require.NoError(t, f.db.First(&candidate, "id = ?", p.CandidateID).Error)
	assert.Equal(t, models.AvailabilityAvailable, candidate.Availability)
}

func TestManager_Terminate(t *testing.T) {
	t.Run("terminates_and_releases_candidate", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(1, 0, 0))

		terminatedBy := uuid.New()
		terminated, err := f.manager.Terminate(p.ID, terminatedBy, models.TerminatePlacementRequest{
			Reason: "performance issues",
		})
		require.NoError(t, err)

		assert.Equal(t, models.PlacementStatusTerminated, terminated.Status)
		assert.Equal(t, "performance issues", terminated.TerminationReason)
		require.NotNil(t, terminated.TerminatedBy)
		assert.Equal(t, terminatedBy, *terminated.TerminatedBy)

		var candidate models.Candidate
		require.NoError(t, f.db.First(&candidate, "id = ?", p.CandidateID).Error)
		assert.Equal(t, models.AvailabilityAvailable, candidate.Availability)
	})

	t.Run("requires_reason", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(1, 0, 0))

		_, err := f.manager.Terminate(p.ID, uuid.New(), models.TerminatePlacementRequest{Reason: "  "})
		assert.Equal(t, pipeline.KindValidation, pipeline.KindOf(err))
	})

	t.Run("closed_placement_cannot_be_terminated", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusCompleted, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, -1))

		_, err := f.manager.Terminate(p.ID, uuid.New(), models.TerminatePlacementRequest{Reason: "late"})
		assert.Equal(t, pipeline.KindAlreadyTerminal, pipeline.KindOf(err))
	})
}

func TestManager_Complete(t *testing.T) {
	t.Run("completes_active_placement", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, 1))

		completed, err := f.manager.Complete(p.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, models.PlacementStatusCompleted, completed.Status)
		assert.NotNil(t, completed.CompletedAt)
	})

	t.Run("completes_expired_placement", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusExpired, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, -1))

		completed, err := f.manager.Complete(p.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, models.PlacementStatusCompleted, completed.Status)
	})

	t.Run("pending_cannot_complete", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusPendingStart, testNow.AddDate(0, 0, 1), testNow.AddDate(1, 0, 0))

		_, err := f.manager.Complete(p.ID, nil)
		assert.Equal(t, pipeline.KindBlocked, pipeline.KindOf(err))
	})
}

func TestManager_HoldAndResume(t *testing.T) {
	f := newFixture(t)
	p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(1, 0, 0))

	held, err := f.manager.Hold(p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PlacementStatusOnHold, held.Status)

	// Cannot hold twice.
	_, err = f.manager.Hold(p.ID, nil)
	assert.Equal(t, pipeline.KindBlocked, pipeline.KindOf(err))

	resumed, err := f.manager.Resume(p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PlacementStatusActive, resumed.Status)
}

func TestManager_ProcessCommission(t *testing.T) {
	t.Run("pays_exactly_once", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(1, 0, 0))
		agent := f.attachAgent(t, p, models.AgentLevelSilver, 450000)

		paid, err := f.manager.ProcessCommission(p.ID)
		require.NoError(t, err)
		assert.True(t, paid.CommissionPaid)
		assert.NotNil(t, paid.CommissionPaidAt)

		var reloaded models.Agent
		require.NoError(t, f.db.First(&reloaded, "id = ?", agent.ID).Error)
		assert.Equal(t, 1, reloaded.TotalPlacements)
		assert.Equal(t, 450000.0, reloaded.TotalCommission)
		assert.Equal(t, 450000.0, reloaded.UnsettledCommission)

		// Repeated payout is refused and the totals stay put.
		_, err = f.manager.ProcessCommission(p.ID)
		assert.Equal(t, pipeline.KindAlreadyTerminal, pipeline.KindOf(err))

		require.NoError(t, f.db.First(&reloaded, "id = ?", agent.ID).Error)
		assert.Equal(t, 1, reloaded.TotalPlacements)
		assert.Equal(t, 450000.0, reloaded.TotalCommission)
	})

	t.Run("pays_for_closed_placement", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusCompleted, testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, -1))
		f.attachAgent(t, p, models.AgentLevelGold, 600000)

		paid, err := f.manager.ProcessCommission(p.ID)
		require.NoError(t, err)
		assert.True(t, paid.CommissionPaid)
	})

	t.Run("requires_agent", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusActive, testNow.AddDate(-1, 0, 0), testNow.AddDate(1, 0, 0))

		_, err := f.manager.ProcessCommission(p.ID)
		assert.Equal(t, pipeline.KindValidation, pipeline.KindOf(err))
	})

	t.Run("pending_placement_blocked", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlacement(t, models.PlacementStatusPendingStart, testNow.AddDate(0, 0, 1), testNow.AddDate(1, 0, 0))
		f.attachAgent(t, p, models.AgentLevelBronze, 300000)

		_, err := f.manager.ProcessCommission(p.ID)
		assert.Equal(t, pipeline.KindBlocked, pipeline.KindOf(err))
	})

	t.Run("unknown_placement", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.ProcessCommission(uuid.New())
		assert.Equal(t, pipeline.KindNotFound, pipeline.KindOf(err))
	})
}
