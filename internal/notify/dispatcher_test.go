package notify

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rekrut-portal/config"
	"rekrut-portal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var testBackoff = []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}

// fakeSender records deliveries and fails on demand.
type fakeSender struct {
	sent     []uuid.UUID
	failWith error
}

func (s *fakeSender) Send(n *models.Notification) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.sent = append(s.sent, n.ID)
	return nil
}

func setupDispatcher(t *testing.T, sender Sender) (*Dispatcher, *gorm.DB, *time.Time) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Notification{}))

	clock := testNow
	dispatcher := NewDispatcher(db, sender, config.NotifyConfig{
		MaxAttempts: 3,
		Backoff:     testBackoff,
	}, zap.NewNop()).WithClock(func() time.Time { return clock })

	return dispatcher, db, &clock
}

func enqueueTest(t *testing.T, db *gorm.DB, maxRetries int) *models.Notification {
	t.Helper()

	user := &models.User{
		Email:     uuid.NewString() + "@example.com",
		Password:  "password123",
		FirstName: "Test",
		LastName:  "User",
		Role:      models.RoleCandidate,
		IsActive:  true,
	}
	require.NoError(t, db.Create(user).Error)

	queue := NewQueue(maxRetries, zap.NewNop())
	err := db.Transaction(func(tx *gorm.DB) error {
		return queue.Enqueue(tx, Event{
			UserID:      user.ID,
			Recipient:   user.Email,
			Template:    models.TemplateApplicationSubmitted,
			ContextType: models.ContextApplication,
			ContextID:   uuid.New(),
			Variables:   map[string]string{"requisition_title": "Operator Produksi"},
		})
	})
	require.NoError(t, err)

	var n models.Notification
	require.NoError(t, db.First(&n, "user_id = ?", user.ID).Error)
	return &n
}

func TestQueue_Enqueue(t *testing.T) {
	_, db, _ := setupDispatcher(t, &fakeSender{})

	n := enqueueTest(t, db, 3)
	assert.Equal(t, models.NotificationStatusPending, n.Status)
	assert.Equal(t, 3, n.MaxRetries)
	assert.Equal(t, "Operator Produksi", n.GetVariables()["requisition_title"])
	assert.Nil(t, n.NextRetryAt)
}

func TestQueue_EnqueueRollsBackWithTransaction(t *testing.T) {
	_, db, _ := setupDispatcher(t, &fakeSender{})

	queue := NewQueue(3, zap.NewNop())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := queue.Enqueue(tx, Event{
			UserID:    uuid.New(),
			Recipient: "rollback@example.com",
			Template:  models.TemplateStageAdvanced,
			ContextID: uuid.New(),
		}); err != nil {
			return err
		}
		return errors.New("domain operation failed")
	})
	require.Error(t, err)

	var count int64
	db.Model(&models.Notification{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDispatcher_DeliversDue(t *testing.T) {
	sender := &fakeSender{}
	dispatcher, db, _ := setupDispatcher(t, sender)

	n := enqueueTest(t, db, 3)

	require.NoError(t, dispatcher.ProcessDue())
	assert.Len(t, sender.sent, 1)

	var reloaded models.Notification
	require.NoError(t, db.First(&reloaded, "id = ?", n.ID).Error)
	assert.Equal(t, models.NotificationStatusSent, reloaded.Status)
	assert.NotNil(t, reloaded.SentAt)

	// Sent rows are not picked up again.
	require.NoError(t, dispatcher.ProcessDue())
	assert.Len(t, sender.sent, 1)
}

func TestDispatcher_RetriesWithBackoff(t *testing.T) {
	sender := &fakeSender{failWith: errors.New("smtp timeout")}
	dispatcher, db, clock := setupDispatcher(t, sender)

	n := enqueueTest(t, db, 3)

	require.NoError(t, dispatcher.ProcessDue())

	var reloaded models.Notification
	require.NoError(t, db.First(&reloaded, "id = ?", n.ID).Error)
	assert.Equal(t, models.NotificationStatusRetrying, reloaded.Status)
	assert.Equal(t, 1, reloaded.RetryCount)
	assert.Equal(t, "smtp timeout", reloaded.ErrorMessage)
	require.NotNil(t, reloaded.NextRetryAt)
	assert.Equal(t, testNow.Add(10*time.Second).Unix(), reloaded.NextRetryAt.Unix())

	// Not due yet, the row is left alone.
	require.NoError(t, dispatcher.ProcessDue())
	require.NoError(t, db.First(&reloaded, "id = ?", n.ID).Error)
	assert.Equal(t, 1, reloaded.RetryCount)

	// Second attempt after the first backoff window.
	*clock = clock.Add(11 * time.Second)
	require.NoError(t, dispatcher.ProcessDue())
	require.NoError(t, db.First(&reloaded, "id = ?", n.ID).Error)
	assert.Equal(t, 2, reloaded.RetryCount)
	require.NotNil(t, reloaded.NextRetryAt)
	assert.Equal(t, clock.Add(30*time.Second).Unix(), reloaded.NextRetryAt.Unix())
}

func TestDispatcher_ParksAfterExhaustedRetries(t *testing.T) {
	sender := &fakeSender{failWith: errors.New("mailbox unavailable")}
	dispatcher, db, clock := setupDispatcher(t, sender)

	n := enqueueTest(t, db, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, dispatcher.ProcessDue())
		*clock = clock.Add(2 * time.Minute)
	}

	var reloaded models.Notification
	require.NoError(t, db.First(&reloaded, "id = ?", n.ID).Error)
	assert.Equal(t, models.NotificationStatusFailed, reloaded.Status)
	assert.Equal(t, 3, reloaded.RetryCount)
	assert.NotNil(t, reloaded.FailedAt)
	assert.Nil(t, reloaded.NextRetryAt)

	// Failed rows stay parked even when the sender recovers.
	sender.failWith = nil
	require.NoError(t, dispatcher.ProcessDue())
	assert.Empty(t, sender.sent)
}

func TestDispatcher_RecoveredSenderDeliversRetry(t *testing.T) {
	sender := &fakeSender{failWith: errors.New("smtp timeout")}
	dispatcher, db, clock := setupDispatcher(t, sender)

	n := enqueueTest(t, db, 3)

	require.NoError(t, dispatcher.ProcessDue())

	sender.failWith = nil
	*clock = clock.Add(time.Minute)
	require.NoError(t, dispatcher.ProcessDue())

	var reloaded models.Notification
	require.NoError(t, db.First(&reloaded, "id = ?", n.ID).Error)
	assert.Equal(t, models.NotificationStatusSent, reloaded.Status)
	assert.Len(t, sender.sent, 1)
}
