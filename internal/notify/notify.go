package notify

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rekrut-portal/internal/models"
)

// Event is a domain notification emitted by a pipeline or placement
// operation. The emitting operation never waits for delivery.
type Event struct {
	UserID      uuid.UUID
	Recipient   string
	Template    models.NotificationTemplate
	Variables   map[string]string
	ContextType models.NotificationContext
	ContextID   uuid.UUID
}

// Enqueuer persists an event for later delivery. Implementations must write
// within the caller's transaction so the enqueue commits or rolls back with
// the state change that produced it.
type Enqueuer interface {
	Enqueue(tx *gorm.DB, event Event) error
}

// Queue is the production Enqueuer: it writes a pending Notification row.
type Queue struct {
	maxRetries int
	logger     *zap.Logger
}

// NewQueue creates the durable notification queue writer.
func NewQueue(maxRetries int, logger *zap.Logger) *Queue {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Queue{
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Enqueue writes the event as a pending notification inside the given
// transaction.
func (q *Queue) Enqueue(tx *gorm.DB, event Event) error {
	notification := models.Notification{
		UserID:      event.UserID,
		Status:      models.NotificationStatusPending,
		Template:    event.Template,
		ContextType: event.ContextType,
		ContextID:   event.ContextID,
		Recipient:   event.Recipient,
		MaxRetries:  q.maxRetries,
	}
	if err := notification.SetVariables(event.Variables); err != nil {
		return err
	}

	if err := tx.Create(&notification).Error; err != nil {
		return err
	}

	q.logger.Debug("notification enqueued",
		zap.String("notification_id", notification.ID.String()),
		zap.String("template", string(event.Template)),
		zap.String("recipient", event.Recipient))

	return nil
}
