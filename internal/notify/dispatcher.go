package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rekrut-portal/config"
	"rekrut-portal/internal/models"
)

// Sender delivers a single notification to its recipient.
type Sender interface {
	Send(notification *models.Notification) error
}

// Dispatcher polls the notification queue and delivers due rows through a
// Sender. Failed attempts are rescheduled per the backoff schedule until
// the retry budget is exhausted, then parked as failed.
type Dispatcher struct {
	db     *gorm.DB
	sender Sender
	cfg    config.NotifyConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewDispatcher creates a queue dispatcher.
func NewDispatcher(db *gorm.DB, sender Sender, cfg config.NotifyConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		db:     db,
		sender: sender,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the dispatcher clock. Intended for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Run polls the queue until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.cfg.PollInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("notification dispatcher started",
		zap.Duration("poll_interval", interval),
		zap.Int("max_attempts", d.cfg.MaxAttempts))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.ProcessDue(); err != nil {
				d.logger.Error("notification poll failed", zap.Error(err))
			}
		}
	}
}

// ProcessDue delivers every notification that is currently due. Each row is
// attempted once per call; rescheduling happens through the row itself.
func (d *Dispatcher) ProcessDue() error {
	now := d.now()

	var due []models.Notification
	err := d.db.
		Where("status IN ?", []models.NotificationStatus{
			models.NotificationStatusPending,
			models.NotificationStatusRetrying,
		}).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order("created_at ASC").
		Find(&due).Error
	if err != nil {
		return err
	}

	for i := range due {
		d.attempt(&due[i], now)
	}

	return nil
}

func (d *Dispatcher) attempt(notification *models.Notification, now time.Time) {
	if err := d.sender.Send(notification); err != nil {
		notification.MarkAttemptFailed(now, err.Error(), d.cfg.Backoff)

		if notification.Status == models.NotificationStatusFailed {
			d.logger.Error("notification delivery exhausted",
				zap.String("notification_id", notification.ID.String()),
				zap.String("template", string(notification.Template)),
				zap.Int("attempts", notification.RetryCount),
				zap.Error(err))
		} else {
			d.logger.Warn("notification delivery failed, retry scheduled",
				zap.String("notification_id", notification.ID.String()),
				zap.Int("attempt", notification.RetryCount),
				zap.Timep("next_retry_at", notification.NextRetryAt),
				zap.Error(err))
		}
	} else {
		notification.MarkAsSent(now)
		d.logger.Info("notification delivered",
			zap.String("notification_id", notification.ID.String()),
			zap.String("template", string(notification.Template)),
			zap.String("recipient", notification.Recipient))
	}

	if err := d.db.Save(notification).Error; err != nil {
		d.logger.Error("failed to persist notification state",
			zap.String("notification_id", notification.ID.String()),
			zap.Error(err))
	}
}
