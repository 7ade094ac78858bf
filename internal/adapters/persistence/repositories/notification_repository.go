package repositories

import (
	"context"
	"time"

	"shopcore/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// notificationRepository implements NotificationRepository interface
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create creates a new notification row
func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// GetByID gets a notification by ID
func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUserID lists notifications for a user, newest first
func (r *notificationRepository) ListByUserID(ctx context.Context, userID uint, offset, limit int) ([]*models.Notification, int64, error) {
	var list []*models.Notification
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListDue returns PENDING notifications eligible for dispatch right now.
// Highest priority first, oldest first within a priority.
func (r *notificationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	var list []*models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ?", models.NotificationStatusPending).
		Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("priority DESC, created_at ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// MarkSent moves PENDING -> SENT/DELIVERED, guarded on status
func (r *notificationRepository) MarkSent(ctx context.Context, id uint, delivered bool, at time.Time) (int64, error) {
	updates := map[string]interface{}{
		"status":  models.NotificationStatusSent,
		"sent_at": at,
	}
	if delivered {
		updates["status"] = models.NotificationStatusDelivered
		updates["delivered_at"] = at
	}

	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Where("status = ?", models.NotificationStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ScheduleRetry records a failed attempt and schedules the next one.
// The retry_count guard keeps the increment atomic: a stale writer that
// observed an older count changes nothing.
func (r *notificationRepository) ScheduleRetry(ctx context.Context, id uint, observedRetryCount int, errMsg string, nextRetryAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Where("status = ?", models.NotificationStatusPending).
		Where("retry_count = ?", observedRetryCount).
		Updates(map[string]interface{}{
			"retry_count":   gorm.Expr("retry_count + ?", 1),
			"last_error":    errMsg,
			"next_retry_at": nextRetryAt,
		})
	return res.RowsAffected, res.Error
}

// MarkFailed moves the notification to terminal FAILED
func (r *notificationRepository) MarkFailed(ctx context.Context, id uint, observedRetryCount int, errMsg string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Where("status = ?", models.NotificationStatusPending).
		Where("retry_count = ?", observedRetryCount).
		Updates(map[string]interface{}{
			"status":      models.NotificationStatusFailed,
			"retry_count": gorm.Expr("retry_count + ?", 1),
			"last_error":  errMsg,
			"failed_at":   at,
		})
	return res.RowsAffected, res.Error
}

// MarkRead sets read_at once. Only a notification that has reached the
// user can be read: PENDING and FAILED rows are left untouched, as are
// already-read ones.
func (r *notificationRepository) MarkRead(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Where("read_at IS NULL").
		Where("status IN ?", []models.NotificationStatus{
			models.NotificationStatusSent,
			models.NotificationStatusDelivered,
		}).
		Update("read_at", at).Error
}
