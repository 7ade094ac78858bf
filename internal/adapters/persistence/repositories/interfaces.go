package repositories

import (
	"context"
	"time"

	"shopcore/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// PaymentRepository defines payment repository interface.
// Payments are append-and-update only; there is no delete method on
// purpose (financial audit trail).
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	GetByProviderRef(ctx context.Context, ref string) (*models.Payment, error)
	ListByUserID(ctx context.Context, userID uint, offset, limit int) ([]*models.Payment, int64, error)
	// SetProviderRef stores the provider-assigned reference. The WHERE
	// provider_ref IS NULL guard makes the reference set-once.
	SetProviderRef(ctx context.Context, id uint, ref string) error
	// TransitionStatus applies from -> to as a compare-and-swap UPDATE
	// and returns the number of rows changed. Zero rows means another
	// writer got there first (or the row is gone); the caller re-reads
	// and decides whether that was a duplicate.
	TransitionStatus(ctx context.Context, id uint, from, to models.PaymentStatus, rawPayload string) (int64, error)
}

// NotificationRepository defines notification repository interface
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	ListByUserID(ctx context.Context, userID uint, offset, limit int) ([]*models.Notification, int64, error)
	// ListDue returns PENDING notifications eligible for dispatch: not
	// expired, scheduled time passed, retry backoff elapsed.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error)
	// MarkSent moves PENDING -> SENT (or DELIVERED when the channel
	// confirms synchronously); guarded on status so a concurrent writer
	// cannot double-apply.
	MarkSent(ctx context.Context, id uint, delivered bool, at time.Time) (int64, error)
	// ScheduleRetry records a failed attempt: increments retry_count and
	// sets next_retry_at, guarded on the observed retry_count so the
	// increment is applied at most once per attempt.
	ScheduleRetry(ctx context.Context, id uint, observedRetryCount int, errMsg string, nextRetryAt time.Time) (int64, error)
	// MarkFailed moves the notification to terminal FAILED.
	MarkFailed(ctx context.Context, id uint, observedRetryCount int, errMsg string, at time.Time) (int64, error)
	// MarkRead sets read_at once on a SENT or DELIVERED notification;
	// undelivered or already-read rows are untouched.
	MarkRead(ctx context.Context, id uint, at time.Time) error
}
