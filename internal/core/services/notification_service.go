package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shopcore/internal/adapters/persistence/models"
	"shopcore/internal/adapters/persistence/repositories"
	"shopcore/internal/config"

	"gorm.io/gorm"
)

// Notification errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// backoffBaseMinutes is the base of the exponential retry schedule:
// nextRetryAt = now + backoffBase * 2^retryCount minutes.
const backoffBaseMinutes = 5

// NotificationService drives the notification lifecycle:
// PENDING → SENT → DELIVERED on the happy path, PENDING → FAILED on a
// delivery error, FAILED rows going back to PENDING until retries run
// out. Only this service mutates notification rows.
type NotificationService struct {
	repo    repositories.NotificationRepository
	senders map[models.NotificationChannel]ChannelSender
	cfg     *config.Config
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	repo repositories.NotificationRepository,
	senders map[models.NotificationChannel]ChannelSender,
	cfg *config.Config,
) *NotificationService {
	return &NotificationService{
		repo:    repo,
		senders: senders,
		cfg:     cfg,
	}
}

// EnqueueInput represents a producer event to turn into a notification
type EnqueueInput struct {
	UserID      uint
	Type        string
	Channel     models.NotificationChannel
	Priority    int
	Subject     string
	Message     string
	ScheduledAt *time.Time
	ExpiresAt   *time.Time
}

// Enqueue creates a PENDING notification. Future-dated notifications
// stay untouched until their scheduled time arrives.
func (s *NotificationService) Enqueue(ctx context.Context, input *EnqueueInput) (*models.Notification, error) {
	priority := input.Priority
	if priority == 0 {
		priority = priorityFor(input.Type)
	}

	maxRetries := s.cfg.Notification.MaxRetries
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}

	n := &models.Notification{
		UserID:      input.UserID,
		Type:        input.Type,
		Channel:     input.Channel,
		Priority:    priority,
		Status:      models.NotificationStatusPending,
		Subject:     input.Subject,
		Message:     input.Message,
		ScheduledAt: input.ScheduledAt,
		ExpiresAt:   input.ExpiresAt,
		MaxRetries:  maxRetries,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	log.Printf("🔔 Notification enqueued [id: %d, type: %s, channel: %s]", n.ID, n.Type, n.Channel)
	return n, nil
}

// NotifyPaymentEvent implements PaymentNotifier for the payment gateway
func (s *NotificationService) NotifyPaymentEvent(ctx context.Context, p *models.Payment, eventType string) {
	subject, message := paymentEventText(p, eventType)

	_, err := s.Enqueue(ctx, &EnqueueInput{
		UserID:  p.UserID,
		Type:    eventType,
		Channel: models.ChannelEmail,
		Subject: subject,
		Message: message,
	})
	if err != nil {
		// The payment transition already happened; a lost notification
		// must not roll it back.
		log.Printf("❌ Failed to enqueue %s for payment %d: %v", eventType, p.ID, err)
	}
}

// DispatchDue attempts delivery for every eligible PENDING notification
// and returns how many were sent. A failing notification never aborts
// the sweep; its failure is recorded and the sweep moves on.
func (s *NotificationService) DispatchDue(ctx context.Context) (int, error) {
	now := time.Now()

	batch := s.cfg.Notification.DispatchBatch
	if batch <= 0 {
		batch = 100
	}

	due, err := s.repo.ListDue(ctx, now, batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range due {
		if s.dispatchOne(ctx, n) {
			sent++
		}
	}

	if sent > 0 {
		log.Printf("🔔 Dispatched %d/%d due notifications", sent, len(due))
	}
	return sent, nil
}

// dispatchOne attempts a single delivery and applies the retry/backoff
// state machine on failure.
func (s *NotificationService) dispatchOne(ctx context.Context, n *models.Notification) bool {
	sender, ok := s.senders[n.Channel]
	if !ok {
		s.recordFailure(ctx, n, fmt.Errorf("no sender for channel %s", n.Channel))
		return false
	}

	delivered, err := sender.Send(ctx, n)
	if err != nil {
		s.recordFailure(ctx, n, err)
		return false
	}

	if _, err := s.repo.MarkSent(ctx, n.ID, delivered, time.Now()); err != nil {
		log.Printf("❌ Failed to mark notification %d sent: %v", n.ID, err)
		return false
	}
	return true
}

// recordFailure increments the retry count and either schedules the
// next attempt or, with retries exhausted, parks the notification in
// terminal FAILED. The retry count never exceeds max retries.
func (s *NotificationService) recordFailure(ctx context.Context, n *models.Notification, cause error) {
	now := time.Now()
	attempted := n.RetryCount + 1

	if attempted >= n.MaxRetries {
		if _, err := s.repo.MarkFailed(ctx, n.ID, n.RetryCount, cause.Error(), now); err != nil {
			log.Printf("❌ Failed to mark notification %d failed: %v", n.ID, err)
			return
		}
		log.Printf("💀 Notification %d failed terminally after %d attempts: %v", n.ID, attempted, cause)
		return
	}

	next := now.Add(BackoffDelay(attempted))
	if _, err := s.repo.ScheduleRetry(ctx, n.ID, n.RetryCount, cause.Error(), next); err != nil {
		log.Printf("❌ Failed to schedule retry for notification %d: %v", n.ID, err)
		return
	}
	log.Printf("🔁 Notification %d retry %d/%d scheduled for %s: %v",
		n.ID, attempted, n.MaxRetries, next.Format(time.RFC3339), cause)
}

// BackoffDelay returns the delay before the next attempt after the
// given number of failed attempts. Doubling per attempt bounds retry
// storms against a degraded channel while still converging.
func BackoffDelay(retryCount int) time.Duration {
	return time.Duration(backoffBaseMinutes*(1<<retryCount)) * time.Minute
}

// MarkRead sets the read timestamp once. Re-reading is a no-op, and a
// notification that was never sent or delivered stays unread.
func (s *NotificationService) MarkRead(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id, time.Now())
}

// GetByID gets a notification by ID
func (s *NotificationService) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

// ListByUser lists notifications for a user
func (s *NotificationService) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Notification, int64, error) {
	return s.repo.ListByUserID(ctx, userID, offset, limit)
}

// priorityFor computes the default priority for an event type
func priorityFor(eventType string) int {
	switch eventType {
	case models.NotifyPaymentSuccess, models.NotifyPaymentFailed, models.NotifyPaymentRefunded:
		return 8
	case models.NotifyOrderCreated:
		return 5
	default:
		return 1
	}
}

// paymentEventText builds the user-facing subject and body for a
// payment event
func paymentEventText(p *models.Payment, eventType string) (string, string) {
	switch eventType {
	case models.NotifyPaymentSuccess:
		return "Payment received",
			fmt.Sprintf("Your payment of %.2f %s was completed successfully.", p.Amount, p.Currency)
	case models.NotifyPaymentFailed:
		return "Payment failed",
			fmt.Sprintf("Your payment of %.2f %s could not be processed.", p.Amount, p.Currency)
	case models.NotifyPaymentRefunded:
		return "Payment refunded",
			fmt.Sprintf("Your payment of %.2f %s was refunded.", p.Amount, p.Currency)
	default:
		return eventType, fmt.Sprintf("Payment %d changed state.", p.ID)
	}
}
