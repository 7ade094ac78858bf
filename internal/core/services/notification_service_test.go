package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"shopcore/internal/adapters/persistence/models"
	"shopcore/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeNotificationRepo is an in-memory NotificationRepository with the
// same guarded-update semantics as the gorm implementation.
type fakeNotificationRepo struct {
	mu     sync.Mutex
	nextID uint
	items  map[uint]*models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: make(map[uint]*models.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	clone := *n
	r.items[n.ID] = &clone
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id uint) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *n
	return &clone, nil
}

func (r *fakeNotificationRepo) ListByUserID(_ context.Context, userID uint, offset, limit int) ([]*models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			clone := *n
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.items {
		if n.Status != models.NotificationStatusPending {
			continue
		}
		if n.ScheduledAt != nil && n.ScheduledAt.After(now) {
			continue
		}
		if n.NextRetryAt != nil && n.NextRetryAt.After(now) {
			continue
		}
		if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
			continue
		}
		clone := *n
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkSent(_ context.Context, id uint, delivered bool, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.Status != models.NotificationStatusPending {
		return 0, nil
	}
	n.SentAt = &at
	if delivered {
		n.Status = models.NotificationStatusDelivered
		n.DeliveredAt = &at
	} else {
		n.Status = models.NotificationStatusSent
	}
	return 1, nil
}

func (r *fakeNotificationRepo) ScheduleRetry(_ context.Context, id uint, observedRetryCount int, errMsg string, nextRetryAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.Status != models.NotificationStatusPending || n.RetryCount != observedRetryCount {
		return 0, nil
	}
	n.RetryCount++
	n.LastError = errMsg
	n.NextRetryAt = &nextRetryAt
	return 1, nil
}

func (r *fakeNotificationRepo) MarkFailed(_ context.Context, id uint, observedRetryCount int, errMsg string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.Status != models.NotificationStatusPending || n.RetryCount != observedRetryCount {
		return 0, nil
	}
	n.Status = models.NotificationStatusFailed
	n.RetryCount++
	n.LastError = errMsg
	n.FailedAt = &at
	return 1, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.ReadAt != nil {
		return nil
	}
	if n.Status != models.NotificationStatusSent && n.Status != models.NotificationStatusDelivered {
		return nil
	}
	n.ReadAt = &at
	return nil
}

// clearBackoff makes a retried notification immediately due again
func (r *fakeNotificationRepo) clearBackoff(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id].NextRetryAt = nil
}

// fakeSender fails on demand and counts attempts
type fakeSender struct {
	mu        sync.Mutex
	delivered bool
	err       error
	attempts  int
}

func (s *fakeSender) Send(_ context.Context, _ *models.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.err != nil {
		return false, s.err
	}
	return s.delivered, nil
}

func notificationTestConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		Notification: config.NotificationConfig{
			DispatchBatch: 10,
			MaxRetries:    3,
		},
	}
}

func newTestNotificationService(senders map[models.NotificationChannel]ChannelSender) (*NotificationService, *fakeNotificationRepo) {
	repo := newFakeNotificationRepo()
	return NewNotificationService(repo, senders, notificationTestConfig()), repo
}

func TestEnqueueDefaults(t *testing.T) {
	svc, repo := newTestNotificationService(nil)

	n, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:  1,
		Type:    models.NotifyPaymentSuccess,
		Channel: models.ChannelEmail,
		Subject: "Payment received",
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusPending, stored.Status)
	assert.Equal(t, 8, stored.Priority)
	assert.Equal(t, 3, stored.MaxRetries)
	assert.Equal(t, 0, stored.RetryCount)
}

func TestBackoffDelayDoubles(t *testing.T) {
	assert.Equal(t, 10*time.Minute, BackoffDelay(1))
	assert.Equal(t, 20*time.Minute, BackoffDelay(2))
	assert.Equal(t, 40*time.Minute, BackoffDelay(3))

	// Strictly monotonically increasing
	for i := 1; i < 6; i++ {
		assert.Greater(t, BackoffDelay(i+1), BackoffDelay(i))
	}
}

func TestDispatchDeliversSynchronousChannel(t *testing.T) {
	senders := map[models.NotificationChannel]ChannelSender{
		models.ChannelInApp: inAppSender{},
	}
	svc, repo := newTestNotificationService(senders)

	n, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:  1,
		Type:    models.NotifyOrderCreated,
		Channel: models.ChannelInApp,
	})
	require.NoError(t, err)

	sent, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusDelivered, stored.Status)
	assert.NotNil(t, stored.SentAt)
	assert.NotNil(t, stored.DeliveredAt)
}

func TestDispatchFailureSchedulesRetryThenFailsTerminally(t *testing.T) {
	sender := &fakeSender{err: errors.New("gateway down")}
	senders := map[models.NotificationChannel]ChannelSender{
		models.ChannelEmail: sender,
	}
	svc, repo := newTestNotificationService(senders)

	n, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:  1,
		Type:    models.NotifyPaymentSuccess,
		Channel: models.ChannelEmail,
	})
	require.NoError(t, err)

	// First failure: retry 1 scheduled 10 minutes out
	_, err = svc.DispatchDue(context.Background())
	require.NoError(t, err)

	stored, _ := repo.GetByID(context.Background(), n.ID)
	assert.Equal(t, models.NotificationStatusPending, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.NextRetryAt)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *stored.NextRetryAt, 5*time.Second)
	assert.Equal(t, "gateway down", stored.LastError)

	// Not eligible again until the backoff elapses
	sent, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, sender.attempts)

	// Second failure: retry 2 scheduled 20 minutes out
	repo.clearBackoff(n.ID)
	_, err = svc.DispatchDue(context.Background())
	require.NoError(t, err)

	stored, _ = repo.GetByID(context.Background(), n.ID)
	assert.Equal(t, models.NotificationStatusPending, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	require.NotNil(t, stored.NextRetryAt)
	assert.WithinDuration(t, time.Now().Add(20*time.Minute), *stored.NextRetryAt, 5*time.Second)

	// Third failure exhausts the retry budget: terminal FAILED
	repo.clearBackoff(n.ID)
	_, err = svc.DispatchDue(context.Background())
	require.NoError(t, err)

	stored, _ = repo.GetByID(context.Background(), n.ID)
	assert.Equal(t, models.NotificationStatusFailed, stored.Status)
	assert.Equal(t, 3, stored.RetryCount)
	assert.LessOrEqual(t, stored.RetryCount, stored.MaxRetries)
	assert.NotNil(t, stored.FailedAt)

	// A FAILED notification is never picked up again
	repo.clearBackoff(n.ID)
	sent, err = svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 3, sender.attempts)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	failing := &fakeSender{err: errors.New("smtp refused")}
	senders := map[models.NotificationChannel]ChannelSender{
		models.ChannelEmail: failing,
		models.ChannelInApp: inAppSender{},
	}
	svc, repo := newTestNotificationService(senders)

	bad, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:  1,
		Type:    models.NotifyPaymentSuccess,
		Channel: models.ChannelEmail,
	})
	require.NoError(t, err)

	good, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:  2,
		Type:    models.NotifyOrderCreated,
		Channel: models.ChannelInApp,
	})
	require.NoError(t, err)

	// One failure must not stop the other delivery
	sent, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	badStored, _ := repo.GetByID(context.Background(), bad.ID)
	assert.Equal(t, models.NotificationStatusPending, badStored.Status)
	assert.Equal(t, 1, badStored.RetryCount)

	goodStored, _ := repo.GetByID(context.Background(), good.ID)
	assert.Equal(t, models.NotificationStatusDelivered, goodStored.Status)
}

func TestScheduledNotificationWaits(t *testing.T) {
	senders := map[models.NotificationChannel]ChannelSender{
		models.ChannelInApp: inAppSender{},
	}
	svc, repo := newTestNotificationService(senders)

	future := time.Now().Add(time.Hour)
	n, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:      1,
		Type:        models.NotifyOrderCreated,
		Channel:     models.ChannelInApp,
		ScheduledAt: &future,
	})
	require.NoError(t, err)

	sent, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	stored, _ := repo.GetByID(context.Background(), n.ID)
	assert.Equal(t, models.NotificationStatusPending, stored.Status)
}

func TestExpiredNotificationNotDispatched(t *testing.T) {
	senders := map[models.NotificationChannel]ChannelSender{
		models.ChannelInApp: inAppSender{},
	}
	svc, _ := newTestNotificationService(senders)

	past := time.Now().Add(-time.Minute)
	_, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:    1,
		Type:      models.NotifyOrderCreated,
		Channel:   models.ChannelInApp,
		ExpiresAt: &past,
	})
	require.NoError(t, err)

	sent, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestMarkReadIdempotent(t *testing.T) {
	senders := map[models.NotificationChannel]ChannelSender{
		models.ChannelInApp: inAppSender{},
	}
	svc, repo := newTestNotificationService(senders)

	n, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:  1,
		Type:    models.NotifyOrderCreated,
		Channel: models.ChannelInApp,
	})
	require.NoError(t, err)

	_, err = svc.DispatchDue(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), n.ID))

	first, _ := repo.GetByID(context.Background(), n.ID)
	require.NotNil(t, first.ReadAt)
	readAt := *first.ReadAt

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.MarkRead(context.Background(), n.ID))

	second, _ := repo.GetByID(context.Background(), n.ID)
	assert.Equal(t, readAt, *second.ReadAt)
}

func TestMarkReadRequiresDelivery(t *testing.T) {
	sender := &fakeSender{err: errors.New("gateway down")}
	senders := map[models.NotificationChannel]ChannelSender{
		models.ChannelEmail: sender,
	}
	svc, repo := newTestNotificationService(senders)

	n, err := svc.Enqueue(context.Background(), &EnqueueInput{
		UserID:  1,
		Type:    models.NotifyPaymentSuccess,
		Channel: models.ChannelEmail,
	})
	require.NoError(t, err)

	// Still PENDING: marking read is a no-op
	require.NoError(t, svc.MarkRead(context.Background(), n.ID))
	stored, _ := repo.GetByID(context.Background(), n.ID)
	assert.Nil(t, stored.ReadAt)

	// Exhaust the retry budget so the row parks in terminal FAILED
	for i := 0; i < 3; i++ {
		_, err = svc.DispatchDue(context.Background())
		require.NoError(t, err)
		repo.clearBackoff(n.ID)
	}
	stored, _ = repo.GetByID(context.Background(), n.ID)
	require.Equal(t, models.NotificationStatusFailed, stored.Status)

	// FAILED never reached the user either
	require.NoError(t, svc.MarkRead(context.Background(), n.ID))
	stored, _ = repo.GetByID(context.Background(), n.ID)
	assert.Nil(t, stored.ReadAt)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc, _ := newTestNotificationService(nil)
	err := svc.MarkRead(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotifyPaymentEventEnqueuesEmail(t *testing.T) {
	svc, repo := newTestNotificationService(nil)

	p := &models.Payment{ID: 5, UserID: 3, Amount: 49.99, Currency: "EUR"}
	svc.NotifyPaymentEvent(context.Background(), p, models.NotifyPaymentSuccess)

	list, total, err := repo.ListByUserID(context.Background(), 3, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	n := list[0]
	assert.Equal(t, models.NotifyPaymentSuccess, n.Type)
	assert.Equal(t, models.ChannelEmail, n.Channel)
	assert.Equal(t, "Payment received", n.Subject)
	assert.Contains(t, n.Message, "49.99 EUR")
}
