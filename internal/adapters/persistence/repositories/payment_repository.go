package repositories

import (
	"context"

	"shopcore/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// paymentRepository implements PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment row
func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetByID gets a payment by ID
func (r *paymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByProviderRef gets a payment by the provider-assigned reference
func (r *paymentRepository) GetByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("provider_ref = ?", ref).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByUserID lists payments owned by a user, newest first
func (r *paymentRepository) ListByUserID(ctx context.Context, userID uint, offset, limit int) ([]*models.Payment, int64, error) {
	var payments []*models.Payment
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Payment{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// SetProviderRef stores the provider reference, set-once
func (r *paymentRepository) SetProviderRef(ctx context.Context, id uint, ref string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Where("provider_ref IS NULL").
		Update("provider_ref", ref).Error
}

// TransitionStatus applies from -> to as a compare-and-swap.
// The status guard in the WHERE clause is what serializes concurrent
// webhook deliveries for the same payment: only one of two racing
// transitions observes `from` and wins.
func (r *paymentRepository) TransitionStatus(ctx context.Context, id uint, from, to models.PaymentStatus, rawPayload string) (int64, error) {
	updates := map[string]interface{}{
		"status": to,
	}
	if rawPayload != "" {
		updates["last_webhook_payload"] = rawPayload
	}

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(updates)
	return res.RowsAffected, res.Error
}
