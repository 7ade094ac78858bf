package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"shopcore/internal/adapters/payment"
	"shopcore/internal/adapters/persistence/models"
	"shopcore/internal/adapters/persistence/repositories"
	"shopcore/internal/config"
	"shopcore/internal/pkg/replay"
	"shopcore/internal/pkg/signature"

	"gorm.io/gorm"
)

// Payment errors
var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentProvider     = payment.ErrProvider
	ErrWebhookVerification = errors.New("webhook verification failed")
	ErrInvalidWebhookBody  = errors.New("invalid webhook payload")
	ErrInvalidPaymentState = errors.New("operation not allowed in current payment state")
	ErrInvalidRefundAmount = errors.New("invalid refund amount")
	ErrInvalidPaymentInput = errors.New("invalid payment input")
)

// ReconcileOutcome classifies what a verified callback did. Duplicate and
// out-of-graph callbacks are routine operational noise from provider
// retries, so they are outcomes rather than errors.
type ReconcileOutcome string

const (
	OutcomeApplied   ReconcileOutcome = "APPLIED"
	OutcomeDuplicate ReconcileOutcome = "DUPLICATE"
	OutcomeIgnored   ReconcileOutcome = "IGNORED"
)

// ReconcileResult is the typed result of processing one callback
type ReconcileResult struct {
	Outcome ReconcileOutcome
	Payment *models.Payment
}

// webhookEvent is the normalized callback body shared by provider
// adapters. Raw bytes are verified before this is ever decoded.
type webhookEvent struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	PaymentRef string `json:"payment_ref"`
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
}

// PaymentService is the provider-agnostic gateway. Reconcile is the only
// path that moves a payment along the status graph in response to
// provider callbacks, whether they arrive by webhook push or by poll.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	providers   *payment.Registry
	nonces      replay.NonceStore
	notifier    PaymentNotifier
	cfg         *config.Config
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	providers *payment.Registry,
	nonces replay.NonceStore,
	notifier PaymentNotifier,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		providers:   providers,
		nonces:      nonces,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// InitiateInput represents a checkout payment request
type InitiateInput struct {
	UserID      uint
	Amount      float64
	Currency    string
	Description string
	BuyerEmail  string
	BuyerName   string
	Address     string
	Lines       []payment.LineItem
	Provider    string // optional; defaults to the configured provider
}

// Initiate creates a PENDING payment and registers it with the external
// provider. Provider failures surface to the caller unretried; the
// PENDING row is kept for audit and can still be cancelled.
func (s *PaymentService) Initiate(ctx context.Context, input *InitiateInput) (*models.Payment, error) {
	if input.Amount <= 0 || len(input.Currency) != 3 {
		return nil, ErrInvalidPaymentInput
	}

	providerName := input.Provider
	if providerName == "" {
		providerName = s.cfg.Payment.Provider
	}
	adapter, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	// 1. Create the payment row first so even a failed initiation leaves
	// an auditable trace.
	p := &models.Payment{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Provider:    providerName,
		Status:      models.PaymentStatusPending,
		Description: input.Description,
	}
	if err := s.paymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	// 2. Register with the provider
	resp, err := adapter.CreatePayment(ctx, &payment.CreateRequest{
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
		BuyerEmail:  input.BuyerEmail,
		BuyerName:   input.BuyerName,
		Address:     input.Address,
		Lines:       input.Lines,
	})
	if err != nil {
		log.Printf("❌ Payment initiation failed [payment: %d, provider: %s]: %v", p.ID, providerName, err)
		return nil, err
	}

	// 3. Store the provider reference (set-once)
	if err := s.paymentRepo.SetProviderRef(ctx, p.ID, resp.ProviderRef); err != nil {
		return nil, err
	}
	p.ProviderRef = &resp.ProviderRef

	log.Printf("💳 Payment initiated [payment: %d, provider: %s, ref: %s]", p.ID, providerName, resp.ProviderRef)
	return p, nil
}

// Reconcile processes a provider callback. Order matters: the signature
// is verified over the raw bytes before anything is parsed or touched,
// then freshness and replay are checked, and only then is the status
// mapped onto the transition graph.
func (s *PaymentService) Reconcile(ctx context.Context, providerName string, rawBody []byte, signatureHeader string) (*ReconcileResult, error) {
	// 1. Authenticate the payload
	if !signature.Verify(rawBody, signatureHeader, s.cfg.Payment.WebhookSecret) {
		log.Printf("🚨 Webhook rejected: bad signature [provider: %s]", providerName)
		return nil, ErrWebhookVerification
	}

	// 2. Decode
	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, ErrInvalidWebhookBody
	}
	if event.EventID == "" || event.PaymentRef == "" {
		return nil, ErrInvalidWebhookBody
	}

	// 3. Freshness window: a captured-and-replayed signature is useless
	// once its timestamp ages out.
	window := time.Duration(s.cfg.Payment.FreshnessWindowSecs) * time.Second
	age := time.Since(time.Unix(event.Timestamp, 0))
	if age > window || age < -window {
		log.Printf("🚨 Webhook rejected: stale timestamp [provider: %s, event: %s]", providerName, event.EventID)
		return nil, fmt.Errorf("%w: stale timestamp", ErrWebhookVerification)
	}

	// 4. Replay guard inside the window, keyed by event ID. Check only:
	// the nonce is marked once the event has resolved to an outcome, so
	// an error anywhere below leaves the nonce unburned and the
	// provider's retry of the same event still goes through. A true
	// concurrent duplicate that slips past the check loses the CAS in
	// step 7.
	nonce := providerName + ":" + event.EventID
	seen, err := s.nonces.Seen(ctx, nonce)
	if err != nil {
		return nil, err
	}
	if seen {
		p, _ := s.paymentRepo.GetByProviderRef(ctx, event.PaymentRef)
		log.Printf("↩️ Webhook replayed, no-op [provider: %s, event: %s]", providerName, event.EventID)
		return &ReconcileResult{Outcome: OutcomeDuplicate, Payment: p}, nil
	}

	// 5. Resolve the payment
	p, err := s.paymentRepo.GetByProviderRef(ctx, event.PaymentRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	// 6. Map provider vocabulary onto the internal graph
	target, ok := mapProviderStatus(event.Status)
	if !ok {
		log.Printf("⚠️ Webhook with unknown status %q ignored [payment: %d]", event.Status, p.ID)
		s.rememberEvent(ctx, nonce, 2*window)
		return &ReconcileResult{Outcome: OutcomeIgnored, Payment: p}, nil
	}

	if p.Status == target {
		s.rememberEvent(ctx, nonce, 2*window)
		return &ReconcileResult{Outcome: OutcomeDuplicate, Payment: p}, nil
	}
	if !p.Status.CanTransitionTo(target) {
		log.Printf("⚠️ Transition %s → %s rejected [payment: %d]", p.Status, target, p.ID)
		s.rememberEvent(ctx, nonce, 2*window)
		return &ReconcileResult{Outcome: OutcomeIgnored, Payment: p}, nil
	}

	// 7. Compare-and-swap; a racing webhook for the same payment loses
	// here and resolves as duplicate/ignored after a re-read.
	rows, err := s.paymentRepo.TransitionStatus(ctx, p.ID, p.Status, target, string(rawBody))
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		current, err := s.paymentRepo.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		outcome := OutcomeIgnored
		if current.Status == target {
			outcome = OutcomeDuplicate
		}
		s.rememberEvent(ctx, nonce, 2*window)
		return &ReconcileResult{Outcome: outcome, Payment: current}, nil
	}

	log.Printf("💳 Payment %d: %s → %s [provider: %s, event: %s]", p.ID, p.Status, target, providerName, event.EventID)
	p.Status = target
	p.LastWebhookPayload = string(rawBody)

	// 8. The event is applied; remember its nonce and hand the state
	// change to the delivery engine.
	s.rememberEvent(ctx, nonce, 2*window)
	if eventType := notificationTypeFor(target); eventType != "" {
		s.notifier.NotifyPaymentEvent(ctx, p, eventType)
	}

	return &ReconcileResult{Outcome: OutcomeApplied, Payment: p}, nil
}

// rememberEvent marks a resolved event's nonce. A mark failure is logged
// but not surfaced: the retry it lets through resolves as a duplicate on
// the CAS anyway.
func (s *PaymentService) rememberEvent(ctx context.Context, nonce string, ttl time.Duration) {
	if err := s.nonces.Mark(ctx, nonce, ttl); err != nil {
		log.Printf("⚠️ Failed to record webhook nonce %q: %v", nonce, err)
	}
}

// Refund refunds a completed payment through the provider. A provider
// failure leaves the payment COMPLETED; refunds are never retried here.
func (s *PaymentService) Refund(ctx context.Context, paymentID uint, amount float64) error {
	p, err := s.Retrieve(ctx, paymentID)
	if err != nil {
		return err
	}

	if p.Status != models.PaymentStatusCompleted {
		return ErrInvalidPaymentState
	}
	if amount <= 0 || amount > p.Amount {
		return ErrInvalidRefundAmount
	}
	if p.ProviderRef == nil {
		return ErrInvalidPaymentState
	}

	adapter, err := s.providers.Get(p.Provider)
	if err != nil {
		return err
	}
	if err := adapter.Refund(ctx, *p.ProviderRef, amount); err != nil {
		log.Printf("❌ Refund failed [payment: %d]: %v", p.ID, err)
		return err
	}

	rows, err := s.paymentRepo.TransitionStatus(ctx, p.ID, models.PaymentStatusCompleted, models.PaymentStatusRefunded, "")
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInvalidPaymentState
	}

	log.Printf("💳 Payment %d refunded (%.2f %s)", p.ID, amount, p.Currency)
	p.Status = models.PaymentStatusRefunded
	s.notifier.NotifyPaymentEvent(ctx, p, models.NotifyPaymentRefunded)
	return nil
}

// Cancel voids a payment that is still PENDING
func (s *PaymentService) Cancel(ctx context.Context, paymentID uint) error {
	p, err := s.Retrieve(ctx, paymentID)
	if err != nil {
		return err
	}

	if p.Status != models.PaymentStatusPending {
		return ErrInvalidPaymentState
	}

	// A payment the provider never acknowledged has nothing to void
	// remotely; it is cancelled locally.
	if p.ProviderRef != nil {
		adapter, err := s.providers.Get(p.Provider)
		if err != nil {
			return err
		}
		if err := adapter.Cancel(ctx, *p.ProviderRef); err != nil {
			log.Printf("❌ Cancel failed [payment: %d]: %v", p.ID, err)
			return err
		}
	}

	rows, err := s.paymentRepo.TransitionStatus(ctx, p.ID, models.PaymentStatusPending, models.PaymentStatusCancelled, "")
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInvalidPaymentState
	}

	log.Printf("💳 Payment %d cancelled", p.ID)
	return nil
}

// Retrieve returns the current payment snapshot
func (s *PaymentService) Retrieve(ctx context.Context, paymentID uint) (*models.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByUser lists payments owned by a user
func (s *PaymentService) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Payment, int64, error) {
	return s.paymentRepo.ListByUserID(ctx, userID, offset, limit)
}

// mapProviderStatus maps the provider status vocabulary onto the
// internal one
func mapProviderStatus(status string) (models.PaymentStatus, bool) {
	switch status {
	case "completed", "succeeded", "paid":
		return models.PaymentStatusCompleted, true
	case "failed", "declined":
		return models.PaymentStatusFailed, true
	case "refunded":
		return models.PaymentStatusRefunded, true
	case "cancelled", "voided":
		return models.PaymentStatusCancelled, true
	default:
		return "", false
	}
}

// notificationTypeFor picks the notification type for a status change
func notificationTypeFor(status models.PaymentStatus) string {
	switch status {
	case models.PaymentStatusCompleted:
		return models.NotifyPaymentSuccess
	case models.PaymentStatusFailed:
		return models.NotifyPaymentFailed
	case models.PaymentStatusRefunded:
		return models.NotifyPaymentRefunded
	default:
		return ""
	}
}
