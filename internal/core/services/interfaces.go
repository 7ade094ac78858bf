package services

import (
	"context"

	"shopcore/internal/adapters/persistence/models"
)

// Note: AuthService implementation is in auth_service.go
// Note: PaymentService implementation is in payment_service.go
// Note: NotificationService implementation is in notification_service.go

// PaymentNotifier receives payment state-change events from the gateway.
// The delivery engine implements it; the indirection keeps the gateway
// testable without dragging the whole engine in.
type PaymentNotifier interface {
	NotifyPaymentEvent(ctx context.Context, p *models.Payment, eventType string)
}

// ChannelSender delivers one notification through one channel. The
// delivered flag reports synchronous delivery confirmation: true moves
// the notification straight to DELIVERED, false leaves it at SENT until
// the channel confirms out of band.
type ChannelSender interface {
	Send(ctx context.Context, n *models.Notification) (delivered bool, err error)
}
