package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentTransitionGraph(t *testing.T) {
	// Allowed edges
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusCompleted))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusFailed))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusCancelled))
	assert.True(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusRefunded))

	// Everything else is rejected
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusRefunded))
	assert.False(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusPending))
	assert.False(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusFailed))
	assert.False(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusCompleted))
	assert.False(t, PaymentStatusRefunded.CanTransitionTo(PaymentStatusCompleted))
	assert.False(t, PaymentStatusCancelled.CanTransitionTo(PaymentStatusCompleted))

	// Self-transitions are not in the graph
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusPending))
	assert.False(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusCompleted))
}

func TestPaymentTerminalStates(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.False(t, PaymentStatusCompleted.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
	assert.True(t, PaymentStatusRefunded.IsTerminal())
	assert.True(t, PaymentStatusCancelled.IsTerminal())
}

func TestNotificationExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Notification{}).IsExpired(now))
	assert.False(t, (&Notification{ExpiresAt: &future}).IsExpired(now))
	assert.True(t, (&Notification{ExpiresAt: &past}).IsExpired(now))
}
