package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'USER'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// ============================================================
// Payment Tables
// ============================================================

// PaymentStatus is the internal payment status vocabulary
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// paymentTransitions is the fixed transition graph. Everything not listed
// here is rejected, which makes duplicate and out-of-order provider
// callbacks harmless no-ops.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

// IsTerminal reports whether no further transition is permitted.
func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

// CanTransitionTo reports whether the transition s -> next is in the graph.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment represents payments table.
// Rows are never hard-deleted: financial audit requires the full history,
// so there is deliberately no DeletedAt column and no delete path.
type Payment struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	UserID             uint          `gorm:"index;not null" json:"user_id"`
	Amount             float64       `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency           string        `gorm:"size:3;not null" json:"currency"`
	Provider           string        `gorm:"size:30;not null" json:"provider"`
	ProviderRef        *string       `gorm:"size:100;uniqueIndex" json:"provider_ref"`
	Status             PaymentStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Description        string        `gorm:"size:255" json:"description"`
	LastWebhookPayload string        `gorm:"type:text" json:"-"`
	CreatedAt          time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}

// PaymentResponse DTO
type PaymentResponse struct {
	ID          uint          `json:"id"`
	UserID      uint          `json:"user_id"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	Provider    string        `json:"provider"`
	ProviderRef *string       `json:"provider_ref"`
	Status      PaymentStatus `json:"status"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (p *Payment) ToResponse() *PaymentResponse {
	return &PaymentResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Provider:    p.Provider,
		ProviderRef: p.ProviderRef,
		Status:      p.Status,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ============================================================
// Notification Tables
// ============================================================

// NotificationStatus is the delivery state of a notification
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "PENDING"
	NotificationStatusSent      NotificationStatus = "SENT"
	NotificationStatusDelivered NotificationStatus = "DELIVERED"
	NotificationStatusFailed    NotificationStatus = "FAILED"
)

// NotificationChannel is the delivery channel
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSMS   NotificationChannel = "SMS"
	ChannelPush  NotificationChannel = "PUSH"
	ChannelInApp NotificationChannel = "IN_APP"
)

// Notification Types
const (
	NotifyPaymentSuccess  = "PAYMENT_SUCCESS"
	NotifyPaymentFailed   = "PAYMENT_FAILED"
	NotifyPaymentRefunded = "PAYMENT_REFUNDED"
	NotifyOrderCreated    = "ORDER_CREATED"
)

// DefaultMaxRetries bounds the retry/backoff cycle per notification
const DefaultMaxRetries = 3

// Notification represents notifications table.
// Rows are never deleted, only expired via ExpiresAt.
type Notification struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	UserID      uint                `gorm:"index;not null" json:"user_id"`
	Type        string              `gorm:"size:50;not null" json:"type"`
	Channel     NotificationChannel `gorm:"size:20;not null" json:"channel"`
	Priority    int                 `gorm:"not null;default:0" json:"priority"`
	Status      NotificationStatus  `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Subject     string              `gorm:"size:255" json:"subject"`
	Message     string              `gorm:"type:text" json:"message"`
	ScheduledAt *time.Time          `json:"scheduled_at"`
	SentAt      *time.Time          `json:"sent_at"`
	DeliveredAt *time.Time          `json:"delivered_at"`
	FailedAt    *time.Time          `json:"failed_at"`
	ReadAt      *time.Time          `json:"read_at"`
	LastError   string              `gorm:"size:500" json:"last_error,omitempty"`
	RetryCount  int                 `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries  int                 `gorm:"not null;default:3" json:"max_retries"`
	NextRetryAt *time.Time          `gorm:"index" json:"next_retry_at"`
	ExpiresAt   *time.Time          `json:"expires_at"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// IsExpired reports whether the notification passed its expiry instant.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// IsRead reports whether the notification was already marked read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Payment{},
		&Notification{},
	)
}
