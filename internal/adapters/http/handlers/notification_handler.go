package handlers

import (
	"errors"
	"strconv"
	"time"

	"shopcore/internal/adapters/persistence/models"
	"shopcore/internal/config"
	"shopcore/internal/core/services"
	"shopcore/internal/pkg/pagination"
	"shopcore/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	notificationService *services.NotificationService
	cfg                 *config.Config
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService, cfg *config.Config) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		cfg:                 cfg,
	}
}

// CreateNotificationRequest represents an admin notification request body
type CreateNotificationRequest struct {
	UserID      uint       `json:"user_id"`
	Type        string     `json:"type"`
	Channel     string     `json:"channel"`
	Priority    int        `json:"priority"`
	Subject     string     `json:"subject"`
	Message     string     `json:"message"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Create handles manual notification creation (admin only)
// @Summary Create notification
// @Description Enqueue a notification for delivery
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateNotificationRequest true "Notification data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /notifications [post]
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var req CreateNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.UserID == 0 {
		return response.BadRequest(c, "User ID is required")
	}
	if req.Type == "" {
		return response.BadRequest(c, "Notification type is required")
	}

	channel := models.NotificationChannel(req.Channel)
	switch channel {
	case models.ChannelEmail, models.ChannelSMS, models.ChannelPush, models.ChannelInApp:
	default:
		return response.BadRequest(c, "Invalid channel")
	}

	n, err := h.notificationService.Enqueue(c.Context(), &services.EnqueueInput{
		UserID:      req.UserID,
		Type:        req.Type,
		Channel:     channel,
		Priority:    req.Priority,
		Subject:     req.Subject,
		Message:     req.Message,
		ScheduledAt: req.ScheduledAt,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to create notification")
	}

	return response.Created(c, "Notification created", fiber.Map{
		"notification": n,
	})
}

// List handles listing the caller's notifications
// @Summary List my notifications
// @Description List notifications for the authenticated user
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /notifications/my [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	notifications, total, err := h.notificationService.ListByUser(c.Context(), userID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list notifications")
	}

	return response.Success(c, "Notifications retrieved successfully", pagination.NewResponse(notifications, params, total))
}

// MarkRead handles marking a notification as read
// @Summary Mark notification read
// @Description Mark a notification as read; repeated calls are no-ops
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	n, err := h.notificationService.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			return response.NotFound(c, "Notification not found")
		}
		return response.InternalServerError(c, "Failed to get notification")
	}
	if n.UserID != userID {
		return response.NotFound(c, "Notification not found")
	}

	if err := h.notificationService.MarkRead(c.Context(), uint(id)); err != nil {
		return response.InternalServerError(c, "Failed to mark notification read")
	}

	return response.Success(c, "Notification marked as read", nil)
}
