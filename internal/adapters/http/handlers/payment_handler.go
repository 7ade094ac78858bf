package handlers

import (
	"errors"
	"strconv"

	"shopcore/internal/adapters/payment"
	"shopcore/internal/adapters/persistence/models"
	"shopcore/internal/config"
	"shopcore/internal/core/services"
	"shopcore/internal/pkg/pagination"
	"shopcore/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	paymentService *services.PaymentService
	cfg            *config.Config
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *services.PaymentService, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		cfg:            cfg,
	}
}

// InitiateRequest represents a checkout payment request body
type InitiateRequest struct {
	Amount      float64            `json:"amount"`
	Currency    string             `json:"currency"`
	Description string             `json:"description"`
	BuyerEmail  string             `json:"buyer_email"`
	BuyerName   string             `json:"buyer_name"`
	Address     string             `json:"address"`
	Lines       []payment.LineItem `json:"lines"`
}

// RefundRequest represents a refund request body
type RefundRequest struct {
	Amount float64 `json:"amount"`
}

// Initiate handles payment creation
// @Summary Initiate payment
// @Description Create a payment and register it with the provider
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body InitiateRequest true "Payment data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /payments [post]
func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req InitiateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.InitiateInput{
		UserID:      userID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		BuyerEmail:  req.BuyerEmail,
		BuyerName:   req.BuyerName,
		Address:     req.Address,
		Lines:       req.Lines,
	}

	p, err := h.paymentService.Initiate(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPaymentInput):
			return response.BadRequest(c, "Amount must be positive and currency a 3-letter code")
		case errors.Is(err, services.ErrPaymentProvider):
			return response.BadGateway(c, "Payment provider unavailable")
		default:
			return response.InternalServerError(c, "Failed to initiate payment")
		}
	}

	return response.Created(c, "Payment initiated", fiber.Map{
		"payment": p.ToResponse(),
	})
}

// Get handles payment retrieval
// @Summary Get payment
// @Description Get a payment by ID (owner or admin only)
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	p, err := h.paymentService.Retrieve(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			return response.NotFound(c, "Payment not found")
		}
		return response.InternalServerError(c, "Failed to get payment")
	}

	// Ownership check; 404 rather than 403 to avoid leaking existence
	if p.UserID != userID && !isAdmin(c) {
		return response.NotFound(c, "Payment not found")
	}

	return response.Success(c, "Payment retrieved successfully", fiber.Map{
		"payment": p.ToResponse(),
	})
}

// List handles listing the caller's payments
// @Summary List my payments
// @Description List payments owned by the authenticated user
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /payments [get]
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	payments, total, err := h.paymentService.ListByUser(c.Context(), userID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list payments")
	}

	items := make([]*models.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, p.ToResponse())
	}

	return response.Success(c, "Payments retrieved successfully", pagination.NewResponse(items, params, total))
}

// Refund handles payment refund (admin only)
// @Summary Refund payment
// @Description Refund a completed payment through the provider
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Param body body RefundRequest true "Refund data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.paymentService.Refund(c.Context(), uint(id), req.Amount); err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			return response.NotFound(c, "Payment not found")
		case errors.Is(err, services.ErrInvalidPaymentState):
			return response.Conflict(c, "Only completed payments can be refunded")
		case errors.Is(err, services.ErrInvalidRefundAmount):
			return response.BadRequest(c, "Refund amount must be positive and not exceed the payment amount")
		case errors.Is(err, services.ErrPaymentProvider):
			return response.BadGateway(c, "Payment provider unavailable")
		default:
			return response.InternalServerError(c, "Failed to refund payment")
		}
	}

	return response.Success(c, "Payment refunded successfully", nil)
}

// Cancel handles payment cancellation
// @Summary Cancel payment
// @Description Cancel a payment that is still pending
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	p, err := h.paymentService.Retrieve(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			return response.NotFound(c, "Payment not found")
		}
		return response.InternalServerError(c, "Failed to get payment")
	}
	if p.UserID != userID && !isAdmin(c) {
		return response.NotFound(c, "Payment not found")
	}

	if err := h.paymentService.Cancel(c.Context(), uint(id)); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPaymentState):
			return response.Conflict(c, "Only pending payments can be cancelled")
		case errors.Is(err, services.ErrPaymentProvider):
			return response.BadGateway(c, "Payment provider unavailable")
		default:
			return response.InternalServerError(c, "Failed to cancel payment")
		}
	}

	return response.Success(c, "Payment cancelled successfully", nil)
}

// Webhook handles provider callbacks. The endpoint is public; the
// request authenticates itself through its signature, so the raw body
// must reach the service untouched.
// @Summary Payment webhook
// @Description Receive a signed status callback from a payment provider
// @Tags Payments
// @Accept json
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /payments/webhook/{provider} [post]
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	providerName := c.Params("provider")
	sigHeader := c.Get(h.cfg.Payment.SignatureHeader)

	result, err := h.paymentService.Reconcile(c.Context(), providerName, c.Body(), sigHeader)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWebhookVerification):
			return response.Unauthorized(c, "Webhook verification failed")
		case errors.Is(err, services.ErrInvalidWebhookBody):
			return response.BadRequest(c, "Invalid webhook payload")
		case errors.Is(err, services.ErrPaymentNotFound):
			return response.NotFound(c, "Unknown payment reference")
		default:
			return response.InternalServerError(c, "Failed to process webhook")
		}
	}

	return response.Success(c, "Webhook processed", fiber.Map{
		"outcome": result.Outcome,
	})
}

// isAdmin reports whether the auth middleware resolved an ADMIN role
func isAdmin(c *fiber.Ctx) bool {
	roles, ok := c.Locals("roles").([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if role == models.RoleAdmin {
			return true
		}
	}
	return false
}
