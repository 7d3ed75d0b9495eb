package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"mathapp/internal/config"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Stripe recommends capping webhook bodies at 64KB
const maxWebhookBodyBytes = 65536

// WebhookHandler processes Stripe billing events. A completed checkout
// activates premium for the user referenced by the session; a cancelled
// subscription deactivates it.
type WebhookHandler struct {
	userService  services.UserServiceInterface
	emailService services.EmailServiceInterface
	cfg          *config.Config
	logger       *observability.Logger
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(userService services.UserServiceInterface, emailService services.EmailServiceInterface, cfg *config.Config, logger *observability.Logger) *WebhookHandler {
	return &WebhookHandler{
		userService:  userService,
		emailService: emailService,
		cfg:          cfg,
		logger:       logger,
	}
}

// HandleStripeEvent verifies and dispatches one webhook delivery
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	ctx, span := observability.TraceBillingFunction(c.Request.Context(), "handle_stripe_event")
	var err error
	defer observability.FinishSpan(span, &err)

	if !h.cfg.Stripe.Enabled {
		StandardizeHTTPError(c, http.StatusServiceUnavailable, "Billing is not configured", "")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Failed to read webhook body", "")
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.cfg.Stripe.WebhookSecret)
	if err != nil {
		h.logger.Warn(ctx, "Rejected webhook with invalid signature", map[string]interface{}{
			"error": err.Error(),
		})
		err = contextutils.WrapError(contextutils.ErrWebhookSignature, "signature verification failed")
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid webhook signature", "")
		return
	}

	span.SetAttributes(observability.AttributeEventType(string(event.Type)))

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(ctx, &event)
	case "customer.subscription.deleted":
		err = h.handleSubscriptionDeleted(ctx, &event)
	default:
		h.logger.Debug(ctx, "Ignoring unhandled webhook event", map[string]interface{}{
			"event_type": string(event.Type),
		})
	}

	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return contextutils.WrapError(contextutils.ErrWebhookPayload, "failed to decode checkout session")
	}

	userID, err := webhookUserID(session.ClientReferenceID)
	if err != nil {
		return err
	}

	if err := h.userService.SetPremium(ctx, userID, true); err != nil {
		return contextutils.WrapError(err, "failed to activate premium")
	}

	h.logger.Info(ctx, "Premium activated from checkout", map[string]interface{}{
		"user_id": userID,
	})

	if user, userErr := h.userService.GetUserByID(ctx, userID); userErr == nil && user != nil {
		if sendErr := h.emailService.SendPremiumConfirmation(ctx, user); sendErr != nil {
			h.logger.Warn(ctx, "Failed to send premium confirmation", map[string]interface{}{
				"user_id": userID,
				"error":   sendErr.Error(),
			})
		}
	}
	return nil
}

func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return contextutils.WrapError(contextutils.ErrWebhookPayload, "failed to decode subscription")
	}

	userID, err := webhookUserID(subscription.Metadata["user_id"])
	if err != nil {
		return err
	}

	if err := h.userService.SetPremium(ctx, userID, false); err != nil {
		return contextutils.WrapError(err, "failed to deactivate premium")
	}

	h.logger.Info(ctx, "Premium deactivated after subscription end", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// webhookUserID parses the user reference carried inside a Stripe object
func webhookUserID(ref string) (int, error) {
	if ref == "" {
		return 0, contextutils.WrapError(contextutils.ErrWebhookPayload, "missing user reference")
	}
	userID, err := strconv.Atoi(ref)
	if err != nil || userID <= 0 {
		return 0, contextutils.WrapErrorf(contextutils.ErrWebhookPayload, "invalid user reference %q", ref)
	}
	return userID, nil
}
