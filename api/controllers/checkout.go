package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type checkoutRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Phone         string `json:"phone" validate:"required,max=32"`
	Address       string `json:"address" validate:"required,max=255"`
	City          string `json:"city" validate:"required,max=120"`
	Region        string `json:"region" validate:"required,max=64"`
	DeliveryType  string `json:"delivery_type,omitempty" validate:"omitempty,oneof=home office"`
	PaymentMethod string `json:"payment_method,omitempty" validate:"omitempty,max=32"`
}

// Checkout places an order from the session cart. A replayed idempotency key
// answers 200 with the order created by the first attempt.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(r.Context(), checkoutsvc.PlaceOrderInput{
			SessionID:      middleware.CartSessionFromContext(r.Context()),
			IdempotencyKey: strings.TrimSpace(r.Header.Get(middleware.IdempotencyKeyHeader)),
			BuyerID:        middleware.UserIDFromContext(r.Context()),
			Name:           payload.Name,
			Phone:          payload.Phone,
			Address:        payload.Address,
			City:           payload.City,
			Region:         payload.Region,
			DeliveryType:   payload.DeliveryType,
			PaymentMethod:  payload.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result.Order)
	}
}
