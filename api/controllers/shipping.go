package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ShippingRegions lists every served region with its fees and delivery types.
func ShippingRegions(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		regions, err := svc.Regions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"regions": regions})
	}
}

// ShippingQuote prices delivery for the region query parameter. An unknown
// region answers known_region=false with a zero fee.
func ShippingQuote(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		region := validators.QueryString(r, "region", 64)
		if region == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "region required").
				WithDetails(map[string]string{"region": "is required"}))
			return
		}
		deliveryType := enums.DeliveryType(validators.QueryString(r, "delivery_type", 16))
		if deliveryType != "" && !deliveryType.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type").
				WithDetails(map[string]string{"delivery_type": "must be home or office"}))
			return
		}

		quote, err := svc.Quote(r.Context(), region, deliveryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type upsertRateRequest struct {
	HomeFee   *int64 `json:"home_fee" validate:"omitempty,min=0"`
	OfficeFee *int64 `json:"office_fee" validate:"omitempty,min=0"`
}

// AdminUpsertShippingRate overrides the fees of one region.
func AdminUpsertShippingRate(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		var payload upsertRateRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		option, err := svc.UpsertRate(r.Context(), shipping.UpsertRateInput{
			Region:    chi.URLParam(r, "region"),
			HomeFee:   payload.HomeFee,
			OfficeFee: payload.OfficeFee,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, option)
	}
}
