package helpers

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// AddressInput is the raw delivery form submitted at checkout.
type AddressInput struct {
	Name    string
	Phone   string
	Address string
	City    string
	Region  string
}

// ValidateAddress trims every field, normalizes the phone number and reports
// all failing fields at once in the error details.
func ValidateAddress(in AddressInput) (types.ShippingAddress, error) {
	out := types.ShippingAddress{
		Name:    strings.TrimSpace(in.Name),
		Address: strings.TrimSpace(in.Address),
		City:    strings.TrimSpace(in.City),
		Region:  strings.TrimSpace(in.Region),
	}
	problems := map[string]string{}
	required := map[string]string{
		"name":    out.Name,
		"address": out.Address,
		"city":    out.City,
		"region":  out.Region,
	}
	for field, value := range required {
		if value == "" {
			problems[field] = "is required"
		}
	}

	if strings.TrimSpace(in.Phone) == "" {
		problems["phone"] = "is required"
	} else if phone, ok := types.NormalizePhone(in.Phone); ok {
		out.Phone = phone
	} else {
		problems["phone"] = "must contain exactly 10 digits"
	}

	if len(problems) > 0 {
		return types.ShippingAddress{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping details").WithDetails(problems)
	}
	return out, nil
}

// ParsePaymentMethod defaults to cash on delivery when value is blank.
func ParsePaymentMethod(value string) (enums.PaymentMethod, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return enums.DefaultPaymentMethod, nil
	}
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]string{"payment_method": "is not supported"})
	}
	return method, nil
}
