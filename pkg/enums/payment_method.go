package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is how the buyer says they will settle. Nothing is captured
// online; card methods are settled at the carrier's terminal.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodEdahabia       PaymentMethod = "edahabia"
)

// DefaultPaymentMethod applies when checkout omits the method.
const DefaultPaymentMethod = PaymentMethodCashOnDelivery

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCashOnDelivery, PaymentMethodCard, PaymentMethodEdahabia:
		return true
	}
	return false
}

// CollectsCash reports whether the courier collects the total in cash.
func (p PaymentMethod) CollectsCash() bool {
	return p == PaymentMethodCashOnDelivery
}

// ParsePaymentMethod is case-insensitive and accepts "cod" as shorthand.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "cod" {
		return PaymentMethodCashOnDelivery, nil
	}
	if method := PaymentMethod(normalized); method.IsValid() {
		return method, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
