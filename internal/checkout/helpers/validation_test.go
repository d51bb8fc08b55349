package helpers

import (
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestValidateAddressNormalizes(t *testing.T) {
	addr, err := ValidateAddress(AddressInput{
		Name:    " Lina ",
		Phone:   "+213 555 12 34 56",
		Address: "12 rue Didouche Mourad",
		City:    "Alger Centre",
		Region:  "Alger",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Name != "Lina" || addr.Phone != "0555123456" {
		t.Fatalf("unexpected address %+v", addr)
	}
}

func TestValidateAddressReportsAllFields(t *testing.T) {
	_, err := ValidateAddress(AddressInput{Phone: "123"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %#v", pkgerrors.As(err).Details())
	}
	for _, field := range []string{"name", "phone", "address", "city", "region"} {
		if _, ok := details[field]; !ok {
			t.Errorf("expected %s in details %v", field, details)
		}
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if m, err := ParsePaymentMethod(""); err != nil || m != enums.PaymentMethodCashOnDelivery {
		t.Fatalf("expected cash on delivery default, got %q %v", m, err)
	}
	if m, err := ParsePaymentMethod("card"); err != nil || m != enums.PaymentMethodCard {
		t.Fatalf("expected card, got %q %v", m, err)
	}
	if m, err := ParsePaymentMethod(" COD "); err != nil || m != enums.PaymentMethodCashOnDelivery {
		t.Fatalf("expected cod shorthand to parse, got %q %v", m, err)
	}
	if _, err := ParsePaymentMethod("bitcoin"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
