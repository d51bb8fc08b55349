package orders

import (
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestFromModelCashToCollect(t *testing.T) {
	cases := []struct {
		method enums.PaymentMethod
		want   int64
	}{
		{enums.PaymentMethodCashOnDelivery, 5400},
		{enums.PaymentMethodEdahabia, 0},
		{enums.PaymentMethodCard, 0},
	}
	for _, tc := range cases {
		dto := FromModel(models.Order{TotalAmount: 5400, PaymentMethod: tc.method})
		if dto.CashToCollect != tc.want {
			t.Fatalf("%s: expected %d to collect, got %d", tc.method, tc.want, dto.CashToCollect)
		}
	}
}
