package enums

import "fmt"

// DeliveryType is the shipping option chosen for an order.
type DeliveryType string

const (
	DeliveryHome   DeliveryType = "home"
	DeliveryOffice DeliveryType = "office"
)

// DeliveryTypes lists the options in display order.
var DeliveryTypes = []DeliveryType{
	DeliveryHome,
	DeliveryOffice,
}

func (d DeliveryType) String() string {
	return string(d)
}

func (d DeliveryType) IsValid() bool {
	for _, candidate := range DeliveryTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryType converts raw input into a DeliveryType.
func ParseDeliveryType(value string) (DeliveryType, error) {
	for _, candidate := range DeliveryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery type %q", value)
}
