package cart

import "github.com/google/uuid"

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1,max=999"`
	Size      *string   `json:"size,omitempty" validate:"omitempty,max=32"`
	Color     *string   `json:"color,omitempty" validate:"omitempty,max=32"`
}

// quantity 0 removes the line.
type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=999"`
}

type applyPromoRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
