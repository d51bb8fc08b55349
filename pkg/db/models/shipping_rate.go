package models

import "time"

// ShippingRate overrides the built-in fee table for a single region.
// A nil fee means the delivery type is not offered there.
type ShippingRate struct {
	Region    string    `gorm:"column:region;primaryKey"`
	HomeFee   *int64    `gorm:"column:home_fee"`
	OfficeFee *int64    `gorm:"column:office_fee"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
