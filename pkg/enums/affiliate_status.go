package enums

import "fmt"

// AffiliateStatus gates whether a promo code may be redeemed.
type AffiliateStatus string

const (
	AffiliateStatusActive    AffiliateStatus = "active"
	AffiliateStatusSuspended AffiliateStatus = "suspended"
)

var validAffiliateStatuses = []AffiliateStatus{
	AffiliateStatusActive,
	AffiliateStatusSuspended,
}

func (s AffiliateStatus) String() string {
	return string(s)
}

func (s AffiliateStatus) IsValid() bool {
	for _, candidate := range validAffiliateStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseAffiliateStatus(value string) (AffiliateStatus, error) {
	for _, candidate := range validAffiliateStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid affiliate status %q", value)
}
