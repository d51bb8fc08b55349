package affiliates

import "github.com/angelmondragon/storefront-backend/pkg/db/models"

// Tier is one step of the affiliate rank ladder.
type Tier struct {
	Level             int    `json:"level"`
	Title             string `json:"title"`
	MinSales          int    `json:"min_sales"`
	CommissionPercent int64  `json:"commission_percent"`
}

var tiers = []Tier{
	{Level: 1, Title: "Starter", MinSales: 0, CommissionPercent: 6},
	{Level: 2, Title: "Bronze", MinSales: 25, CommissionPercent: 8},
	{Level: 3, Title: "Silver", MinSales: 45, CommissionPercent: 10},
	{Level: 4, Title: "Gold", MinSales: 85, CommissionPercent: 12},
	{Level: 5, Title: "Elite", MinSales: 120, CommissionPercent: 12},
}

// Tiers returns the ladder ordered by level.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierFor returns the highest tier whose threshold is met. Negative sales
// land on the first tier.
func TierFor(sales int) Tier {
	current := tiers[0]
	for _, t := range tiers[1:] {
		if sales >= t.MinSales {
			current = t
		}
	}
	return current
}

// TierByLevel looks a tier up by its level.
func TierByLevel(level int) (Tier, bool) {
	if level < 1 || level > len(tiers) {
		return Tier{}, false
	}
	return tiers[level-1], true
}

// NextTier returns the tier after level, or false at the top.
func NextTier(level int) (Tier, bool) {
	return TierByLevel(level + 1)
}

// SalesNeeded is the number of sales left to reach the next tier; 0 at the top.
func SalesNeeded(sales int) int {
	next, ok := NextTier(TierFor(sales).Level)
	if !ok {
		return 0
	}
	if remaining := next.MinSales - sales; remaining > 0 {
		return remaining
	}
	return 0
}

// Progress is the rank snapshot shown on the affiliate dashboard.
type Progress struct {
	AffiliateID         string `json:"affiliate_id"`
	PromoCode           string `json:"promo_code"`
	CumulativeSales     int    `json:"cumulative_sales"`
	Current             Tier   `json:"current"`
	Next                *Tier  `json:"next,omitempty"`
	SalesNeeded         int    `json:"sales_needed"`
	TotalCommission     int64  `json:"total_commission"`
	AvailableCommission int64  `json:"available_commission"`
}

// ProgressFor derives the dashboard snapshot from a stored affiliate.
func ProgressFor(a models.Affiliate) Progress {
	current := TierFor(a.CumulativeSales)
	p := Progress{
		AffiliateID:         a.ID.String(),
		PromoCode:           a.PromoCode,
		CumulativeSales:     a.CumulativeSales,
		Current:             current,
		SalesNeeded:         SalesNeeded(a.CumulativeSales),
		TotalCommission:     a.TotalCommission,
		AvailableCommission: a.AvailableCommission,
	}
	if next, ok := NextTier(current.Level); ok {
		p.Next = &next
	}
	return p
}
