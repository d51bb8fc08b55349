// Package shipping maps a delivery region and type to a flat fee.
package shipping

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Rate is the fee schedule of one region. A nil fee means the delivery type
// is not offered there. Fees are whole DZD.
type Rate struct {
	Region    string `json:"region"`
	Number    int    `json:"number,omitempty"`
	HomeFee   *int64 `json:"home_fee,omitempty"`
	OfficeFee *int64 `json:"office_fee,omitempty"`
}

func (r Rate) fee(deliveryType enums.DeliveryType) *int64 {
	switch deliveryType {
	case enums.DeliveryHome:
		return r.HomeFee
	case enums.DeliveryOffice:
		return r.OfficeFee
	default:
		return nil
	}
}

// DeliveryTypes lists the offered types, home first.
func (r Rate) DeliveryTypes() []enums.DeliveryType {
	out := make([]enums.DeliveryType, 0, len(enums.DeliveryTypes))
	for _, dt := range enums.DeliveryTypes {
		if r.fee(dt) != nil {
			out = append(out, dt)
		}
	}
	return out
}

// RegionOption is a region as shown in the checkout selector.
type RegionOption struct {
	Rate
	DeliveryTypes []enums.DeliveryType `json:"delivery_types"`
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeRegion upper-cases, trims, strips accents and collapses separators,
// so "Béjaïa" and " bejaia " resolve to the same key.
func NormalizeRegion(region string) string {
	stripped, _, err := transform.String(accentStripper, region)
	if err != nil {
		stripped = region
	}
	stripped = strings.ReplaceAll(stripped, "-", " ")
	return strings.ToUpper(strings.Join(strings.Fields(stripped), " "))
}

// RateTable is an immutable region -> fee lookup.
type RateTable struct {
	byRegion map[string]Rate
	byNumber map[int]string
}

// NewRateTable indexes rates by normalized region and wilaya number. Later
// entries win on duplicates.
func NewRateTable(rates []Rate) *RateTable {
	t := &RateTable{
		byRegion: make(map[string]Rate, len(rates)),
		byNumber: make(map[int]string, len(rates)),
	}
	for _, r := range rates {
		r.Region = NormalizeRegion(r.Region)
		if r.Region == "" {
			continue
		}
		t.byRegion[r.Region] = r
		if r.Number > 0 {
			t.byNumber[r.Number] = r.Region
		}
	}
	return t
}

// Overlay returns a copy of t with the stored rows replacing matching regions.
// Stored rows for regions unknown to t are added.
func (t *RateTable) Overlay(rows []models.ShippingRate) *RateTable {
	merged := make(map[string]Rate, len(t.byRegion)+len(rows))
	for key, r := range t.byRegion {
		merged[key] = r
	}
	for _, row := range rows {
		key := NormalizeRegion(row.Region)
		merged[key] = Rate{
			Region:    key,
			Number:    merged[key].Number,
			HomeFee:   row.HomeFee,
			OfficeFee: row.OfficeFee,
		}
	}
	rates := make([]Rate, 0, len(merged))
	for _, r := range merged {
		rates = append(rates, r)
	}
	return NewRateTable(rates)
}

// Lookup resolves a region by name or by wilaya number.
func (t *RateTable) Lookup(region string) (Rate, bool) {
	key := NormalizeRegion(region)
	if r, ok := t.byRegion[key]; ok {
		return r, true
	}
	if n, err := strconv.Atoi(key); err == nil {
		if name, ok := t.byNumber[n]; ok {
			return t.byRegion[name], true
		}
	}
	return Rate{}, false
}

// AvailableDeliveryTypes returns the delivery types with a configured rate,
// home first. Unknown regions have none.
func (t *RateTable) AvailableDeliveryTypes(region string) []enums.DeliveryType {
	r, ok := t.Lookup(region)
	if !ok {
		return []enums.DeliveryType{}
	}
	return r.DeliveryTypes()
}

// Cost returns the fee for the pair. A type without a rate falls back to the
// home fee; an unknown region costs 0.
func (t *RateTable) Cost(region string, deliveryType enums.DeliveryType) int64 {
	r, ok := t.Lookup(region)
	if !ok {
		return 0
	}
	if fee := r.fee(deliveryType); fee != nil {
		return *fee
	}
	if r.HomeFee != nil {
		return *r.HomeFee
	}
	return 0
}

// ResolveDeliveryType keeps current when the region offers it and otherwise
// picks the first available type. It returns "" when nothing is offered.
func (t *RateTable) ResolveDeliveryType(region string, current enums.DeliveryType) enums.DeliveryType {
	available := t.AvailableDeliveryTypes(region)
	for _, dt := range available {
		if dt == current {
			return current
		}
	}
	if len(available) == 0 {
		return ""
	}
	return available[0]
}

// Regions lists every region ordered by wilaya number, then name.
func (t *RateTable) Regions() []RegionOption {
	out := make([]RegionOption, 0, len(t.byRegion))
	for _, r := range t.byRegion {
		out = append(out, RegionOption{Rate: r, DeliveryTypes: r.DeliveryTypes()})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Number == 0 || b.Number == 0 {
			if a.Number != b.Number {
				return a.Number != 0
			}
			return a.Region < b.Region
		}
		return a.Number < b.Number
	})
	return out
}

// Quote resolves the delivery type for region and prices it.
func (t *RateTable) Quote(region string, deliveryType enums.DeliveryType) Quote {
	rate, known := t.Lookup(region)
	if !known {
		return Quote{Region: NormalizeRegion(region), AvailableDeliveryTypes: []enums.DeliveryType{}}
	}
	resolved := t.ResolveDeliveryType(rate.Region, deliveryType)
	return Quote{
		Region:                 rate.Region,
		KnownRegion:            true,
		DeliveryType:           resolved,
		AvailableDeliveryTypes: rate.DeliveryTypes(),
		Fee:                    t.Cost(rate.Region, resolved),
	}
}
