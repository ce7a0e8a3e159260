package models

import "fmt"

// DistressFilter selects which distress signal a search is after. Delinquent
// and lien are the two that require the distress enrichment tier to run; the
// other two match flags the listing source already delivers.
type DistressFilter string

const (
	DistressNone           DistressFilter = "none"
	DistressDelinquent     DistressFilter = "delinquent"
	DistressLien           DistressFilter = "lien"
	DistressAsIs           DistressFilter = "as_is"
	DistressPreForeclosure DistressFilter = "pre_foreclosure"
)

// RequiresEnrichment reports whether the filter needs externally-verified
// distress data that only the distress tier can populate.
func (d DistressFilter) RequiresEnrichment() bool {
	return d == DistressDelinquent || d == DistressLien
}

// SearchFilters is the filter vocabulary accepted by a deal search.
type SearchFilters struct {
	PropertyType PropertyType   `json:"property_type,omitempty"`
	Distress     DistressFilter `json:"distress,omitempty"`
	MinScore     int            `json:"min_score,omitempty"`    // 0-100
	MinDiscount  float64        `json:"min_discount,omitempty"` // percent, 0-50
}

// Key returns a canonical serialization used for cache keying.
func (f SearchFilters) Key() string {
	d := f.Distress
	if d == "" {
		d = DistressNone
	}
	return fmt.Sprintf("t=%s|d=%s|s=%d|disc=%.1f", f.PropertyType, d, f.MinScore, f.MinDiscount)
}

// Matches reports whether a scored listing satisfies the filter set.
func (f SearchFilters) Matches(l *Listing) bool {
	if f.PropertyType != "" && f.PropertyType != PropertyTypeUnknown && l.PropertyType != f.PropertyType {
		return false
	}
	switch f.Distress {
	case DistressDelinquent:
		if !l.IsDelinquent {
			return false
		}
	case DistressLien:
		if !l.HasLien {
			return false
		}
	case DistressAsIs:
		if !l.IsAsIs {
			return false
		}
	case DistressPreForeclosure:
		if !l.IsPreForeclosure {
			return false
		}
	}
	if f.MinScore > 0 && l.DealScore < f.MinScore {
		return false
	}
	if f.MinDiscount > 0 && l.DiscountPercent() < f.MinDiscount {
		return false
	}
	return true
}

// Bounds is a geographic bounding region. Listings at (0,0) are treated as
// outside every region.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Key returns a canonical serialization used for cache keying.
func (b *Bounds) Key() string {
	if b == nil {
		return "nobounds"
	}
	return fmt.Sprintf("b=%.4f,%.4f,%.4f,%.4f", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
}

// Contains reports whether the listing's coordinates fall inside the region.
func (b *Bounds) Contains(l *Listing) bool {
	if b == nil {
		return true
	}
	if !l.HasLocation() {
		return false
	}
	return l.Latitude >= b.MinLat && l.Latitude <= b.MaxLat &&
		l.Longitude >= b.MinLng && l.Longitude <= b.MaxLng
}

// GeoPoint is the search origin echoed back to the caller.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
