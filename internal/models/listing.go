package models

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"
)

// PropertyType categorizes a listing. Unknown is allowed and participates only
// in zip-level (not zip+type) market statistics.
type PropertyType string

const (
	PropertyTypeSingleFamily PropertyType = "single_family"
	PropertyTypeCondo        PropertyType = "condo"
	PropertyTypeTownhouse    PropertyType = "townhouse"
	PropertyTypeMultiFamily  PropertyType = "multi_family"
	PropertyTypeLand         PropertyType = "land"
	PropertyTypeUnknown      PropertyType = "unknown"
)

// ValuationSource tags where EstimatedValue came from.
type ValuationSource string

const (
	SourceNone             ValuationSource = ""
	SourceExternalPoint    ValuationSource = "external_point"
	SourceAreaDensity      ValuationSource = "area_density"
	SourcePriceMedian      ValuationSource = "raw_price_median"
	SourceVerifiedExternal ValuationSource = "verified_external"
	SourceBlendedVerified  ValuationSource = "blended_verified"
)

// Verified reports whether the source is an external valuation rather than a
// purely statistical one.
func (s ValuationSource) Verified() bool {
	switch s {
	case SourceExternalPoint, SourceVerifiedExternal, SourceBlendedVerified:
		return true
	}
	return false
}

// Confidence derives the valuation confidence band from the source.
func (s ValuationSource) Confidence() ValuationConfidence {
	switch s {
	case SourceVerifiedExternal, SourceBlendedVerified, SourceExternalPoint:
		return ConfidenceHigh
	case SourceAreaDensity:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ValuationConfidence is derived from the valuation source.
type ValuationConfidence string

const (
	ConfidenceHigh   ValuationConfidence = "high"
	ConfidenceMedium ValuationConfidence = "medium"
	ConfidenceLow    ValuationConfidence = "low"
)

// DealStatus is a saved deal's lifecycle status (logical deletion).
type DealStatus string

const (
	DealStatusActive DealStatus = "active"
	DealStatusStale  DealStatus = "stale"
)

// Listing is the mutable working unit flowing through the pipeline and, when it
// passes the persistence gate, the saved deal record. Optional fields are
// pointers; an exact (0,0) coordinate pair means the location is unknown.
type Listing struct {
	ID     string `gorm:"type:varchar(32);primaryKey" json:"id"`
	Street string `gorm:"type:varchar(255);not null;uniqueIndex:idx_street_zip" json:"street"`
	City   string `gorm:"type:varchar(100)" json:"city,omitempty"`
	State  string `gorm:"type:varchar(10)" json:"state,omitempty"`
	Zip    string `gorm:"type:varchar(10);not null;uniqueIndex:idx_street_zip;index" json:"zip"`

	PropertyType PropertyType `gorm:"type:varchar(20);index" json:"property_type"`

	Price float64  `gorm:"type:decimal(12,2);index" json:"price"`
	Sqft  *float64 `gorm:"type:decimal(10,2)" json:"sqft,omitempty"`
	Beds  *int     `gorm:"type:int" json:"beds,omitempty"`
	Baths *float64 `gorm:"type:decimal(4,1)" json:"baths,omitempty"`

	Latitude  float64 `gorm:"type:decimal(10,6)" json:"latitude"`
	Longitude float64 `gorm:"type:decimal(10,6)" json:"longitude"`

	DaysOnMarket int `gorm:"type:int" json:"days_on_market"`

	EstimatedValue   *float64            `gorm:"type:decimal(12,2)" json:"estimated_value,omitempty"`
	ExternalEstimate *float64            `gorm:"type:decimal(12,2)" json:"external_estimate,omitempty"`
	ValuationSource  ValuationSource     `gorm:"type:varchar(20)" json:"valuation_source,omitempty"`
	Confidence       ValuationConfidence `gorm:"type:varchar(10)" json:"valuation_confidence,omitempty"`

	IsDelinquent     bool     `gorm:"type:boolean;default:false" json:"is_delinquent"`
	HasLien          bool     `gorm:"type:boolean;default:false" json:"has_lien"`
	IsAsIs           bool     `gorm:"type:boolean;default:false" json:"is_as_is"`
	IsPreForeclosure bool     `gorm:"type:boolean;default:false" json:"is_pre_foreclosure"`
	EquityPercent    *float64 `gorm:"type:decimal(5,2)" json:"equity_percent,omitempty"`
	PriceDropPercent *float64 `gorm:"type:decimal(5,2)" json:"price_drop_percent,omitempty"`

	DealScore  int        `gorm:"type:int;index:idx_deal_score,sort:desc" json:"deal_score"`
	Enriched   bool       `gorm:"type:boolean;default:false" json:"enriched"`
	EnrichedAt *time.Time `gorm:"type:datetime" json:"enriched_at,omitempty"`

	Status DealStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	FetchedAt time.Time `gorm:"type:datetime;not null" json:"fetched_at"`
	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name explicitly
func (Listing) TableName() string {
	return "deals"
}

// HasLocation reports whether the listing carries usable coordinates.
func (l *Listing) HasLocation() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// Address returns the full display address.
func (l *Listing) Address() string {
	parts := []string{l.Street}
	if l.City != "" {
		parts = append(parts, l.City)
	}
	if l.State != "" {
		parts = append(parts, l.State)
	}
	if l.Zip != "" {
		parts = append(parts, l.Zip)
	}
	return strings.Join(parts, ", ")
}

// StreetKey normalizes the street line for matching batched lookup results.
func (l *Listing) StreetKey() string {
	return strings.ToUpper(strings.Join(strings.Fields(l.Street), " "))
}

// NaturalKey identifies a listing across runs: normalized street + zip.
func (l *Listing) NaturalKey() string {
	return l.StreetKey() + "|" + l.Zip
}

// EnsureID fills ID from the natural key when unset.
func (l *Listing) EnsureID() {
	if l.ID == "" {
		hash := md5.Sum([]byte(l.NaturalKey()))
		l.ID = fmt.Sprintf("%x", hash)
	}
}

// PriceToValue returns price / estimated value. ok is false when either side
// is missing or non-positive.
func (l *Listing) PriceToValue() (ratio float64, ok bool) {
	if l.Price <= 0 || l.EstimatedValue == nil || *l.EstimatedValue <= 0 {
		return 0, false
	}
	return l.Price / *l.EstimatedValue, true
}

// DiscountPercent returns the estimated discount off market value in percent,
// 0 when the ratio is unavailable or the listing is at/above its estimate.
func (l *Listing) DiscountPercent() float64 {
	r, ok := l.PriceToValue()
	if !ok || r >= 1 {
		return 0
	}
	return (1 - r) * 100
}

// SetEstimate records a valuation and its derived confidence.
func (l *Listing) SetEstimate(value float64, source ValuationSource) {
	l.EstimatedValue = &value
	l.ValuationSource = source
	l.Confidence = source.Confidence()
}

// MarkEnriched stamps the listing after an enrichment tier touched it.
func (l *Listing) MarkEnriched() {
	l.Enriched = true
	now := time.Now()
	l.EnrichedAt = &now
}

// NormalizeType maps free-text property categories onto the enum.
func NormalizeType(raw string) PropertyType {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, " ", "_"))) {
	case "single_family", "sfr", "house", "single_family_residence":
		return PropertyTypeSingleFamily
	case "condo", "condominium", "apartment":
		return PropertyTypeCondo
	case "townhouse", "townhome":
		return PropertyTypeTownhouse
	case "multi_family", "duplex", "triplex", "fourplex":
		return PropertyTypeMultiFamily
	case "land", "lot", "vacant_land":
		return PropertyTypeLand
	default:
		return PropertyTypeUnknown
	}
}
