// Package providers defines the external data capabilities the pipeline
// consumes and supplies both live JSON clients and deterministic offline
// fallbacks for each one.
package providers

import (
	"context"

	"github.com/neildahan/realdeal/internal/models"
)

// Address identifies a property for per-listing lookups.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// AddressOf builds a lookup address from a listing.
func AddressOf(l *models.Listing) Address {
	return Address{Street: l.Street, City: l.City, State: l.State, Zip: l.Zip}
}

// Key returns the normalized street key used to match batched results.
func (a Address) Key() string {
	l := models.Listing{Street: a.Street, Zip: a.Zip}
	return l.StreetKey()
}

// String renders the full address line.
func (a Address) String() string {
	l := models.Listing{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip}
	return l.Address()
}

// SearchPage is one page of listing-source results.
type SearchPage struct {
	Listings []*models.Listing `json:"listings"`
	HasMore  bool              `json:"has_more"`
}

// ListingSource returns raw listings near a coordinate, one page at a time.
// Pages start at 1.
type ListingSource interface {
	SearchNear(ctx context.Context, lat, lng, radiusMiles float64, page int) (*SearchPage, error)
}

// DistressResult is a per-property delinquency/foreclosure report.
type DistressResult struct {
	IsDelinquent     bool     `json:"is_delinquent"`
	IsPreForeclosure bool     `json:"is_pre_foreclosure"`
	EquityPercent    *float64 `json:"equity_percent,omitempty"`
	MarketValue      *float64 `json:"market_value,omitempty"`
	DaysOnMarket     int      `json:"days_on_market"`
}

// DistressSource looks up mortgage delinquency and pre-foreclosure status.
// No batch endpoint is assumed available.
type DistressSource interface {
	Lookup(ctx context.Context, addr Address) (*DistressResult, error)
}

// LienResult is one entry of a batched lien report.
type LienResult struct {
	HasLien          bool     `json:"has_lien"`
	PriceDropPercent *float64 `json:"price_drop_percent,omitempty"`
}

// LienSource answers one batched lookup covering many addresses, keyed by the
// normalized street key. Addresses absent from the map have no lien data.
type LienSource interface {
	LookupBatch(ctx context.Context, addrs []Address) (map[string]LienResult, error)
}

// Comparable is a nearby recent sale supporting an AVM value.
type Comparable struct {
	Street    string  `json:"street"`
	SalePrice float64 `json:"sale_price"`
	Sqft      float64 `json:"sqft,omitempty"`
	Distance  float64 `json:"distance_miles,omitempty"`
}

// AVMResult is an automated-valuation-model report.
type AVMResult struct {
	Value       float64      `json:"value"`
	RangeLow    float64      `json:"range_low"`
	RangeHigh   float64      `json:"range_high"`
	Comparables []Comparable `json:"comparables,omitempty"`
}

// AVMSource looks up a full AVM valuation. Returns (nil, nil) when the model
// has no opinion for the address.
type AVMSource interface {
	Lookup(ctx context.Context, addr Address) (*AVMResult, error)
}

// PointEstimateResult is a lightweight third-party point valuation.
type PointEstimateResult struct {
	PointEstimate float64 `json:"point_estimate"`
	RentEstimate  float64 `json:"rent_estimate,omitempty"`
}

// PointEstimateSource looks up a single point estimate. Returns (nil, nil)
// when the source has no value for the address.
type PointEstimateSource interface {
	Lookup(ctx context.Context, addr Address) (*PointEstimateResult, error)
}

// Bundle groups the capabilities the orchestrator and coordinator consume.
type Bundle struct {
	Listings      ListingSource
	Distress      DistressSource
	Liens         LienSource
	AVM           AVMSource
	PointEstimate PointEstimateSource
}
