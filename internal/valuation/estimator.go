// Package valuation infers a listing's fair market value from an external
// point estimate when one is plausible, otherwise from area market data.
package valuation

import (
	"math"

	"github.com/neildahan/realdeal/internal/market"
	"github.com/neildahan/realdeal/internal/models"
)

// Plausibility bounds for an external point estimate.
const (
	// MinExternalRatio and MaxExternalRatio bound estimate/price before an
	// external valuation is trusted.
	MinExternalRatio = 0.4
	MaxExternalRatio = 2.5
	// MaxPlausiblePpsf is the absurdity ceiling on the implied $/sqft of an
	// external estimate.
	MaxPlausiblePpsf = 2000
)

// Divergence gates between the $/sqft estimate and the raw-price median.
const (
	extremeHigh  = 3.0
	extremeLow   = 0.25
	moderateHigh = 1.5
	moderateLow  = 0.5

	// Blend weights applied in the moderate-divergence band, biased toward
	// the price median since thin $/sqft samples are the less stable signal.
	priceWeight = 0.7
	ppsfWeight  = 0.3
)

// Plausible screens an external point estimate against the listing price and
// floor area. A size-aware sanity gate: even an in-range ratio is rejected
// when the implied $/sqft is absurd.
func Plausible(estimate, price float64, sqft *float64) bool {
	if estimate <= 0 || price <= 0 {
		return false
	}
	ratio := estimate / price
	if ratio < MinExternalRatio || ratio > MaxExternalRatio {
		return false
	}
	if sqft != nil && *sqft > 0 && estimate / *sqft > MaxPlausiblePpsf {
		return false
	}
	return true
}

// Estimate returns the best market-value estimate for a listing along with
// the source that produced it. Returns (0, SourceNone) when no signal exists.
//
// Order: screened external point estimate, then a size-adjusted $/sqft
// estimate cross-checked against the raw-price median, then the price median
// alone. A price median alone misprices properties far from their zip's
// typical size, but an uncorroborated $/sqft figure is unstable on thin
// samples, hence the divergence-gated blend.
func Estimate(l *models.Listing, snap *market.Snapshot) (float64, models.ValuationSource) {
	if l.ExternalEstimate != nil && Plausible(*l.ExternalEstimate, l.Price, l.Sqft) {
		return *l.ExternalEstimate, models.SourceExternalPoint
	}

	priceMedian := snap.PriceMedian(l.Zip, l.PropertyType)

	if l.Sqft != nil && *l.Sqft > 0 {
		if ppsf := snap.PpsfMedian(l.Zip, l.PropertyType); ppsf > 0 {
			ppsfEstimate := ppsf * *l.Sqft
			return crossValidate(ppsfEstimate, priceMedian)
		}
	}

	if priceMedian > 0 {
		return priceMedian, models.SourcePriceMedian
	}
	return 0, models.SourceNone
}

// crossValidate gates the density estimate by its divergence from the
// raw-price median.
func crossValidate(ppsfEstimate, priceMedian float64) (float64, models.ValuationSource) {
	if priceMedian <= 0 {
		return ppsfEstimate, models.SourceAreaDensity
	}

	divergence := ppsfEstimate / priceMedian
	switch {
	case divergence > extremeHigh || divergence < extremeLow:
		// The $/sqft signal is unreliable for this size class.
		return priceMedian, models.SourcePriceMedian
	case divergence > moderateHigh || divergence < moderateLow:
		blended := math.Round(priceWeight*priceMedian + ppsfWeight*ppsfEstimate)
		return blended, models.SourceAreaDensity
	default:
		return ppsfEstimate, models.SourceAreaDensity
	}
}

// Apply runs Estimate and records the result on the listing. Listings without
// a usable price are left untouched.
func Apply(l *models.Listing, snap *market.Snapshot) {
	if l.Price <= 0 {
		return
	}
	value, source := Estimate(l, snap)
	if source == models.SourceNone || value <= 0 {
		return
	}
	l.SetEstimate(value, source)
}
