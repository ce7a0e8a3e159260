// Package market aggregates the current working set of listings into the
// per-zip medians the value estimator reads.
package market

import (
	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/stats"
)

// minDensitySamples is the minimum bucket size before a $/sqft median is
// trusted. Raw-price medians have no such floor: they are the fallback chain's
// last step before the area-wide scalars.
const minDensitySamples = 3

// Snapshot holds trimmed-median market data at three granularities: zip+type,
// zip, and area-wide. Built fresh per pipeline run and discarded after it.
type Snapshot struct {
	PpsfByZipType  map[string]float64
	PpsfByZip      map[string]float64
	PriceByZipType map[string]float64
	PriceByZip     map[string]float64
	AreaPpsf       float64
	AreaPrice      float64
}

// ZipTypeKey builds the fine-granularity bucket key.
func ZipTypeKey(zip string, t models.PropertyType) string {
	return zip + ":" + string(t)
}

// Build computes a market snapshot from the working set. Only listings with a
// positive price contribute; $/sqft buckets additionally require a known
// positive floor area.
func Build(listings []*models.Listing) *Snapshot {
	ppsfByZipType := make(map[string][]float64)
	ppsfByZip := make(map[string][]float64)
	priceByZipType := make(map[string][]float64)
	priceByZip := make(map[string][]float64)
	var allPpsf, allPrices []float64

	for _, l := range listings {
		if l.Price <= 0 || l.Zip == "" {
			continue
		}

		zipKey := l.Zip
		typeKey := ZipTypeKey(l.Zip, l.PropertyType)

		priceByZip[zipKey] = append(priceByZip[zipKey], l.Price)
		priceByZipType[typeKey] = append(priceByZipType[typeKey], l.Price)
		allPrices = append(allPrices, l.Price)

		if l.Sqft != nil && *l.Sqft > 0 {
			ppsf := l.Price / *l.Sqft
			ppsfByZip[zipKey] = append(ppsfByZip[zipKey], ppsf)
			ppsfByZipType[typeKey] = append(ppsfByZipType[typeKey], ppsf)
			allPpsf = append(allPpsf, ppsf)
		}
	}

	snap := &Snapshot{
		PpsfByZipType:  make(map[string]float64),
		PpsfByZip:      make(map[string]float64),
		PriceByZipType: make(map[string]float64),
		PriceByZip:     make(map[string]float64),
		AreaPpsf:       stats.TrimmedMedian(allPpsf),
		AreaPrice:      stats.TrimmedMedian(allPrices),
	}

	for key, samples := range ppsfByZipType {
		if len(samples) >= minDensitySamples {
			snap.PpsfByZipType[key] = stats.TrimmedMedian(samples)
		}
	}
	for key, samples := range ppsfByZip {
		if len(samples) >= minDensitySamples {
			snap.PpsfByZip[key] = stats.TrimmedMedian(samples)
		}
	}
	for key, samples := range priceByZipType {
		snap.PriceByZipType[key] = stats.TrimmedMedian(samples)
	}
	for key, samples := range priceByZip {
		snap.PriceByZip[key] = stats.TrimmedMedian(samples)
	}

	return snap
}

// PriceMedian resolves the raw-price median for a listing: zip+type first,
// then zip, then the area-wide scalar. Returns 0 when no price data exists.
func (s *Snapshot) PriceMedian(zip string, t models.PropertyType) float64 {
	if m, ok := s.PriceByZipType[ZipTypeKey(zip, t)]; ok && m > 0 {
		return m
	}
	if m, ok := s.PriceByZip[zip]; ok && m > 0 {
		return m
	}
	return s.AreaPrice
}

// PpsfMedian resolves the $/sqft median with the same fallback chain.
func (s *Snapshot) PpsfMedian(zip string, t models.PropertyType) float64 {
	if m, ok := s.PpsfByZipType[ZipTypeKey(zip, t)]; ok && m > 0 {
		return m
	}
	if m, ok := s.PpsfByZip[zip]; ok && m > 0 {
		return m
	}
	return s.AreaPpsf
}
