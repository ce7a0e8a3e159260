// Package scoring computes the 0-100 deal score and decides which scored
// listings are worth persisting.
package scoring

import "github.com/neildahan/realdeal/internal/models"

// Score point values. The function is additive and idempotent: every
// enrichment tier re-runs it after mutating valuation or distress fields.
const (
	deepDiscountPoints   = 40 // price/value < 0.75
	strongDiscountPoints = 25 // 0.75 <= ratio < 0.80
	mildDiscountPoints   = 15 // 0.80 <= ratio < 0.85
	delinquentPoints     = 30
	staleListingPoints   = 10 // days on market > 60
	lienPoints           = 10
	asIsPoints           = 10

	staleDOMThreshold = 60
	maxScore          = 100
)

// Persistence gate thresholds.
const (
	minSaveScore = 50
	// minSaveRatio guards unverified estimates: an apparent >60% discount
	// built on a statistical guess is more likely a bad estimate than a
	// real deal.
	minSaveRatio = 0.4
)

// Score maps (price, estimated value, distress flags, days on market) to a
// deal score in [0,100].
func Score(l *models.Listing) int {
	score := 0

	if ratio, ok := l.PriceToValue(); ok {
		switch {
		case ratio < 0.75:
			score += deepDiscountPoints
		case ratio < 0.80:
			score += strongDiscountPoints
		case ratio < 0.85:
			score += mildDiscountPoints
		}
	}

	if l.IsDelinquent {
		score += delinquentPoints
	}
	if l.DaysOnMarket > staleDOMThreshold {
		score += staleListingPoints
	}
	if l.HasLien {
		score += lienPoints
	}
	if l.IsAsIs {
		score += asIsPoints
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// Rescore recomputes and stores the deal score.
func Rescore(l *models.Listing) {
	l.DealScore = Score(l)
}

// WorthSaving is the persistence gate: score above 50, and for listings whose
// valuation is still only a statistical estimate, a price/value ratio of at
// least 0.4.
func WorthSaving(l *models.Listing) bool {
	if l.DealScore <= minSaveScore {
		return false
	}
	if l.ValuationSource.Verified() {
		return true
	}
	ratio, ok := l.PriceToValue()
	return ok && ratio >= minSaveRatio
}
