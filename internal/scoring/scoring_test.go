package scoring

import (
	"testing"

	"github.com/neildahan/realdeal/internal/models"
)

func fptr(f float64) *float64 { return &f }

func TestScoreRatioBands(t *testing.T) {
	cases := []struct {
		name  string
		price float64
		value float64
		want  int
	}{
		{"deep discount", 70000, 100000, 40},
		{"strong discount", 77000, 100000, 25},
		{"mild discount", 83000, 100000, 15},
		{"at 0.85 boundary", 85000, 100000, 0},
		{"full price", 100000, 100000, 0},
	}
	for _, c := range cases {
		l := &models.Listing{Price: c.price, EstimatedValue: fptr(c.value)}
		if got := Score(l); got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, got, c.want)
		}
	}
}

func TestScoreSkipsRatioWhenValueMissing(t *testing.T) {
	l := &models.Listing{Price: 50000, IsDelinquent: true}
	if got := Score(l); got != 30 {
		t.Errorf("missing value: got %d, want 30 (flags only)", got)
	}

	l = &models.Listing{Price: 0, EstimatedValue: fptr(100000), HasLien: true}
	if got := Score(l); got != 10 {
		t.Errorf("missing price: got %d, want 10 (flags only)", got)
	}
}

func TestScoreFlagPoints(t *testing.T) {
	l := &models.Listing{Price: 100000, EstimatedValue: fptr(100000)}

	l.IsDelinquent = true
	if got := Score(l); got != 30 {
		t.Errorf("delinquent: got %d, want 30", got)
	}

	l.HasLien = true
	if got := Score(l); got != 40 {
		t.Errorf("delinquent+lien: got %d, want 40", got)
	}

	l.IsAsIs = true
	if got := Score(l); got != 50 {
		t.Errorf("delinquent+lien+as-is: got %d, want 50", got)
	}

	l.DaysOnMarket = 61
	if got := Score(l); got != 60 {
		t.Errorf("all flags: got %d, want 60", got)
	}

	l.DaysOnMarket = 60
	if got := Score(l); got != 50 {
		t.Errorf("DOM exactly 60 must not score: got %d, want 50", got)
	}
}

func TestScoreSaturatesAtExactly100(t *testing.T) {
	// 40 + 30 + 10 + 10 + 10 = 100 before clamping; must come out exactly 100.
	l := &models.Listing{
		Price:          50000,
		EstimatedValue: fptr(100000),
		IsDelinquent:   true,
		HasLien:        true,
		IsAsIs:         true,
		DaysOnMarket:   90,
	}
	if got := Score(l); got != 100 {
		t.Errorf("saturated score: got %d, want exactly 100", got)
	}
}

func TestScoreMonotonicInDiscount(t *testing.T) {
	prev := -1
	// Walking price downward with flags fixed must never decrease the score.
	for price := 100000.0; price >= 10000; price -= 5000 {
		l := &models.Listing{Price: price, EstimatedValue: fptr(100000)}
		got := Score(l)
		if got < prev {
			t.Fatalf("score decreased from %d to %d at price %v", prev, got, price)
		}
		prev = got
	}
}

func TestScoreIdempotent(t *testing.T) {
	l := &models.Listing{Price: 70000, EstimatedValue: fptr(100000), HasLien: true}
	first := Score(l)
	Rescore(l)
	Rescore(l)
	if l.DealScore != first {
		t.Errorf("rescoring changed the result: got %d, want %d", l.DealScore, first)
	}
}

func TestWorthSavingRequiresScoreAbove50(t *testing.T) {
	l := &models.Listing{
		Price:           60000,
		EstimatedValue:  fptr(100000),
		ValuationSource: models.SourceVerifiedExternal,
		DealScore:       50,
	}
	if WorthSaving(l) {
		t.Error("score of exactly 50 must not be saved")
	}
	l.DealScore = 51
	if !WorthSaving(l) {
		t.Error("verified source with score 51 must be saved")
	}
}

func TestWorthSavingUnverifiedRatioGuard(t *testing.T) {
	// Ratio 0.3 on an unverified estimate: too good to trust.
	l := &models.Listing{
		Price:           60000,
		EstimatedValue:  fptr(200000),
		ValuationSource: models.SourcePriceMedian,
		DealScore:       80,
	}
	if WorthSaving(l) {
		t.Error("unverified estimate with ratio < 0.4 must not be saved")
	}

	// The same listing with a verified source is trusted.
	l.ValuationSource = models.SourceVerifiedExternal
	if !WorthSaving(l) {
		t.Error("verified estimate must be saved regardless of ratio")
	}
}

func TestWorthSavingUnverifiedWithSaneRatio(t *testing.T) {
	l := &models.Listing{
		Price:           80000,
		EstimatedValue:  fptr(160000),
		ValuationSource: models.SourceAreaDensity,
		DealScore:       60,
	}
	if !WorthSaving(l) {
		t.Error("unverified estimate with ratio 0.5 and score 60 must be saved")
	}
}
