package market

import (
	"testing"

	"github.com/neildahan/realdeal/internal/models"
)

func fptr(f float64) *float64 { return &f }

func listing(zip string, t models.PropertyType, price float64, sqft *float64) *models.Listing {
	return &models.Listing{Zip: zip, PropertyType: t, Price: price, Sqft: sqft}
}

func TestBuildSkipsUnpricedListings(t *testing.T) {
	snap := Build([]*models.Listing{
		listing("30310", models.PropertyTypeSingleFamily, 0, fptr(1000)),
		listing("30310", models.PropertyTypeSingleFamily, -5, nil),
	})
	if len(snap.PriceByZip) != 0 {
		t.Errorf("expected no price buckets, got %v", snap.PriceByZip)
	}
	if snap.AreaPrice != 0 {
		t.Errorf("AreaPrice: got %v, want 0", snap.AreaPrice)
	}
}

func TestBuildDensityRequiresThreeSamples(t *testing.T) {
	snap := Build([]*models.Listing{
		listing("30310", models.PropertyTypeSingleFamily, 200000, fptr(1000)),
		listing("30310", models.PropertyTypeSingleFamily, 220000, fptr(1100)),
	})

	// Two $/sqft samples: below the minimum, no density median emitted.
	if _, ok := snap.PpsfByZip["30310"]; ok {
		t.Error("PpsfByZip emitted with only 2 samples")
	}
	// Price medians have no sample floor.
	if _, ok := snap.PriceByZip["30310"]; !ok {
		t.Error("PriceByZip missing; price medians must always be emitted")
	}
}

func TestBuildDensityEmittedAtThreeSamples(t *testing.T) {
	snap := Build([]*models.Listing{
		listing("30310", models.PropertyTypeSingleFamily, 200000, fptr(1000)),
		listing("30310", models.PropertyTypeSingleFamily, 210000, fptr(1000)),
		listing("30310", models.PropertyTypeSingleFamily, 220000, fptr(1000)),
	})

	if got, ok := snap.PpsfByZip["30310"]; !ok || got != 210 {
		t.Errorf("PpsfByZip[30310]: got %v (ok=%v), want 210", got, ok)
	}
	key := ZipTypeKey("30310", models.PropertyTypeSingleFamily)
	if got, ok := snap.PpsfByZipType[key]; !ok || got != 210 {
		t.Errorf("PpsfByZipType[%s]: got %v (ok=%v), want 210", key, got, ok)
	}
}

func TestBuildAreaWideScalars(t *testing.T) {
	snap := Build([]*models.Listing{
		listing("30310", models.PropertyTypeSingleFamily, 100000, fptr(1000)),
		listing("30311", models.PropertyTypeCondo, 200000, fptr(1000)),
		listing("30312", models.PropertyTypeSingleFamily, 300000, nil),
	})

	if snap.AreaPrice != 200000 {
		t.Errorf("AreaPrice: got %v, want 200000", snap.AreaPrice)
	}
	// Only two listings had sqft: ppsf samples are 100 and 200.
	if snap.AreaPpsf != 150 {
		t.Errorf("AreaPpsf: got %v, want 150", snap.AreaPpsf)
	}
}

func TestPriceMedianFallbackChain(t *testing.T) {
	snap := Build([]*models.Listing{
		listing("30310", models.PropertyTypeSingleFamily, 150000, nil),
		listing("30311", models.PropertyTypeCondo, 250000, nil),
	})

	// Exact zip+type bucket.
	if got := snap.PriceMedian("30310", models.PropertyTypeSingleFamily); got != 150000 {
		t.Errorf("zip+type median: got %v, want 150000", got)
	}
	// Type mismatch falls to zip bucket.
	if got := snap.PriceMedian("30310", models.PropertyTypeCondo); got != 150000 {
		t.Errorf("zip fallback: got %v, want 150000", got)
	}
	// Unknown zip falls to the area-wide scalar.
	if got := snap.PriceMedian("99999", models.PropertyTypeCondo); got != 200000 {
		t.Errorf("area fallback: got %v, want 200000", got)
	}
}
