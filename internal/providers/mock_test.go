package providers

import (
	"context"
	"testing"
)

func TestMockListingSourceDeterministic(t *testing.T) {
	src := NewMockListingSource()
	ctx := context.Background()

	first, err := src.SearchNear(ctx, 33.749, -84.388, 5, 1)
	if err != nil {
		t.Fatalf("SearchNear: %v", err)
	}
	second, err := src.SearchNear(ctx, 33.749, -84.388, 5, 1)
	if err != nil {
		t.Fatalf("SearchNear: %v", err)
	}

	if len(first.Listings) != len(second.Listings) {
		t.Fatalf("page sizes differ: %d vs %d", len(first.Listings), len(second.Listings))
	}
	for i := range first.Listings {
		a, b := first.Listings[i], second.Listings[i]
		if a.ID != b.ID || a.Price != b.Price || a.Street != b.Street {
			t.Errorf("listing %d differs between identical requests: %+v vs %+v", i, a, b)
		}
	}
}

func TestMockListingSourcePagination(t *testing.T) {
	src := NewMockListingSource()
	ctx := context.Background()

	var total int
	seen := map[string]bool{}
	for page := 1; page <= 10; page++ {
		result, err := src.SearchNear(ctx, 33.749, -84.388, 5, page)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		for _, l := range result.Listings {
			if seen[l.ID] {
				t.Errorf("listing %s repeated across pages", l.ID)
			}
			seen[l.ID] = true
		}
		total += len(result.Listings)
		if !result.HasMore {
			break
		}
	}

	if total < 30 || total > 75 {
		t.Errorf("total listings %d outside expected 30-75", total)
	}

	// Past the end: empty page, no more.
	result, err := src.SearchNear(ctx, 33.749, -84.388, 5, 99)
	if err != nil {
		t.Fatalf("page 99: %v", err)
	}
	if len(result.Listings) != 0 || result.HasMore {
		t.Errorf("expected empty terminal page, got %d listings hasMore=%v", len(result.Listings), result.HasMore)
	}
}

func TestMockDistressDeterministic(t *testing.T) {
	addr := Address{Street: "123 Oak St", Zip: "30310"}
	a, _ := MockDistressSource{}.Lookup(context.Background(), addr)
	b, _ := MockDistressSource{}.Lookup(context.Background(), addr)
	if a.IsDelinquent != b.IsDelinquent || a.IsPreForeclosure != b.IsPreForeclosure {
		t.Error("distress lookups for the same address must be identical")
	}
}

func TestMockLienBatchCoversAllAddresses(t *testing.T) {
	addrs := []Address{
		{Street: "123 Oak St", Zip: "30310"},
		{Street: "456 Maple Ave", Zip: "30311"},
	}
	results, err := MockLienSource{}.LookupBatch(context.Background(), addrs)
	if err != nil {
		t.Fatalf("LookupBatch: %v", err)
	}
	for _, addr := range addrs {
		if _, ok := results[addr.Key()]; !ok {
			t.Errorf("no batch entry for %s", addr.Key())
		}
	}
}

func TestMockAVMValueInRange(t *testing.T) {
	found := false
	for i := 0; i < 20; i++ {
		addr := Address{Street: "123 Oak St", Zip: "3031" + string(rune('0'+i%10))}
		result, err := MockAVMSource{}.Lookup(context.Background(), addr)
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if result == nil {
			continue
		}
		found = true
		if result.Value <= 0 || result.RangeLow > result.Value || result.RangeHigh < result.Value {
			t.Errorf("inconsistent AVM result: %+v", result)
		}
	}
	if !found {
		t.Error("no AVM result in 20 addresses; the no-data rate should be ~15%")
	}
}
