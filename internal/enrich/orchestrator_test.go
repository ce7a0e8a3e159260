package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/providers"
	"github.com/neildahan/realdeal/internal/scoring"
)

func fptr(v float64) *float64 { return &v }

type stubDistress struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*providers.DistressResult
	err     error
}

func (s *stubDistress) Lookup(_ context.Context, addr providers.Address) (*providers.DistressResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, addr.Key())
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.results[addr.Key()]; ok {
		return r, nil
	}
	return &providers.DistressResult{}, nil
}

type stubLiens struct {
	mu      sync.Mutex
	batches [][]providers.Address
	results map[string]providers.LienResult
	err     error
}

func (s *stubLiens) LookupBatch(_ context.Context, addrs []providers.Address) (map[string]providers.LienResult, error) {
	s.mu.Lock()
	s.batches = append(s.batches, addrs)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.results != nil {
		return s.results, nil
	}
	return map[string]providers.LienResult{}, nil
}

type stubAVM struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*providers.AVMResult
}

func (s *stubAVM) Lookup(_ context.Context, addr providers.Address) (*providers.AVMResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, addr.Key())
	s.mu.Unlock()
	if r, ok := s.results[addr.Key()]; ok {
		return r, nil
	}
	return nil, nil
}

type stubPoint struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*providers.PointEstimateResult
}

func (s *stubPoint) Lookup(_ context.Context, addr providers.Address) (*providers.PointEstimateResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, addr.Key())
	s.mu.Unlock()
	if r, ok := s.results[addr.Key()]; ok {
		return r, nil
	}
	return nil, nil
}

func testBundle(distress *stubDistress, liens *stubLiens, avm *stubAVM, point *stubPoint) providers.Bundle {
	if distress == nil {
		distress = &stubDistress{}
	}
	if liens == nil {
		liens = &stubLiens{}
	}
	if avm == nil {
		avm = &stubAVM{}
	}
	if point == nil {
		point = &stubPoint{}
	}
	return providers.Bundle{
		Distress:      distress,
		Liens:         liens,
		AVM:           avm,
		PointEstimate: point,
	}
}

func listingAt(street, zip string, price float64) *models.Listing {
	l := &models.Listing{
		Street: street,
		City:   "Riverton",
		State:  "GA",
		Zip:    zip,
		Price:  price,
	}
	l.EnsureID()
	return l
}

func TestWorthEnriching(t *testing.T) {
	plain := listingAt("1 Plain St", "30310", 300000)
	plain.EstimatedValue = fptr(300000)
	if WorthEnriching(plain) {
		t.Error("listing with no distress signals should not be worth enriching")
	}

	cheap := listingAt("2 Cheap St", "30310", 250000)
	cheap.EstimatedValue = fptr(300000)
	if !WorthEnriching(cheap) {
		t.Error("listing priced well under its estimate should be worth enriching")
	}

	asIs := listingAt("3 AsIs St", "30310", 300000)
	asIs.IsAsIs = true
	if !WorthEnriching(asIs) {
		t.Error("as-is listing should be worth enriching")
	}

	stale := listingAt("4 Stale St", "30310", 300000)
	stale.DaysOnMarket = 46
	if !WorthEnriching(stale) {
		t.Error("listing over the stale threshold should be worth enriching")
	}

	dropped := listingAt("5 Drop St", "30310", 300000)
	dropped.PriceDropPercent = fptr(12.5)
	if !WorthEnriching(dropped) {
		t.Error("listing with a large price drop should be worth enriching")
	}
}

func TestDistressTierRespectsBudget(t *testing.T) {
	distress := &stubDistress{}
	liens := &stubLiens{}
	o := New(testBundle(distress, liens, nil, nil), Config{DistressBudget: 3})

	var listings []*models.Listing
	for i := 0; i < 10; i++ {
		l := listingAt("100 Oak St", "3031"+string(rune('0'+i)), 200000)
		l.IsAsIs = true
		listings = append(listings, l)
	}

	touched := o.RunDistressTier(context.Background(), listings, nil)
	if touched != 3 {
		t.Errorf("touched = %d, want 3", touched)
	}
	if len(distress.calls) != 3 {
		t.Errorf("distress lookups = %d, want 3", len(distress.calls))
	}
	if len(liens.batches) != 1 || len(liens.batches[0]) != 3 {
		t.Errorf("expected one lien batch of 3 addresses, got %+v", liens.batches)
	}
}

func TestDistressTierPrioritizesBestRatios(t *testing.T) {
	distress := &stubDistress{}
	o := New(testBundle(distress, nil, nil, nil), Config{DistressBudget: 1})

	good := listingAt("1 Good St", "30310", 150000)
	good.EstimatedValue = fptr(300000)
	bad := listingAt("2 Bad St", "30311", 280000)
	bad.EstimatedValue = fptr(300000)
	bad.IsAsIs = true

	o.RunDistressTier(context.Background(), []*models.Listing{bad, good}, nil)

	if len(distress.calls) != 1 || distress.calls[0] != good.StreetKey() {
		t.Errorf("expected the lowest-ratio listing to win the budget slot, got calls %v", distress.calls)
	}
}

func TestDistressTierMergesFlagsWithoutDowngrade(t *testing.T) {
	l := listingAt("10 Oak St", "30310", 200000)
	l.IsAsIs = true
	l.IsDelinquent = true
	l.DaysOnMarket = 80
	l.EstimatedValue = fptr(260000)
	l.ValuationSource = models.SourceAreaDensity

	distress := &stubDistress{results: map[string]*providers.DistressResult{
		l.StreetKey(): {
			IsDelinquent:     false, // must not clear the existing flag
			IsPreForeclosure: true,
			DaysOnMarket:     30, // lower than current, must not shrink
			EquityPercent:    fptr(40),
			MarketValue:      fptr(500000), // must not override the existing estimate
		},
	}}
	liens := &stubLiens{results: map[string]providers.LienResult{
		l.StreetKey(): {HasLien: true},
	}}
	o := New(testBundle(distress, liens, nil, nil), Config{})

	o.RunDistressTier(context.Background(), []*models.Listing{l}, nil)

	if !l.IsDelinquent {
		t.Error("delinquency flag was downgraded")
	}
	if !l.IsPreForeclosure {
		t.Error("pre-foreclosure flag was not set")
	}
	if !l.HasLien {
		t.Error("lien flag was not set")
	}
	if l.DaysOnMarket != 80 {
		t.Errorf("days on market = %d, want 80", l.DaysOnMarket)
	}
	if l.EquityPercent == nil || *l.EquityPercent != 40 {
		t.Error("equity percent was not filled")
	}
	if *l.EstimatedValue != 260000 {
		t.Errorf("estimate was overridden to %v", *l.EstimatedValue)
	}
	if l.EnrichedAt == nil {
		t.Error("listing was not marked enriched")
	}
	if l.DealScore != scoring.Score(l) {
		t.Error("listing was not rescored after the merge")
	}
}

func TestDistressTierSurvivesLienBatchFailure(t *testing.T) {
	l := listingAt("10 Oak St", "30310", 200000)
	l.IsAsIs = true

	distress := &stubDistress{results: map[string]*providers.DistressResult{
		l.StreetKey(): {IsDelinquent: true},
	}}
	liens := &stubLiens{err: errors.New("upstream down")}
	o := New(testBundle(distress, liens, nil, nil), Config{})

	touched := o.RunDistressTier(context.Background(), []*models.Listing{l}, nil)
	if touched != 1 {
		t.Fatalf("touched = %d, want 1", touched)
	}
	if !l.IsDelinquent {
		t.Error("distress data should still merge when the lien batch fails")
	}
	if l.HasLien {
		t.Error("no lien data should merge when the batch fails")
	}
}

func TestDistressTierReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var indices []int
	progress := func(index, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
		indices = append(indices, index)
	}

	a := listingAt("1 Oak St", "30310", 200000)
	a.IsAsIs = true
	b := listingAt("2 Oak St", "30310", 200000)
	b.IsAsIs = true

	o := New(testBundle(nil, nil, nil, nil), Config{})
	o.RunDistressTier(context.Background(), []*models.Listing{a, b}, progress)

	if len(indices) != 2 {
		t.Fatalf("progress callbacks = %d, want 2", len(indices))
	}
	seen := map[int]bool{}
	for _, i := range indices {
		seen[i] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("progress indices = %v, want {1,2}", indices)
	}
}

func TestRefineTierSkipsVerifiedListings(t *testing.T) {
	point := &stubPoint{}
	o := New(testBundle(nil, nil, nil, point), Config{})

	verified := listingAt("1 Done St", "30310", 200000)
	verified.SetEstimate(240000, models.SourceVerifiedExternal)
	unverified := listingAt("2 Todo St", "30311", 200000)
	unverified.SetEstimate(240000, models.SourceAreaDensity)

	o.RunRefineTier(context.Background(), []*models.Listing{verified, unverified})

	if len(point.calls) != 1 || point.calls[0] != unverified.StreetKey() {
		t.Errorf("expected a single lookup for the unverified listing, got %v", point.calls)
	}
}

func TestRefineTierRejectsImplausibleEstimate(t *testing.T) {
	l := listingAt("1 Oak St", "30310", 200000)
	l.SetEstimate(210000, models.SourcePriceMedian)

	point := &stubPoint{results: map[string]*providers.PointEstimateResult{
		l.StreetKey(): {PointEstimate: 2000000}, // 10x the price
	}}
	o := New(testBundle(nil, nil, nil, point), Config{})

	refined := o.RunRefineTier(context.Background(), []*models.Listing{l})
	if refined != 0 {
		t.Errorf("refined = %d, want 0", refined)
	}
	if *l.EstimatedValue != 210000 || l.ValuationSource != models.SourcePriceMedian {
		t.Error("implausible estimate must leave the listing untouched")
	}
}

func TestRefineTierUpgradesEstimate(t *testing.T) {
	l := listingAt("1 Oak St", "30310", 200000)
	l.SetEstimate(210000, models.SourceAreaDensity)

	point := &stubPoint{results: map[string]*providers.PointEstimateResult{
		l.StreetKey(): {PointEstimate: 250000},
	}}
	o := New(testBundle(nil, nil, nil, point), Config{})

	refined := o.RunRefineTier(context.Background(), []*models.Listing{l})
	if refined != 1 {
		t.Fatalf("refined = %d, want 1", refined)
	}
	if *l.EstimatedValue != 250000 || l.ValuationSource != models.SourceVerifiedExternal {
		t.Errorf("estimate = %v source = %s", *l.EstimatedValue, l.ValuationSource)
	}
	if l.DealScore != scoring.Score(l) {
		t.Error("listing was not rescored after the upgrade")
	}
}

func TestValidateTierBlendsAgainstVerifiedPrior(t *testing.T) {
	l := listingAt("1 Oak St", "30310", 150000)
	l.SetEstimate(300000, models.SourceVerifiedExternal)
	l.IsDelinquent = true
	scoring.Rescore(l) // 40 discount + 30 delinquent clears the validation floor

	avm := &stubAVM{results: map[string]*providers.AVMResult{
		l.StreetKey(): {Value: 250000},
	}}
	o := New(testBundle(nil, nil, avm, nil), Config{})

	validated := o.RunValidateTier(context.Background(), []*models.Listing{l})
	if validated != 1 {
		t.Fatalf("validated = %d, want 1", validated)
	}
	// 0.6*300000 + 0.4*250000 = 280000
	if *l.EstimatedValue != 280000 {
		t.Errorf("blended estimate = %v, want 280000", *l.EstimatedValue)
	}
	if l.ValuationSource != models.SourceBlendedVerified {
		t.Errorf("source = %s, want %s", l.ValuationSource, models.SourceBlendedVerified)
	}
}

func TestValidateTierAdoptsAVMWhenPriorUnverified(t *testing.T) {
	l := listingAt("1 Oak St", "30310", 150000)
	l.SetEstimate(300000, models.SourceAreaDensity)
	l.IsDelinquent = true
	scoring.Rescore(l)

	avm := &stubAVM{results: map[string]*providers.AVMResult{
		l.StreetKey(): {Value: 250000},
	}}
	o := New(testBundle(nil, nil, avm, nil), Config{})

	o.RunValidateTier(context.Background(), []*models.Listing{l})

	if *l.EstimatedValue != 250000 || l.ValuationSource != models.SourceVerifiedExternal {
		t.Errorf("estimate = %v source = %s", *l.EstimatedValue, l.ValuationSource)
	}
}

func TestValidateTierHonorsFloorAndBudget(t *testing.T) {
	avm := &stubAVM{results: map[string]*providers.AVMResult{}}
	o := New(testBundle(nil, nil, avm, nil), Config{ValidateBudget: 2, ValidateMinScore: 70})

	var listings []*models.Listing
	for i := 0; i < 4; i++ {
		l := listingAt("1 Oak St", "3031"+string(rune('0'+i)), 150000)
		l.SetEstimate(300000, models.SourceVerifiedExternal)
		l.IsDelinquent = true
		scoring.Rescore(l)
		listings = append(listings, l)
	}
	low := listingAt("9 Low St", "30319", 290000)
	low.SetEstimate(300000, models.SourceVerifiedExternal)
	scoring.Rescore(low)
	if low.DealScore >= 70 {
		t.Fatalf("fixture error: low-score listing scored %d", low.DealScore)
	}
	listings = append(listings, low)

	o.RunValidateTier(context.Background(), listings)

	if len(avm.calls) != 2 {
		t.Errorf("AVM lookups = %d, want 2 (budget cap)", len(avm.calls))
	}
	for _, key := range avm.calls {
		if key == low.StreetKey() {
			t.Error("listing under the score floor was validated")
		}
	}
}

func TestValidateTierSkipsMissingAVM(t *testing.T) {
	l := listingAt("1 Oak St", "30310", 150000)
	l.SetEstimate(300000, models.SourceVerifiedExternal)
	l.IsDelinquent = true
	scoring.Rescore(l)

	avm := &stubAVM{results: map[string]*providers.AVMResult{}} // nil result for every address
	o := New(testBundle(nil, nil, avm, nil), Config{})

	validated := o.RunValidateTier(context.Background(), []*models.Listing{l})
	if validated != 0 {
		t.Errorf("validated = %d, want 0", validated)
	}
	if *l.EstimatedValue != 300000 || l.ValuationSource != models.SourceVerifiedExternal {
		t.Error("listing must be untouched when the AVM has no data")
	}
}
