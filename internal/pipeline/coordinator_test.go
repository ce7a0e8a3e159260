package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/neildahan/realdeal/internal/enrich"
	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/providers"
	"github.com/neildahan/realdeal/internal/scoring"
)

type countingListings struct {
	inner providers.ListingSource
	mu    sync.Mutex
	calls int
}

func (c *countingListings) SearchNear(ctx context.Context, lat, lng, radius float64, page int) (*providers.SearchPage, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.SearchNear(ctx, lat, lng, radius, page)
}

type spyDistress struct {
	inner providers.DistressSource
	mu    sync.Mutex
	calls int
}

func (s *spyDistress) Lookup(ctx context.Context, addr providers.Address) (*providers.DistressResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.inner.Lookup(ctx, addr)
}

type memorySaver struct {
	mu    sync.Mutex
	saved []*models.Listing
}

func (m *memorySaver) UpsertDeal(_ context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, l)
	return nil
}

func testCoordinator(t *testing.T) (*Coordinator, *countingListings, *spyDistress, *memorySaver) {
	t.Helper()
	bundle := providers.MockBundle()
	listings := &countingListings{inner: bundle.Listings}
	distress := &spyDistress{inner: bundle.Distress}
	bundle.Listings = listings
	bundle.Distress = distress

	saver := &memorySaver{}
	cache := NewResultCache(time.Minute, 10)
	coord := New(bundle, enrich.New(bundle, enrich.Config{}), cache, saver, nil, nil, Config{})
	return coord, listings, distress, saver
}

func TestSearchWithoutDistressFilterSkipsDistressTier(t *testing.T) {
	coord, _, distress, _ := testCoordinator(t)

	result, err := coord.Search(context.Background(), SearchRequest{Latitude: 33.749, Longitude: -84.388}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if distress.calls != 0 {
		t.Errorf("distress source called %d times without a distress filter", distress.calls)
	}

	for _, l := range result.Results {
		if l.Price > 0 && l.EstimatedValue == nil {
			t.Errorf("priced listing %s has no value estimate", l.Address())
		}
	}
	for i := 1; i < len(result.Results); i++ {
		if result.Results[i-1].DealScore < result.Results[i].DealScore {
			t.Fatal("results are not sorted by score descending")
		}
	}
	if result.AreaMedianPrice <= 0 {
		t.Error("area median price missing")
	}
}

func TestSearchDistressFilterRunsDistressTier(t *testing.T) {
	coord, _, distress, _ := testCoordinator(t)

	_, err := coord.Search(context.Background(), SearchRequest{
		Latitude:  33.749,
		Longitude: -84.388,
		Filters:   models.SearchFilters{Distress: models.DistressDelinquent},
	}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if distress.calls == 0 {
		t.Error("delinquency filter must trigger the distress tier")
	}
}

func TestSearchCacheHitSkipsFetch(t *testing.T) {
	coord, listings, _, _ := testCoordinator(t)
	req := SearchRequest{Latitude: 33.749, Longitude: -84.388}

	first, err := coord.Search(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	callsAfterFirst := listings.calls

	second, err := coord.Search(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if listings.calls != callsAfterFirst {
		t.Errorf("cache hit still fetched: %d calls after first, %d after second", callsAfterFirst, listings.calls)
	}
	if second != first {
		t.Error("cache hit should return the stored result")
	}
}

func TestSearchRejectsMissingCoordinates(t *testing.T) {
	coord, listings, _, _ := testCoordinator(t)

	if _, err := coord.Search(context.Background(), SearchRequest{}, nil); err != ErrInvalidCoordinates {
		t.Errorf("err = %v, want ErrInvalidCoordinates", err)
	}
	if _, err := coord.Search(context.Background(), SearchRequest{Latitude: 120, Longitude: 10}, nil); err != ErrInvalidCoordinates {
		t.Errorf("out-of-range latitude: err = %v, want ErrInvalidCoordinates", err)
	}
	if listings.calls != 0 {
		t.Error("invalid requests must fail before any fetch")
	}
}

func TestSearchPersistsOnlyWorthSavingDeals(t *testing.T) {
	coord, _, _, saver := testCoordinator(t)

	result, err := coord.Search(context.Background(), SearchRequest{Latitude: 33.749, Longitude: -84.388}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	for _, l := range saver.saved {
		if !scoring.WorthSaving(l) {
			t.Errorf("saved listing %s does not pass the save gate (score %d)", l.Address(), l.DealScore)
		}
	}
	want := 0
	for _, l := range result.Results {
		if scoring.WorthSaving(l) {
			want++
		}
	}
	if len(saver.saved) != want {
		t.Errorf("saved %d deals, want %d", len(saver.saved), want)
	}
	if result.Saved != len(saver.saved) {
		t.Errorf("result.Saved = %d, saver recorded %d", result.Saved, len(saver.saved))
	}
}

type spyListener struct {
	mu    sync.Mutex
	deals []*models.Listing
}

func (s *spyListener) DealSaved(l *models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals = append(s.deals, l)
}

func TestSearchEmitsEventPerSavedDeal(t *testing.T) {
	bundle := providers.MockBundle()
	saver := &memorySaver{}
	listener := &spyListener{}
	coord := New(bundle, enrich.New(bundle, enrich.Config{}), nil, saver, nil, listener, Config{})

	_, err := coord.Search(context.Background(), SearchRequest{Latitude: 33.749, Longitude: -84.388}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(saver.saved) == 0 {
		t.Fatal("expected the mock area to yield at least one saved deal")
	}
	if len(listener.deals) != len(saver.saved) {
		t.Fatalf("listener saw %d deals, saver persisted %d", len(listener.deals), len(saver.saved))
	}
	seen := make(map[string]bool, len(listener.deals))
	for _, l := range listener.deals {
		seen[l.ID] = true
	}
	for _, l := range saver.saved {
		if !seen[l.ID] {
			t.Errorf("persisted deal %s produced no event", l.Address())
		}
	}
}

func TestSearchProgressIsMonotonic(t *testing.T) {
	coord, _, _, _ := testCoordinator(t)

	var mu sync.Mutex
	var events []Event
	progress := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	_, err := coord.Search(context.Background(), SearchRequest{
		Latitude:  33.749,
		Longitude: -84.388,
		Filters:   models.SearchFilters{Distress: models.DistressLien},
	}, progress)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(events) == 0 {
		t.Fatal("no progress events emitted")
	}
	for i := 1; i < len(events); i++ {
		if events[i].Percent < events[i-1].Percent {
			t.Fatalf("percent moved backwards: %d after %d (phase %s)", events[i].Percent, events[i-1].Percent, events[i].Phase)
		}
	}
	last := events[len(events)-1]
	if last.Phase != PhaseDone || last.Percent != 100 {
		t.Errorf("final event = %+v, want done at 100%%", last)
	}
}

func TestSearchAppliesRequestBounds(t *testing.T) {
	coord, _, _, _ := testCoordinator(t)

	// A sliver of a region nowhere near the generated listings.
	req := SearchRequest{
		Latitude:  33.749,
		Longitude: -84.388,
		Bounds:    &models.Bounds{MinLat: 10, MaxLat: 10.001, MinLng: 10, MaxLng: 10.001},
	}
	result, err := coord.Search(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("got %d results inside an empty viewport", result.Total)
	}
}

func TestSearchBoundsExcludeUnlocatedListings(t *testing.T) {
	coord, _, _, _ := testCoordinator(t)

	result, err := coord.Search(context.Background(), SearchRequest{Latitude: 33.749, Longitude: -84.388}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Bounds == nil {
		t.Fatal("expected bounds for a populated result set")
	}
	if result.Bounds.MinLat == 0 || result.Bounds.MinLng == 0 {
		t.Error("bounds include a zero coordinate; unlocated listings must not contribute")
	}
}
