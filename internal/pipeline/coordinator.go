// Package pipeline coordinates a full deal scan: fetch listings near a point,
// estimate market values, score, escalate the promising ones through the
// enrichment tiers, then persist and cache the survivors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/enrich"
	"github.com/neildahan/realdeal/internal/market"
	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/providers"
	"github.com/neildahan/realdeal/internal/scoring"
	"github.com/neildahan/realdeal/internal/valuation"
)

const (
	DefaultMaxPages    = 5
	DefaultRadiusMiles = 5.0
	MaxRadiusMiles     = 50.0
)

// ErrInvalidCoordinates is returned before any fetch work when the request has
// no usable search origin.
var ErrInvalidCoordinates = errors.New("pipeline: search requires valid coordinates")

// SearchRequest describes one scan. Bounds is an optional viewport region;
// when set, only listings inside it make the result set.
type SearchRequest struct {
	Latitude    float64              `json:"latitude"`
	Longitude   float64              `json:"longitude"`
	RadiusMiles float64              `json:"radius_miles"`
	Filters     models.SearchFilters `json:"filters"`
	Bounds      *models.Bounds       `json:"bounds,omitempty"`
}

func (r *SearchRequest) normalize() error {
	if r.Latitude == 0 && r.Longitude == 0 {
		return ErrInvalidCoordinates
	}
	if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	if r.RadiusMiles <= 0 {
		r.RadiusMiles = DefaultRadiusMiles
	}
	if r.RadiusMiles > MaxRadiusMiles {
		r.RadiusMiles = MaxRadiusMiles
	}
	return nil
}

// SearchResult is a completed scan: the matching deals sorted by score, plus
// area market context.
type SearchResult struct {
	Results []*models.Listing `json:"results"`
	Total   int               `json:"total"`

	AreaMedianPrice float64 `json:"area_median_price"`
	AreaMedianPpsf  float64 `json:"area_median_ppsf,omitempty"`

	Origin models.GeoPoint `json:"origin"`
	Bounds *models.Bounds  `json:"bounds,omitempty"`

	Fetched     int       `json:"fetched"`
	Saved       int       `json:"saved"`
	CompletedAt time.Time `json:"completed_at"`
}

// DealSaver persists a deal that passed the save gate.
type DealSaver interface {
	UpsertDeal(ctx context.Context, l *models.Listing) error
}

// DealIndexer pushes saved deals into the search index.
type DealIndexer interface {
	IndexDeals(listings []*models.Listing) error
}

// DealListener observes deals right after they were persisted. The coordinator
// emits one event per saved deal; delivery side effects (alert thresholds,
// deduplication, webhooks) belong to the listener.
type DealListener interface {
	DealSaved(l *models.Listing)
}

// Config holds coordinator tuning knobs.
type Config struct {
	MaxPages int
}

// Coordinator runs scans end to end. Saver, indexer and listener are optional;
// a nil value skips that stage.
type Coordinator struct {
	sources  providers.Bundle
	enricher *enrich.Orchestrator
	cache    *ResultCache
	saver    DealSaver
	indexer  DealIndexer
	listener DealListener
	maxPages int
}

// New builds a coordinator.
func New(sources providers.Bundle, enricher *enrich.Orchestrator, cache *ResultCache, saver DealSaver, indexer DealIndexer, listener DealListener, cfg Config) *Coordinator {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Coordinator{
		sources:  sources,
		enricher: enricher,
		cache:    cache,
		saver:    saver,
		indexer:  indexer,
		listener: listener,
		maxPages: cfg.MaxPages,
	}
}

// Search runs one scan. Identical requests within the cache TTL are answered
// from the cache without touching any provider.
func (c *Coordinator) Search(ctx context.Context, req SearchRequest, progress ProgressFunc) (*SearchResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	emitter := &progressEmitter{fn: progress}

	if c.cache != nil {
		if cached := c.cache.Get(req); cached != nil {
			log.Infof("Pipeline: cache hit for (%.4f, %.4f)", req.Latitude, req.Longitude)
			emitter.emit(Event{Phase: PhaseDone, Message: "Served from cache", Percent: 100})
			return cached, nil
		}
	}

	log.Infof("Pipeline: scan starting at (%.4f, %.4f) radius %.1f mi", req.Latitude, req.Longitude, req.RadiusMiles)

	listings, err := c.fetchAll(ctx, req, emitter)
	if err != nil {
		return nil, err
	}
	fetched := len(listings)

	emitter.emit(Event{
		Phase:   PhaseAnalyzing,
		Message: fmt.Sprintf("Estimating market values for %d listings", fetched),
		Percent: 35,
	})
	snap := market.Build(listings)
	for _, l := range listings {
		valuation.Apply(l, snap)
		scoring.Rescore(l)
	}

	// The distress tier runs only when the requested filter needs data no
	// listing source delivers. Skipped tiers emit no progress events.
	if req.Filters.Distress.RequiresEnrichment() {
		c.enricher.RunDistressTier(ctx, listings, func(index, tierTotal int, address string) {
			emitter.emit(Event{
				Phase:   PhaseEnriching,
				Message: fmt.Sprintf("Checking distress records: %s", address),
				Current: index,
				Total:   tierTotal,
				Percent: 45 + 20*index/max(tierTotal, 1),
			})
		})
	}

	emitter.emit(Event{Phase: PhaseRefining, Message: "Refining valuations", Percent: 70})
	c.enricher.RunRefineTier(ctx, listings)

	emitter.emit(Event{Phase: PhaseValidating, Message: "Validating top deals", Percent: 82})
	c.enricher.RunValidateTier(ctx, listings)

	result := c.assemble(req, listings, snap)
	result.Fetched = fetched

	result.Saved = c.persist(ctx, result.Results, emitter)

	if c.cache != nil {
		c.cache.Put(req, result)
	}
	emitter.emit(Event{
		Phase:   PhaseDone,
		Message: fmt.Sprintf("Scan complete: %d deals from %d listings", result.Total, fetched),
		Percent: 100,
	})
	log.Infof("Pipeline: scan done, %d of %d listings kept, %d saved", result.Total, fetched, result.Saved)
	return result, nil
}

// fetchAll pages through the listing source up to the page cap, deduplicating
// by ID.
func (c *Coordinator) fetchAll(ctx context.Context, req SearchRequest, emitter *progressEmitter) ([]*models.Listing, error) {
	var listings []*models.Listing
	seen := make(map[string]bool)

	for page := 1; page <= c.maxPages; page++ {
		emitter.emit(Event{
			Phase:   PhaseFetching,
			Message: fmt.Sprintf("Fetching listings, page %d", page),
			Current: page,
			Total:   c.maxPages,
			Percent: 30 * page / c.maxPages,
		})

		result, err := c.sources.Listings.SearchNear(ctx, req.Latitude, req.Longitude, req.RadiusMiles, page)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetching listings: %w", err)
			}
			log.Warnf("Pipeline: page %d fetch failed, continuing with %d listings: %v", page, len(listings), err)
			break
		}

		for _, l := range result.Listings {
			l.EnsureID()
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			listings = append(listings, l)
		}
		if !result.HasMore {
			break
		}
	}
	return listings, nil
}

// assemble filters, sorts and wraps the working set into a response.
func (c *Coordinator) assemble(req SearchRequest, listings []*models.Listing, snap *market.Snapshot) *SearchResult {
	var results []*models.Listing
	for _, l := range listings {
		if req.Bounds != nil && !req.Bounds.Contains(l) {
			continue
		}
		if req.Filters.Matches(l) {
			results = append(results, l)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DealScore > results[j].DealScore
	})

	return &SearchResult{
		Results:         results,
		Total:           len(results),
		AreaMedianPrice: snap.AreaPrice,
		AreaMedianPpsf:  snap.AreaPpsf,
		Origin:          models.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude},
		Bounds:          boundsOf(results),
		CompletedAt:     time.Now(),
	}
}

// boundsOf computes the bounding box of the located results. Listings without
// coordinates stay in the result set but do not contribute here.
func boundsOf(listings []*models.Listing) *models.Bounds {
	var b *models.Bounds
	for _, l := range listings {
		if !l.HasLocation() {
			continue
		}
		if b == nil {
			b = &models.Bounds{MinLat: l.Latitude, MaxLat: l.Latitude, MinLng: l.Longitude, MaxLng: l.Longitude}
			continue
		}
		if l.Latitude < b.MinLat {
			b.MinLat = l.Latitude
		}
		if l.Latitude > b.MaxLat {
			b.MaxLat = l.Latitude
		}
		if l.Longitude < b.MinLng {
			b.MinLng = l.Longitude
		}
		if l.Longitude > b.MaxLng {
			b.MaxLng = l.Longitude
		}
	}
	return b
}

// persist saves and indexes the deals that pass the save gate. Failures are
// per-listing and best-effort: a dead database never fails the scan.
func (c *Coordinator) persist(ctx context.Context, results []*models.Listing, emitter *progressEmitter) int {
	if c.saver == nil {
		return 0
	}

	var toSave []*models.Listing
	for _, l := range results {
		if scoring.WorthSaving(l) {
			toSave = append(toSave, l)
		}
	}
	if len(toSave) == 0 {
		return 0
	}

	emitter.emit(Event{
		Phase:   PhaseSaving,
		Message: fmt.Sprintf("Saving %d deals", len(toSave)),
		Total:   len(toSave),
		Percent: 92,
	})

	saved := 0
	for _, l := range toSave {
		if err := c.saver.UpsertDeal(ctx, l); err != nil {
			log.Warnf("Pipeline: saving deal %s failed: %v", l.Address(), err)
			continue
		}
		saved++
		if c.listener != nil {
			c.listener.DealSaved(l)
		}
	}

	if c.indexer != nil && saved > 0 {
		if err := c.indexer.IndexDeals(toSave); err != nil {
			log.Warnf("Pipeline: indexing %d deals failed: %v", len(toSave), err)
		}
	}

	emitter.emit(Event{
		Phase:   PhaseSaving,
		Message: fmt.Sprintf("Saved %d deals", saved),
		Current: saved,
		Total:   len(toSave),
		Percent: 98,
	})
	return saved
}
