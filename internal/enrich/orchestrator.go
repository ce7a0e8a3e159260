// Package enrich escalates promising listings through three tiers of external
// verification: a batched distress/lien sweep, per-listing valuation
// refinement, and a final AVM validation of the top deals. Each tier is
// budget-capped, mutates listings in place, and re-scores them afterward.
package enrich

import (
	"context"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/providers"
	"github.com/neildahan/realdeal/internal/scoring"
	"github.com/neildahan/realdeal/internal/valuation"
)

// Defaults for the tier budgets and the validation blend. None of these have
// a principled derivation; they are tuning knobs exposed through config.
const (
	DefaultDistressBudget   = 15
	DefaultRefineBudget     = 20
	DefaultValidateBudget   = 2
	DefaultValidateMinScore = 70
	DefaultBlendPriorWeight = 0.6
)

// Pre-screen thresholds: signals that make a listing worth spending external
// calls on.
const (
	cheapRatioThreshold = 0.9
	staleDOMThreshold   = 45
	priceDropThreshold  = 10.0
)

// Config holds the orchestrator tuning knobs.
type Config struct {
	DistressBudget   int
	RefineBudget     int
	ValidateBudget   int
	ValidateMinScore int
	// BlendPriorWeight is the weight on the prior verified estimate when the
	// validation tier blends it with a fresh AVM value.
	BlendPriorWeight float64
}

func (c Config) withDefaults() Config {
	if c.DistressBudget <= 0 {
		c.DistressBudget = DefaultDistressBudget
	}
	if c.RefineBudget <= 0 {
		c.RefineBudget = DefaultRefineBudget
	}
	if c.ValidateBudget <= 0 {
		c.ValidateBudget = DefaultValidateBudget
	}
	if c.ValidateMinScore <= 0 {
		c.ValidateMinScore = DefaultValidateMinScore
	}
	if c.BlendPriorWeight <= 0 || c.BlendPriorWeight >= 1 {
		c.BlendPriorWeight = DefaultBlendPriorWeight
	}
	return c
}

// ProgressFunc receives per-listing progress within a tier.
type ProgressFunc func(index, total int, address string)

// Orchestrator drives the three enrichment tiers.
type Orchestrator struct {
	sources providers.Bundle
	cfg     Config
}

// New creates an orchestrator over the given provider bundle.
func New(sources providers.Bundle, cfg Config) *Orchestrator {
	return &Orchestrator{sources: sources, cfg: cfg.withDefaults()}
}

// WorthEnriching is the pre-screen predicate: true when a listing shows any
// signal that justifies spending external calls on it.
func WorthEnriching(l *models.Listing) bool {
	if l.IsPreForeclosure || l.IsAsIs {
		return true
	}
	if l.EstimatedValue != nil && *l.EstimatedValue > 0 && l.Price < cheapRatioThreshold**l.EstimatedValue {
		return true
	}
	if l.DaysOnMarket > staleDOMThreshold {
		return true
	}
	if l.PriceDropPercent != nil && *l.PriceDropPercent > priceDropThreshold {
		return true
	}
	return false
}

// RunDistressTier performs the batched lien sweep plus per-listing
// delinquency lookups for the most promising pre-screened candidates.
// Returns the number of listings touched.
func (o *Orchestrator) RunDistressTier(ctx context.Context, listings []*models.Listing, progress ProgressFunc) int {
	var candidates []*models.Listing
	for _, l := range listings {
		if l.Price > 0 && WorthEnriching(l) {
			candidates = append(candidates, l)
		}
	}

	// Best apparent deals first. Listings without a usable ratio sort last.
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, iok := candidates[i].PriceToValue()
		rj, jok := candidates[j].PriceToValue()
		if iok != jok {
			return iok
		}
		return ri < rj
	})
	if len(candidates) > o.cfg.DistressBudget {
		candidates = candidates[:o.cfg.DistressBudget]
	}
	if len(candidates) == 0 {
		return 0
	}

	log.Infof("Enrich: distress tier starting for %d listings", len(candidates))

	// One batched lien call covers the whole tier; it must complete before
	// any per-listing merge.
	addrs := make([]providers.Address, len(candidates))
	for i, l := range candidates {
		addrs[i] = providers.AddressOf(l)
	}
	liens, err := o.sources.Liens.LookupBatch(ctx, addrs)
	if err != nil {
		log.Warnf("Enrich: batched lien lookup failed, continuing without lien data: %v", err)
		liens = map[string]providers.LienResult{}
	}

	var mu sync.Mutex
	done := 0
	total := len(candidates)

	pool := newWorkerPool(o.cfg.DistressBudget)
	for _, l := range candidates {
		l := l
		pool.Submit(func() {
			result, err := o.sources.Distress.Lookup(ctx, providers.AddressOf(l))
			if err != nil {
				log.Warnf("Enrich: distress lookup failed for %s, skipping: %v", l.Address(), err)
				result = nil
			}

			mu.Lock()
			defer mu.Unlock()

			if result != nil {
				mergeDistress(l, result)
			}
			if lien, ok := liens[l.StreetKey()]; ok {
				mergeLien(l, lien)
			}
			scoring.Rescore(l)
			l.MarkEnriched()

			done++
			if progress != nil {
				progress(done, total, l.Address())
			}
		})
	}
	pool.Wait()

	return total
}

// mergeDistress folds a distress report into the listing. Flags merge with
// logical OR: a flag already set is never downgraded.
func mergeDistress(l *models.Listing, r *providers.DistressResult) {
	l.IsDelinquent = l.IsDelinquent || r.IsDelinquent
	l.IsPreForeclosure = l.IsPreForeclosure || r.IsPreForeclosure
	if l.EquityPercent == nil && r.EquityPercent != nil {
		l.EquityPercent = r.EquityPercent
	}
	if r.DaysOnMarket > l.DaysOnMarket {
		l.DaysOnMarket = r.DaysOnMarket
	}
	// The fallback market value only fills a hole, it never overrides an
	// estimate the pipeline already produced.
	if l.EstimatedValue == nil && r.MarketValue != nil && *r.MarketValue > 0 {
		l.SetEstimate(*r.MarketValue, models.SourceVerifiedExternal)
	}
}

func mergeLien(l *models.Listing, r providers.LienResult) {
	l.HasLien = l.HasLien || r.HasLien
	if l.PriceDropPercent == nil && r.PriceDropPercent != nil {
		l.PriceDropPercent = r.PriceDropPercent
	}
}

// RunRefineTier re-values listings that do not yet carry a verified external
// estimate, best current scores first. Returns the number of listings whose
// valuation was upgraded.
func (o *Orchestrator) RunRefineTier(ctx context.Context, listings []*models.Listing) int {
	var candidates []*models.Listing
	for _, l := range listings {
		if l.Price <= 0 {
			continue
		}
		switch l.ValuationSource {
		case models.SourceVerifiedExternal, models.SourceBlendedVerified:
			continue
		}
		candidates = append(candidates, l)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DealScore > candidates[j].DealScore
	})
	if len(candidates) > o.cfg.RefineBudget {
		candidates = candidates[:o.cfg.RefineBudget]
	}
	if len(candidates) == 0 {
		return 0
	}

	log.Infof("Enrich: refine tier starting for %d listings", len(candidates))

	var mu sync.Mutex
	refined := 0

	pool := newWorkerPool(o.cfg.RefineBudget)
	for _, l := range candidates {
		l := l
		pool.Submit(func() {
			result, err := o.sources.PointEstimate.Lookup(ctx, providers.AddressOf(l))
			if err != nil {
				log.Warnf("Enrich: point estimate lookup failed for %s, skipping: %v", l.Address(), err)
				return
			}
			if result == nil {
				return
			}

			mu.Lock()
			defer mu.Unlock()

			// Implausible estimates leave the listing untouched; that is
			// graceful degradation, not an error.
			if !valuation.Plausible(result.PointEstimate, l.Price, l.Sqft) {
				return
			}
			l.SetEstimate(result.PointEstimate, models.SourceVerifiedExternal)
			scoring.Rescore(l)
			l.MarkEnriched()
			refined++
		})
	}
	pool.Wait()

	return refined
}

// RunValidateTier confirms the top-scoring deals with a full AVM lookup,
// blending against any existing verified estimate. Returns the number of
// listings validated.
func (o *Orchestrator) RunValidateTier(ctx context.Context, listings []*models.Listing) int {
	var candidates []*models.Listing
	for _, l := range listings {
		if l.DealScore >= o.cfg.ValidateMinScore {
			candidates = append(candidates, l)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DealScore > candidates[j].DealScore
	})
	if len(candidates) > o.cfg.ValidateBudget {
		candidates = candidates[:o.cfg.ValidateBudget]
	}
	if len(candidates) == 0 {
		return 0
	}

	log.Infof("Enrich: validate tier starting for %d listings", len(candidates))

	var mu sync.Mutex
	validated := 0

	pool := newWorkerPool(o.cfg.ValidateBudget)
	for _, l := range candidates {
		l := l
		pool.Submit(func() {
			result, err := o.sources.AVM.Lookup(ctx, providers.AddressOf(l))
			if err != nil {
				log.Warnf("Enrich: AVM lookup failed for %s, skipping: %v", l.Address(), err)
				return
			}
			if result == nil || result.Value <= 0 {
				return
			}

			mu.Lock()
			defer mu.Unlock()

			if l.ValuationSource.Verified() && l.EstimatedValue != nil && *l.EstimatedValue > 0 {
				blended := o.cfg.BlendPriorWeight**l.EstimatedValue + (1-o.cfg.BlendPriorWeight)*result.Value
				l.SetEstimate(blended, models.SourceBlendedVerified)
			} else {
				l.SetEstimate(result.Value, models.SourceVerifiedExternal)
			}
			scoring.Rescore(l)
			l.MarkEnriched()
			validated++
		})
	}
	pool.Wait()

	return validated
}
