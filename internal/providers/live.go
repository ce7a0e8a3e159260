package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/neildahan/realdeal/internal/models"
)

// Live clients. Each one owns the translation from a provider's wire shape to
// the capability contract; the shared apiClient owns pacing, retries and the
// circuit breaker.

// --- listing source ---

type liveListingSource struct {
	client *apiClient
}

// NewLiveListingSource builds a ListingSource over a JSON search API.
func NewLiveListingSource(opts ClientOptions) ListingSource {
	return &liveListingSource{client: newAPIClient("listings", opts)}
}

type wireListing struct {
	Street       string   `json:"street"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Zip          string   `json:"zip"`
	PropertyType string   `json:"property_type"`
	Price        float64  `json:"price"`
	Sqft         *float64 `json:"sqft"`
	Beds         *int     `json:"beds"`
	Baths        *float64 `json:"baths"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	DaysOnMarket int      `json:"days_on_market"`
	Estimate     *float64 `json:"estimate"`
	AsIs         bool     `json:"as_is"`
	PriceDropPct *float64 `json:"price_drop_percent"`
}

type wireSearchResponse struct {
	Results []wireListing `json:"results"`
	HasMore bool          `json:"has_more"`
}

func (s *liveListingSource) SearchNear(ctx context.Context, lat, lng, radiusMiles float64, page int) (*SearchPage, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	query.Set("lng", strconv.FormatFloat(lng, 'f', 6, 64))
	query.Set("radius", strconv.FormatFloat(radiusMiles, 'f', 1, 64))
	query.Set("page", strconv.Itoa(page))

	var resp wireSearchResponse
	found, err := s.client.getJSON(ctx, "/v1/listings/search", query, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return &SearchPage{}, nil
	}

	out := &SearchPage{HasMore: resp.HasMore}
	for _, w := range resp.Results {
		l := &models.Listing{
			Street:           w.Street,
			City:             w.City,
			State:            w.State,
			Zip:              w.Zip,
			PropertyType:     models.NormalizeType(w.PropertyType),
			Price:            w.Price,
			Sqft:             w.Sqft,
			Beds:             w.Beds,
			Baths:            w.Baths,
			Latitude:         w.Latitude,
			Longitude:        w.Longitude,
			DaysOnMarket:     w.DaysOnMarket,
			ExternalEstimate: w.Estimate,
			IsAsIs:           w.AsIs,
			PriceDropPercent: w.PriceDropPct,
		}
		if l.DaysOnMarket < 0 {
			l.DaysOnMarket = 0
		}
		l.EnsureID()
		out.Listings = append(out.Listings, l)
	}
	return out, nil
}

// --- distress source ---

type liveDistressSource struct {
	client *apiClient
}

// NewLiveDistressSource builds a DistressSource over a per-address JSON API.
func NewLiveDistressSource(opts ClientOptions) DistressSource {
	return &liveDistressSource{client: newAPIClient("distress", opts)}
}

func (s *liveDistressSource) Lookup(ctx context.Context, addr Address) (*DistressResult, error) {
	query := url.Values{}
	query.Set("street", addr.Street)
	query.Set("city", addr.City)
	query.Set("state", addr.State)
	query.Set("zip", addr.Zip)

	var result DistressResult
	found, err := s.client.getJSON(ctx, "/v1/distress", query, &result)
	if err != nil {
		return nil, err
	}
	if !found {
		return &DistressResult{}, nil
	}
	return &result, nil
}

// --- lien source ---

type liveLienSource struct {
	client *apiClient
}

// NewLiveLienSource builds a LienSource over a batch JSON API.
func NewLiveLienSource(opts ClientOptions) LienSource {
	return &liveLienSource{client: newAPIClient("liens", opts)}
}

type wireLienEntry struct {
	Street           string   `json:"street"`
	Zip              string   `json:"zip"`
	HasLien          bool     `json:"has_lien"`
	PriceDropPercent *float64 `json:"price_drop_percent"`
}

func (s *liveLienSource) LookupBatch(ctx context.Context, addrs []Address) (map[string]LienResult, error) {
	if len(addrs) == 0 {
		return map[string]LienResult{}, nil
	}

	var resp struct {
		Entries []wireLienEntry `json:"entries"`
	}
	found, err := s.client.postJSON(ctx, "/v1/liens/batch", map[string]any{"addresses": addrs}, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]LienResult{}, nil
	}

	results := make(map[string]LienResult, len(resp.Entries))
	for _, e := range resp.Entries {
		key := Address{Street: e.Street, Zip: e.Zip}.Key()
		results[key] = LienResult{HasLien: e.HasLien, PriceDropPercent: e.PriceDropPercent}
	}
	return results, nil
}

// --- AVM source ---

type liveAVMSource struct {
	client *apiClient
}

// NewLiveAVMSource builds an AVMSource over a per-address JSON API.
func NewLiveAVMSource(opts ClientOptions) AVMSource {
	return &liveAVMSource{client: newAPIClient("avm", opts)}
}

func (s *liveAVMSource) Lookup(ctx context.Context, addr Address) (*AVMResult, error) {
	query := url.Values{}
	query.Set("street", addr.Street)
	query.Set("city", addr.City)
	query.Set("state", addr.State)
	query.Set("zip", addr.Zip)

	var result AVMResult
	found, err := s.client.getJSON(ctx, "/v1/avm", query, &result)
	if err != nil {
		return nil, err
	}
	if !found || result.Value <= 0 {
		return nil, nil
	}
	return &result, nil
}

// --- point-estimate source ---

type livePointEstimateSource struct {
	client *apiClient
}

// NewLivePointEstimateSource builds a PointEstimateSource over a per-address
// JSON API.
func NewLivePointEstimateSource(opts ClientOptions) PointEstimateSource {
	return &livePointEstimateSource{client: newAPIClient("point_estimate", opts)}
}

func (s *livePointEstimateSource) Lookup(ctx context.Context, addr Address) (*PointEstimateResult, error) {
	query := url.Values{}
	query.Set("address", fmt.Sprintf("%s, %s", addr.Street, addr.Zip))

	var result PointEstimateResult
	found, err := s.client.getJSON(ctx, "/v1/estimate", query, &result)
	if err != nil {
		return nil, err
	}
	if !found || result.PointEstimate <= 0 {
		return nil, nil
	}
	return &result, nil
}
