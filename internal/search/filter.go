package search

import (
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/neildahan/realdeal/internal/models"
)

type FilterParams struct {
	Query        string
	Zip          string
	PropertyType models.PropertyType
	Distress     models.DistressFilter
	MinScore     *int
	MaxPrice     *float64
	SortBy       string
	Limit        int64
}

// FilterSearch performs an indexed deal search with filters
func (s *SearchClient) FilterSearch(params FilterParams) ([]models.Listing, error) {
	var filters []string

	// Active deals only
	filters = append(filters, "status = 'active'")

	if params.Zip != "" {
		filters = append(filters, fmt.Sprintf("zip = '%s'", params.Zip))
	}
	if params.PropertyType != "" && params.PropertyType != models.PropertyTypeUnknown {
		filters = append(filters, fmt.Sprintf("property_type = '%s'", params.PropertyType))
	}

	switch params.Distress {
	case models.DistressDelinquent:
		filters = append(filters, "is_delinquent = true")
	case models.DistressLien:
		filters = append(filters, "has_lien = true")
	case models.DistressAsIs:
		filters = append(filters, "is_as_is = true")
	case models.DistressPreForeclosure:
		filters = append(filters, "is_pre_foreclosure = true")
	}

	if params.MinScore != nil {
		filters = append(filters, fmt.Sprintf("deal_score >= %d", *params.MinScore))
	}
	if params.MaxPrice != nil {
		filters = append(filters, fmt.Sprintf("price <= %.0f", *params.MaxPrice))
	}

	// Determine sort order
	sort := []string{"deal_score:desc"}
	switch params.SortBy {
	case "price_asc":
		sort = []string{"price:asc"}
	case "price_desc":
		sort = []string{"price:desc"}
	case "newest":
		sort = []string{"fetched_at:desc"}
	}

	if params.Limit == 0 {
		params.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  params.Limit,
		Filter: strings.Join(filters, " AND "),
		Sort:   sort,
	}

	searchRes, err := s.client.Index(s.index).Search(params.Query, searchReq)
	if err != nil {
		return nil, err
	}

	deals := make([]models.Listing, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		deals = append(deals, parseDealFromHit(hit))
	}
	return deals, nil
}
