package search

import (
	"github.com/meilisearch/meilisearch-go"

	"github.com/neildahan/realdeal/internal/models"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "deals",
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"street",
		"city",
		"state",
		"zip",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"zip",
		"property_type",
		"price",
		"deal_score",
		"is_delinquent",
		"has_lien",
		"is_as_is",
		"is_pre_foreclosure",
		"status",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"deal_score",
		"price",
		"days_on_market",
		"fetched_at",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexDeal indexes a single deal
func (s *SearchClient) IndexDeal(deal *models.Listing) error {
	_, err := s.client.Index(s.index).AddDocuments([]models.Listing{*deal})
	return err
}

// IndexDeals indexes multiple deals
func (s *SearchClient) IndexDeals(deals []*models.Listing) error {
	if len(deals) == 0 {
		return nil
	}
	docs := make([]models.Listing, 0, len(deals))
	for _, d := range deals {
		docs = append(docs, *d)
	}
	_, err := s.client.Index(s.index).AddDocuments(docs)
	return err
}

// DeleteDeals removes deals from the index
func (s *SearchClient) DeleteDeals(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).DeleteDocuments(ids)
	return err
}

// Search searches for deals by free text
func (s *SearchClient) Search(query string, limit int64) ([]models.Listing, error) {
	if limit == 0 {
		limit = 20
	}

	searchRes, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	deals := make([]models.Listing, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		deals = append(deals, parseDealFromHit(hit))
	}
	return deals, nil
}

// parseDealFromHit converts a search hit to a Listing
func parseDealFromHit(hit interface{}) models.Listing {
	hitMap, ok := hit.(map[string]interface{})
	if !ok {
		return models.Listing{}
	}

	deal := models.Listing{
		ID:           getString(hitMap, "id"),
		Street:       getString(hitMap, "street"),
		City:         getString(hitMap, "city"),
		State:        getString(hitMap, "state"),
		Zip:          getString(hitMap, "zip"),
		PropertyType: models.PropertyType(getString(hitMap, "property_type")),
		Status:       models.DealStatus(getString(hitMap, "status")),
	}

	// Parse numeric fields
	if price, ok := hitMap["price"].(float64); ok {
		deal.Price = price
	}
	if score, ok := hitMap["deal_score"].(float64); ok {
		deal.DealScore = int(score)
	}
	if dom, ok := hitMap["days_on_market"].(float64); ok {
		deal.DaysOnMarket = int(dom)
	}
	if value, ok := hitMap["estimated_value"].(float64); ok {
		deal.EstimatedValue = &value
	}
	if lat, ok := hitMap["latitude"].(float64); ok {
		deal.Latitude = lat
	}
	if lng, ok := hitMap["longitude"].(float64); ok {
		deal.Longitude = lng
	}

	// Distress flags
	if v, ok := hitMap["is_delinquent"].(bool); ok {
		deal.IsDelinquent = v
	}
	if v, ok := hitMap["has_lien"].(bool); ok {
		deal.HasLien = v
	}
	if v, ok := hitMap["is_as_is"].(bool); ok {
		deal.IsAsIs = v
	}
	if v, ok := hitMap["is_pre_foreclosure"].(bool); ok {
		deal.IsPreForeclosure = v
	}

	return deal
}

// getString safely extracts a string from map
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}
