package database

import (
	"context"

	"github.com/neildahan/realdeal/internal/models"
)

// ListOptions controls deal listing queries
type ListOptions struct {
	PropertyType models.PropertyType
	Distress     models.DistressFilter
	MinScore     int
	SortBy       string
	Limit        int
}

// DealStore is the persistence interface shared by the MySQL and PostgreSQL
// backends. The history and cleanup services need GORM features and take the
// GormStore directly.
type DealStore interface {
	InitSchema() error
	Close() error

	UpsertDeal(ctx context.Context, l *models.Listing) error
	GetDealByID(id string) (*models.Listing, error)
	GetActiveDeals() ([]models.Listing, error)
	ListDeals(opts ListOptions) ([]models.Listing, error)
	MarkDealsStale(ids []string) error
	CountDeals() (total int64, active int64, err error)
}
