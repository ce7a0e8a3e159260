package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neildahan/realdeal/internal/models"
)

// GormStore is the MySQL-backed deal store
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(host, port, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB wraps an existing gorm.DB instance
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB returns the underlying gorm.DB instance
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (s *GormStore) InitSchema() error {
	return s.db.AutoMigrate(
		&models.Listing{},
		&models.DealSnapshot{},
		&models.DealChange{},
		&models.DeleteLog{},
	)
}

// UpsertDeal saves or updates a deal (upsert by street + zip)
func (s *GormStore) UpsertDeal(ctx context.Context, l *models.Listing) error {
	l.EnsureID()
	if l.FetchedAt.IsZero() {
		l.FetchedAt = time.Now()
	}
	if l.Status == "" {
		l.Status = models.DealStatusActive
	}

	// First try to find an existing deal by the natural key
	var existing models.Listing
	result := s.db.WithContext(ctx).Where("street = ? AND zip = ?", l.Street, l.Zip).First(&existing)

	if result.Error == gorm.ErrRecordNotFound {
		return s.db.WithContext(ctx).Create(l).Error
	} else if result.Error != nil {
		return result.Error
	}

	// Update existing (keep original CreatedAt, ID and Status)
	l.CreatedAt = existing.CreatedAt
	l.ID = existing.ID
	l.Status = existing.Status
	return s.db.WithContext(ctx).Save(l).Error
}

// GetDealByID retrieves a deal by ID
func (s *GormStore) GetDealByID(id string) (*models.Listing, error) {
	var deal models.Listing
	err := s.db.Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// GetActiveDeals retrieves all active deals, best scores first
func (s *GormStore) GetActiveDeals() ([]models.Listing, error) {
	var deals []models.Listing
	err := s.db.Where("status = ?", models.DealStatusActive).
		Order("deal_score DESC").Find(&deals).Error
	return deals, err
}

// ListDeals retrieves deals with filtering and sorting
func (s *GormStore) ListDeals(opts ListOptions) ([]models.Listing, error) {
	query := s.db.Where("status = ?", models.DealStatusActive)

	if opts.PropertyType != "" && opts.PropertyType != models.PropertyTypeUnknown {
		query = query.Where("property_type = ?", opts.PropertyType)
	}
	switch opts.Distress {
	case models.DistressDelinquent:
		query = query.Where("is_delinquent = ?", true)
	case models.DistressLien:
		query = query.Where("has_lien = ?", true)
	case models.DistressAsIs:
		query = query.Where("is_as_is = ?", true)
	case models.DistressPreForeclosure:
		query = query.Where("is_pre_foreclosure = ?", true)
	}
	if opts.MinScore > 0 {
		query = query.Where("deal_score >= ?", opts.MinScore)
	}

	// Map sort parameter to SQL ORDER BY clause (MySQL syntax)
	var orderClause string
	switch opts.SortBy {
	case "price_asc":
		orderClause = "price ASC"
	case "price_desc":
		orderClause = "price DESC"
	case "discount_desc":
		orderClause = "CASE WHEN estimated_value IS NULL THEN 1 ELSE 0 END, price / estimated_value ASC"
	case "fetched_at_desc":
		orderClause = "fetched_at DESC"
	case "dom_desc":
		orderClause = "days_on_market DESC"
	default:
		// Default to best deals first
		orderClause = "deal_score DESC"
	}
	query = query.Order(orderClause)

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var deals []models.Listing
	err := query.Find(&deals).Error
	return deals, err
}

// MarkDealsStale marks deals as stale (logical deletion)
func (s *GormStore) MarkDealsStale(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Model(&models.Listing{}).
		Where("id IN ?", ids).
		Update("status", models.DealStatusStale).Error
}

// CountDeals returns total and active deal counts
func (s *GormStore) CountDeals() (total int64, active int64, err error) {
	if err = s.db.Model(&models.Listing{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = s.db.Model(&models.Listing{}).
		Where("status = ?", models.DealStatusActive).Count(&active).Error
	return total, active, err
}
