package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/neildahan/realdeal/internal/models"
)

// PostgresStore is the PostgreSQL-backed deal store. It covers the core deal
// surface; snapshot history and cleanup need the GORM backend.
type PostgresStore struct {
	conn *sql.DB
}

func NewPostgresStore(host, port, user, password, dbname, sslmode string) (*PostgresStore, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{conn: conn}, nil
}

func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

// InitSchema creates the deals table if it doesn't exist
func (s *PostgresStore) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS deals (
		id VARCHAR(32) PRIMARY KEY,
		street VARCHAR(255) NOT NULL,
		city VARCHAR(100),
		state VARCHAR(10),
		zip VARCHAR(10) NOT NULL,
		property_type VARCHAR(20),

		price DECIMAL(12, 2),
		sqft DECIMAL(10, 2),
		beds INTEGER,
		baths DECIMAL(4, 1),
		latitude DECIMAL(10, 6),
		longitude DECIMAL(10, 6),
		days_on_market INTEGER,

		estimated_value DECIMAL(12, 2),
		external_estimate DECIMAL(12, 2),
		valuation_source VARCHAR(20),
		valuation_confidence VARCHAR(10),

		is_delinquent BOOLEAN NOT NULL DEFAULT FALSE,
		has_lien BOOLEAN NOT NULL DEFAULT FALSE,
		is_as_is BOOLEAN NOT NULL DEFAULT FALSE,
		is_pre_foreclosure BOOLEAN NOT NULL DEFAULT FALSE,
		equity_percent DECIMAL(5, 2),
		price_drop_percent DECIMAL(5, 2),

		deal_score INTEGER NOT NULL DEFAULT 0,
		enriched BOOLEAN NOT NULL DEFAULT FALSE,
		enriched_at TIMESTAMP,
		status VARCHAR(20) NOT NULL DEFAULT 'active',

		fetched_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

		UNIQUE (street, zip)
	);

	-- Indexes for filtering and ranking
	CREATE INDEX IF NOT EXISTS idx_deals_score ON deals(deal_score DESC);
	CREATE INDEX IF NOT EXISTS idx_deals_zip ON deals(zip);
	CREATE INDEX IF NOT EXISTS idx_deals_property_type ON deals(property_type);
	CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);
	`
	_, err := s.conn.Exec(query)
	return err
}

const dealColumns = `id, street, city, state, zip, property_type,
	price, sqft, beds, baths, latitude, longitude, days_on_market,
	estimated_value, external_estimate, valuation_source, valuation_confidence,
	is_delinquent, has_lien, is_as_is, is_pre_foreclosure, equity_percent, price_drop_percent,
	deal_score, enriched, enriched_at, status, fetched_at, created_at, updated_at`

// UpsertDeal saves a deal, updating in place on natural-key conflict.
// CreatedAt and status survive the update.
func (s *PostgresStore) UpsertDeal(ctx context.Context, l *models.Listing) error {
	l.EnsureID()
	if l.Status == "" {
		l.Status = models.DealStatusActive
	}

	query := `
	INSERT INTO deals (
		id, street, city, state, zip, property_type,
		price, sqft, beds, baths, latitude, longitude, days_on_market,
		estimated_value, external_estimate, valuation_source, valuation_confidence,
		is_delinquent, has_lien, is_as_is, is_pre_foreclosure, equity_percent, price_drop_percent,
		deal_score, enriched, enriched_at, status, fetched_at, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, NOW(), NOW())
	ON CONFLICT (street, zip) DO UPDATE SET
		city = EXCLUDED.city,
		state = EXCLUDED.state,
		property_type = EXCLUDED.property_type,
		price = EXCLUDED.price,
		sqft = EXCLUDED.sqft,
		beds = EXCLUDED.beds,
		baths = EXCLUDED.baths,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		days_on_market = EXCLUDED.days_on_market,
		estimated_value = EXCLUDED.estimated_value,
		external_estimate = EXCLUDED.external_estimate,
		valuation_source = EXCLUDED.valuation_source,
		valuation_confidence = EXCLUDED.valuation_confidence,
		is_delinquent = EXCLUDED.is_delinquent,
		has_lien = EXCLUDED.has_lien,
		is_as_is = EXCLUDED.is_as_is,
		is_pre_foreclosure = EXCLUDED.is_pre_foreclosure,
		equity_percent = EXCLUDED.equity_percent,
		price_drop_percent = EXCLUDED.price_drop_percent,
		deal_score = EXCLUDED.deal_score,
		enriched = EXCLUDED.enriched,
		enriched_at = EXCLUDED.enriched_at,
		fetched_at = EXCLUDED.fetched_at,
		updated_at = NOW()
	`
	_, err := s.conn.ExecContext(ctx, query,
		l.ID, l.Street, l.City, l.State, l.Zip, l.PropertyType,
		l.Price, l.Sqft, l.Beds, l.Baths, l.Latitude, l.Longitude, l.DaysOnMarket,
		l.EstimatedValue, l.ExternalEstimate, l.ValuationSource, l.Confidence,
		l.IsDelinquent, l.HasLien, l.IsAsIs, l.IsPreForeclosure, l.EquityPercent, l.PriceDropPercent,
		l.DealScore, l.Enriched, l.EnrichedAt, l.Status, l.FetchedAt)
	return err
}

func scanDeal(row interface{ Scan(...any) error }) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(
		&l.ID, &l.Street, &l.City, &l.State, &l.Zip, &l.PropertyType,
		&l.Price, &l.Sqft, &l.Beds, &l.Baths, &l.Latitude, &l.Longitude, &l.DaysOnMarket,
		&l.EstimatedValue, &l.ExternalEstimate, &l.ValuationSource, &l.Confidence,
		&l.IsDelinquent, &l.HasLien, &l.IsAsIs, &l.IsPreForeclosure, &l.EquityPercent, &l.PriceDropPercent,
		&l.DealScore, &l.Enriched, &l.EnrichedAt, &l.Status, &l.FetchedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetDealByID retrieves a deal by ID
func (s *PostgresStore) GetDealByID(id string) (*models.Listing, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`
	return scanDeal(s.conn.QueryRow(query, id))
}

// GetActiveDeals retrieves all active deals, best scores first
func (s *PostgresStore) GetActiveDeals() ([]models.Listing, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE status = 'active' ORDER BY deal_score DESC`

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Listing
	for rows.Next() {
		l, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *l)
	}
	return deals, rows.Err()
}

// ListDeals retrieves deals with filtering and sorting
func (s *PostgresStore) ListDeals(opts ListOptions) ([]models.Listing, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE status = 'active'`
	var args []any

	if opts.PropertyType != "" && opts.PropertyType != models.PropertyTypeUnknown {
		args = append(args, string(opts.PropertyType))
		query += fmt.Sprintf(" AND property_type = $%d", len(args))
	}
	switch opts.Distress {
	case models.DistressDelinquent:
		query += " AND is_delinquent = TRUE"
	case models.DistressLien:
		query += " AND has_lien = TRUE"
	case models.DistressAsIs:
		query += " AND is_as_is = TRUE"
	case models.DistressPreForeclosure:
		query += " AND is_pre_foreclosure = TRUE"
	}
	if opts.MinScore > 0 {
		args = append(args, opts.MinScore)
		query += fmt.Sprintf(" AND deal_score >= $%d", len(args))
	}

	switch opts.SortBy {
	case "price_asc":
		query += " ORDER BY price ASC"
	case "price_desc":
		query += " ORDER BY price DESC"
	case "discount_desc":
		query += " ORDER BY estimated_value IS NULL, price / estimated_value ASC"
	case "fetched_at_desc":
		query += " ORDER BY fetched_at DESC"
	case "dom_desc":
		query += " ORDER BY days_on_market DESC"
	default:
		query += " ORDER BY deal_score DESC"
	}

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Listing
	for rows.Next() {
		l, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *l)
	}
	return deals, rows.Err()
}

// MarkDealsStale marks deals as stale (logical deletion)
func (s *PostgresStore) MarkDealsStale(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE deals SET status = 'stale', updated_at = NOW() WHERE id = ANY($1)`
	_, err := s.conn.Exec(query, pq.Array(ids))
	return err
}

// CountDeals returns total and active deal counts
func (s *PostgresStore) CountDeals() (total int64, active int64, err error) {
	if err = s.conn.QueryRow(`SELECT COUNT(*) FROM deals`).Scan(&total); err != nil {
		return 0, 0, err
	}
	err = s.conn.QueryRow(`SELECT COUNT(*) FROM deals WHERE status = 'active'`).Scan(&active)
	return total, active, err
}
