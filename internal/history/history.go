// Package history records daily snapshots of saved deals and detects changes
// between them.
package history

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/neildahan/realdeal/internal/models"
)

// Service handles deal snapshot operations
type Service struct {
	db *gorm.DB
}

// NewService creates a new history service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateSnapshot creates (or refreshes) today's snapshot of a deal
func (s *Service) CreateSnapshot(deal *models.Listing) error {
	snapshot := &models.DealSnapshot{
		DealID:          deal.ID,
		SnapshotAt:      time.Now().Truncate(24 * time.Hour), // Truncate to date only
		Price:           deal.Price,
		EstimatedValue:  deal.EstimatedValue,
		ValuationSource: deal.ValuationSource,
		DealScore:       deal.DealScore,
		DaysOnMarket:    deal.DaysOnMarket,
		Status:          string(deal.Status),
		HasChanged:      false,
	}

	// Check if a snapshot already exists for today
	var existing models.DealSnapshot
	result := s.db.Where("deal_id = ? AND snapshot_at = ?", deal.ID, snapshot.SnapshotAt).First(&existing)

	if result.Error == gorm.ErrRecordNotFound {
		return s.db.Create(snapshot).Error
	} else if result.Error != nil {
		return result.Error
	}

	// Update existing snapshot
	snapshot.ID = existing.ID
	snapshot.CreatedAt = existing.CreatedAt
	return s.db.Save(snapshot).Error
}

// DetectChanges compares the deal's current state with the most recent
// snapshot from a previous day
func (s *Service) DetectChanges(deal *models.Listing) ([]models.DealChange, error) {
	var lastSnapshot models.DealSnapshot
	today := time.Now().Truncate(24 * time.Hour)

	result := s.db.Where("deal_id = ? AND snapshot_at < ?", deal.ID, today).
		Order("snapshot_at DESC").
		First(&lastSnapshot)

	if result.Error == gorm.ErrRecordNotFound {
		// No previous snapshot, this is a new deal
		return []models.DealChange{{
			DealID:     deal.ID,
			ChangeType: models.ChangeTypeNew,
			NewValue:   "New deal detected",
			DetectedAt: time.Now(),
		}}, nil
	} else if result.Error != nil {
		return nil, result.Error
	}

	changes := []models.DealChange{}

	// Price change
	if deal.Price != lastSnapshot.Price {
		magnitude := deal.Price - lastSnapshot.Price
		changes = append(changes, models.DealChange{
			DealID:          deal.ID,
			SnapshotID:      lastSnapshot.ID,
			ChangeType:      models.ChangeTypePrice,
			OldValue:        fmt.Sprintf("%.0f", lastSnapshot.Price),
			NewValue:        fmt.Sprintf("%.0f", deal.Price),
			ChangeMagnitude: &magnitude,
			DetectedAt:      time.Now(),
		})
	}

	// Estimated value change
	if !floatPtrEqual(deal.EstimatedValue, lastSnapshot.EstimatedValue) {
		oldVal, newVal := "nil", "nil"
		var magnitude float64
		if lastSnapshot.EstimatedValue != nil {
			oldVal = fmt.Sprintf("%.0f", *lastSnapshot.EstimatedValue)
		}
		if deal.EstimatedValue != nil {
			newVal = fmt.Sprintf("%.0f", *deal.EstimatedValue)
		}
		if lastSnapshot.EstimatedValue != nil && deal.EstimatedValue != nil {
			magnitude = *deal.EstimatedValue - *lastSnapshot.EstimatedValue
		}
		changes = append(changes, models.DealChange{
			DealID:          deal.ID,
			SnapshotID:      lastSnapshot.ID,
			ChangeType:      models.ChangeTypeValue,
			OldValue:        oldVal,
			NewValue:        newVal,
			ChangeMagnitude: &magnitude,
			DetectedAt:      time.Now(),
		})
	}

	// Score change
	if deal.DealScore != lastSnapshot.DealScore {
		magnitude := float64(deal.DealScore - lastSnapshot.DealScore)
		changes = append(changes, models.DealChange{
			DealID:          deal.ID,
			SnapshotID:      lastSnapshot.ID,
			ChangeType:      models.ChangeTypeScore,
			OldValue:        fmt.Sprintf("%d", lastSnapshot.DealScore),
			NewValue:        fmt.Sprintf("%d", deal.DealScore),
			ChangeMagnitude: &magnitude,
			DetectedAt:      time.Now(),
		})
	}

	// Status change
	if string(deal.Status) != lastSnapshot.Status {
		changes = append(changes, models.DealChange{
			DealID:     deal.ID,
			SnapshotID: lastSnapshot.ID,
			ChangeType: models.ChangeTypeStatus,
			OldValue:   lastSnapshot.Status,
			NewValue:   string(deal.Status),
			DetectedAt: time.Now(),
		})
	}

	return changes, nil
}

// SaveChanges persists detected changes and flags today's snapshot
func (s *Service) SaveChanges(dealID string, changes []models.DealChange) error {
	if len(changes) == 0 {
		return nil
	}

	if err := s.db.Create(&changes).Error; err != nil {
		return err
	}

	today := time.Now().Truncate(24 * time.Hour)
	note := fmt.Sprintf("%d change(s) detected", len(changes))
	return s.db.Model(&models.DealSnapshot{}).
		Where("deal_id = ? AND snapshot_at = ?", dealID, today).
		Updates(map[string]interface{}{
			"has_changed": true,
			"change_note": note,
		}).Error
}

// SnapshotAll snapshots every deal in the slice and records the changes each
// one accumulated since its previous snapshot. Per-deal failures are logged
// and skipped.
func (s *Service) SnapshotAll(deals []models.Listing) (snapshots int, changes int) {
	for i := range deals {
		deal := &deals[i]

		detected, err := s.DetectChanges(deal)
		if err != nil {
			log.Warnf("History: change detection failed for %s: %v", deal.Address(), err)
			continue
		}
		if err := s.CreateSnapshot(deal); err != nil {
			log.Warnf("History: snapshot failed for %s: %v", deal.Address(), err)
			continue
		}
		snapshots++

		if err := s.SaveChanges(deal.ID, detected); err != nil {
			log.Warnf("History: saving changes failed for %s: %v", deal.Address(), err)
			continue
		}
		changes += len(detected)
	}
	return snapshots, changes
}

// GetDealHistory returns a deal's snapshots, newest first
func (s *Service) GetDealHistory(dealID string, limit int) ([]models.DealSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	var snapshots []models.DealSnapshot
	err := s.db.Where("deal_id = ?", dealID).
		Order("snapshot_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}

// GetRecentChanges returns the latest detected changes across all deals
func (s *Service) GetRecentChanges(limit int) ([]models.DealChange, error) {
	if limit <= 0 {
		limit = 50
	}
	var changes []models.DealChange
	err := s.db.Order("detected_at DESC").
		Limit(limit).
		Find(&changes).Error
	return changes, err
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
