// Package cleanup handles deal staleness marking and the physical deletion of
// deals that have been stale past the retention window.
package cleanup

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/neildahan/realdeal/internal/models"
)

// Service handles stale marking and physical deletion of old deals
type Service struct {
	db *gorm.DB
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Config holds configuration for cleanup operations
type Config struct {
	StaleAfterDays   int  // Days without a refresh before a deal is marked stale (default: 14)
	RetentionDays    int  // Days to keep stale deals before physical deletion (default: 90)
	MaxDeletionCount int  // Maximum number of deals to delete in one run (safety limit)
	DryRun           bool // If true, only log what would be deleted without actually deleting
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		StaleAfterDays:   14,
		RetentionDays:    90,
		MaxDeletionCount: 10000,
		DryRun:           false,
	}
}

// Result holds the result of a cleanup operation
type Result struct {
	MarkedStale  int       `json:"marked_stale"`
	TargetCount  int       `json:"target_count"`
	DeletedCount int       `json:"deleted_count"`
	ErrorCount   int       `json:"error_count"`
	DryRun       bool      `json:"dry_run"`
	ExecutedAt   time.Time `json:"executed_at"`
	DeletedDeals []string  `json:"deleted_deals,omitempty"`
	Errors       []string  `json:"errors,omitempty"`
}

// MarkStaleDeals flips active deals to stale when no scan has refreshed them
// within the staleness window
func (s *Service) MarkStaleDeals(staleAfterDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -staleAfterDays)

	result := s.db.Model(&models.Listing{}).
		Where("status = ? AND fetched_at < ?", models.DealStatusActive, cutoff).
		Update("status", models.DealStatusStale)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark stale deals: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Infof("Cleanup: marked %d deals stale (no refresh since %s)",
			result.RowsAffected, cutoff.Format("2006-01-02"))
	}
	return result.RowsAffected, nil
}

// FindExpiredDeals finds stale deals whose last refresh is older than the
// retention window and are therefore eligible for physical deletion
func (s *Service) FindExpiredDeals(retentionDays int) ([]models.Listing, error) {
	var deals []models.Listing

	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	err := s.db.Where("status = ? AND fetched_at < ?",
		models.DealStatusStale,
		cutoffDate,
	).Find(&deals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired deals: %w", err)
	}

	log.Infof("Cleanup: found %d deals expired before %s", len(deals), cutoffDate.Format("2006-01-02"))
	return deals, nil
}

// Run marks stale deals and physically deletes those past retention
func (s *Service) Run(config Config) (*Result, error) {
	result := &Result{
		DryRun:     config.DryRun,
		ExecutedAt: time.Now(),
	}

	marked, err := s.MarkStaleDeals(config.StaleAfterDays)
	if err != nil {
		return nil, err
	}
	result.MarkedStale = int(marked)

	expiredDeals, err := s.FindExpiredDeals(config.RetentionDays)
	if err != nil {
		return nil, err
	}
	result.TargetCount = len(expiredDeals)

	if result.TargetCount == 0 {
		log.Info("Cleanup: no expired deals found for deletion")
		return result, nil
	}

	// Safety check: abort if too many deals would be deleted
	if result.TargetCount > config.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d deals exceed max deletion limit of %d",
			result.TargetCount, config.MaxDeletionCount)
	}

	log.Infof("Cleanup: deleting %d deals (retention: %d days, dry-run: %v)",
		result.TargetCount, config.RetentionDays, config.DryRun)

	for _, deal := range expiredDeals {
		if config.DryRun {
			log.Infof("Cleanup: [DRY-RUN] would delete deal %s (%s, last fetched %s)",
				deal.ID, deal.Address(), deal.FetchedAt.Format("2006-01-02"))
			result.DeletedDeals = append(result.DeletedDeals, deal.ID)
			result.DeletedCount++
			continue
		}

		// Delete log entry and deal removal must commit together
		tx := s.db.Begin()

		staleAt := deal.UpdatedAt
		deleteLog := models.DeleteLog{
			DealID:    deal.ID,
			Address:   deal.Address(),
			DealScore: deal.DealScore,
			StaleAt:   &staleAt,
			Reason:    models.DeleteReasonExpired,
		}
		if err := tx.Create(&deleteLog).Error; err != nil {
			tx.Rollback()
			errMsg := fmt.Sprintf("failed to create delete log for deal %s: %v", deal.ID, err)
			log.Errorf("Cleanup: %s", errMsg)
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		if err := tx.Delete(&deal).Error; err != nil {
			tx.Rollback()
			errMsg := fmt.Sprintf("failed to delete deal %s: %v", deal.ID, err)
			log.Errorf("Cleanup: %s", errMsg)
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		if err := tx.Commit().Error; err != nil {
			errMsg := fmt.Sprintf("failed to commit deletion for deal %s: %v", deal.ID, err)
			log.Errorf("Cleanup: %s", errMsg)
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		log.Infof("Cleanup: physically deleted deal %s (%s)", deal.ID, deal.Address())
		result.DeletedDeals = append(result.DeletedDeals, deal.ID)
		result.DeletedCount++
	}

	log.Infof("Cleanup: completed, %d/%d deleted, %d errors (dry-run: %v)",
		result.DeletedCount, result.TargetCount, result.ErrorCount, config.DryRun)

	return result, nil
}

// GetDeleteStats returns statistics about deleted deals
func (s *Service) GetDeleteStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalDeleted int64
	if err := s.db.Model(&models.DeleteLog{}).Count(&totalDeleted).Error; err != nil {
		return nil, err
	}
	stats["total_deleted"] = totalDeleted

	var reasonCounts []struct {
		Reason string
		Count  int64
	}
	if err := s.db.Model(&models.DeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&reasonCounts).Error; err != nil {
		return nil, err
	}

	reasonMap := make(map[string]int64)
	for _, rc := range reasonCounts {
		reasonMap[rc.Reason] = rc.Count
	}
	stats["by_reason"] = reasonMap

	var recentDeleted int64
	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	if err := s.db.Model(&models.DeleteLog{}).
		Where("deleted_at >= ?", thirtyDaysAgo).
		Count(&recentDeleted).Error; err != nil {
		return nil, err
	}
	stats["deleted_last_30_days"] = recentDeleted

	var currentStale int64
	if err := s.db.Model(&models.Listing{}).
		Where("status = ?", models.DealStatusStale).
		Count(&currentStale).Error; err != nil {
		return nil, err
	}
	stats["currently_stale"] = currentStale

	return stats, nil
}

// GetRecentDeleteLogs returns recent delete log entries
func (s *Service) GetRecentDeleteLogs(limit int) ([]models.DeleteLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.DeleteLog
	err := s.db.Order("deleted_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
