package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/neildahan/realdeal/internal/cleanup"
	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/pipeline"
	"github.com/neildahan/realdeal/internal/scheduler"
	"github.com/neildahan/realdeal/internal/search"
)

// AdminHandler handles admin-related requests. Requires the GORM store.
type AdminHandler struct {
	db             *gorm.DB
	monitor        *scheduler.Monitor
	cleanupService *cleanup.Service
	cache          *pipeline.ResultCache
	searchClient   *search.SearchClient
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, monitor *scheduler.Monitor, cache *pipeline.ResultCache, searchClient *search.SearchClient) *AdminHandler {
	return &AdminHandler{
		db:             db,
		monitor:        monitor,
		cleanupService: cleanup.NewService(db),
		cache:          cache,
		searchClient:   searchClient,
	}
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	// Deal counts by status
	var activeCount, staleCount int64
	h.db.Model(&models.Listing{}).Where("status = ?", models.DealStatusActive).Count(&activeCount)
	h.db.Model(&models.Listing{}).Where("status = ?", models.DealStatusStale).Count(&staleCount)

	stats["deals"] = map[string]interface{}{
		"active": activeCount,
		"stale":  staleCount,
		"total":  activeCount + staleCount,
	}

	// Recent scan activity (last 24 hours)
	last24h := time.Now().AddDate(0, 0, -1)
	var recentlyFetched int64
	h.db.Model(&models.Listing{}).Where("fetched_at >= ?", last24h).Count(&recentlyFetched)
	var recentlyEnriched int64
	h.db.Model(&models.Listing{}).Where("enriched_at >= ?", last24h).Count(&recentlyEnriched)
	stats["recent_activity"] = map[string]interface{}{
		"fetched_last_24h":  recentlyFetched,
		"enriched_last_24h": recentlyEnriched,
	}

	// Snapshot statistics
	var snapshotCount int64
	h.db.Model(&models.DealSnapshot{}).Count(&snapshotCount)
	stats["snapshots"] = map[string]interface{}{
		"total": snapshotCount,
	}

	// Deal changes (last 7 days)
	last7days := time.Now().AddDate(0, 0, -7)
	var recentChanges int64
	h.db.Model(&models.DealChange{}).Where("detected_at >= ?", last7days).Count(&recentChanges)
	stats["changes"] = map[string]interface{}{
		"last_7_days": recentChanges,
	}

	// Delete logs statistics
	deleteStats, err := h.cleanupService.GetDeleteStats()
	if err != nil {
		log.Errorf("Handlers: delete stats failed: %v", err)
	} else {
		stats["deletions"] = deleteStats
	}

	// Result cache effectiveness
	if h.cache != nil {
		stats["cache"] = h.cache.Stats()
	}

	c.JSON(http.StatusOK, stats)
}

// GetScoreDistribution returns the deal score distribution
func (h *AdminHandler) GetScoreDistribution(c *gin.Context) {
	type ScoreBand struct {
		Label    string `json:"label"`
		MinScore int    `json:"min_score"`
		MaxScore int    `json:"max_score"`
		Count    int64  `json:"count"`
	}

	bands := []ScoreBand{
		{Label: "0-24", MinScore: 0, MaxScore: 25},
		{Label: "25-49", MinScore: 25, MaxScore: 50},
		{Label: "50-69", MinScore: 50, MaxScore: 70},
		{Label: "70-84", MinScore: 70, MaxScore: 85},
		{Label: "85-100", MinScore: 85, MaxScore: 101},
	}

	for i := range bands {
		var count int64
		h.db.Model(&models.Listing{}).
			Where("status = ? AND deal_score >= ? AND deal_score < ?",
				models.DealStatusActive, bands[i].MinScore, bands[i].MaxScore).
			Count(&count)
		bands[i].Count = count
	}

	c.JSON(http.StatusOK, gin.H{
		"score_distribution": bands,
	})
}

// GetZipStats returns deal counts by zip code
func (h *AdminHandler) GetZipStats(c *gin.Context) {
	type ZipStat struct {
		Zip      string  `json:"zip"`
		Count    int64   `json:"count"`
		AvgScore float64 `json:"avg_score"`
	}

	var stats []ZipStat
	err := h.db.Model(&models.Listing{}).
		Select("zip, count(*) as count, avg(deal_score) as avg_score").
		Where("status = ?", models.DealStatusActive).
		Group("zip").
		Order("count DESC").
		Limit(20).
		Scan(&stats).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"zip_stats": stats,
		"count":     len(stats),
	})
}

// TriggerMonitor manually triggers a monitor run
func (h *AdminHandler) TriggerMonitor(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "monitor not available",
		})
		return
	}

	log.Info("Handlers: manual monitor run requested")

	// Run in goroutine to avoid blocking; the scan must outlive this request
	go h.monitor.RunOnce(context.Background())

	c.JSON(http.StatusAccepted, gin.H{
		"message": "monitor run started",
		"status":  "running",
	})
}

// ClearCache drops every cached scan result
func (h *AdminHandler) ClearCache(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache not available"})
		return
	}
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}

// Reindex pushes every active deal into the search index
func (h *AdminHandler) Reindex(c *gin.Context) {
	if h.searchClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search index not available"})
		return
	}

	var deals []models.Listing
	if err := h.db.Where("status = ?", models.DealStatusActive).Find(&deals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	docs := make([]*models.Listing, 0, len(deals))
	for i := range deals {
		docs = append(docs, &deals[i])
	}
	if err := h.searchClient.IndexDeals(docs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "reindex complete",
		"indexed": len(docs),
	})
}

// RunCleanup marks stale deals and physically deletes expired ones
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		StaleAfterDays   int  `json:"stale_after_days"`
		RetentionDays    int  `json:"retention_days"`
		MaxDeletionCount int  `json:"max_deletion_count"`
		DryRun           bool `json:"dry_run"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := cleanup.DefaultConfig()
	if req.StaleAfterDays > 0 {
		cfg.StaleAfterDays = req.StaleAfterDays
	}
	if req.RetentionDays > 0 {
		cfg.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		cfg.MaxDeletionCount = req.MaxDeletionCount
	}
	cfg.DryRun = req.DryRun

	result, err := h.cleanupService.Run(cfg)
	if err != nil {
		log.Errorf("Handlers: cleanup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Drop deleted deals from the search index as well
	if h.searchClient != nil && !result.DryRun && len(result.DeletedDeals) > 0 {
		if err := h.searchClient.DeleteDeals(result.DeletedDeals); err != nil {
			log.Warnf("Handlers: removing %d deals from index failed: %v", len(result.DeletedDeals), err)
		}
	}

	c.JSON(http.StatusOK, result)
}

// GetDeleteLogs returns recent delete log entries
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.cleanupService.GetRecentDeleteLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}
