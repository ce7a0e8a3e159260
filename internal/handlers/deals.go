package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/database"
	"github.com/neildahan/realdeal/internal/history"
	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/search"
)

// DealsHandler serves saved deals from the store and the search index
type DealsHandler struct {
	store        database.DealStore
	searchClient *search.SearchClient
	history      *history.Service
}

// NewDealsHandler creates a new deals handler. The history service may be nil
// when the active store cannot record snapshots.
func NewDealsHandler(store database.DealStore, searchClient *search.SearchClient, hist *history.Service) *DealsHandler {
	return &DealsHandler{store: store, searchClient: searchClient, history: hist}
}

// List returns saved deals with filtering and sorting
func (h *DealsHandler) List(c *gin.Context) {
	opts := database.ListOptions{
		SortBy: c.DefaultQuery("sort", "score_desc"),
	}

	if t := c.Query("property_type"); t != "" {
		opts.PropertyType = models.NormalizeType(t)
	}
	if d := c.Query("distress"); d != "" {
		opts.Distress = models.DistressFilter(d)
	}
	if s := c.Query("min_score"); s != "" {
		minScore, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_score parameter"})
			return
		}
		opts.MinScore = minScore
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		opts.Limit = limit
	}

	deals, err := h.store.ListDeals(opts)
	if err != nil {
		log.Errorf("Handlers: listing deals failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deals": deals,
		"count": len(deals),
	})
}

// Get returns one saved deal by ID
func (h *DealsHandler) Get(c *gin.Context) {
	deal, err := h.store.GetDealByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
		return
	}
	c.JSON(http.StatusOK, deal)
}

// Search performs a free-text search over the deal index
func (h *DealsHandler) Search(c *gin.Context) {
	if h.searchClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search index not available"})
		return
	}

	params := search.FilterParams{
		Query:  c.Query("q"),
		Zip:    c.Query("zip"),
		SortBy: c.Query("sort"),
	}
	if t := c.Query("property_type"); t != "" {
		params.PropertyType = models.NormalizeType(t)
	}
	if d := c.Query("distress"); d != "" {
		params.Distress = models.DistressFilter(d)
	}
	if s := c.Query("min_score"); s != "" {
		minScore, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_score parameter"})
			return
		}
		params.MinScore = &minScore
	}
	if p := c.Query("max_price"); p != "" {
		maxPrice, err := strconv.ParseFloat(p, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price parameter"})
			return
		}
		params.MaxPrice = &maxPrice
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.ParseInt(l, 10, 64)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		params.Limit = limit
	}

	deals, err := h.searchClient.FilterSearch(params)
	if err != nil {
		log.Errorf("Handlers: index search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deals": deals,
		"count": len(deals),
	})
}

// History returns snapshot history for a deal
func (h *DealsHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not available (MySQL required)"})
		return
	}

	dealID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	snapshots, err := h.history.GetDealHistory(dealID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deal_id":   dealID,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// RecentChanges returns the latest detected deal changes
func (h *DealsHandler) RecentChanges(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not available (MySQL required)"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	changes, err := h.history.GetRecentChanges(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}
