// Package handlers implements the HTTP surface over the scan pipeline, the
// deal store, and the search index.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/pipeline"
)

// ScanHandler handles synchronous deal scans
type ScanHandler struct {
	coordinator *pipeline.Coordinator
}

// NewScanHandler creates a new scan handler
func NewScanHandler(coordinator *pipeline.Coordinator) *ScanHandler {
	return &ScanHandler{coordinator: coordinator}
}

// parseSearchRequest builds a pipeline request from query parameters.
// Returns a descriptive error string when a parameter is malformed.
func parseSearchRequest(c *gin.Context) (pipeline.SearchRequest, string) {
	var req pipeline.SearchRequest

	latStr := c.Query("lat")
	lngStr := c.Query("lng")
	if latStr == "" || lngStr == "" {
		return req, "lat and lng query parameters are required"
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return req, "invalid lat parameter"
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return req, "invalid lng parameter"
	}
	req.Latitude = lat
	req.Longitude = lng

	if radiusStr := c.Query("radius"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 {
			return req, "invalid radius parameter"
		}
		req.RadiusMiles = radius
	}

	if t := c.Query("property_type"); t != "" {
		req.Filters.PropertyType = models.NormalizeType(t)
	}
	if d := c.Query("distress"); d != "" {
		switch models.DistressFilter(d) {
		case models.DistressNone, models.DistressDelinquent, models.DistressLien,
			models.DistressAsIs, models.DistressPreForeclosure:
			req.Filters.Distress = models.DistressFilter(d)
		default:
			return req, "invalid distress parameter"
		}
	}
	if s := c.Query("min_score"); s != "" {
		minScore, err := strconv.Atoi(s)
		if err != nil || minScore < 0 || minScore > 100 {
			return req, "min_score must be an integer between 0 and 100"
		}
		req.Filters.MinScore = minScore
	}
	if d := c.Query("min_discount"); d != "" {
		minDiscount, err := strconv.ParseFloat(d, 64)
		if err != nil || minDiscount < 0 || minDiscount > 50 {
			return req, "min_discount must be between 0 and 50"
		}
		req.Filters.MinDiscount = minDiscount
	}

	// Optional viewport bounds: all four corners or none
	corners := []string{c.Query("min_lat"), c.Query("max_lat"), c.Query("min_lng"), c.Query("max_lng")}
	provided := 0
	for _, v := range corners {
		if v != "" {
			provided++
		}
	}
	if provided > 0 {
		if provided < len(corners) {
			return req, "bounds require min_lat, max_lat, min_lng and max_lng together"
		}
		vals := make([]float64, len(corners))
		for i, v := range corners {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return req, "invalid bounds parameter"
			}
			vals[i] = f
		}
		b := &models.Bounds{MinLat: vals[0], MaxLat: vals[1], MinLng: vals[2], MaxLng: vals[3]}
		if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
			return req, "bounds are inverted"
		}
		req.Bounds = b
	}

	return req, ""
}

// Search runs a blocking scan and returns the full result
func (h *ScanHandler) Search(c *gin.Context) {
	req, errMsg := parseSearchRequest(c)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	result, err := h.coordinator.Search(c.Request.Context(), req, nil)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidCoordinates) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("Handlers: scan failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
