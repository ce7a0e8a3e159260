// Package ratelimit enforces sliding-window limits on scan requests, which
// fan out into paid provider calls and deserve a tighter budget than plain
// reads.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type window struct {
	span   time.Duration
	limit  int
	events []time.Time
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	kept := w.events[:0]
	for _, t := range w.events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.events = kept
}

// ScanLimiter tracks and enforces scan rate limits over minute, hour and day
// windows.
type ScanLimiter struct {
	mu      sync.Mutex
	enabled bool
	windows []*window
}

// NewScanLimiter creates a limiter. A non-positive limit disables that window.
func NewScanLimiter(perMinute, perHour, perDay int, enabled bool) *ScanLimiter {
	l := &ScanLimiter{enabled: enabled}
	for _, w := range []struct {
		span  time.Duration
		limit int
	}{
		{time.Minute, perMinute},
		{time.Hour, perHour},
		{24 * time.Hour, perDay},
	} {
		if w.limit > 0 {
			l.windows = append(l.windows, &window{span: w.span, limit: w.limit})
		}
	}
	return l
}

// Allow records a scan if every window has headroom, and reports whether it
// was admitted.
func (l *ScanLimiter) Allow() bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for _, w := range l.windows {
		w.prune(now)
		if len(w.events) >= w.limit {
			return false
		}
	}
	for _, w := range l.windows {
		w.events = append(w.events, now)
	}
	return true
}

// WindowStats describes one window's usage.
type WindowStats struct {
	Span      string `json:"span"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

// Stats contains limiter statistics.
type Stats struct {
	Enabled bool          `json:"enabled"`
	Windows []WindowStats `json:"windows,omitempty"`
}

// GetStats returns current usage per window.
func (l *ScanLimiter) GetStats() Stats {
	if !l.enabled {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	stats := Stats{Enabled: true}
	for _, w := range l.windows {
		w.prune(now)
		remaining := w.limit - len(w.events)
		if remaining < 0 {
			remaining = 0
		}
		stats.Windows = append(stats.Windows, WindowStats{
			Span:      w.span.String(),
			Used:      len(w.events),
			Limit:     w.limit,
			Remaining: remaining,
		})
	}
	return stats
}

// Reset clears all tracked requests (useful for testing)
func (l *ScanLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.windows {
		w.events = nil
	}
}

// Middleware rejects requests with 429 once the scan budget is exhausted.
func (l *ScanLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "scan rate limit exceeded, try again later",
			})
			return
		}
		c.Next()
	}
}
