// Package scheduler runs the daily deal monitor: scheduled re-scans of the
// configured watch locations and snapshots of the saved deals. Alerts for
// high scorers are emitted by the pipeline itself as each deal is persisted.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/config"
	"github.com/neildahan/realdeal/internal/database"
	"github.com/neildahan/realdeal/internal/history"
	"github.com/neildahan/realdeal/internal/pipeline"
)

// Monitor re-scans watch locations on a cron schedule
type Monitor struct {
	cron        *cron.Cron
	coordinator *pipeline.Coordinator
	store       database.DealStore
	history     *history.Service
	cfg         config.MonitorConfig
	isRunning   bool
}

// NewMonitor creates the monitor. The history service may be nil when the
// active store cannot record snapshots.
func NewMonitor(coordinator *pipeline.Coordinator, store database.DealStore, hist *history.Service, cfg config.MonitorConfig) *Monitor {
	return &Monitor{
		cron:        cron.New(),
		coordinator: coordinator,
		store:       store,
		history:     hist,
		cfg:         cfg,
	}
}

// Start registers the daily job and starts the cron loop
func (m *Monitor) Start() error {
	if !m.cfg.Enabled {
		log.Info("Monitor: disabled in configuration")
		return nil
	}
	if len(m.cfg.WatchLocations) == 0 {
		log.Warn("Monitor: enabled but no watch locations configured")
		return nil
	}

	cronSpec, err := parseDailyRunTime(m.cfg.RunTime)
	if err != nil {
		return err
	}

	_, err = m.cron.AddFunc(cronSpec, func() {
		log.Info("Monitor: starting daily run")
		m.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	m.isRunning = true
	log.Infof("Monitor: started, daily run at %s over %d locations", m.cfg.RunTime, len(m.cfg.WatchLocations))
	return nil
}

// Stop stops the cron loop
func (m *Monitor) Stop() {
	if m.isRunning {
		m.cron.Stop()
		m.isRunning = false
		log.Info("Monitor: stopped")
	}
}

// RunOnce scans every watch location and snapshots the saved deals. Deal
// alerts fire from the pipeline's save path, not here.
func (m *Monitor) RunOnce(ctx context.Context) {
	for _, loc := range m.cfg.WatchLocations {
		result, err := m.coordinator.Search(ctx, pipeline.SearchRequest{
			Latitude:    loc.Latitude,
			Longitude:   loc.Longitude,
			RadiusMiles: loc.RadiusMiles,
		}, nil)
		if err != nil {
			log.Errorf("Monitor: scan of %s failed: %v", loc.Name, err)
			continue
		}
		log.Infof("Monitor: %s scanned, %d deals found", loc.Name, result.Total)
	}

	m.snapshotDeals()
}

// snapshotDeals records today's state of every saved deal
func (m *Monitor) snapshotDeals() {
	if m.history == nil {
		return
	}

	deals, err := m.store.GetActiveDeals()
	if err != nil {
		log.Errorf("Monitor: loading deals for snapshots failed: %v", err)
		return
	}

	snapshots, changes := m.history.SnapshotAll(deals)
	log.Infof("Monitor: recorded %d snapshots, %d changes", snapshots, changes)
}

// parseDailyRunTime converts "HH:MM" into a cron spec
func parseDailyRunTime(runTime string) (string, error) {
	parts := strings.Split(runTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid run time %q, expected HH:MM", runTime)
	}

	t, err := time.Parse("15:04", runTime)
	if err != nil {
		return "", fmt.Errorf("invalid run time %q: %w", runTime, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}
