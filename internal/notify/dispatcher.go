package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/models"
)

// Dispatcher consumes deal-saved events from the pipeline and forwards the
// high scorers to a Notifier. Each deal alerts at most once per process
// lifetime, so repeated scans of the same area stay quiet.
type Dispatcher struct {
	notifier Notifier
	minScore int

	mu      sync.Mutex
	alerted map[string]bool
}

// NewDispatcher builds a dispatcher. A nil notifier falls back to log-only
// delivery.
func NewDispatcher(notifier Notifier, minScore int) *Dispatcher {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Dispatcher{
		notifier: notifier,
		minScore: minScore,
		alerted:  make(map[string]bool),
	}
}

// DealSaved receives one persisted deal and alerts when it clears the score
// threshold and has not alerted before.
func (d *Dispatcher) DealSaved(l *models.Listing) {
	if l.DealScore < d.minScore {
		return
	}

	d.mu.Lock()
	if d.alerted[l.ID] {
		d.mu.Unlock()
		return
	}
	d.alerted[l.ID] = true
	d.mu.Unlock()

	alert := DealAlert{Deal: l, Location: l.Zip, IsNew: true}
	if err := d.notifier.NotifyDeals([]DealAlert{alert}); err != nil {
		log.Warnf("Notify: alert for %s failed: %v", l.Address(), err)
	}
}

// Reset forgets which deals have alerted, so the next scan alerts afresh.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerted = make(map[string]bool)
}
