package notify

import (
	"testing"

	"github.com/neildahan/realdeal/internal/models"
)

type recordingNotifier struct {
	alerts []DealAlert
}

func (r *recordingNotifier) NotifyDeals(alerts []DealAlert) error {
	r.alerts = append(r.alerts, alerts...)
	return nil
}

func dealWithScore(street string, score int) *models.Listing {
	l := &models.Listing{Street: street, Zip: "30303", DealScore: score}
	l.EnsureID()
	return l
}

func TestDispatcherForwardsHighScorers(t *testing.T) {
	sink := &recordingNotifier{}
	d := NewDispatcher(sink, 70)

	d.DealSaved(dealWithScore("100 PEACHTREE ST", 85))
	d.DealSaved(dealWithScore("200 EDGEWOOD AVE", 40))

	if len(sink.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(sink.alerts))
	}
	if sink.alerts[0].Deal.Street != "100 PEACHTREE ST" {
		t.Errorf("alerted the wrong deal: %s", sink.alerts[0].Deal.Street)
	}
}

func TestDispatcherAlertsEachDealOnce(t *testing.T) {
	sink := &recordingNotifier{}
	d := NewDispatcher(sink, 70)
	deal := dealWithScore("100 PEACHTREE ST", 85)

	d.DealSaved(deal)
	d.DealSaved(deal)

	if len(sink.alerts) != 1 {
		t.Fatalf("got %d alerts for the same deal, want 1", len(sink.alerts))
	}

	d.Reset()
	d.DealSaved(deal)
	if len(sink.alerts) != 2 {
		t.Errorf("got %d alerts after reset, want 2", len(sink.alerts))
	}
}
