package providers

import (
	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/config"
)

// NewBundle wires each capability to its live client when credentials are
// configured, falling back to the deterministic offline generator otherwise.
// A partially-configured deployment is normal: any mix of live and mock
// sources works.
func NewBundle(cfg config.ProvidersConfig) Bundle {
	bundle := MockBundle()

	if cfg.Listings.Live() {
		bundle.Listings = NewLiveListingSource(clientOptions(cfg.Listings))
		log.Info("Providers: listings source is live")
	} else {
		log.Info("Providers: listings source is the offline fallback")
	}

	if cfg.Distress.Live() {
		bundle.Distress = NewLiveDistressSource(clientOptions(cfg.Distress))
		log.Info("Providers: distress source is live")
	}
	if cfg.Liens.Live() {
		bundle.Liens = NewLiveLienSource(clientOptions(cfg.Liens))
		log.Info("Providers: lien source is live")
	}
	if cfg.AVM.Live() {
		bundle.AVM = NewLiveAVMSource(clientOptions(cfg.AVM))
		log.Info("Providers: AVM source is live")
	}
	if cfg.PointEstimate.Live() {
		bundle.PointEstimate = NewLivePointEstimateSource(clientOptions(cfg.PointEstimate))
		log.Info("Providers: point estimate source is live")
	}

	return bundle
}

func clientOptions(p config.ProviderConfig) ClientOptions {
	return ClientOptions{
		BaseURL:           p.BaseURL,
		APIKey:            p.APIKey,
		RequestsPerSecond: p.RequestsPerSecond,
		Timeout:           p.GetTimeout(),
		MaxRetries:        p.MaxRetries,
		RetryDelay:        p.GetRetryDelay(),
	}
}
