package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/config"
	"github.com/neildahan/realdeal/internal/enrich"
	"github.com/neildahan/realdeal/internal/models"
	"github.com/neildahan/realdeal/internal/pipeline"
	"github.com/neildahan/realdeal/internal/providers"
)

// One-shot scan from the command line. No database, no index: fetch, value,
// score, enrich and print. Useful for eyeballing an area and for exercising
// the whole pipeline offline against the deterministic providers.
func main() {
	lat := flag.Float64("lat", 0, "search origin latitude (required)")
	lng := flag.Float64("lng", 0, "search origin longitude (required)")
	radius := flag.Float64("radius", 5, "search radius in miles")
	distress := flag.String("distress", "", "distress filter: delinquent, lien, as_is, pre_foreclosure")
	minScore := flag.Int("min-score", 0, "minimum deal score (0-100)")
	limit := flag.Int("limit", 20, "max deals to print")
	configPath := flag.String("config", "config/realdeal.yaml", "config file path")
	flag.Parse()

	if *lat == 0 && *lng == 0 {
		fmt.Fprintln(os.Stderr, "usage: scan -lat <latitude> -lng <longitude> [-radius miles]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Warnf("Failed to load config: %v. Using defaults.", err)
		cfg = config.DefaultConfig()
	}
	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}

	bundle := providers.NewBundle(cfg.Providers)
	enricher := enrich.New(bundle, enrich.Config{
		DistressBudget:   cfg.Enrichment.DistressBatchSize,
		RefineBudget:     cfg.Enrichment.RefineBatchSize,
		ValidateBudget:   cfg.Enrichment.ValidateBatchSize,
		ValidateMinScore: cfg.Enrichment.MinScoreToValidate,
		BlendPriorWeight: cfg.Enrichment.BlendPriorWeight,
	})
	coordinator := pipeline.New(bundle, enricher, nil, nil, nil, nil,
		pipeline.Config{MaxPages: cfg.Pipeline.MaxPages})

	req := pipeline.SearchRequest{
		Latitude:    *lat,
		Longitude:   *lng,
		RadiusMiles: *radius,
		Filters: models.SearchFilters{
			Distress: models.DistressFilter(*distress),
			MinScore: *minScore,
		},
	}

	progress := func(e pipeline.Event) {
		if e.Total > 0 {
			log.Infof("[%3d%%] %s (%d/%d)", e.Percent, e.Message, e.Current, e.Total)
		} else {
			log.Infof("[%3d%%] %s", e.Percent, e.Message)
		}
	}

	result, err := coordinator.Search(context.Background(), req, progress)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("\n%d deals near (%.4f, %.4f), area median price $%.0f\n\n",
		result.Total, req.Latitude, req.Longitude, result.AreaMedianPrice)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tADDRESS\tPRICE\tEST VALUE\tDISCOUNT\tFLAGS")
	for i, deal := range result.Results {
		if i >= *limit {
			break
		}
		value := "-"
		if deal.EstimatedValue != nil {
			value = fmt.Sprintf("$%.0f", *deal.EstimatedValue)
		}
		discount := "-"
		if d := deal.DiscountPercent(); d > 0 {
			discount = fmt.Sprintf("%.0f%%", d)
		}
		fmt.Fprintf(w, "%d\t%s\t$%.0f\t%s\t%s\t%s\n",
			deal.DealScore, deal.Address(), deal.Price, value, discount, flagString(deal))
	}
	w.Flush()
}

func flagString(deal *models.Listing) string {
	flags := ""
	if deal.IsDelinquent {
		flags += "D"
	}
	if deal.IsPreForeclosure {
		flags += "F"
	}
	if deal.HasLien {
		flags += "L"
	}
	if deal.IsAsIs {
		flags += "A"
	}
	if flags == "" {
		return "-"
	}
	return flags
}
