package providers

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/neildahan/realdeal/internal/models"
)

// Deterministic offline generators. Every mock derives its output from a hash
// of its inputs, so the same request always produces the same data and the
// pipeline's control flow can be exercised with no credentials and no network.

func seedFor(parts ...string) int64 {
	hash := md5.Sum([]byte(strings.Join(parts, "|")))
	return int64(binary.BigEndian.Uint64(hash[:8]) & math.MaxInt64)
}

var (
	mockStreetNames = []string{
		"Oak", "Maple", "Cedar", "Peachtree", "Highland", "Jefferson",
		"Magnolia", "Dogwood", "Sycamore", "Willow", "Ashby", "Glenwood",
	}
	mockStreetSuffixes = []string{"St", "Ave", "Dr", "Rd", "Ln", "Way"}
	mockTypes          = []models.PropertyType{
		models.PropertyTypeSingleFamily,
		models.PropertyTypeSingleFamily,
		models.PropertyTypeSingleFamily,
		models.PropertyTypeCondo,
		models.PropertyTypeTownhouse,
		models.PropertyTypeMultiFamily,
		models.PropertyTypeUnknown,
	}
)

// MockListingSource fabricates a stable neighborhood of listings around any
// coordinate.
type MockListingSource struct {
	PageSize int
}

// NewMockListingSource returns the deterministic listing fallback.
func NewMockListingSource() *MockListingSource {
	return &MockListingSource{PageSize: 25}
}

func (s *MockListingSource) SearchNear(_ context.Context, lat, lng, radiusMiles float64, page int) (*SearchPage, error) {
	if page < 1 {
		page = 1
	}
	areaKey := fmt.Sprintf("%.3f,%.3f", lat, lng)
	total := 30 + int(seedFor(areaKey, "count")%46) // 30-75 listings per area

	start := (page - 1) * s.PageSize
	if start >= total {
		return &SearchPage{}, nil
	}
	end := start + s.PageSize
	if end > total {
		end = total
	}

	result := &SearchPage{HasMore: end < total}
	for i := start; i < end; i++ {
		result.Listings = append(result.Listings, s.generate(areaKey, lat, lng, radiusMiles, i))
	}
	return result, nil
}

func (s *MockListingSource) generate(areaKey string, lat, lng, radiusMiles float64, i int) *models.Listing {
	rng := rand.New(rand.NewSource(seedFor(areaKey, fmt.Sprintf("listing-%d", i))))

	zip := fmt.Sprintf("%05d", 10000+int(seedFor(areaKey, "zip")%89000)+rng.Intn(4))
	street := fmt.Sprintf("%d %s %s",
		100+rng.Intn(9900),
		mockStreetNames[rng.Intn(len(mockStreetNames))],
		mockStreetSuffixes[rng.Intn(len(mockStreetSuffixes))])

	basePrice := 120000 + float64(seedFor(zip, "base")%230000)
	price := basePrice * (0.6 + rng.Float64()*1.2)
	price = math.Round(price/1000) * 1000

	l := &models.Listing{
		Street:       street,
		City:         "Riverton",
		State:        "GA",
		Zip:          zip,
		PropertyType: mockTypes[rng.Intn(len(mockTypes))],
		Price:        price,
		DaysOnMarket: rng.Intn(120),
		FetchedAt:    time.Now(),
	}

	// A few listings arrive without a usable geocode.
	if rng.Intn(100) < 3 {
		l.Latitude, l.Longitude = 0, 0
	} else {
		// Scatter inside the radius; ~69 miles per degree of latitude.
		degRadius := radiusMiles / 69.0
		angle := rng.Float64() * 2 * math.Pi
		dist := rng.Float64() * degRadius
		l.Latitude = lat + dist*math.Sin(angle)
		l.Longitude = lng + dist*math.Cos(angle)/math.Cos(lat*math.Pi/180)
	}

	if rng.Intn(100) < 88 {
		sqft := 700 + rng.Float64()*2800
		sqft = math.Round(sqft)
		l.Sqft = &sqft
		beds := 1 + rng.Intn(5)
		baths := float64(1+rng.Intn(3)) + 0.5*float64(rng.Intn(2))
		l.Beds = &beds
		l.Baths = &baths
	}

	if rng.Intn(100) < 40 {
		est := price * (0.85 + rng.Float64()*0.5)
		if rng.Intn(100) < 5 {
			est = price * 8 // the occasional absurd AVM output
		}
		est = math.Round(est/1000) * 1000
		l.ExternalEstimate = &est
	}

	if rng.Intn(100) < 7 {
		l.IsAsIs = true
	}
	if rng.Intn(100) < 25 {
		drop := 1 + rng.Float64()*19
		drop = math.Round(drop*10) / 10
		l.PriceDropPercent = &drop
	}

	l.EnsureID()
	return l
}

// MockDistressSource fabricates a stable distress report per address.
type MockDistressSource struct{}

func (MockDistressSource) Lookup(_ context.Context, addr Address) (*DistressResult, error) {
	rng := rand.New(rand.NewSource(seedFor(addr.Key(), "distress")))

	result := &DistressResult{
		IsDelinquent:     rng.Intn(100) < 12,
		IsPreForeclosure: rng.Intn(100) < 8,
		DaysOnMarket:     rng.Intn(90),
	}
	if rng.Intn(100) < 70 {
		equity := math.Round(10 + rng.Float64()*70)
		result.EquityPercent = &equity
	}
	if rng.Intn(100) < 50 {
		value := math.Round((90000+rng.Float64()*360000)/1000) * 1000
		result.MarketValue = &value
	}
	return result, nil
}

// MockLienSource fabricates a stable batched lien report.
type MockLienSource struct{}

func (MockLienSource) LookupBatch(_ context.Context, addrs []Address) (map[string]LienResult, error) {
	results := make(map[string]LienResult, len(addrs))
	for _, addr := range addrs {
		rng := rand.New(rand.NewSource(seedFor(addr.Key(), "lien")))
		entry := LienResult{HasLien: rng.Intn(100) < 15}
		if rng.Intn(100) < 30 {
			drop := math.Round(rng.Float64()*200) / 10
			entry.PriceDropPercent = &drop
		}
		results[addr.Key()] = entry
	}
	return results, nil
}

// MockAVMSource fabricates a stable AVM report; some addresses have none.
type MockAVMSource struct{}

func (MockAVMSource) Lookup(_ context.Context, addr Address) (*AVMResult, error) {
	rng := rand.New(rand.NewSource(seedFor(addr.Key(), "avm")))
	if rng.Intn(100) < 15 {
		return nil, nil
	}

	value := math.Round((100000+rng.Float64()*320000)/1000) * 1000
	result := &AVMResult{
		Value:     value,
		RangeLow:  math.Round(value * 0.92),
		RangeHigh: math.Round(value * 1.08),
	}
	for i := 0; i < 3; i++ {
		result.Comparables = append(result.Comparables, Comparable{
			Street: fmt.Sprintf("%d %s %s",
				100+rng.Intn(9900),
				mockStreetNames[rng.Intn(len(mockStreetNames))],
				mockStreetSuffixes[rng.Intn(len(mockStreetSuffixes))]),
			SalePrice: math.Round(value * (0.9 + rng.Float64()*0.2)),
			Sqft:      math.Round(900 + rng.Float64()*2200),
			Distance:  math.Round(rng.Float64()*20) / 10,
		})
	}
	return result, nil
}

// MockPointEstimateSource fabricates a stable point estimate; some addresses
// have none.
type MockPointEstimateSource struct{}

func (MockPointEstimateSource) Lookup(_ context.Context, addr Address) (*PointEstimateResult, error) {
	rng := rand.New(rand.NewSource(seedFor(addr.Key(), "point")))
	if rng.Intn(100) < 20 {
		return nil, nil
	}

	value := math.Round((100000+rng.Float64()*320000)/1000) * 1000
	return &PointEstimateResult{
		PointEstimate: value,
		RentEstimate:  math.Round(value * 0.008),
	}, nil
}

// MockBundle returns a bundle wired entirely to the deterministic fallbacks.
func MockBundle() Bundle {
	return Bundle{
		Listings:      NewMockListingSource(),
		Distress:      MockDistressSource{},
		Liens:         MockLienSource{},
		AVM:           MockAVMSource{},
		PointEstimate: MockPointEstimateSource{},
	}
}
