package domain

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64
	Lon float64
}

const (
	// StateJitter bounds the offset applied around a known state centroid.
	StateJitter = 0.15
	// NationalJitter bounds the offset applied around the national centroid.
	NationalJitter = 2.0
)

// NationalCentroid is the geographic centre of India.
var NationalCentroid = Coordinates{Lat: 20.5937, Lon: 78.9629}

// stateCentroids are keyed by lower-case state name.
var stateCentroids = map[string]Coordinates{
	"uttar pradesh":  {26.8467, 80.9462},
	"delhi":          {28.7041, 77.1025},
	"maharashtra":    {19.7515, 75.7139},
	"karnataka":      {15.3173, 75.7139},
	"tamil nadu":     {11.1271, 78.6569},
	"west bengal":    {22.9868, 87.8550},
	"gujarat":        {23.0225, 72.5714},
	"rajasthan":      {27.0238, 74.2179},
	"madhya pradesh": {22.9734, 78.6569},
	"andhra pradesh": {15.9129, 79.7400},
}

// StateCentroid returns the registered centroid for state, matched
// case-insensitively.
func StateCentroid(state string) (Coordinates, bool) {
	c, ok := stateCentroids[strings.ToLower(strings.TrimSpace(state))]
	return c, ok
}

// GeoResolver supplies coordinates for records that do not carry them.
type GeoResolver struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGeoResolver creates a resolver drawing jitter from rng. A nil rng uses
// a randomly seeded source.
func NewGeoResolver(rng *rand.Rand) *GeoResolver {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &GeoResolver{rng: rng}
}

// Resolve returns the known coordinates when both are present. Otherwise it
// jitters the state's centroid by up to StateJitter degrees, or the national
// centroid by up to NationalJitter degrees when the state is not registered.
func (g *GeoResolver) Resolve(state string, lat, lon *float64) (float64, float64) {
	if lat != nil && lon != nil {
		return *lat, *lon
	}
	center, spread := NationalCentroid, NationalJitter
	if c, ok := StateCentroid(state); ok {
		center, spread = c, StateJitter
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return center.Lat + g.offset(spread), center.Lon + g.offset(spread)
}

// offset draws uniformly from [-spread, spread).
func (g *GeoResolver) offset(spread float64) float64 {
	return (g.rng.Float64()*2 - 1) * spread
}
