package domain

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"
)

// stateRivers lists the monitored rivers per state in generation order.
var stateRivers = []struct {
	State  string
	Rivers []string
}{
	{"Uttar Pradesh", []string{"Ganga", "Yamuna", "Gomti", "Ghaghara"}},
	{"Delhi", []string{"Yamuna"}},
	{"Maharashtra", []string{"Godavari", "Krishna", "Tapi", "Narmada"}},
	{"Karnataka", []string{"Krishna", "Cauvery", "Tungabhadra"}},
	{"Tamil Nadu", []string{"Cauvery", "Vaigai", "Thamirabarani"}},
	{"West Bengal", []string{"Ganga", "Hooghly", "Damodar"}},
	{"Gujarat", []string{"Narmada", "Tapi", "Sabarmati"}},
	{"Rajasthan", []string{"Chambal", "Luni", "Banas"}},
	{"Madhya Pradesh", []string{"Narmada", "Chambal", "Betwa", "Sone"}},
	{"Andhra Pradesh", []string{"Godavari", "Krishna", "Penna"}},
}

const (
	sampleMinDates = 10
	sampleMaxDates = 20
	sampleWindow   = 30 // days before the reference time
	sampleSpread   = 0.5
)

// SampleGenerator fabricates long-format records for development and demos.
type SampleGenerator struct {
	catalog *Catalog
	seed    uint64
	now     time.Time
}

// NewSampleGenerator creates a generator. Output depends only on seed, the
// source name and the calendar date of now.
func NewSampleGenerator(catalog *Catalog, seed uint64, now time.Time) *SampleGenerator {
	return &SampleGenerator{catalog: catalog, seed: seed, now: dateOnly(now)}
}

// Generate returns synthetic records for sourceName. It fails with
// ErrSampleDataDisallowed unless rc allows sample data.
func (g *SampleGenerator) Generate(rc RunContext, sourceName string) ([]RawRecord, error) {
	if !rc.AllowSampleData() {
		return nil, fmt.Errorf("generate sample data for %s: %w", sourceName, ErrSampleDataDisallowed)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(sourceName))
	rng := rand.New(rand.NewPCG(g.seed, h.Sum64()))

	var out []RawRecord
	for _, sr := range stateRivers {
		center, _ := StateCentroid(sr.State)
		for _, river := range sr.Rivers {
			district := fmt.Sprintf("District %d", rng.IntN(9)+1)
			name := fmt.Sprintf("%s at %s", river, sr.State)
			n := sampleMinDates + rng.IntN(sampleMaxDates-sampleMinDates+1)
			for range n {
				date := g.now.AddDate(0, 0, -rng.IntN(sampleWindow))
				lat := center.Lat + (rng.Float64()*2-1)*sampleSpread
				lon := center.Lon + (rng.Float64()*2-1)*sampleSpread
				season := 1 + 0.1*math.Sin(2*math.Pi*float64(date.YearDay())/365)
				for _, p := range g.catalog.Parameters() {
					out = append(out, RawRecord{
						Source:     sourceName,
						SourceType: SourceGovernment,
						Fields: map[string]any{
							"location_name":    name,
							"state":            sr.State,
							"district":         district,
							"latitude":         lat,
							"longitude":        lon,
							"parameter":        p.Code,
							"value":            sampleValue(rng, p, season),
							"unit":             p.Unit,
							"measurement_date": date.Format(time.DateOnly),
							"source":           sourceName,
						},
					})
				}
			}
		}
	}
	return out, nil
}

// sampleValue draws a value for p. pH is symmetric around neutral, trace
// contaminants are log-normal and the rest are normal around 80% of the safe
// limit. Values are rounded to three decimals and floored at 0.001.
func sampleValue(rng *rand.Rand, p Parameter, season float64) float64 {
	safe := p.Thresholds.Safe
	var v float64
	switch p.Code {
	case ParamPH:
		v = 7.0 + 0.5*rng.NormFloat64()
	case ParamLead, ParamMercury:
		v = math.Exp(math.Log(0.8*safe)+rng.NormFloat64()) * season
	case ParamColiform:
		v = math.Exp(2+rng.NormFloat64()) * season
	default:
		v = (0.8*safe + 0.3*safe*rng.NormFloat64()) * season
	}
	v = math.Round(v*1000) / 1000
	return max(0.001, v)
}
