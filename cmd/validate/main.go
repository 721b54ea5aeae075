// Command validate checks a raw record fixture (as written by gensample, or
// a captured upstream dump in the same format) against the normalizer. It
// verifies that every record yields readings, that every reading satisfies
// the canonical model, and optionally that a readings fixture still matches
// what the normalizer produces today.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw-json testdata/sample_raw.json \
//	  -readings-json testdata/sample_readings.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

type fixture struct {
	Source        string             `json:"source"`
	Seed          uint64             `json:"seed"`
	ReferenceDate string             `json:"reference_date"`
	Records       []domain.RawRecord `json:"records"`
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawJSON := flag.String("raw-json", "", "path to raw record fixture")
	readingsJSON := flag.String("readings-json", "", "optional path to normalized readings fixture")
	flag.Parse()

	if *rawJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*rawJSON, *readingsJSON); code != 0 {
		os.Exit(code)
	}
}

func run(rawPath, readingsPath string) int {
	fmt.Println("=== Water Quality Fixture Validation ===")
	fmt.Println()

	raw, err := loadJSON[fixture](rawPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw fixture: %v\n", err)
		return 1
	}

	ref := time.Now().UTC()
	if raw.ReferenceDate != "" {
		if ref, err = time.Parse(time.DateOnly, raw.ReferenceDate); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: reference_date: %v\n", err)
			return 1
		}
	}
	// Match gensample's clock and geo seed so the output is comparable.
	domain.SetClock(clockwork.NewFakeClockAt(ref))
	defer domain.SetClock(nil)

	catalog := domain.DefaultCatalog()
	rc := domain.NewRunContextWithID("validate", true, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	geo := domain.NewGeoResolver(rand.New(rand.NewPCG(raw.Seed, 0)))
	n := domain.NewNormalizer(catalog, geo, logger)

	shape := validateShape(raw.Records)
	readings, yield := validateYield(n, rc, raw.Records)
	phases := []*phase{
		shape,
		yield,
		validateReadings(catalog, readings),
	}
	if readingsPath != "" {
		phases = append(phases, validateParity(readingsPath, readings))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d raw, %d readings, %d locations\n",
		len(raw.Records), len(readings), len(domain.DistinctLocations(readings)))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func loadJSON[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func validateShape(records []domain.RawRecord) *phase {
	p := &phase{name: "Raw fixture shape"}
	if len(records) == 0 {
		p.errorf("fixture has no records")
	}
	for i, r := range records {
		if r.Source == "" {
			p.errorf("record %d: empty source", i)
		}
		if r.SourceType != domain.SourceGovernment && r.SourceType != domain.SourceSensor {
			p.errorf("record %d: unknown source type %q", i, r.SourceType)
		}
		if len(r.Fields) == 0 {
			p.errorf("record %d: no fields", i)
		}
	}
	return p
}

func validateYield(n *domain.Normalizer, rc domain.RunContext, records []domain.RawRecord) ([]domain.CanonicalReading, *phase) {
	p := &phase{name: "Normalization yield"}
	var out []domain.CanonicalReading
	for i, r := range records {
		readings := n.Normalize(rc, r)
		if len(readings) == 0 {
			p.errorf("record %d (%v): no readings", i, r.Fields["location_name"])
		}
		out = append(out, readings...)
	}
	return out, p
}

func validateReadings(catalog *domain.Catalog, readings []domain.CanonicalReading) *phase {
	p := &phase{name: "Canonical reading invariants"}
	for i := range readings {
		checkReading(p.errorf, catalog, i, &readings[i])
	}
	return p
}

func checkReading(pf func(string, ...any), catalog *domain.Catalog, i int, r *domain.CanonicalReading) {
	param, ok := catalog.Lookup(r.ParameterCode)
	if !ok {
		pf("reading %d: parameter %q not in catalog", i, r.ParameterCode)
		return
	}
	if r.Unit != param.Unit {
		pf("reading %d: unit %q, catalog says %q", i, r.Unit, param.Unit)
	}
	if r.Value < 0 || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		pf("reading %d: value %v is not a non-negative finite number", i, r.Value)
	}
	d := r.MeasurementDate
	if d.Location() != time.UTC || d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 || d.Nanosecond() != 0 {
		pf("reading %d: measurement date %s is not UTC midnight", i, d)
	}
	if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
		pf("reading %d: coordinates %v,%v out of range", i, r.Latitude, r.Longitude)
	}
	if r.LocationName == "" || r.State == "" {
		pf("reading %d: empty location name or state", i)
	}
	if r.QualityScore < 0 || r.QualityScore > 100 {
		pf("reading %d: quality score %v out of range", i, r.QualityScore)
	}
	if want := domain.RiskForScore(r.QualityScore); r.RiskLevel != want {
		pf("reading %d: risk %q for score %v, want %q", i, r.RiskLevel, r.QualityScore, want)
	}
}

func validateParity(path string, got []domain.CanonicalReading) *phase {
	p := &phase{name: "Readings fixture parity"}
	want, err := loadJSON[[]domain.CanonicalReading](path)
	if err != nil {
		p.errorf("load readings fixture: %v", err)
		return p
	}
	if len(want) != len(got) {
		p.errorf("readings count: fixture %d, normalizer %d", len(want), len(got))
		return p
	}
	for i := range want {
		if diff := cmp.Diff(want[i], got[i]); diff != "" {
			p.errorf("reading %d differs (-fixture +normalizer):\n%s", i, diff)
		}
	}
	return p
}
