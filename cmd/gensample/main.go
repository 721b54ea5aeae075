// Command gensample writes sample-generator output as JSON fixtures. It uses
// the same generator and normalizer as the ingest service so the fixtures
// match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/gensample \
//	  -raw-out testdata/sample_raw.json \
//	  -readings-out testdata/sample_readings.json \
//	  -date 2024-06-01 -seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/config"
	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// fixture is the raw output format, also read by cmd/validate.
type fixture struct {
	Source        string             `json:"source"`
	Seed          uint64             `json:"seed"`
	ReferenceDate string             `json:"reference_date"`
	Records       []domain.RawRecord `json:"records"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for raw sample records")
	readingsOut := flag.String("readings-out", "", "optional output path for normalized readings")
	source := flag.String("source", config.DefaultSource, "source name the records are attributed to")
	seed := flag.Uint64("seed", 42, "generator seed")
	date := flag.String("date", time.Now().UTC().Format(time.DateOnly), "reference date (YYYY-MM-DD)")
	flag.Parse()

	if *rawOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -raw-out")
	}
	ref, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}

	// Fix the clock so date fallbacks in the normalizer are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(ref))
	defer domain.SetClock(nil)

	catalog := domain.DefaultCatalog()
	rc := domain.NewRunContextWithID("gensample", true, nil)
	records, err := domain.NewSampleGenerator(catalog, *seed, ref).Generate(rc, *source)
	if err != nil {
		return err
	}
	log.Printf("generated %d records for %s", len(records), *source)

	if err := writeJSON(*rawOut, fixture{Source: *source, Seed: *seed, ReferenceDate: *date, Records: records}); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	geo := domain.NewGeoResolver(rand.New(rand.NewPCG(*seed, 0)))
	readings, stats := domain.NewNormalizer(catalog, geo, logger).NormalizeAll(rc, records)

	if *readingsOut != "" {
		if err := writeJSON(*readingsOut, readings); err != nil {
			return fmt.Errorf("writing readings fixture: %w", err)
		}
		log.Printf("wrote readings fixture: %s", *readingsOut)
	}

	printStats(readings, stats)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func printStats(readings []domain.CanonicalReading, stats domain.NormalizeStats) {
	params := map[string]int{}
	risks := map[string]int{}
	states := map[string]int{}
	for i := range readings {
		r := &readings[i]
		params[r.ParameterCode]++
		risks[string(r.RiskLevel)]++
		states[r.State]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Records: %d, readings: %d, zero-yield: %d\n", stats.Records, stats.Readings, stats.ZeroYield)
	fmt.Printf("Locations: %d\n", len(domain.DistinctLocations(readings)))
	fmt.Printf("By risk: low=%d, medium=%d, high=%d, critical=%d\n",
		risks["low"], risks["medium"], risks["high"], risks["critical"])

	fmt.Print("By parameter:")
	for _, kc := range sortedCounts(params) {
		fmt.Printf(" %s=%d", kc.key, kc.count)
	}
	fmt.Println()

	fmt.Printf("States (%d):", len(states))
	for _, kc := range sortedCounts(states) {
		fmt.Printf(" %s=%d", kc.key, kc.count)
	}
	fmt.Println()
}
