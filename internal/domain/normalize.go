package domain

import (
	"fmt"
	"log/slog"
)

var (
	locationNameAliases = []string{
		"location_name", "station_name", "name_of_monitoring_location", "monitoring_location",
		"station_location", "location", "station", "site_name", "locations",
	}
	stateAliases     = []string{"state", "state_name", "states", "state_ut", "state/ut", "name_of_state"}
	districtAliases  = []string{"district", "district_name", "districts", "dist"}
	latitudeAliases  = []string{"latitude", "lat", "lat_dd", "latitude_(n)"}
	longitudeAliases = []string{"longitude", "long", "lon", "lng", "long_dd", "longitude_(e)"}

	// Long-format datasets carry one parameter per row.
	freeformNameKeys  = []string{"parameter", "parameter_name", "param", "characteristic", "determinand"}
	freeformValueKeys = []string{"value", "reading", "result", "measurement_value"}
)

// UnknownState is recorded when a record names no state.
const UnknownState = "Unknown"

// NormalizeStats counts what normalization produced for a batch.
type NormalizeStats struct {
	Records       int
	Readings      int
	ZeroYield     int
	Freeform      int
	DateFallbacks int
	SkippedValues int
}

// Normalizer converts heterogeneous upstream records into canonical readings.
type Normalizer struct {
	catalog *Catalog
	geo     *GeoResolver
	logger  *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(catalog *Catalog, geo *GeoResolver, logger *slog.Logger) *Normalizer {
	return &Normalizer{catalog: catalog, geo: geo, logger: logger}
}

// NormalizeAll normalizes records in order. Records that yield no readings
// are dropped and counted.
func (n *Normalizer) NormalizeAll(rc RunContext, records []RawRecord) ([]CanonicalReading, NormalizeStats) {
	var stats NormalizeStats
	var out []CanonicalReading
	for _, raw := range records {
		stats.Records++
		readings, rs := n.normalize(rc, raw)
		stats.Freeform += rs.Freeform
		stats.DateFallbacks += rs.DateFallbacks
		stats.SkippedValues += rs.SkippedValues
		if len(readings) == 0 {
			stats.ZeroYield++
			continue
		}
		stats.Readings += len(readings)
		out = append(out, readings...)
	}
	if stats.ZeroYield > 0 {
		n.logger.Warn("records produced no readings",
			"run_id", rc.RunID(),
			"records", stats.Records,
			"zero_yield", stats.ZeroYield,
		)
	}
	return out, stats
}

// Normalize converts one raw record into zero or more readings, one per
// resolved parameter.
func (n *Normalizer) Normalize(rc RunContext, raw RawRecord) []CanonicalReading {
	readings, _ := n.normalize(rc, raw)
	return readings
}

func (n *Normalizer) normalize(rc RunContext, raw RawRecord) ([]CanonicalReading, NormalizeStats) {
	var stats NormalizeStats
	f := newFieldSet(raw.Fields)

	values, skipped := n.parameterValues(f)
	stats.SkippedValues = skipped
	if len(values) == 0 && !n.anyParameterKey(f) {
		v, ok, bad := n.freeformValue(f)
		if ok {
			values = append(values, v)
			stats.Freeform = 1
		}
		if bad {
			stats.SkippedValues++
		}
	}
	if len(values) == 0 {
		n.logger.Debug("record yielded no readings",
			"run_id", rc.RunID(),
			"source", raw.Source,
			"fields", len(raw.Fields),
		)
		return nil, stats
	}

	state, hasState := f.text(stateAliases)
	district, _ := f.text(districtAliases)
	name, ok := f.text(locationNameAliases)
	if !ok {
		name = synthesizeLocationName(district, state)
	}
	if !hasState {
		state = UnknownState
	}

	lat, lon := n.coordinates(f, state)

	date, src := resolveDate(f, raw.DatasetTitle)
	if src != dateFromRecord {
		stats.DateFallbacks = 1
	}

	sourceType := raw.SourceType
	if sourceType == "" {
		sourceType = SourceGovernment
	}

	readings := make([]CanonicalReading, 0, len(values))
	for _, pv := range values {
		score := QualityScore(pv.param, pv.value)
		readings = append(readings, CanonicalReading{
			LocationName:    name,
			State:           state,
			District:        district,
			Latitude:        lat,
			Longitude:       lon,
			ParameterCode:   pv.param.Code,
			Value:           pv.value,
			Unit:            pv.param.Unit,
			MeasurementDate: date,
			Source:          sourceType,
			QualityScore:    score,
			RiskLevel:       RiskForScore(score),
		})
	}
	return readings, stats
}

type paramValue struct {
	param Parameter
	value float64
}

// parameterValues resolves every catalog parameter present in f. The second
// result counts candidates that were present but could not be parsed.
func (n *Normalizer) parameterValues(f fieldSet) ([]paramValue, int) {
	var out []paramValue
	skipped := 0
	for _, p := range n.catalog.Parameters() {
		v, found, bad := resolveParameter(f, p.Aliases)
		if !found && !bad && len(p.ProxyAliases) > 0 && !f.has(p.Aliases) {
			v, found, bad = resolveParameter(f, p.ProxyAliases)
		}
		if bad {
			skipped++
		}
		if found {
			out = append(out, paramValue{param: p, value: v})
		}
	}
	return out, skipped
}

// resolveParameter takes the first alias holding a non-empty, non-sentinel
// value. If that value does not parse, or is negative, the parameter is
// skipped.
func resolveParameter(f fieldSet, aliases []string) (value float64, found, bad bool) {
	for _, a := range aliases {
		raw, ok := f[a]
		if !ok {
			continue
		}
		s := stringValue(raw)
		if s == "" || isNullSentinel(s) {
			continue
		}
		v, ok := coerceFloat(raw)
		if !ok || v < 0 {
			return 0, false, true
		}
		return v, true, false
	}
	return 0, false, false
}

func (n *Normalizer) anyParameterKey(f fieldSet) bool {
	for _, p := range n.catalog.Parameters() {
		if f.has(p.Aliases) || f.has(p.ProxyAliases) {
			return true
		}
	}
	return false
}

// freeformValue reads a long-format parameter/value pair. bad reports a
// recognized parameter whose value was negative.
func (n *Normalizer) freeformValue(f fieldSet) (pv paramValue, ok, bad bool) {
	name, found := f.text(freeformNameKeys)
	if !found {
		return paramValue{}, false, false
	}
	code, found := n.catalog.ClassifyParameterName(name)
	if !found {
		return paramValue{}, false, false
	}
	v, found := f.number(freeformValueKeys)
	if !found {
		return paramValue{}, false, false
	}
	if v < 0 {
		return paramValue{}, false, true
	}
	p, _ := n.catalog.Lookup(code)
	return paramValue{param: p, value: v}, true, false
}

func (n *Normalizer) coordinates(f fieldSet, state string) (float64, float64) {
	var lat, lon *float64
	if v, ok := f.number(latitudeAliases); ok && v >= -90 && v <= 90 {
		lat = &v
	}
	if v, ok := f.number(longitudeAliases); ok && v >= -180 && v <= 180 {
		lon = &v
	}
	// 0,0 is how several datasets spell "unknown".
	if lat != nil && lon != nil && *lat == 0 && *lon == 0 {
		lat, lon = nil, nil
	}
	return n.geo.Resolve(state, lat, lon)
}

func synthesizeLocationName(district, state string) string {
	switch {
	case district != "" && state != "":
		return fmt.Sprintf("Station in %s, %s", district, state)
	case state != "":
		return "Station in " + state
	case district != "":
		return "Station in " + district
	}
	return "Unknown Location"
}
