package domain

import "time"

// SourceType identifies where a reading originated.
type SourceType string

const (
	SourceGovernment SourceType = "government"
	SourceSensor     SourceType = "sensor"
)

// RawRecord is one upstream record before normalization.
type RawRecord struct {
	Source       string         `json:"source"`                  // configured source name, e.g. "data_gov_in"
	SourceType   SourceType     `json:"source_type"`             // type recorded on every reading derived from it
	DatasetTitle string         `json:"dataset_title,omitempty"` // top-level dataset title, used for year fallback
	Fields       map[string]any `json:"fields"`                  // upstream fields as decoded from JSON
}

// CanonicalReading is a single normalized observation of one parameter at
// one location on one date.
type CanonicalReading struct {
	LocationName    string     `json:"location_name"`
	State           string     `json:"state"`
	District        string     `json:"district,omitempty"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	ParameterCode   string     `json:"parameter_code"`
	Value           float64    `json:"value"`
	Unit            string     `json:"unit"`
	MeasurementDate time.Time  `json:"measurement_date"`
	Source          SourceType `json:"source"`
	QualityScore    float64    `json:"quality_score"`
	RiskLevel       RiskLevel  `json:"risk_level"`
}

// LocationKey identifies a location by its natural key.
type LocationKey struct {
	Name  string
	State string
}

// Key returns the reading's location key.
func (r CanonicalReading) Key() LocationKey {
	return LocationKey{Name: r.LocationName, State: r.State}
}

// Location is a monitoring site. Coordinates are the only attributes
// refreshed after the first insert.
type Location struct {
	Name          string
	State         string
	District      string
	Latitude      float64
	Longitude     float64
	WaterBodyType string
}

// DefaultWaterBodyType is assigned to locations created from readings.
const DefaultWaterBodyType = "river"

// DistinctLocations returns one Location per (name, state) pair in first-seen
// order. Later readings for the same pair overwrite the coordinates so the
// most recent value wins.
func DistinctLocations(readings []CanonicalReading) []Location {
	index := make(map[LocationKey]int)
	var out []Location
	for _, r := range readings {
		k := r.Key()
		if i, ok := index[k]; ok {
			out[i].Latitude = r.Latitude
			out[i].Longitude = r.Longitude
			continue
		}
		index[k] = len(out)
		out = append(out, Location{
			Name:          r.LocationName,
			State:         r.State,
			District:      r.District,
			Latitude:      r.Latitude,
			Longitude:     r.Longitude,
			WaterBodyType: DefaultWaterBodyType,
		})
	}
	return out
}

// SourceStatus is the per-run health status of a configured source.
type SourceStatus string

const (
	SourceActive   SourceStatus = "active"
	SourceInactive SourceStatus = "inactive"
	SourceSample   SourceStatus = "sample"
)

// DataSourceHealth is the current-run snapshot for one configured source.
type DataSourceHealth struct {
	SourceName     string
	SourceType     SourceType
	APIURL         string
	CredentialHash string // empty when no credential is configured
	LastFetch      time.Time
	Status         SourceStatus
	LastError      string
}

// WeatherObservation is a best-effort current-conditions snapshot for a
// location.
type WeatherObservation struct {
	LocationName string    `json:"location_name"`
	State        string    `json:"state"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Pressure     float64   `json:"pressure"`
	WindSpeed    float64   `json:"wind_speed"`
	Conditions   string    `json:"conditions"`
	ObservedAt   time.Time `json:"observed_at"`
}
