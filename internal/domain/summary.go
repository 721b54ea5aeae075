package domain

import "time"

// RunState is a state of the ingestion state machine.
type RunState string

const (
	StateInit             RunState = "init"
	StateBackendSelected  RunState = "backend_selected"
	StateFetching         RunState = "fetching"
	StateNormalizing      RunState = "normalizing"
	StatePersisting       RunState = "persisting"
	StateHealthRecorded   RunState = "health_recorded"
	StateDone             RunState = "done"
	StateFatalConfig      RunState = "fatal_config"
	StateFatalFetch       RunState = "fatal_fetch"
	StateFatalPersistence RunState = "fatal_persistence"
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	switch s {
	case StateDone, StateFatalConfig, StateFatalFetch, StateFatalPersistence:
		return true
	}
	return false
}

// SourceOutcome is the per-source part of a run summary.
type SourceOutcome struct {
	Name    string       `json:"name"`
	Status  SourceStatus `json:"status"`
	Records int          `json:"records"`
	Error   string       `json:"error,omitempty"`
}

// RunSummary reports what one run did.
type RunSummary struct {
	RunID             string          `json:"run_id"`
	Backend           string          `json:"backend,omitempty"`
	State             RunState        `json:"state"`
	RecordsFetched    int             `json:"records_fetched"`
	ReadingsProduced  int             `json:"readings_produced"`
	RecordsSkipped    int             `json:"records_skipped"`
	LocationsUpserted int             `json:"locations_upserted"`
	ReadingsPersisted int             `json:"readings_persisted"`
	ReadingsSkipped   int             `json:"readings_skipped"`
	ReadingsDuplicate int             `json:"readings_duplicate"`
	WeatherObserved   int             `json:"weather_observations"`
	Sources           []SourceOutcome `json:"sources"`
	StartedAt         time.Time       `json:"started_at"`
	Duration          time.Duration   `json:"duration_ns"`
	Error             string          `json:"error,omitempty"`
}
