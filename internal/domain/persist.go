package domain

// Batch is the unit of work handed to a store: every reading of one run plus
// the health snapshot of every configured source.
type Batch struct {
	Readings []CanonicalReading
	Sources  []DataSourceHealth
}

// PersistResult counts what a store did with a Batch.
type PersistResult struct {
	LocationsUpserted int
	ReadingsInserted  int
	// ReadingsSkipped counts readings whose location or parameter could not
	// be resolved.
	ReadingsSkipped int
	// ReadingsDuplicate counts readings already stored under the same
	// natural key.
	ReadingsDuplicate int
	SourcesRecorded   int
	// Persisted holds the readings actually written, in batch order.
	Persisted []CanonicalReading
}
