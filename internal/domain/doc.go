// Package domain models water-quality observations published by Indian
// government open-data portals and the rules for turning them into canonical
// readings.
//
// # Data Sources
//
// Records come from data.gov.in style resources: paginated JSON with a
// top-level "title" describing the dataset and a "records" array of flat
// objects. Field names drift between dataset vintages. The same BOD column
// may be published as "bod", "b.o.d", "biochemical_oxygen_demand-mean" or a
// unit-qualified variant such as "bod_mg_l". Some datasets are long format
// instead: one row per parameter with a generic "parameter" and "value" pair.
//
// # Field Resolution
//
// Every canonical field is resolved through an ordered alias list, matched
// case-insensitively against the record keys. The first alias present wins.
// Parameter values additionally skip empty strings and null sentinels:
//
//	"", "na", "nan", "n/a", "null", "none", "-"
//
// Numbers arrive either as JSON numbers or as strings ("7.2", "1,250").
// A value that cannot be coerced is dropped for that parameter only.
//
// # Dates
//
// Candidate date keys are parsed day-first ("01/03/2022" is 1 March). When a
// record carries no date at all, the first year mentioned in the dataset
// title is used as {year}-01-01, and failing that the current date.
//
// # Coordinates
//
// Most datasets carry no coordinates. GeoResolver places such readings near
// their state's centroid (±0.15°) or, for unknown states, near the national
// centroid (±2.0°) so every reading is plottable.
//
// # Sample Data
//
// SampleGenerator fabricates plausible records for demos and offline
// development. It refuses to run unless the RunContext explicitly allows
// sample data.
package domain
