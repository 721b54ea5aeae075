package domain

import (
	"context"
	"log/slog"
)

// Conditions is the meteorological snapshot returned by a weather provider.
type Conditions struct {
	Temperature float64 // °C
	Humidity    float64 // %
	Pressure    float64 // hPa
	WindSpeed   float64 // m/s
	Summary     string
}

// WeatherProvider looks up current conditions at a point.
type WeatherProvider interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (Conditions, error)
}

// EnrichWithWeather looks up current conditions for the first limit distinct
// locations in readings. At most limit lookups are attempted whether or not
// they succeed. Failures are logged and skipped; a nil provider returns
// nothing.
func EnrichWithWeather(ctx context.Context, rc RunContext, readings []CanonicalReading, provider WeatherProvider, limit int, logger *slog.Logger) []WeatherObservation {
	if provider == nil || limit <= 0 {
		return nil
	}

	locations := DistinctLocations(readings)
	if len(locations) > limit {
		locations = locations[:limit]
	}

	var out []WeatherObservation
	for _, loc := range locations {
		if ctx.Err() != nil {
			break
		}
		c, err := provider.CurrentConditions(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			logger.Warn("weather lookup failed",
				"run_id", rc.RunID(),
				"location", loc.Name,
				"state", loc.State,
				"error", err,
			)
			continue
		}
		out = append(out, WeatherObservation{
			LocationName: loc.Name,
			State:        loc.State,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Temperature:  c.Temperature,
			Humidity:     c.Humidity,
			Pressure:     c.Pressure,
			WindSpeed:    c.WindSpeed,
			Conditions:   c.Summary,
			ObservedAt:   Now(),
		})
	}
	return out
}
