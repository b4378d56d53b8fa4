package orchestrator

import (
	"context"
	"fmt"
	"math"

	json "github.com/goccy/go-json"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.uber.org/zap"
)

const lowBatteryThreshold = 0.2

// SensorsNear selects every profile inside the bounding box
// [lat-radius, lat+radius] x [lon-radius, lon+radius] and merges each with its
// cached latest reading. This is deliberately not a great-circle radius. A
// missing or unreachable cache entry leaves the reading fields nil instead of
// failing the batch.
func (o *Orchestrator) SensorsNear(ctx context.Context, latitude, longitude, radius float64) ([]models.NearbySensor, error) {
	profiles, err := o.profiles.FindWithinBox(ctx, latitude, longitude, radius)
	if err != nil {
		return nil, &models.DownstreamError{Store: "profile", Err: err}
	}

	near := make([]models.NearbySensor, 0, len(profiles))
	for _, p := range profiles {
		sensor := models.NearbySensor{SensorProfile: p}
		reading, found, err := o.cache.Get(ctx, p.ID)
		if err != nil {
			zap.S().Warnf("Skipping latest reading for sensor %d: %s", p.ID, err)
		}
		if err == nil && found {
			batteryLevel := reading.BatteryLevel
			lastSeen := reading.LastSeen
			sensor.Velocity = reading.Velocity
			sensor.Temperature = reading.Temperature
			sensor.Humidity = reading.Humidity
			sensor.BatteryLevel = &batteryLevel
			sensor.LastSeen = &lastSeen
		}
		near = append(near, sensor)
	}
	return near, nil
}

// SearchSensors runs a free-form query against the search index and resolves
// every hit back to its full profile, preserving the index's relevance order.
// Names are assumed globally unique; a hit whose name no longer resolves is
// skipped as stale.
func (o *Orchestrator) SearchSensors(ctx context.Context, rawQuery string, size int, searchType string) ([]models.SensorProfile, error) {
	if size <= 0 {
		size = 10
	}
	// "similar" is what callers send, "fuzzy" is what the index understands.
	if searchType == "similar" {
		searchType = "fuzzy"
	}
	switch searchType {
	case "match", "prefix", "fuzzy":
	default:
		return nil, &models.MalformedQueryError{Err: fmt.Errorf("unsupported search type %q", searchType)}
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(rawQuery), &fields); err != nil {
		return nil, &models.MalformedQueryError{Err: err}
	}

	names, err := o.search.Search(ctx, searchType, fields, size)
	if err != nil {
		return nil, err
	}

	results := make([]models.SensorProfile, 0, len(names))
	for _, name := range names {
		ident, found, err := o.identity.GetByName(ctx, name)
		if err != nil {
			return nil, &models.DownstreamError{Store: "identity", Err: err}
		}
		if !found {
			zap.S().Warnf("Search hit %q has no identity, skipping", name)
			continue
		}
		profile, found, err := o.profiles.Get(ctx, ident.ID)
		if err != nil {
			return nil, &models.DownstreamError{Store: "profile", Err: err}
		}
		if !found {
			zap.S().Warnf("Search hit %q (sensor %d) has no profile, skipping", name, ident.ID)
			continue
		}
		results = append(results, profile)
	}
	return results, nil
}

// TemperatureValues scans the per-sensor temperature extrema and re-hydrates
// each id against the profile store.
func (o *Orchestrator) TemperatureValues(ctx context.Context) ([]models.SensorTemperature, error) {
	rows, err := o.aggregates.ScanTemperatureExtrema(ctx)
	if err != nil {
		return nil, &models.DownstreamError{Store: "aggregation", Err: err}
	}

	sensors := make([]models.SensorTemperature, 0, len(rows))
	for _, row := range rows {
		profile, found, err := o.profiles.Get(ctx, row.ID)
		if err != nil {
			return nil, &models.DownstreamError{Store: "profile", Err: err}
		}
		if !found {
			// Aggregation rows outlive deleted sensors.
			continue
		}
		sensors = append(sensors, models.SensorTemperature{
			SensorProfile: profile,
			Values: models.TemperatureValues{
				Max:     row.Max,
				Min:     row.Min,
				Average: row.Average,
			},
		})
	}
	return sensors, nil
}

// QuantityByType counts sensors per type from the aggregation store.
func (o *Orchestrator) QuantityByType(ctx context.Context) ([]models.TypeCount, error) {
	counts, err := o.aggregates.ScanTypeCounts(ctx)
	if err != nil {
		return nil, &models.DownstreamError{Store: "aggregation", Err: err}
	}
	if counts == nil {
		counts = []models.TypeCount{}
	}
	return counts, nil
}

// LowBatterySensors returns every sensor whose battery level dropped below
// 20%, re-hydrated with its profile, the level rounded to two decimals.
func (o *Orchestrator) LowBatterySensors(ctx context.Context) ([]models.LowBatterySensor, error) {
	rows, err := o.aggregates.ScanLowBattery(ctx, lowBatteryThreshold)
	if err != nil {
		return nil, &models.DownstreamError{Store: "aggregation", Err: err}
	}

	sensors := make([]models.LowBatterySensor, 0, len(rows))
	for _, row := range rows {
		profile, found, err := o.profiles.Get(ctx, row.ID)
		if err != nil {
			return nil, &models.DownstreamError{Store: "profile", Err: err}
		}
		if !found {
			continue
		}
		sensors = append(sensors, models.LowBatterySensor{
			SensorProfile: profile,
			BatteryLevel:  math.Round(row.BatteryLevel*100) / 100,
		})
	}
	return sensors, nil
}
