package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
)

// Granularities the time-series store can bucket by.
var validGranularities = map[string]bool{
	"hour":  true,
	"day":   true,
	"week":  true,
	"month": true,
}

// RecordReading fans one reading out to the time-series, aggregation and
// cache stores. The caller has already confirmed the sensor exists. The cache
// is written last so the most contended read path reflects the most recent
// durable write.
func (o *Orchestrator) RecordReading(ctx context.Context, id int64, reading models.Reading) (models.Reading, error) {
	err := o.series.Upsert(ctx, id, reading)
	o.steps.Record(ctx, "record", id, "timeseries", "upsert", err)
	if err != nil {
		return models.Reading{}, &models.PartialWriteError{Store: "timeseries", Step: "upsert", SensorID: id, Err: err}
	}

	if reading.Temperature != nil {
		err = o.aggregates.AppendTemperature(ctx, id, *reading.Temperature)
		o.steps.Record(ctx, "record", id, "aggregation", "append_temperature", err)
		if err != nil {
			return models.Reading{}, &models.PartialWriteError{Store: "aggregation", Step: "append_temperature", SensorID: id, Err: err}
		}
	}

	err = o.aggregates.AppendBattery(ctx, id, reading.BatteryLevel)
	o.steps.Record(ctx, "record", id, "aggregation", "append_battery", err)
	if err != nil {
		return models.Reading{}, &models.PartialWriteError{Store: "aggregation", Step: "append_battery", SensorID: id, Err: err}
	}

	err = o.cache.Set(ctx, id, reading)
	o.steps.Record(ctx, "record", id, "cache", "set", err)
	if err != nil {
		return models.Reading{}, &models.PartialWriteError{Store: "cache", Step: "set", SensorID: id, Err: err}
	}

	if o.events != nil {
		o.events.ReadingRecorded(id, reading)
	}
	return reading, nil
}

// GetLatestReading returns the hot-cache entry enriched with the identity. A
// sensor that was created but never reported has no current value.
func (o *Orchestrator) GetLatestReading(ctx context.Context, ident models.SensorIdentity) (models.LatestReading, error) {
	reading, found, err := o.cache.Get(ctx, ident.ID)
	if err != nil {
		return models.LatestReading{}, &models.DownstreamError{Store: "cache", Err: err}
	}
	if !found {
		return models.LatestReading{}, models.ErrSensorNotFound
	}
	return models.LatestReading{ID: ident.ID, Name: ident.Name, Reading: reading}, nil
}

// GetBucketedReadings queries the time-series store for [from, to] grouped
// into fixed-width buckets with per-bucket averages. An empty range is a
// valid empty result, not an error.
func (o *Orchestrator) GetBucketedReadings(ctx context.Context, id int64, from, to time.Time, granularity string) ([]models.ReadingBucket, error) {
	if !validGranularities[granularity] {
		return nil, &models.MalformedQueryError{Err: fmt.Errorf("unsupported bucket granularity %q", granularity)}
	}
	buckets, err := o.series.QueryBucketed(ctx, id, from, to, granularity)
	if err != nil {
		return nil, &models.DownstreamError{Store: "timeseries", Err: err}
	}
	if buckets == nil {
		buckets = []models.ReadingBucket{}
	}
	return buckets, nil
}
