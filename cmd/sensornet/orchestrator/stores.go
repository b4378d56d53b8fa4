package orchestrator

import (
	"context"
	"time"

	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
)

// IdentityStore is the authoritative source for sensor ids. Absence is
// reported through the bool, not as an error.
type IdentityStore interface {
	Insert(ctx context.Context, name string) (int64, error)
	Get(ctx context.Context, id int64) (models.SensorIdentity, bool, error)
	GetByName(ctx context.Context, name string) (models.SensorIdentity, bool, error)
	List(ctx context.Context, offset, limit int) ([]models.SensorIdentity, error)
	Delete(ctx context.Context, id int64) error
}

// ProfileStore holds the full sensor metadata plus the geospatial point.
type ProfileStore interface {
	EnsureGeoIndex(ctx context.Context) error
	Insert(ctx context.Context, profile models.SensorProfile) error
	Get(ctx context.Context, id int64) (models.SensorProfile, bool, error)
	FindWithinBox(ctx context.Context, latitude, longitude, radius float64) ([]models.SensorProfile, error)
	Delete(ctx context.Context, id int64) error
}

// SearchIndex is the secondary full-text index. It is never authoritative;
// hits come back as names and are re-resolved against the identity store.
type SearchIndex interface {
	IndexDocument(ctx context.Context, name, sensorType, description string) error
	Search(ctx context.Context, mode string, fields map[string]interface{}, size int) ([]string, error)
}

// HotCache keeps the most recent reading per sensor, overwritten wholesale.
type HotCache interface {
	Set(ctx context.Context, id int64, reading models.Reading) error
	Get(ctx context.Context, id int64) (models.Reading, bool, error)
	Delete(ctx context.Context, id int64) error
}

// TimeSeriesStore is the append-only historical readings table, upserted by
// (id, last_seen).
type TimeSeriesStore interface {
	Upsert(ctx context.Context, id int64, reading models.Reading) error
	QueryBucketed(ctx context.Context, id int64, from, to time.Time, granularity string) ([]models.ReadingBucket, error)
}

// AggregationStore is the wide-column store backing the per-type scans.
type AggregationStore interface {
	AppendTemperature(ctx context.Context, id int64, temperature float64) error
	AppendBattery(ctx context.Context, id int64, batteryLevel float64) error
	AppendTypeRow(ctx context.Context, id int64, sensorType string) error
	ScanTemperatureExtrema(ctx context.Context) ([]models.TemperatureRow, error)
	ScanTypeCounts(ctx context.Context) ([]models.TypeCount, error)
	ScanLowBattery(ctx context.Context, threshold float64) ([]models.BatteryRow, error)
}

// EventPublisher receives lifecycle events after a fan-out completed.
// Implementations must be fire-and-forget.
type EventPublisher interface {
	SensorCreated(profile models.SensorProfile)
	SensorDeleted(id int64)
	ReadingRecorded(id int64, reading models.Reading)
}
