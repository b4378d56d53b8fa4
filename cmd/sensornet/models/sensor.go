package models

import "time"

// SensorCreate is the validated payload for registering a new sensor.
type SensorCreate struct {
	Name            string  `json:"name" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	MacAddress      string  `json:"mac_address"`
	Manufacturer    string  `json:"manufacturer"`
	Model           string  `json:"model"`
	SerieNumber     string  `json:"serie_number"`
	FirmwareVersion string  `json:"firmware_version"`
	Description     string  `json:"description"`
}

// SensorIdentity is the authoritative record in the identity store. The id is
// the join key for every other store.
type SensorIdentity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SensorProfile is the full metadata document kept in the profile store.
type SensorProfile struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	MacAddress      string  `json:"mac_address"`
	Manufacturer    string  `json:"manufacturer"`
	Model           string  `json:"model"`
	SerieNumber     string  `json:"serie_number"`
	FirmwareVersion string  `json:"firmware_version"`
	Description     string  `json:"description"`
}

// Reading is one reported measurement. Velocity, temperature and humidity are
// optional depending on the sensor type; a nil field is stored as NULL and
// cached as null, never dropped.
type Reading struct {
	Velocity     *float64  `json:"velocity"`
	Temperature  *float64  `json:"temperature"`
	Humidity     *float64  `json:"humidity"`
	BatteryLevel float64   `json:"battery_level"`
	LastSeen     time.Time `json:"last_seen" binding:"required"`
}

// LatestReading is the hot-cache entry enriched with the sensor identity.
type LatestReading struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Reading
}

// ReadingBucket is one fixed-width interval of a bucketed time-series query,
// carrying per-bucket averages. A field with no samples in the bucket is nil.
type ReadingBucket struct {
	ID          int64     `json:"id"`
	Bucket      time.Time `json:"bucket"`
	Velocity    *float64  `json:"velocity"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
}

// NearbySensor merges a profile with its cached latest reading. The reading
// fields stay nil for a sensor that never reported.
type NearbySensor struct {
	SensorProfile
	Velocity     *float64   `json:"velocity"`
	Temperature  *float64   `json:"temperature"`
	Humidity     *float64   `json:"humidity"`
	BatteryLevel *float64   `json:"battery_level"`
	LastSeen     *time.Time `json:"last_seen"`
}

// TemperatureRow is one aggregation-store row of per-sensor temperature
// extrema, computed over the distinct-temperature set.
type TemperatureRow struct {
	ID      int64
	Max     float64
	Min     float64
	Average float64
}

type TemperatureValues struct {
	Max     float64 `json:"max_temperature"`
	Min     float64 `json:"min_temperature"`
	Average float64 `json:"average_temperature"`
}

type SensorTemperature struct {
	SensorProfile
	Values TemperatureValues `json:"values"`
}

type TypeCount struct {
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
}

// BatteryRow is one aggregation-store row of the battery table.
type BatteryRow struct {
	ID           int64
	BatteryLevel float64
}

type LowBatterySensor struct {
	SensorProfile
	BatteryLevel float64 `json:"battery_level"`
}
