package orchestrator

import (
	"context"

	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.uber.org/zap"
)

// CreateSensor fans a new sensor out across the identity, profile, search and
// aggregation stores. The identity insert must come first since every later
// step needs the generated id. Steps after the id allocation are not rolled
// back on failure; the step log records how far the fan-out got.
func (o *Orchestrator) CreateSensor(ctx context.Context, in models.SensorCreate) (models.SensorProfile, error) {
	// Read-then-write: a concurrent creation with the same name can slip
	// through, which is accepted.
	_, exists, err := o.identity.GetByName(ctx, in.Name)
	if err != nil {
		return models.SensorProfile{}, &models.DownstreamError{Store: "identity", Err: err}
	}
	if exists {
		return models.SensorProfile{}, models.ErrNameConflict
	}

	id, err := o.identity.Insert(ctx, in.Name)
	o.steps.Record(ctx, "create", id, "identity", "insert", err)
	if err != nil {
		return models.SensorProfile{}, &models.DownstreamError{Store: "identity", Err: err}
	}

	profile := models.SensorProfile{
		ID:              id,
		Name:            in.Name,
		Type:            in.Type,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		MacAddress:      in.MacAddress,
		Manufacturer:    in.Manufacturer,
		Model:           in.Model,
		SerieNumber:     in.SerieNumber,
		FirmwareVersion: in.FirmwareVersion,
		Description:     in.Description,
	}

	if err = o.profiles.EnsureGeoIndex(ctx); err == nil {
		err = o.profiles.Insert(ctx, profile)
	}
	o.steps.Record(ctx, "create", id, "profile", "insert", err)
	if err != nil {
		return models.SensorProfile{}, &models.PartialWriteError{Store: "profile", Step: "insert", SensorID: id, Err: err}
	}

	err = o.search.IndexDocument(ctx, in.Name, in.Type, in.Description)
	o.steps.Record(ctx, "create", id, "search", "index", err)
	if err != nil {
		return models.SensorProfile{}, &models.PartialWriteError{Store: "search", Step: "index", SensorID: id, Err: err}
	}

	err = o.aggregates.AppendTypeRow(ctx, id, in.Type)
	o.steps.Record(ctx, "create", id, "aggregation", "append_type", err)
	if err != nil {
		return models.SensorProfile{}, &models.PartialWriteError{Store: "aggregation", Step: "append_type", SensorID: id, Err: err}
	}

	if o.events != nil {
		o.events.SensorCreated(profile)
	}
	zap.S().Infof("Created sensor %d (%s)", id, in.Name)
	return profile, nil
}

// DeleteSensor removes the identity, profile and cache entry for a sensor.
// Time-series and aggregation rows outlive the sensor on purpose: historical
// data stays queryable by id after the device is gone.
func (o *Orchestrator) DeleteSensor(ctx context.Context, id int64) (models.SensorIdentity, error) {
	ident, found, err := o.identity.Get(ctx, id)
	if err != nil {
		return models.SensorIdentity{}, &models.DownstreamError{Store: "identity", Err: err}
	}
	if !found {
		return models.SensorIdentity{}, models.ErrSensorNotFound
	}

	err = o.identity.Delete(ctx, id)
	o.steps.Record(ctx, "delete", id, "identity", "delete", err)
	if err != nil {
		return models.SensorIdentity{}, &models.DownstreamError{Store: "identity", Err: err}
	}

	err = o.profiles.Delete(ctx, id)
	o.steps.Record(ctx, "delete", id, "profile", "delete", err)
	if err != nil {
		// The identity is already gone, leaving an orphaned profile.
		return models.SensorIdentity{}, &models.PartialWriteError{Store: "profile", Step: "delete", SensorID: id, Err: err}
	}

	err = o.cache.Delete(ctx, id)
	o.steps.Record(ctx, "delete", id, "cache", "delete", err)
	if err != nil {
		return models.SensorIdentity{}, &models.PartialWriteError{Store: "cache", Step: "delete", SensorID: id, Err: err}
	}

	if o.events != nil {
		o.events.SensorDeleted(id)
	}
	zap.S().Infof("Deleted sensor %d (%s)", id, ident.Name)
	return ident, nil
}
