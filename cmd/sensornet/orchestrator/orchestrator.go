package orchestrator

import (
	"context"

	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"github.com/sensornet-io/sensornet/cmd/sensornet/steplog"
)

// Orchestrator sequences every logical sensor operation across the backing
// stores. It holds no state of its own beyond the store handles: cross-request
// concurrency is bounded only by each store's connection pool, and two
// concurrent writes for the same sensor race freely (last writer wins).
type Orchestrator struct {
	identity   IdentityStore
	profiles   ProfileStore
	search     SearchIndex
	cache      HotCache
	series     TimeSeriesStore
	aggregates AggregationStore
	steps      steplog.Recorder
	events     EventPublisher
}

// New wires the orchestrator. steps may be nil (no step logging), events may
// be nil (no event publishing).
func New(
	identity IdentityStore,
	profiles ProfileStore,
	search SearchIndex,
	cache HotCache,
	series TimeSeriesStore,
	aggregates AggregationStore,
	steps steplog.Recorder,
	events EventPublisher) *Orchestrator {
	if steps == nil {
		steps = steplog.Noop{}
	}
	return &Orchestrator{
		identity:   identity,
		profiles:   profiles,
		search:     search,
		cache:      cache,
		series:     series,
		aggregates: aggregates,
		steps:      steps,
		events:     events,
	}
}

// GetIdentity is the existence check the HTTP layer runs before data
// operations.
func (o *Orchestrator) GetIdentity(ctx context.Context, id int64) (models.SensorIdentity, error) {
	ident, found, err := o.identity.Get(ctx, id)
	if err != nil {
		return models.SensorIdentity{}, &models.DownstreamError{Store: "identity", Err: err}
	}
	if !found {
		return models.SensorIdentity{}, models.ErrSensorNotFound
	}
	return ident, nil
}

// GetSensor returns the full profile for an id.
func (o *Orchestrator) GetSensor(ctx context.Context, id int64) (models.SensorProfile, error) {
	profile, found, err := o.profiles.Get(ctx, id)
	if err != nil {
		return models.SensorProfile{}, &models.DownstreamError{Store: "profile", Err: err}
	}
	if !found {
		return models.SensorProfile{}, models.ErrSensorNotFound
	}
	return profile, nil
}

// ListSensors pages through the identity store.
func (o *Orchestrator) ListSensors(ctx context.Context, offset, limit int) ([]models.SensorIdentity, error) {
	sensors, err := o.identity.List(ctx, offset, limit)
	if err != nil {
		return nil, &models.DownstreamError{Store: "identity", Err: err}
	}
	if sensors == nil {
		sensors = []models.SensorIdentity{}
	}
	return sensors, nil
}
