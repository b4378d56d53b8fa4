package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
)

// Hand-written store fakes. Each records the calls it receives so tests can
// assert fan-out ordering, and fails on demand via the err fields.

type identityFake struct {
	nextID    int64
	byID      map[int64]models.SensorIdentity
	byName    map[string]models.SensorIdentity
	insertErr error
	deleteErr error
	calls     []string
}

func newIdentityFake() *identityFake {
	return &identityFake{
		nextID: 1,
		byID:   make(map[int64]models.SensorIdentity),
		byName: make(map[string]models.SensorIdentity),
	}
}

func (f *identityFake) Insert(_ context.Context, name string) (int64, error) {
	f.calls = append(f.calls, "identity.insert")
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	id := f.nextID
	f.nextID++
	ident := models.SensorIdentity{ID: id, Name: name}
	f.byID[id] = ident
	f.byName[name] = ident
	return id, nil
}

func (f *identityFake) Get(_ context.Context, id int64) (models.SensorIdentity, bool, error) {
	ident, ok := f.byID[id]
	return ident, ok, nil
}

func (f *identityFake) GetByName(_ context.Context, name string) (models.SensorIdentity, bool, error) {
	ident, ok := f.byName[name]
	return ident, ok, nil
}

func (f *identityFake) List(_ context.Context, offset, limit int) ([]models.SensorIdentity, error) {
	var out []models.SensorIdentity
	for id := int64(1); id < f.nextID; id++ {
		if ident, ok := f.byID[id]; ok {
			out = append(out, ident)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *identityFake) Delete(_ context.Context, id int64) error {
	f.calls = append(f.calls, "identity.delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if ident, ok := f.byID[id]; ok {
		delete(f.byName, ident.Name)
		delete(f.byID, id)
	}
	return nil
}

type profileFake struct {
	docs      map[int64]models.SensorProfile
	boxHits   []models.SensorProfile
	insertErr error
	calls     []string
}

func newProfileFake() *profileFake {
	return &profileFake{docs: make(map[int64]models.SensorProfile)}
}

func (f *profileFake) EnsureGeoIndex(_ context.Context) error { return nil }

func (f *profileFake) Insert(_ context.Context, profile models.SensorProfile) error {
	f.calls = append(f.calls, "profile.insert")
	if f.insertErr != nil {
		return f.insertErr
	}
	f.docs[profile.ID] = profile
	return nil
}

func (f *profileFake) Get(_ context.Context, id int64) (models.SensorProfile, bool, error) {
	p, ok := f.docs[id]
	return p, ok, nil
}

func (f *profileFake) FindWithinBox(_ context.Context, _, _, _ float64) ([]models.SensorProfile, error) {
	return f.boxHits, nil
}

func (f *profileFake) Delete(_ context.Context, id int64) error {
	f.calls = append(f.calls, "profile.delete")
	delete(f.docs, id)
	return nil
}

type searchFake struct {
	indexErr error
	hits     []string
	lastMode string
	calls    []string
}

func (f *searchFake) IndexDocument(_ context.Context, _, _, _ string) error {
	f.calls = append(f.calls, "search.index")
	return f.indexErr
}

func (f *searchFake) Search(_ context.Context, mode string, _ map[string]interface{}, _ int) ([]string, error) {
	f.lastMode = mode
	return f.hits, nil
}

type cacheFake struct {
	entries map[int64]models.Reading
	setErr  error
	getErr  map[int64]error
	calls   []string
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[int64]models.Reading), getErr: make(map[int64]error)}
}

func (f *cacheFake) Set(_ context.Context, id int64, reading models.Reading) error {
	f.calls = append(f.calls, "cache.set")
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[id] = reading
	return nil
}

func (f *cacheFake) Get(_ context.Context, id int64) (models.Reading, bool, error) {
	if err := f.getErr[id]; err != nil {
		return models.Reading{}, false, err
	}
	reading, ok := f.entries[id]
	return reading, ok, nil
}

func (f *cacheFake) Delete(_ context.Context, id int64) error {
	f.calls = append(f.calls, "cache.delete")
	delete(f.entries, id)
	return nil
}

type seriesFake struct {
	rows      map[int64][]models.Reading
	buckets   []models.ReadingBucket
	upsertErr error
	lastGran  string
	calls     []string
}

func newSeriesFake() *seriesFake {
	return &seriesFake{rows: make(map[int64][]models.Reading)}
}

func (f *seriesFake) Upsert(_ context.Context, id int64, reading models.Reading) error {
	f.calls = append(f.calls, "series.upsert")
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rows[id] = append(f.rows[id], reading)
	return nil
}

func (f *seriesFake) QueryBucketed(_ context.Context, _ int64, _, _ time.Time, granularity string) ([]models.ReadingBucket, error) {
	f.lastGran = granularity
	return f.buckets, nil
}

type aggregateFake struct {
	temperatures map[int64][]float64
	batteries    map[int64][]float64
	types        map[int64]string
	extrema      []models.TemperatureRow
	counts       []models.TypeCount
	lowBattery   []models.BatteryRow
	appendErr    error
	calls        []string
}

func newAggregateFake() *aggregateFake {
	return &aggregateFake{
		temperatures: make(map[int64][]float64),
		batteries:    make(map[int64][]float64),
		types:        make(map[int64]string),
	}
}

func (f *aggregateFake) AppendTemperature(_ context.Context, id int64, temperature float64) error {
	f.calls = append(f.calls, "aggregate.temperature")
	if f.appendErr != nil {
		return f.appendErr
	}
	f.temperatures[id] = append(f.temperatures[id], temperature)
	return nil
}

func (f *aggregateFake) AppendBattery(_ context.Context, id int64, batteryLevel float64) error {
	f.calls = append(f.calls, "aggregate.battery")
	if f.appendErr != nil {
		return f.appendErr
	}
	f.batteries[id] = append(f.batteries[id], batteryLevel)
	return nil
}

func (f *aggregateFake) AppendTypeRow(_ context.Context, id int64, sensorType string) error {
	f.calls = append(f.calls, "aggregate.type")
	if f.appendErr != nil {
		return f.appendErr
	}
	f.types[id] = sensorType
	return nil
}

func (f *aggregateFake) ScanTemperatureExtrema(_ context.Context) ([]models.TemperatureRow, error) {
	return f.extrema, nil
}

func (f *aggregateFake) ScanTypeCounts(_ context.Context) ([]models.TypeCount, error) {
	return f.counts, nil
}

func (f *aggregateFake) ScanLowBattery(_ context.Context, threshold float64) ([]models.BatteryRow, error) {
	var out []models.BatteryRow
	for _, row := range f.lowBattery {
		if row.BatteryLevel < threshold {
			out = append(out, row)
		}
	}
	return out, nil
}

type stepFake struct {
	steps []string
}

func (f *stepFake) Record(_ context.Context, operation string, _ int64, store, step string, err error) {
	ok := "ok"
	if err != nil {
		ok = "failed"
	}
	f.steps = append(f.steps, fmt.Sprintf("%s/%s.%s=%s", operation, store, step, ok))
}

type publisherFake struct {
	created  []models.SensorProfile
	deleted  []int64
	readings []int64
}

func (f *publisherFake) SensorCreated(profile models.SensorProfile) {
	f.created = append(f.created, profile)
}

func (f *publisherFake) SensorDeleted(id int64) {
	f.deleted = append(f.deleted, id)
}

func (f *publisherFake) ReadingRecorded(id int64, _ models.Reading) {
	f.readings = append(f.readings, id)
}

type fixture struct {
	identity   *identityFake
	profiles   *profileFake
	search     *searchFake
	cache      *cacheFake
	series     *seriesFake
	aggregates *aggregateFake
	steps      *stepFake
	events     *publisherFake
	core       *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		identity:   newIdentityFake(),
		profiles:   newProfileFake(),
		search:     &searchFake{},
		cache:      newCacheFake(),
		series:     newSeriesFake(),
		aggregates: newAggregateFake(),
		steps:      &stepFake{},
		events:     &publisherFake{},
	}
	f.core = New(f.identity, f.profiles, f.search, f.cache, f.series, f.aggregates, f.steps, f.events)
	return f
}

func ptr(v float64) *float64 { return &v }
