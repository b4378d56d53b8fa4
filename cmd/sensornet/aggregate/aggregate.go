package aggregate

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/heptiolabs/healthcheck"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.uber.org/zap"
)

// Store is the wide-column aggregation store: three narrow tables optimized
// for full-scan aggregates. Datasets are assumed small enough that the scans
// run unpaginated.
type Store struct {
	session *gocql.Session
}

func Connect(hosts []string) (*Store, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	store := &Store{session: session}
	if err = store.migrate(); err != nil {
		session.Close()
		return nil, err
	}
	zap.S().Infof("Aggregation store connected to cassandra at %v", hosts)
	return store, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE KEYSPACE IF NOT EXISTS sensor
			WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
		// Identical (id, temperature) pairs collapse into one row on purpose:
		// extrema and averages run over the distinct-temperature set.
		`CREATE TABLE IF NOT EXISTS sensor.temperature (
			id bigint,
			temperature double,
			PRIMARY KEY (id, temperature))`,
		// Partitioned by level, so identical levels collapse across sensors
		// and the low-battery range scan needs ALLOW FILTERING.
		`CREATE TABLE IF NOT EXISTS sensor.battery (
			battery_level double,
			id bigint,
			PRIMARY KEY (battery_level, id))`,
		`CREATE TABLE IF NOT EXISTS sensor.quantity (
			type text,
			id bigint,
			PRIMARY KEY (type, id))`,
	}
	for _, stmt := range statements {
		if err := s.session.Query(stmt).Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) AppendTemperature(ctx context.Context, id int64, temperature float64) error {
	return s.session.Query(
		`INSERT INTO sensor.temperature (id, temperature) VALUES (?, ?)`,
		id, temperature).WithContext(ctx).Exec()
}

func (s *Store) AppendBattery(ctx context.Context, id int64, batteryLevel float64) error {
	return s.session.Query(
		`INSERT INTO sensor.battery (battery_level, id) VALUES (?, ?)`,
		batteryLevel, id).WithContext(ctx).Exec()
}

func (s *Store) AppendTypeRow(ctx context.Context, id int64, sensorType string) error {
	return s.session.Query(
		`INSERT INTO sensor.quantity (type, id) VALUES (?, ?)`,
		sensorType, id).WithContext(ctx).Exec()
}

func (s *Store) ScanTemperatureExtrema(ctx context.Context) (rows []models.TemperatureRow, err error) {
	iter := s.session.Query(`
		SELECT id, MAX(temperature), MIN(temperature), AVG(temperature)
		FROM sensor.temperature
		GROUP BY id`).WithContext(ctx).Iter()

	rows = make([]models.TemperatureRow, 0)
	var row models.TemperatureRow
	for iter.Scan(&row.ID, &row.Max, &row.Min, &row.Average) {
		rows = append(rows, row)
	}
	return rows, iter.Close()
}

func (s *Store) ScanTypeCounts(ctx context.Context) (counts []models.TypeCount, err error) {
	iter := s.session.Query(`
		SELECT type, COUNT(*)
		FROM sensor.quantity
		GROUP BY type`).WithContext(ctx).Iter()

	counts = make([]models.TypeCount, 0)
	var count models.TypeCount
	for iter.Scan(&count.Type, &count.Quantity) {
		counts = append(counts, count)
	}
	return counts, iter.Close()
}

func (s *Store) ScanLowBattery(ctx context.Context, threshold float64) (rows []models.BatteryRow, err error) {
	iter := s.session.Query(`
		SELECT id, battery_level
		FROM sensor.battery
		WHERE battery_level < ?
		ALLOW FILTERING`, threshold).WithContext(ctx).Iter()

	rows = make([]models.BatteryRow, 0)
	var row models.BatteryRow
	for iter.Scan(&row.ID, &row.BatteryLevel) {
		rows = append(rows, row)
	}
	return rows, iter.Close()
}

func (s *Store) HealthCheck() healthcheck.Check {
	return func() error {
		ctx, cncl := context.WithTimeout(context.Background(), 5*time.Second)
		defer cncl()
		return s.session.Query(`SELECT release_version FROM system.local`).WithContext(ctx).Exec()
	}
}

func (s *Store) Close() {
	s.session.Close()
}
