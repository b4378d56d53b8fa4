package timeseries

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.uber.org/zap"
)

// PgxIface is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Store is the TimescaleDB readings table, upserted by (id, last_seen).
type Store struct {
	db PgxIface
}

// Widths accepted by time_bucket, keyed by granularity name.
var bucketWidths = map[string]string{
	"hour":  "1 hour",
	"day":   "1 day",
	"week":  "1 week",
	"month": "1 month",
}

func Connect(ctx context.Context, user, password, dbName, host string, port int, sslMode string) (*Store, error) {
	psqlInfo := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbName, sslMode)

	parseConfig, err := pgxpool.ParseConfig(psqlInfo)
	if err != nil {
		return nil, err
	}
	parseConfig.MinConns = int32(runtime.NumCPU())
	if parseConfig.MinConns < 4 {
		parseConfig.MinConns = 4
	}
	parseConfig.MaxConnIdleTime = 5 * time.Minute
	parseConfig.MaxConnLifetime = 10 * time.Minute

	connCtx, cncl := context.WithTimeout(ctx, 5*time.Second)
	defer cncl()
	pool, err := pgxpool.NewWithConfig(connCtx, parseConfig)
	if err != nil {
		return nil, err
	}

	store := NewStore(pool)
	if err = store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	zap.S().Infof("Time-series store connected to %s@%s:%d/%s", user, host, port, dbName)
	return store, nil
}

func NewStore(db PgxIface) *Store {
	return &Store{db: db}
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sensor_data (
			id BIGINT NOT NULL,
			temperature DOUBLE PRECISION,
			humidity DOUBLE PRECISION,
			velocity DOUBLE PRECISION,
			battery_level DOUBLE PRECISION,
			last_seen TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (id, last_seen)
		)`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `SELECT create_hypertable('sensor_data', 'last_seen', if_not_exists => TRUE)`)
	if err != nil {
		// time_bucket still needs the extension, but plain inserts and reads
		// work on vanilla PostgreSQL, so only warn here.
		zap.S().Warnf("Failed to create hypertable (running without TimescaleDB?): %s", err)
	}
	return nil
}

const upsertStatement = `
	INSERT INTO sensor_data (id, temperature, humidity, velocity, battery_level, last_seen)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id, last_seen) DO UPDATE
	SET temperature = EXCLUDED.temperature,
	    humidity = EXCLUDED.humidity,
	    velocity = EXCLUDED.velocity,
	    battery_level = EXCLUDED.battery_level`

// Upsert writes one reading, last-write-wins per (id, last_seen). All four
// numeric columns are overwritten unconditionally; absent fields become NULL.
func (s *Store) Upsert(ctx context.Context, id int64, reading models.Reading) error {
	_, err := s.db.Exec(ctx, upsertStatement,
		id, reading.Temperature, reading.Humidity, reading.Velocity, reading.BatteryLevel, reading.LastSeen)
	return err
}

// QueryBucketed groups the rows in [from, to] into calendar-aligned buckets
// via time_bucket and averages velocity, temperature and humidity per bucket.
func (s *Store) QueryBucketed(ctx context.Context, id int64, from, to time.Time, granularity string) (buckets []models.ReadingBucket, err error) {
	width, ok := bucketWidths[granularity]
	if !ok {
		return nil, fmt.Errorf("unsupported bucket granularity %q", granularity)
	}

	// #nosec G201 -- width comes from the whitelist above
	sqlStatement := fmt.Sprintf(`
	SELECT
	    id,
	    time_bucket('%s', last_seen) AS bucket,
	    AVG(velocity) AS velocity,
	    AVG(temperature) AS temperature,
	    AVG(humidity) AS humidity
	FROM sensor_data
	WHERE id = $1 AND last_seen >= $2 AND last_seen <= $3
	GROUP BY id, bucket
	ORDER BY bucket`, width)

	rows, err := s.db.Query(ctx, sqlStatement, id, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets = make([]models.ReadingBucket, 0)
	for rows.Next() {
		var bucket models.ReadingBucket
		if err = rows.Scan(&bucket.ID, &bucket.Bucket, &bucket.Velocity, &bucket.Temperature, &bucket.Humidity); err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}

func (s *Store) HealthCheck() healthcheck.Check {
	return func() error {
		ctx, cncl := context.WithTimeout(context.Background(), 5*time.Second)
		defer cncl()
		return s.db.Ping(ctx)
	}
}

func (s *Store) Close() {
	s.db.Close()
}
