package identity

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	lru "github.com/hashicorp/golang-lru"
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
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store is the authoritative id allocator. Ids are BIGSERIAL and never
// reused. An ARC cache fronts the name lookups the search path hammers.
type Store struct {
	db      PgxIface
	nameIds *lru.ARCCache
}

// Connect opens the pool, ensures the schema and returns the store.
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

	store, err := NewStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err = store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	zap.S().Infof("Identity store connected to %s@%s:%d/%s", user, host, port, dbName)
	return store, nil
}

func NewStore(db PgxIface) (*Store, error) {
	cache, err := lru.NewARC(1000)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, nameIds: cache}, nil
}

func (s *Store) migrate(ctx context.Context) error {
	// Name is intentionally not UNIQUE: duplicate detection is a read-then-
	// write check in the orchestrator and the race is accepted.
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS sensors (id BIGSERIAL PRIMARY KEY, name TEXT NOT NULL)`)
	return err
}

// Pool exposes the shared pool for collaborators that live in the same
// database, like the fan-out step log.
func (s *Store) Pool() PgxIface {
	return s.db
}

func (s *Store) Insert(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `INSERT INTO sensors (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	s.nameIds.Add(name, id)
	return id, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.SensorIdentity, bool, error) {
	var ident models.SensorIdentity
	err := s.db.QueryRow(ctx, `SELECT id, name FROM sensors WHERE id = $1`, id).Scan(&ident.ID, &ident.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SensorIdentity{}, false, nil
	}
	if err != nil {
		return models.SensorIdentity{}, false, err
	}
	return ident, true, nil
}

func (s *Store) GetByName(ctx context.Context, name string) (models.SensorIdentity, bool, error) {
	if cached, ok := s.nameIds.Get(name); ok {
		ident, found, err := s.Get(ctx, cached.(int64))
		if err == nil && !found {
			s.nameIds.Remove(name)
		}
		if err != nil || found {
			return ident, found, err
		}
		// Stale cache entry, fall through to the query.
	}

	var ident models.SensorIdentity
	err := s.db.QueryRow(ctx, `SELECT id, name FROM sensors WHERE name = $1`, name).Scan(&ident.ID, &ident.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SensorIdentity{}, false, nil
	}
	if err != nil {
		return models.SensorIdentity{}, false, err
	}
	s.nameIds.Add(name, ident.ID)
	return ident, true, nil
}

func (s *Store) List(ctx context.Context, offset, limit int) (sensors []models.SensorIdentity, err error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM sensors ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sensors = make([]models.SensorIdentity, 0)
	for rows.Next() {
		var ident models.SensorIdentity
		if err = rows.Scan(&ident.ID, &ident.Name); err != nil {
			return nil, err
		}
		sensors = append(sensors, ident)
	}
	return sensors, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	ident, found, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if found {
		s.nameIds.Remove(ident.Name)
	}
	_, err = s.db.Exec(ctx, `DELETE FROM sensors WHERE id = $1`, id)
	return err
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
