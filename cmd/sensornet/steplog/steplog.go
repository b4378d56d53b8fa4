package steplog

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Recorder appends one row per fan-out step so an out-of-band reconciler can
// find operations that died between stores. There is no cross-store
// transaction; the log is the only trail a partial write leaves behind.
type Recorder interface {
	Record(ctx context.Context, operation string, sensorID int64, store, step string, stepErr error)
}

// Execer is the subset of pgxpool.Pool the recorder needs.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresRecorder writes the step log next to the identity data.
type PostgresRecorder struct {
	db Execer
}

func NewPostgresRecorder(ctx context.Context, db Execer) (*PostgresRecorder, error) {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS fanout_step_log (
			id BIGSERIAL PRIMARY KEY,
			operation TEXT NOT NULL,
			sensor_id BIGINT NOT NULL,
			store TEXT NOT NULL,
			step TEXT NOT NULL,
			ok BOOLEAN NOT NULL,
			detail TEXT,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return nil, err
	}
	return &PostgresRecorder{db: db}, nil
}

// Record is best-effort: losing a log row must never fail the fan-out itself.
func (r *PostgresRecorder) Record(ctx context.Context, operation string, sensorID int64, store, step string, stepErr error) {
	ok := stepErr == nil
	var detail string
	if stepErr != nil {
		detail = stepErr.Error()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO fanout_step_log (operation, sensor_id, store, step, ok, detail) VALUES ($1, $2, $3, $4, $5, $6)`,
		operation, sensorID, store, step, ok, detail)
	if err != nil {
		zap.S().Errorw("Failed to append to fan-out step log",
			"error", err,
			"operation", operation,
			"sensorID", sensorID,
			"store", store,
			"step", step)
	}
}

// Noop discards every step. Used in tests and when step logging is disabled.
type Noop struct{}

func (Noop) Record(context.Context, string, int64, string, string, error) {}
