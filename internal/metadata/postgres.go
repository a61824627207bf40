package metadata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ace26597/News-Agent/internal/model"
)

// pgxExecutor is the subset of pgxpool.Pool the recorder uses; pgxmock
// satisfies it in tests.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresRecorder appends run records to a Postgres table.
type PostgresRecorder struct {
	pool pgxExecutor
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS run_records (
	id              TEXT PRIMARY KEY,
	recorded_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	alert_name      TEXT NOT NULL DEFAULT '',
	alert_type      TEXT NOT NULL DEFAULT '',
	"user"          TEXT NOT NULL DEFAULT '',
	search_type     TEXT NOT NULL DEFAULT '',
	start_date      DATE NOT NULL,
	end_date        DATE NOT NULL,
	collected       INTEGER NOT NULL DEFAULT 0,
	unique_articles INTEGER NOT NULL DEFAULT 0,
	duplicates      INTEGER NOT NULL DEFAULT 0,
	in_range        INTEGER NOT NULL DEFAULT 0,
	model_rescued   INTEGER NOT NULL DEFAULT 0,
	analyzed        INTEGER NOT NULL DEFAULT 0,
	final_kept      INTEGER NOT NULL DEFAULT 0,
	avg_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	successful      BOOLEAN NOT NULL DEFAULT TRUE,
	elapsed_secs    DOUBLE PRECISION NOT NULL DEFAULT 0,
	record          JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_records_recorded_at ON run_records(recorded_at);
`

// NewPostgresRecorder connects to databaseURL and ensures the schema
// exists.
func NewPostgresRecorder(databaseURL string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: postgres connect")
	}
	if _, err := pool.Exec(context.Background(), postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "metadata: postgres migrate")
	}
	return &PostgresRecorder{pool: pool}, nil
}

// NewPostgresRecorderWithPool wraps an existing pool; the caller owns
// migration. Used by tests.
func NewPostgresRecorderWithPool(pool pgxExecutor) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

const insertRecordSQL = `
	INSERT INTO run_records (
		id, recorded_at, alert_name, alert_type, "user", search_type,
		start_date, end_date, collected, unique_articles, duplicates,
		in_range, model_rescued, analyzed, final_kept, avg_score,
		successful, elapsed_secs, record
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

// Record implements Recorder.
func (r *PostgresRecorder) Record(ctx context.Context, rec *model.RunRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "metadata: marshal record")
	}

	_, err = r.pool.Exec(ctx, insertRecordSQL,
		rec.ID,
		rec.Timestamp.UTC(),
		rec.AlertName,
		rec.AlertType,
		rec.User,
		string(rec.Mode),
		rec.StartDate,
		rec.EndDate,
		rec.Stats.Collected,
		rec.Stats.Unique,
		rec.Stats.DuplicatesRemoved,
		rec.Stats.InRange,
		rec.Stats.ModelRescued,
		rec.Stats.Analyzed,
		rec.Stats.Kept,
		rec.Stats.ScoreAvg,
		rec.Successful,
		rec.Elapsed,
		blob,
	)
	return eris.Wrap(err, "metadata: postgres insert record")
}

// RecentRows implements RowReader by rebuilding column-keyed rows from the
// stored record blobs, oldest first.
func (r *PostgresRecorder) RecentRows(n int) ([]map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := "SELECT record FROM run_records ORDER BY recorded_at DESC, id DESC"
	var args []any
	if n > 0 {
		query += " LIMIT $1"
		args = append(args, n)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: postgres query records")
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, eris.Wrap(err, "metadata: postgres scan record")
		}
		var rec model.RunRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			continue
		}
		out = append(out, rowMap(&rec))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "metadata: postgres iterate records")
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close implements Recorder.
func (r *PostgresRecorder) Close() error {
	r.pool.Close()
	return nil
}
