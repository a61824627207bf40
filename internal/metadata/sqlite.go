package metadata

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ace26597/News-Agent/internal/model"
)

// SQLiteRecorder appends run records to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens the database at dsn, configures WAL mode, and
// ensures the schema exists.
func NewSQLiteRecorder(dsn string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "metadata: sqlite exec %s", pragma)
		}
	}

	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "metadata: sqlite migrate")
	}
	return &SQLiteRecorder{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS run_records (
	id              TEXT PRIMARY KEY,
	recorded_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	alert_name      TEXT NOT NULL DEFAULT '',
	alert_type      TEXT NOT NULL DEFAULT '',
	user            TEXT NOT NULL DEFAULT '',
	search_type     TEXT NOT NULL DEFAULT '',
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	collected       INTEGER NOT NULL DEFAULT 0,
	unique_articles INTEGER NOT NULL DEFAULT 0,
	duplicates      INTEGER NOT NULL DEFAULT 0,
	in_range        INTEGER NOT NULL DEFAULT 0,
	model_rescued   INTEGER NOT NULL DEFAULT 0,
	analyzed        INTEGER NOT NULL DEFAULT 0,
	final_kept      INTEGER NOT NULL DEFAULT 0,
	avg_score       REAL NOT NULL DEFAULT 0,
	successful      INTEGER NOT NULL DEFAULT 1,
	elapsed_secs    REAL NOT NULL DEFAULT 0,
	record          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_records_recorded_at ON run_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_run_records_alert_name ON run_records(alert_name);
`

// Record implements Recorder.
func (r *SQLiteRecorder) Record(ctx context.Context, rec *model.RunRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "metadata: marshal record")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO run_records (
			id, recorded_at, alert_name, alert_type, user, search_type,
			start_date, end_date, collected, unique_articles, duplicates,
			in_range, model_rescued, analyzed, final_kept, avg_score,
			successful, elapsed_secs, record
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.UTC(),
		rec.AlertName,
		rec.AlertType,
		rec.User,
		string(rec.Mode),
		rec.StartDate.Format("2006-01-02"),
		rec.EndDate.Format("2006-01-02"),
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
		string(blob),
	)
	return eris.Wrap(err, "metadata: sqlite insert record")
}

// RecentRows implements RowReader by rebuilding column-keyed rows from the
// stored record blobs, oldest first. Blobs that no longer unmarshal are
// skipped rather than failing the analysis.
func (r *SQLiteRecorder) RecentRows(n int) ([]map[string]string, error) {
	query := "SELECT record FROM run_records ORDER BY recorded_at DESC, id DESC"
	var args []any
	if n > 0 {
		query += " LIMIT ?"
		args = append(args, n)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: sqlite query records")
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, eris.Wrap(err, "metadata: sqlite scan record")
		}
		var rec model.RunRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			continue
		}
		out = append(out, rowMap(&rec))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "metadata: sqlite iterate records")
	}

	// The query returns newest first; the analyzer expects oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close implements Recorder.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
