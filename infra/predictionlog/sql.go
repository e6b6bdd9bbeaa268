package predictionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/eta/core/metrics"
	"github.com/kilianp07/eta/core/model"
)

const schema = `CREATE TABLE IF NOT EXISTS eta_predictions (
	id TEXT PRIMARY KEY,
	ts BIGINT NOT NULL,
	source TEXT NOT NULL,
	outcome TEXT NOT NULL,
	features TEXT,
	eta DOUBLE PRECISION,
	error TEXT NOT NULL,
	duration_us BIGINT NOT NULL
)`

const tsIndex = `CREATE INDEX IF NOT EXISTS eta_predictions_ts ON eta_predictions (ts)`

// SQLStore persists records in a SQL table. The same schema serves SQLite and
// Postgres; placeholders are rebound for the driver.
type SQLStore struct {
	db *sqlx.DB
}

type sqlRow struct {
	ID         string          `db:"id"`
	TS         int64           `db:"ts"`
	Source     string          `db:"source"`
	Outcome    string          `db:"outcome"`
	Features   sql.NullString  `db:"features"`
	ETA        sql.NullFloat64 `db:"eta"`
	Error      string          `db:"error"`
	DurationUS int64           `db:"duration_us"`
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	return openSQL("sqlite", path)
}

// NewPostgresStore connects to dsn with driver "postgres" (lib/pq) or "pgx".
func NewPostgresStore(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "", "postgres":
		driver = "postgres"
	case "pgx":
	default:
		return nil, fmt.Errorf("unknown postgres driver %q", driver)
	}
	return openSQL(driver, dsn)
}

func openSQL(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{schema, tsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

// Append inserts rec.
func (s *SQLStore) Append(ctx context.Context, rec Record) error {
	row := sqlRow{
		ID:         rec.ID,
		TS:         rec.Timestamp.UnixMicro(),
		Source:     rec.Source,
		Outcome:    string(rec.Outcome),
		Error:      rec.Error,
		DurationUS: int64(math.Round(rec.DurationMS * 1000)),
	}
	if rec.Features != nil {
		b, err := json.Marshal(rec.Features)
		if err != nil {
			return err
		}
		row.Features = sql.NullString{String: string(b), Valid: true}
	}
	if rec.ETA != nil {
		row.ETA = sql.NullFloat64{Float64: *rec.ETA, Valid: true}
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO eta_predictions (id, ts, source, outcome, features, eta, error, duration_us)
		VALUES (:id, :ts, :source, :outcome, :features, :eta, :error, :duration_us)`, row)
	return err
}

// Query returns records matching q, newest first.
func (s *SQLStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT id, ts, source, outcome, features, eta, error, duration_us FROM eta_predictions WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixMicro())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixMicro())
	}
	if q.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, string(q.Outcome))
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, q.limit())

	var rows []sqlRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	res := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec := Record{
			ID:         r.ID,
			Timestamp:  time.UnixMicro(r.TS).UTC(),
			Source:     r.Source,
			Outcome:    metrics.Outcome(r.Outcome),
			Error:      r.Error,
			DurationMS: float64(r.DurationUS) / 1000,
		}
		if r.Features.Valid {
			var f model.TripFeatures
			if err := json.Unmarshal([]byte(r.Features.String), &f); err != nil {
				return nil, fmt.Errorf("unmarshal features of %s: %w", r.ID, err)
			}
			rec.Features = &f
		}
		if r.ETA.Valid {
			eta := r.ETA.Float64
			rec.ETA = &eta
		}
		res = append(res, rec)
	}
	return res, nil
}

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }
