package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

// row is the bun model backing the audit table. Grounded on the
// teacher's db.go models (bun.BaseModel embedding, `bun:"..."` tags,
// sqlitedialect wiring), trimmed to the one table this package owns —
// golang-migrate is not pulled in for it since a single append-only
// table needs no migration framework, so SQLRecorder bootstraps its own
// schema with IfNotExists on open.
type row struct {
	bun.BaseModel `bun:"table:audit_records"`

	ID        int64     `bun:"id,pk,autoincrement"`
	SessionID uint64    `bun:"session_id,notnull"`
	Username  string    `bun:"username"`
	Event     string    `bun:"event,notnull"`
	Timestamp time.Time `bun:"timestamp,notnull"`
	Detail    string    `bun:"detail"`
}

// SQLRecorder journals every record to a SQLite database via bun. It
// implements Recorder.
type SQLRecorder struct {
	db *bun.DB
}

// Open opens (creating if necessary) a SQLite-backed audit journal at
// dsn, a thin convenience wrapper around a raw sql.Open + bun.NewDB
// pairing.
func Open(dsn string) (*SQLRecorder, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", dsn, err)
	}
	if _, err := sqldb.Exec("PRAGMA journal_mode = WAL"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("audit: enabling WAL: %w", err)
	}
	sqldb.SetMaxIdleConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := bunDB.NewCreateTable().Model((*row)(nil)).IfNotExists().Exec(ctx); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("audit: creating table: %w", err)
	}

	return &SQLRecorder{db: bunDB}, nil
}

// Close closes the underlying database connection.
func (s *SQLRecorder) Close() error {
	return s.db.Close()
}

// OnEvent inserts rec as a new journal row. Failures are logged rather
// than propagated: a broken audit sink must never interrupt order flow.
func (s *SQLRecorder) OnEvent(ctx context.Context, rec Record) {
	r := &row{
		SessionID: rec.SessionID,
		Username:  rec.Username,
		Event:     string(rec.Event),
		Timestamp: rec.Timestamp,
		Detail:    rec.Detail,
	}
	if _, err := s.db.NewInsert().Model(r).Exec(ctx); err != nil {
		slog.Error("audit: failed to record event", "event", rec.Event, "error", err)
	}
}
