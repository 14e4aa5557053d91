// Package glosasdb reads raw glosa rows from PostgreSQL.
package glosasdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cartera-salud/glosas/internal/glosas"
)

// DBTX is the subset of pgxpool.Pool used by the queries.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Queries implements glosas.Source over the gema table.
type Queries struct {
	db    DBTX
	table string
}

// New builds Queries reading from the default table.
func New(db DBTX) *Queries {
	return &Queries{db: db, table: "gema"}
}

// WithTable returns a copy reading from another table.
func (q *Queries) WithTable(table string) *Queries {
	return &Queries{db: q.db, table: table}
}

func (q *Queries) selectGlosas() string {
	cols := make([]string, len(glosas.SourceColumns))
	for i, c := range glosas.SourceColumns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), pgx.Identifier{q.table}.Sanitize())
}

// Glosas returns every row, restricted to the full-day notification window
// when one is given.
func (q *Queries) Glosas(ctx context.Context, window glosas.Window) ([]map[string]any, error) {
	query := q.selectGlosas()
	var args []any
	if !window.IsZero() {
		from, to := window.Bounds()
		query += " WHERE " + pgx.Identifier{glosas.ColNotificationDate}.Sanitize() + " BETWEEN $1 AND $2"
		args = append(args, from, to)
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("glosasdb: query glosas: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("glosasdb: scan glosas: %w", err)
	}
	return out, nil
}

// NotificationRange returns the min and max notification date. OK is false
// when the table holds no dated rows.
func (q *Queries) NotificationRange(ctx context.Context) (glosas.DateRange, error) {
	col := pgx.Identifier{glosas.ColNotificationDate}.Sanitize()
	query := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s", col, col, pgx.Identifier{q.table}.Sanitize())
	var min, max *time.Time
	if err := q.db.QueryRow(ctx, query).Scan(&min, &max); err != nil {
		return glosas.DateRange{}, fmt.Errorf("glosasdb: notification range: %w", err)
	}
	if min == nil || max == nil {
		return glosas.DateRange{}, nil
	}
	return glosas.DateRange{Min: *min, Max: *max, OK: true}, nil
}

// Ping checks that the table is reachable.
func (q *Queries) Ping(ctx context.Context) error {
	_, err := q.db.Exec(ctx, "SELECT 1 FROM "+pgx.Identifier{q.table}.Sanitize()+" LIMIT 1")
	if err != nil {
		return fmt.Errorf("glosasdb: ping: %w", err)
	}
	return nil
}
