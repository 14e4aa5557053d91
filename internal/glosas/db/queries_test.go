package glosasdb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/cartera-salud/glosas/internal/glosas"
)

type recordingDB struct {
	sql  string
	args []any
	err  error
	row  pgx.Row
}

func (r *recordingDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	r.sql, r.args = sql, args
	return nil, r.err
}

func (r *recordingDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	r.sql, r.args = sql, args
	return r.row
}

func (r *recordingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql, r.args = sql, args
	return pgconn.CommandTag{}, r.err
}

type rangeRow struct {
	min, max *time.Time
	err      error
}

func (r rangeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(**time.Time) = r.min
	*dest[1].(**time.Time) = r.max
	return nil
}

func TestGlosasQueryWithWindow(t *testing.T) {
	db := &recordingDB{err: errors.New("connection reset")}
	window, err := glosas.ParseWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	_, err = New(db).WithTable("gema_2024").Glosas(context.Background(), window)
	require.ErrorContains(t, err, "glosasdb: query glosas")

	require.True(t, strings.HasPrefix(db.sql, `SELECT "fecha_notificacion", "fecha_gl", "nom_entidad"`))
	require.Contains(t, db.sql, `FROM "gema_2024" WHERE "fecha_notificacion" BETWEEN $1 AND $2`)
	require.Len(t, db.args, 2)
	require.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), db.args[1])
}

func TestGlosasQueryUnwindowed(t *testing.T) {
	db := &recordingDB{err: errors.New("boom")}
	_, _ = New(db).Glosas(context.Background(), glosas.Window{})
	require.NotContains(t, db.sql, "WHERE")
	require.True(t, strings.HasSuffix(db.sql, `FROM "gema"`))
	require.Empty(t, db.args)
}

func TestTableNameIsQuoted(t *testing.T) {
	db := &recordingDB{err: errors.New("boom")}
	_, _ = New(db).WithTable(`gema"; DROP TABLE x; --`).Glosas(context.Background(), glosas.Window{})
	require.Contains(t, db.sql, `FROM "gema""; DROP TABLE x; --"`)
}

func TestNotificationRange(t *testing.T) {
	min := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	db := &recordingDB{row: rangeRow{min: &min, max: &max}}

	rng, err := New(db).NotificationRange(context.Background())
	require.NoError(t, err)
	require.True(t, rng.OK)
	require.Equal(t, min, rng.Min)
	require.Equal(t, `SELECT MIN("fecha_notificacion"), MAX("fecha_notificacion") FROM "gema"`, db.sql)

	db.row = rangeRow{}
	rng, err = New(db).NotificationRange(context.Background())
	require.NoError(t, err)
	require.False(t, rng.OK)

	db.row = rangeRow{err: errors.New("timeout")}
	_, err = New(db).NotificationRange(context.Background())
	require.ErrorContains(t, err, "glosasdb: notification range")
}

func TestPing(t *testing.T) {
	db := &recordingDB{}
	require.NoError(t, New(db).Ping(context.Background()))
	require.Equal(t, `SELECT 1 FROM "gema" LIMIT 1`, db.sql)

	db.err = errors.New("relation does not exist")
	require.ErrorContains(t, New(db).Ping(context.Background()), "glosasdb: ping")
}
