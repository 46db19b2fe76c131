package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	"github.com/oksasatya/go-book-tracker/internal/domain/repository"
)

// rowDB answers every QueryRow with the same row.
type rowDB struct {
	row  pgx.Row
	sql  string
	args []any
}

func (d *rowDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected Exec")
}

func (d *rowDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (d *rowDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.sql, d.args = sql, args
	return d.row
}

type timeRow struct {
	ts  time.Time
	err error
}

func (r timeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("expected one destination")
	}
	p, ok := dest[0].(*time.Time)
	if !ok {
		return errors.New("destination is not *time.Time")
	}
	*p = r.ts
	return nil
}

func TestBookRepository_UpdateScansUpdatedAt(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &rowDB{row: timeRow{ts: ts}}
	repo := NewBookRepository(db)

	b := &entity.Book{ID: uuid.NewString(), UserID: uuid.NewString(), Title: "Dune", Author: "Herbert", Genre: "SF", Status: entity.StatusReading, ImageFile: "a.png"}
	require.NoError(t, repo.Update(context.Background(), b))
	assert.Equal(t, ts, b.UpdatedAt)
	assert.Contains(t, db.sql, "RETURNING updated_at")
	assert.Equal(t, []any{b.ID, b.UserID, "Dune", "Herbert", "SF", "reading", "a.png"}, db.args)
}

func TestBookRepository_UpdateMissingRowIsNotFound(t *testing.T) {
	repo := NewBookRepository(&rowDB{row: timeRow{err: pgx.ErrNoRows}})
	b := &entity.Book{ID: uuid.NewString(), UserID: uuid.NewString(), Status: entity.StatusRead}
	assert.ErrorIs(t, repo.Update(context.Background(), b), repository.ErrNotFound)
}

func TestBookRepository_UpdateMalformedIDs(t *testing.T) {
	db := &rowDB{row: timeRow{}}
	repo := NewBookRepository(db)
	assert.ErrorIs(t, repo.Update(context.Background(), &entity.Book{ID: "nope", UserID: uuid.NewString()}), repository.ErrNotFound)
	assert.Empty(t, db.sql)
}
