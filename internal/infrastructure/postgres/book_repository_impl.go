package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	"github.com/oksasatya/go-book-tracker/internal/domain/repository"
)

type BookRepository struct {
	pool DBTX
}

func NewBookRepository(pool DBTX) *BookRepository {
	return &BookRepository{pool: pool}
}

const bookColumns = `id, user_id, title, author, genre, status, image_file, created_at, updated_at`

func (r *BookRepository) ListByUser(ctx context.Context, userID string, status entity.Status) ([]entity.Book, error) {
	books := []entity.Book{}
	if !validID(userID) {
		return books, nil
	}
	var err error
	if status == "" {
		err = pgxscan.Select(ctx, r.pool, &books,
			`SELECT `+bookColumns+` FROM books WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	} else {
		err = pgxscan.Select(ctx, r.pool, &books,
			`SELECT `+bookColumns+` FROM books WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC`, userID, string(status))
	}
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *BookRepository) CountByStatus(ctx context.Context, userID string) (map[entity.Status]int, error) {
	out := map[entity.Status]int{}
	if !validID(userID) {
		return out, nil
	}
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := pgxscan.Select(ctx, r.pool, &rows,
		`SELECT status, count(*) AS n FROM books WHERE user_id = $1 GROUP BY status`, userID); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[entity.Status(row.Status)] = row.N
	}
	return out, nil
}

func (r *BookRepository) GetByID(ctx context.Context, id, userID string) (*entity.Book, error) {
	if !validID(id) || !validID(userID) {
		return nil, repository.ErrNotFound
	}
	var b entity.Book
	err := pgxscan.Get(ctx, r.pool, &b,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookRepository) Create(ctx context.Context, b *entity.Book) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO books (user_id, title, author, genre, status, image_file)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, b.UserID, b.Title, b.Author, b.Genre, string(b.Status), b.ImageFile)
	return row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BookRepository) Update(ctx context.Context, b *entity.Book) error {
	if !validID(b.ID) || !validID(b.UserID) {
		return repository.ErrNotFound
	}
	// single scalar column, scanned directly
	err := r.pool.QueryRow(ctx, `
		UPDATE books
		SET title = $3, author = $4, genre = $5, status = $6, image_file = $7, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`, b.ID, b.UserID, b.Title, b.Author, b.Genre, string(b.Status), b.ImageFile).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func (r *BookRepository) Delete(ctx context.Context, id, userID string) error {
	if !validID(id) || !validID(userID) {
		return repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *BookRepository) Search(ctx context.Context, userID, q string, limit int) ([]entity.Book, error) {
	books := []entity.Book{}
	if !validID(userID) {
		return books, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + likeEscaper.Replace(q) + "%"
	err := pgxscan.Select(ctx, r.pool, &books, `
		SELECT `+bookColumns+` FROM books
		WHERE user_id = $1 AND (title ILIKE $2 OR author ILIKE $2 OR genre ILIKE $2)
		ORDER BY title
		LIMIT $3
	`, userID, pattern, limit)
	if err != nil {
		return nil, err
	}
	return books, nil
}
