package repository

import (
	"context"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
)

// BookRepository stores books. Every lookup is scoped by the owning user;
// a book owned by someone else is reported as ErrNotFound.
type BookRepository interface {
	// ListByUser returns the user's books; an empty status lists all of them.
	ListByUser(ctx context.Context, userID string, status entity.Status) ([]entity.Book, error)
	CountByStatus(ctx context.Context, userID string) (map[entity.Status]int, error)
	GetByID(ctx context.Context, id, userID string) (*entity.Book, error)
	Create(ctx context.Context, b *entity.Book) error
	Update(ctx context.Context, b *entity.Book) error
	Delete(ctx context.Context, id, userID string) error
	Search(ctx context.Context, userID, q string, limit int) ([]entity.Book, error)
}
