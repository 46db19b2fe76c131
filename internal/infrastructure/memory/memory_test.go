package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	"github.com/oksasatya/go-book-tracker/internal/domain/repository"
)

func TestUserRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()
	require.NoError(t, r.Create(ctx, &entity.User{Username: "alice", Email: "a@x.io"}))

	assert.ErrorIs(t, r.Create(ctx, &entity.User{Username: "alice", Email: "b@x.io"}), repository.ErrUsernameTaken)
	assert.ErrorIs(t, r.Create(ctx, &entity.User{Username: "bob", Email: "a@x.io"}), repository.ErrEmailTaken)
}

func TestBookRepository_ScopedAndSearch(t *testing.T) {
	ctx := context.Background()
	r := NewBookRepository()
	b := &entity.Book{UserID: "alice", Title: "Dune", Author: "Frank Herbert", Genre: "SF", Status: entity.StatusRead}
	require.NoError(t, r.Create(ctx, b))

	_, err := r.GetByID(ctx, b.ID, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, b.ID, "bob"), repository.ErrNotFound)

	found, err := r.Search(ctx, "alice", "HERB", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = r.Search(ctx, "bob", "dune", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, entity.Session{UserID: "u", SID: "1"}, time.Minute))
	_, err := s.Get(ctx, "u")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "u")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
