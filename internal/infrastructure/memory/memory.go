// Package memory holds process-local repositories used with STORAGE_DRIVER=memory and in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	"github.com/oksasatya/go-book-tracker/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]entity.User{}}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return repository.ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) find(match func(entity.User) bool) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Username == username })
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email })
}

func (r *UserRepository) update(id string, fn func(*entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *UserRepository) SetConfirmed(_ context.Context, id string) error {
	return r.update(id, func(u *entity.User) { u.Confirmed = true })
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *entity.User) { u.PasswordHash = passwordHash })
}

type BookRepository struct {
	mu    sync.RWMutex
	books map[string]entity.Book
}

func NewBookRepository() *BookRepository {
	return &BookRepository{books: map[string]entity.Book{}}
}

func (r *BookRepository) ListByUser(_ context.Context, userID string, status entity.Status) ([]entity.Book, error) {
	return r.filter(func(b entity.Book) bool {
		return b.UserID == userID && (status == "" || b.Status == status)
	}, 0), nil
}

func (r *BookRepository) CountByStatus(_ context.Context, userID string) (map[entity.Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[entity.Status]int{}
	for _, b := range r.books {
		if b.UserID == userID {
			out[b.Status]++
		}
	}
	return out, nil
}

func (r *BookRepository) GetByID(_ context.Context, id, userID string) (*entity.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	if !ok || b.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *BookRepository) Create(_ context.Context, b *entity.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now
	r.books[b.ID] = *b
	return nil
}

func (r *BookRepository) Update(_ context.Context, b *entity.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.books[b.ID]
	if !ok || cur.UserID != b.UserID {
		return repository.ErrNotFound
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	r.books[b.ID] = *b
	return nil
}

func (r *BookRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok || b.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *BookRepository) Search(_ context.Context, userID, q string, limit int) ([]entity.Book, error) {
	q = strings.ToLower(q)
	books := r.filter(func(b entity.Book) bool {
		return b.UserID == userID && (strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.Genre), q))
	}, limit)
	return books, nil
}

// filter returns matches newest first, capped at limit when positive.
func (r *BookRepository) filter(match func(entity.Book) bool, limit int) []entity.Book {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []entity.Book{}
	for _, b := range r.books {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type sessionEntry struct {
	session entity.Session
	expires time.Time
}

type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[string]sessionEntry{}, now: time.Now}
}

func (s *SessionStore) Save(_ context.Context, sess entity.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sessionEntry{session: sess, expires: s.now().Add(ttl)}
	return nil
}

func (s *SessionStore) Get(_ context.Context, userID string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.now().After(e.expires) {
		delete(s.sessions, userID)
		return nil, repository.ErrNotFound
	}
	sess := e.session
	return &sess, nil
}

func (s *SessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
