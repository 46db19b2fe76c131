package application

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-book-tracker/internal/domain/repository"
	"github.com/oksasatya/go-book-tracker/pkg/imageproc"
)

const searchLimit = 50

// CoverProcessor stores uploaded covers.
type CoverProcessor interface {
	Process(ctx context.Context, filename string, r io.Reader) (string, error)
	Remove(ctx context.Context, name string)
}

// SearchIndex is an optional full-text mirror of the books table.
type SearchIndex interface {
	Index(ctx context.Context, b *entity.Book) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, userID, q string, limit int) ([]entity.Book, error)
}

type BookService struct {
	Books  repo.BookRepository
	Covers CoverProcessor
	Index  SearchIndex
	Logger *logrus.Logger
}

func NewBookService(books repo.BookRepository, covers CoverProcessor, index SearchIndex, logger *logrus.Logger) *BookService {
	return &BookService{Books: books, Covers: covers, Index: index, Logger: logger}
}

type BookInput struct {
	Title  string
	Author string
	Genre  string
	Status string
}

// Upload is an optional cover image attached to a book form.
type Upload struct {
	Filename string
	Reader   io.Reader
}

type Dashboard struct {
	Books        []entity.Book
	Stats        entity.Stats
	ActiveFilter string
}

// FilterAll is the dashboard filter that lists every status.
const FilterAll = "all"

// Dashboard lists the user's books, optionally filtered by status, with stats over all of them.
// A filter outside the status enum lists everything.
func (s *BookService) Dashboard(ctx context.Context, userID, filter string) (*Dashboard, error) {
	status, ok := entity.ParseStatus(filter)
	active := string(status)
	if !ok {
		status, active = "", FilterAll
	}
	books, err := s.Books.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	counts, err := s.Books.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range books {
		normalizeImage(&books[i])
	}
	return &Dashboard{Books: books, Stats: entity.NewStats(counts), ActiveFilter: active}, nil
}

func (s *BookService) Get(ctx context.Context, id, userID string) (*entity.Book, error) {
	b, err := s.Books.GetByID(ctx, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	normalizeImage(b)
	return b, nil
}

// Add stores the cover first so that a rejected image leaves no row behind.
func (s *BookService) Add(ctx context.Context, userID string, in BookInput, img *Upload) (*entity.Book, error) {
	status, ok := entity.ParseStatus(in.Status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	b := &entity.Book{
		UserID:    userID,
		Title:     strings.TrimSpace(in.Title),
		Author:    strings.TrimSpace(in.Author),
		Genre:     strings.TrimSpace(in.Genre),
		Status:    status,
		ImageFile: imageproc.DefaultImage,
	}
	if img != nil {
		name, err := s.Covers.Process(ctx, img.Filename, img.Reader)
		if err != nil {
			return nil, err
		}
		b.ImageFile = name
	}
	if err := s.Books.Create(ctx, b); err != nil {
		s.Covers.Remove(ctx, b.ImageFile)
		return nil, err
	}
	s.index(ctx, b)
	return b, nil
}

// Update replaces the book's fields and, when img is set, its cover.
// The previous cover is removed only after the row points at the new one.
func (s *BookService) Update(ctx context.Context, id, userID string, in BookInput, img *Upload) (*entity.Book, error) {
	status, ok := entity.ParseStatus(in.Status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	oldImage := b.ImageFile

	if img != nil {
		name, err := s.Covers.Process(ctx, img.Filename, img.Reader)
		if err != nil {
			return nil, err
		}
		b.ImageFile = name
	}
	b.Title = strings.TrimSpace(in.Title)
	b.Author = strings.TrimSpace(in.Author)
	b.Genre = strings.TrimSpace(in.Genre)
	b.Status = status

	if err := s.Books.Update(ctx, b); err != nil {
		if b.ImageFile != oldImage {
			s.Covers.Remove(ctx, b.ImageFile)
		}
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	if b.ImageFile != oldImage {
		s.Covers.Remove(ctx, oldImage)
	}
	s.index(ctx, b)
	return b, nil
}

func (s *BookService) Delete(ctx context.Context, id, userID string) error {
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.Books.Delete(ctx, b.ID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	s.Covers.Remove(ctx, b.ImageFile)
	if s.Index != nil {
		if err := s.Index.Remove(ctx, b.ID); err != nil {
			s.warn(err, b.ID, "search de-index failed")
		}
	}
	return nil
}

// Search matches q against title, author and genre. The search index is used when
// present; the repository answers otherwise or when the index fails.
func (s *BookService) Search(ctx context.Context, userID, q string) ([]entity.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []entity.Book{}, nil
	}
	var (
		books []entity.Book
		err   error
	)
	if s.Index != nil {
		books, err = s.Index.Search(ctx, userID, q, searchLimit)
		if err != nil {
			s.warn(err, "", "search index query failed, using database")
		}
	}
	if s.Index == nil || err != nil {
		books, err = s.Books.Search(ctx, userID, q, searchLimit)
		if err != nil {
			return nil, err
		}
	}
	for i := range books {
		normalizeImage(&books[i])
	}
	return books, nil
}

func (s *BookService) index(ctx context.Context, b *entity.Book) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, b); err != nil {
		s.warn(err, b.ID, "search index failed")
	}
}

func (s *BookService) warn(err error, bookID, msg string) {
	if s.Logger == nil {
		return
	}
	e := s.Logger.WithError(err)
	if bookID != "" {
		e = e.WithField("book_id", bookID)
	}
	e.Warn(msg)
}

func normalizeImage(b *entity.Book) {
	if b.ImageFile == "" {
		b.ImageFile = imageproc.DefaultImage
	}
}
