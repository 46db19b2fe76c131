// Package search mirrors books into Elasticsearch for full-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "keyword"},
      "user_id":    {"type": "keyword"},
      "title":      {"type": "text"},
      "author":     {"type": "text"},
      "genre":      {"type": "text"},
      "status":     {"type": "keyword"},
      "image_file": {"type": "keyword"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

type bookDoc struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Genre     string    `json:"genre"`
	Status    string    `json:"status"`
	ImageFile string    `json:"image_file"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDoc(b *entity.Book) bookDoc {
	return bookDoc{
		ID: b.ID, UserID: b.UserID, Title: b.Title, Author: b.Author, Genre: b.Genre,
		Status: string(b.Status), ImageFile: b.ImageFile, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

func (d bookDoc) book() entity.Book {
	return entity.Book{
		ID: d.ID, UserID: d.UserID, Title: d.Title, Author: d.Author, Genre: d.Genre,
		Status: entity.Status(d.Status), ImageFile: d.ImageFile, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type BookIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewBookIndex(es *elasticsearch.Client, index string) *BookIndex {
	return &BookIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (i *BookIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.IndicesExistsRequest{Index: []string{i.index}}.Do(c, i.es)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}
	res, err = esapi.IndicesCreateRequest{Index: i.index, Body: strings.NewReader(indexMapping)}.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", i.index, res.Status())
	}
	return nil
}

func (i *BookIndex) Index(ctx context.Context, b *entity.Book) error {
	body, err := json.Marshal(toDoc(b))
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.IndexRequest{Index: i.index, DocumentID: b.ID, Body: bytes.NewReader(body), Refresh: "false"}.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index book %s: %s", b.ID, res.Status())
	}
	return nil
}

// Remove deletes a book document; a document that is already gone is not an error.
func (i *BookIndex) Remove(ctx context.Context, id string) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.DeleteRequest{Index: i.index, DocumentID: id}.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete book %s: %s", id, res.Status())
	}
	return nil
}

// Search runs a multi_match over title, author and genre restricted to one owner.
func (i *BookIndex) Search(ctx context.Context, userID, q string, limit int) ([]entity.Book, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"title^2", "author", "genre"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": userID},
				},
			},
		},
		"size": limit,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := i.es.Search(i.es.Search.WithContext(c), i.es.Search.WithIndex(i.index), i.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search books: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source bookDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.Book, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if h.Source.UserID != userID {
			continue
		}
		out = append(out, h.Source.book())
	}
	return out, nil
}
