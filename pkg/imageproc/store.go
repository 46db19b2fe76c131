package imageproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-book-tracker/pkg/helpers"
)

// Store persists processed covers by name.
// Save must fail with fs.ErrExist when the name is taken; Remove reports fs.ErrNotExist for unknown names.
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) error
	Remove(ctx context.Context, name string) error
	URL(name string) string
}

var errBadName = errors.New("invalid file name")

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return errBadName
	}
	return nil
}

// LocalStore keeps covers in a directory served under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalStore) Save(_ context.Context, name, _ string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	p := filepath.Join(s.Dir, name)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return err
	}
	return nil
}

func (s *LocalStore) Remove(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.Dir, name))
}

func (s *LocalStore) URL(name string) string {
	return s.URLPrefix + "/" + name
}

// GCSStore keeps covers in a bucket under Prefix.
type GCSStore struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{Client: client, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}
}

func (s *GCSStore) object(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

func (s *GCSStore) Save(ctx context.Context, name, contentType string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	return helpers.WriteObject(ctx, s.Client, s.Bucket, s.object(name), contentType, r)
}

func (s *GCSStore) Remove(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := helpers.DeleteObject(ctx, s.Client, s.Bucket, s.object(name))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fs.ErrNotExist
	}
	return err
}

func (s *GCSStore) URL(name string) string {
	return helpers.PublicURL(s.Bucket, s.object(name))
}
