// Package imageproc turns uploaded cover images into fixed-size square thumbnails.
package imageproc

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// DefaultImage is the cover reference of books without an uploaded image. It is never stored or removed.
const DefaultImage = "default_book.png"

// Size is the side of every processed cover.
const Size = 200

// DefaultMaxPixels caps width*height of an upload before it is decoded.
const DefaultMaxPixels = 25_000_000

var (
	ErrInvalidFileType  = errors.New("invalid file type")
	ErrProcessingFailed = errors.New("image processing failed")
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// AllowedExtensions lists accepted upload extensions.
func AllowedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif"}
}

type Processor struct {
	store     Store
	logger    *logrus.Logger
	maxPixels int
}

func NewProcessor(store Store, logger *logrus.Logger) *Processor {
	return &Processor{store: store, logger: logger, maxPixels: DefaultMaxPixels}
}

// WithMaxPixels overrides the decoded size limit; n <= 0 keeps the default.
func (p *Processor) WithMaxPixels(n int) *Processor {
	if n > 0 {
		p.maxPixels = n
	}
	return p
}

// Process validates, crops, resizes and stores an upload, returning the stored name.
func (p *Processor) Process(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ctype, ok := contentTypes[ext]
	if !ok {
		return "", ErrInvalidFileType
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return "", ErrInvalidFileType
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: read: %v", ErrProcessingFailed, err)
	}
	// headers are checked first so a tiny file cannot claim a huge canvas
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrProcessingFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > p.maxPixels/cfg.Height {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrProcessingFailed, cfg.Width, cfg.Height, p.maxPixels)
	}
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrProcessingFailed, err)
	}
	thumb := imaging.Resize(CropSquare(src), Size, Size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrProcessingFailed, err)
	}

	for attempt := 0; attempt < 3; attempt++ {
		name, err := randomName(ext)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
		err = p.store.Save(ctx, name, ctype, bytes.NewReader(buf.Bytes()))
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: save: %v", ErrProcessingFailed, err)
		}
		return name, nil
	}
	return "", fmt.Errorf("%w: could not allocate a file name", ErrProcessingFailed)
}

// Remove deletes a stored cover. Missing files and the default image are ignored; other failures are logged.
func (p *Processor) Remove(ctx context.Context, name string) {
	if name == "" || name == DefaultImage {
		return
	}
	err := p.store.Remove(ctx, name)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	if p.logger != nil {
		p.logger.WithError(err).WithField("file", name).Warn("cover removal failed")
	}
}

// URL returns where a stored cover can be fetched.
func (p *Processor) URL(name string) string {
	if name == "" {
		name = DefaultImage
	}
	return p.store.URL(name)
}

// CropSquare crops the largest centered square out of img.
func CropSquare(img image.Image) *image.NRGBA {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	return imaging.CropCenter(img, side, side)
}

func randomName(ext string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + ext, nil
}
