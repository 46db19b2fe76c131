package imageproc

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	saves   int
	removes []string
}

func (s *countingStore) Save(context.Context, string, string, io.Reader) error {
	s.saves++
	return nil
}

func (s *countingStore) Remove(_ context.Context, name string) error {
	s.removes = append(s.removes, name)
	return nil
}

func (s *countingStore) URL(name string) string { return "/covers/" + name }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcess_StoresSquareThumbnail(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/static/covers")
	require.NoError(t, err)
	p := NewProcessor(store, nil)

	name, err := p.Process(context.Background(), "Cover.PNG", bytes.NewReader(pngBytes(t, 300, 180)))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}\.png$`), name)

	img, err := imaging.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, Size, img.Bounds().Dx())
	assert.Equal(t, Size, img.Bounds().Dy())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "/static/covers/"+name, p.URL(name))
}

func TestProcess_RejectsExtensionBeforeStore(t *testing.T) {
	store := &countingStore{}
	p := NewProcessor(store, nil)

	for _, fn := range []string{"notes.txt", "cover.bmp", "noext", "archive.png.zip"} {
		_, err := p.Process(context.Background(), fn, bytes.NewReader(pngBytes(t, 10, 10)))
		assert.ErrorIs(t, err, ErrInvalidFileType, fn)
	}
	assert.Zero(t, store.saves)
}

func TestProcess_CorruptImage(t *testing.T) {
	store := &countingStore{}
	p := NewProcessor(store, nil)

	_, err := p.Process(context.Background(), "cover.jpg", bytes.NewReader([]byte("definitely not a jpeg")))
	assert.ErrorIs(t, err, ErrProcessingFailed)
	assert.Zero(t, store.saves)
}

func TestCropSquare(t *testing.T) {
	cases := []struct{ w, h, side int }{
		{300, 200, 200},
		{100, 250, 100},
		{64, 64, 64},
	}
	for _, c := range cases {
		out := CropSquare(image.NewNRGBA(image.Rect(0, 0, c.w, c.h)))
		assert.Equal(t, c.side, out.Bounds().Dx())
		assert.Equal(t, c.side, out.Bounds().Dy())
	}
}

func TestRemove(t *testing.T) {
	store := &countingStore{}
	p := NewProcessor(store, nil)

	p.Remove(context.Background(), DefaultImage)
	p.Remove(context.Background(), "")
	assert.Empty(t, store.removes)

	p.Remove(context.Background(), "abc.png")
	assert.Equal(t, []string{"abc.png"}, store.removes)
}

func TestLocalStore_RemoveMissingIsIgnored(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/c")
	require.NoError(t, err)
	p := NewProcessor(store, nil)
	assert.NotPanics(t, func() { p.Remove(context.Background(), "missing.png") })
	assert.ErrorIs(t, store.Remove(context.Background(), "missing.png"), os.ErrNotExist)
}

func TestLocalStore_SaveIsExclusive(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/c")
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "a.png", "image/png", bytes.NewReader([]byte("x"))))
	err = store.Save(context.Background(), "a.png", "image/png", bytes.NewReader([]byte("y")))
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Error(t, store.Save(context.Background(), "../escape.png", "image/png", bytes.NewReader(nil)))
}

// gifHeader is a GIF with only a logical screen descriptor declaring w x h.
func gifHeader(w, h uint16) []byte {
	b := []byte("GIF89a")
	b = append(b, byte(w), byte(w>>8), byte(h), byte(h>>8), 0, 0, 0)
	return append(b, 0x3B)
}

func TestProcess_RejectsOversizedCanvasBeforeDecode(t *testing.T) {
	store := &countingStore{}
	p := NewProcessor(store, nil)

	_, err := p.Process(context.Background(), "huge.gif", bytes.NewReader(gifHeader(30000, 30000)))
	assert.ErrorIs(t, err, ErrProcessingFailed)
	assert.Contains(t, err.Error(), "30000x30000")
	assert.Zero(t, store.saves)
}

func TestProcess_MaxPixelsIsConfigurable(t *testing.T) {
	store := &countingStore{}
	p := NewProcessor(store, nil).WithMaxPixels(100 * 100)

	_, err := p.Process(context.Background(), "big.png", bytes.NewReader(pngBytes(t, 101, 100)))
	assert.ErrorIs(t, err, ErrProcessingFailed)

	_, err = p.Process(context.Background(), "ok.png", bytes.NewReader(pngBytes(t, 100, 100)))
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
}
