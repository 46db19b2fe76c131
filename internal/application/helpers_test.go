package application

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-book-tracker/internal/infrastructure/memory"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/imageproc"
	"github.com/oksasatya/go-book-tracker/pkg/mailer"
	"github.com/oksasatya/go-book-tracker/pkg/token"
)

func init() {
	helpers.PasswordCost = bcrypt.MinCost
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) record(kind string, r mailer.Recipient, tok string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{kind: kind, to: r.EmailAddress(), token: tok})
	return nil
}

func (n *fakeNotifier) DispatchConfirmation(_ context.Context, r mailer.Recipient, tok string) error {
	return n.record("confirm", r, tok)
}

func (n *fakeNotifier) DispatchReset(_ context.Context, r mailer.Recipient, tok string) error {
	return n.record("reset", r, tok)
}

func (n *fakeNotifier) DispatchTest(_ context.Context, r mailer.Recipient, tok string) error {
	return n.record("test", r, tok)
}

func (n *fakeNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type accountFixture struct {
	svc      *AccountService
	users    *memory.UserRepository
	sessions *memory.SessionStore
	notifier *fakeNotifier
	tokens   *token.Service
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	f := &accountFixture{
		users:    memory.NewUserRepository(),
		sessions: memory.NewSessionStore(),
		notifier: &fakeNotifier{},
		tokens:   token.NewService("test-secret"),
	}
	f.svc = NewAccountService(f.users, f.sessions, f.tokens, f.notifier, quietLogger(), AccountConfig{
		ConfirmTTL:    30 * time.Minute,
		ResetTTL:      time.Hour,
		SessionTTL:    time.Hour,
		TestRecipient: "ops@example.com",
	})
	return f
}

type bookFixture struct {
	svc   *BookService
	books *memory.BookRepository
	dir   string
}

func newBookFixture(t *testing.T, index SearchIndex) *bookFixture {
	t.Helper()
	dir := t.TempDir()
	store, err := imageproc.NewLocalStore(dir, "/static/covers")
	require.NoError(t, err)
	books := memory.NewBookRepository()
	logger := quietLogger()
	return &bookFixture{
		svc:   NewBookService(books, imageproc.NewProcessor(store, logger), index, logger),
		books: books,
		dir:   dir,
	}
}

func (f *bookFixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func pngUpload(t *testing.T, name string, w, h int) *Upload {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(y), B: uint8(x), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &Upload{Filename: name, Reader: &buf}
}
