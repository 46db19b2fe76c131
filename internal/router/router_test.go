package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-book-tracker/config"
	"github.com/oksasatya/go-book-tracker/internal/container"
	"github.com/oksasatya/go-book-tracker/internal/infrastructure/memory"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/imageproc"
	"github.com/oksasatya/go-book-tracker/pkg/mailer"
	"github.com/oksasatya/go-book-tracker/pkg/token"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.png"), []byte("png"), 0o644))
	store, err := imageproc.NewLocalStore(dir, "/static/covers")
	require.NoError(t, err)

	cfg := &config.Config{
		SessionTTL:      time.Hour,
		ConfirmTokenTTL: 30 * time.Minute,
		ResetTokenTTL:   time.Hour,
		RateLimitMax:    2,
		RateLimitWindow: time.Minute,
		UploadDir:       dir,
	}
	queue := mailer.Discard{Logger: logger}
	c := &container.Container{
		Config:     cfg,
		Logger:     logger,
		Redis:      rdb,
		JWT:        helpers.NewJWTManager("secret", time.Hour),
		Cookies:    helpers.NewCookie("", false),
		Tokens:     token.NewService("secret"),
		Users:      memory.NewUserRepository(),
		Books:      memory.NewBookRepository(),
		Sessions:   memory.NewSessionStore(),
		CoverStore: store,
		Covers:     imageproc.NewProcessor(store, logger),
		MailQueue:  queue,
		Notifier:   mailer.NewNotifier(queue, mailer.NotifierConfig{AppName: "test", BaseURL: "http://localhost"}),
	}

	r := gin.New()
	reg := NewRegistry(r)
	InitModules(reg, c)
	reg.RegisterAll()
	return r
}

func TestRoutes(t *testing.T) {
	r := newEngine(t)
	cases := []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/static/covers/abc.png", http.StatusOK},
		{http.MethodGet, "/static/covers/missing.png", http.StatusNotFound},
		{http.MethodGet, "/login", http.StatusOK},
		{http.MethodGet, "/register", http.StatusOK},
		{http.MethodGet, "/forgot-password", http.StatusOK},
		{http.MethodGet, "/", http.StatusUnauthorized},
		{http.MethodGet, "/add", http.StatusUnauthorized},
		{http.MethodGet, "/search", http.StatusUnauthorized},
		{http.MethodGet, "/logout", http.StatusUnauthorized},
		{http.MethodGet, "/test-email", http.StatusServiceUnavailable},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodDelete, "/login", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestAuthPostsAreRateLimited(t *testing.T) {
	r := newEngine(t)
	var codes []int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/forgot-password", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
