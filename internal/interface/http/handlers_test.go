package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-book-tracker/internal/application"
	"github.com/oksasatya/go-book-tracker/internal/infrastructure/memory"
	"github.com/oksasatya/go-book-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/imageproc"
	"github.com/oksasatya/go-book-tracker/pkg/mailer"
	"github.com/oksasatya/go-book-tracker/pkg/token"
	"github.com/oksasatya/go-book-tracker/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
	helpers.PasswordCost = bcrypt.MinCost
}

type captureNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *captureNotifier) put(r mailer.Recipient, tok string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[r.EmailAddress()] = tok
	return nil
}

func (n *captureNotifier) get(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[email]
}

func (n *captureNotifier) DispatchConfirmation(_ context.Context, r mailer.Recipient, tok string) error {
	return n.put(r, tok)
}
func (n *captureNotifier) DispatchReset(_ context.Context, r mailer.Recipient, tok string) error {
	return n.put(r, tok)
}
func (n *captureNotifier) DispatchTest(_ context.Context, r mailer.Recipient, tok string) error {
	return n.put(r, tok)
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    struct {
		Redirect string         `json:"redirect"`
		Form     map[string]any `json:"form"`
	} `json:"meta"`
	Error map[string]string `json:"error"`
}

type app struct {
	engine   *gin.Engine
	notifier *captureNotifier
	dir      string
	cookie   *http.Cookie
}

func newApp(t *testing.T) *app {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()
	notifier := &captureNotifier{tokens: map[string]string{}}
	accounts := application.NewAccountService(users, sessions, token.NewService("secret"), notifier, logger, application.AccountConfig{
		ConfirmTTL: 30 * time.Minute, ResetTTL: time.Hour, SessionTTL: time.Hour, TestRecipient: "ops@example.com",
	})
	dir := t.TempDir()
	store, err := imageproc.NewLocalStore(dir, "/static/covers")
	require.NoError(t, err)
	covers := imageproc.NewProcessor(store, logger)
	books := application.NewBookService(memory.NewBookRepository(), covers, nil, logger)

	jwt := helpers.NewJWTManager("secret", time.Hour)
	auth := NewAuthHandler(accounts, jwt, helpers.NewCookie("", false), logger)
	bh := NewBookHandler(books, covers.URL, 1<<20, logger)
	eh := NewEmailHandler(accounts, logger)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.POST("/register", auth.Register)
	r.POST("/login", auth.Login)
	r.GET("/confirm/:token", auth.Confirm)
	r.POST("/forgot-password", auth.ForgotPassword)
	r.GET("/reset-password/:token", auth.ResetPasswordForm)
	r.POST("/reset-password/:token", auth.ResetPassword)
	r.GET("/test-email", eh.TestEmail)
	p := r.Group("/", middleware.Auth(sessions, jwt))
	p.GET("/", bh.Dashboard)
	p.GET("/logout", auth.Logout)
	p.POST("/add", bh.Add)
	p.GET("/edit/:id", bh.EditForm)
	p.POST("/edit/:id", bh.Edit)
	p.GET("/delete/:id", bh.Delete)
	p.GET("/search", bh.Search)

	return &app{engine: r, notifier: notifier, dir: dir}
}

func (a *app) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (a *app) form(t *testing.T, method, path string, values url.Values) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

func (a *app) get(t *testing.T, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return a.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *app) multipart(t *testing.T, path string, fields map[string]string, filename string, file []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(t, req)
}

// signIn registers, confirms and logs in a user, keeping the session cookie.
func (a *app) signIn(t *testing.T, username string) {
	t.Helper()
	email := username + "@example.com"
	w, _ := a.form(t, http.MethodPost, "/register", url.Values{"username": {username}, "email": {email}, "password": {"pw123"}})
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = a.get(t, "/confirm/"+a.notifier.get(email))
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = a.form(t, http.MethodPost, "/login", url.Values{"username": {username}, "password": {"pw123"}})
	require.Equal(t, http.StatusOK, w.Code)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == helpers.SessionCookie {
			a.cookie = ck
		}
	}
	require.NotNil(t, a.cookie)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAccountFlow(t *testing.T) {
	a := newApp(t)

	w, env := a.form(t, http.MethodPost, "/login", url.Values{"username": {"nobody"}, "password": {"x"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "nobody", env.Meta.Form["username"])

	w, env = a.form(t, http.MethodPost, "/register", url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"pw123"}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/login", env.Meta.Redirect)

	w, _ = a.form(t, http.MethodPost, "/register", url.Values{"username": {"bob"}, "email": {"other@example.com"}, "password": {"pw123"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = a.form(t, http.MethodPost, "/login", url.Values{"username": {"bob"}, "password": {"pw123"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = a.get(t, "/confirm/not-a-token")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "/login", env.Meta.Redirect)

	tok := a.notifier.get("bob@example.com")
	for i := 0; i < 2; i++ {
		w, _ = a.get(t, "/confirm/"+tok)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w, env = a.form(t, http.MethodPost, "/login", url.Values{"username": {"bob"}, "password": {"pw123"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/", env.Meta.Redirect)
}

func TestRegisterValidation(t *testing.T) {
	a := newApp(t)
	w, env := a.form(t, http.MethodPost, "/register", url.Values{"username": {strings.Repeat("x", 21)}, "email": {"bad"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "username")
	assert.Contains(t, env.Error, "email")
	assert.Contains(t, env.Error, "password")
}

func TestPasswordReset(t *testing.T) {
	a := newApp(t)
	a.signIn(t, "carol")

	w, env := a.form(t, http.MethodPost, "/forgot-password", url.Values{"email": {"ghost@example.com"}})
	assert.Equal(t, http.StatusOK, w.Code)
	generic := env.Message
	assert.Empty(t, a.notifier.get("ghost@example.com"))

	w, env = a.form(t, http.MethodPost, "/forgot-password", url.Values{"email": {"carol@example.com"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, generic, env.Message)
	tok := a.notifier.get("carol@example.com")

	w, env = a.get(t, "/reset-password/garbage")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "/forgot-password", env.Meta.Redirect)

	w, _ = a.get(t, "/reset-password/"+tok)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.form(t, http.MethodPost, "/reset-password/"+tok, url.Values{"password": {"a"}, "password_confirm": {"b"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = a.form(t, http.MethodPost, "/reset-password/"+tok, url.Values{"password": {"new-pw"}, "password_confirm": {"new-pw"}})
	assert.Equal(t, http.StatusOK, w.Code)

	// the reset ends the existing session
	w, _ = a.get(t, "/")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	a.cookie = nil
	w, _ = a.form(t, http.MethodPost, "/login", url.Values{"username": {"carol"}, "password": {"new-pw"}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookLifecycle(t *testing.T) {
	a := newApp(t)

	w, env := a.get(t, "/")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", env.Meta.Redirect)

	a.signIn(t, "dave")
	fields := map[string]string{"title": "Dune", "author": "Frank Herbert", "genre": "SF", "status": "reading"}

	w, _ = a.multipart(t, "/add", fields, "cover.bmp", []byte("nope"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	bad := map[string]string{"title": "Dune", "author": "Frank Herbert", "genre": "SF", "status": "lost"}
	w, env = a.multipart(t, "/add", bad, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "status")
	assert.Equal(t, "Dune", env.Meta.Form["title"])

	w, env = a.multipart(t, "/add", fields, "cover.png", pngBytes(t, 300, 200))
	require.Equal(t, http.StatusCreated, w.Code)
	var added bookView
	require.NoError(t, json.Unmarshal(env.Data, &added))
	assert.NotEqual(t, imageproc.DefaultImage, added.ImageFile)
	assert.Equal(t, "/static/covers/"+added.ImageFile, added.ImageURL)
	_, err := os.Stat(a.dir + "/" + added.ImageFile)
	require.NoError(t, err)

	fields["status"] = "finished"
	w, env = a.multipart(t, "/edit/"+added.ID, fields, "new.jpg", pngBytes(t, 50, 80))
	require.Equal(t, http.StatusOK, w.Code)
	var edited bookView
	require.NoError(t, json.Unmarshal(env.Data, &edited))
	assert.Equal(t, "finished", string(edited.Status))
	_, err = os.Stat(a.dir + "/" + added.ImageFile)
	assert.True(t, os.IsNotExist(err))

	w, env = a.get(t, "/?status=finished")
	require.Equal(t, http.StatusOK, w.Code)
	var dash struct {
		Books        []bookView `json:"books"`
		ActiveFilter string     `json:"active_filter"`
		Stats        struct {
			Total    int `json:"total"`
			Finished int `json:"finished"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Len(t, dash.Books, 1)
	assert.Equal(t, "finished", dash.ActiveFilter)
	assert.Equal(t, 1, dash.Stats.Finished)

	w, env = a.get(t, "/search?q=herbert")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Dune")

	w, _ = a.get(t, "/delete/"+edited.ID)
	assert.Equal(t, http.StatusOK, w.Code)
	_, err = os.Stat(a.dir + "/" + edited.ImageFile)
	assert.True(t, os.IsNotExist(err))

	w, _ = a.get(t, "/edit/"+edited.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = a.get(t, "/delete/not-a-uuid")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBooksAreScopedToOwner(t *testing.T) {
	a := newApp(t)
	a.signIn(t, "erin")
	w, env := a.multipart(t, "/add", map[string]string{"title": "Emma", "author": "Austen", "genre": "Classic", "status": "unread"}, "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var b bookView
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, imageproc.DefaultImage, b.ImageFile)

	a.cookie = nil
	a.signIn(t, "frank")
	w, _ = a.get(t, "/edit/"+b.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = a.get(t, "/delete/"+b.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	a.signIn(t, "gina")
	w, env := a.get(t, "/logout")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/login", env.Meta.Redirect)
	w, _ = a.get(t, "/")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTestEmail(t *testing.T) {
	a := newApp(t)
	w, _ := a.get(t, "/test-email")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, a.notifier.get("ops@example.com"))
}
