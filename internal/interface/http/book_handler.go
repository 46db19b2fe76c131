package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-book-tracker/internal/application"
	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	"github.com/oksasatya/go-book-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-book-tracker/pkg/imageproc"
	"github.com/oksasatya/go-book-tracker/pkg/response"
)

type BookHandler struct {
	Svc            *application.BookService
	CoverURL       func(name string) string
	MaxUploadBytes int64
	Logger         *logrus.Logger
}

func NewBookHandler(svc *application.BookService, coverURL func(string) string, maxUploadBytes int64, logger *logrus.Logger) *BookHandler {
	return &BookHandler{Svc: svc, CoverURL: coverURL, MaxUploadBytes: maxUploadBytes, Logger: logger}
}

type bookForm struct {
	Title  string `form:"title" json:"title" binding:"required,title"`
	Author string `form:"author" json:"author" binding:"required,author"`
	Genre  string `form:"genre" json:"genre" binding:"required,genre"`
	Status string `form:"status" json:"status" binding:"required,bookstatus"`
}

func (f bookForm) input() application.BookInput {
	return application.BookInput{Title: f.Title, Author: f.Author, Genre: f.Genre, Status: f.Status}
}

type bookView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Author    string        `json:"author"`
	Genre     string        `json:"genre"`
	Status    entity.Status `json:"status"`
	ImageFile string        `json:"image_file"`
	ImageURL  string        `json:"image_url"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (h *BookHandler) view(b *entity.Book) bookView {
	v := bookView{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Genre:     b.Genre,
		Status:    b.Status,
		ImageFile: b.ImageFile,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if h.CoverURL != nil {
		v.ImageURL = h.CoverURL(b.ImageFile)
	}
	return v
}

func (h *BookHandler) views(books []entity.Book) []bookView {
	out := make([]bookView, 0, len(books))
	for i := range books {
		out = append(out, h.view(&books[i]))
	}
	return out
}

func formMetadata() gin.H {
	return gin.H{
		"statuses":           entity.Statuses,
		"allowed_extensions": imageproc.AllowedExtensions(),
	}
}

// Dashboard GET /?status=
func (h *BookHandler) Dashboard(c *gin.Context) {
	d, err := h.Svc.Dashboard(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Query("status"))
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"books":         h.views(d.Books),
		"stats":         d.Stats,
		"active_filter": d.ActiveFilter,
		"statuses":      entity.Statuses,
	}, "dashboard", nil)
}

// AddForm GET /add
func (h *BookHandler) AddForm(c *gin.Context) {
	response.Success(c, http.StatusOK, formMetadata(), "add book", nil)
}

// Add POST /add
func (h *BookHandler) Add(c *gin.Context) {
	h.limitBody(c)
	var form bookForm
	if err := c.ShouldBind(&form); err != nil {
		invalidPayload(c, err, form)
		return
	}
	upload, closeFn, err := h.upload(c)
	if err != nil {
		invalidPayload(c, err, form)
		return
	}
	defer closeFn()

	b, err := h.Svc.Add(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), form.input(), upload)
	if err != nil {
		respondError(c, h.Logger, err, form)
		return
	}
	response.Success(c, http.StatusCreated, h.view(b), "book added", response.Redirect{Redirect: "/"})
}

// EditForm GET /edit/:id
func (h *BookHandler) EditForm(c *gin.Context) {
	b, err := h.Svc.Get(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	meta := formMetadata()
	meta["book"] = h.view(b)
	response.Success(c, http.StatusOK, meta, "edit book", nil)
}

// Edit POST /edit/:id
func (h *BookHandler) Edit(c *gin.Context) {
	h.limitBody(c)
	var form bookForm
	if err := c.ShouldBind(&form); err != nil {
		invalidPayload(c, err, form)
		return
	}
	upload, closeFn, err := h.upload(c)
	if err != nil {
		invalidPayload(c, err, form)
		return
	}
	defer closeFn()

	b, err := h.Svc.Update(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxUserIDKey), form.input(), upload)
	if err != nil {
		respondError(c, h.Logger, err, form)
		return
	}
	response.Success(c, http.StatusOK, h.view(b), "book updated", response.Redirect{Redirect: "/"})
}

// Delete GET /delete/:id
func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxUserIDKey)); err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "book deleted", response.Redirect{Redirect: "/"})
}

// Search GET /search?q=
func (h *BookHandler) Search(c *gin.Context) {
	q := c.Query("q")
	books, err := h.Svc.Search(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), q)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"query": q, "books": h.views(books)}, "search results", nil)
}

func (h *BookHandler) limitBody(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}
}

// upload returns the optional "image" part. A missing or empty part means no new cover.
func (h *BookHandler) upload(c *gin.Context) (*application.Upload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	if fh.Filename == "" || fh.Size == 0 {
		return nil, noop, nil
	}
	var f multipart.File
	if f, err = fh.Open(); err != nil {
		return nil, noop, err
	}
	return &application.Upload{Filename: fh.Filename, Reader: f}, func() { _ = f.Close() }, nil
}
