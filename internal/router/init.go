package router

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-book-tracker/internal/application"
	"github.com/oksasatya/go-book-tracker/internal/container"
	handlers "github.com/oksasatya/go-book-tracker/internal/interface/http"
	"github.com/oksasatya/go-book-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-book-tracker/internal/router/modules"
)

// InitModules builds the services and handlers from c and adds every module to the registry.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config

	accounts := application.NewAccountService(c.Users, c.Sessions, c.Tokens, c.Notifier, c.Logger, application.AccountConfig{
		ConfirmTTL:    cfg.ConfirmTokenTTL,
		ResetTTL:      cfg.ResetTokenTTL,
		SessionTTL:    cfg.SessionTTL,
		TestRecipient: cfg.MailTestRecipient,
	})

	var index application.SearchIndex
	if c.BookIndex != nil {
		index = c.BookIndex
	}
	books := application.NewBookService(c.Books, c.Covers, index, c.Logger)

	guard := modules.Guard{
		Auth:      middleware.Auth(c.Sessions, c.JWT),
		GuestOnly: middleware.GuestOnly(c.Sessions, c.JWT),
		Redis:     c.Redis,
		Max:       cfg.RateLimitMax,
		Window:    cfg.RateLimitWindow,
	}
	if cfg.RateLimitBypassPrivate {
		guard.Allow = middleware.AllowPrivateIP()
	}

	r.Add(modules.NewDebugModule(c.PGPool, c.Redis))
	if cfg.CoverStorage != "gcs" {
		r.Add(ModuleFunc(func(rg *gin.RouterGroup) {
			rg.Static("/static/covers", cfg.UploadDir)
		}))
	}
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(accounts, c.JWT, c.Cookies, c.Logger), guard))
	r.Add(modules.NewBookModule(handlers.NewBookHandler(books, c.Covers.URL, cfg.MaxUploadBytes, c.Logger), guard))
	r.Add(modules.NewEmailModule(handlers.NewEmailHandler(accounts, c.Logger), guard))
}
