package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-book-tracker/internal/interface/http"
)

type BookModule struct {
	Handler *handlers.BookHandler
	Guard   Guard
}

func NewBookModule(h *handlers.BookHandler, g Guard) *BookModule {
	return &BookModule{Handler: h, Guard: g}
}

func (m *BookModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(m.Guard.Auth, m.Guard.PerUser(120))
	{
		auth.GET("/", m.Handler.Dashboard)
		auth.GET("/add", m.Handler.AddForm)
		auth.POST("/add", m.Handler.Add)
		auth.GET("/edit/:id", m.Handler.EditForm)
		auth.POST("/edit/:id", m.Handler.Edit)
		auth.GET("/delete/:id", m.Handler.Delete)
		auth.GET("/search", m.Handler.Search)
	}
}
