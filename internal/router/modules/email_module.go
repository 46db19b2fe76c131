package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-book-tracker/internal/interface/http"
)

type EmailModule struct {
	Handler *handlers.EmailHandler
	Guard   Guard
}

func NewEmailModule(h *handlers.EmailHandler, g Guard) *EmailModule {
	return &EmailModule{Handler: h, Guard: g}
}

func (m *EmailModule) Register(rg *gin.RouterGroup) {
	// Public diagnostic endpoint, rate-limited per IP
	rg.GET("/test-email", m.Guard.PerIP(), m.Handler.TestEmail)
}
