package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-book-tracker/internal/interface/http"
)

// AuthModule wires account routes.
// Guest pages: /login, /register, /confirm, /forgot-password, /reset-password
// Protected: GET /logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Guard   Guard
}

func NewAuthModule(h *handlers.AuthHandler, g Guard) *AuthModule {
	return &AuthModule{Handler: h, Guard: g}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	guest := m.Guard.GuestOnly
	limiter := m.Guard.PerIP()

	rg.GET("/login", guest, m.Handler.LoginForm)
	rg.POST("/login", limiter, m.Handler.Login)
	rg.GET("/register", guest, m.Handler.RegisterForm)
	rg.POST("/register", limiter, m.Handler.Register)
	rg.GET("/confirm/:token", guest, m.Handler.Confirm)
	rg.GET("/forgot-password", guest, m.Handler.ForgotPasswordForm)
	rg.POST("/forgot-password", limiter, m.Handler.ForgotPassword)
	rg.GET("/reset-password/:token", guest, m.Handler.ResetPasswordForm)
	rg.POST("/reset-password/:token", limiter, m.Handler.ResetPassword)

	rg.GET("/logout", m.Guard.Auth, m.Handler.Logout)
}
