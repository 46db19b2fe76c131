package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-book-tracker/internal/application"
	"github.com/oksasatya/go-book-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/response"
)

type AuthHandler struct {
	Svc     *application.AccountService
	JWT     *helpers.JWTManager
	Cookies *helpers.Manager
	Logger  *logrus.Logger
}

func NewAuthHandler(svc *application.AccountService, jwt *helpers.JWTManager, cookies *helpers.Manager, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, JWT: jwt, Cookies: cookies, Logger: logger}
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required,username"`
	Password string `form:"password" json:"password" binding:"required,password"`
}

type registerRequest struct {
	Username string `form:"username" json:"username" binding:"required,username"`
	Email    string `form:"email" json:"email" binding:"required,email,max=120"`
	Password string `form:"password" json:"password" binding:"required,password"`
}

type forgotPasswordRequest struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

// Presence and equality are checked by the service so the messages stay in one place.
type resetPasswordRequest struct {
	Password        string `form:"password" json:"password" binding:"max=72"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm" binding:"max=72"`
}

type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

func formFields(names ...string) gin.H {
	return gin.H{"fields": names}
}

// LoginForm GET /login
func (h *AuthHandler) LoginForm(c *gin.Context) {
	response.Success(c, http.StatusOK, formFields("username", "password"), "login", nil)
}

// Login POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidPayload(c, err, gin.H{"username": req.Username})
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.Logger, err, gin.H{"username": req.Username})
		return
	}
	tok, exp, err := h.JWT.GenerateSessionToken(res.Session.UserID, res.Session.SID)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	h.Cookies.SetSession(c, tok, exp)
	u := res.User
	response.Success(c, http.StatusOK, userView{ID: u.ID, Username: u.Username, Email: u.Email, Confirmed: u.Confirmed},
		"logged in successfully", response.Redirect{Redirect: "/"})
}

// RegisterForm GET /register
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	response.Success(c, http.StatusOK, formFields("username", "email", "password"), "register", nil)
}

// Register POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidPayload(c, err, gin.H{"username": req.Username, "email": req.Email})
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err, gin.H{"username": req.Username, "email": req.Email})
		return
	}
	msg := "registration successful, check your email to confirm your account"
	if !res.EmailQueued {
		msg = "registration successful, but the confirmation email could not be sent"
	}
	u := res.User
	response.Success(c, http.StatusCreated, gin.H{
		"user":         userView{ID: u.ID, Username: u.Username, Email: u.Email},
		"email_queued": res.EmailQueued,
	}, msg, response.Redirect{Redirect: "/login"})
}

// Logout GET /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil && h.Logger != nil {
		h.Logger.WithError(err).Warn("session delete failed")
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "logged out", response.Redirect{Redirect: "/login"})
}

// Confirm GET /confirm/:token
func (h *AuthHandler) Confirm(c *gin.Context) {
	res, err := h.Svc.Confirm(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondTokenError(c, h.Logger, err,
			"the confirmation link has expired, please register again", "/register",
			"the confirmation link is invalid", "/login")
		return
	}
	msg := "account confirmed, you can now log in"
	if res.AlreadyConfirmed {
		msg = "account already confirmed, please log in"
	}
	u := res.User
	response.Success(c, http.StatusOK, userView{ID: u.ID, Username: u.Username, Email: u.Email, Confirmed: true},
		msg, response.Redirect{Redirect: "/login"})
}

// ForgotPasswordForm GET /forgot-password
func (h *AuthHandler) ForgotPasswordForm(c *gin.Context) {
	response.Success(c, http.StatusOK, formFields("email"), "forgot password", nil)
}

// ForgotPassword POST /forgot-password answers the same way whether or not the address is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidPayload(c, err, gin.H{"email": req.Email})
		return
	}
	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		logError(c, h.Logger, err)
	}
	response.Success[any](c, http.StatusOK, nil,
		"if that email belongs to a confirmed account, a reset link has been sent", response.Redirect{Redirect: "/login"})
}

func (h *AuthHandler) resetTokenError(c *gin.Context, err error) {
	respondTokenError(c, h.Logger, err,
		"the reset link has expired, please request a new one", "/forgot-password",
		"the reset link is invalid", "/forgot-password")
}

// ResetPasswordForm GET /reset-password/:token
func (h *AuthHandler) ResetPasswordForm(c *gin.Context) {
	if _, err := h.Svc.CheckResetToken(c.Request.Context(), c.Param("token")); err != nil {
		h.resetTokenError(c, err)
		return
	}
	response.Success(c, http.StatusOK, formFields("password", "password_confirm"), "reset password", nil)
}

// ResetPassword POST /reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidPayload(c, err, nil)
		return
	}
	err := h.Svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.PasswordConfirm)
	switch {
	case err == nil:
		response.Success[any](c, http.StatusOK, nil, "your password has been reset, please log in", response.Redirect{Redirect: "/login"})
	case isTokenError(err):
		h.resetTokenError(c, err)
	default:
		respondError(c, h.Logger, err, nil)
	}
}
