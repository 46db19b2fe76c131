package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	"github.com/oksasatya/go-book-tracker/internal/domain/repository"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserNameKey  = "userName"
	CtxUserEmailKey = "userEmail"
)

// currentSession resolves the session cookie against the session store.
// The cookie is only honoured while its sid matches the stored one.
func currentSession(c *gin.Context, sessions repository.SessionStore, jwt *helpers.JWTManager) (*entity.Session, bool) {
	token, ok := helpers.SessionToken(c)
	if !ok {
		return nil, false
	}
	claims, err := jwt.ParseSessionToken(token)
	if err != nil {
		return nil, false
	}
	sess, err := sessions.Get(c.Request.Context(), claims.UserID)
	if err != nil || sess.SID != claims.SessionID {
		return nil, false
	}
	return sess, true
}

// Auth requires a live session and sets userID, userName and userEmail in the Gin context.
func Auth(sessions repository.SessionStore, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := currentSession(c, sessions, jwt)
		if !ok {
			response.ErrorWithMeta[any](c, http.StatusUnauthorized, "please log in to access this page", nil, response.Redirect{Redirect: "/login"})
			c.Abort()
			return
		}
		c.Set(CtxUserIDKey, sess.UserID)
		c.Set(CtxUserNameKey, sess.Username)
		c.Set(CtxUserEmailKey, sess.Email)
		c.Next()
	}
}

// GuestOnly short-circuits GET requests from logged-in users with a redirect to the index.
func GuestOnly(sessions repository.SessionStore, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		if _, ok := currentSession(c, sessions, jwt); ok {
			response.Success[any](c, http.StatusOK, nil, "already logged in", response.Redirect{Redirect: "/"})
			c.Abort()
			return
		}
		c.Next()
	}
}
