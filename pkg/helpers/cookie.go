package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the name of the cookie holding the signed session token.
const SessionCookie = "session"

// Manager writes the session cookie. It is always HttpOnly, SameSite=Lax and scoped to "/".
type Manager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

// SetSession stores token until exp.
func (m *Manager) SetSession(c *gin.Context, token string, exp time.Time) {
	maxAge := int(time.Until(exp).Seconds())
	if maxAge <= 0 {
		m.Clear(c)
		return
	}
	http.SetCookie(c.Writer, m.cookie(token, maxAge, exp))
}

// Clear expires the session cookie in the browser.
func (m *Manager) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, m.cookie("", -1, time.Unix(0, 0)))
}

func (m *Manager) cookie(value string, maxAge int, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Domain:   m.Domain,
		Expires:  exp.UTC(),
		MaxAge:   maxAge,
		Secure:   m.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionToken returns the raw session cookie value, if any.
func SessionToken(c *gin.Context) (string, bool) {
	v, err := c.Cookie(SessionCookie)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}
