package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-book-tracker/internal/application"
	"github.com/oksasatya/go-book-tracker/pkg/response"
)

type EmailHandler struct {
	Svc    *application.AccountService
	Logger *logrus.Logger
}

func NewEmailHandler(svc *application.AccountService, logger *logrus.Logger) *EmailHandler {
	return &EmailHandler{Svc: svc, Logger: logger}
}

// TestEmail GET /test-email queues a labelled confirmation email to the configured test address.
func (h *EmailHandler) TestEmail(c *gin.Context) {
	to, err := h.Svc.SendTestEmail(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"to": to}, "test email queued", nil)
}
