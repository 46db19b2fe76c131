package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-book-tracker/internal/application"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/imageproc"
	"github.com/oksasatya/go-book-tracker/pkg/mailer"
	"github.com/oksasatya/go-book-tracker/pkg/response"
	"github.com/oksasatya/go-book-tracker/pkg/token"
	"github.com/oksasatya/go-book-tracker/pkg/validation"
)

// formMeta echoes submitted values back so a client can re-render the form.
type formMeta struct {
	Form     any    `json:"form,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func invalidPayload(c *gin.Context, err error, form any) {
	response.ErrorWithMeta[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err), formMeta{Form: form})
}

// respondError maps service errors to an envelope. Unknown errors are logged and answered with a generic 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error, form any) {
	meta := formMeta{Form: form}
	switch {
	case errors.Is(err, application.ErrInvalidStatus),
		errors.Is(err, imageproc.ErrInvalidFileType),
		errors.Is(err, application.ErrPasswordRequired),
		errors.Is(err, application.ErrPasswordMismatch),
		errors.Is(err, helpers.ErrPasswordTooLong):
		response.ErrorWithMeta[any](c, http.StatusUnprocessableEntity, err.Error(), nil, meta)
	case errors.Is(err, application.ErrBookNotFound):
		response.Error[any](c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		response.ErrorWithMeta[any](c, http.StatusUnauthorized, err.Error(), nil, meta)
	case errors.Is(err, application.ErrNotConfirmed):
		response.ErrorWithMeta[any](c, http.StatusForbidden, "please confirm your account before logging in", nil, meta)
	case errors.Is(err, application.ErrDuplicateUsername),
		errors.Is(err, application.ErrDuplicateEmail):
		response.ErrorWithMeta[any](c, http.StatusConflict, err.Error(), nil, meta)
	case errors.Is(err, mailer.ErrNotConfigured):
		response.Error[any](c, http.StatusServiceUnavailable, "email is not configured", nil)
	case errors.Is(err, imageproc.ErrProcessingFailed):
		logError(c, logger, err)
		response.ErrorWithMeta[any](c, http.StatusInternalServerError, "could not store the image, please try again", nil, meta)
	default:
		logError(c, logger, err)
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// respondTokenError answers a rejected emailed link and points the client at the flow that can issue a new one.
func respondTokenError(c *gin.Context, logger *logrus.Logger, err error, expiredMsg, expiredTo, invalidMsg, invalidTo string) {
	switch {
	case errors.Is(err, token.ErrExpired):
		response.ErrorWithMeta[any](c, http.StatusBadRequest, expiredMsg, nil, response.Redirect{Redirect: expiredTo})
	case errors.Is(err, token.ErrInvalid):
		response.ErrorWithMeta[any](c, http.StatusBadRequest, invalidMsg, nil, response.Redirect{Redirect: invalidTo})
	default:
		respondError(c, logger, err, nil)
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, token.ErrExpired) || errors.Is(err, token.ErrInvalid)
}

func logError(c *gin.Context, logger *logrus.Logger, err error) {
	if logger == nil {
		return
	}
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).Error("request failed")
}
