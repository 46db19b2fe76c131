package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse[T any] struct {
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
	Meta      any       `json:"meta,omitempty"`
	Error     any       `json:"error,omitempty"`
}

// Redirect is the meta payload telling a client which flow to continue with.
type Redirect struct {
	Redirect string `json:"redirect"`
}

func write[T any](ctx *gin.Context, res APIResponse[T]) APIResponse[T] {
	res.Timestamp = time.Now().UTC()
	res.RequestID = ctx.GetString("request_id")
	ctx.JSON(res.Status, res)
	return res
}

// Success writes a successful envelope and returns it. status 0 means 200.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta any) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	return write(ctx, APIResponse[T]{Status: status, Success: true, Message: message, Data: data, Meta: meta})
}

// Error writes a failed envelope and returns it. status 0 means 400.
// Callers in middleware still need to Abort.
func Error[T any](ctx *gin.Context, status int, message string, err any) APIResponse[T] {
	return ErrorWithMeta[T](ctx, status, message, err, nil)
}

// ErrorWithMeta is Error plus a meta payload, typically a Redirect.
func ErrorWithMeta[T any](ctx *gin.Context, status int, message string, err any, meta any) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return write(ctx, APIResponse[T]{Status: status, Message: message, Meta: meta, Error: err})
}
