package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-book-tracker/pkg/response"
)

// DebugModule serves /healthz. Backends that are not configured are skipped.
type DebugModule struct {
	PG    *pgxpool.Pool
	Redis *redis.Client
}

func NewDebugModule(pg *pgxpool.Pool, rdb *redis.Client) *DebugModule {
	return &DebugModule{PG: pg, Redis: rdb}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.health)
}

func (m *DebugModule) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true
	if m.PG != nil {
		checks["postgres"] = status(m.PG.Ping(ctx), &healthy)
	}
	if m.Redis != nil {
		checks["redis"] = status(m.Redis.Ping(ctx).Err(), &healthy)
	}
	if !healthy {
		response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", checks)
		return
	}
	response.Success(c, http.StatusOK, checks, "ok", nil)
}

func status(err error, healthy *bool) string {
	if err != nil {
		*healthy = false
		return err.Error()
	}
	return "ok"
}
