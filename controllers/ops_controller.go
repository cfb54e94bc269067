package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wallet/middleware"
	"wallet/utils"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsController служебные маршруты: проверка состояния и метрики
type OpsController struct {
	db      Pinger
	metrics *utils.Metrics
}

// NewOpsRouter создает gin-роутер служебного сервера.
// X-Forwarded-For учитывается только от прокси из trustedProxies.
func NewOpsRouter(db Pinger, metrics *utils.Metrics, limiter *utils.RateLimiter, trustedProxies []string) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	c := &OpsController{db: db, metrics: metrics}

	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("неверный список доверенных прокси: %w", err)
	}
	router.Use(middleware.Recovery(), middleware.Logger(), middleware.CORS())
	if limiter != nil {
		router.Use(middleware.RateLimit(limiter))
	}

	router.GET("/healthz", c.Health)
	router.GET("/metrics", c.Metrics)
	return router, nil
}

// Health сообщает, доступна ли база данных
func (c *OpsController) Health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := c.db.Ping(pingCtx); err != nil {
		ctx.Error(err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics возвращает снимок метрик приложения
func (c *OpsController) Metrics(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.metrics.GetMetricsSnapshot())
}
