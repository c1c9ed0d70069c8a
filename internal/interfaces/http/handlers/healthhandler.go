package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/postline-io/postline/internal/application/payment/gateway"
)

type HealthHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	registry *gateway.Registry
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, registry *gateway.Registry) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, registry: registry}
}

// @Summary		Health check
// @Description	Report database, cache, and provider reachability
// @Tags			health
// @Produce		json
// @Success		200	{object}	map[string]interface{}
// @Failure		503	{object}	map[string]interface{}
// @Router			/healthz [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil {
		checks["database"] = "error: " + err.Error()
		healthy = false
	} else if err := sqlDB.PingContext(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// The cache is a fast path, not a dependency.
			checks["redis"] = "degraded: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	providers := gin.H{}
	for _, gw := range h.registry.All() {
		if err := gw.HealthCheck(ctx); err != nil {
			providers[gw.Name().String()] = "degraded: " + err.Error()
		} else {
			providers[gw.Name().String()] = "ok"
		}
	}
	checks["providers"] = providers

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unavailable"
	}
	c.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
	})
}
