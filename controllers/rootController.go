package controllers

import (
	"context"
	"net/http"
	"time"

	"PathLab/database"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rootHandler handles requests to the root path
func rootHandler(c *gin.Context) {
	c.String(http.StatusOK, "PathLab API")
}

// healthHandler pings Postgres and Redis and reports the Redis pool.
func healthHandler(db *gorm.DB, client *redis.Client, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"postgres": "ok", "redis": "ok"}
		code := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["postgres"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if err := client.Ping(ctx).Err(); err != nil {
			status["redis"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		stats := database.LogPoolStats(client, log)
		status["redis_pool"] = gin.H{"total": stats.TotalConns, "idle": stats.IdleConns, "stale": stats.StaleConns}
		if code != http.StatusOK {
			log.Warn("health check failed", zap.Any("status", status))
		}
		c.JSON(code, status)
	}
}

// SetupRootRoute sets up routes for the application
func SetupRootRoute(router *gin.Engine, db *gorm.DB, client *redis.Client, log *zap.Logger) {
	router.GET("/", rootHandler)
	router.GET("/health", healthHandler(db, client, log))
}
