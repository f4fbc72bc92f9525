package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger зависимость, доступность которой проверяет health
type Pinger func(ctx context.Context) error

// HealthCheck обработчик для проверки работоспособности сервиса.
// Ошибка любой зависимости дает 503.
func HealthCheck(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "OK"
		}

		overall := "OK"
		if status != http.StatusOK {
			overall = "DEGRADED"
		}
		c.JSON(status, gin.H{
			"status":       overall,
			"time":         time.Now().Format(time.RFC3339),
			"dependencies": deps,
		})
	}
}
