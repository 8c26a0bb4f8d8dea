package router

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// healthHandler reports process health: DB reachability, live websocket
// subscriptions and basic runtime numbers.
func (r *Router) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "up"
		status := http.StatusOK

		sqlDB, err := r.Container.DB.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		c.JSON(status, gin.H{
			"status":         dbStatus,
			"env":            r.Config.Server.Env,
			"uptime":         time.Since(startTime).String(),
			"time":           time.Now().Format(time.RFC3339),
			"chat_listeners": r.Container.Hub.ActiveConnections(),
			"goroutines":     runtime.NumGoroutine(),
			"alloc_mb":       mem.Alloc / 1024 / 1024,
		})
	}
}
