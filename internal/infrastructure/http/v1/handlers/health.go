package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	appPool    *pgxpool.Pool
	promecPool *pgxpool.Pool
}

// NewHealthHandler creates a health handler over both database pools.
func NewHealthHandler(appPool, promecPool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{appPool: appPool, promecPool: promecPool}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready pings both databases.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	databases := gin.H{}
	for name, pool := range map[string]*pgxpool.Pool{"app": h.appPool, "promec": h.promecPool} {
		start := time.Now()
		if err := pool.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			databases[name] = gin.H{"status": "down", "error": err.Error()}
			continue
		}
		databases[name] = gin.H{"status": "up", "latency_ms": time.Since(start).Milliseconds()}
	}

	c.JSON(status, gin.H{"status": statusWord(status), "databases": databases})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
