package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"intrusion-worker-go/internal/metrics"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
	metrics   *metrics.Metrics
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string, m *metrics.Metrics) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: time.Now(),
		metrics:   m,
	}
}

// @Summary Get system stats
// @Description Get system statistics and streaming counters
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := gin.H{
		"worker_id":      h.WorkerID,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"cpu_cores":      runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
	}
	if h.metrics != nil {
		stats["active_sessions"] = h.metrics.ActiveSessions.Load()
		stats["frames_sent"] = h.metrics.FramesSent.Load()
		stats["intruder_frames"] = h.metrics.IntruderFrames.Load()
		stats["alerts_published"] = h.metrics.AlertsPublished.Load()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	})
}
