package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// HealthCheck probes one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    []HealthCheck
	sessions  func() int
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, checks ...HealthCheck) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    checks,
	}
}

// WithSessionCount reports the number of live sessions in the system info
func (h *SystemHandler) WithSessionCount(count func() int) *SystemHandler {
	h.sessions = count
	return h
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Sessions  int    `json:"sessions"`
}

// GetSystemInfo returns service information
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.sessions != nil {
		info.Sessions = h.sessions()
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// Health reports the health of the service
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	body := gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}
	status := http.StatusOK
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed",
				zap.String("check", check.Name),
				zap.Error(err))
			body[check.Name] = "error"
			body["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		body[check.Name] = "ok"
	}
	c.JSON(status, body)
}
