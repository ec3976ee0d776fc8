package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) HealthCheck(ctx *gin.Context) {
	status := "ok"
	code := http.StatusOK
	message := "Taskboard is running"

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		message = "Database unreachable"
	}

	respond(ctx, code, message, HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
