package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthCheckHandler struct {
	snapshot SnapshotStatus
}

func NewHealthCheckHandler(snapshot SnapshotStatus) *HealthCheckHandler {
	return &HealthCheckHandler{snapshot: snapshot}
}

func (h *HealthCheckHandler) HealthCheck(c *gin.Context) {
	resp := gin.H{"message": "Health Check"}
	if h.snapshot != nil && h.snapshot.Version() > 0 {
		resp["snapshotVersion"] = h.snapshot.Version()
		resp["snapshotUpdatedAt"] = h.snapshot.LastUpdated()
	}
	c.JSON(http.StatusOK, resp)
}
