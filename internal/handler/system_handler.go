package handler

import (
	"context"
	"net/http"
	"time"

	"taxcalc/internal/websocket"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// SystemHandler serves liveness, metrics and the change feed socket.
type SystemHandler struct {
	ping     PingFunc
	gatherer prometheus.Gatherer
	hub      *websocket.Hub
}

func NewSystemHandler(ping PingFunc, gatherer prometheus.Gatherer, hub *websocket.Hub) *SystemHandler {
	return &SystemHandler{ping: ping, gatherer: gatherer, hub: hub}
}

func (h *SystemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
	if h.hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			websocket.ServeWs(h.hub, c)
		})
	}
}

// Health
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "database unreachable"))
			return
		}
	}

	status := gin.H{"status": "OK"}
	if h.hub != nil {
		status["ws_clients"] = h.hub.ClientCount()
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}
