package handler

import (
	"net/http"

	"taxcalc/internal/middleware"
	"taxcalc/internal/service"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
)

// NexusHandler serves nexus checks and the threshold configuration.
type NexusHandler struct {
	nexusService     service.NexusService
	thresholdService service.NexusThresholdService
}

func NewNexusHandler(nexusService service.NexusService, thresholdService service.NexusThresholdService) *NexusHandler {
	return &NexusHandler{nexusService: nexusService, thresholdService: thresholdService}
}

func (h *NexusHandler) RegisterRoutes(router *gin.RouterGroup) {
	nexus := router.Group("/api/nexus")
	{
		nexus.POST("/check", h.CheckNexus)
		nexus.GET("/report", h.GetNexusReport)
	}

	thresholds := router.Group("/api/nexus-thresholds")
	{
		thresholds.GET("", h.ListThresholds)
		thresholds.GET("/:id", h.GetThreshold)
		thresholds.POST("", h.CreateThreshold)
		thresholds.PUT("/:id", h.UpdateThreshold)
		thresholds.DELETE("/:id", h.DeleteThreshold)
	}
}

// CheckNexus evaluates one jurisdiction against supplied or recorded sales
// @Summary      Check economic nexus
// @Description  When revenue is omitted the figures are aggregated from recorded transactions (default: current calendar year)
// @Tags         nexus
// @Accept       json
// @Produce      json
// @Param        payload  body      service.NexusCheckRequest  true  "Jurisdiction and optional sales figures"
// @Success      200      {object}  response.Response{data=engine.NexusStatus}
// @Failure      400      {object}  response.Response
// @Router       /api/nexus/check [post]
func (h *NexusHandler) CheckNexus(c *gin.Context) {
	var req service.NexusCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	status, err := h.nexusService.Check(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// GetNexusReport
// @Summary      Nexus report
// @Tags         nexus
// @Produce      json
// @Param        from  query     string  false  "Start date YYYY-MM-DD (default: Jan 1 of the current year)"
// @Param        to    query     string  false  "End date YYYY-MM-DD, inclusive (default: Dec 31 of the current year)"
// @Success      200   {object}  response.Response{data=service.NexusReport}
// @Failure      400   {object}  response.Response
// @Router       /api/nexus/report [get]
func (h *NexusHandler) GetNexusReport(c *gin.Context) {
	report, err := h.nexusService.Report(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// @Summary      List nexus thresholds
// @Tags         nexus
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/nexus-thresholds [get]
func (h *NexusHandler) ListThresholds(c *gin.Context) {
	items, err := h.thresholdService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// @Summary      Get nexus threshold
// @Tags         nexus
// @Produce      json
// @Param        id   path      string  true  "Threshold ID"
// @Success      200  {object}  response.Response{data=model.NexusThreshold}
// @Failure      404  {object}  response.Response
// @Router       /api/nexus-thresholds/{id} [get]
func (h *NexusHandler) GetThreshold(c *gin.Context) {
	t, err := h.thresholdService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

// @Summary      Create nexus threshold
// @Tags         nexus
// @Accept       json
// @Produce      json
// @Param        payload  body      service.NexusThresholdRequest  true  "Threshold payload"
// @Success      201      {object}  response.Response{data=model.NexusThreshold}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/nexus-thresholds [post]
func (h *NexusHandler) CreateThreshold(c *gin.Context) {
	var req service.NexusThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	t, err := h.thresholdService.Create(c.Request.Context(), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, t))
}

// @Summary      Update nexus threshold
// @Tags         nexus
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Threshold ID"
// @Param        payload  body      service.NexusThresholdRequest  true  "Threshold payload"
// @Success      200      {object}  response.Response{data=model.NexusThreshold}
// @Failure      400      {object}  response.Response
// @Router       /api/nexus-thresholds/{id} [put]
func (h *NexusHandler) UpdateThreshold(c *gin.Context) {
	var req service.NexusThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	t, err := h.thresholdService.Update(c.Request.Context(), c.Param("id"), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

// @Summary      Delete nexus threshold
// @Tags         nexus
// @Produce      json
// @Param        id   path      string  true  "Threshold ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/nexus-thresholds/{id} [delete]
func (h *NexusHandler) DeleteThreshold(c *gin.Context) {
	if err := h.thresholdService.Delete(c.Request.Context(), c.Param("id"), middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Nexus threshold deleted"}))
}
