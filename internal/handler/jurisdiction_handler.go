package handler

import (
	"net/http"

	"taxcalc/internal/middleware"
	"taxcalc/internal/service"
	"taxcalc/pkg/pagination"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
)

type JurisdictionHandler struct {
	jurisdictionService service.JurisdictionService
}

func NewJurisdictionHandler(jurisdictionService service.JurisdictionService) *JurisdictionHandler {
	return &JurisdictionHandler{jurisdictionService: jurisdictionService}
}

func (h *JurisdictionHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/jurisdictions")
	{
		group.GET("", h.ListJurisdictions)
		group.GET("/:id", h.GetJurisdiction)
		group.POST("", h.CreateJurisdiction)
		group.PUT("/:id", h.UpdateJurisdiction)
		group.DELETE("/:id", h.DeleteJurisdiction)
	}
}

// ListJurisdictions returns jurisdictions ordered by code
// @Summary      List jurisdictions
// @Tags         jurisdictions
// @Produce      json
// @Param        page   query     int  false  "Page number (default: 1)"
// @Param        limit  query     int  false  "Items per page (default: 20)"
// @Success      200    {object}  response.Response
// @Router       /api/jurisdictions [get]
func (h *JurisdictionHandler) ListJurisdictions(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.jurisdictionService.List(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, p.Page, p.Limit, total))
}

// GetJurisdiction
// @Summary      Get jurisdiction
// @Tags         jurisdictions
// @Produce      json
// @Param        id   path      string  true  "Jurisdiction ID"
// @Success      200  {object}  response.Response{data=model.Jurisdiction}
// @Failure      404  {object}  response.Response
// @Router       /api/jurisdictions/{id} [get]
func (h *JurisdictionHandler) GetJurisdiction(c *gin.Context) {
	j, err := h.jurisdictionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, j))
}

// CreateJurisdiction
// @Summary      Create jurisdiction
// @Description  The jurisdiction key is derived from country and state_province
// @Tags         jurisdictions
// @Accept       json
// @Produce      json
// @Param        payload  body      service.JurisdictionRequest  true  "Jurisdiction payload"
// @Success      201      {object}  response.Response{data=model.Jurisdiction}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/jurisdictions [post]
func (h *JurisdictionHandler) CreateJurisdiction(c *gin.Context) {
	var req service.JurisdictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	j, err := h.jurisdictionService.Create(c.Request.Context(), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, j))
}

// UpdateJurisdiction
// @Summary      Update jurisdiction
// @Tags         jurisdictions
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Jurisdiction ID"
// @Param        payload  body      service.JurisdictionRequest  true  "Jurisdiction payload"
// @Success      200      {object}  response.Response{data=model.Jurisdiction}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/jurisdictions/{id} [put]
func (h *JurisdictionHandler) UpdateJurisdiction(c *gin.Context) {
	var req service.JurisdictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	j, err := h.jurisdictionService.Update(c.Request.Context(), c.Param("id"), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, j))
}

// DeleteJurisdiction
// @Summary      Delete jurisdiction
// @Tags         jurisdictions
// @Produce      json
// @Param        id   path      string  true  "Jurisdiction ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/jurisdictions/{id} [delete]
func (h *JurisdictionHandler) DeleteJurisdiction(c *gin.Context) {
	if err := h.jurisdictionService.Delete(c.Request.Context(), c.Param("id"), middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Jurisdiction deleted"}))
}
