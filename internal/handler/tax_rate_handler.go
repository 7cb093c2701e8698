package handler

import (
	"net/http"

	"taxcalc/internal/middleware"
	"taxcalc/internal/service"
	"taxcalc/pkg/pagination"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxRateHandler struct {
	taxRateService service.TaxRateService
}

func NewTaxRateHandler(taxRateService service.TaxRateService) *TaxRateHandler {
	return &TaxRateHandler{taxRateService: taxRateService}
}

func (h *TaxRateHandler) RegisterRoutes(router *gin.RouterGroup) {
	rates := router.Group("/api/tax-rates")
	{
		rates.GET("", h.ListTaxRates)
		rates.GET("/:id", h.GetTaxRate)
		rates.POST("", h.CreateTaxRate)
		rates.PUT("/:id", h.UpdateTaxRate)
		rates.DELETE("/:id", h.DeleteTaxRate)
	}
}

// ListTaxRates returns rates ordered by effective_from DESC
// @Summary      List tax rates
// @Tags         tax-rates
// @Produce      json
// @Param        jurisdiction_key  query     string  false  "Filter by jurisdiction key, e.g. US-CA"
// @Param        page              query     int     false  "Page number (default: 1)"
// @Param        limit             query     int     false  "Items per page (default: 20)"
// @Success      200               {object}  response.Response
// @Router       /api/tax-rates [get]
func (h *TaxRateHandler) ListTaxRates(c *gin.Context) {
	p := pagination.Parse(c)
	rates, total, err := h.taxRateService.List(c.Request.Context(), c.Query("jurisdiction_key"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rates, p.Page, p.Limit, total))
}

// GetTaxRate
// @Summary      Get tax rate
// @Tags         tax-rates
// @Produce      json
// @Param        id   path      string  true  "Tax rate ID"
// @Success      200  {object}  response.Response{data=service.TaxRateResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rates/{id} [get]
func (h *TaxRateHandler) GetTaxRate(c *gin.Context) {
	rate, err := h.taxRateService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// CreateTaxRate creates a new rate period; overlapping periods for the same key are rejected
// @Summary      Create tax rate
// @Tags         tax-rates
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TaxRateRequest  true  "Tax rate payload"
// @Success      201      {object}  response.Response{data=service.TaxRateResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tax-rates [post]
func (h *TaxRateHandler) CreateTaxRate(c *gin.Context) {
	var req service.TaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	rate, err := h.taxRateService.Create(c.Request.Context(), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rate))
}

// UpdateTaxRate
// @Summary      Update tax rate
// @Tags         tax-rates
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Tax rate ID"
// @Param        payload  body      service.TaxRateRequest  true  "Tax rate payload"
// @Success      200      {object}  response.Response{data=service.TaxRateResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tax-rates/{id} [put]
func (h *TaxRateHandler) UpdateTaxRate(c *gin.Context) {
	var req service.TaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	rate, err := h.taxRateService.Update(c.Request.Context(), c.Param("id"), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// DeleteTaxRate
// @Summary      Delete tax rate
// @Tags         tax-rates
// @Produce      json
// @Param        id   path      string  true  "Tax rate ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rates/{id} [delete]
func (h *TaxRateHandler) DeleteTaxRate(c *gin.Context) {
	if err := h.taxRateService.Delete(c.Request.Context(), c.Param("id"), middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tax rate deleted"}))
}
