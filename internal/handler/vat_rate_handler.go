package handler

import (
	"net/http"

	"taxcalc/internal/middleware"
	"taxcalc/internal/service"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
)

type VATRateHandler struct {
	vatRateService service.VATRateService
}

func NewVATRateHandler(vatRateService service.VATRateService) *VATRateHandler {
	return &VATRateHandler{vatRateService: vatRateService}
}

func (h *VATRateHandler) RegisterRoutes(router *gin.RouterGroup) {
	vat := router.Group("/api/vat-rates")
	{
		vat.GET("", h.ListVATRates)
		vat.GET("/:id", h.GetVATRate)
		vat.POST("", h.CreateVATRate)
		vat.PUT("/:id", h.UpdateVATRate)
		vat.DELETE("/:id", h.DeleteVATRate)
	}
}

// @Summary      List VAT rates
// @Tags         vat
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/vat-rates [get]
func (h *VATRateHandler) ListVATRates(c *gin.Context) {
	rates, err := h.vatRateService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rates))
}

// @Summary      Get VAT rate
// @Tags         vat
// @Produce      json
// @Param        id   path      string  true  "VAT rate ID"
// @Success      200  {object}  response.Response{data=model.VATRate}
// @Failure      404  {object}  response.Response
// @Router       /api/vat-rates/{id} [get]
func (h *VATRateHandler) GetVATRate(c *gin.Context) {
	rate, err := h.vatRateService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// @Summary      Create VAT rate
// @Tags         vat
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VATRateRequest  true  "VAT rate payload"
// @Success      201      {object}  response.Response{data=model.VATRate}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/vat-rates [post]
func (h *VATRateHandler) CreateVATRate(c *gin.Context) {
	var req service.VATRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	rate, err := h.vatRateService.Create(c.Request.Context(), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rate))
}

// @Summary      Update VAT rate
// @Tags         vat
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "VAT rate ID"
// @Param        payload  body      service.VATRateRequest  true  "VAT rate payload"
// @Success      200      {object}  response.Response{data=model.VATRate}
// @Failure      400      {object}  response.Response
// @Router       /api/vat-rates/{id} [put]
func (h *VATRateHandler) UpdateVATRate(c *gin.Context) {
	var req service.VATRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	rate, err := h.vatRateService.Update(c.Request.Context(), c.Param("id"), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// @Summary      Delete VAT rate
// @Tags         vat
// @Produce      json
// @Param        id   path      string  true  "VAT rate ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/vat-rates/{id} [delete]
func (h *VATRateHandler) DeleteVATRate(c *gin.Context) {
	if err := h.vatRateService.Delete(c.Request.Context(), c.Param("id"), middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "VAT rate deleted"}))
}
