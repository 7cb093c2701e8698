package handler

import (
	"net/http"

	"taxcalc/internal/service"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
)

type CalculatorHandler struct {
	calculatorService service.CalculatorService
}

func NewCalculatorHandler(calculatorService service.CalculatorService) *CalculatorHandler {
	return &CalculatorHandler{calculatorService: calculatorService}
}

func (h *CalculatorHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/calculate", h.Calculate)
	router.POST("/api/vat/calculate", h.CalculateVAT)
}

// Calculate computes sales tax for a basket without recording it
// @Summary      Calculate sales tax
// @Description  Resolves the jurisdiction from the customer location, applies the first matching rule per line and rounds totals once
// @Tags         calculator
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CalculateRequest  true  "Line items and customer location"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /api/calculate [post]
func (h *CalculatorHandler) Calculate(c *gin.Context) {
	var req service.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.calculatorService.Calculate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CalculateVAT determines the VAT rate and amount, applying reverse charge to EU businesses
// @Summary      Calculate VAT
// @Tags         calculator
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VATRequest  true  "Line items and customer location (vat_id marks a business buyer)"
// @Success      200      {object}  response.Response{data=service.VATResponse}
// @Failure      400      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /api/vat/calculate [post]
func (h *CalculatorHandler) CalculateVAT(c *gin.Context) {
	var req service.VATRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.calculatorService.CalculateVAT(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
