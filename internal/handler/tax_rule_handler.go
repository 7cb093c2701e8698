package handler

import (
	"net/http"

	"taxcalc/internal/middleware"
	"taxcalc/internal/service"
	"taxcalc/pkg/pagination"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxRuleHandler struct {
	taxRuleService service.TaxRuleService
}

func NewTaxRuleHandler(taxRuleService service.TaxRuleService) *TaxRuleHandler {
	return &TaxRuleHandler{taxRuleService: taxRuleService}
}

func (h *TaxRuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/tax-rules")
	{
		rules.GET("", h.ListTaxRules)
		rules.GET("/:id", h.GetTaxRule)
		rules.POST("", h.CreateTaxRule)
		rules.PUT("/:id", h.UpdateTaxRule)
		rules.DELETE("/:id", h.DeleteTaxRule)
	}
}

// ListTaxRules returns rules in evaluation order
// @Summary      List tax rules
// @Tags         tax-rules
// @Produce      json
// @Param        jurisdiction_key  query     string  false  "Filter by jurisdiction key"
// @Param        page              query     int     false  "Page number (default: 1)"
// @Param        limit             query     int     false  "Items per page (default: 20)"
// @Success      200               {object}  response.Response
// @Router       /api/tax-rules [get]
func (h *TaxRuleHandler) ListTaxRules(c *gin.Context) {
	p := pagination.Parse(c)
	rules, total, err := h.taxRuleService.List(c.Request.Context(), c.Query("jurisdiction_key"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rules, p.Page, p.Limit, total))
}

// GetTaxRule
// @Summary      Get tax rule
// @Tags         tax-rules
// @Produce      json
// @Param        id   path      string  true  "Tax rule ID"
// @Success      200  {object}  response.Response{data=model.TaxRule}
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rules/{id} [get]
func (h *TaxRuleHandler) GetTaxRule(c *gin.Context) {
	rule, err := h.taxRuleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// CreateTaxRule stores a declarative rule after validating its kind, conditions and transform
// @Summary      Create tax rule
// @Tags         tax-rules
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TaxRuleRequest  true  "Tax rule payload"
// @Success      201      {object}  response.Response{data=model.TaxRule}
// @Failure      400      {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxRuleHandler) CreateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	rule, err := h.taxRuleService.Create(c.Request.Context(), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule
// @Summary      Update tax rule
// @Tags         tax-rules
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Tax rule ID"
// @Param        payload  body      service.TaxRuleRequest  true  "Tax rule payload"
// @Success      200      {object}  response.Response{data=model.TaxRule}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tax-rules/{id} [put]
func (h *TaxRuleHandler) UpdateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	rule, err := h.taxRuleService.Update(c.Request.Context(), c.Param("id"), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteTaxRule
// @Summary      Delete tax rule
// @Tags         tax-rules
// @Produce      json
// @Param        id   path      string  true  "Tax rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rules/{id} [delete]
func (h *TaxRuleHandler) DeleteTaxRule(c *gin.Context) {
	if err := h.taxRuleService.Delete(c.Request.Context(), c.Param("id"), middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tax rule deleted"}))
}
