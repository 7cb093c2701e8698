package handler

import (
	"net/http"

	"taxcalc/internal/middleware"
	"taxcalc/internal/service"
	"taxcalc/pkg/pagination"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	transactionService service.TransactionService
}

func NewTransactionHandler(transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.RouterGroup) {
	txs := router.Group("/api/transactions")
	{
		txs.POST("", h.RecordTransaction)
		txs.GET("", h.ListTransactions)
		txs.GET("/:id", h.GetTransaction)
		txs.DELETE("/:id", h.DeleteTransaction)
	}
}

// RecordTransaction calculates tax server-side and stores the completed sale
// @Summary      Record transaction
// @Description  Amounts are always recomputed from the items; the stored figures feed nexus tracking
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordTransactionRequest  true  "Sale"
// @Success      201      {object}  response.Response{data=model.Transaction}
// @Failure      400      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /api/transactions [post]
func (h *TransactionHandler) RecordTransaction(c *gin.Context) {
	var req service.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	tx, err := h.transactionService.Record(c.Request.Context(), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// ListTransactions
// @Summary      List transactions
// @Tags         transactions
// @Produce      json
// @Param        jurisdiction_key  query     string  false  "Filter by jurisdiction key"
// @Param        customer_id       query     string  false  "Filter by customer"
// @Param        from              query     string  false  "Start date YYYY-MM-DD"
// @Param        to                query     string  false  "End date YYYY-MM-DD, inclusive"
// @Param        page              query     int     false  "Page number (default: 1)"
// @Param        limit             query     int     false  "Items per page (default: 20)"
// @Success      200               {object}  response.Response
// @Failure      400               {object}  response.Response
// @Router       /api/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	p := pagination.Parse(c)
	q := service.TransactionQuery{
		JurisdictionKey: c.Query("jurisdiction_key"),
		CustomerID:      c.Query("customer_id"),
		From:            c.Query("from"),
		To:              c.Query("to"),
	}

	txs, total, err := h.transactionService.List(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, txs, p.Page, p.Limit, total))
}

// @Summary      Get transaction
// @Tags         transactions
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response{data=model.Transaction}
// @Failure      404  {object}  response.Response
// @Router       /api/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	tx, err := h.transactionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tx))
}

// @Summary      Delete transaction
// @Tags         transactions
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	if err := h.transactionService.Delete(c.Request.Context(), c.Param("id"), middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Transaction deleted"}))
}
