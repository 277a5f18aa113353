package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"litewms/internal/models"
	"litewms/internal/service"
	"litewms/internal/snapshot"
	"litewms/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	stock    *service.StockService
	registry *service.RegistryService
}

// NewHandler creates a new HTTP handler
func NewHandler(stock *service.StockService, registry *service.RegistryService) *Handler {
	return &Handler{stock: stock, registry: registry}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/warehouses", h.listWarehouses)
		v1.POST("/warehouses", h.createWarehouse)
		v1.GET("/warehouses/:id", h.getWarehouse)
		v1.PUT("/warehouses/:id", h.renameWarehouse)
		v1.DELETE("/warehouses/:id", h.deleteWarehouse)
		v1.GET("/warehouses/:id/items", h.listItems)
		v1.GET("/warehouses/:id/transactions", h.listTransactions)

		v1.GET("/categories", h.listCategories)
		v1.POST("/categories", h.createCategory)
		v1.PUT("/categories/:id", h.updateCategory)
		v1.DELETE("/categories/:id", h.deleteCategory)

		v1.GET("/items/:id", h.getItem)
		v1.DELETE("/items/:id", h.removeItem)

		v1.POST("/stock/inbound", h.inbound)
		v1.POST("/stock/outbound", h.outbound)
		v1.POST("/stock/adjust", h.adjust)
		v1.POST("/stock/transfer", h.transfer)

		v1.POST("/transactions/:id/revert", h.revert)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().Unix()})
}

// --- warehouses ---

func (h *Handler) listWarehouses(c *gin.Context) {
	whs, err := h.registry.ListWarehouses(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": whs})
}

func (h *Handler) createWarehouse(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	wh, err := h.registry.CreateWarehouse(c.Request.Context(), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wh)
}

func (h *Handler) getWarehouse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	wh, err := h.registry.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wh)
}

func (h *Handler) renameWarehouse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.registry.RenameWarehouse(c.Request.Context(), id, req.Name); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteWarehouse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteWarehouse(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- categories ---

func (h *Handler) listCategories(c *gin.Context) {
	cats, err := h.registry.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

type categoryRequest struct {
	Name       string               `json:"name" binding:"required"`
	Attributes models.AttributeList `json:"attributes"`
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := h.registry.CreateCategory(c.Request.Context(), req.Name, req.Attributes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := h.registry.UpdateCategory(c.Request.Context(), id, req.Name, req.Attributes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteCategory(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- items ---

func (h *Handler) listItems(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	items, err := h.registry.ListItems(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) getItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.registry.GetItem(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) removeItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		User  string `json:"user"`
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := h.stock.RemoveItem(c.Request.Context(), id, req.User, req.Notes); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- stock operations ---

func (h *Handler) inbound(c *gin.Context) {
	var req service.InboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	result, err := h.stock.Inbound(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) outbound(c *gin.Context) {
	var req service.OutboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	result, err := h.stock.Outbound(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) adjust(c *gin.Context) {
	var req service.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	result, err := h.stock.Adjust(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) transfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	result, err := h.stock.Transfer(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) revert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		User  string `json:"user"`
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)

	result, err := h.stock.Revert(c.Request.Context(), id, req.User, req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// --- transactions ---

type transactionView struct {
	models.Transaction
	Snapshot *snapshot.Snapshot `json:"snapshot"`
}

func (h *Handler) listTransactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	txns, err := h.stock.History(c.Request.Context(), id, limit)
	if err != nil {
		fail(c, err)
		return
	}

	views := make([]transactionView, len(txns))
	for i := range txns {
		// Decode never fails outright: legacy payloads degrade to a
		// display-only snapshot.
		snap, _ := snapshot.Decode(txns[i].ItemNameSnapshot)
		views[i] = transactionView{Transaction: txns[i], Snapshot: snap}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": views})
}

// --- helpers ---

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// fail maps ledger errors onto HTTP status codes
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrAttributeMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrInvalidRevert),
		errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
