package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"repricer-service/internal/ledger"
	"repricer-service/internal/models"
	"repricer-service/internal/reconcile"
	"repricer-service/internal/util"
)

// RunLocker guards against concurrent runs across processes. Nil when Redis
// is not configured; the in-process guard in the engine still applies.
type RunLocker interface {
	AcquireRunLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	engine     *reconcile.Service
	ledger     ledger.Ledger
	strategies reconcile.StrategyStore
	locker     RunLocker
	lockTTL    time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *reconcile.Service, priceLedger ledger.Ledger, strategies reconcile.StrategyStore, locker RunLocker, lockTTL time.Duration) *Handler {
	return &Handler{
		engine:     engine,
		ledger:     priceLedger,
		strategies: strategies,
		locker:     locker,
		lockTTL:    lockTTL,
	}
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
		v1.POST("/reconcile", h.runReconciliation)
		v1.POST("/strategies", h.saveStrategy)
		v1.GET("/strategies/:id", h.getStrategy)
		v1.POST("/strategies/:id/apply", h.applyStrategy)
		v1.GET("/items/:itemId/history", h.itemHistory)
		v1.GET("/items/:itemId/history/latest", h.itemLatest)
		v1.GET("/items/:itemId/history/summary", h.itemSummary)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// runReconciliation triggers a full reconciliation pass. The summary is
// returned even when individual items failed; only a run that cannot start
// at all is a top-level error.
func (h *Handler) runReconciliation(c *gin.Context) {
	// An empty body runs with default options.
	var opts reconcile.Options
	if err := c.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	if h.locker != nil {
		acquired, err := h.locker.AcquireRunLock(ctx, h.lockTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to acquire run lock",
				"details": err.Error(),
			})
			return
		}
		if !acquired {
			c.JSON(http.StatusConflict, gin.H{
				"error": "A reconciliation run is already in progress",
			})
			return
		}
		defer func() { _ = h.locker.ReleaseRunLock(context.Background()) }()
	}

	summary, err := h.engine.Run(ctx, opts)
	if err != nil {
		if errors.Is(err, reconcile.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "A reconciliation run is already in progress",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Reconciliation run failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

type applyStrategyRequest struct {
	Items []reconcile.ApplyItem `json:"items" binding:"required,min=1"`
}

// applyStrategy evaluates a strategy against submitted items without
// writing to the marketplace.
func (h *Handler) applyStrategy(c *gin.Context) {
	var req applyStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	results, err := h.engine.ApplyStrategy(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Failed to apply strategy",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// saveStrategy upserts a pricing strategy definition
func (h *Handler) saveStrategy(c *gin.Context) {
	var st models.PricingStrategy
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if st.ID == "" || st.Rule == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Strategy id and rule are required",
		})
		return
	}

	if err := h.strategies.SaveStrategy(c.Request.Context(), &st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save strategy",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, st)
}

// getStrategy retrieves a strategy by ID
func (h *Handler) getStrategy(c *gin.Context) {
	st, err := h.strategies.GetStrategy(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Strategy not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, st)
}

// itemHistory returns one page of an item's price change records
func (h *Handler) itemHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, total, err := h.ledger.History(c.Request.Context(), c.Param("itemId"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load price history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// itemLatest returns the most recent record for (itemId, sku)
func (h *Handler) itemLatest(c *gin.Context) {
	record, err := h.ledger.Latest(c.Request.Context(), c.Param("itemId"), c.Query("sku"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load latest record",
			"details": err.Error(),
		})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No price history for item",
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// itemSummary returns aggregate price history for an item
func (h *Handler) itemSummary(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load history summary",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
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
