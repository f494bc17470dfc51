package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expense-tracker-server/internal/metrics"
	"github.com/rongwang/expense-tracker-server/internal/service"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	service     service.Service
	logger      *zap.Logger
	authLimiter gin.HandlerFunc
}

// HandlerOption customises a Handler
type HandlerOption func(*Handler)

func WithHandlerLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// WithAuthLimiter guards register and login, usually with RateLimiter
func WithAuthLimiter(limiter gin.HandlerFunc) HandlerOption {
	return func(h *Handler) { h.authLimiter = limiter }
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:     svc,
		logger:      zap.NewNop(),
		authLimiter: func(c *gin.Context) { c.Next() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes sets up the API routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.authLimiter, h.Register)
		auth.POST("/login", h.authLimiter, h.Login)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(AuthMiddleware())
	{
		protected.GET("/auth/profile", h.Profile)
		protected.PUT("/auth/profile", h.UpdateProfile)
		protected.POST("/auth/change-password", h.ChangePassword)

		wallets := protected.Group("/wallets")
		wallets.GET("", h.ListWallets)
		wallets.POST("", h.CreateWallet)
		wallets.GET("/enabled", h.ListEnabledWallets)
		wallets.GET("/:id", h.GetWallet)
		wallets.PUT("/:id", h.UpdateWallet)
		wallets.DELETE("/:id", h.DeleteWallet)

		transactions := protected.Group("/transactions")
		transactions.GET("", h.ListTransactions)
		transactions.POST("", h.CreateTransaction)
		transactions.GET("/today", h.TodayTotal)
		transactions.GET("/date-range", h.DateRange)
		transactions.GET("/export", h.ExportTransactions)
		transactions.GET("/:id", h.GetTransaction)
		transactions.PUT("/:id", h.UpdateTransaction)
		transactions.DELETE("/:id", h.DeleteTransaction)

		budgets := protected.Group("/budgets")
		budgets.GET("", h.GetBudget)
		budgets.POST("", h.SaveBudget)
		budgets.POST("/update-spent", h.RecomputeBudget)
		budgets.PUT("/:id", h.UpdateBudget)

		categories := protected.Group("/categories")
		categories.GET("", h.ListCategories)
		categories.POST("", h.CreateCategory)
		categories.GET("/:id", h.GetCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)

		expenses := protected.Group("/expenses")
		expenses.GET("", h.ListExpenses)
		expenses.POST("", h.CreateExpense)
		expenses.GET("/today", h.TodayExpenses)
		expenses.GET("/monthly", h.MonthlyExpenses)
		expenses.GET("/summary", h.ExpenseSummary)
		expenses.GET("/:id", h.GetExpense)
		expenses.PUT("/:id", h.UpdateExpense)
		expenses.DELETE("/:id", h.DeleteExpense)

		settings := protected.Group("/user-settings")
		settings.GET("", h.GetSettings)
		settings.POST("", h.SaveSettings)
		settings.POST("/daily-budget", h.SaveSettings)
		settings.POST("/recalculate", h.RecalculateTotalExpenses)
		settings.PUT("/:id", h.UpdateSettings)
	}
}
