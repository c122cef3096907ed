package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"

	"github.com/gin-gonic/gin"
)

const defaultMaxUpload = 5 << 20

type handlers struct {
	deps      Deps
	maxUpload int64
}

// NewRouter builds the gin engine with every API route. It is exported so
// tests and tools can serve it without the outer middleware.
func NewRouter(opts Options, deps Deps) *gin.Engine {
	registerValidators()

	h := &handlers{deps: deps, maxUpload: opts.MaxUploadBytes}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUpload
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.CustomRecovery(recoverPanic), requestTimeout(opts.RequestTimeout))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", h.register)
	authRoutes.POST("/login", h.login)
	authRoutes.GET("/me", auth.Authenticate(deps.Tokens), h.me)

	expenses := api.Group("/expenses", auth.Authenticate(deps.Tokens), auth.Authorize(core.RoleUser, core.RoleAdmin))
	expenses.POST("", h.createExpense)
	expenses.GET("", h.listExpenses)
	expenses.DELETE("", h.deleteExpenses)
	expenses.POST("/bulk", h.bulkCreate)
	expenses.GET("/stats/monthly", h.monthlyStats)
	expenses.GET("/stats/category", h.categoryStats)
	expenses.GET("/:id", h.getExpense)
	expenses.PATCH("/:id", h.updateExpense)
	expenses.DELETE("/:id", h.deleteExpense)

	return r
}

// requestTimeout bounds the handler and everything it calls. Zero disables it.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func recoverPanic(c *gin.Context, recovered any) {
	slog.ErrorContext(c.Request.Context(), "Handler panic",
		"component", "http",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// ownerID is the authenticated caller, or "" which the services reject.
func ownerID(c *gin.Context) string {
	id, _ := auth.IdentityFromContext(c.Request.Context())
	return id.OwnerID
}
