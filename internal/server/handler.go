// Package server exposes the wrapped summary over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/apperror"
	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

// WrappedService is what the handlers need from the use case layer.
type WrappedService interface {
	Generate(ctx context.Context, token string, scope domain.Scope) (*domain.Result, error)
	ListProjects(ctx context.Context, token, organization string) ([]domain.Project, error)
	ListRepositories(ctx context.Context, token, organization, project string) ([]domain.Repository, error)
}

type Handler struct {
	service      WrappedService
	logger       *zap.Logger
	defaultToken string
	// production hides stack traces from error responses.
	production bool
}

func NewHandler(service WrappedService, logger *zap.Logger, defaultToken string, production bool) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger, defaultToken: defaultToken, production: production}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   apperror.Category     `json:"error"`
	Message string                `json:"message"`
	Details []domain.ProjectError `json:"details,omitempty"`
	Stack   string                `json:"stack,omitempty"`
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	api := router.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/wrapped", h.Wrapped)
	api.GET("/projects", h.ListProjects)
	api.GET("/repositories", h.ListRepositories)
	return router
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Wrapped(c *gin.Context) {
	var scope domain.Scope
	if err := c.ShouldBindJSON(&scope); err != nil {
		h.respondError(c, apperror.NewValidation("invalid request body: "+err.Error()), nil)
		return
	}

	res, err := h.service.Generate(c.Request.Context(), h.token(c), scope)
	if err != nil {
		var details []domain.ProjectError
		if res != nil {
			details = res.Errors
		}
		h.respondError(c, err, details)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.service.ListProjects(c.Request.Context(), h.token(c), c.Query("organization"))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) ListRepositories(c *gin.Context) {
	repos, err := h.service.ListRepositories(c.Request.Context(), h.token(c), c.Query("organization"), c.Query("project"))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, repos)
}

// token prefers the caller's bearer token over the configured one.
func (h *Handler) token(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	return h.defaultToken
}

func (h *Handler) respondError(c *gin.Context, err error, details []domain.ProjectError) {
	category := apperror.CategoryOf(err)
	resp := ErrorResponse{Error: category, Message: err.Error(), Details: details}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		if !h.production {
			resp.Stack = appErr.Stack()
		}
	}

	status := apperror.HTTPStatus(category)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		h.logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	if appErr != nil && appErr.RetryAfter > 0 {
		c.Header("Retry-After", formatSeconds(appErr.RetryAfter))
	}
	c.JSON(status, resp)
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
