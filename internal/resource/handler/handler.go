package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/logger"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/metrics"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/middleware"
)

// Service is the orchestrator surface the handler adapts to HTTP.
type Service interface {
	List(ctx context.Context, filter resource.Filter) ([]resource.Document, error)
	Get(ctx context.Context, id string) (resource.Document, error)
	Create(ctx context.Context, payload resource.Document) (resource.Document, error)
	Replace(ctx context.Context, id string, payload resource.Document) (resource.Document, error)
	Merge(ctx context.Context, id string, payload resource.Document) (resource.Document, error)
	Delete(ctx context.Context, id string) error
	Changes(ctx context.Context, id string) ([]resource.HistoryRecord, error)
}

// Handler maps one resource onto HTTP routes. It holds no state besides its
// configuration and the service.
type Handler struct {
	cfg resource.Config
	svc Service
}

func New(cfg resource.Config, svc Service) *Handler {
	return &Handler{cfg: cfg, svc: svc}
}

// Register mounts the resource at its configured path. Mutating routes run
// the guard handlers (e.g. authentication) first.
func (h *Handler) Register(r gin.IRouter, guard ...gin.HandlerFunc) {
	g := r.Group(h.cfg.MountPath(), middleware.NoCache())
	write := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guard...), fn)
	}
	g.GET("", h.List)
	g.POST("", write(h.Create)...)
	g.GET("/:id", h.Get)
	g.PUT("/:id", write(h.Replace)...)
	g.PATCH("/:id", write(h.Merge)...)
	g.DELETE("/:id", write(h.Delete)...)
	g.GET("/:id/diff", h.Changes)
}

// List returns every document; query parameters filter on equal top-level
// fields. Each field may appear once.
func (h *Handler) List(c *gin.Context) {
	var filter resource.Filter
	if q := c.Request.URL.Query(); len(q) > 0 {
		filter = resource.Filter{}
		for k, vs := range q {
			if len(vs) > 1 {
				h.fail(c, "list", fmt.Errorf("%w: field %q given %d times", resource.ErrInvalidFilter, k, len(vs)))
				return
			}
			filter[k] = vs[0]
		}
		if err := filter.Validate(); err != nil {
			h.fail(c, "list", err)
			return
		}
	}
	list, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	h.ok(c, "list", http.StatusOK, list)
}

func (h *Handler) Create(c *gin.Context) {
	payload, ok := h.bind(c, "create")
	if !ok {
		return
	}
	doc, err := h.svc.Create(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	h.ok(c, "create", http.StatusCreated, doc)
}

func (h *Handler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "read", err)
		return
	}
	h.ok(c, "read", http.StatusOK, doc)
}

func (h *Handler) Replace(c *gin.Context) {
	payload, ok := h.bind(c, "replace")
	if !ok {
		return
	}
	doc, err := h.svc.Replace(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		h.fail(c, "replace", err)
		return
	}
	h.ok(c, "replace", http.StatusOK, doc)
}

func (h *Handler) Merge(c *gin.Context) {
	payload, ok := h.bind(c, "merge")
	if !ok {
		return
	}
	doc, err := h.svc.Merge(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		h.fail(c, "merge", err)
		return
	}
	h.ok(c, "merge", http.StatusOK, doc)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete", err)
		return
	}
	metrics.Operations.WithLabelValues("delete", "ok").Inc()
	c.Status(http.StatusNoContent)
}

// Changes lists the history records of a document, newest first.
func (h *Handler) Changes(c *gin.Context) {
	recs, err := h.svc.Changes(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "diff", err)
		return
	}
	h.ok(c, "diff", http.StatusOK, recs)
}

func (h *Handler) bind(c *gin.Context, op string) (resource.Document, bool) {
	var payload resource.Document
	if err := c.ShouldBindJSON(&payload); err != nil {
		metrics.Operations.WithLabelValues(op, "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if payload == nil {
		metrics.Operations.WithLabelValues(op, "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return nil, false
	}
	return payload, true
}

func (h *Handler) ok(c *gin.Context, op string, status int, body any) {
	metrics.Operations.WithLabelValues(op, "ok").Inc()
	c.JSON(status, body)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, resource.ErrNotFound):
		metrics.Operations.WithLabelValues(op, "not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case errors.Is(err, resource.ErrInvalidFilter):
		metrics.Operations.WithLabelValues(op, "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_filter"})
		return
	}
	code := "internal_error"
	switch {
	case errors.Is(err, resource.ErrConfiguration):
		code = "configuration_error"
	case resource.IsStoreError(err):
		code = "store_error"
	}
	metrics.Operations.WithLabelValues(op, "error").Inc()
	logger.Errorf("%s %s %s: %v", h.cfg.Name, op, c.Param("id"), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": code})
}
