package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grocerwatch/backend/internal/domain"
)

// TrackerService is the slice of the usecase layer the handlers need.
type TrackerService interface {
	SearchProducts(ctx context.Context, query string) (*domain.SearchResult, error)
	AddProduct(ctx context.Context, query string) (*domain.TrackedProduct, error)
	RemoveProduct(ctx context.Context, name string) error
	ListProducts(ctx context.Context) ([]*domain.TrackedProduct, error)
	PriceHistory(ctx context.Context, name string, retailer domain.Retailer) ([]domain.PricePoint, error)
	CurrentSpecials() *domain.SpecialsSnapshot
	RunReconciliation(ctx context.Context) (*domain.SpecialsSnapshot, []error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	tracker TrackerService
}

// NewHandler creates a new HTTP handler.
func NewHandler(tracker TrackerService) *Handler {
	return &Handler{tracker: tracker}
}

// HealthCheck returns the health status of the API.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "grocerwatch-backend",
		"version": "1.0.0",
	})
}

// addRequest is the body for product add requests.
type addRequest struct {
	Query string `json:"query" binding:"required"`
}

// SearchProducts previews how a query resolves at each retailer.
func (h *Handler) SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	result, err := h.tracker.SearchProducts(c.Request.Context(), query)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AddProduct resolves a query and starts tracking the product.
func (h *Handler) AddProduct(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	product, err := h.tracker.AddProduct(c.Request.Context(), req.Query)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// RemoveProduct stops tracking a product.
func (h *Handler) RemoveProduct(c *gin.Context) {
	if err := h.tracker.RemoveProduct(c.Request.Context(), c.Param("name")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListProducts returns all tracked products.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.tracker.ListProducts(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// PriceHistory returns the stored price history for one product/retailer.
func (h *Handler) PriceHistory(c *gin.Context) {
	retailer := domain.Retailer(c.Query("retailer"))
	history, err := h.tracker.PriceHistory(c.Request.Context(), c.Param("name"), retailer)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// CurrentSpecials returns the snapshot from the last reconciliation run.
func (h *Handler) CurrentSpecials(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.CurrentSpecials())
}

// RunReconciliation triggers a reconciliation run and returns the fresh
// snapshot. Per-retailer failures come back as warnings, not an error status.
func (h *Handler) RunReconciliation(c *gin.Context) {
	snapshot, warnings := h.tracker.RunReconciliation(c.Request.Context())
	if snapshot == nil {
		// Only fatal errors (e.g. malformed state) leave us without a snapshot.
		h.renderError(c, warnings[0])
		return
	}

	resp := gin.H{"specials": snapshot}
	if len(warnings) > 0 {
		msgs := make([]string, len(warnings))
		for i, w := range warnings {
			msgs[i] = w.Error()
		}
		resp["warnings"] = msgs
	}
	c.JSON(http.StatusOK, resp)
}

// renderError maps domain errors onto HTTP status codes.
func (h *Handler) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateProduct):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCatalogUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
