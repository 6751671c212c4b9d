package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/importlens/backend/internal/domain"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// ProductAnalyzer runs the analysis pipeline for one URL
type ProductAnalyzer interface {
	Analyze(ctx context.Context, request *domain.AnalyzeRequest) (*domain.AnalyzeProductOutput, error)
}

// NomenclatorCatalog is the read side of the NCM index
type NomenclatorCatalog interface {
	Search(query string, opts domain.SearchOptions) []domain.NCMMatch
	Lookup(code string) (domain.NCMEntry, error)
	Len() int
}

// FxSnapshotReader exposes the cached exchange rate without refreshing it
type FxSnapshotReader interface {
	GetSnapshot() (domain.FxSnapshot, bool)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analyzer ProductAnalyzer
	catalog  NomenclatorCatalog
	fx       FxSnapshotReader
	now      func() time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(analyzer ProductAnalyzer, catalog NomenclatorCatalog, fx FxSnapshotReader) *Handler {
	return &Handler{
		analyzer: analyzer,
		catalog:  catalog,
		fx:       fx,
		now:      time.Now,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	entries := 0
	if h.catalog != nil {
		entries = h.catalog.Len()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "importlens-backend",
		"version":    "1.0.0",
		"ncmEntries": entries,
	})
}

// AnalyzeProduct runs the full pipeline for a marketplace product URL
func (h *Handler) AnalyzeProduct(c *gin.Context) {
	var request domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	output, err := h.analyzer.Analyze(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, output)
}

// SearchNCM ranks catalog entries for a free-text query
func (h *Handler) SearchNCM(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondError(c, fmt.Errorf("%w: query parameter 'q' is required", domain.ErrInvalidRequest))
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			respondError(c, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidRequest, maxSearchLimit))
			return
		}
		limit = n
	}

	family := strings.TrimSpace(c.Query("family"))
	if family != "" && !domain.IsCodeFamily(family) {
		respondError(c, fmt.Errorf("%w: family %q is not a code prefix", domain.ErrInvalidRequest, family))
		return
	}
	matches := h.catalog.Search(query, domain.SearchOptions{Limit: limit, CodeFamily: family})

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"family":  family,
		"count":   len(matches),
		"results": matches,
	})
}

// GetNCM returns a single catalog entry by code (dotted or undotted)
func (h *Handler) GetNCM(c *gin.Context) {
	entry, err := h.catalog.Lookup(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// FxSnapshot reports the cached exchange rate and its age
func (h *Handler) FxSnapshot(c *gin.Context) {
	snapshot, ok := h.fx.GetSnapshot()
	if !ok {
		respondError(c, fmt.Errorf("%w: no rate has been fetched yet", domain.ErrRateUnavailable))
		return
	}

	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"rate":          snapshot.Rate,
		"baseCurrency":  snapshot.BaseCurrency,
		"quoteCurrency": snapshot.QuoteCurrency,
		"source":        snapshot.Source,
		"lastUpdatedAt": snapshot.LastUpdatedAt,
		"expiresAt":     snapshot.ExpiresAt,
		"ageSeconds":    int64(now.Sub(snapshot.LastUpdatedAt).Seconds()),
		"stale":         !snapshot.FreshAt(now),
	})
}
