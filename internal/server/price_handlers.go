package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"pricewatch/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type priceRequest struct {
	Commodity    string          `json:"commodity"`
	Brand        string          `json:"brand"`
	Variant      string          `json:"variant"`
	Size         string          `json:"size"`
	Category     string          `json:"category"`
	Store        string          `json:"store"`
	Municipality string          `json:"municipality"`
	Price        decimal.Decimal `json:"price"`
	SRP          decimal.Decimal `json:"srp"`
	ObservedAt   *time.Time      `json:"observedAt"`
}

type priceResponse struct {
	ID           string          `json:"id"`
	Commodity    string          `json:"commodity"`
	Brand        string          `json:"brand,omitempty"`
	Variant      string          `json:"variant,omitempty"`
	Size         string          `json:"size,omitempty"`
	Category     string          `json:"category,omitempty"`
	Store        string          `json:"store,omitempty"`
	Municipality string          `json:"municipality,omitempty"`
	Price        decimal.Decimal `json:"price"`
	SRP          decimal.Decimal `json:"srp"`
	ObservedAt   time.Time       `json:"observedAt"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (r priceRequest) record(id string) storage.PriceRecord {
	rec := storage.PriceRecord{
		ID:           id,
		Commodity:    r.Commodity,
		Brand:        r.Brand,
		Variant:      r.Variant,
		Size:         r.Size,
		Category:     r.Category,
		Store:        r.Store,
		Municipality: r.Municipality,
		Price:        r.Price,
		SRP:          r.SRP,
	}
	if r.ObservedAt != nil {
		rec.Timestamp = r.ObservedAt.UTC()
	}
	return rec
}

func toPriceResponse(rec storage.PriceRecord) priceResponse {
	return priceResponse{
		ID:           rec.ID,
		Commodity:    rec.Commodity,
		Brand:        rec.Brand,
		Variant:      rec.Variant,
		Size:         rec.Size,
		Category:     rec.Category,
		Store:        rec.Store,
		Municipality: rec.Municipality,
		Price:        rec.Price,
		SRP:          rec.SRP,
		ObservedAt:   rec.Timestamp,
		CreatedAt:    rec.CreatedAt,
	}
}

func (s *Server) handleListPrices(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	records, err := s.prices.ListPrices(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		s.internalError(c, err, "list price records")
		return
	}
	total, err := s.prices.CountPrices(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "count price records")
		return
	}

	out := make([]priceResponse, len(records))
	for i, rec := range records {
		out[i] = toPriceResponse(rec)
	}
	c.JSON(http.StatusOK, gin.H{
		"records": out,
		"page":    page,
		"limit":   limit,
		"total":   total,
	})
}

func (s *Server) handleCreatePrice(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Price.IsNegative() || req.SRP.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price and srp cannot be negative"})
		return
	}

	rec, err := s.prices.InsertPrice(c.Request.Context(), req.record(""))
	if err != nil {
		s.internalError(c, err, "insert price record")
		return
	}
	c.JSON(http.StatusCreated, toPriceResponse(rec))
}

func (s *Server) handleUpdatePrice(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Price.IsNegative() || req.SRP.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price and srp cannot be negative"})
		return
	}

	rec, err := s.prices.UpdatePrice(c.Request.Context(), req.record(c.Param("id")))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		s.internalError(c, err, "update price record")
		return
	}
	c.JSON(http.StatusOK, toPriceResponse(rec))
}

func (s *Server) handleDeletePrice(c *gin.Context) {
	if err := s.prices.DeletePrice(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		s.internalError(c, err, "delete price record")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleDeleteAllPrices(c *gin.Context) {
	// Bulk wipe is deliberate; require explicit confirmation.
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bulk delete requires confirm=true"})
		return
	}
	deleted, err := s.prices.DeleteAllPrices(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "delete all price records")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) handleBackfillDefaults(c *gin.Context) {
	updated, err := s.prices.BackfillDefaults(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "backfill defaults")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (s *Server) internalError(c *gin.Context, err error, op string) {
	s.logger.Error().Err(err).Str("op", op).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
