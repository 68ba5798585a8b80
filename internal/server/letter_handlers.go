package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"pricewatch/internal/letters"
	"pricewatch/internal/pricing"
	"pricewatch/internal/storage"
)

type draftRequest struct {
	Commodity    string          `json:"commodity"`
	Store        string          `json:"store"`
	Municipality string          `json:"municipality"`
	Price        decimal.Decimal `json:"price"`
	SRP          decimal.Decimal `json:"srp"`
	ObservedAt   *time.Time      `json:"observedAt"`
	Officer      string          `json:"officer"`
	ReplyDays    int             `json:"replyDays"`
}

func (s *Server) handleDraftLetter(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	obs := pricing.Observation{
		Commodity:    req.Commodity,
		Store:        req.Store,
		Municipality: req.Municipality,
		Price:        req.Price,
		SRP:          req.SRP,
	}
	if req.ObservedAt != nil {
		obs.Timestamp = req.ObservedAt.UTC()
	}

	if !obs.SRP.IsPositive() || !obs.Price.GreaterThan(obs.SRP) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "letters apply only to prices above a positive srp"})
		return
	}

	officer := req.Officer
	if officer == "" {
		officer = s.cfg.Letters.Officer
	}
	replyDays := req.ReplyDays
	if replyDays <= 0 {
		replyDays = s.cfg.Letters.ReplyDays
	}

	letter, err := letters.Draft(letters.DraftInput{
		Observation: obs,
		Officer:     officer,
		Date:        time.Now().UTC(),
		ReplyDays:   replyDays,
	})
	if err != nil {
		s.internalError(c, err, "draft letter")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject":  letter.Subject,
		"body":     letter.Body,
		"date":     letter.Date,
		"deadline": letter.Deadline,
		"officer":  letter.Officer,
	})
}

// handleFlagged lists the observations an officer may want to draft letters
// for: those priced above a configured SRP.
func (s *Server) handleFlagged(c *gin.Context) {
	f, ok := s.parseFilter(c)
	if !ok {
		return
	}
	obs, ok := s.loadObservations(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"flagged": letters.Flagged(f.Apply(obs))})
}

type printedLetterRequest struct {
	Store         string     `json:"store"`
	DatePrinted   *time.Time `json:"datePrinted"`
	Deadline      *time.Time `json:"deadline"`
	PrintedBy     string     `json:"printedBy"`
	Replied       bool       `json:"replied"`
	CopiesPrinted int        `json:"copiesPrinted"`
}

func (r printedLetterRequest) record(id string) storage.PrintedLetter {
	letter := storage.PrintedLetter{
		ID:            id,
		Store:         r.Store,
		PrintedBy:     r.PrintedBy,
		Replied:       r.Replied,
		CopiesPrinted: r.CopiesPrinted,
	}
	if r.DatePrinted != nil {
		letter.DatePrinted = r.DatePrinted.UTC()
	} else {
		letter.DatePrinted = time.Now().UTC()
	}
	if r.Deadline != nil {
		letter.Deadline = r.Deadline.UTC()
	}
	return letter
}

func (s *Server) handleListLetters(c *gin.Context) {
	records, err := s.letters.ListLetters(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "list printed letters")
		return
	}
	c.JSON(http.StatusOK, gin.H{"letters": records})
}

func (s *Server) handleCreateLetter(c *gin.Context) {
	var req printedLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Store == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store is required"})
		return
	}

	letter, err := s.letters.InsertLetter(c.Request.Context(), req.record(""))
	if err != nil {
		s.internalError(c, err, "insert printed letter")
		return
	}
	c.JSON(http.StatusCreated, letter)
}

func (s *Server) handleUpdateLetter(c *gin.Context) {
	var req printedLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	letter, err := s.letters.UpdateLetter(c.Request.Context(), req.record(c.Param("id")))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "letter not found"})
			return
		}
		s.internalError(c, err, "update printed letter")
		return
	}
	c.JSON(http.StatusOK, letter)
}

func (s *Server) handleDeleteLetter(c *gin.Context) {
	if err := s.letters.DeleteLetter(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "letter not found"})
			return
		}
		s.internalError(c, err, "delete printed letter")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
