package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/auth"
	"pricewatch/internal/config"
	"pricewatch/internal/storage"
)

type memPriceStore struct {
	records []storage.PriceRecord
}

func (m *memPriceStore) InsertPrice(_ context.Context, rec storage.PriceRecord) (storage.PriceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.CreatedAt = time.Now().UTC()
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memPriceStore) ListPrices(_ context.Context, limit, offset int) ([]storage.PriceRecord, error) {
	if offset >= len(m.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.records) {
		end = len(m.records)
	}
	return m.records[offset:end], nil
}

func (m *memPriceStore) ListAllPrices(_ context.Context) ([]storage.PriceRecord, error) {
	return m.records, nil
}

func (m *memPriceStore) ListPricesSince(_ context.Context, from time.Time) ([]storage.PriceRecord, error) {
	out := make([]storage.PriceRecord, 0)
	for _, r := range m.records {
		if !r.Timestamp.Before(from) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memPriceStore) UpdatePrice(_ context.Context, rec storage.PriceRecord) (storage.PriceRecord, error) {
	for i, r := range m.records {
		if r.ID == rec.ID {
			rec.CreatedAt = r.CreatedAt
			m.records[i] = rec
			return rec, nil
		}
	}
	return storage.PriceRecord{}, pgx.ErrNoRows
}

func (m *memPriceStore) DeletePrice(_ context.Context, id string) error {
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memPriceStore) DeleteAllPrices(context.Context) (int64, error) {
	n := int64(len(m.records))
	m.records = nil
	return n, nil
}

func (m *memPriceStore) CountPrices(context.Context) (int64, error) {
	return int64(len(m.records)), nil
}

func (m *memPriceStore) BackfillDefaults(context.Context) (int64, error) { return 0, nil }

type memLetterStore struct {
	letters []storage.PrintedLetter
}

func (m *memLetterStore) InsertLetter(_ context.Context, letter storage.PrintedLetter) (storage.PrintedLetter, error) {
	if letter.ID == "" {
		letter.ID = uuid.New().String()
	}
	letter.CreatedAt = time.Now().UTC()
	m.letters = append(m.letters, letter)
	return letter, nil
}

func (m *memLetterStore) ListLetters(context.Context) ([]storage.PrintedLetter, error) {
	return m.letters, nil
}

func (m *memLetterStore) UpdateLetter(_ context.Context, letter storage.PrintedLetter) (storage.PrintedLetter, error) {
	for i, l := range m.letters {
		if l.ID == letter.ID {
			letter.CreatedAt = l.CreatedAt
			m.letters[i] = letter
			return letter, nil
		}
	}
	return storage.PrintedLetter{}, pgx.ErrNoRows
}

func (m *memLetterStore) DeleteLetter(_ context.Context, id string) error {
	for i, l := range m.letters {
		if l.ID == id {
			m.letters = append(m.letters[:i], m.letters[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type memUserStore struct {
	byEmail map[string]storage.User
}

func (m *memUserStore) CreateUser(_ context.Context, user storage.User) (storage.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Role == "" {
		user.Role = "officer"
	}
	m.byEmail[user.Email] = user
	return user, nil
}

func (m *memUserStore) FindUserByEmail(_ context.Context, email string) (storage.User, error) {
	user, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return storage.User{}, storage.ErrUserNotFound
	}
	return user, nil
}

type testHarness struct {
	router *gin.Engine
	prices *memPriceStore
	token  string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Report:  config.ReportConfig{TopCommodities: 10, ExtremeCount: 5, TopLocations: 10, TopMovers: 5, DefaultRange: "all"},
		Letters: config.LettersConfig{Officer: "Monitoring Officer", ReplyDays: 3},
	}

	authSvc, err := auth.NewService(&memUserStore{byEmail: make(map[string]storage.User)}, config.AuthConfig{
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		BcryptCost:        4,
		MinPasswordLength: 6,
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	prices := &memPriceStore{}
	srv := New(cfg, prices, &memLetterStore{}, authSvc, zerolog.Nop())
	h := &testHarness{router: srv.Router(), prices: prices}

	body := h.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"fullName": "Test Officer",
		"email":    "officer@example.com",
		"password": "s3cret!",
	}, http.StatusCreated)
	h.token, _ = body["token"].(string)
	if h.token == "" {
		t.Fatal("signup should return a token")
	}
	return h
}

func (h *testHarness) do(t *testing.T, method, path, token string, payload any, wantStatus int) map[string]any {
	t.Helper()

	var reqBody *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status %d, want %d, body %s", method, path, w.Code, wantStatus, w.Body.String())
	}

	out := make(map[string]any)
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	body := h.do(t, http.MethodGet, "/health", "", nil, http.StatusOK)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)

	body := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "officer@example.com",
		"password": "s3cret!",
	}, http.StatusOK)
	if body["token"] == "" {
		t.Fatal("login should return a token")
	}

	h.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "officer@example.com",
		"password": "wrong",
	}, http.StatusUnauthorized)
}

func TestPriceWritesRequireAuth(t *testing.T) {
	h := newHarness(t)
	payload := map[string]any{"commodity": "Rice", "price": "55.00", "srp": "52.00"}

	h.do(t, http.MethodPost, "/api/prices", "", payload, http.StatusUnauthorized)
	h.do(t, http.MethodPost, "/api/prices", "not-a-token", payload, http.StatusUnauthorized)
	h.do(t, http.MethodPost, "/api/prices", h.token, payload, http.StatusCreated)
}

func TestPriceCRUD(t *testing.T) {
	h := newHarness(t)

	created := h.do(t, http.MethodPost, "/api/prices", h.token, map[string]any{
		"commodity": "Rice",
		"store":     "Mart A",
		"price":     "55.00",
		"srp":       "52.00",
	}, http.StatusCreated)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("create should return an id")
	}

	listed := h.do(t, http.MethodGet, "/api/prices?page=1&limit=10", "", nil, http.StatusOK)
	if listed["total"].(float64) != 1 {
		t.Fatalf("expected total 1, got %v", listed["total"])
	}

	updated := h.do(t, http.MethodPut, "/api/prices/"+id, h.token, map[string]any{
		"commodity": "Rice",
		"store":     "Mart A",
		"price":     "54.00",
		"srp":       "52.00",
	}, http.StatusOK)
	if updated["price"] != "54" {
		t.Fatalf("expected updated price 54, got %v", updated["price"])
	}

	h.do(t, http.MethodPut, "/api/prices/missing", h.token, map[string]any{
		"commodity": "Rice", "price": "1", "srp": "1",
	}, http.StatusNotFound)

	h.do(t, http.MethodDelete, "/api/prices/"+id, h.token, nil, http.StatusOK)
	h.do(t, http.MethodDelete, "/api/prices/"+id, h.token, nil, http.StatusNotFound)
}

func TestBulkDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/prices", h.token, map[string]any{"commodity": "Rice", "price": "1", "srp": "1"}, http.StatusCreated)

	h.do(t, http.MethodDelete, "/api/prices", h.token, nil, http.StatusBadRequest)
	body := h.do(t, http.MethodDelete, "/api/prices?confirm=true", h.token, nil, http.StatusOK)
	if body["deleted"].(float64) != 1 {
		t.Fatalf("expected 1 deleted, got %v", body["deleted"])
	}
}

func TestNegativePriceRejected(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/prices", h.token, map[string]any{
		"commodity": "Rice", "price": "-5", "srp": "0",
	}, http.StatusBadRequest)
}

func seedReportData(t *testing.T, h *testHarness) {
	t.Helper()
	now := time.Now().UTC()
	seed := []storage.PriceRecord{
		{Commodity: "Rice", Store: "Mart A", Municipality: "Daet", Price: decimal.NewFromInt(55), SRP: decimal.NewFromInt(52), Timestamp: now.Add(-time.Hour)},
		{Commodity: "Rice", Store: "Mart A", Municipality: "Daet", Price: decimal.NewFromInt(55), SRP: decimal.NewFromInt(52), Timestamp: now.Add(-2 * time.Hour)},
		{Commodity: "Sugar", Store: "Mart B", Municipality: "Labo", Price: decimal.NewFromInt(80), SRP: decimal.NewFromInt(85), Timestamp: now.Add(-3 * time.Hour)},
	}
	for _, rec := range seed {
		if _, err := h.prices.InsertPrice(context.Background(), rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestDashboardEndpoint(t *testing.T) {
	h := newHarness(t)
	seedReportData(t, h)

	body := h.do(t, http.MethodGet, "/api/reports/dashboard", "", nil, http.StatusOK)
	overview, _ := body["Overview"].(map[string]any)
	if overview == nil || overview["TotalRecords"].(float64) != 3 {
		t.Fatalf("unexpected overview: %v", body["Overview"])
	}
}

func TestPrevailingEndpointFiltersCommodity(t *testing.T) {
	h := newHarness(t)
	seedReportData(t, h)

	body := h.do(t, http.MethodGet, "/api/reports/prevailing?commodity=Rice", "", nil, http.StatusOK)
	commodities, _ := body["commodities"].([]any)
	if len(commodities) != 1 {
		t.Fatalf("expected 1 commodity, got %v", body["commodities"])
	}
	row := commodities[0].(map[string]any)
	// Two observations of 55 against SRP 52: mode 55, capped to 52.
	if row["Prevailing"] != "52" {
		t.Fatalf("expected prevailing 52, got %v", row["Prevailing"])
	}
}

func TestComplianceEndpoint(t *testing.T) {
	h := newHarness(t)
	seedReportData(t, h)

	body := h.do(t, http.MethodGet, "/api/reports/compliance", "", nil, http.StatusOK)
	counts, _ := body["counts"].(map[string]any)
	if counts == nil || counts["NonCompliant"].(float64) != 1 {
		t.Fatalf("expected 1 non-compliant commodity, got %v", body["counts"])
	}
	breaches, _ := body["breaches"].([]any)
	if len(breaches) != 1 {
		t.Fatalf("expected 1 breach, got %v", body["breaches"])
	}
}

func TestReportValidation(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodGet, "/api/reports/dashboard?month=13", "", nil, http.StatusBadRequest)
	h.do(t, http.MethodGet, "/api/reports/dashboard?range=weekly", "", nil, http.StatusBadRequest)
}

func TestDraftLetterEndpoint(t *testing.T) {
	h := newHarness(t)

	body := h.do(t, http.MethodPost, "/api/letters/draft", h.token, map[string]any{
		"commodity":    "Refined Sugar 1kg",
		"store":        "Mart A",
		"municipality": "Daet",
		"price":        "95.50",
		"srp":          "90.00",
	}, http.StatusOK)

	text, _ := body["body"].(string)
	for _, want := range []string{"Dear Mart A", "₱95.50", "₱90.00", "three (3) days"} {
		if !strings.Contains(text, want) {
			t.Fatalf("letter body missing %q:\n%s", want, text)
		}
	}

	// Compliant price must not yield a letter.
	h.do(t, http.MethodPost, "/api/letters/draft", h.token, map[string]any{
		"commodity": "Rice", "price": "50.00", "srp": "52.00",
	}, http.StatusBadRequest)
}

func TestFlaggedEndpoint(t *testing.T) {
	h := newHarness(t)
	seedReportData(t, h)

	h.do(t, http.MethodGet, "/api/letters/flagged", "", nil, http.StatusUnauthorized)

	body := h.do(t, http.MethodGet, "/api/letters/flagged", h.token, nil, http.StatusOK)
	flagged, _ := body["flagged"].([]any)
	// Both rice readings sit above SRP 52; sugar is under its ceiling.
	if len(flagged) != 2 {
		t.Fatalf("expected 2 flagged records, got %v", body["flagged"])
	}
}

func TestPrintedLetterCRUD(t *testing.T) {
	h := newHarness(t)

	created := h.do(t, http.MethodPost, "/api/printed-letters", h.token, map[string]any{
		"store":     "Mart A",
		"printedBy": "Test Officer",
	}, http.StatusCreated)
	id, _ := created["ID"].(string)
	if id == "" {
		t.Fatalf("create should return an ID, got %v", created)
	}

	listed := h.do(t, http.MethodGet, "/api/printed-letters", h.token, nil, http.StatusOK)
	if letters, _ := listed["letters"].([]any); len(letters) != 1 {
		t.Fatalf("expected 1 letter, got %v", listed["letters"])
	}

	h.do(t, http.MethodPut, "/api/printed-letters/"+id, h.token, map[string]any{
		"store":   "Mart A",
		"replied": true,
	}, http.StatusOK)

	h.do(t, http.MethodDelete, "/api/printed-letters/"+id, h.token, nil, http.StatusOK)
	h.do(t, http.MethodDelete, "/api/printed-letters/"+id, h.token, nil, http.StatusNotFound)
}
