package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/reconciler"
)

type stubStore struct {
	products map[int64]*models.Product
	history  map[int64][]models.PriceHistory
	list     []models.Product
}

func (s *stubStore) GetCurrent(context.Context, string, string) (*models.Product, *models.PriceHistory, error) {
	return nil, nil, nil
}
func (s *stubStore) Apply(context.Context, string, reconciler.Decision) error { return nil }
func (s *stubStore) ListProducts(_ context.Context, limit, offset int) ([]models.Product, error) {
	if offset >= len(s.list) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.list) {
		end = len(s.list)
	}
	return s.list[offset:end], nil
}
func (s *stubStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	return s.products[id], nil
}
func (s *stubStore) GetPriceHistory(_ context.Context, ref int64, _ int) ([]models.PriceHistory, error) {
	return s.history[ref], nil
}
func (s *stubStore) Close() error { return nil }

func newTestServer() (*stubStore, http.Handler) {
	gin.SetMode(gin.TestMode)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &models.Product{ID: 1, Source: "neptun", ProductID: "sku-1", Name: "TV 55", Price: 499.99,
		CreatedAt: at, UpdatedAt: at, LastSeenAt: at}
	store := &stubStore{
		products: map[int64]*models.Product{1: p},
		history: map[int64][]models.PriceHistory{1: {
			{ID: 2, ProductRef: 1, Price: 499.99, IsOpen: true, ValidFrom: at},
			{ID: 1, ProductRef: 1, Price: 549.99, ValidFrom: at.Add(-24 * time.Hour)},
		}},
		list: []models.Product{*p},
	}
	return store, New(store).Router()
}

func TestListProducts(t *testing.T) {
	_, h := newTestServer()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Products []models.Product `json:"products"`
		Limit    int              `json:"limit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Products) != 1 || body.Products[0].Name != "TV 55" {
		t.Errorf("products = %+v", body.Products)
	}
	if body.Limit != defaultLimit {
		t.Errorf("limit = %d", body.Limit)
	}
}

func TestListProductsEmptyIsArray(t *testing.T) {
	_, h := newTestServer()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products?offset=100", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if string(body["products"]) != "[]" {
		t.Errorf("products = %s, lista vazia deve ser [] e não null", body["products"])
	}
}

func TestGetProduct(t *testing.T) {
	_, h := newTestServer()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var p models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.ProductID != "sku-1" {
		t.Errorf("produto = %+v", p)
	}
}

func TestGetProductNotFound(t *testing.T) {
	_, h := newTestServer()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/999", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetProductBadID(t *testing.T) {
	_, h := newTestServer()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	_, h := newTestServer()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/1/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		History []models.PriceHistory `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.History) != 2 {
		t.Fatalf("history = %d linhas", len(body.History))
	}
	if !body.History[0].IsOpen || body.History[1].IsOpen {
		t.Error("a primeira linha deve ser a aberta")
	}
}
