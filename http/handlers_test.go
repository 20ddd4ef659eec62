package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"flowquant/db"
	"flowquant/flow"
	"flowquant/market"

	"go.uber.org/zap"
)

func newTestAPI(t *testing.T) (*API, *db.Store) {
	t.Helper()
	store, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	agg := flow.NewAggregator(store, 0)
	api := &API{
		Store:      store,
		Aggregator: agg,
		Ranker:     flow.NewRanker(store),
		Trend:      flow.NewTrendGenerator(store),
		Refresher:  flow.NewRefresher(store, agg, zap.NewNop(), 0),
	}
	return api, store
}

func newTestMux(t *testing.T) (*http.ServeMux, *db.Store) {
	t.Helper()
	api, store := newTestAPI(t)
	mux := http.NewServeMux()
	api.Register(mux)
	return mux, store
}

func TestHealthHandler(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestAggregateHandlerEmptyStore(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest("GET", "/api/flow/aggregate/600519", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var agg market.Aggregate
	if err := json.Unmarshal(rr.Body.Bytes(), &agg); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if agg.Code != "600519" || agg.PredictionScore != 0 || agg.FlowDays != 0 {
		t.Errorf("expected zero aggregate, got %+v", agg)
	}
}

func TestRankingHandlerInvalidWindow(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest("GET", "/api/flow/ranking?window=monthly", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestTrendHandler(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest("GET", "/api/flow/trend?days=7", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Days   int                 `json:"days"`
		Points []market.TrendPoint `json:"points"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Days != 7 || len(body.Points) != 7 {
		t.Errorf("expected 7 points, got %d", len(body.Points))
	}
}

func TestTrendHandlerInvalidDays(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest("GET", "/api/flow/trend?days=0", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRefreshHandlerReportsErrors(t *testing.T) {
	mux, store := newTestMux(t)

	err := store.SaveMapping(context.Background(), market.StockMapping{
		Code: "600000.SH", Name: "浦发银行", MappingStatus: market.StatusMapped,
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/flow/refresh", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var result market.RefreshResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Errorf("updated = %d, want 1", result.UpdatedCount)
	}
}
