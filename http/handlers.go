package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"flowquant/db"
	"flowquant/flow"
	"flowquant/market"
	"flowquant/market/industry"
)

// API 聚合看板的HTTP接口，依赖显式注入，不持有全局状态
type API struct {
	Store      *db.Store
	Aggregator *flow.Aggregator
	Ranker     *flow.Ranker
	Trend      *flow.TrendGenerator
	Refresher  *flow.Refresher
	Industries *industry.Cache
}

// Register 注册所有业务路由
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/flow/aggregate/{code}", a.handleAggregate)
	mux.HandleFunc("GET /api/flow/ranking", a.handleRanking)
	mux.HandleFunc("GET /api/flow/industries", a.handleIndustryRanking)
	mux.HandleFunc("GET /api/flow/trend", a.handleTrend)
	mux.HandleFunc("POST /api/flow/refresh", a.handleRefresh)
	mux.HandleFunc("GET /api/mappings", a.handleMappings)
	mux.HandleFunc("GET /api/industries", a.handleIndustries)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleAggregate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	agg, err := a.Aggregator.ComputeAggregate(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (a *API) handleRanking(w http.ResponseWriter, r *http.Request) {
	window := queryDefault(r, "window", flow.WindowDaily)
	order := queryDefault(r, "order", flow.OrderDesc)
	limit := queryInt(r, "limit", 10)

	entries, err := a.Ranker.RankStocks(r.Context(), window, order, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window":    window,
		"order":     order,
		"entries":   entries,
		"timestamp": time.Now(),
	})
}

func (a *API) handleIndustryRanking(w http.ResponseWriter, r *http.Request) {
	order := queryDefault(r, "order", flow.OrderDesc)
	limit := queryInt(r, "limit", 10)

	entries, err := a.Ranker.RankIndustries(r.Context(), order, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order":     order,
		"entries":   entries,
		"timestamp": time.Now(),
	})
}

func (a *API) handleTrend(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	points, err := a.Trend.Trend(r.Context(), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":   days,
		"points": points,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := a.Refresher.RefreshAll(r.Context())
	if err != nil && !errors.Is(err, market.ErrPartialRefresh) {
		writeError(w, err)
		return
	}
	// 部分失败也返回200，错误清单在结果里
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleMappings(w http.ResponseWriter, r *http.Request) {
	filter := db.MappingFilter{
		Status:       market.MappingStatus(r.URL.Query().Get("status")),
		IndustryCode: r.URL.Query().Get("industry"),
		Keyword:      r.URL.Query().Get("keyword"),
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	mappings, err := a.Store.ListMappings(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mappings":  mappings,
		"page":      page,
		"page_size": pageSize,
	})
}

func (a *API) handleIndustries(w http.ResponseWriter, r *http.Request) {
	if a.Industries != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"industries":  a.Industries.Active(),
			"last_loaded": a.Industries.LastLoad(),
		})
		return
	}
	industries, err := a.Store.ListActiveIndustries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"industries": industries})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError 按错误种类映射HTTP状态码
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, market.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, market.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
