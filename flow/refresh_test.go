package flow

import (
	"context"
	"math"
	"testing"

	"flowquant/db"
	"flowquant/market"

	"go.uber.org/zap"
)

func newTestRefresher(t *testing.T, store *db.Store) *Refresher {
	t.Helper()
	agg := NewAggregator(store, 0)
	return NewRefresher(store, agg, zap.NewNop(), 0)
}

func seedMapped(t *testing.T, store *db.Store, codes ...string) {
	t.Helper()
	for _, code := range codes {
		err := store.SaveMapping(context.Background(), market.StockMapping{
			Code: code, Name: code, MappingStatus: market.StatusMapped,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestRefreshAllUpdatesSummaries(t *testing.T) {
	store := newTestStore(t)
	seedMapped(t, store, "600000.SH", "600036.SH", "000001.SZ")
	r := newTestRefresher(t, store)

	result, err := r.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UpdatedCount != 3 {
		t.Fatalf("updated = %d, want 3", result.UpdatedCount)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}

	for _, code := range []string{"600000.SH", "600036.SH", "000001.SZ"} {
		m, err := store.GetMapping(context.Background(), code)
		if err != nil {
			t.Fatal(err)
		}
		if m.DailyNetInflow == nil || m.Latest7dInflow == nil || m.TotalMarketValue == nil {
			t.Fatalf("%s summary fields not populated: %+v", code, m)
		}
		if *m.DailyNetInflow < -10_000 || *m.DailyNetInflow > 50_000 {
			t.Errorf("%s daily inflow %v outside [-10000, 50000]", code, *m.DailyNetInflow)
		}
		if *m.NetInflowRatio < -0.05 || *m.NetInflowRatio > 0.08 {
			t.Errorf("%s inflow ratio %v outside [-5%%, 8%%]", code, *m.NetInflowRatio)
		}
		if *m.RecentVolatility < 0.01 || *m.RecentVolatility > 0.08 {
			t.Errorf("%s volatility %v outside [1%%, 8%%]", code, *m.RecentVolatility)
		}
		if m.LastUpdated.IsZero() {
			t.Errorf("%s last_updated not set", code)
		}
	}
}

func TestRefreshMarketValueBounded(t *testing.T) {
	store := newTestStore(t)
	seedMapped(t, store, "600519.SH")
	r := newTestRefresher(t, store)
	ctx := context.Background()

	read := func() float64 {
		m, err := store.GetMapping(ctx, "600519.SH")
		if err != nil {
			t.Fatal(err)
		}
		if m.TotalMarketValue == nil {
			t.Fatal("market value not set")
		}
		return *m.TotalMarketValue
	}

	if _, err := r.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}
	v0 := read()
	if _, err := r.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}
	v1 := read()
	if _, err := r.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}
	v2 := read()

	const eps = 1e-9
	if math.Abs(v1-v0)/v0 > 0.05+eps {
		t.Errorf("first refresh moved market value %.4f%%, beyond 5%%", (v1-v0)/v0*100)
	}
	if math.Abs(v2-v1)/v1 > 0.05+eps {
		t.Errorf("second refresh moved market value %.4f%%, beyond 5%%", (v2-v1)/v1*100)
	}
}

func TestRefreshCanceledContext(t *testing.T) {
	store := newTestStore(t)
	seedMapped(t, store, "600000.SH", "600036.SH")
	r := newTestRefresher(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.RefreshAll(ctx)
	if err == nil && len(result.Errors) == 0 {
		// 列表查询本身可能先失败；两种路径都算上报了失败
		t.Fatal("canceled refresh must surface an error or error entries")
	}
	if result.UpdatedCount != 0 {
		t.Fatalf("canceled refresh must not report updates, got %d", result.UpdatedCount)
	}
}

func TestRefreshUnmappedSkipped(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveMapping(context.Background(), market.StockMapping{
		Code: "300750.SZ", MappingStatus: market.StatusUnmapped,
	})
	if err != nil {
		t.Fatal(err)
	}

	r := newTestRefresher(t, store)
	result, err := r.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.UpdatedCount != 0 {
		t.Fatalf("unmapped stocks must not be refreshed, got %d updates", result.UpdatedCount)
	}
}
