package flow

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"flowquant/market"
)

func TestComputeAggregateEmptyCode(t *testing.T) {
	agg := NewAggregator(newTestStore(t), 0)
	_, err := agg.ComputeAggregate(context.Background(), "  ")
	if !errors.Is(err, market.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestComputeAggregateNoRecords(t *testing.T) {
	agg := NewAggregator(newTestStore(t), 0)
	result, err := agg.ComputeAggregate(context.Background(), "600000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalNetFlow != 0 || result.AvgNetFlow != 0 || result.FlowRatio != 0 ||
		result.RecentFlow != 0 || result.FlowDays != 0 || result.PredictionScore != 0 {
		t.Fatalf("expected all-zero aggregate, got %+v", result)
	}
}

func TestComputeAggregateExample(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	today := time.Now()

	for i, net := range []float64{100, 200, 300} {
		rec := market.FlowRecord{
			Code:          "600519",
			TradeDate:     today.AddDate(0, 0, i-2),
			MainNetInflow: net,
		}
		if err := store.SaveFlowRecord(ctx, rec); err != nil {
			t.Fatalf("save record: %v", err)
		}
	}

	agg := NewAggregator(store, 0)
	result, err := agg.ComputeAggregate(ctx, "600519")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FlowDays != 3 {
		t.Errorf("flow_days = %d, want 3", result.FlowDays)
	}
	if result.TotalNetFlow != 600 {
		t.Errorf("total_net_flow = %v, want 600", result.TotalNetFlow)
	}
	if result.AvgNetFlow != 200 {
		t.Errorf("avg_net_flow = %v, want 200", result.AvgNetFlow)
	}
	if result.FlowRatio != 0.02 {
		t.Errorf("flow_ratio = %v, want 0.02", result.FlowRatio)
	}
	if result.RecentFlow != 600 {
		t.Errorf("recent_flow = %v, want 600 (all records within 7 days)", result.RecentFlow)
	}
	want := 200.0 / 1e6 * 0.02 * 0.5
	if math.Abs(result.PredictionScore-want) > 1e-12 {
		t.Errorf("prediction_score = %v, want %v", result.PredictionScore, want)
	}
}

func TestComputeAggregateSuffixedCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := market.FlowRecord{Code: "600519", TradeDate: time.Now(), MainNetInflow: 500}
	if err := store.SaveFlowRecord(ctx, rec); err != nil {
		t.Fatalf("save record: %v", err)
	}

	agg := NewAggregator(store, 0)
	result, err := agg.ComputeAggregate(ctx, "600519.SH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FlowDays != 1 || result.TotalNetFlow != 500 {
		t.Fatalf("suffixed lookup missed bare-code records: %+v", result)
	}
}

func TestComputeAggregateRecentWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	today := time.Now()

	// 窗口外的旧记录计入总量但不计入近期
	old := market.FlowRecord{Code: "000001", TradeDate: today.AddDate(0, 0, -20), MainNetInflow: 1000}
	recent := market.FlowRecord{Code: "000001", TradeDate: today.AddDate(0, 0, -1), MainNetInflow: 50}
	if err := store.SaveFlowRecord(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveFlowRecord(ctx, recent); err != nil {
		t.Fatal(err)
	}

	agg := NewAggregator(store, 0)
	result, err := agg.ComputeAggregate(ctx, "000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalNetFlow != 1050 {
		t.Errorf("total_net_flow = %v, want 1050", result.TotalNetFlow)
	}
	if result.RecentFlow != 50 {
		t.Errorf("recent_flow = %v, want 50", result.RecentFlow)
	}
}

func TestScoreBounds(t *testing.T) {
	cases := []struct {
		avg, ratio float64
	}{
		{0, 0},
		{200, 0.02},
		{1e12, 1e8},
		{-1e12, 1e8},
		{1e12, -1e8},
		{math.NaN(), 0.5},
		{0.5, math.NaN()},
		{math.Inf(1), math.Inf(1)},
		{math.Inf(-1), 1},
	}
	for _, c := range cases {
		score := Score(c.avg, c.ratio)
		if score < 0 || score > 1 || math.IsNaN(score) {
			t.Errorf("Score(%v, %v) = %v, out of [0,1]", c.avg, c.ratio, score)
		}
	}
}

func TestScoreMonotone(t *testing.T) {
	low := Score(100, 0.01)
	high := Score(1000, 0.01)
	if high < low {
		t.Fatalf("score must not decrease with avg flow: %v < %v", high, low)
	}
}

func TestScoreExtremeClampsToOne(t *testing.T) {
	if got := Score(1e12, 1e8); got != 1 {
		t.Fatalf("extreme input must clamp to 1, got %v", got)
	}
	if got := Score(-1e12, 1e8); got != 0 {
		t.Fatalf("negative product must clamp to 0, got %v", got)
	}
}
