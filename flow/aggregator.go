// Package flow 实现资金流聚合、评分、排行、趋势与刷新
package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flowquant/db"
	"flowquant/market"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// recentWindowDays 近期流入的回看窗口（含当天的自然日）
const recentWindowDays = 7

// flowRatioScale 流入比例的固定缩放常数，不是百分比
const flowRatioScale = 10_000

// Aggregator 从原始流水计算单只股票的聚合指标。
// 纯读取计算，结果带短 TTL 缓存，避免看板高频重复聚合。
type Aggregator struct {
	store *db.Store
	cache *expirable.LRU[string, market.Aggregate]
	now   func() time.Time
}

// NewAggregator 创建聚合器，cacheTTL <= 0 时用 30 秒
func NewAggregator(store *db.Store, cacheTTL time.Duration) *Aggregator {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Aggregator{
		store: store,
		cache: expirable.NewLRU[string, market.Aggregate](1024, nil, cacheTTL),
		now:   time.Now,
	}
}

// ComputeAggregate 计算一只股票的聚合指标和预测分。
// 没有任何流水时所有数值为 0，不报错。
func (a *Aggregator) ComputeAggregate(ctx context.Context, code string) (market.Aggregate, error) {
	if strings.TrimSpace(code) == "" {
		return market.Aggregate{}, fmt.Errorf("stock code required: %w", market.ErrInvalidArgument)
	}

	key := market.NormalizeCode(code)
	if cached, ok := a.cache.Get(key); ok {
		return cached, nil
	}

	records, err := a.store.FlowRecords(ctx, key, time.Time{}, time.Time{})
	if err != nil {
		return market.Aggregate{}, err
	}

	agg := market.Aggregate{Code: key}
	now := a.now()
	cutoff := startOfDay(now).AddDate(0, 0, -(recentWindowDays - 1))

	for _, rec := range records {
		agg.TotalNetFlow += rec.MainNetInflow
		if !rec.TradeDate.Before(cutoff) && !rec.TradeDate.After(now) {
			agg.RecentFlow += rec.MainNetInflow
		}
	}
	agg.FlowDays = len(records)
	if agg.FlowDays > 0 {
		agg.AvgNetFlow = agg.TotalNetFlow / float64(agg.FlowDays)
	}
	agg.FlowRatio = agg.AvgNetFlow / flowRatioScale
	agg.PredictionScore = Score(agg.AvgNetFlow, agg.FlowRatio)

	a.cache.Add(key, agg)
	return agg, nil
}

// Invalidate 丢弃一只股票的缓存结果
func (a *Aggregator) Invalidate(code string) {
	a.cache.Remove(market.NormalizeCode(code))
}

// InvalidateAll 清空缓存，批量写入流水后调用
func (a *Aggregator) InvalidateAll() {
	a.cache.Purge()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
