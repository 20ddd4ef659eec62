package flow

import (
	"context"
	"fmt"

	"flowquant/db"
	"flowquant/market"
)

// 排行窗口与方向的合法取值
const (
	WindowDaily  = "daily"
	WindowWeekly = "weekly"
	OrderAsc     = "asc"
	OrderDesc    = "desc"
)

// Ranker 产出股票和行业两个维度的排行榜
type Ranker struct {
	store *db.Store
}

// NewRanker 创建排行服务
func NewRanker(store *db.Store) *Ranker {
	return &Ranker{store: store}
}

// RankStocks 按窗口字段排序取前 N。窗口 daily 用 daily_net_inflow，
// weekly 用 latest_7d_inflow；该字段为空的股票不参与。
// limit <= 0 返回空表；window/order 非法返回 ErrInvalidArgument。
func (r *Ranker) RankStocks(ctx context.Context, window, order string, limit int) ([]market.RankEntry, error) {
	if window != WindowDaily && window != WindowWeekly {
		return nil, fmt.Errorf("window %q: %w", window, market.ErrInvalidArgument)
	}
	desc, err := parseOrder(order)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []market.RankEntry{}, nil
	}

	mappings, err := r.store.TopMappings(ctx, window, desc, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]market.RankEntry, 0, len(mappings))
	for i, m := range mappings {
		entry := market.RankEntry{
			Rank:           i + 1,
			Code:           m.Code,
			Name:           m.Name,
			IndustryName:   m.IndustryName,
			MarketType:     m.MarketType,
			Latest7dInflow: m.Latest7dInflow,
			NetInflowRatio: m.NetInflowRatio,
		}
		if m.DailyNetInflow != nil {
			entry.DailyNetInflow = *m.DailyNetInflow
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RankIndustries 按行业合计 daily_net_inflow 排序取前 N
func (r *Ranker) RankIndustries(ctx context.Context, order string, limit int) ([]market.IndustryRankEntry, error) {
	desc, err := parseOrder(order)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []market.IndustryRankEntry{}, nil
	}

	totals, err := r.store.IndustryTotals(ctx, desc, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]market.IndustryRankEntry, 0, len(totals))
	for i, t := range totals {
		entries = append(entries, market.IndustryRankEntry{
			Rank:         i + 1,
			IndustryName: t.IndustryName,
			StockCount:   t.StockCount,
			TotalInflow:  t.TotalInflow,
			AvgInflow:    t.AvgInflow,
		})
	}
	return entries, nil
}

func parseOrder(order string) (desc bool, err error) {
	switch order {
	case OrderAsc:
		return false, nil
	case OrderDesc:
		return true, nil
	default:
		return false, fmt.Errorf("order %q: %w", order, market.ErrInvalidArgument)
	}
}
