package flow

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"flowquant/db"
	"flowquant/market"
)

// TrendGenerator 生成按日的资金流趋势序列。有真实流水合计的日期
// 用真实数据，缺口用占位模型补齐并打上 Synthetic 标记，
// 补出来的数值只用于图表演示，不可当权威数据。
type TrendGenerator struct {
	store *db.Store
	mu    sync.Mutex
	rnd   *rand.Rand
	now   func() time.Time
}

// NewTrendGenerator 创建趋势生成器
func NewTrendGenerator(store *db.Store) *TrendGenerator {
	return &TrendGenerator{
		store: store,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// Trend 返回 [今天-(days-1), 今天] 闭区间内每天一个点，
// days < 1 返回 ErrInvalidArgument
func (g *TrendGenerator) Trend(ctx context.Context, days int) ([]market.TrendPoint, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be >= 1, got %d: %w", days, market.ErrInvalidArgument)
	}

	today := startOfDay(g.now())
	from := today.AddDate(0, 0, -(days - 1))

	totals, err := g.store.DailyTotals(ctx, from, today)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]db.DailyTotal, len(totals))
	for _, t := range totals {
		byDate[t.Date.Format("2006-01-02")] = t
	}

	points := make([]market.TrendPoint, 0, days)
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i)
		if t, ok := byDate[date.Format("2006-01-02")]; ok {
			points = append(points, market.TrendPoint{
				Date:         date,
				TotalInflow:  round2(t.TotalInflow),
				TotalOutflow: round2(t.TotalOutflow),
				NetInflow:    round2(t.TotalInflow) - round2(t.TotalOutflow),
			})
			continue
		}
		points = append(points, g.syntheticPoint(date))
	}
	return points, nil
}

// syntheticPoint 占位模型：base ∈ uniform(50k,250k)-100k，
// 流入为 base 加 ±25k 噪声，流出为 |base|*0.8 加 ±15k 噪声
func (g *TrendGenerator) syntheticPoint(date time.Time) market.TrendPoint {
	g.mu.Lock()
	base := g.rnd.Float64()*200_000 + 50_000 - 100_000
	inflow := round2(base + (g.rnd.Float64()*50_000 - 25_000))
	outflow := round2(math.Abs(base)*0.8 + (g.rnd.Float64()*30_000 - 15_000))
	g.mu.Unlock()

	return market.TrendPoint{
		Date:         date,
		TotalInflow:  inflow,
		TotalOutflow: outflow,
		NetInflow:    inflow - outflow,
		Synthetic:    true,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
