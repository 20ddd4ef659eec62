package flow

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"flowquant/db"
	"flowquant/market"

	"go.uber.org/zap"
)

// 刷新时单只股票摘要字段的扰动边界。
// 没有实时行情源，用有界随机扰动模拟市场变化。
const (
	dailyInflowMin     = -10_000
	dailyInflowMax     = 50_000
	inflowRatioMin     = -0.05
	inflowRatioMax     = 0.08
	volatilityMin      = 0.01
	volatilityMax      = 0.08
	marketValueDelta   = 0.05 // 总市值单次最多 ±5%
	defaultMarketValue = 5_000_000_000
)

// Refresher 全量刷新器，映射表摘要字段的唯一写入方。
// 同一时刻只有一轮刷新在跑，每只股票单独提交，
// 中途失败只影响失败的那一行。
type Refresher struct {
	store *db.Store
	agg   *Aggregator
	log   *zap.Logger

	runMu sync.Mutex // 串行化刷新轮次

	mu       sync.Mutex
	running  bool
	interval time.Duration
	ticker   *time.Ticker
	ctx      context.Context
	cancel   context.CancelFunc
	rnd      *rand.Rand
}

// NewRefresher 创建刷新器，interval <= 0 时禁用周期刷新（仍可手动触发）
func NewRefresher(store *db.Store, agg *Aggregator, logger *zap.Logger, interval time.Duration) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		store:    store,
		agg:      agg,
		log:      logger,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RefreshAll 重算所有已映射股票的摘要字段并逐行写回。
// 单只股票失败记入 Errors 并继续，不会中断整轮；
// Errors 非空时返回 ErrPartialRefresh，结果仍然有效。
func (r *Refresher) RefreshAll(ctx context.Context) (market.RefreshResult, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	result := market.RefreshResult{StartedAt: time.Now()}

	codes, err := r.store.ListMappedCodes(ctx)
	if err != nil {
		return result, err
	}

	for _, code := range codes {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, market.RefreshError{
				Code: code, Reason: "refresh canceled before this stock",
			})
			r.log.Warn("refresh canceled midway",
				zap.String("code", code), zap.Int("updated", result.UpdatedCount))
			break
		}
		if err := r.refreshOne(ctx, code); err != nil {
			result.Errors = append(result.Errors, market.RefreshError{
				Code: code, Reason: err.Error(),
			})
			r.log.Error("refresh stock failed", zap.String("code", code), zap.Error(err))
			continue
		}
		result.UpdatedCount++
	}

	result.FinishedAt = time.Now()
	r.log.Info("refresh completed",
		zap.Int("updated", result.UpdatedCount),
		zap.Int("failed", len(result.Errors)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))

	if len(result.Errors) > 0 {
		return result, fmt.Errorf("%d of %d stocks failed: %w",
			len(result.Errors), len(codes), market.ErrPartialRefresh)
	}
	return result, nil
}

// refreshOne 聚合一只股票并以扰动后的摘要单行提交
func (r *Refresher) refreshOne(ctx context.Context, code string) error {
	mapping, err := r.store.GetMapping(ctx, code)
	if err != nil {
		return err
	}

	agg, err := r.agg.ComputeAggregate(ctx, code)
	if err != nil {
		return err
	}

	daily := clamp(agg.AvgNetFlow+r.uniform(dailyInflowMin, dailyInflowMax),
		dailyInflowMin, dailyInflowMax)
	ratio := clamp(agg.FlowRatio/100+r.uniform(inflowRatioMin, inflowRatioMax),
		inflowRatioMin, inflowRatioMax)
	weekly := daily*7 + r.uniform(-5_000, 5_000)

	prior := float64(defaultMarketValue)
	if mapping.TotalMarketValue != nil {
		prior = *mapping.TotalMarketValue
	}
	marketValue := prior * (1 + r.uniform(-marketValueDelta, marketValueDelta))

	update := db.SummaryUpdate{
		DailyNetInflow:   daily,
		NetInflowRatio:   ratio,
		RecentVolatility: r.uniform(volatilityMin, volatilityMax),
		Latest7dInflow:   weekly,
		TotalMarketValue: marketValue,
	}
	return r.store.UpdateSummary(ctx, code, update, time.Now())
}

// Start 启动周期刷新循环
func (r *Refresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("refresher is already running")
	}
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval not configured")
	}

	r.running = true
	r.ticker = time.NewTicker(r.interval)
	go r.run()

	r.log.Info("refresher started", zap.Duration("interval", r.interval))
	return nil
}

// Stop 停止周期刷新循环
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	r.cancel()
	r.log.Info("refresher stopped")
}

func (r *Refresher) run() {
	for {
		select {
		case <-r.ticker.C:
			if _, err := r.RefreshAll(r.ctx); err != nil {
				r.log.Warn("scheduled refresh finished with errors", zap.Error(err))
			}
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Refresher) uniform(min, max float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + r.rnd.Float64()*(max-min)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
