package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"flowquant/market"
)

// 排序键白名单。排行请求只允许引用这里列出的逻辑键，
// 拼 ORDER BY 之前先查表，调用方字符串绝不直接进 SQL。
var sortColumns = map[string]string{
	"daily":            "daily_net_inflow",
	"weekly":           "latest_7d_inflow",
	"code":             "code",
	"market_value":     "total_market_value",
	"net_inflow_ratio": "net_inflow_ratio",
}

const mappingColumns = `
    code, name, market_type, industry_code, industry_name, mapping_status,
    daily_net_inflow, net_inflow_ratio, recent_volatility,
    latest_7d_inflow, total_market_value, last_updated`

// SaveMapping 新增或整行覆盖一条股票映射
func (s *Store) SaveMapping(ctx context.Context, m market.StockMapping) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	status := m.MappingStatus
	if status == "" {
		status = market.StatusUnmapped
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO stock_mappings (
            code, name, market_type, industry_code, industry_name, mapping_status,
            daily_net_inflow, net_inflow_ratio, recent_volatility,
            latest_7d_inflow, total_market_value, last_updated
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Code, m.Name, m.MarketType, m.IndustryCode, m.IndustryName, string(status),
		nullFloat(m.DailyNetInflow), nullFloat(m.NetInflowRatio), nullFloat(m.RecentVolatility),
		nullFloat(m.Latest7dInflow), nullFloat(m.TotalMarketValue), nullTime(m.LastUpdated))
	return wrapErr("save mapping", err)
}

// GetMapping 查单条映射，不存在返回 ErrNotFound
func (s *Store) GetMapping(ctx context.Context, code string) (*market.StockMapping, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT"+mappingColumns+" FROM stock_mappings WHERE code = ?", code)
	m, err := scanMapping(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("mapping %s: %w", code, market.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get mapping", err)
	}
	return m, nil
}

// MappingFilter 列表过滤条件，零值表示不过滤
type MappingFilter struct {
	Status       market.MappingStatus
	IndustryCode string
	Keyword      string // 代码或名称模糊匹配
}

// ListMappings 分页查映射，page 从1开始
func (s *Store) ListMappings(ctx context.Context, filter MappingFilter, page, pageSize int) ([]market.StockMapping, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	var conds []string
	var args []interface{}
	if filter.Status != "" {
		conds = append(conds, "mapping_status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.IndustryCode != "" {
		conds = append(conds, "industry_code = ?")
		args = append(args, filter.IndustryCode)
	}
	if filter.Keyword != "" {
		conds = append(conds, "(code LIKE ? OR name LIKE ?)")
		kw := "%" + filter.Keyword + "%"
		args = append(args, kw, kw)
	}

	query := "SELECT" + mappingColumns + " FROM stock_mappings"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY code ASC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list mappings", err)
	}
	defer rows.Close()
	return collectMappings(rows)
}

// ListMappedCodes 返回所有已映射股票的代码，刷新器的工作清单
func (s *Store) ListMappedCodes(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code FROM stock_mappings WHERE mapping_status = ? ORDER BY code ASC",
		string(market.StatusMapped))
	if err != nil {
		return nil, wrapErr("list mapped codes", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, wrapErr("scan code", err)
		}
		codes = append(codes, code)
	}
	return codes, wrapErr("list mapped codes", rows.Err())
}

// SummaryUpdate 一次刷新要写回的摘要字段
type SummaryUpdate struct {
	DailyNetInflow   float64
	NetInflowRatio   float64
	RecentVolatility float64
	Latest7dInflow   float64
	TotalMarketValue float64
}

// UpdateSummary 单行事务写回摘要字段。一行要么整体更新成功，
// 要么保持旧值，并发读取方看不到半写状态。
func (s *Store) UpdateSummary(ctx context.Context, code string, u SummaryUpdate, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
        UPDATE stock_mappings SET
            daily_net_inflow = ?, net_inflow_ratio = ?, recent_volatility = ?,
            latest_7d_inflow = ?, total_market_value = ?, last_updated = ?
        WHERE code = ?`,
		u.DailyNetInflow, u.NetInflowRatio, u.RecentVolatility,
		u.Latest7dInflow, u.TotalMarketValue, at, code)
	if err != nil {
		return wrapErr("update summary", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mapping %s: %w", code, market.ErrNotFound)
	}
	return nil
}

// TopMappings 按白名单排序键取前 N 行，排序字段为 NULL 的行不参与。
// 相同值按代码升序，保证重复执行结果稳定。
func (s *Store) TopMappings(ctx context.Context, sortKey string, desc bool, limit int) ([]market.StockMapping, error) {
	column, ok := sortColumns[sortKey]
	if !ok {
		return nil, fmt.Errorf("sort key %q: %w", sortKey, market.ErrInvalidArgument)
	}
	if limit <= 0 {
		return nil, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	query := fmt.Sprintf(`
        SELECT %s FROM stock_mappings
        WHERE %s IS NOT NULL
        ORDER BY %s %s, code ASC
        LIMIT ?`, mappingColumns, column, column, direction)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, wrapErr("top mappings", err)
	}
	defer rows.Close()
	return collectMappings(rows)
}

// IndustryTotal 行业维度的资金流汇总
type IndustryTotal struct {
	IndustryName string
	StockCount   int
	TotalInflow  float64
	AvgInflow    float64
}

// IndustryTotals 按行业名分组汇总 daily_net_inflow，按合计排序取前 N
func (s *Store) IndustryTotals(ctx context.Context, desc bool, limit int) ([]IndustryTotal, error) {
	if limit <= 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	query := fmt.Sprintf(`
        SELECT industry_name, COUNT(*), SUM(daily_net_inflow), AVG(daily_net_inflow)
        FROM stock_mappings
        WHERE industry_name IS NOT NULL AND industry_name != ''
          AND daily_net_inflow IS NOT NULL
          AND mapping_status = 'mapped'
        GROUP BY industry_name
        ORDER BY SUM(daily_net_inflow) %s, industry_name ASC
        LIMIT ?`, direction)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, wrapErr("industry totals", err)
	}
	defer rows.Close()

	var totals []IndustryTotal
	for rows.Next() {
		var t IndustryTotal
		if err := rows.Scan(&t.IndustryName, &t.StockCount, &t.TotalInflow, &t.AvgInflow); err != nil {
			return nil, wrapErr("scan industry total", err)
		}
		totals = append(totals, t)
	}
	return totals, wrapErr("industry totals", rows.Err())
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMapping(row rowScanner) (*market.StockMapping, error) {
	var m market.StockMapping
	var status string
	var daily, ratio, vol, weekly, mv sql.NullFloat64
	var updated sql.NullTime
	err := row.Scan(&m.Code, &m.Name, &m.MarketType, &m.IndustryCode, &m.IndustryName, &status,
		&daily, &ratio, &vol, &weekly, &mv, &updated)
	if err != nil {
		return nil, err
	}
	m.MappingStatus = market.MappingStatus(status)
	m.DailyNetInflow = floatPtr(daily)
	m.NetInflowRatio = floatPtr(ratio)
	m.RecentVolatility = floatPtr(vol)
	m.Latest7dInflow = floatPtr(weekly)
	m.TotalMarketValue = floatPtr(mv)
	if updated.Valid {
		m.LastUpdated = updated.Time
	}
	return &m, nil
}

func collectMappings(rows *sql.Rows) ([]market.StockMapping, error) {
	var mappings []market.StockMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, wrapErr("scan mapping", err)
		}
		mappings = append(mappings, *m)
	}
	return mappings, wrapErr("collect mappings", rows.Err())
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
