package db

import (
	"context"
	"time"

	"flowquant/market"
)

// SaveFlowRecord 写入一条流水，同 (code, trade_date) 重复写入直接覆盖
func (s *Store) SaveFlowRecord(ctx context.Context, rec market.FlowRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO flow_records (
            code, trade_date, close, change, change_ratio,
            turnover_amount, turnover_volume,
            super_net_inflow, large_net_inflow, medium_net_inflow, small_net_inflow,
            main_net_inflow, main_inflow, main_outflow,
            institution_net_inflow, retail_net_inflow,
            northbound_net_inflow, southbound_net_inflow
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		market.NormalizeCode(rec.Code), rec.TradeDate.Format(dateLayout),
		rec.Close, rec.Change, rec.ChangeRatio,
		rec.TurnoverAmount, rec.TurnoverVolume,
		rec.SuperNetInflow, rec.LargeNetInflow, rec.MediumNetInflow, rec.SmallNetInflow,
		rec.MainNetInflow, rec.MainInflow, rec.MainOutflow,
		rec.InstitutionNetInflow, rec.RetailNetInflow,
		rec.NorthboundNetInflow, rec.SouthboundNetInflow)
	return wrapErr("save flow record", err)
}

// FlowRecords 按代码查流水，from/to 为零值时不限一侧，升序返回
func (s *Store) FlowRecords(ctx context.Context, code string, from, to time.Time) ([]market.FlowRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
        SELECT code, trade_date, close, change, change_ratio,
               turnover_amount, turnover_volume,
               super_net_inflow, large_net_inflow, medium_net_inflow, small_net_inflow,
               main_net_inflow, main_inflow, main_outflow,
               institution_net_inflow, retail_net_inflow,
               northbound_net_inflow, southbound_net_inflow
        FROM flow_records
        WHERE code = ?`
	args := []interface{}{market.NormalizeCode(code)}
	if !from.IsZero() {
		query += " AND trade_date >= ?"
		args = append(args, from.Format(dateLayout))
	}
	if !to.IsZero() {
		query += " AND trade_date <= ?"
		args = append(args, to.Format(dateLayout))
	}
	query += " ORDER BY trade_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query flow records", err)
	}
	defer rows.Close()

	var records []market.FlowRecord
	for rows.Next() {
		var rec market.FlowRecord
		var dateStr string
		err := rows.Scan(&rec.Code, &dateStr, &rec.Close, &rec.Change, &rec.ChangeRatio,
			&rec.TurnoverAmount, &rec.TurnoverVolume,
			&rec.SuperNetInflow, &rec.LargeNetInflow, &rec.MediumNetInflow, &rec.SmallNetInflow,
			&rec.MainNetInflow, &rec.MainInflow, &rec.MainOutflow,
			&rec.InstitutionNetInflow, &rec.RetailNetInflow,
			&rec.NorthboundNetInflow, &rec.SouthboundNetInflow)
		if err != nil {
			return nil, wrapErr("scan flow record", err)
		}
		rec.TradeDate, _ = time.ParseInLocation(dateLayout, dateStr, time.Local)
		records = append(records, rec)
	}
	return records, wrapErr("query flow records", rows.Err())
}

// DailyTotal 单日全市场主力流入/流出合计
type DailyTotal struct {
	Date         time.Time
	TotalInflow  float64
	TotalOutflow float64
}

// DailyTotals 按日合计主力流入流出，用于趋势图的真实数据部分
func (s *Store) DailyTotals(ctx context.Context, from, to time.Time) ([]DailyTotal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
        SELECT trade_date, SUM(main_inflow), SUM(main_outflow)
        FROM flow_records
        WHERE trade_date >= ? AND trade_date <= ?
        GROUP BY trade_date
        ORDER BY trade_date ASC`,
		from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, wrapErr("query daily totals", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var t DailyTotal
		var dateStr string
		if err := rows.Scan(&dateStr, &t.TotalInflow, &t.TotalOutflow); err != nil {
			return nil, wrapErr("scan daily total", err)
		}
		t.Date, _ = time.ParseInLocation(dateLayout, dateStr, time.Local)
		totals = append(totals, t)
	}
	return totals, wrapErr("query daily totals", rows.Err())
}
