package db

import (
	"context"

	"flowquant/market"
)

// SaveIndustry 新增或覆盖一条行业分类
func (s *Store) SaveIndustry(ctx context.Context, ind market.IndustryClassification) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	active := 0
	if ind.IsActive {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO industries (code, name, level, parent_code, is_active)
        VALUES (?, ?, ?, ?, ?)`,
		ind.Code, ind.Name, ind.Level, ind.ParentCode, active)
	return wrapErr("save industry", err)
}

// ListActiveIndustries 返回所有启用的行业分类，按代码升序
func (s *Store) ListActiveIndustries(ctx context.Context) ([]market.IndustryClassification, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
        SELECT code, name, level, parent_code, is_active
        FROM industries
        WHERE is_active = 1
        ORDER BY code ASC`)
	if err != nil {
		return nil, wrapErr("list industries", err)
	}
	defer rows.Close()

	var industries []market.IndustryClassification
	for rows.Next() {
		var ind market.IndustryClassification
		var active int
		if err := rows.Scan(&ind.Code, &ind.Name, &ind.Level, &ind.ParentCode, &active); err != nil {
			return nil, wrapErr("scan industry", err)
		}
		ind.IsActive = active == 1
		industries = append(industries, ind)
	}
	return industries, wrapErr("list industries", rows.Err())
}
