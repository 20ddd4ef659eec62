// Package db 提供 SQLite 持久层
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flowquant/market"

	_ "github.com/mattn/go-sqlite3"
)

// Config 存储配置
type Config struct {
	Path         string        `yaml:"path"`
	EnableWAL    bool          `yaml:"enable_wal"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// Store 资金流数据存储。所有方法都带 context，未设超时的调用
// 使用 QueryTimeout 兜底，存储层故障统一映射成 ErrStorageUnavailable。
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// Open 打开数据库并建表
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := cfg.Path
	if cfg.EnableWAL {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	} else {
		dsn += "?_busy_timeout=5000"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	s := &Store{db: sqlDB, timeout: timeout}
	if err := s.createTables(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return s, nil
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	query := `
    CREATE TABLE IF NOT EXISTS flow_records (
        code VARCHAR(20) NOT NULL,
        trade_date TEXT NOT NULL,
        close REAL,
        change REAL,
        change_ratio REAL,
        turnover_amount REAL,
        turnover_volume INTEGER,
        super_net_inflow REAL,
        large_net_inflow REAL,
        medium_net_inflow REAL,
        small_net_inflow REAL,
        main_net_inflow REAL,
        main_inflow REAL,
        main_outflow REAL,
        institution_net_inflow REAL,
        retail_net_inflow REAL,
        northbound_net_inflow REAL,
        southbound_net_inflow REAL,
        PRIMARY KEY(code, trade_date)
    );
    CREATE INDEX IF NOT EXISTS idx_flow_records_date ON flow_records(trade_date);
    CREATE TABLE IF NOT EXISTS stock_mappings (
        code VARCHAR(20) PRIMARY KEY,
        name TEXT,
        market_type VARCHAR(10),
        industry_code VARCHAR(20),
        industry_name TEXT,
        mapping_status VARCHAR(10) NOT NULL DEFAULT 'unmapped',
        daily_net_inflow REAL,
        net_inflow_ratio REAL,
        recent_volatility REAL,
        latest_7d_inflow REAL,
        total_market_value REAL,
        last_updated DATETIME
    );
    CREATE INDEX IF NOT EXISTS idx_stock_mappings_industry ON stock_mappings(industry_name);
    CREATE TABLE IF NOT EXISTS industries (
        code VARCHAR(20) PRIMARY KEY,
        name TEXT NOT NULL,
        level INTEGER NOT NULL DEFAULT 1,
        parent_code VARCHAR(20),
        is_active INTEGER NOT NULL DEFAULT 1
    );
    `
	_, err := s.db.Exec(query)
	return err
}

// withTimeout 给没有期限的 context 补默认超时
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// wrapErr 把超时和连接类错误归一成可重试的 ErrStorageUnavailable
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %v", op, market.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

const dateLayout = "2006-01-02"
