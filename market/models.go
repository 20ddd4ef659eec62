package market

import "time"

// FlowRecord 单只股票单个交易日的资金流水事实，写入后不再修改
type FlowRecord struct {
	Code           string    `json:"code"`
	TradeDate      time.Time `json:"trade_date"`
	Close          float64   `json:"close"`
	Change         float64   `json:"change"`
	ChangeRatio    float64   `json:"change_ratio"`
	TurnoverAmount float64   `json:"turnover_amount"`
	TurnoverVolume int64     `json:"turnover_volume"`

	// 分级净流入（超大单+大单 = 主力）
	SuperNetInflow  float64 `json:"super_net_inflow"`
	LargeNetInflow  float64 `json:"large_net_inflow"`
	MediumNetInflow float64 `json:"medium_net_inflow"`
	SmallNetInflow  float64 `json:"small_net_inflow"`
	MainNetInflow   float64 `json:"main_net_inflow"`
	MainInflow      float64 `json:"main_inflow"`
	MainOutflow     float64 `json:"main_outflow"`

	InstitutionNetInflow float64 `json:"institution_net_inflow"`
	RetailNetInflow      float64 `json:"retail_net_inflow"`
	NorthboundNetInflow  float64 `json:"northbound_net_inflow"`
	SouthboundNetInflow  float64 `json:"southbound_net_inflow"`
}

// MappingStatus 行业归属状态
type MappingStatus string

const (
	StatusMapped   MappingStatus = "mapped"
	StatusUnmapped MappingStatus = "unmapped"
)

// StockMapping 股票到行业的归属，附带缓存的资金流摘要字段。
// 摘要字段可能为空（从未刷新过），排序时按字段过滤空值。
type StockMapping struct {
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	MarketType    string        `json:"market_type"`
	IndustryCode  string        `json:"industry_code"`
	IndustryName  string        `json:"industry_name"`
	MappingStatus MappingStatus `json:"mapping_status"`

	DailyNetInflow   *float64  `json:"daily_net_inflow"`
	NetInflowRatio   *float64  `json:"net_inflow_ratio"`
	RecentVolatility *float64  `json:"recent_volatility"`
	Latest7dInflow   *float64  `json:"latest_7d_inflow"`
	TotalMarketValue *float64  `json:"total_market_value"`
	LastUpdated      time.Time `json:"last_updated"`
}

// IndustryClassification 行业分类，level 由代码前缀长度推导（1..3）
type IndustryClassification struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	ParentCode string `json:"parent_code"`
	IsActive   bool   `json:"is_active"`
}

// Aggregate 单只股票的资金流聚合结果
type Aggregate struct {
	Code            string  `json:"code"`
	TotalNetFlow    float64 `json:"total_net_flow"`
	AvgNetFlow      float64 `json:"avg_net_flow"`
	FlowRatio       float64 `json:"flow_ratio"`
	RecentFlow      float64 `json:"recent_flow"`
	FlowDays        int     `json:"flow_days"`
	PredictionScore float64 `json:"prediction_score"`
}

// RankEntry 股票排行榜条目，Rank 从1开始
type RankEntry struct {
	Rank           int      `json:"rank"`
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	IndustryName   string   `json:"industry_name"`
	MarketType     string   `json:"market_type"`
	DailyNetInflow float64  `json:"daily_net_inflow"`
	Latest7dInflow *float64 `json:"latest_7d_inflow"`
	NetInflowRatio *float64 `json:"net_inflow_ratio"`
}

// IndustryRankEntry 行业排行榜条目
type IndustryRankEntry struct {
	Rank         int     `json:"rank"`
	IndustryName string  `json:"industry_name"`
	StockCount   int     `json:"stock_count"`
	TotalInflow  float64 `json:"total_inflow"`
	AvgInflow    float64 `json:"avg_inflow"`
}

// TrendPoint 单日资金流趋势点。Synthetic 为 true 表示该日没有真实
// 聚合数据，数值由占位模型生成，不可作为权威数据使用。
type TrendPoint struct {
	Date         time.Time `json:"date"`
	TotalInflow  float64   `json:"total_inflow"`
	TotalOutflow float64   `json:"total_outflow"`
	NetInflow    float64   `json:"net_inflow"`
	Synthetic    bool      `json:"synthetic"`
}

// RefreshError 单只股票刷新失败记录
type RefreshError struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// RefreshResult 一次全量刷新的结果，Errors 非空表示部分失败
type RefreshResult struct {
	UpdatedCount int            `json:"updated_count"`
	Errors       []RefreshError `json:"errors"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}
