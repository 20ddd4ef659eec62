package flow

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"flowquant/db"
	"flowquant/market"

	"go.uber.org/zap"
)

// Seeder 演示数据装载器。没有真实行情源时向存储写入一套
// 可用的行业分类、股票映射和历史流水。显式对象持有状态，
// 生命周期是 Initialize 一次、之后由 Refresher 持续演化。
type Seeder struct {
	store *db.Store
	agg   *Aggregator
	log   *zap.Logger
	rnd   *rand.Rand
	days  int
}

// NewSeeder 创建装载器，days 为生成的流水天数
func NewSeeder(store *db.Store, agg *Aggregator, logger *zap.Logger, days int) *Seeder {
	if days <= 0 {
		days = 30
	}
	return &Seeder{
		store: store,
		agg:   agg,
		log:   logger,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		days:  days,
	}
}

type seedStock struct {
	code      string // 映射表用带后缀的代码
	name      string
	industry  string
	basePrice float64
}

// 演示用行业分类，申万一级口径
var seedIndustries = []market.IndustryClassification{
	{Code: "801780", Name: "银行", Level: 1, IsActive: true},
	{Code: "801790", Name: "非银金融", Level: 1, IsActive: true},
	{Code: "801120", Name: "食品饮料", Level: 1, IsActive: true},
	{Code: "801150", Name: "医药生物", Level: 1, IsActive: true},
	{Code: "801730", Name: "电力设备", Level: 1, IsActive: true},
	{Code: "801080", Name: "电子", Level: 1, IsActive: true},
	{Code: "801880", Name: "汽车", Level: 1, IsActive: true},
	{Code: "801890", Name: "机械设备", Level: 1, IsActive: true},
	{Code: "801110", Name: "家用电器", Level: 1, IsActive: true},
	{Code: "801180", Name: "房地产", Level: 1, IsActive: true},
	{Code: "801170", Name: "交通运输", Level: 1, IsActive: true},
	{Code: "801160", Name: "公用事业", Level: 1, IsActive: true},
}

var seedStocks = []seedStock{
	{"600000.SH", "浦发银行", "银行", 7.50},
	{"601398.SH", "工商银行", "银行", 5.20},
	{"600036.SH", "招商银行", "银行", 32.00},
	{"601166.SH", "兴业银行", "银行", 16.50},
	{"000001.SZ", "平安银行", "银行", 12.50},
	{"601318.SH", "中国平安", "非银金融", 45.00},
	{"600030.SH", "中信证券", "非银金融", 20.00},
	{"601336.SH", "新华保险", "非银金融", 32.00},
	{"300059.SZ", "东方财富", "非银金融", 15.00},
	{"600519.SH", "贵州茅台", "食品饮料", 1800.00},
	{"000858.SZ", "五粮液", "食品饮料", 150.00},
	{"600887.SH", "伊利股份", "食品饮料", 30.00},
	{"600276.SH", "恒瑞医药", "医药生物", 45.00},
	{"300760.SZ", "迈瑞医疗", "医药生物", 280.00},
	{"000963.SZ", "华东医药", "医药生物", 42.00},
	{"300750.SZ", "宁德时代", "电力设备", 180.00},
	{"601012.SH", "隆基绿能", "电力设备", 22.00},
	{"002415.SZ", "海康威视", "电子", 32.00},
	{"002594.SZ", "比亚迪", "汽车", 250.00},
	{"601766.SH", "中国中车", "机械设备", 7.50},
	{"600031.SH", "三一重工", "机械设备", 16.00},
	{"000333.SZ", "美的集团", "家用电器", 65.00},
	{"000651.SZ", "格力电器", "家用电器", 35.00},
	{"600690.SH", "海尔智家", "家用电器", 22.00},
	{"601668.SH", "中国建筑", "房地产", 5.80},
	{"601888.SH", "中国中免", "交通运输", 85.00},
	{"600900.SH", "长江电力", "公用事业", 24.00},
	{"601985.SH", "中国核电", "公用事业", 6.50},
	{"600028.SH", "中国石化", "公用事业", 6.50},
	{"600019.SH", "宝钢股份", "机械设备", 6.20},
}

// Initialize 写入行业、映射和流水，可重复执行（覆盖旧值）
func (s *Seeder) Initialize(ctx context.Context) error {
	industryCodes := make(map[string]string, len(seedIndustries))
	for _, ind := range seedIndustries {
		if err := s.store.SaveIndustry(ctx, ind); err != nil {
			return fmt.Errorf("seed industry %s: %w", ind.Name, err)
		}
		industryCodes[ind.Name] = ind.Code
	}

	for _, stock := range seedStocks {
		mapping := market.StockMapping{
			Code:          stock.code,
			Name:          stock.name,
			MarketType:    market.MarketType(stock.code),
			IndustryCode:  industryCodes[stock.industry],
			IndustryName:  stock.industry,
			MappingStatus: market.StatusMapped,
		}
		if err := s.store.SaveMapping(ctx, mapping); err != nil {
			return fmt.Errorf("seed mapping %s: %w", stock.code, err)
		}
		if err := s.seedFlowHistory(ctx, stock); err != nil {
			return fmt.Errorf("seed flow history %s: %w", stock.code, err)
		}
	}

	s.agg.InvalidateAll()
	s.log.Info("demo data seeded",
		zap.Int("industries", len(seedIndustries)),
		zap.Int("stocks", len(seedStocks)),
		zap.Int("days", s.days))
	return nil
}

// seedFlowHistory 用随机游走生成一段日度流水，流水键用裸代码
func (s *Seeder) seedFlowHistory(ctx context.Context, stock seedStock) error {
	price := stock.basePrice
	today := time.Now()

	for i := s.days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)

		changeRatio := (s.rnd.Float64() - 0.48) * 0.08
		closePrice := price * (1 + changeRatio)
		change := closePrice - price

		volume := int64(s.rnd.Float64() * 10_000_000)
		turnover := closePrice * float64(volume)

		mainInflow := turnover * (0.1 + s.rnd.Float64()*0.2)
		mainOutflow := turnover * (0.1 + s.rnd.Float64()*0.2)
		mainNet := mainInflow - mainOutflow
		superNet := mainNet * 0.6
		largeNet := mainNet - superNet

		rec := market.FlowRecord{
			Code:            market.NormalizeCode(stock.code),
			TradeDate:       date,
			Close:           closePrice,
			Change:          change,
			ChangeRatio:     changeRatio * 100,
			TurnoverAmount:  turnover,
			TurnoverVolume:  volume,
			SuperNetInflow:  superNet,
			LargeNetInflow:  largeNet,
			MediumNetInflow: mainNet * -0.3,
			SmallNetInflow:  mainNet * -0.2,
			MainNetInflow:   mainNet,
			MainInflow:      mainInflow,
			MainOutflow:     mainOutflow,

			InstitutionNetInflow: mainNet * 0.4,
			RetailNetInflow:      mainNet * -0.5,
			NorthboundNetInflow:  mainNet * 0.1,
			SouthboundNetInflow:  0,
		}
		if err := s.store.SaveFlowRecord(ctx, rec); err != nil {
			return err
		}
		price = closePrice
	}
	return nil
}
