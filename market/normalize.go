package market

import "strings"

// 交易所后缀。映射表里的代码常带后缀（"600519.SH"），
// 流水表的键是裸代码（"600519"），比对前统一去掉。
var marketSuffixes = []string{".SZ", ".SH", ".BJ"}

// NormalizeCode 去掉交易所后缀并统一大小写，聚合和排行的所有
// 代码比对都必须经过这里。空串原样返回，由调用方拒绝。
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	upper := strings.ToUpper(code)
	for _, suffix := range marketSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return upper[:len(upper)-len(suffix)]
		}
	}
	return upper
}

// MarketType 从代码推断市场类型（SH/SZ/BJ），推断不出返回空串
func MarketType(code string) string {
	upper := strings.ToUpper(strings.TrimSpace(code))
	for _, suffix := range marketSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return suffix[1:]
		}
	}
	bare := NormalizeCode(code)
	switch {
	case strings.HasPrefix(bare, "6"):
		return "SH"
	case strings.HasPrefix(bare, "0"), strings.HasPrefix(bare, "3"):
		return "SZ"
	case strings.HasPrefix(bare, "8"), strings.HasPrefix(bare, "4"):
		return "BJ"
	}
	return ""
}
