package flow

import "math"

// Score 把聚合结果映射成 [0,1] 的预测分。单调递增的简单启发式，
// 只用于同批股票之间的排序比较，不是校准过的概率。
// NaN/Inf 输入按 0 处理。
func Score(avgNetFlow, flowRatio float64) float64 {
	if math.IsNaN(avgNetFlow) || math.IsInf(avgNetFlow, 0) {
		avgNetFlow = 0
	}
	if math.IsNaN(flowRatio) || math.IsInf(flowRatio, 0) {
		flowRatio = 0
	}

	score := (avgNetFlow / 1_000_000) * flowRatio * 0.5
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
