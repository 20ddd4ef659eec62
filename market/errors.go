package market

import "errors"

// 错误种类，调用方用 errors.Is 判别
var (
	// ErrInvalidArgument 参数非法（window/order/limit/天数），存储未被触碰
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound 需要映射记录但不存在
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable 存储超时或连接失败，可退避重试
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrPartialRefresh 全量刷新提前中止或跳过了部分股票
	ErrPartialRefresh = errors.New("partial refresh failure")
)
