package service

import "errors"

// 领域错误，handler 层用 errors.Is 还原并映射为用户可见的响应。
var (
	// ErrNotFound MO/BOM/产品/工单不存在
	ErrNotFound = errors.New("not found")

	// ErrInvalidState 当前状态不允许该转换
	ErrInvalidState = errors.New("invalid state for this operation")

	// ErrInsufficientStock 手工出库超过在库数量
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnknownProduct 对不存在的产品做出库
	ErrUnknownProduct = errors.New("unknown product")
)
