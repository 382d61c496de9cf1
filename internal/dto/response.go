package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── 通用格式 ──

const (
	// DateLayout 日期
	DateLayout = "2006-01-02"
	// ClockLayout 时刻（签到/签退）
	ClockLayout = "15:04:05"
	// TimestampLayout 审计时间戳
	TimestampLayout = "2006-01-02T15:04:05Z07:00"
)

// PlaceholderName 员工信息无法解析时的占位值
const PlaceholderName = "N/A"

// FormatAmount 金额/工时统一输出两位小数字符串，避免 JSON 数值精度丢失
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatAmountPtr 可选金额，nil 返回空串
func FormatAmountPtr(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return FormatAmount(*d)
}

// FormatClock 格式化时刻，nil 返回空串
func FormatClock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(ClockLayout)
}

// FormatDatePtr 格式化可选日期，nil 返回空串
func FormatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
