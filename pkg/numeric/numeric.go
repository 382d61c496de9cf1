package numeric

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scale 金额与工时统一保留的小数位数
const Scale int32 = 2

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// Round2 四舍五入（远离零）保留两位小数
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// HoursBetween 计算两个时间点之间的工时（小时，两位小数）。
// 先截断为整分钟再除以 60；out 早于 in 时返回负值，negative=true，由调用方决定如何处理。
func HoursBetween(in, out time.Time) (hours decimal.Decimal, negative bool) {
	minutes := int64(out.Sub(in) / time.Minute)
	hours = decimal.NewFromInt(minutes).DivRound(sixty, Scale)
	return hours, minutes < 0
}

// Percentage part / total × 100，两位小数；total 为 0 时返回 0
func Percentage(part, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(hundred).DivRound(decimal.NewFromInt(total), Scale)
}

// Sum 累加后统一舍入
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round2(total)
}

// OrDefault 有覆盖值时取覆盖值（两位小数），否则取默认值
func OrDefault(override *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if override != nil {
		return Round2(*override)
	}
	return fallback
}
