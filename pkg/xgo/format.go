package xgo

import (
	"fmt"
	"time"
)

var units = []struct {
	d   time.Duration
	sym string
}{
	{24 * time.Hour, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
	{time.Second, "s"},
	{time.Millisecond, "ms"},
	{time.Microsecond, "µs"},
	{time.Nanosecond, "ns"},
}

// ShortDuration 取最大可用单位并保留 3 位有效数字，如 1.50d、12.3ms、250µs
func ShortDuration(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	for _, u := range units {
		if d < u.d {
			continue
		}
		v := float64(d) / float64(u.d)
		switch {
		case v >= 100:
			return fmt.Sprintf("%.0f%s", v, u.sym)
		case v >= 10:
			return fmt.Sprintf("%.1f%s", v, u.sym)
		default:
			return fmt.Sprintf("%.2f%s", v, u.sym)
		}
	}
	return "0"
}

// AvgDuration 单次平均耗时
func AvgDuration(total time.Duration, n int64) string {
	if n <= 0 {
		return "0"
	}
	return ShortDuration(total / time.Duration(n))
}

// FormatDuration 报表用时长，只到 h/m/s 一位小数
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0"
	case d >= time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	case d >= time.Minute:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// Pct num/denom*100，denom<=0 返回 0
func Pct(num, denom int64) float64 {
	if denom <= 0 {
		return 0
	}
	return float64(num) / float64(denom) * 100
}

// PctCap100 进度类百分比，上限 100
func PctCap100(num, denom int64) float64 {
	return min(Pct(num, denom), 100)
}
