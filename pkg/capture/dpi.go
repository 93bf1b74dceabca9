package capture

import (
	"image"
	"math"
)

// normalizeScale 过滤异常比例，接近 1 时视为无缩放
func normalizeScale(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0.5 || v > 4.0 {
		return 1.0
	}
	if math.Abs(v-1.0) < 0.05 {
		return 1.0
	}
	return v
}

// scaleInt 缩放整数值
func scaleInt(value int, factor float64) int {
	if factor <= 0 {
		return value
	}
	return int(math.Round(float64(value) * factor))
}

// scaleRect 按 x/y 比例缩放矩形
func scaleRect(r image.Rectangle, sx, sy float64) image.Rectangle {
	return image.Rect(scaleInt(r.Min.X, sx), scaleInt(r.Min.Y, sy), scaleInt(r.Max.X, sx), scaleInt(r.Max.Y, sy))
}
