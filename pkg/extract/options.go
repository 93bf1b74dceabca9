package extract

import (
	"image"

	"github.com/zoeyai/snapreader/pkg/board"
	"github.com/zoeyai/snapreader/pkg/config"
	"github.com/zoeyai/snapreader/pkg/locator"
	"github.com/zoeyai/snapreader/pkg/match"
	"github.com/zoeyai/snapreader/pkg/templates"
)

// Options 一次识别的参数
type Options struct {
	// Profile 分辨率配置，零值时使用截图尺寸
	Profile         templates.ProfileKey
	Threshold       float64
	AnchorThreshold float64
	Geometry        locator.Geometry
	// Normalize 为 true 时棋盘裁剪缩放到 CanonicalSize，字形模板使用参考尺寸
	Normalize     bool
	CanonicalSize image.Point
	Split         float64
	Workers       int
	Expect        board.Expectation
	// OCRMinConfidence 低于该值的 OCR 结果丢弃
	OCRMinConfidence float64

	Debug    bool
	DebugDir string
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		Threshold:        match.DefaultThreshold,
		AnchorThreshold:  locator.DefaultThreshold,
		Geometry:         locator.DefaultGeometry(),
		Normalize:        true,
		CanonicalSize:    locator.DefaultCanonicalSize,
		Split:            board.DefaultSplit,
		Expect:           board.DefaultExpectation(),
		OCRMinConfidence: 0.6,
		DebugDir:         "output",
	}
}

// FromConfig 由配置文件生成参数
func FromConfig(c *config.Config) (Options, error) {
	o := DefaultOptions()

	key, ok, err := c.ProfileKey()
	if err != nil {
		return o, err
	}
	if ok {
		o.Profile = key
	}

	o.Threshold = c.Threshold
	o.AnchorThreshold = c.AnchorThreshold
	o.Geometry = c.Geometry
	o.Normalize = c.Normalize
	o.CanonicalSize = image.Pt(c.CanonicalWidth, c.CanonicalHeight)
	o.Split = c.Split
	o.Workers = c.Workers
	o.Expect = board.Expectation{RackLetters: c.ExpectedRack, MinBoardCells: c.MinBoardCells}
	o.OCRMinConfidence = c.OCRMinConfidence
	o.Debug = c.Debug
	if c.DebugDir != "" {
		o.DebugDir = c.DebugDir
	}
	return o, nil
}

// Option 单次调用的参数覆盖
type Option func(*Options)

// WithProfile 指定分辨率配置
func WithProfile(key templates.ProfileKey) Option {
	return func(o *Options) { o.Profile = key }
}

// WithThreshold 设置字形匹配阈值
func WithThreshold(th float64) Option {
	return func(o *Options) { o.Threshold = th }
}

// WithAnchorThreshold 设置锚点匹配阈值
func WithAnchorThreshold(th float64) Option {
	return func(o *Options) { o.AnchorThreshold = th }
}

// WithGeometry 设置定位几何参数
func WithGeometry(g locator.Geometry) Option {
	return func(o *Options) { o.Geometry = g }
}

// WithNormalize 设置是否缩放到规范尺寸
func WithNormalize(normalize bool) Option {
	return func(o *Options) { o.Normalize = normalize }
}

// WithExpectation 设置完整性期望
func WithExpectation(e board.Expectation) Option {
	return func(o *Options) { o.Expect = e }
}

// WithDebug 输出调试图像到 dir
func WithDebug(dir string) Option {
	return func(o *Options) {
		o.Debug = true
		if dir != "" {
			o.DebugDir = dir
		}
	}
}
