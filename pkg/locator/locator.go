// Package locator 通过锚点图标定位截图中的棋盘区域
package locator

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	"gocv.io/x/gocv"

	"github.com/zoeyai/snapreader/internal/logger"
	"github.com/zoeyai/snapreader/pkg/templates"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// DefaultThreshold 锚点匹配阈值
const DefaultThreshold = 0.85

// DefaultCanonicalSize 规范化棋盘尺寸
var DefaultCanonicalSize = image.Point{X: 644, Y: 680}

// LeftEdgeMode 左边缘处理方式
type LeftEdgeMode string

const (
	// LeftEdgeAuto 左边缘贴边或宽高比异常时按高度推算
	LeftEdgeAuto LeftEdgeMode = "auto"
	// LeftEdgeTrust 始终使用测量值
	LeftEdgeTrust LeftEdgeMode = "trust"
	// LeftEdgeDerive 始终按高度推算
	LeftEdgeDerive LeftEdgeMode = "derive"
)

// Geometry 参考分辨率下的几何参数
type Geometry struct {
	TopOffset       int          `json:"top_offset" mapstructure:"top_offset"`
	BottomOffset    int          `json:"bottom_offset" mapstructure:"bottom_offset"`
	AspectRatio     float64      `json:"aspect_ratio" mapstructure:"aspect_ratio"`
	AspectTolerance float64      `json:"aspect_tolerance" mapstructure:"aspect_tolerance"`
	LeftEdge        LeftEdgeMode `json:"left_edge" mapstructure:"left_edge"`
}

// DefaultGeometry 默认几何参数，宽高比为棋盘高/宽
func DefaultGeometry() Geometry {
	return Geometry{
		TopOffset:       46,
		BottomOffset:    8,
		AspectRatio:     1.0558,
		AspectTolerance: 0.04,
		LeftEdge:        LeftEdgeAuto,
	}
}

// AnchorHit 锚点命中
type AnchorHit struct {
	ID         string  `json:"id"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	W          int     `json:"w"`
	H          int     `json:"h"`
	Confidence float64 `json:"confidence"`
}

// BoundingBox 棋盘区域
type BoundingBox struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
	// Derived 左边缘是否由宽高比推算
	Derived bool `json:"derived"`
}

// Rect 转换为 image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Width 区域宽度
func (b BoundingBox) Width() int { return b.MaxX - b.MinX }

// Height 区域高度
func (b BoundingBox) Height() int { return b.MaxY - b.MinY }

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d, %d)-(%d, %d)", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Locator 棋盘定位器
type Locator struct {
	Threshold float64
	Geometry  Geometry
	// OffsetScale 偏移量缩放系数，通常为当前配置的 board Y 系数
	OffsetScale float64
	// Supported 错误信息中列出的支持分辨率
	Supported []string
}

// New 创建默认参数的定位器
func New() *Locator {
	return &Locator{
		Threshold:   DefaultThreshold,
		Geometry:    DefaultGeometry(),
		OffsetScale: 1,
	}
}

// LocateBoard 在截图中查找锚点并推算棋盘区域
func (l *Locator) LocateBoard(screenshot gocv.Mat, anchors map[string]*templates.Template) (BoundingBox, []AnchorHit, error) {
	start := time.Now()

	if screenshot.Empty() {
		return BoundingBox{}, nil, fmt.Errorf("截图为空")
	}

	gray := cv.GrayThreshold(screenshot)
	defer gray.Close()

	hits, err := l.findAnchors(gray, anchors)
	if err != nil {
		return BoundingBox{}, nil, err
	}

	box, err := l.boundingBox(hits, gray.Cols(), gray.Rows())
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		logger.LogEvent("LOCATE", false, elapsed, err.Error())
		return BoundingBox{}, hits, err
	}

	logger.LogEvent("LOCATE", true, elapsed, fmt.Sprintf("棋盘区域 %s, 锚点 %d 个", box, len(hits)))
	return box, hits, nil
}

// findAnchors 对每个锚点模板收集所有超过阈值的峰值
func (l *Locator) findAnchors(gray gocv.Mat, anchors map[string]*templates.Template) ([]AnchorHit, error) {
	ids := make([]string, 0, len(anchors))
	for id := range anchors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var hits []AnchorHit
	for _, id := range ids {
		tmpl := anchors[id]
		results, err := cv.NewTemplateMatchingWithLimit(tmpl.Image, gray, l.Threshold, 8).FindAllResults()
		if err != nil {
			var sizeErr *cv.ImageSizeError
			if errors.As(err, &sizeErr) {
				logger.Debug("锚点 %s 大于截图，跳过", id)
				continue
			}
			return nil, fmt.Errorf("锚点 %s 匹配失败: %w", id, err)
		}

		for _, r := range results {
			hits = append(hits, AnchorHit{
				ID:         id,
				X:          r.Rectangle.TopLeft.X,
				Y:          r.Rectangle.TopLeft.Y,
				W:          r.Rectangle.Width(),
				H:          r.Rectangle.Height(),
				Confidence: r.Confidence,
			})
		}
		logger.Debug("锚点 %s: %d 个命中", id, len(results))
	}
	return hits, nil
}

// bestHit 返回指定锚点置信度最高的命中
func bestHit(hits []AnchorHit, id string) (AnchorHit, bool) {
	var best AnchorHit
	found := false
	for _, h := range hits {
		if h.ID == id && (!found || h.Confidence > best.Confidence) {
			best, found = h, true
		}
	}
	return best, found
}

// boundingBox 由锚点命中推算棋盘区域
func (l *Locator) boundingBox(hits []AnchorHit, width, height int) (BoundingBox, error) {
	top, ok := bestHit(hits, templates.AnchorBack)
	if !ok {
		top, ok = bestHit(hits, templates.AnchorZeroSnaps)
	}
	shuffle, hasShuffle := bestHit(hits, templates.AnchorShuffle)

	var missing []string
	if !ok {
		missing = append(missing, AnchorTop)
	}
	if !hasShuffle {
		missing = append(missing, AnchorBottom)
	}
	if len(missing) > 0 {
		return BoundingBox{}, &RegionNotFoundError{Missing: missing, Supported: l.Supported}
	}

	scale := l.OffsetScale
	if scale <= 0 {
		scale = 1
	}
	g := l.Geometry

	box := BoundingBox{
		MinX: math.MaxInt,
		MinY: top.Y + top.H + int(math.Round(float64(g.TopOffset)*scale)),
		MaxX: math.MinInt,
		MaxY: shuffle.Y - int(math.Round(float64(g.BottomOffset)*scale)),
	}
	for _, h := range hits {
		box.MinX = min(box.MinX, h.X)
		box.MaxX = max(box.MaxX, h.X+h.W)
	}

	if l.shouldDerive(box) {
		box.MinX = box.MaxX - int(math.Round(float64(box.Height())/g.AspectRatio))
		box.Derived = true
	}

	// 限制在截图范围内
	box.MinX = max(box.MinX, 0)
	box.MinY = max(box.MinY, 0)
	box.MaxX = min(box.MaxX, width)
	box.MaxY = min(box.MaxY, height)

	if box.Width() <= 0 || box.Height() <= 0 {
		return BoundingBox{}, &RegionNotFoundError{
			Supported: l.Supported,
			Reason:    fmt.Sprintf("锚点推算出的区域无效 %s", box),
		}
	}
	return box, nil
}

// shouldDerive 判断是否需要由高度推算左边缘
func (l *Locator) shouldDerive(box BoundingBox) bool {
	g := l.Geometry
	if g.AspectRatio <= 0 {
		return false
	}
	switch g.LeftEdge {
	case LeftEdgeTrust:
		return false
	case LeftEdgeDerive:
		return true
	}

	if box.MinX <= 0 || box.Width() <= 0 {
		return true
	}
	aspect := float64(box.Height()) / float64(box.Width())
	return math.Abs(aspect-g.AspectRatio) > g.AspectTolerance
}

// CleanupOriginal 裁剪棋盘区域并缩放到规范尺寸 (保留颜色)，size 为零时只裁剪
func CleanupOriginal(src gocv.Mat, box BoundingBox, size image.Point) gocv.Mat {
	crop := cv.CropImage(src, box.Rect())
	if size.X <= 0 || size.Y <= 0 || crop.Empty() {
		return crop
	}
	if crop.Cols() == size.X && crop.Rows() == size.Y {
		return crop
	}
	defer crop.Close()
	return cv.ResizeImage(crop, size.X, size.Y)
}
