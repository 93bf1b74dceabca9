// Package match 在规范化图像上并行执行模板匹配，输出原始命中
package match

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"gocv.io/x/gocv"

	"github.com/zoeyai/snapreader/internal/logger"
	"github.com/zoeyai/snapreader/pkg/board"
	"github.com/zoeyai/snapreader/pkg/templates"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// DefaultThreshold 字形匹配阈值
const DefaultThreshold = 0.85

// Engine 匹配引擎，可被多个 goroutine 共享
type Engine struct {
	Threshold float64
	Workers   int
	MaxPeaks  int
}

// Option 引擎选项
type Option func(*Engine)

// WithThreshold 设置匹配阈值
func WithThreshold(th float64) Option {
	return func(e *Engine) { e.Threshold = th }
}

// WithWorkers 设置并行数
func WithWorkers(n int) Option {
	return func(e *Engine) { e.Workers = n }
}

// WithMaxPeaks 设置单个模板最多输出的命中数
func WithMaxPeaks(n int) Option {
	return func(e *Engine) { e.MaxPeaks = n }
}

// New 创建匹配引擎
func New(opts ...Option) *Engine {
	e := &Engine{
		Threshold: DefaultThreshold,
		Workers:   runtime.NumCPU(),
		MaxPeaks:  cv.DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Workers < 1 {
		e.Workers = 1
	}
	return e
}

// MatchAll 将每个模板与图像做相关匹配，返回所有超过阈值的峰值
// 结果按 (标签, y, x) 排序
func (e *Engine) MatchAll(ctx context.Context, img gocv.Mat, kind board.Kind, tmpls map[string]*templates.Template) ([]board.RawMatch, error) {
	start := time.Now()

	if img.Empty() {
		return nil, fmt.Errorf("匹配图像为空")
	}

	gray := img
	if img.Channels() != 1 {
		gray = cv.ToGray(img)
		defer gray.Close()
	}

	ids := make([]string, 0, len(tmpls))
	for id := range tmpls {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	p := pool.NewWithResults[[]board.RawMatch]().
		WithContext(ctx).
		WithMaxGoroutines(e.Workers)

	for _, id := range ids {
		tmpl := tmpls[id]
		p.Go(func(ctx context.Context) ([]board.RawMatch, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return e.matchOne(gray, kind, tmpl)
		})
	}

	groups, err := p.Wait()
	if err != nil {
		return nil, err
	}

	var out []board.RawMatch
	for _, g := range groups {
		out = append(out, g...)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	logger.LogEvent("MATCH", true, float64(time.Since(start).Milliseconds()),
		fmt.Sprintf("%s: %d 个模板, %d 个命中", kind, len(ids), len(out)))
	return out, nil
}

// matchOne 单个模板的峰值提取
func (e *Engine) matchOne(gray gocv.Mat, kind board.Kind, tmpl *templates.Template) ([]board.RawMatch, error) {
	results, err := cv.NewTemplateMatchingWithLimit(tmpl.Image, gray, e.Threshold, e.MaxPeaks).FindAllResults()
	if err != nil {
		var sizeErr *cv.ImageSizeError
		if errors.As(err, &sizeErr) {
			logger.Debug("模板 %s 大于图像，跳过", tmpl.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("模板 %s 匹配失败: %w", tmpl.ID, err)
	}

	matches := make([]board.RawMatch, 0, len(results))
	for _, r := range results {
		// 中心点使用浮点，避免奇数尺寸模板的取整偏移
		w, h := tmpl.Size()
		matches = append(matches, board.RawMatch{
			Label:      tmpl.ID,
			Kind:       kind,
			X:          float64(r.Rectangle.TopLeft.X) + float64(w)/2,
			Y:          float64(r.Rectangle.TopLeft.Y) + float64(h)/2,
			Confidence: r.Confidence,
		})
	}
	return matches, nil
}
