package cv

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// MultiScaleTemplateMatching 多尺度模板匹配
// 在 [minScale, maxScale] 区间内等距缩放模板，返回相关度最高的缩放比例。
// 适用场景：估计未知分辨率下参考模板的缩放系数
type MultiScaleTemplateMatching struct {
	imSearch  gocv.Mat
	imSource  gocv.Mat
	threshold float64
	minScale  float64
	maxScale  float64
	steps     int
}

// NewMultiScaleTemplateMatching 创建多尺度模板匹配器，默认区间 0.5~1.5，41 步
func NewMultiScaleTemplateMatching(search, source gocv.Mat, threshold float64) *MultiScaleTemplateMatching {
	return NewMultiScaleTemplateMatchingWithParams(search, source, threshold, 0.5, 1.5, 41)
}

// NewMultiScaleTemplateMatchingWithParams 创建多尺度模板匹配器（带参数）
func NewMultiScaleTemplateMatchingWithParams(search, source gocv.Mat, threshold, minScale, maxScale float64, steps int) *MultiScaleTemplateMatching {
	if steps < 1 {
		steps = 1
	}
	if maxScale < minScale {
		minScale, maxScale = maxScale, minScale
	}
	return &MultiScaleTemplateMatching{
		imSearch:  search,
		imSource:  source,
		threshold: threshold,
		minScale:  minScale,
		maxScale:  maxScale,
		steps:     steps,
	}
}

// Scales 返回将要尝试的缩放比例
func (m *MultiScaleTemplateMatching) Scales() []float64 {
	if m.steps == 1 || m.minScale == m.maxScale {
		return []float64{m.minScale}
	}
	scales := make([]float64, m.steps)
	step := (m.maxScale - m.minScale) / float64(m.steps-1)
	for i := range scales {
		scales[i] = m.minScale + step*float64(i)
	}
	return scales
}

// FindBestScale 查找最佳缩放比例，最佳结果低于阈值时返回 nil
func (m *MultiScaleTemplateMatching) FindBestScale() (*ScaleResult, error) {
	startTime := time.Now()

	if m.imSource.Empty() || m.imSearch.Empty() {
		return nil, fmt.Errorf("图像为空")
	}

	srcGray, srcOwned := grayView(m.imSource)
	if srcOwned {
		defer srcGray.Close()
	}

	var best *ScaleResult
	for _, scale := range m.Scales() {
		scaled := ScaleImage(m.imSearch, scale, scale)
		if scaled.Rows() < 4 || scaled.Cols() < 4 ||
			scaled.Rows() > srcGray.Rows() || scaled.Cols() > srcGray.Cols() {
			scaled.Close()
			continue
		}

		// 阈值置 -1，保证每个比例都返回结果
		r, err := NewTemplateMatching(scaled, srcGray, -1).FindBestResult()
		scaled.Close()
		if err != nil {
			return nil, err
		}
		if r != nil && (best == nil || r.Confidence > best.Confidence) {
			best = &ScaleResult{MatchResult: *r, Scale: scale}
		}
	}

	if best == nil || best.Confidence < m.threshold {
		return nil, nil
	}
	best.Time = float64(time.Since(startTime).Milliseconds())
	return best, nil
}
