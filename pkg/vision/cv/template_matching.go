package cv

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

const (
	// DefaultMaxResults 单个模板最多返回的峰值数量 (8x7 棋盘 + 7 个字母架槽位)
	DefaultMaxResults = 64
)

// TemplateMatching 模板匹配器
type TemplateMatching struct {
	imSearch   gocv.Mat
	imSource   gocv.Mat
	threshold  float64
	maxResults int
}

// NewTemplateMatching 创建模板匹配器
func NewTemplateMatching(search, source gocv.Mat, threshold float64) *TemplateMatching {
	return NewTemplateMatchingWithLimit(search, source, threshold, DefaultMaxResults)
}

// NewTemplateMatchingWithLimit 创建模板匹配器（限制峰值数量）
func NewTemplateMatchingWithLimit(search, source gocv.Mat, threshold float64, maxResults int) *TemplateMatching {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &TemplateMatching{
		imSearch:   search,
		imSource:   source,
		threshold:  threshold,
		maxResults: maxResults,
	}
}

// FindBestResult 查找最佳匹配结果，低于阈值返回 nil
func (t *TemplateMatching) FindBestResult() (*MatchResult, error) {
	startTime := time.Now()

	if err := checkSourceLargerThanSearch(t.imSource, t.imSearch); err != nil {
		return nil, err
	}

	result, err := t.getTemplateResultMatrix()
	if err != nil {
		return nil, err
	}
	defer result.Close()

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	if float64(maxVal) < t.threshold {
		return nil, nil
	}

	h, w := t.imSearch.Rows(), t.imSearch.Cols()
	middlePoint, rectangle := getTargetRectangle(maxLoc, w, h)

	return &MatchResult{
		Result:     middlePoint,
		Rectangle:  rectangle,
		Confidence: float64(maxVal),
		Time:       float64(time.Since(startTime).Milliseconds()),
	}, nil
}

// FindAllResults 查找所有不低于阈值的峰值，按置信度降序
func (t *TemplateMatching) FindAllResults() ([]*MatchResult, error) {
	startTime := time.Now()

	if err := checkSourceLargerThanSearch(t.imSource, t.imSearch); err != nil {
		return nil, err
	}

	result, err := t.getTemplateResultMatrix()
	if err != nil {
		return nil, err
	}
	defer result.Close()

	h, w := t.imSearch.Rows(), t.imSearch.Cols()
	var results []*MatchResult

	for len(results) < t.maxResults {
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
		if float64(maxVal) < t.threshold {
			break
		}

		middlePoint, rectangle := getTargetRectangle(maxLoc, w, h)
		results = append(results, &MatchResult{
			Result:     middlePoint,
			Rectangle:  rectangle,
			Confidence: float64(maxVal),
			Time:       float64(time.Since(startTime).Milliseconds()),
		})

		// 屏蔽峰值周围一个模板大小的邻域
		gocv.Rectangle(&result,
			image.Rect(maxLoc.X-w/2, maxLoc.Y-h/2, maxLoc.X+w/2+1, maxLoc.Y+h/2+1),
			color.RGBA{0, 0, 0, 255}, -1)
	}

	return results, nil
}

// getTemplateResultMatrix 计算 TM_CCOEFF_NORMED 相关度矩阵
func (t *TemplateMatching) getTemplateResultMatrix() (gocv.Mat, error) {
	srcGray, srcOwned := grayView(t.imSource)
	searchGray, searchOwned := grayView(t.imSearch)
	if srcOwned {
		defer srcGray.Close()
	}
	if searchOwned {
		defer searchGray.Close()
	}

	mask := gocv.NewMat()
	defer mask.Close()

	result := gocv.NewMat()
	gocv.MatchTemplate(srcGray, searchGray, &result, gocv.TmCcoeffNormed, mask)
	if result.Empty() {
		result.Close()
		return gocv.NewMat(), fmt.Errorf("模板匹配失败: search=%dx%d source=%dx%d",
			searchGray.Cols(), searchGray.Rows(), srcGray.Cols(), srcGray.Rows())
	}
	return result, nil
}

// grayView 返回单通道视图，已是灰度图时不复制
func grayView(src gocv.Mat) (gocv.Mat, bool) {
	if src.Channels() == 1 {
		return src, false
	}
	return ToGray(src), true
}

// getTargetRectangle 由左上角计算中心点和四个角点
func getTargetRectangle(leftTopPos image.Point, w, h int) (Point, Rectangle) {
	middlePoint := Point{X: leftTopPos.X + w/2, Y: leftTopPos.Y + h/2}
	return middlePoint, NewRectangle(leftTopPos.X, leftTopPos.Y, w, h)
}

// checkSourceLargerThanSearch 检查源图像是否大于搜索图像
func checkSourceLargerThanSearch(source, search gocv.Mat) error {
	if source.Empty() || search.Empty() {
		return fmt.Errorf("图像为空")
	}
	if source.Rows() < search.Rows() || source.Cols() < search.Cols() {
		return &ImageSizeError{
			SourceSize: [2]int{source.Cols(), source.Rows()},
			SearchSize: [2]int{search.Cols(), search.Rows()},
		}
	}
	return nil
}

// ImageSizeError 图像尺寸错误
type ImageSizeError struct {
	SourceSize [2]int
	SearchSize [2]int
}

func (e *ImageSizeError) Error() string {
	return fmt.Sprintf("搜索图像尺寸大于源图像: search=%dx%d source=%dx%d",
		e.SearchSize[0], e.SearchSize[1], e.SourceSize[0], e.SourceSize[1])
}
