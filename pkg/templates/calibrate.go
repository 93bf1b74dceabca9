package templates

import (
	"fmt"
	"math"
	"sort"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// CalibrateOptions 缩放系数估计参数
type CalibrateOptions struct {
	Threshold float64
	MinScale  float64
	MaxScale  float64
	Steps     int
}

// DefaultCalibrateOptions 默认参数: 0.4~1.4 之间 51 步
func DefaultCalibrateOptions() CalibrateOptions {
	return CalibrateOptions{Threshold: 0.8, MinScale: 0.4, MaxScale: 1.4, Steps: 51}
}

// CalibrationSample 单个模板的估计结果
type CalibrationSample struct {
	ID         string
	Group      string
	Scale      float64
	Confidence float64
}

// CalibrationStat 一组模板的统计
type CalibrationStat struct {
	Mean   float64
	StdDev float64
	Count  int
}

// Calibration 缩放系数估计结果
type Calibration struct {
	Key     ProfileKey
	Samples []CalibrationSample
	Stats   map[string]CalibrationStat
}

// Profile 将统计结果转换为分辨率配置
func (c *Calibration) Profile() Profile {
	scales := make(map[string]Scale, len(c.Stats))
	for group, s := range c.Stats {
		v := math.Round(s.Mean*1000) / 1000
		scales[group] = Scale{X: v, Y: v}
	}
	return Profile{Key: c.Key, Scales: scales}
}

// Calibrate 对截图做多尺度匹配，估计每个类别相对参考分辨率的缩放系数
// 棋盘与字母架按类别汇总，锚点按名称汇总
func Calibrate(screenshot gocv.Mat, lib *Library, key ProfileKey, opts CalibrateOptions) (*Calibration, error) {
	if screenshot.Empty() {
		return nil, fmt.Errorf("截图为空")
	}

	gray := cv.GrayThreshold(screenshot)
	defer gray.Close()

	result := &Calibration{Key: key, Stats: map[string]CalibrationStat{}}
	groups := map[string][]float64{}
	weights := map[string][]float64{}

	for _, c := range []Category{CategoryBoard, CategoryRack, CategoryAnchor} {
		refs := lib.Reference(c)
		ids := make([]string, 0, len(refs))
		for id := range refs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			m := cv.NewMultiScaleTemplateMatchingWithParams(refs[id].Image, gray,
				opts.Threshold, opts.MinScale, opts.MaxScale, opts.Steps)
			best, err := m.FindBestScale()
			if err != nil {
				return nil, fmt.Errorf("模板 %s 匹配失败: %w", id, err)
			}
			if best == nil {
				continue
			}

			group := string(c)
			if c == CategoryAnchor {
				group = id
			}
			result.Samples = append(result.Samples, CalibrationSample{
				ID:         id,
				Group:      group,
				Scale:      best.Scale,
				Confidence: best.Confidence,
			})
			groups[group] = append(groups[group], best.Scale)
			weights[group] = append(weights[group], best.Confidence)
		}
	}

	if len(result.Samples) == 0 {
		return nil, fmt.Errorf("没有任何模板达到阈值 %.2f", opts.Threshold)
	}

	for group, xs := range groups {
		mean, std := stat.MeanStdDev(xs, weights[group])
		if len(xs) < 2 {
			std = 0
		}
		result.Stats[group] = CalibrationStat{Mean: mean, StdDev: std, Count: len(xs)}
	}
	return result, nil
}
