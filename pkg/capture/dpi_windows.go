//go:build windows

package capture

import (
	"image"
	"sync"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"

	"github.com/zoeyai/snapreader/internal/logger"
)

// robotgo 的窗口坐标可能是逻辑像素 (物理 / DPI 缩放)，截图使用物理像素
// 通过对比两者报告的屏幕尺寸得到换算比例
var (
	coordOnce      sync.Once
	coordX, coordY = 1.0, 1.0
)

func coordScale() (float64, float64) {
	coordOnce.Do(func() {
		rw, rh := robotgo.GetScreenSize()
		if rw <= 0 || rh <= 0 || screenshot.NumActiveDisplays() < 1 {
			return
		}
		b := screenshot.GetDisplayBounds(0)
		coordX = normalizeScale(float64(b.Dx()) / float64(rw))
		coordY = normalizeScale(float64(b.Dy()) / float64(rh))
		logger.Debug("坐标换算: robotgo=%dx%d physical=%dx%d scale=%.3f", rw, rh, b.Dx(), b.Dy(), coordX)
	})
	return coordX, coordY
}

// toPhysical 将 robotgo 窗口区域换算为截图像素区域
func toPhysical(r image.Rectangle) image.Rectangle {
	sx, sy := coordScale()
	return scaleRect(r, sx, sy)
}
