// Package capture 获取游戏截图: 窗口截图、文件输入与屏幕分辨率检测
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// ErrWindowNotFound 找不到游戏窗口
var ErrWindowNotFound = errors.New("未找到游戏窗口")

// Capturer 截图来源
type Capturer interface {
	Capture(ctx context.Context) (image.Image, error)
}

// FileCapturer 从文件读取截图
type FileCapturer struct {
	Path string
}

// Capture 读取并解码截图文件
func (f FileCapturer) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := cv.ReadImage(f.Path)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return cv.MatToImage(mat)
}

// DisplayResolution 返回主显示器的物理分辨率
func DisplayResolution() (width, height int, err error) {
	if screenshot.NumActiveDisplays() < 1 {
		return 0, 0, fmt.Errorf("没有可用的显示器")
	}
	b := screenshot.GetDisplayBounds(0)
	if b.Empty() {
		return 0, 0, fmt.Errorf("无法获取显示器尺寸")
	}
	return b.Dx(), b.Dy(), nil
}

// CaptureRect 截取屏幕区域
func CaptureRect(rect image.Rectangle) (image.Image, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("截图区域为空: %v", rect)
	}
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("截取区域失败: %w", err)
	}
	return img, nil
}
