package capture

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/snapreader/internal/logger"
	"github.com/zoeyai/snapreader/pkg/config"
)

// DefaultSettle 激活窗口后等待重绘的时间
const DefaultSettle = 500 * time.Millisecond

// WindowInfo 窗口信息
type WindowInfo struct {
	PID    int             `json:"pid"`
	Title  string          `json:"title"`
	Bounds image.Rectangle `json:"bounds"`
}

// WindowCapturer 截取游戏窗口
type WindowCapturer struct {
	Title       string
	ProcessName string
	Activate    bool
	Settle      time.Duration
}

// NewWindowCapturer 由配置创建窗口截图器
func NewWindowCapturer(cfg config.CaptureConfig) *WindowCapturer {
	return &WindowCapturer{
		Title:       cfg.WindowTitle,
		ProcessName: cfg.ProcessName,
		Activate:    cfg.Activate,
		Settle:      DefaultSettle,
	}
}

// FindWindow 先按进程名查找，再按窗口标题 (完整匹配) 查找
func (w *WindowCapturer) FindWindow() (*WindowInfo, error) {
	if w.ProcessName != "" {
		procs, err := FindProcess(w.ProcessName)
		if err != nil {
			return nil, err
		}
		for _, p := range procs {
			if title := strings.TrimSpace(robotgo.GetTitle(p.PID)); title != "" {
				return w.windowInfo(p.PID, title), nil
			}
		}
	}

	if w.Title != "" {
		pids, err := robotgo.Pids()
		if err != nil {
			return nil, fmt.Errorf("获取进程列表失败: %w", err)
		}
		for _, pid := range pids {
			if title := strings.TrimSpace(robotgo.GetTitle(pid)); title == w.Title {
				return w.windowInfo(pid, title), nil
			}
		}
	}

	return nil, fmt.Errorf("%w: title=%q process=%q", ErrWindowNotFound, w.Title, w.ProcessName)
}

func (w *WindowCapturer) windowInfo(pid int, title string) *WindowInfo {
	x, y, width, height := robotgo.GetBounds(pid)
	return &WindowInfo{
		PID:    pid,
		Title:  title,
		Bounds: toPhysical(image.Rect(x, y, x+width, y+height)),
	}
}

// Capture 激活窗口并截取窗口区域
func (w *WindowCapturer) Capture(ctx context.Context) (image.Image, error) {
	start := time.Now()

	win, err := w.FindWindow()
	if err != nil {
		return nil, err
	}

	if w.Activate {
		if err := robotgo.ActivePid(win.PID); err != nil {
			return nil, fmt.Errorf("激活窗口失败: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.Settle):
		}
		// 激活后窗口位置可能变化
		win = w.windowInfo(win.PID, win.Title)
	}

	img, err := CaptureRect(win.Bounds)
	if err != nil {
		logger.LogEvent("CAPTURE", false, float64(time.Since(start).Milliseconds()), err.Error())
		return nil, err
	}
	logger.LogEvent("CAPTURE", true, float64(time.Since(start).Milliseconds()),
		fmt.Sprintf("%s (pid=%d) %v", win.Title, win.PID, win.Bounds))
	return img, nil
}
