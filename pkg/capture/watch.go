package capture

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/zoeyai/snapreader/internal/logger"
)

// FrameFilter 用感知哈希跳过与上一帧相近的截图
type FrameFilter struct {
	// MaxDistance 汉明距离不超过该值视为未变化
	MaxDistance int

	mu   sync.Mutex
	last *goimagehash.ImageHash
}

// NewFrameFilter 创建帧过滤器
func NewFrameFilter(maxDistance int) *FrameFilter {
	return &FrameFilter{MaxDistance: maxDistance}
}

// Changed 返回该帧是否与上一帧不同，哈希失败时视为变化
func (f *FrameFilter) Changed(img image.Image) bool {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last == nil {
		f.last = hash
		return true
	}

	dist, err := f.last.Distance(hash)
	if err != nil {
		f.last = hash
		return true
	}
	if dist <= f.MaxDistance {
		logger.Debug("画面未变化, 距离 %d", dist)
		return false
	}

	f.last = hash
	return true
}

// Reset 清除上一帧
func (f *FrameFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = nil
}

// Watch 按间隔截图，画面变化时调用 fn，直到 ctx 结束或 fn 返回错误
// 截图失败只记录日志
func Watch(ctx context.Context, c Capturer, interval time.Duration, filter *FrameFilter, fn func(context.Context, image.Image) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		img, err := c.Capture(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("截图失败: %v", err)
		case filter == nil || filter.Changed(img):
			if err := fn(ctx, img); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
