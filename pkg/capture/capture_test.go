package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zoeyai/snapreader/internal/testutil"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// stripes 生成竖条纹图像，period 不同则感知哈希差异较大
func stripes(period int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			if (x/period)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func checker(cell int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestFrameFilter(t *testing.T) {
	f := NewFrameFilter(4)

	a := stripes(32)
	b := checker(16)

	if !f.Changed(a) {
		t.Error("第一帧应视为变化")
	}
	if f.Changed(a) {
		t.Error("相同帧不应视为变化")
	}
	if !f.Changed(b) {
		t.Error("不同帧应视为变化")
	}

	f.Reset()
	if !f.Changed(b) {
		t.Error("Reset 后第一帧应视为变化")
	}
}

func TestFileCapturer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	m := testutil.BlankBGR(64, 48)
	if err := cv.WriteImage(path, m); err != nil {
		t.Fatalf("WriteImage 失败: %v", err)
	}
	m.Close()

	img, err := FileCapturer{Path: path}.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture 失败: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("尺寸 = %v, want 64x48", b)
	}

	_, err = FileCapturer{Path: filepath.Join(t.TempDir(), "missing.png")}.Capture(context.Background())
	if err == nil {
		t.Error("文件不存在应返回错误")
	}
}

// seqCapturer 按顺序返回预设帧
type seqCapturer struct {
	frames []image.Image
	errs   []error
	i      int
}

func (s *seqCapturer) Capture(ctx context.Context) (image.Image, error) {
	i := s.i
	s.i++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.frames) {
		return s.frames[len(s.frames)-1], nil
	}
	return s.frames[i], nil
}

func TestWatch(t *testing.T) {
	a, b := stripes(32), checker(16)
	c := &seqCapturer{
		frames: []image.Image{a, a, nil, b, b},
		errs:   []error{nil, nil, errors.New("window gone"), nil, nil},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen []image.Image
	stop := errors.New("stop")
	err := Watch(ctx, c, time.Millisecond, NewFrameFilter(4), func(ctx context.Context, img image.Image) error {
		seen = append(seen, img)
		if len(seen) == 2 {
			return stop
		}
		return nil
	})

	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want stop", err)
	}
	// 重复帧与截图失败都被跳过
	if len(seen) != 2 || seen[0] != a || seen[1] != b {
		t.Errorf("回调帧不正确: %d", len(seen))
	}
}

func TestWatchCancel(t *testing.T) {
	c := &seqCapturer{frames: []image.Image{stripes(32)}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Watch(ctx, c, time.Millisecond, NewFrameFilter(4), func(context.Context, image.Image) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestFindProcessSelf(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("无法获取可执行文件路径: %v", err)
	}
	procs, err := FindProcess(filepath.Base(exe))
	if err != nil {
		t.Fatalf("FindProcess 失败: %v", err)
	}
	found := false
	for _, p := range procs {
		if p.PID == os.Getpid() {
			found = true
		}
	}
	if !found {
		t.Errorf("未找到当前进程 %s (pid=%d)", filepath.Base(exe), os.Getpid())
	}
}

func TestWindowCapturer(t *testing.T) {
	if os.Getenv("SNAPREADER_WINDOW_TESTS") == "" {
		t.Skip("设置 SNAPREADER_WINDOW_TESTS=1 运行窗口测试")
	}
	w := &WindowCapturer{Title: "snapreader-no-such-window"}
	if _, err := w.FindWindow(); !errors.Is(err, ErrWindowNotFound) {
		t.Errorf("err = %v, want ErrWindowNotFound", err)
	}
}

func TestAccessInstructions(t *testing.T) {
	tests := []struct {
		name   string
		access Access
		want   []string
	}{
		{"ready", Access{ScreenRecording: true, WindowControl: true}, nil},
		{"no recording", Access{WindowControl: true}, []string{"屏幕录制"}},
		{"none", Access{}, []string{"屏幕录制", "辅助功能"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.access.Instructions()
			if tt.want == nil {
				if msg != "" || !tt.access.Ready() {
					t.Errorf("Ready 时不应有说明: %q", msg)
				}
				return
			}
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("说明缺少 %q: %q", w, msg)
				}
			}
		})
	}
}

func TestScaleRect(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  image.Rectangle
	}{
		{"identity", 1.02, image.Rect(100, 50, 740, 530)},
		{"150%", 1.5, image.Rect(150, 75, 1110, 795)},
		{"bogus", 12, image.Rect(100, 50, 740, 530)},
	}
	r := image.Rect(100, 50, 740, 530)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := normalizeScale(tt.ratio)
			if got := scaleRect(r, s, s); got != tt.want {
				t.Errorf("scaleRect = %v, want %v", got, tt.want)
			}
		})
	}
}
