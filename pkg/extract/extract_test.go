package extract

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"github.com/zoeyai/snapreader/internal/testutil"
	"github.com/zoeyai/snapreader/pkg/board"
	"github.com/zoeyai/snapreader/pkg/config"
	"github.com/zoeyai/snapreader/pkg/locator"
	"github.com/zoeyai/snapreader/pkg/templates"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// fakeRecognizer 固定返回一个字母
type fakeRecognizer struct {
	letter string
	conf   float64
	calls  int
}

func (f *fakeRecognizer) RecognizeLetter(img image.Image) (string, float64, error) {
	f.calls++
	return f.letter, f.conf, nil
}

func newLibrary(t *testing.T, remove ...string) *templates.Library {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTemplates(t, dir)
	for _, rel := range remove {
		if err := os.Remove(filepath.Join(dir, rel)); err != nil {
			t.Fatalf("删除模板失败: %v", err)
		}
	}

	lib, err := templates.NewLibrary(dir, nil)
	if err != nil {
		t.Fatalf("NewLibrary 失败: %v", err)
	}
	t.Cleanup(lib.Close)
	return lib
}

func testOptions() Options {
	o := DefaultOptions()
	o.Threshold = 0.8
	o.AnchorThreshold = 0.8
	o.Workers = 4
	return o
}

func sampleFixture() testutil.Fixture {
	f := testutil.DefaultFixture()
	f.Letters[image.Pt(0, 0)] = "C"
	f.Letters[image.Pt(3, 2)] = "W"
	f.Letters[image.Pt(4, 2)] = "A"
	f.Letters[image.Pt(7, 6)] = "Z"
	f.Rack = "ADEFGHI"
	return f
}

func wantLetters() map[board.Cell]string {
	return map[board.Cell]string{
		{Col: 0, Row: 0}: "C",
		{Col: 3, Row: 2}: "W",
		{Col: 4, Row: 2}: "A",
		{Col: 7, Row: 6}: "Z",
	}
}

func TestExtract(t *testing.T) {
	lib := newLibrary(t)
	shot := sampleFixture().Render()
	defer shot.Close()

	tests := []struct {
		name string
		opts []Option
	}{
		{"normalize", nil},
		{"native", []Option{WithNormalize(false)}},
		{"explicit profile", []Option{WithProfile(templates.DefaultProfileKey)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := New(lib, testOptions(), nil)
			res, err := ex.Extract(context.Background(), shot, tt.opts...)
			if err != nil {
				t.Fatalf("Extract 失败: %v", err)
			}

			if got := strings.Join(res.State.Rack, ""); got != "ADEFGHI" {
				t.Errorf("Rack = %q, want ADEFGHI", got)
			}
			if !reflect.DeepEqual(res.State.Letters, wantLetters()) {
				t.Errorf("Letters = %v, want %v", res.State.Letters, wantLetters())
			}
			if len(res.State.Bonuses) != 0 {
				t.Errorf("Bonuses 应为空: %v", res.State.Bonuses)
			}
			if res.Warning != nil {
				t.Errorf("不应有警告: %v", res.Warning)
			}
			if res.Profile != templates.DefaultProfileKey {
				t.Errorf("Profile = %v", res.Profile)
			}
			if res.RunID == "" {
				t.Error("RunID 为空")
			}
		})
	}
}

// padShot 将参考分辨率截图放到更大的黑色画布左上角
func padShot(src gocv.Mat, w, h int) gocv.Mat {
	dst := testutil.BlankBGR(w, h)
	testutil.Paste(&dst, src, 0, 0)
	return dst
}

func TestExtractProfileFromImageSize(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTemplates(t, dir)

	qhd := templates.ProfileKey{Width: 2560, Height: 1440}
	registry := templates.DefaultRegistry()
	registry.Register(templates.Profile{Key: qhd, Scales: map[string]templates.Scale{
		templates.ScaleBoard:    templates.Unit,
		templates.ScaleRack:     templates.Unit,
		templates.AnchorShuffle: templates.Unit,
		templates.AnchorBack:    templates.Unit,
	}})
	lib, err := templates.NewLibrary(dir, registry)
	if err != nil {
		t.Fatalf("NewLibrary 失败: %v", err)
	}
	t.Cleanup(lib.Close)

	opts, err := FromConfig(config.DefaultConfig())
	if err != nil {
		t.Fatalf("FromConfig 失败: %v", err)
	}
	if opts.Profile != (templates.ProfileKey{}) {
		t.Fatalf("默认配置不应固定分辨率: %v", opts.Profile)
	}
	opts.Threshold = 0.8
	opts.AnchorThreshold = 0.8

	ref := sampleFixture().Render()
	defer ref.Close()

	t.Run("registered size", func(t *testing.T) {
		shot := padShot(ref, qhd.Width, qhd.Height)
		defer shot.Close()

		res, err := New(lib, opts, nil).Extract(context.Background(), shot)
		if err != nil {
			t.Fatalf("Extract 失败: %v", err)
		}
		if res.Profile != qhd {
			t.Errorf("Profile = %v, want %v", res.Profile, qhd)
		}
		if got := strings.Join(res.State.Rack, ""); got != "ADEFGHI" {
			t.Errorf("Rack = %q, want ADEFGHI", got)
		}
		if !reflect.DeepEqual(res.State.Letters, wantLetters()) {
			t.Errorf("Letters = %v, want %v", res.State.Letters, wantLetters())
		}
	})

	t.Run("unregistered size", func(t *testing.T) {
		shot := padShot(ref, 2000, 1200)
		defer shot.Close()

		_, err := New(lib, opts, nil).Extract(context.Background(), shot)
		var cfgErr *templates.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("err = %v, want ConfigurationError", err)
		}
		if cfgErr.Profile != (templates.ProfileKey{Width: 2000, Height: 1200}) {
			t.Errorf("Profile = %v", cfgErr.Profile)
		}
	})
}

func TestExtractBonuses(t *testing.T) {
	lib := newLibrary(t)
	f := testutil.DefaultFixture()
	f.Bonuses[image.Pt(1, 1)] = "2L"
	f.Bonuses[image.Pt(6, 5)] = "3W"
	f.Letters[image.Pt(2, 3)] = "Q"
	f.Rack = "ABCDEFG"
	shot := f.Render()
	defer shot.Close()

	res, err := New(lib, testOptions(), nil).Extract(context.Background(), shot)
	if err != nil {
		t.Fatalf("Extract 失败: %v", err)
	}

	wantBonuses := map[board.Cell]string{{Col: 1, Row: 1}: "2L", {Col: 6, Row: 5}: "3W"}
	if !reflect.DeepEqual(res.State.Bonuses, wantBonuses) {
		t.Errorf("Bonuses = %v, want %v", res.State.Bonuses, wantBonuses)
	}
	if res.State.Letters[board.Cell{Col: 2, Row: 3}] != "Q" || len(res.State.Letters) != 1 {
		t.Errorf("Letters = %v", res.State.Letters)
	}
}

func TestExtractPartialRack(t *testing.T) {
	lib := newLibrary(t)
	f := sampleFixture()
	f.Rack = "ADE GHI"
	shot := f.Render()
	defer shot.Close()

	rec := &fakeRecognizer{letter: "F", conf: 0.99}
	res, err := New(lib, testOptions(), rec).Extract(context.Background(), shot)
	if err != nil {
		t.Fatalf("Extract 失败: %v", err)
	}

	// 空槽位没有内容，不调用 OCR
	if rec.calls != 0 {
		t.Errorf("空槽位不应调用 OCR, calls = %d", rec.calls)
	}
	if got := strings.Join(res.State.Rack, ""); got != "ADEGHI" {
		t.Errorf("Rack = %q, want ADEGHI", got)
	}

	w := res.Warning
	if w == nil {
		t.Fatal("应当返回警告")
	}
	if w.RackLetters != 6 || !reflect.DeepEqual(w.MissingSlots, []int{3}) {
		t.Errorf("警告内容不正确: %+v", w)
	}
}

func TestExtractOCRFallback(t *testing.T) {
	// 缺少 W 的字母架模板，槽位 3 只能由 OCR 补充
	lib := newLibrary(t, filepath.Join("rack", "W.png"))
	f := sampleFixture()
	f.Rack = "ADEWGHI"
	shot := f.Render()
	defer shot.Close()

	tests := []struct {
		name     string
		conf     float64
		wantRack string
		wantWarn bool
	}{
		{"accepted", 0.9, "ADEWGHI", false},
		{"below min confidence", 0.3, "ADEGHI", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{letter: "W", conf: tt.conf}
			res, err := New(lib, testOptions(), rec).Extract(context.Background(), shot, WithThreshold(0.9))
			if err != nil {
				t.Fatalf("Extract 失败: %v", err)
			}
			if rec.calls != 1 {
				t.Errorf("OCR 调用次数 = %d, want 1", rec.calls)
			}
			if got := strings.Join(res.State.Rack, ""); got != tt.wantRack {
				t.Errorf("Rack = %q, want %q", got, tt.wantRack)
			}
			if (res.Warning != nil) != tt.wantWarn {
				t.Errorf("Warning = %v, wantWarn %v", res.Warning, tt.wantWarn)
			}
			if !tt.wantWarn && res.State.RackSlots[3].Source != board.SourceOCR {
				t.Errorf("槽位 3 来源 = %s, want ocr", res.State.RackSlots[3].Source)
			}
		})
	}
}

func TestExtractErrors(t *testing.T) {
	lib := newLibrary(t)

	t.Run("unsupported profile", func(t *testing.T) {
		shot := sampleFixture().Render()
		defer shot.Close()

		_, err := New(lib, testOptions(), nil).Extract(context.Background(), shot,
			WithProfile(templates.ProfileKey{Width: 1000, Height: 1000}))
		var cfgErr *templates.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("err = %v, want ConfigurationError", err)
		}
		if len(cfgErr.Supported) == 0 {
			t.Error("错误中应列出支持的分辨率")
		}
	})

	t.Run("missing anchor", func(t *testing.T) {
		f := sampleFixture()
		f.NoShuffle = true
		shot := f.Render()
		defer shot.Close()

		_, err := New(lib, testOptions(), nil).Extract(context.Background(), shot)
		var regionErr *locator.RegionNotFoundError
		if !errors.As(err, &regionErr) {
			t.Fatalf("err = %v, want RegionNotFoundError", err)
		}
		if !regionErr.Has(locator.AnchorBottom) {
			t.Errorf("Missing = %v, 应包含 %s", regionErr.Missing, locator.AnchorBottom)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		shot := sampleFixture().Render()
		defer shot.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(lib, testOptions(), nil).Extract(ctx, shot)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope.png")
		_, err := New(lib, testOptions(), nil).ExtractFile(context.Background(), path)
		if err == nil || !strings.Contains(err.Error(), path) {
			t.Errorf("err = %v, 应包含路径", err)
		}
	})
}

func TestExtractFileAndDebug(t *testing.T) {
	lib := newLibrary(t)
	dir := t.TempDir()

	shot := sampleFixture().Render()
	path := filepath.Join(dir, "shot.png")
	if err := cv.WriteImage(path, shot); err != nil {
		t.Fatalf("WriteImage 失败: %v", err)
	}
	shot.Close()

	debugDir := filepath.Join(dir, "debug")
	res, err := New(lib, testOptions(), nil).ExtractFile(context.Background(), path, WithDebug(debugDir))
	if err != nil {
		t.Fatalf("ExtractFile 失败: %v", err)
	}
	if got := strings.Join(res.State.Rack, ""); got != "ADEFGHI" {
		t.Errorf("Rack = %q, want ADEFGHI", got)
	}

	if res.DebugDir != filepath.Join(debugDir, res.RunID) {
		t.Errorf("DebugDir = %s", res.DebugDir)
	}
	for _, name := range []string{DebugCropFile, DebugOverlayFile, DebugStateFile} {
		if _, err := os.Stat(filepath.Join(res.DebugDir, name)); err != nil {
			t.Errorf("调试文件缺失: %s: %v", name, err)
		}
	}

	crop, err := cv.ReadImage(filepath.Join(res.DebugDir, DebugCropFile))
	if err != nil {
		t.Fatalf("读取裁剪图失败: %v", err)
	}
	defer crop.Close()
	if crop.Cols() != 644 || crop.Rows() != 680 {
		t.Errorf("裁剪尺寸 = %dx%d, want 644x680", crop.Cols(), crop.Rows())
	}
}
