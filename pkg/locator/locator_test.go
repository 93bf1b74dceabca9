package locator

import (
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"github.com/zoeyai/snapreader/internal/testutil"
	"github.com/zoeyai/snapreader/pkg/templates"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

func loadAnchors(t *testing.T) (map[string]*templates.Template, []string) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTemplates(t, dir)

	registry := templates.DefaultRegistry()
	lib, err := templates.NewLibrary(dir, registry)
	if err != nil {
		t.Fatalf("NewLibrary 失败: %v", err)
	}
	t.Cleanup(lib.Close)

	set, err := lib.Load(templates.DefaultProfileKey)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	return set.Anchors, registry.Supported()
}

func TestLocateBoard(t *testing.T) {
	anchors, supported := loadAnchors(t)

	tests := []struct {
		name    string
		fixture func() testutil.Fixture
	}{
		{"back", testutil.DefaultFixture},
		{"zero-snaps fallback", func() testutil.Fixture {
			f := testutil.DefaultFixture()
			f.BackAnchor = templates.AnchorZeroSnaps
			return f
		}},
		{"with tiles", func() testutil.Fixture {
			f := testutil.DefaultFixture()
			f.Letters[image.Pt(2, 3)] = "W"
			f.Bonuses[image.Pt(4, 4)] = "3W"
			f.Rack = "ADEFGHI"
			return f
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.fixture()
			shot := f.Render()
			defer shot.Close()

			l := New()
			l.Supported = supported
			box, hits, err := l.LocateBoard(shot, anchors)
			if err != nil {
				t.Fatalf("LocateBoard 失败: %v", err)
			}
			if box.Rect() != f.BoardBox() {
				t.Errorf("区域 = %v, want %v", box.Rect(), f.BoardBox())
			}
			if box.Derived {
				t.Error("宽高比正常时不应推算左边缘")
			}
			if len(hits) < 2 {
				t.Errorf("锚点命中过少: %+v", hits)
			}
		})
	}
}

func TestLocateBoardMissingShuffle(t *testing.T) {
	anchors, supported := loadAnchors(t)

	f := testutil.DefaultFixture()
	f.NoShuffle = true
	shot := f.Render()
	defer shot.Close()

	l := New()
	l.Supported = supported
	box, _, err := l.LocateBoard(shot, anchors)

	var regionErr *RegionNotFoundError
	if !errors.As(err, &regionErr) {
		t.Fatalf("期望 RegionNotFoundError, got %v", err)
	}
	if !regionErr.Has(AnchorBottom) || regionErr.Has(AnchorTop) {
		t.Errorf("应只缺少 shuffle: %v", regionErr.Missing)
	}
	if !strings.Contains(err.Error(), "shuffle") || !strings.Contains(err.Error(), "1920x1080") {
		t.Errorf("错误信息应包含锚点与支持的分辨率: %s", err)
	}
	if box != (BoundingBox{}) {
		t.Errorf("失败时不应返回区域: %+v", box)
	}
}

func TestLocateBoardMissingBack(t *testing.T) {
	anchors, _ := loadAnchors(t)

	f := testutil.DefaultFixture()
	f.BackAnchor = ""
	shot := f.Render()
	defer shot.Close()

	_, _, err := New().LocateBoard(shot, anchors)
	var regionErr *RegionNotFoundError
	if !errors.As(err, &regionErr) || !regionErr.Has(AnchorTop) {
		t.Fatalf("应缺少 back/zero-snaps, got %v", err)
	}
}

func TestLocateBoardLeftEdge(t *testing.T) {
	anchors, _ := loadAnchors(t)

	// 顶部锚点右移 100px，测量到的左边缘不可靠
	f := testutil.DefaultFixture()
	f.BackShift = 100
	shot := f.Render()
	defer shot.Close()
	want := f.BoardBox()

	tests := []struct {
		mode        LeftEdgeMode
		wantMinX    int
		wantDerived bool
	}{
		{LeftEdgeAuto, want.Min.X, true},
		{LeftEdgeDerive, want.Min.X, true},
		{LeftEdgeTrust, want.Min.X + 100, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			l := New()
			l.Geometry.LeftEdge = tt.mode
			box, _, err := l.LocateBoard(shot, anchors)
			if err != nil {
				t.Fatalf("LocateBoard 失败: %v", err)
			}
			if box.MinX != tt.wantMinX || box.Derived != tt.wantDerived {
				t.Errorf("MinX = %d derived=%v, want %d derived=%v", box.MinX, box.Derived, tt.wantMinX, tt.wantDerived)
			}
			if box.MaxX != want.Max.X || box.MinY != want.Min.Y || box.MaxY != want.Max.Y {
				t.Errorf("其余边不应变化: %v", box)
			}
		})
	}
}

func TestBoundingBoxOffsetScale(t *testing.T) {
	l := New()
	l.OffsetScale = 0.5
	hits := []AnchorHit{
		{ID: templates.AnchorBack, X: 100, Y: 10, W: 25, H: 25, Confidence: 0.9},
		{ID: templates.AnchorShuffle, X: 393, Y: 375, W: 29, H: 25, Confidence: 0.9},
	}

	box, err := l.boundingBox(hits, 1000, 1000)
	if err != nil {
		t.Fatalf("boundingBox 失败: %v", err)
	}
	if box.MinY != 35+23 || box.MaxY != 375-4 {
		t.Errorf("偏移未按比例缩放: %+v", box)
	}
}

func TestBoundingBoxDegenerate(t *testing.T) {
	hits := []AnchorHit{
		{ID: templates.AnchorBack, X: 100, Y: 500, W: 50, H: 50, Confidence: 0.9},
		{ID: templates.AnchorShuffle, X: 300, Y: 400, W: 58, H: 50, Confidence: 0.9},
	}
	_, err := New().boundingBox(hits, 1920, 1080)
	var regionErr *RegionNotFoundError
	if !errors.As(err, &regionErr) {
		t.Fatalf("无效区域应报错, got %v", err)
	}
}

func TestCleanupOriginalRoundTrip(t *testing.T) {
	f := testutil.DefaultFixture()
	f.Rack = "ADEFGHI"
	full := f.Render()
	defer full.Close()

	// 同一截图的两种分辨率
	small := cv.ResizeImage(full, 1280, 720)
	defer small.Close()
	box := f.BoardBox()
	smallBox := BoundingBox{MinX: box.Min.X * 2 / 3, MinY: box.Min.Y * 2 / 3, MaxX: box.Max.X * 2 / 3, MaxY: box.Max.Y * 2 / 3}

	cases := []struct {
		name string
		src  gocv.Mat
		box  BoundingBox
	}{
		{"1920x1080", full, BoundingBox{MinX: box.Min.X, MinY: box.Min.Y, MaxX: box.Max.X, MaxY: box.Max.Y}},
		{"1280x720", small, smallBox},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := CleanupOriginal(c.src, c.box, DefaultCanonicalSize)
			defer out.Close()
			if out.Channels() != 3 {
				t.Errorf("应保留颜色通道: %d", out.Channels())
			}

			path := filepath.Join(t.TempDir(), "clean.png")
			if err := cv.WriteImage(path, out); err != nil {
				t.Fatalf("保存失败: %v", err)
			}
			gray, err := cv.LoadGrayscale(path)
			if err != nil {
				t.Fatalf("读取失败: %v", err)
			}
			defer gray.Close()

			if gray.Cols() != DefaultCanonicalSize.X || gray.Rows() != DefaultCanonicalSize.Y {
				t.Errorf("尺寸 = %dx%d, want %v", gray.Cols(), gray.Rows(), DefaultCanonicalSize)
			}
		})
	}
}
