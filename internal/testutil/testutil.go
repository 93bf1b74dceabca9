// Package testutil 生成测试用的合成模板与截图
//
// 所有图像均为黑底白字，尺寸与 1920x1080 参考分辨率一致。
package testutil

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// 参考分辨率下的模板尺寸
const (
	TileSize      = 80
	BackSize      = 50
	ShuffleWidth  = 58
	ShuffleHeight = 50
)

var white = color.RGBA{255, 255, 255, 255}

// Blank 创建纯黑单通道图
func Blank(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC1)
}

// BlankBGR 创建纯黑三通道图
func BlankBGR(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
}

// Glyph 渲染棋盘字母/奖励格模板
func Glyph(label string, size int) gocv.Mat {
	img := image.NewGray(image.Rect(0, 0, size, size))
	fontSize := float64(size) * 0.55
	drawCentered(img, label, fontSize)

	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		panic(fmt.Sprintf("glyph %s: %v", label, err))
	}
	return mat
}

// RackGlyph 渲染字母架模板 (字母 + 边框)
func RackGlyph(label string, size int) gocv.Mat {
	mat := Glyph(label, size)
	gocv.Rectangle(&mat, image.Rect(2, 2, size-3, size-3), white, 3)
	return mat
}

// drawCentered 在图像中心绘制文字
func drawCentered(img *image.Gray, label string, fontSize float64) {
	size := img.Bounds().Dx()
	w, err := cv.MeasureLabel(label, fontSize)
	if err != nil {
		panic(err)
	}
	capHeight := int(fontSize * 0.72)
	baseline := (img.Bounds().Dy() + capHeight) / 2
	if err := cv.DrawLabelBaseline(img, (size-w)/2, baseline, label, fontSize, color.White); err != nil {
		panic(err)
	}
}

// Anchor 渲染锚点图标: back (左箭头), zero-snaps (带孔方块), shuffle (交叉线)
func Anchor(name string) gocv.Mat {
	switch name {
	case "back":
		m := Blank(BackSize, BackSize)
		pts := gocv.NewPointsVectorFromPoints([][]image.Point{{
			{4, 25}, {24, 5}, {24, 17}, {46, 17}, {46, 33}, {24, 33}, {24, 45},
		}})
		gocv.FillPoly(&m, pts, white)
		pts.Close()
		return m
	case "zero-snaps":
		m := Blank(BackSize, BackSize)
		gocv.Rectangle(&m, image.Rect(5, 5, 45, 45), white, -1)
		gocv.Rectangle(&m, image.Rect(15, 12, 28, 38), color.RGBA{0, 0, 0, 255}, -1)
		return m
	case "shuffle":
		m := Blank(ShuffleWidth, ShuffleHeight)
		gocv.Line(&m, image.Pt(4, 6), image.Pt(54, 44), white, 6)
		gocv.Line(&m, image.Pt(4, 44), image.Pt(54, 6), white, 6)
		gocv.Rectangle(&m, image.Rect(44, 2, 56, 12), white, -1)
		return m
	default:
		panic("unknown anchor " + name)
	}
}

// Paste 将 src 复制到 dst 的 (x, y) 位置，自动处理通道数差异
func Paste(dst *gocv.Mat, src gocv.Mat, x, y int) {
	patch := src
	if dst.Channels() == 3 && src.Channels() == 1 {
		patch = gocv.NewMat()
		gocv.CvtColor(src, &patch, gocv.ColorGrayToBGR)
		defer patch.Close()
	}
	region := dst.Region(image.Rect(x, y, x+patch.Cols(), y+patch.Rows()))
	patch.CopyTo(&region)
	region.Close()
}

// PasteCentered 将 src 以 (cx, cy) 为中心复制到 dst
func PasteCentered(dst *gocv.Mat, src gocv.Mat, cx, cy int) {
	Paste(dst, src, cx-src.Cols()/2, cy-src.Rows()/2)
}

// Letters 所有字母
func Letters() []string {
	out := make([]string, 0, 26)
	for c := 'A'; c <= 'Z'; c++ {
		out = append(out, string(c))
	}
	return out
}

// Bonuses 所有奖励格代码
func Bonuses() []string {
	return []string{"2L", "3L", "2W", "3W"}
}

// WriteTemplates 在 dir 下写出完整的模板目录
func WriteTemplates(tb testing.TB, dir string) {
	tb.Helper()

	write := func(path string, m gocv.Mat) {
		defer m.Close()
		if err := cv.WriteImage(path, m); err != nil {
			tb.Fatalf("写入模板失败: %v", err)
		}
	}

	for _, l := range Letters() {
		write(filepath.Join(dir, "letters", l+".png"), Glyph(l, TileSize))
		write(filepath.Join(dir, "rack", l+".png"), RackGlyph(l, TileSize))
	}
	for _, b := range Bonuses() {
		write(filepath.Join(dir, "bonuses", b+".png"), Glyph(b, TileSize))
	}
	for _, a := range []string{"back", "zero-snaps", "shuffle"} {
		write(filepath.Join(dir, "anchors", a+".png"), Anchor(a))
	}
}
