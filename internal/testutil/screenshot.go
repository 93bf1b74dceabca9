package testutil

import (
	"image"

	"gocv.io/x/gocv"
)

// 合成截图的几何参数 (1920x1080)
const (
	ScreenWidth  = 1920
	ScreenHeight = 1080
	BoardWidth   = 644
	BoardHeight  = 680
	TopOffset    = 46
	BottomOffset = 8
	// RackCenterY 字母架中心相对棋盘顶部的偏移
	RackCenterY = 620
)

// Fixture 描述一张合成截图的内容
type Fixture struct {
	// Letters 棋盘字母，键为 (列, 行)
	Letters map[image.Point]string
	// Bonuses 奖励格，键为 (列, 行)
	Bonuses map[image.Point]string
	// Rack 字母架内容，按槽位排列，空格表示空槽
	Rack string
	// BackAnchor 使用的顶部锚点: back 或 zero-snaps，为空时不绘制
	BackAnchor string
	// NoShuffle 不绘制 shuffle 图标
	NoShuffle bool
	// BoardLeft 棋盘左边缘 x 坐标
	BoardLeft int
	// BackShift 顶部锚点相对棋盘左边缘的水平偏移
	BackShift int
}

// DefaultFixture 返回带 back 与 shuffle 图标的空白布局
func DefaultFixture() Fixture {
	return Fixture{
		Letters:    map[image.Point]string{},
		Bonuses:    map[image.Point]string{},
		BackAnchor: "back",
		BoardLeft:  638,
	}
}

// BoardBox 返回该布局下棋盘区域
func (f Fixture) BoardBox() image.Rectangle {
	top := 100 + BackSize + TopOffset
	return image.Rect(f.BoardLeft, top, f.BoardLeft+BoardWidth, top+BoardHeight)
}

// CellCenter 返回棋盘格中心的截图坐标
func (f Fixture) CellCenter(col, row int) image.Point {
	box := f.BoardBox()
	cellW := float64(BoardWidth) / 8
	cellH := float64(BoardHeight) * 0.85 / 7
	return image.Pt(
		box.Min.X+int((float64(col)+0.5)*cellW),
		box.Min.Y+int((float64(row)+0.5)*cellH),
	)
}

// SlotCenter 返回字母架槽位中心的截图坐标
func (f Fixture) SlotCenter(slot int) image.Point {
	box := f.BoardBox()
	slotW := float64(BoardWidth) / 7
	return image.Pt(box.Min.X+int((float64(slot)+0.5)*slotW), box.Min.Y+RackCenterY)
}

// Render 生成 BGR 截图
func (f Fixture) Render() gocv.Mat {
	shot := BlankBGR(ScreenWidth, ScreenHeight)
	box := f.BoardBox()

	if f.BackAnchor != "" {
		a := Anchor(f.BackAnchor)
		Paste(&shot, a, box.Min.X+f.BackShift, box.Min.Y-TopOffset-BackSize)
		a.Close()
	}
	if !f.NoShuffle {
		a := Anchor("shuffle")
		Paste(&shot, a, box.Max.X-ShuffleWidth, box.Max.Y+BottomOffset)
		a.Close()
	}

	for cell, label := range f.Bonuses {
		g := Glyph(label, TileSize)
		c := f.CellCenter(cell.X, cell.Y)
		PasteCentered(&shot, g, c.X, c.Y)
		g.Close()
	}
	for cell, label := range f.Letters {
		g := Glyph(label, TileSize)
		c := f.CellCenter(cell.X, cell.Y)
		PasteCentered(&shot, g, c.X, c.Y)
		g.Close()
	}
	for slot, r := range f.Rack {
		if r == ' ' || slot > 6 {
			continue
		}
		g := RackGlyph(string(r), TileSize)
		c := f.SlotCenter(slot)
		PasteCentered(&shot, g, c.X, c.Y)
		g.Close()
	}
	return shot
}
