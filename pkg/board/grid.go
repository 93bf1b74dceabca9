package board

// DefaultSplit 棋盘/字母架分界线占图像高度的比例
const DefaultSplit = 0.85

// GridPoint 网格坐标点，棋盘点的 Slot 为 -1，字母架点的 Col/Row 为 -1
type GridPoint struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Col  int     `json:"col"`
	Row  int     `json:"row"`
	Slot int     `json:"slot"`
}

// Grid 规范化图像上的坐标表
type Grid struct {
	Board  []GridPoint
	Rack   []GridPoint
	SplitY float64
	Width  int
	Height int
}

// BuildGridCoordinates 使用默认分界比例计算坐标表
func BuildGridCoordinates(width, height int) (boardPoints, rackPoints []GridPoint) {
	return BuildGridCoordinatesWithSplit(width, height, DefaultSplit)
}

// BuildGridCoordinatesWithSplit 计算 56 个棋盘格中心 (行优先) 与 7 个字母架槽位中心
// 棋盘覆盖整个宽度与 split 以上的高度，字母架点位于分界线上
func BuildGridCoordinatesWithSplit(width, height int, split float64) (boardPoints, rackPoints []GridPoint) {
	if split <= 0 || split >= 1 {
		split = DefaultSplit
	}
	w := float64(width)
	splitY := float64(height) * split

	cellW := w / Cols
	cellH := splitY / Rows

	boardPoints = make([]GridPoint, 0, Cols*Rows)
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			boardPoints = append(boardPoints, GridPoint{
				X:    (float64(col) + 0.5) * cellW,
				Y:    (float64(row) + 0.5) * cellH,
				Col:  col,
				Row:  row,
				Slot: -1,
			})
		}
	}

	slotW := w / RackSlots
	rackPoints = make([]GridPoint, 0, RackSlots)
	for slot := 0; slot < RackSlots; slot++ {
		rackPoints = append(rackPoints, GridPoint{
			X:    (float64(slot) + 0.5) * slotW,
			Y:    splitY,
			Col:  -1,
			Row:  -1,
			Slot: slot,
		})
	}
	return boardPoints, rackPoints
}

// NewGrid 构造指定尺寸的坐标表
func NewGrid(width, height int, split float64) Grid {
	if split <= 0 || split >= 1 {
		split = DefaultSplit
	}
	b, r := BuildGridCoordinatesWithSplit(width, height, split)
	return Grid{
		Board:  b,
		Rack:   r,
		SplitY: float64(height) * split,
		Width:  width,
		Height: height,
	}
}

// nearest 返回距离 (x, y) 最近的点下标
// 距离相同时取表中靠前的点，棋盘表为行优先，即先行后列
func nearest(points []GridPoint, x, y float64) int {
	best, bestDist := -1, 0.0
	for i, p := range points {
		dx, dy := p.X-x, p.Y-y
		d := dx*dx + dy*dy
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
