package extract

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/zoeyai/snapreader/pkg/board"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// 调试输出文件名
const (
	DebugCropFile    = "board.png"
	DebugOverlayFile = "overlay.png"
	DebugStateFile   = "state.txt"
)

var (
	pointColor  = color.RGBA{G: 255, A: 255}
	letterColor = color.RGBA{R: 255, G: 64, B: 64, A: 255}
	bonusColor  = color.RGBA{R: 64, G: 160, B: 255, A: 255}
	splitColor  = color.RGBA{R: 255, G: 255, A: 255}
)

// writeDebug 在 <dir>/<runID>/ 下写入规范化裁剪、标注图与文本网格
func writeDebug(dir, runID string, crop gocv.Mat, grid board.Grid, state *board.State) (string, error) {
	out := filepath.Join(dir, runID)
	if err := cv.WriteImage(filepath.Join(out, DebugCropFile), crop); err != nil {
		return "", err
	}

	overlay, err := renderOverlay(crop, grid, state)
	if err != nil {
		return "", err
	}
	defer overlay.Close()
	if err := cv.WriteImage(filepath.Join(out, DebugOverlayFile), overlay); err != nil {
		return "", err
	}

	path := filepath.Join(out, DebugStateFile)
	if err := os.WriteFile(path, []byte(state.Render()), 0644); err != nil {
		return "", fmt.Errorf("写入调试文件失败: %s: %w", path, err)
	}
	return out, nil
}

// renderOverlay 在裁剪图上标出网格点、分界线与识别结果
func renderOverlay(crop gocv.Mat, grid board.Grid, state *board.State) (gocv.Mat, error) {
	bgr := gocv.NewMat()
	if crop.Channels() == 1 {
		gocv.CvtColor(crop, &bgr, gocv.ColorGrayToBGR)
	} else {
		crop.CopyTo(&bgr)
	}
	defer bgr.Close()

	splitY := int(grid.SplitY)
	gocv.Line(&bgr, image.Pt(0, splitY), image.Pt(bgr.Cols(), splitY), splitColor, 1)
	for _, p := range grid.Board {
		gocv.Circle(&bgr, image.Pt(int(p.X), int(p.Y)), 2, pointColor, -1)
	}
	for _, p := range grid.Rack {
		gocv.Circle(&bgr, image.Pt(int(p.X), int(p.Y)), 3, pointColor, -1)
	}

	src, err := cv.MatToImage(bgr)
	if err != nil {
		return gocv.NewMat(), err
	}
	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	fontSize := max(10.0, float64(grid.Height)/40)
	label := func(p board.GridPoint, text string, col color.Color) error {
		return cv.DrawLabel(canvas, int(p.X)+4, int(p.Y)-int(fontSize), text, fontSize, col)
	}
	for i, p := range grid.Board {
		cell := board.Cell{Col: i % board.Cols, Row: i / board.Cols}
		if l, ok := state.Letters[cell]; ok {
			if err := label(p, l, letterColor); err != nil {
				return gocv.NewMat(), err
			}
		} else if b, ok := state.Bonuses[cell]; ok {
			if err := label(p, b, bonusColor); err != nil {
				return gocv.NewMat(), err
			}
		}
	}
	for _, p := range grid.Rack {
		if c, ok := state.RackSlots[p.Slot]; ok {
			if err := label(p, c.Label, letterColor); err != nil {
				return gocv.NewMat(), err
			}
		}
	}

	return cv.ImageToMat(canvas)
}
