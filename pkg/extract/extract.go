// Package extract 将截图转换为棋盘状态
//
// 处理流程: 分辨率配置 -> 锚点定位 -> 裁剪规范化 -> 灰度阈值 -> 模板匹配 -> 网格归并 -> 完整性检查
//
// 基本用法:
//
//	lib, err := templates.NewLibrary("templates", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Close()
//	ex := extract.New(lib, extract.DefaultOptions(), nil)
//	res, err := ex.ExtractFile(ctx, "screenshot.png")
package extract

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/zoeyai/snapreader/internal/logger"
	"github.com/zoeyai/snapreader/pkg/board"
	"github.com/zoeyai/snapreader/pkg/locator"
	"github.com/zoeyai/snapreader/pkg/match"
	"github.com/zoeyai/snapreader/pkg/templates"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
	"github.com/zoeyai/snapreader/pkg/vision/ocr"
)

// Result 一次识别的结果
type Result struct {
	RunID   string               `json:"run_id"`
	Profile templates.ProfileKey `json:"profile"`
	Box     locator.BoundingBox  `json:"box"`
	Anchors []locator.AnchorHit  `json:"anchors"`
	State   *board.State         `json:"state"`
	Raw     []board.RawMatch     `json:"-"`
	Elapsed time.Duration        `json:"elapsed"`
	// Warning 识别不完整时非空，State 仍然可用
	Warning  *board.PartialRecognitionWarning `json:"warning,omitempty"`
	DebugDir string                           `json:"debug_dir,omitempty"`
}

// Extractor 识别器，模板库只读共享，可被多个 goroutine 同时使用
type Extractor struct {
	lib  *templates.Library
	opts Options
	ocr  ocr.Recognizer
}

// New 创建识别器，recognizer 为 nil 时不做 OCR 补充
func New(lib *templates.Library, opts Options, recognizer ocr.Recognizer) *Extractor {
	return &Extractor{lib: lib, opts: opts, ocr: recognizer}
}

// Options 返回识别器的默认参数
func (e *Extractor) Options() Options {
	return e.opts
}

// ExtractFile 读取截图文件并识别
func (e *Extractor) ExtractFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	img, err := cv.ReadImage(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return e.Extract(ctx, img, opts...)
}

// ExtractImage 识别 image.Image 格式的截图
func (e *Extractor) ExtractImage(ctx context.Context, img image.Image, opts ...Option) (*Result, error) {
	mat, err := cv.ImageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return e.Extract(ctx, mat, opts...)
}

// Extract 识别截图中的棋盘与字母架
func (e *Extractor) Extract(ctx context.Context, screenshot gocv.Mat, opts ...Option) (*Result, error) {
	start := time.Now()

	o := e.opts
	for _, opt := range opts {
		opt(&o)
	}

	if screenshot.Empty() {
		return nil, fmt.Errorf("截图为空")
	}

	runID := uuid.NewString()
	log := logger.Default().With("run", runID[:8])

	key := o.Profile
	if key.Width == 0 || key.Height == 0 {
		key = templates.ProfileKey{Width: screenshot.Cols(), Height: screenshot.Rows()}
	}
	set, err := e.lib.Load(key)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc := &locator.Locator{
		Threshold:   o.AnchorThreshold,
		Geometry:    o.Geometry,
		OffsetScale: set.Profile.ScaleFor(templates.ScaleBoard).Y,
		Supported:   e.lib.Registry().Supported(),
	}
	box, hits, err := loc.LocateBoard(screenshot, set.Anchors)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 规范化模式下字形模板使用参考尺寸
	glyphs := set
	size := image.Point{}
	if o.Normalize {
		size = o.CanonicalSize
		glyphs, err = e.lib.Load(e.lib.Registry().DefaultKey())
		if err != nil {
			return nil, err
		}
	}

	crop := locator.CleanupOriginal(screenshot, box, size)
	defer crop.Close()
	if crop.Empty() {
		return nil, fmt.Errorf("棋盘区域裁剪失败: %s", box)
	}

	gray := cv.GrayThreshold(crop)
	defer gray.Close()

	grid := board.NewGrid(gray.Cols(), gray.Rows(), o.Split)

	matchOpts := []match.Option{match.WithThreshold(o.Threshold)}
	if o.Workers > 0 {
		matchOpts = append(matchOpts, match.WithWorkers(o.Workers))
	}
	engine := match.New(matchOpts...)

	boardMatches, err := engine.MatchAll(ctx, gray, board.KindBoard, glyphs.Board)
	if err != nil {
		return nil, fmt.Errorf("棋盘匹配失败: %w", err)
	}
	rackMatches, err := engine.MatchAll(ctx, gray, board.KindRack, glyphs.Rack)
	if err != nil {
		return nil, fmt.Errorf("字母架匹配失败: %w", err)
	}

	raw := make([]board.RawMatch, 0, len(boardMatches)+len(rackMatches))
	raw = append(raw, boardMatches...)
	raw = append(raw, rackMatches...)
	state := board.Resolve(raw, grid)

	if e.ocr != nil {
		e.fillRack(ctx, log, crop, gray, grid, state, o.OCRMinConfidence)
	}

	res := &Result{
		RunID:   runID,
		Profile: set.Profile.Key,
		Box:     box,
		Anchors: hits,
		State:   state,
		Raw:     raw,
		Warning: board.Check(state, o.Expect),
	}

	if o.Debug {
		dir, err := writeDebug(o.DebugDir, runID, crop, grid, state)
		if err != nil {
			log.Warn("调试输出失败: %v", err)
		} else {
			res.DebugDir = dir
		}
	}

	res.Elapsed = time.Since(start)
	if res.Warning != nil {
		log.Warn("%v", res.Warning)
	}
	logger.LogEvent("EXTRACT", true, float64(res.Elapsed.Milliseconds()),
		fmt.Sprintf("%s: 字母 %d, 奖励格 %d, 字母架 %s",
			res.Profile, len(state.Letters), len(state.Bonuses), fmt.Sprint(state.Rack)))
	return res, nil
}

// fillRack 用 OCR 补充没有模板命中的字母架槽位，空槽位不做识别
func (e *Extractor) fillRack(ctx context.Context, log *logger.Logger, crop, gray gocv.Mat, grid board.Grid, state *board.State, minConf float64) {
	slotW := float64(crop.Cols()) / board.RackSlots
	for _, slot := range state.MissingSlots() {
		if ctx.Err() != nil {
			return
		}
		rect := image.Rect(int(float64(slot)*slotW), int(grid.SplitY), int(float64(slot+1)*slotW), crop.Rows())

		region := cv.CropImage(gray, rect)
		ink := 0
		if !region.Empty() {
			ink = gocv.CountNonZero(region)
		}
		region.Close()
		if ink == 0 {
			continue
		}

		tile := cv.CropImage(crop, rect)
		img, err := cv.MatToImage(tile)
		tile.Close()
		if err != nil {
			log.Warn("槽位 %d 转换失败: %v", slot, err)
			continue
		}

		letter, conf, err := e.ocr.RecognizeLetter(img)
		if err != nil {
			log.Warn("槽位 %d OCR 失败: %v", slot, err)
			continue
		}
		if letter == "" || conf < minConf {
			log.Debug("槽位 %d OCR 结果丢弃: %q (%.2f)", slot, letter, conf)
			continue
		}
		state.SetRackSlot(slot, board.Candidate{Label: letter, Confidence: conf, Source: board.SourceOCR})
		log.Info("槽位 %d OCR 补充: %s (%.2f)", slot, letter, conf)
	}
}
