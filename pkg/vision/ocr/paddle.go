package ocr

import (
	"fmt"
	"image"
	"sync"
	"time"

	goocr "github.com/getcharzp/go-ocr"

	"github.com/zoeyai/snapreader/internal/logger"
)

// PaddleRecognizer 基于 PaddleOCR 的识别器
type PaddleRecognizer struct {
	engine goocr.Engine
	config Config
	mu     sync.Mutex
}

// NewPaddleRecognizer 创建 PaddleOCR 识别器
func NewPaddleRecognizer(config Config) (*PaddleRecognizer, error) {
	engine, err := goocr.NewPaddleOcrEngine(goocr.Config{
		OnnxRuntimeLibPath: config.OnnxRuntimeLibPath,
		DetModelPath:       config.DetModelPath,
		RecModelPath:       config.RecModelPath,
		DictPath:           config.DictPath,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 OCR 引擎失败: %w", err)
	}

	logger.Info("PaddleOCR 引擎初始化成功")
	return &PaddleRecognizer{engine: engine, config: config}, nil
}

// RecognizeLetter 识别单个字母，取得分最高的文本
func (r *PaddleRecognizer) RecognizeLetter(img image.Image) (string, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil {
		return "", 0, fmt.Errorf("OCR 引擎已关闭")
	}

	start := time.Now()
	results, err := r.engine.RunOCR(img)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		logger.LogEvent("OCR", false, elapsed, "识别失败")
		return "", 0, fmt.Errorf("OCR 识别失败: %w", err)
	}

	var letter string
	var best float64
	for _, res := range results {
		l := normalizeLetter(res.Text)
		if l != "" && float64(res.Score) > best {
			letter, best = l, float64(res.Score)
		}
	}

	logger.LogEvent("OCR", letter != "", elapsed, fmt.Sprintf("paddle: %q (%.2f)", letter, best))
	return letter, best, nil
}

// Close 释放资源
func (r *PaddleRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		r.engine.Destroy()
		r.engine = nil
	}
	return nil
}
