package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/zoeyai/snapreader/internal/logger"
)

const letterWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// TesseractRecognizer 基于 Tesseract 的单字符识别器
type TesseractRecognizer struct {
	client *gosseract.Client
	mu     sync.Mutex
}

// NewTesseractRecognizer 创建 Tesseract 识别器
func NewTesseractRecognizer(config Config) (*TesseractRecognizer, error) {
	client := gosseract.NewClient()

	if config.TessdataPrefix != "" {
		client.TessdataPrefix = config.TessdataPrefix
	}
	lang := config.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置 OCR 语言失败: %w", err)
	}
	// 单字母不需要词典
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置页面分割模式失败: %w", err)
	}
	if err := client.SetWhitelist(letterWhitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置字符白名单失败: %w", err)
	}

	logger.Info("Tesseract 引擎初始化成功 (%s)", lang)
	return &TesseractRecognizer{client: client}, nil
}

// RecognizeLetter 识别单个字母，置信度取字符级结果
func (r *TesseractRecognizer) RecognizeLetter(img image.Image) (string, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return "", 0, fmt.Errorf("OCR 引擎已关闭")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", 0, fmt.Errorf("图像编码失败: %w", err)
	}

	start := time.Now()
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", 0, fmt.Errorf("设置 OCR 图像失败: %w", err)
	}

	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		logger.LogEvent("OCR", false, elapsed, "识别失败")
		return "", 0, fmt.Errorf("OCR 识别失败: %w", err)
	}

	var letter string
	var best float64
	for _, b := range boxes {
		l := normalizeLetter(b.Word)
		conf := b.Confidence / 100
		if l != "" && conf > best {
			letter, best = l, conf
		}
	}

	logger.LogEvent("OCR", letter != "", elapsed, fmt.Sprintf("tesseract: %q (%.2f)", letter, best))
	return letter, best, nil
}

// Close 释放资源
func (r *TesseractRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
