// Package ocr 提供字母架空槽位的单字符识别
//
// 仅作为模板匹配失败时的补充手段，支持两种引擎:
//   - paddle: 基于 go-ocr 的 PaddleOCR (ONNX Runtime)
//   - tesseract: 基于 gosseract 的 Tesseract，单字符模式
//
// 基本用法:
//
//	engine, err := ocr.New(ocr.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//	letter, conf, err := engine.RecognizeLetter(img)
package ocr

import (
	"fmt"
	"image"
	"strings"
	"unicode"
)

// 引擎名称
const (
	EnginePaddle    = "paddle"
	EngineTesseract = "tesseract"
	EngineNone      = "none"
)

// Recognizer 单字母识别器
type Recognizer interface {
	// RecognizeLetter 返回 A-Z 中的一个字母与置信度 (0-1)，无法识别时返回空字符串
	RecognizeLetter(img image.Image) (string, float64, error)
}

// Engine 可释放资源的识别器
type Engine interface {
	Recognizer
	Close() error
}

// New 按配置创建识别引擎，引擎为空或 none 时返回 nil
// 初始化失败时返回 nil 接口，不会包装空指针
func New(config Config) (Engine, error) {
	switch strings.ToLower(config.Engine) {
	case "", EngineNone:
		return nil, nil
	case EnginePaddle:
		r, err := NewPaddleRecognizer(config)
		if err != nil {
			return nil, err
		}
		return r, nil
	case EngineTesseract:
		r, err := NewTesseractRecognizer(config)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("未知的 OCR 引擎: %s", config.Engine)
	}
}

// letterFixes 常见的字符误识别
var letterFixes = map[rune]rune{
	'0': 'O',
	'1': 'I',
	'|': 'I',
	'5': 'S',
	'8': 'B',
}

// normalizeLetter 从识别文本中取第一个有效字母
func normalizeLetter(text string) string {
	for _, r := range strings.TrimSpace(text) {
		if fixed, ok := letterFixes[r]; ok {
			r = fixed
		}
		r = unicode.ToUpper(r)
		if r >= 'A' && r <= 'Z' {
			return string(r)
		}
	}
	return ""
}
