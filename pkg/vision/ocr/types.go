package ocr

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config OCR 配置
type Config struct {
	// Engine 引擎: paddle, tesseract, none
	Engine string `json:"engine" mapstructure:"engine"`
	// OnnxRuntimeLibPath ONNX Runtime 动态库路径 (paddle)
	OnnxRuntimeLibPath string `json:"onnx_runtime_lib_path" mapstructure:"onnx_runtime_lib_path"`
	// DetModelPath 检测模型路径 (paddle)
	DetModelPath string `json:"det_model_path" mapstructure:"det_model_path"`
	// RecModelPath 识别模型路径 (paddle)
	RecModelPath string `json:"rec_model_path" mapstructure:"rec_model_path"`
	// DictPath 字典文件路径 (paddle)
	DictPath string `json:"dict_path" mapstructure:"dict_path"`
	// Language 语言 (tesseract, 默认 eng)
	Language string `json:"language" mapstructure:"language"`
	// TessdataPrefix tessdata 目录 (tesseract)
	TessdataPrefix string `json:"tessdata_prefix" mapstructure:"tessdata_prefix"`
}

// DefaultConfig 默认配置: 不启用 OCR
// 模型路径优先使用已下载的模型目录，否则按可执行文件位置搜索
func DefaultConfig() Config {
	c := Config{
		Engine:             EngineNone,
		OnnxRuntimeLibPath: getDefaultOnnxRuntimePath(),
		DetModelPath:       getDefaultModelPath("det.onnx"),
		RecModelPath:       getDefaultModelPath("rec.onnx"),
		DictPath:           getDefaultModelPath("dict.txt"),
		Language:           "eng",
	}
	if store := NewModelStore(""); store.Installed() {
		c = store.Apply(c)
	}
	return c
}

// PaddleAvailable 检查 PaddleOCR 所需文件是否齐全
func (c Config) PaddleAvailable() bool {
	return fileExists(c.OnnxRuntimeLibPath) &&
		fileExists(c.DetModelPath) &&
		fileExists(c.RecModelPath) &&
		fileExists(c.DictPath)
}

// getExecutableDir 获取可执行文件所在目录
func getExecutableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "."
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "."
	}
	return filepath.Dir(execPath)
}

// getDefaultOnnxRuntimePath 获取默认的 ONNX Runtime 库路径
func getDefaultOnnxRuntimePath() string {
	execDir := getExecutableDir()

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			filepath.Join(execDir, "libonnxruntime.dylib"),
			"models/lib/onnxruntime_arm64.dylib",
			"models/lib/onnxruntime_amd64.dylib",
		}
	case "windows":
		paths = []string{
			filepath.Join(execDir, "onnxruntime.dll"),
			"models/lib/onnxruntime.dll",
			"onnxruntime.dll",
		}
	default:
		paths = []string{
			filepath.Join(execDir, "libonnxruntime.so"),
			"models/lib/onnxruntime_arm64.so",
			"models/lib/onnxruntime_amd64.so",
			"./lib/onnxruntime.so",
		}
	}

	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return paths[len(paths)-1]
}

// getDefaultModelPath 获取默认的模型路径
func getDefaultModelPath(filename string) string {
	paths := []string{
		filepath.Join(getExecutableDir(), "models", "paddle_weights", filename),
		filepath.Join("models", "paddle_weights", filename),
	}
	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return paths[0]
}

// fileExists 检查文件是否存在
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
