package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// ModelRepo PaddleOCR 模型与 ONNX Runtime 的下载地址
const ModelRepo = "https://huggingface.co/getcharzp/go-ocr/resolve/main"

// ModelFile 需要下载的单个文件
type ModelFile struct {
	Name string
	// Rel 相对仓库与本地目录的路径
	Rel string
	// Size 预估大小，用于计算进度
	Size int64
}

// ModelStore 本地模型目录
type ModelStore struct {
	Dir     string
	BaseURL string
	Client  *http.Client
}

// DefaultModelDir 默认模型目录: ~/.snapreader/models
func DefaultModelDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(homeDir, ".snapreader", "models")
}

// NewModelStore 创建模型目录管理器，dir 为空时使用默认目录
func NewModelStore(dir string) *ModelStore {
	if dir == "" {
		dir = DefaultModelDir()
	}
	return &ModelStore{Dir: dir, BaseURL: ModelRepo, Client: http.DefaultClient}
}

// onnxRuntimeFile 当前平台的 ONNX Runtime 动态库
func onnxRuntimeFile() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "onnxruntime_" + runtime.GOARCH + ".dylib"
	default:
		return "onnxruntime_" + runtime.GOARCH + ".so"
	}
}

// Files 返回当前平台需要的文件
func (s *ModelStore) Files() []ModelFile {
	return []ModelFile{
		{Name: onnxRuntimeFile(), Rel: "lib/" + onnxRuntimeFile(), Size: 50 << 20},
		{Name: "det.onnx", Rel: "paddle_weights/det.onnx", Size: 3 << 20},
		{Name: "rec.onnx", Rel: "paddle_weights/rec.onnx", Size: 5 << 20},
		{Name: "dict.txt", Rel: "paddle_weights/dict.txt", Size: 200 << 10},
	}
}

func (s *ModelStore) path(f ModelFile) string {
	return filepath.Join(s.Dir, filepath.FromSlash(f.Rel))
}

// Installed 所有文件都已存在
func (s *ModelStore) Installed() bool {
	for _, f := range s.Files() {
		if !fileExists(s.path(f)) {
			return false
		}
	}
	return true
}

// Apply 将模型路径写入配置
func (s *ModelStore) Apply(c Config) Config {
	files := s.Files()
	c.OnnxRuntimeLibPath = s.path(files[0])
	c.DetModelPath = s.path(files[1])
	c.RecModelPath = s.path(files[2])
	c.DictPath = s.path(files[3])
	return c
}

// Install 下载缺失的文件，onProgress 接收百分比 (0-100)
func (s *ModelStore) Install(ctx context.Context, onProgress func(float64)) error {
	files := s.Files()
	var total, done int64
	for _, f := range files {
		total += f.Size
	}

	for _, f := range files {
		dest := s.path(f)
		if fileExists(dest) {
			done += f.Size
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("创建目录失败: %w", err)
		}

		base := done
		err := s.download(ctx, s.BaseURL+"/"+f.Rel, dest, func(n int64) {
			if onProgress != nil {
				onProgress(min(100, float64(base+n)/float64(total)*100))
			}
		})
		if err != nil {
			return fmt.Errorf("下载 %s 失败: %w", f.Name, err)
		}
		done += f.Size
	}

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// progressWriter 统计已写入字节数
type progressWriter struct {
	n  int64
	fn func(int64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	w.fn(w.n)
	return len(p), nil
}

// download 先写临时文件，完成后重命名
func (s *ModelStore) download(ctx context.Context, url, dest string, onBytes func(int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %s", resp.Status)
	}

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	_, err = io.Copy(io.MultiWriter(out, &progressWriter{fn: onBytes}), resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
