// Package config 管理 snapreader 的配置文件
//
// 配置来源优先级: 环境变量 (SNAPREADER_*) > 配置文件 (JSON) > 默认值
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/zoeyai/snapreader/pkg/locator"
	"github.com/zoeyai/snapreader/pkg/templates"
	"github.com/zoeyai/snapreader/pkg/vision/ocr"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "SNAPREADER"

// ResolutionAuto 自动检测屏幕分辨率
const ResolutionAuto = "auto"

// SolverConfig 求解服务配置
type SolverConfig struct {
	URL            string `json:"url" mapstructure:"url"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	Dictionary     int    `json:"dictionary" mapstructure:"dictionary"`
}

// CaptureConfig 截图配置
type CaptureConfig struct {
	WindowTitle     string `json:"window_title" mapstructure:"window_title"`
	ProcessName     string `json:"process_name" mapstructure:"process_name"`
	Activate        bool   `json:"activate" mapstructure:"activate"`
	WatchIntervalMs int    `json:"watch_interval_ms" mapstructure:"watch_interval_ms"`
	// WatchDistance 感知哈希距离不超过该值的帧视为未变化
	WatchDistance int `json:"watch_distance" mapstructure:"watch_distance"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file" mapstructure:"file"`
}

// ProfileConfig 额外的分辨率配置
type ProfileConfig struct {
	Width  int                        `json:"width" mapstructure:"width"`
	Height int                        `json:"height" mapstructure:"height"`
	Device string                     `json:"device,omitempty" mapstructure:"device"`
	Scales map[string]templates.Scale `json:"scales" mapstructure:"scales"`
}

// Config 完整配置
type Config struct {
	Resolution       string           `json:"resolution" mapstructure:"resolution"`
	Device           string           `json:"device" mapstructure:"device"`
	TemplateDir      string           `json:"template_dir" mapstructure:"template_dir"`
	Debug            bool             `json:"debug" mapstructure:"debug"`
	DebugDir         string           `json:"debug_dir" mapstructure:"debug_dir"`
	DryRun           bool             `json:"dry_run" mapstructure:"dry_run"`
	Threshold        float64          `json:"threshold" mapstructure:"threshold"`
	AnchorThreshold  float64          `json:"anchor_threshold" mapstructure:"anchor_threshold"`
	Normalize        bool             `json:"normalize" mapstructure:"normalize"`
	CanonicalWidth   int              `json:"canonical_width" mapstructure:"canonical_width"`
	CanonicalHeight  int              `json:"canonical_height" mapstructure:"canonical_height"`
	Split            float64          `json:"split" mapstructure:"split"`
	Workers          int              `json:"workers" mapstructure:"workers"`
	MinBoardCells    int              `json:"min_board_cells" mapstructure:"min_board_cells"`
	ExpectedRack     int              `json:"expected_rack" mapstructure:"expected_rack"`
	OCRMinConfidence float64          `json:"ocr_min_confidence" mapstructure:"ocr_min_confidence"`
	Geometry         locator.Geometry `json:"geometry" mapstructure:"geometry"`
	OCR              ocr.Config       `json:"ocr" mapstructure:"ocr"`
	Solver           SolverConfig     `json:"solver" mapstructure:"solver"`
	Capture          CaptureConfig    `json:"capture" mapstructure:"capture"`
	Log              LogConfig        `json:"log" mapstructure:"log"`
	Profiles         []ProfileConfig  `json:"profiles" mapstructure:"profiles"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	ocrCfg := ocr.DefaultConfig()
	return &Config{
		Resolution:       ResolutionAuto,
		TemplateDir:      "templates",
		DebugDir:         "output",
		Threshold:        0.85,
		AnchorThreshold:  locator.DefaultThreshold,
		Normalize:        true,
		CanonicalWidth:   locator.DefaultCanonicalSize.X,
		CanonicalHeight:  locator.DefaultCanonicalSize.Y,
		Split:            0.85,
		ExpectedRack:     7,
		OCRMinConfidence: 0.6,
		Geometry:         locator.DefaultGeometry(),
		OCR:              ocrCfg,
		Solver: SolverConfig{
			URL:            "https://www.scrabulizer.com/solver/results",
			TimeoutSeconds: 15,
			Dictionary:     4,
		},
		Capture: CaptureConfig{
			WindowTitle:     "Snap Attack",
			ProcessName:     "Microsoft.WordamentTapSnap",
			Activate:        true,
			WatchIntervalMs: 2000,
			WatchDistance:   4,
		},
		Log: LogConfig{Level: "info"},
	}
}

// setDefaults 注册默认值，环境变量覆盖只对已注册的键生效
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("resolution", c.Resolution)
	v.SetDefault("device", c.Device)
	v.SetDefault("template_dir", c.TemplateDir)
	v.SetDefault("debug", c.Debug)
	v.SetDefault("debug_dir", c.DebugDir)
	v.SetDefault("dry_run", c.DryRun)
	v.SetDefault("threshold", c.Threshold)
	v.SetDefault("anchor_threshold", c.AnchorThreshold)
	v.SetDefault("normalize", c.Normalize)
	v.SetDefault("canonical_width", c.CanonicalWidth)
	v.SetDefault("canonical_height", c.CanonicalHeight)
	v.SetDefault("split", c.Split)
	v.SetDefault("workers", c.Workers)
	v.SetDefault("min_board_cells", c.MinBoardCells)
	v.SetDefault("expected_rack", c.ExpectedRack)
	v.SetDefault("ocr_min_confidence", c.OCRMinConfidence)

	v.SetDefault("geometry.top_offset", c.Geometry.TopOffset)
	v.SetDefault("geometry.bottom_offset", c.Geometry.BottomOffset)
	v.SetDefault("geometry.aspect_ratio", c.Geometry.AspectRatio)
	v.SetDefault("geometry.aspect_tolerance", c.Geometry.AspectTolerance)
	v.SetDefault("geometry.left_edge", string(c.Geometry.LeftEdge))

	v.SetDefault("ocr.engine", c.OCR.Engine)
	v.SetDefault("ocr.onnx_runtime_lib_path", c.OCR.OnnxRuntimeLibPath)
	v.SetDefault("ocr.det_model_path", c.OCR.DetModelPath)
	v.SetDefault("ocr.rec_model_path", c.OCR.RecModelPath)
	v.SetDefault("ocr.dict_path", c.OCR.DictPath)
	v.SetDefault("ocr.language", c.OCR.Language)
	v.SetDefault("ocr.tessdata_prefix", c.OCR.TessdataPrefix)

	v.SetDefault("solver.url", c.Solver.URL)
	v.SetDefault("solver.timeout_seconds", c.Solver.TimeoutSeconds)
	v.SetDefault("solver.dictionary", c.Solver.Dictionary)

	v.SetDefault("capture.window_title", c.Capture.WindowTitle)
	v.SetDefault("capture.process_name", c.Capture.ProcessName)
	v.SetDefault("capture.activate", c.Capture.Activate)
	v.SetDefault("capture.watch_interval_ms", c.Capture.WatchIntervalMs)
	v.SetDefault("capture.watch_distance", c.Capture.WatchDistance)

	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.file", c.Log.File)
}

// ProfileKey 解析当前分辨率配置键，auto 时返回 ok=false
func (c *Config) ProfileKey() (key templates.ProfileKey, ok bool, err error) {
	if strings.EqualFold(c.Resolution, ResolutionAuto) || c.Resolution == "" {
		return templates.ProfileKey{}, false, nil
	}
	key, err = templates.ParseProfileKey(c.Resolution)
	if err != nil {
		return key, false, err
	}
	if c.Device != "" {
		key.Device = strings.ToLower(c.Device)
	}
	return key, true, nil
}

// Registry 返回内置分辨率表加上配置中的额外配置
func (c *Config) Registry() *templates.Registry {
	r := templates.DefaultRegistry()
	for _, p := range c.Profiles {
		r.Register(templates.Profile{
			Key:    templates.ProfileKey{Width: p.Width, Height: p.Height, Device: strings.ToLower(p.Device)},
			Scales: p.Scales,
		})
	}
	return r
}

// Validate 检查配置取值范围
func (c *Config) Validate() error {
	var errs []error
	if c.Threshold <= 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold 应在 (0, 1]: %v", c.Threshold))
	}
	if c.AnchorThreshold <= 0 || c.AnchorThreshold > 1 {
		errs = append(errs, fmt.Errorf("anchor_threshold 应在 (0, 1]: %v", c.AnchorThreshold))
	}
	if c.Split <= 0 || c.Split >= 1 {
		errs = append(errs, fmt.Errorf("split 应在 (0, 1): %v", c.Split))
	}
	if c.CanonicalWidth <= 0 || c.CanonicalHeight <= 0 {
		errs = append(errs, fmt.Errorf("规范尺寸无效: %dx%d", c.CanonicalWidth, c.CanonicalHeight))
	}
	switch c.Geometry.LeftEdge {
	case locator.LeftEdgeAuto, locator.LeftEdgeTrust, locator.LeftEdgeDerive:
	default:
		errs = append(errs, fmt.Errorf("geometry.left_edge 无效: %q", c.Geometry.LeftEdge))
	}
	for i, p := range c.Profiles {
		if p.Width <= 0 || p.Height <= 0 {
			errs = append(errs, fmt.Errorf("profiles[%d] 分辨率无效: %dx%d", i, p.Width, p.Height))
		}
	}
	if _, _, err := c.ProfileKey(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器，配置位于 ~/.snapreader/config.json
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return NewManagerWithDir(filepath.Join(homeDir, ".snapreader"))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithFile 使用指定配置文件创建配置管理器
func NewManagerWithFile(configFile string) *Manager {
	return &Manager{
		configDir:  filepath.Dir(configFile),
		configFile: configFile,
	}
}

// Load 加载配置，文件不存在时使用默认值 (仍会应用环境变量)
// 文件损坏时返回默认配置和错误
func (m *Manager) Load() (*Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(m.configFile); err == nil {
		v.SetConfigFile(m.configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return DefaultConfig(), fmt.Errorf("解析配置文件失败: %s: %w", m.configFile, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}

// Save 保存配置
func (m *Manager) Save(config *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %s: %w", m.configFile, err)
	}
	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*Config, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(config *Config) error {
	return defaultManager.Save(config)
}

// Clear 使用默认管理器清除配置
func Clear() error {
	return defaultManager.Clear()
}
