package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/zoeyai/snapreader/internal/logger"
	"github.com/zoeyai/snapreader/pkg/config"
	"github.com/zoeyai/snapreader/pkg/templates"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

func main() {
	def := templates.DefaultCalibrateOptions()
	var (
		input       = flag.String("input", "", "截图文件路径 (必填)")
		templateDir = flag.String("templates", "templates", "模板目录")
		width       = flag.Int("width", 0, "屏幕宽度 (默认取截图宽度)")
		height      = flag.Int("height", 0, "屏幕高度 (默认取截图高度)")
		device      = flag.String("device", "", "设备标签")
		minScale    = flag.Float64("min-scale", def.MinScale, "最小缩放比例")
		maxScale    = flag.Float64("max-scale", def.MaxScale, "最大缩放比例")
		steps       = flag.Int("steps", def.Steps, "缩放步数")
		threshold   = flag.Float64("threshold", def.Threshold, "匹配阈值")
		configFile  = flag.String("config", "", "配置文件路径")
		save        = flag.Bool("save", false, "将结果写入配置文件的 profiles")
		verbose     = flag.Bool("v", false, "输出每个模板的结果")
	)
	flag.Parse()

	if *input == "" {
		fmt.Println("[ERROR] 请使用 -input 指定截图")
		flag.Usage()
		os.Exit(2)
	}

	shot, err := cv.ReadImage(*input)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	defer shot.Close()

	key := templates.ProfileKey{Width: *width, Height: *height, Device: *device}
	if key.Width == 0 || key.Height == 0 {
		key.Width, key.Height = cv.GetResolution(shot)
	}

	lib, err := templates.NewLibrary(*templateDir, nil)
	if err != nil {
		fmt.Printf("[ERROR] 加载模板失败: %v\n", err)
		os.Exit(2)
	}
	defer lib.Close()

	logger.Info("校准 %s: 缩放 %.2f~%.2f, %d 步", key, *minScale, *maxScale, *steps)
	cal, err := templates.Calibrate(shot, lib, key, templates.CalibrateOptions{
		Threshold: *threshold,
		MinScale:  *minScale,
		MaxScale:  *maxScale,
		Steps:     *steps,
	})
	if err != nil {
		fmt.Printf("[ERROR] 校准失败: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		for _, s := range cal.Samples {
			fmt.Printf("  %-8s %-10s scale=%.3f conf=%.3f\n", s.ID, s.Group, s.Scale, s.Confidence)
		}
		fmt.Println()
	}

	groups := make([]string, 0, len(cal.Stats))
	for g := range cal.Stats {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	fmt.Printf("分辨率配置: %s\n", key)
	fmt.Printf("%-12s %8s %8s %6s\n", "类别", "均值", "标准差", "样本")
	for _, g := range groups {
		s := cal.Stats[g]
		fmt.Printf("%-12s %8.3f %8.3f %6d\n", g, s.Mean, s.StdDev, s.Count)
	}
	if len(groups) == 0 {
		fmt.Println("[WARN] 没有模板超过阈值，请调整缩放范围或阈值")
		os.Exit(1)
	}

	profile := cal.Profile()
	snippet := config.ProfileConfig{
		Width:  key.Width,
		Height: key.Height,
		Device: key.Device,
		Scales: profile.Scales,
	}
	data, _ := json.MarshalIndent(snippet, "", "  ")
	fmt.Println()
	fmt.Println("配置片段 (profiles):")
	fmt.Println(string(data))

	if *save {
		manager := config.GetDefaultManager()
		if *configFile != "" {
			manager = config.NewManagerWithFile(*configFile)
		}
		cfg, err := manager.Load()
		if err != nil {
			fmt.Printf("[WARN] 加载配置失败: %v\n", err)
		}
		cfg.Profiles = upsertProfile(cfg.Profiles, snippet)
		if err := manager.Save(cfg); err != nil {
			fmt.Printf("[ERROR] 保存配置失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[INFO] 配置已保存到 %s\n", manager.GetConfigFile())
	}
}

// upsertProfile 替换同一分辨率的已有配置
func upsertProfile(profiles []config.ProfileConfig, p config.ProfileConfig) []config.ProfileConfig {
	for i, existing := range profiles {
		if existing.Width == p.Width && existing.Height == p.Height && existing.Device == p.Device {
			profiles[i] = p
			return profiles
		}
	}
	return append(profiles, p)
}
