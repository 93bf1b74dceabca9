package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zoeyai/snapreader/internal/logger"
	"github.com/zoeyai/snapreader/pkg/capture"
	"github.com/zoeyai/snapreader/pkg/config"
	"github.com/zoeyai/snapreader/pkg/extract"
	"github.com/zoeyai/snapreader/pkg/locator"
	"github.com/zoeyai/snapreader/pkg/solver"
	"github.com/zoeyai/snapreader/pkg/templates"
	"github.com/zoeyai/snapreader/pkg/vision/ocr"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK       = 0
	exitError    = 1
	exitConfig   = 2
	exitNotFound = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	// 命令行参数
	var (
		input           = flag.String("input", "", "截图文件路径 (为空时截取游戏窗口)")
		width           = flag.Int("width", 0, "屏幕宽度 (覆盖配置)")
		height          = flag.Int("height", 0, "屏幕高度 (覆盖配置)")
		device          = flag.String("device", "", "设备标签 (例: nexus4)")
		templateDir     = flag.String("templates", "", "模板目录")
		debug           = flag.Bool("debug", false, "输出调试图像与详细日志")
		dryRun          = flag.Bool("dry-run", false, "不请求求解服务")
		threshold       = flag.Float64("threshold", 0, "字形匹配阈值")
		anchorThreshold = flag.Float64("anchor-threshold", 0, "锚点匹配阈值")
		ocrEngine       = flag.String("ocr", "", "字母架 OCR 引擎: none, tesseract, paddle")
		configFile      = flag.String("config", "", "配置文件路径")
		saveConfig      = flag.Bool("save", false, "保存配置到本地")
		watch           = flag.Bool("watch", false, "持续截图，画面变化时重新识别")
		jsonOut         = flag.Bool("json", false, "以 JSON 格式输出结果")
		installOCR      = flag.Bool("install-ocr", false, "下载 PaddleOCR 模型")
		showVersion     = flag.Bool("version", false, "显示版本信息")
		showHelp        = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		return exitOK
	}
	if *showHelp {
		printHelp()
		return exitOK
	}

	if *installOCR {
		return installModels()
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("[WARN] 加载 .env 失败: %v\n", err)
	}

	manager := config.GetDefaultManager()
	if *configFile != "" {
		manager = config.NewManagerWithFile(*configFile)
	}
	cfg, err := manager.Load()
	if err != nil {
		fmt.Printf("[WARN] 加载配置失败: %v\n", err)
	}

	// 命令行参数优先级高于配置文件
	if *width > 0 && *height > 0 {
		cfg.Resolution = fmt.Sprintf("%dx%d", *width, *height)
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *templateDir != "" {
		cfg.TemplateDir = *templateDir
	}
	if *debug {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *threshold > 0 {
		cfg.Threshold = *threshold
	}
	if *anchorThreshold > 0 {
		cfg.AnchorThreshold = *anchorThreshold
	}
	if *ocrEngine != "" {
		cfg.OCR.Engine = *ocrEngine
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("[ERROR] 配置无效: %v\n", err)
		return exitConfig
	}

	setupLogger(cfg)
	defer logger.Default().Close()

	if *saveConfig {
		if err := manager.Save(cfg); err != nil {
			fmt.Printf("[WARN] 保存配置失败: %v\n", err)
		} else {
			fmt.Printf("[INFO] 配置已保存到 %s\n", manager.GetConfigFile())
		}
	}

	// 截取窗口时按屏幕分辨率选择配置，读取文件时按截图尺寸选择
	// 检测结果只用于本次运行，不写回配置文件
	if strings.EqualFold(cfg.Resolution, config.ResolutionAuto) && *input == "" {
		if w, h, err := capture.DisplayResolution(); err == nil {
			cfg.Resolution = fmt.Sprintf("%dx%d", w, h)
		} else {
			fmt.Printf("[WARN] 无法检测屏幕分辨率: %v\n", err)
		}
	}

	opts, err := extract.FromConfig(cfg)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		return exitConfig
	}

	lib, err := templates.NewLibrary(cfg.TemplateDir, cfg.Registry())
	if err != nil {
		fmt.Printf("[ERROR] 加载模板失败: %v\n", err)
		return exitConfig
	}
	defer lib.Close()

	engine, err := ocr.New(cfg.OCR)
	if err != nil {
		fmt.Printf("[WARN] OCR 初始化失败，已禁用: %v\n", err)
	}
	var recognizer ocr.Recognizer
	if engine != nil {
		defer engine.Close()
		recognizer = engine
	}

	var slv solver.Solver = solver.DryRun{}
	if !cfg.DryRun {
		slv = solver.NewScrabulizer(cfg.Solver)
	}

	app := &app{
		extractor: extract.New(lib, opts, recognizer),
		solver:    slv,
		jsonOut:   *jsonOut,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *input != "" {
		return app.exitCode(app.processFile(ctx, *input))
	}

	if access := capture.CheckAccess(); !access.Ready() {
		fmt.Println("[WARN] " + access.Instructions())
	}
	capturer := capture.NewWindowCapturer(cfg.Capture)

	if !*watch {
		img, err := capturer.Capture(ctx)
		if err != nil {
			fmt.Printf("[ERROR] 截图失败: %v\n", err)
			return exitError
		}
		return app.exitCode(app.processImage(ctx, img))
	}

	fmt.Println("[INFO] 监视模式，按 Ctrl+C 退出")
	interval := time.Duration(cfg.Capture.WatchIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}
	err = capture.Watch(ctx, capturer, interval, capture.NewFrameFilter(cfg.Capture.WatchDistance),
		func(ctx context.Context, img image.Image) error {
			// 单帧失败不终止监视
			if err := app.processImage(ctx, img); err != nil && ctx.Err() == nil {
				fmt.Printf("[WARN] %v\n", err)
			}
			return nil
		})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("[ERROR] %v\n", err)
		return exitError
	}
	fmt.Println("[INFO] 已退出")
	return exitOK
}

// app 一次识别与求解
type app struct {
	extractor *extract.Extractor
	solver    solver.Solver
	jsonOut   bool
}

// output JSON 输出格式
type output struct {
	*extract.Result
	Moves []solver.Move `json:"moves"`
}

func (a *app) processFile(ctx context.Context, path string) error {
	res, err := a.extractor.ExtractFile(ctx, path)
	if err != nil {
		return err
	}
	return a.report(ctx, res)
}

func (a *app) processImage(ctx context.Context, img image.Image) error {
	res, err := a.extractor.ExtractImage(ctx, img)
	if err != nil {
		return err
	}
	return a.report(ctx, res)
}

func (a *app) report(ctx context.Context, res *extract.Result) error {
	moves := a.solver.Solve(ctx, res.State)

	if a.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(output{Result: res, Moves: moves})
	}

	fmt.Printf("[INFO] 分辨率配置: %s, 棋盘区域: %s\n", res.Profile, res.Box)
	fmt.Print(res.State.Render())
	if res.Warning != nil {
		fmt.Printf("[WARN] %v\n", res.Warning)
	}
	if res.DebugDir != "" {
		fmt.Printf("[INFO] 调试输出: %s\n", res.DebugDir)
	}
	for _, m := range moves {
		fmt.Println(m)
	}
	return nil
}

// exitCode 按错误类型返回退出码
func (a *app) exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	fmt.Printf("[ERROR] %v\n", err)

	var cfgErr *templates.ConfigurationError
	var regionErr *locator.RegionNotFoundError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &regionErr):
		return exitNotFound
	default:
		return exitError
	}
}

// installModels 下载 PaddleOCR 模型到默认目录
func installModels() int {
	store := ocr.NewModelStore("")
	if store.Installed() {
		fmt.Printf("[INFO] 模型已安装: %s\n", store.Dir)
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("[INFO] 正在下载模型到 %s\n", store.Dir)
	last := -1
	err := store.Install(ctx, func(p float64) {
		if int(p)/10 != last {
			last = int(p) / 10
			fmt.Printf("[INFO] 下载进度 %.0f%%\n", p)
		}
	})
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		return exitError
	}
	fmt.Println("[INFO] 模型下载完成，使用 -ocr paddle 启用")
	return exitOK
}

// setupLogger 按配置设置日志级别与文件输出
func setupLogger(cfg *config.Config) {
	l := logger.Default()
	l.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.File != "" {
		if err := l.SetFile(true, cfg.Log.File); err != nil {
			fmt.Printf("[WARN] %v\n", err)
		}
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("snapreader v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("snapreader - Snap Attack 棋盘识别工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  snapreader [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -input string             截图文件路径 (为空时截取游戏窗口)")
	fmt.Println("  -width int                屏幕宽度 (默认自动检测)")
	fmt.Println("  -height int               屏幕高度")
	fmt.Println("  -device string            设备标签 (例: nexus4)")
	fmt.Println("  -templates string         模板目录 (默认 templates)")
	fmt.Println("  -threshold float          字形匹配阈值 (默认 0.85)")
	fmt.Println("  -anchor-threshold float   锚点匹配阈值 (默认 0.85)")
	fmt.Println("  -ocr string               字母架 OCR 引擎: none, tesseract, paddle")
	fmt.Println("  -debug                    输出调试图像与详细日志")
	fmt.Println("  -dry-run                  不请求求解服务")
	fmt.Println("  -watch                    持续截图，画面变化时重新识别")
	fmt.Println("  -json                     以 JSON 格式输出结果")
	fmt.Println("  -install-ocr              下载 PaddleOCR 模型")
	fmt.Println("  -config string            配置文件路径")
	fmt.Println("  -save                     保存配置到本地")
	fmt.Println("  -version                  显示版本信息")
	fmt.Println("  -help                     显示帮助信息")
	fmt.Println()
	fmt.Println("退出码:")
	fmt.Println("  0  成功 (识别不完整时输出警告)")
	fmt.Println("  1  运行错误")
	fmt.Println("  2  配置错误 (不支持的分辨率、模板缺失)")
	fmt.Println("  3  未找到棋盘")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 识别截图文件")
	fmt.Println("  snapreader -input shot.png -width 1920 -height 1080 -dry-run")
	fmt.Println()
	fmt.Println("  # 截取游戏窗口并求解")
	fmt.Println("  snapreader")
	fmt.Println()
	fmt.Println("  # 监视模式")
	fmt.Println("  snapreader -watch")
	fmt.Println()
	fmt.Printf("配置文件位置: %s\n", config.GetDefaultManager().GetConfigFile())
	fmt.Println("环境变量前缀: SNAPREADER_ (例: SNAPREADER_THRESHOLD=0.8)")
}
