package capture

import "strings"

// Access 截图所需的系统授权
type Access struct {
	// ScreenRecording 读取其他窗口像素
	ScreenRecording bool `json:"screen_recording"`
	// WindowControl 激活游戏窗口
	WindowControl bool `json:"window_control"`
}

// Ready 所有授权均已具备
func (a Access) Ready() bool {
	return a.ScreenRecording && a.WindowControl
}

// Instructions 返回缺少授权时的操作说明
func (a Access) Instructions() string {
	if a.Ready() {
		return ""
	}
	var b strings.Builder
	b.WriteString("窗口截图需要以下授权:\n")
	if !a.ScreenRecording {
		b.WriteString("  - 屏幕录制: 系统设置 > 隐私与安全性 > 屏幕录制\n")
	}
	if !a.WindowControl {
		b.WriteString("  - 辅助功能 (激活窗口): 系统设置 > 隐私与安全性 > 辅助功能\n")
	}
	b.WriteString("授权后需要重新启动终端。也可以使用 -input 指定截图文件。")
	return b.String()
}
