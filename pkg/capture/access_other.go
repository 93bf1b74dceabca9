//go:build !darwin

package capture

// CheckAccess 非 macOS 系统不需要额外授权
func CheckAccess() Access {
	return Access{ScreenRecording: true, WindowControl: true}
}

// OpenScreenRecordingSettings 非 macOS 系统无操作
func OpenScreenRecordingSettings() {}
