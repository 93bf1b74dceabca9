//go:build darwin

package capture

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework ApplicationServices -framework CoreGraphics
#import <Cocoa/Cocoa.h>
#import <ApplicationServices/ApplicationServices.h>
#import <CoreGraphics/CoreGraphics.h>

int snapHasWindowControl() {
    NSDictionary *options = @{(__bridge NSString *)kAXTrustedCheckOptionPrompt: @NO};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}

// 没有屏幕录制授权时其他应用的窗口名称不可见
int snapHasScreenRecording() {
    if (@available(macOS 10.15, *)) {
        CFArrayRef windows = CGWindowListCopyWindowInfo(
            kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
            kCGNullWindowID
        );
        if (windows == NULL) {
            return 0;
        }
        CFIndex count = CFArrayGetCount(windows);
        int named = 0;
        for (CFIndex i = 0; i < count; i++) {
            CFDictionaryRef w = (CFDictionaryRef)CFArrayGetValueAtIndex(windows, i);
            CFStringRef name = (CFStringRef)CFDictionaryGetValue(w, kCGWindowName);
            if (name != NULL && CFStringGetLength(name) > 0) {
                named = 1;
                break;
            }
        }
        CFRelease(windows);
        return (count == 0 || named) ? 1 : 0;
    }
    return 1;
}

void snapOpenScreenRecordingSettings() {
    NSString *url = @"x-apple.systempreferences:com.apple.preference.security?Privacy_ScreenCapture";
    [[NSWorkspace sharedWorkspace] openURL:[NSURL URLWithString:url]];
}
*/
import "C"

// CheckAccess 检查屏幕录制与辅助功能授权 (不触发弹窗)
func CheckAccess() Access {
	return Access{
		ScreenRecording: C.snapHasScreenRecording() == 1,
		WindowControl:   C.snapHasWindowControl() == 1,
	}
}

// OpenScreenRecordingSettings 打开屏幕录制设置页面
func OpenScreenRecordingSettings() {
	C.snapOpenScreenRecordingSettings()
}
