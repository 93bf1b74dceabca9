//go:build !windows

package capture

import "image"

// toPhysical 非 Windows 平台无需换算
func toPhysical(r image.Rectangle) image.Rectangle {
	return r
}
