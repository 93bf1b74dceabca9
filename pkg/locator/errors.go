package locator

import (
	"fmt"
	"slices"
	"strings"
)

// 缺失锚点名称
const (
	AnchorTop    = "back/zero-snaps"
	AnchorBottom = "shuffle"
)

// RegionNotFoundError 截图中缺少必要的锚点，或锚点无法构成有效区域
type RegionNotFoundError struct {
	Missing   []string
	Supported []string
	Reason    string
}

// Has 判断某个锚点是否缺失
func (e *RegionNotFoundError) Has(anchor string) bool {
	return slices.Contains(e.Missing, anchor)
}

func (e *RegionNotFoundError) Error() string {
	var msg string
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("未找到锚点图标: %s", strings.Join(e.Missing, ", "))
	} else {
		msg = "未找到棋盘区域"
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if len(e.Supported) > 0 {
		msg += fmt.Sprintf("; 请检查分辨率与窗口位置, 当前支持: [%s]", strings.Join(e.Supported, ", "))
	}
	return msg
}
