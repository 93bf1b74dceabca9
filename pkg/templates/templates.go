// Package templates 管理参考模板图像与分辨率配置
//
// 模板目录结构:
//
//	<dir>/letters/[A-Z].png        棋盘字母
//	<dir>/bonuses/{2L,3L,2W,3W}.png 奖励格
//	<dir>/rack/[A-Z].png           字母架字母
//	<dir>/anchors/*.png            锚点图标 (back, zero-snaps, shuffle)
//	<dir>/<WxH[-device]>/<子目录>/  可选的预缩放模板，优先于自动缩放
package templates

import (
	"slices"

	"gocv.io/x/gocv"
)

// Category 模板类别
type Category string

const (
	CategoryBoard  Category = "board"
	CategoryRack   Category = "rack"
	CategoryAnchor Category = "anchor"
)

// 锚点名称
const (
	AnchorBack      = "back"
	AnchorZeroSnaps = "zero-snaps"
	AnchorShuffle   = "shuffle"
)

// BonusCodes 奖励格代码
var BonusCodes = []string{"2L", "3L", "2W", "3W"}

// IsBonus 判断标签是否为奖励格代码
func IsBonus(label string) bool {
	return slices.Contains(BonusCodes, label)
}

// Template 参考模板，加载后只读
type Template struct {
	ID       string
	Category Category
	Path     string
	Image    gocv.Mat
}

// Size 返回模板宽高
func (t *Template) Size() (int, int) {
	return t.Image.Cols(), t.Image.Rows()
}

func (t *Template) close() {
	if t != nil {
		t.Image.Close()
	}
}

// Set 某个分辨率配置下的全部模板
type Set struct {
	Profile Profile
	Board   map[string]*Template
	Rack    map[string]*Template
	Anchors map[string]*Template
}

// ByCategory 返回指定类别的模板
func (s *Set) ByCategory(c Category) map[string]*Template {
	switch c {
	case CategoryBoard:
		return s.Board
	case CategoryRack:
		return s.Rack
	case CategoryAnchor:
		return s.Anchors
	}
	return nil
}

func (s *Set) close() {
	for _, m := range []map[string]*Template{s.Board, s.Rack, s.Anchors} {
		for _, t := range m {
			t.close()
		}
	}
}
