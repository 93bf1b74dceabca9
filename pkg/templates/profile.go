package templates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// 参考分辨率 (1920x1080) 下的模板像素尺寸
const (
	BoardTileX   = 80
	BoardTileY   = 80
	RackTileX    = 80
	RackTileY    = 80
	ShuffleTileX = 58
	ShuffleTileY = 50
	BackTileX    = 50
	BackTileY    = 50
)

// 缩放系数键
const (
	ScaleBoard = "board"
	ScaleRack  = "rack"
)

// ProfileKey 分辨率配置键
type ProfileKey struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Device string `json:"device,omitempty"`
}

// String 返回 "1920x1080" 或 "1680x1050 (nexus4)"
func (k ProfileKey) String() string {
	if k.Device != "" {
		return fmt.Sprintf("%dx%d (%s)", k.Width, k.Height, k.Device)
	}
	return fmt.Sprintf("%dx%d", k.Width, k.Height)
}

// DirName 返回预缩放模板目录名 "1680x1050-nexus4"
func (k ProfileKey) DirName() string {
	if k.Device != "" {
		return fmt.Sprintf("%dx%d-%s", k.Width, k.Height, k.Device)
	}
	return fmt.Sprintf("%dx%d", k.Width, k.Height)
}

// Base 返回去掉设备标签的键
func (k ProfileKey) Base() ProfileKey {
	return ProfileKey{Width: k.Width, Height: k.Height}
}

var profileKeyPattern = regexp.MustCompile(`^\s*(\d+)\s*[xX]\s*(\d+)\s*(?:[-:]\s*([\w.-]+)|\(\s*([\w.-]+)\s*\))?\s*$`)

// ParseProfileKey 解析 "1680x1050"、"1680x1050-nexus4" 或 "1680x1050 (nexus4)"
func ParseProfileKey(s string) (ProfileKey, error) {
	m := profileKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return ProfileKey{}, fmt.Errorf("无法解析分辨率: %q", s)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	device := m[3]
	if device == "" {
		device = m[4]
	}
	return ProfileKey{Width: w, Height: h, Device: strings.ToLower(device)}, nil
}

// Scale x/y 缩放系数
type Scale struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// Unit 无缩放
var Unit = Scale{X: 1, Y: 1}

// Profile 分辨率配置: 每个类别/锚点的缩放系数
type Profile struct {
	Key    ProfileKey
	Scales map[string]Scale
}

// ScaleFor 返回类别或锚点名对应的缩放系数
// zero-snaps 未单独配置时使用 back 的系数，其余缺失时为 1
func (p Profile) ScaleFor(name string) Scale {
	if s, ok := p.Scales[name]; ok {
		return s
	}
	if name == AnchorZeroSnaps {
		if s, ok := p.Scales[AnchorBack]; ok {
			return s
		}
	}
	return Unit
}

// categoryScale 返回模板应使用的缩放系数
func (p Profile) categoryScale(c Category, id string) Scale {
	switch c {
	case CategoryBoard:
		return p.ScaleFor(ScaleBoard)
	case CategoryRack:
		return p.ScaleFor(ScaleRack)
	default:
		return p.ScaleFor(id)
	}
}

// px 由目标像素尺寸计算系数
func px(x, refX, y, refY float64) Scale {
	return Scale{X: x / refX, Y: y / refY}
}
