package templates

import (
	"maps"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// DefaultProfileKey 参考分辨率
var DefaultProfileKey = ProfileKey{Width: 1920, Height: 1080}

// Registry 分辨率配置注册表
type Registry struct {
	mu       sync.RWMutex
	profiles map[ProfileKey]Profile
	def      ProfileKey
}

// NewRegistry 创建只包含默认配置的注册表
func NewRegistry(def ProfileKey) *Registry {
	r := &Registry{
		profiles: make(map[ProfileKey]Profile),
		def:      def,
	}
	r.Register(Profile{Key: def, Scales: map[string]Scale{
		ScaleBoard:    Unit,
		ScaleRack:     Unit,
		AnchorShuffle: Unit,
		AnchorBack:    Unit,
	}})
	return r
}

// DefaultRegistry 返回内置分辨率表，每次调用返回新实例
func DefaultRegistry() *Registry {
	r := NewRegistry(DefaultProfileKey)

	r.Register(Profile{Key: ProfileKey{Width: 1680, Height: 1050}, Scales: map[string]Scale{
		ScaleBoard:    px(72, BoardTileX, 72, BoardTileY),
		ScaleRack:     px(73, RackTileX, 73, RackTileY),
		AnchorShuffle: px(50, ShuffleTileX, 45, ShuffleTileY),
		AnchorBack:    px(43, BackTileX, 43, BackTileY),
	}})
	r.Register(Profile{Key: ProfileKey{Width: 1680, Height: 1050, Device: "nexus4"}, Scales: map[string]Scale{
		ScaleBoard: px(72, BoardTileX, 73, BoardTileY),
		ScaleRack:  px(75, RackTileX, 75, RackTileY),
	}})
	r.Register(Profile{Key: ProfileKey{Width: 1600, Height: 900}, Scales: map[string]Scale{
		ScaleBoard:    px(67, BoardTileX, 67, BoardTileY),
		ScaleRack:     px(67, RackTileX, 67, RackTileY),
		AnchorShuffle: px(47, ShuffleTileX, 41, ShuffleTileY),
		AnchorBack:    px(43, BackTileX, 43, BackTileY),
	}})
	r.Register(Profile{Key: ProfileKey{Width: 1440, Height: 900}, Scales: map[string]Scale{
		ScaleBoard:    px(58, BoardTileX, 58, BoardTileY),
		ScaleRack:     px(58, RackTileX, 57, RackTileY),
		AnchorShuffle: px(47, ShuffleTileX, 42, ShuffleTileY),
		AnchorBack:    px(42, BackTileX, 42, BackTileY),
	}})
	r.Register(Profile{Key: ProfileKey{Width: 1280, Height: 1024}, Scales: map[string]Scale{
		ScaleBoard:    px(69, BoardTileX, 69, BoardTileY),
		ScaleRack:     px(70, RackTileX, 70, RackTileY),
		AnchorShuffle: px(48, ShuffleTileX, 42, ShuffleTileY),
		AnchorBack:    px(41, BackTileX, 41, BackTileY),
	}})
	r.Register(Profile{Key: ProfileKey{Width: 1280, Height: 960}, Scales: map[string]Scale{
		ScaleBoard:    px(62, BoardTileX, 62, BoardTileY),
		ScaleRack:     px(63, RackTileX, 63, RackTileY),
		AnchorShuffle: px(49, ShuffleTileX, 42, ShuffleTileY),
		AnchorBack:    px(42, BackTileX, 42, BackTileY),
	}})

	return r
}

// Register 注册或覆盖一个分辨率配置
func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.Scales = maps.Clone(p.Scales)
	if p.Scales == nil {
		p.Scales = map[string]Scale{}
	}
	r.profiles[p.Key] = p
}

// Lookup 查找分辨率配置
// 带设备标签的配置必须精确注册，未定义的类别继承同分辨率的无标签配置
func (r *Registry) Lookup(key ProfileKey) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[key]
	if !ok {
		return Profile{}, &ConfigurationError{
			Profile:   key,
			Supported: r.supportedLocked(),
			Reason:    "没有注册缩放系数",
		}
	}

	if key.Device != "" {
		if base, ok := r.profiles[key.Base()]; ok {
			return Profile{Key: key, Scales: lo.Assign(base.Scales, p.Scales)}, nil
		}
	}
	return Profile{Key: key, Scales: maps.Clone(p.Scales)}, nil
}

// Default 返回默认配置
func (r *Registry) Default() Profile {
	p, _ := r.Lookup(r.def)
	return p
}

// DefaultKey 返回默认配置键
func (r *Registry) DefaultKey() ProfileKey {
	return r.def
}

// IsDefault 判断是否为默认配置
func (r *Registry) IsDefault(key ProfileKey) bool {
	return key == r.def
}

// Supported 返回所有已注册配置的名称
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.supportedLocked()
}

func (r *Registry) supportedLocked() []string {
	keys := lo.Keys(r.profiles)
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Width != b.Width {
			return a.Width > b.Width
		}
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		return a.Device < b.Device
	})
	return lo.Map(keys, func(k ProfileKey, _ int) string { return k.String() })
}
