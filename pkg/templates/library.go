package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zoeyai/snapreader/internal/logger"
	"github.com/zoeyai/snapreader/pkg/vision/cv"
)

// source 模板子目录与匹配模式
type source struct {
	subdir   string
	pattern  string
	category Category
	required bool
}

var sources = []source{
	{subdir: "letters", pattern: "[A-Z].png", category: CategoryBoard, required: true},
	{subdir: "bonuses", pattern: "*.png", category: CategoryBoard},
	{subdir: "rack", pattern: "[A-Z].png", category: CategoryRack, required: true},
	{subdir: "anchors", pattern: "*.png", category: CategoryAnchor, required: true},
}

// Library 模板库，参考模板在创建时一次性加载，之后只读
type Library struct {
	dir      string
	registry *Registry
	refs     map[Category]map[string]*Template

	mu    sync.Mutex
	cache map[ProfileKey]*Set
}

// NewLibrary 从目录加载全部参考模板
func NewLibrary(dir string, registry *Registry) (*Library, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if st, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("模板目录不可用: %s: %w", dir, err)
	} else if !st.IsDir() {
		return nil, fmt.Errorf("模板路径不是目录: %s", dir)
	}

	refs, err := loadDir(dir, true)
	if err != nil {
		return nil, err
	}

	logger.Debug("模板加载完成: 棋盘 %d, 字母架 %d, 锚点 %d",
		len(refs[CategoryBoard]), len(refs[CategoryRack]), len(refs[CategoryAnchor]))

	return &Library{
		dir:      dir,
		registry: registry,
		refs:     refs,
		cache:    make(map[ProfileKey]*Set),
	}, nil
}

// loadDir 加载目录下的模板，strict 时必需子目录缺失即报错
func loadDir(dir string, strict bool) (map[Category]map[string]*Template, error) {
	refs := map[Category]map[string]*Template{
		CategoryBoard:  {},
		CategoryRack:   {},
		CategoryAnchor: {},
	}

	for _, src := range sources {
		subdir := filepath.Join(dir, src.subdir)
		if _, err := os.Stat(subdir); err != nil {
			if strict && src.required {
				closeRefs(refs)
				return nil, fmt.Errorf("模板目录缺失: %s: %w", subdir, err)
			}
			continue
		}

		files, err := filepath.Glob(filepath.Join(subdir, src.pattern))
		if err != nil {
			closeRefs(refs)
			return nil, fmt.Errorf("模板匹配模式错误: %s: %w", subdir, err)
		}
		if strict && src.required && len(files) == 0 {
			closeRefs(refs)
			return nil, fmt.Errorf("模板目录为空: %s", subdir)
		}

		for _, f := range files {
			img, err := cv.ReadImageGray(f)
			if err != nil {
				img.Close()
				closeRefs(refs)
				return nil, err
			}
			id := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			refs[src.category][id] = &Template{ID: id, Category: src.category, Path: f, Image: img}
		}
	}
	return refs, nil
}

func closeRefs(refs map[Category]map[string]*Template) {
	for _, m := range refs {
		for _, t := range m {
			t.close()
		}
	}
}

// Dir 返回模板目录
func (l *Library) Dir() string {
	return l.dir
}

// Registry 返回分辨率注册表
func (l *Library) Registry() *Registry {
	return l.registry
}

// Reference 返回参考分辨率下的模板，调用方不得修改或关闭
func (l *Library) Reference(c Category) map[string]*Template {
	return l.refs[c]
}

// Load 返回指定配置下缩放后的模板集合，结果会被缓存
func (l *Library) Load(key ProfileKey) (*Set, error) {
	profile, err := l.registry.Lookup(key)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cache == nil {
		return nil, fmt.Errorf("模板库已关闭")
	}
	if set, ok := l.cache[key]; ok {
		return set, nil
	}

	set, err := l.buildSet(profile)
	if err != nil {
		return nil, err
	}
	l.cache[key] = set
	return set, nil
}

// buildSet 按配置缩放参考模板，预缩放目录中的同名模板优先
func (l *Library) buildSet(profile Profile) (*Set, error) {
	var overrides map[Category]map[string]*Template
	overrideDir := filepath.Join(l.dir, profile.Key.DirName())
	if st, statErr := os.Stat(overrideDir); statErr == nil && st.IsDir() {
		loaded, err := loadDir(overrideDir, false)
		if err != nil {
			return nil, err
		}
		overrides = loaded
		logger.Debug("使用预缩放模板: %s", overrideDir)
	}

	isDefault := l.registry.IsDefault(profile.Key)
	build := func(c Category) map[string]*Template {
		out := make(map[string]*Template, len(l.refs[c]))
		for id, ref := range l.refs[c] {
			if o, ok := overrides[c][id]; ok {
				out[id] = o
				delete(overrides[c], id)
				continue
			}
			scale := profile.categoryScale(c, id)
			if isDefault {
				scale = Unit
			}
			out[id] = &Template{
				ID:       id,
				Category: c,
				Path:     ref.Path,
				Image:    cv.ScaleImage(ref.Image, scale.X, scale.Y),
			}
		}
		// 预缩放目录中独有的模板
		for id, o := range overrides[c] {
			out[id] = o
		}
		return out
	}

	return &Set{
		Profile: profile,
		Board:   build(CategoryBoard),
		Rack:    build(CategoryRack),
		Anchors: build(CategoryAnchor),
	}, nil
}

// Close 释放所有模板
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, set := range l.cache {
		set.close()
	}
	l.cache = nil
	closeRefs(l.refs)
	l.refs = nil
}
