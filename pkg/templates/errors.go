package templates

import (
	"fmt"
	"strings"
)

// ConfigurationError 请求的分辨率配置没有注册缩放系数
type ConfigurationError struct {
	Profile   ProfileKey
	Supported []string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("不支持的分辨率配置 %s", e.Profile)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return fmt.Sprintf("%s; 当前支持: [%s]", msg, strings.Join(e.Supported, ", "))
}
