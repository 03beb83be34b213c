package permissions

import (
	"regexp"
	"strings"
)

// DefaultModules 是没有权限记录时默认全部开放的功能模块
var DefaultModules = []string{
	"youtube-downloader",
	"whisper-ai",
	"translator",
	"summarizer",
	"snake-game",
	"spaceship",
	"module-1",
	"module-2",
	"module-3",
	"module-4",
}

// 权限记录中不属于功能模块的列
var recordMetaColumns = map[string]struct{}{
	"id":         {},
	"username":   {},
	"created_at": {},
	"updated_at": {},
}

var moduleIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Defaults 返回默认权限的新副本
func Defaults() map[string]bool {
	m := make(map[string]bool, len(DefaultModules))
	for _, id := range DefaultModules {
		m[id] = true
	}
	return m
}

// NormalizeFlag 把数据库中的开关值统一成布尔：
// 布尔原样返回；字符串只有 "true"（忽略大小写与首尾空白）为真；数字非零为真；其他一律为假。
func NormalizeFlag(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case *bool:
		return x != nil && *x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	case []byte:
		return strings.EqualFold(strings.TrimSpace(string(x)), "true")
	case int:
		return x != 0
	case int8:
		return x != 0
	case int16:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case uint:
		return x != 0
	case uint8:
		return x != 0
	case uint16:
		return x != 0
	case uint32:
		return x != 0
	case uint64:
		return x != 0
	case float32:
		return x != 0
	case float64:
		return x != 0
	default:
		return false
	}
}

// ValidModuleID 模块 ID 只允许小写字母、数字与单个连字符分隔，保证两种键名格式一一对应
func ValidModuleID(id string) bool {
	return moduleIDPattern.MatchString(id)
}

// ToPresentationKey youtube_downloader -> youtube-downloader
func ToPresentationKey(storage string) string {
	return strings.ReplaceAll(storage, "_", "-")
}

// ToStorageKey youtube-downloader -> youtube_downloader
func ToStorageKey(presentation string) string {
	return strings.ReplaceAll(presentation, "-", "_")
}
