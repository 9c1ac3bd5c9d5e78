// Package i18n 提供国际化支持
// 负责管理应用程序的语言包和翻译功能
package i18n

import (
	"strings"
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/weiwangfds/structview/internal/logger"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包存储
	translations = map[string]map[string]string{
		LangZhCN: {
			"success":               "成功",
			"internal_server_error": "服务器内部错误",
			"invalid_params":        "参数错误",
			"not_found":             "资源未找到",

			"file_not_found":        "结构文件未找到",
			"file_upload_failed":    "文件上传失败",
			"file_read_failed":      "文件读取失败",
			"file_write_failed":     "文件写入失败",
			"file_size_too_large":   "文件大小超限",
			"file_type_not_allowed": "文件类型不允许",
			"file_empty":            "文件内容为空",

			"mirror_config_invalid":         "镜像存储配置无效",
			"mirror_upload_failed":          "镜像存储上传失败",
			"mirror_provider_not_supported": "镜像存储提供商不支持",
			"mirror_queue_full":             "镜像队列已满",

			"store_unavailable": "元数据存储不可用",
			"id_exhausted":      "无法生成唯一ID",

			"unknown_error": "未知错误",
		},
		LangEnUS: {
			"success":               "Success",
			"internal_server_error": "Internal Server Error",
			"invalid_params":        "Invalid Parameters",
			"not_found":             "Resource Not Found",

			"file_not_found":        "Structure File Not Found",
			"file_upload_failed":    "File Upload Failed",
			"file_read_failed":      "File Read Failed",
			"file_write_failed":     "File Write Failed",
			"file_size_too_large":   "File Size Too Large",
			"file_type_not_allowed": "File Type Not Allowed",
			"file_empty":            "File Is Empty",

			"mirror_config_invalid":         "Mirror Config Invalid",
			"mirror_upload_failed":          "Mirror Upload Failed",
			"mirror_provider_not_supported": "Mirror Provider Not Supported",
			"mirror_queue_full":             "Mirror Queue Full",

			"store_unavailable": "Metadata Store Unavailable",
			"id_exhausted":      "Unable To Generate Unique ID",

			"unknown_error": "Unknown Error",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
	mu          sync.RWMutex
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangZhCN,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器
func (i *I18n) initTranslators() {
	zhCN := zh.New()
	enUS := en_US.New()
	uni := ut.New(zhCN, enUS, zhCN)

	// 使用locale库的标识符
	langMappings := map[string]string{
		LangZhCN: "zh",
		LangEnUS: "en_US",
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("初始化翻译器失败 for language %s (locale: %s): translator not found", ourLang, localeLang)
			continue
		}
		i.translators[ourLang] = trans
	}

	logger.Debug("国际化翻译器初始化完成")
}

// Translate 根据键和语言获取翻译
func (i *I18n) Translate(key, lang string) string {
	i.mu.RLock()
	defaultLang := i.defaultLang
	i.mu.RUnlock()

	if _, exists := i.translators[lang]; !exists {
		lang = defaultLang
	}

	if translation, found := translations[lang][key]; found {
		return translation
	}

	// 当前语言缺失时回退到默认语言
	if lang != defaultLang {
		if translation, found := translations[defaultLang][key]; found {
			return translation
		}
	}

	logger.Warnf("未找到翻译: %s, 语言: %s", key, lang)
	return key
}

// SetDefaultLanguage 设置默认语言
func (i *I18n) SetDefaultLanguage(lang string) {
	i.mu.Lock()
	i.defaultLang = lang
	i.mu.Unlock()
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.defaultLang
}

// IsSupportedLanguage 检查语言是否支持
func (i *I18n) IsSupportedLanguage(lang string) bool {
	_, exists := i.translators[lang]
	return exists
}

// MatchLanguage 从 Accept-Language 请求头中挑选支持的语言
// 无法匹配时返回默认语言
func (i *I18n) MatchLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch {
		case tag == "":
			continue
		case strings.HasPrefix(strings.ToLower(tag), "zh"):
			return LangZhCN
		case strings.HasPrefix(strings.ToLower(tag), "en"):
			return LangEnUS
		}
	}
	return i.GetDefaultLanguage()
}
