package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 全局日志实例
var Logger *logrus.Logger

// Config 日志配置结构体
type Config struct {
	// Level 日志级别 (debug, info, warn, error, fatal, panic)
	Level string `mapstructure:"level" json:"level"`
	// Format 日志格式 (json, text)
	Format string `mapstructure:"format" json:"format"`
	// Output 输出方式 (console, file, both)
	Output string `mapstructure:"output" json:"output"`
	// FilePath 日志文件路径
	FilePath string `mapstructure:"file_path" json:"file_path"`
	// MaxSize 日志文件最大大小(MB)
	MaxSize int `mapstructure:"max_size" json:"max_size"`
	// MaxAge 日志文件保留天数
	MaxAge int `mapstructure:"max_age" json:"max_age"`
	// MaxBackups 最大备份文件数
	MaxBackups int `mapstructure:"max_backups" json:"max_backups"`
	// Compress 是否压缩备份文件
	Compress bool `mapstructure:"compress" json:"compress"`
}

// DefaultConfig 返回默认日志配置
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "text",
		Output:     "console",
		FilePath:   "logs/app.log",
		MaxSize:    100,
		MaxAge:     30,
		MaxBackups: 10,
		Compress:   true,
	}
}

// Init 按配置重建全局日志实例，config 为 nil 时使用默认配置
// 级别或格式无效时回退到 info/text 并记录警告，只有日志文件目录无法创建时返回错误
func Init(config *Config) error {
	if config == nil {
		config = DefaultConfig()
	}

	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("无效的日志级别 '%s'，使用默认级别 'info'", config.Level)
	}
	l.SetLevel(level)

	formatter, ok := newFormatter(config.Format)
	if !ok {
		l.Warnf("无效的日志格式 '%s'，使用默认格式 'text'", config.Format)
	}
	l.SetFormatter(formatter)

	out, err := newOutput(config)
	if err != nil {
		return err
	}
	l.SetOutput(out)

	Logger = l
	gin.DefaultWriter = ginWriter{}
	gin.DefaultErrorWriter = ginWriter{}

	Logger.Debugf("日志系统初始化完成 (level=%s, output=%s)", level, config.Output)
	return nil
}

const timestampFormat = "2006-01-02 15:04:05"

// newFormatter 未知格式返回文本格式和 false
func newFormatter(format string) (logrus.Formatter, bool) {
	switch format {
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}, true
	case "text", "":
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}, true
	default:
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}, false
	}
}

// newOutput 根据配置构造日志输出
func newOutput(config *Config) (io.Writer, error) {
	switch config.Output {
	case "console", "":
		return os.Stdout, nil
	case "file":
		return newRotateWriter(config)
	case "both":
		w, err := newRotateWriter(config)
		if err != nil {
			return nil, err
		}
		return io.MultiWriter(os.Stdout, w), nil
	default:
		logrus.Warnf("无效的输出方式 '%s'，使用默认方式 'console'", config.Output)
		return os.Stdout, nil
	}
}

// newRotateWriter 创建按大小滚动的日志文件写入器
func newRotateWriter(config *Config) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   config.FilePath,
		MaxSize:    config.MaxSize,
		MaxAge:     config.MaxAge,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
		LocalTime:  true,
	}, nil
}

// ginWriter 将gin的调试输出转入logrus
type ginWriter struct{}

func (ginWriter) Write(p []byte) (int, error) {
	GetLogger().Debug(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// GetLogger 获取日志实例
func GetLogger() *logrus.Logger {
	if Logger == nil {
		if err := Init(nil); err != nil {
			logrus.Error("日志初始化失败，使用默认日志")
			return logrus.StandardLogger()
		}
	}
	return Logger
}

// Debug 记录调试级别日志
func Debug(args ...interface{}) {
	GetLogger().Debug(args...)
}

// Debugf 记录格式化调试级别日志
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Info 记录信息级别日志
func Info(args ...interface{}) {
	GetLogger().Info(args...)
}

// Infof 记录格式化信息级别日志
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Warnf 记录格式化警告级别日志
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Errorf 记录格式化错误级别日志
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// WithFields 添加多个字段到日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(fields)
}
