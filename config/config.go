// Package config 负责加载和校验应用配置
// 配置来源依次为：默认值、配置文件、STRUCTVIEW_ 前缀的环境变量
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/weiwangfds/structview/internal/logger"
)

// 存储后端类型
const (
	BackendJSON     = "json"     // 平面JSON文件账本
	BackendMemory   = "memory"   // 进程内账本，重启后丢失
	BackendDatabase = "database" // gorm关系型数据库（sqlite、mysql）
	BackendMongo    = "mongo"    // MongoDB文档数据库
)

// ID生成策略
const (
	IDPolicyShort = "short" // 4位base36大写短码
	IDPolicyUUID  = "uuid"  // 随机UUID
)

// Config 应用总配置
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	Log        logger.Config    `mapstructure:"log"`
	Mirror     MirrorConfig     `mapstructure:"mirror"`
	RequestLog RequestLogConfig `mapstructure:"request_log"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`          // HTTP端口
	HTTPSPort    int    `mapstructure:"https_port"`    // HTTPS端口
	EnableHTTPS  bool   `mapstructure:"enable_https"`  // 是否启用HTTPS
	EnableHTTP2  bool   `mapstructure:"enable_http2"`  // 是否在HTTPS上启用HTTP/2
	TLSCertFile  string `mapstructure:"tls_cert_file"` // 证书文件
	TLSKeyFile   string `mapstructure:"tls_key_file"`  // 私钥文件
	ReadTimeout  int    `mapstructure:"read_timeout"`  // 读超时（秒）
	WriteTimeout int    `mapstructure:"write_timeout"` // 写超时（秒）
	Mode         string `mapstructure:"mode"`          // gin模式：debug、release、test
}

// DatabaseConfig 关系型数据库配置，仅在 storage.backend=database 时使用
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite 或 mysql
	DSN             string `mapstructure:"dsn"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level"`         // silent、error、warn、info
}

// StorageConfig 上传文件与元数据账本配置
type StorageConfig struct {
	Backend           string   `mapstructure:"backend"`
	UploadDir         string   `mapstructure:"upload_dir"`
	LedgerPath        string   `mapstructure:"ledger_path"`
	IDPolicy          string   `mapstructure:"id_policy"`
	MaxIDAttempts     int      `mapstructure:"max_id_attempts"`
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// MongoConfig 文档数据库配置
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// MirrorConfig 对象存储镜像配置
type MirrorConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Provider      string        `mapstructure:"provider"` // aliyun、tencent、qiniu
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Endpoint      string        `mapstructure:"endpoint"`
	Prefix        string        `mapstructure:"prefix"`
	QueueSize     int           `mapstructure:"queue_size"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// RequestLogConfig 请求详细日志配置
type RequestLogConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Async       bool `mapstructure:"async"`
	MaxBodySize int  `mapstructure:"max_body_size"`
}

// setDefaults 注册所有配置项的默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.https_port", 8443)
	v.SetDefault("server.enable_https", false)
	v.SetDefault("server.enable_http2", true)
	v.SetDefault("server.tls_cert_file", "certs/server.crt")
	v.SetDefault("server.tls_key_file", "certs/server.key")
	v.SetDefault("server.read_timeout", 60)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/structview.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("storage.backend", BackendJSON)
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.ledger_path", "history.json")
	v.SetDefault("storage.id_policy", IDPolicyShort)
	v.SetDefault("storage.max_id_attempts", 1000)
	v.SetDefault("storage.max_file_size", 100*1024*1024)
	v.SetDefault("storage.allowed_extensions", []string{".cif", ".mmcif"})

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "structview")
	v.SetDefault("mongo.collection", "models")
	v.SetDefault("mongo.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "logs/app.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)

	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.prefix", "structures")
	v.SetDefault("mirror.queue_size", 100)
	v.SetDefault("mirror.max_retries", 5)
	v.SetDefault("mirror.retry_interval", 30*time.Second)

	v.SetDefault("request_log.enabled", false)
	v.SetDefault("request_log.async", true)
	v.SetDefault("request_log.max_body_size", 64*1024)
}

// Load 加载配置
// 参数:
//   - paths: 可选的配置文件路径，为空时在默认目录中查找 config.{yaml,toml,json}
//
// 返回值:
//   - *Config: 合并默认值、配置文件和环境变量后的配置
//   - error: 配置文件格式错误或校验失败
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if len(paths) > 0 && paths[0] != "" {
		v.SetConfigFile(paths[0])
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/structview")
	}

	v.SetEnvPrefix("STRUCTVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 未找到配置文件时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON, BackendMemory, BackendDatabase, BackendMongo:
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}

	switch c.Storage.IDPolicy {
	case IDPolicyShort, IDPolicyUUID:
	default:
		return fmt.Errorf("unsupported id policy: %q", c.Storage.IDPolicy)
	}

	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}
	if c.Storage.Backend == BackendJSON {
		if c.Storage.LedgerPath == "" {
			return fmt.Errorf("storage.ledger_path is required for the json backend")
		}
		inside, err := isWithin(c.Storage.UploadDir, c.Storage.LedgerPath)
		if err != nil {
			return err
		}
		// 账本及其锁文件放在上传目录中会被当作结构文件
		if inside {
			return fmt.Errorf("storage.ledger_path %q must not be inside storage.upload_dir %q", c.Storage.LedgerPath, c.Storage.UploadDir)
		}
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("storage.max_file_size must be positive, got %d", c.Storage.MaxFileSize)
	}
	if c.Storage.MaxIDAttempts <= 0 {
		return fmt.Errorf("storage.max_id_attempts must be positive, got %d", c.Storage.MaxIDAttempts)
	}

	if c.Storage.Backend == BackendDatabase {
		switch c.Database.Driver {
		case "sqlite", "mysql":
		default:
			return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
		}
	}

	if c.Mirror.Enabled {
		switch c.Mirror.Provider {
		case "aliyun", "tencent", "qiniu":
		default:
			return fmt.Errorf("unsupported mirror provider: %q", c.Mirror.Provider)
		}
		if c.Mirror.Bucket == "" {
			return fmt.Errorf("mirror.bucket is required when mirror is enabled")
		}
		if c.Mirror.QueueSize <= 0 {
			return fmt.Errorf("mirror.queue_size must be positive, got %d", c.Mirror.QueueSize)
		}
	}
	return nil
}

// isWithin 判断 path 是否位于 dir 目录之下
func isWithin(dir, path string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}
