package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Event    EventConfig    `mapstructure:"event"`
	Queue    QueueConfig    `mapstructure:"queue"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode     string     `mapstructure:"mode"`
	Address  string     `mapstructure:"address"`
	AdminKey string     `mapstructure:"adminKey"`
	Cors     CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	Redis  RedisConfig  `mapstructure:"redis"`
	Sqlite SqliteConfig `mapstructure:"sqlite"`
}

// RedisConfig 定义了Redis镜像的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SqliteConfig 定义了持久化追加日志的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// EventConfig 定义了投票活动本身的配置
type EventConfig struct {
	// SeedFile 是类别导入文件的路径，Reset时也会从它重新导入
	SeedFile string `mapstructure:"seedFile"`
}

// QueueConfig 定义了投票提交队列的配置
type QueueConfig struct {
	// Capacity 是投票准入队列的有界容量，队满时提交方会收到QueueFull
	Capacity int `mapstructure:"capacity"`
	// BatchSize 是单次批量落库的最大投票数
	BatchSize int `mapstructure:"batchSize"`
	// DrainDelayMs 是批次之间的短暂让步延迟，防止排空循环饿死其他任务
	DrainDelayMs int `mapstructure:"drainDelayMs"`
}

// DrainDelay 将配置中的毫秒值转换为time.Duration
func (q QueueConfig) DrainDelay() time.Duration {
	return time.Duration(q.DrainDelayMs) * time.Millisecond
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. 设置配置文件名和类型
	v.SetConfigName("config") // 文件名 (不带扩展名)
	v.SetConfigType("yaml")   // 文件类型

	// 2. 添加配置文件搜索路径
	v.AddConfigPath("./config") // `config/config.yaml`
	v.AddConfigPath(".")        // `./config.yaml` (如果在根目录)

	// 3. 设置环境变量支持
	// 允许通过环境变量覆盖配置，例如 SERVER_ADDRESS=:9090
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. 设置关键项的默认值，保证裸启动也能工作
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.sqlite.path", "voting.db")
	v.SetDefault("event.seedFile", "config/categories.json")
	v.SetDefault("queue.capacity", 10000)
	v.SetDefault("queue.batchSize", 10)
	v.SetDefault("queue.drainDelayMs", 20)

	// 5. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// 6. 将配置反序列化到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 7. 将加载的配置赋值给全局变量
	Cfg = &cfg

	return Cfg, nil
}
