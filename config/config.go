package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Segment   SegmentConfig   `mapstructure:"segment"`
	Composite CompositeConfig `mapstructure:"composite"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type SegmentConfig struct {
	DefaultSensitivity int           `mapstructure:"default_sensitivity"`
	AICommand          string        `mapstructure:"ai_command"`
	AIArgs             []string      `mapstructure:"ai_args"`
	AITimeout          time.Duration `mapstructure:"ai_timeout"`
	MaxConcurrent      int           `mapstructure:"max_concurrent"`
	QueueTimeout       time.Duration `mapstructure:"queue_timeout"`
	GrabCutIterations  int           `mapstructure:"grabcut_iterations"`
	GrabCutBorder      int           `mapstructure:"grabcut_border"`
}

type CompositeConfig struct {
	MaxLayers int `mapstructure:"max_layers"`
	MaxPixels int `mapstructure:"max_pixels"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LAYERSTUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()
	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	return NewFromPath("config.yaml")
}

// NewFromPath 加载失败时返回默认配置
func NewFromPath(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg"})

	v.SetDefault("segment.default_sensitivity", 30)
	v.SetDefault("segment.ai_command", "rembg")
	v.SetDefault("segment.ai_args", []string{"i", "{input}", "{output}"})
	v.SetDefault("segment.ai_timeout", 60*time.Second)
	v.SetDefault("segment.max_concurrent", 3)
	v.SetDefault("segment.queue_timeout", 30*time.Second)
	v.SetDefault("segment.grabcut_iterations", 5)
	v.SetDefault("segment.grabcut_border", 10)

	v.SetDefault("composite.max_layers", 64)
	v.SetDefault("composite.max_pixels", 40_000_000)
}

// Default 编译期默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg"},
		},
		Segment: SegmentConfig{
			DefaultSensitivity: 30,
			AICommand:          "rembg",
			AIArgs:             []string{"i", "{input}", "{output}"},
			AITimeout:          60 * time.Second,
			MaxConcurrent:      3,
			QueueTimeout:       30 * time.Second,
			GrabCutIterations:  5,
			GrabCutBorder:      10,
		},
		Composite: CompositeConfig{
			MaxLayers: 64,
			MaxPixels: 40_000_000,
		},
	}
}

func (c *Config) normalize() {
	if c.Segment.MaxConcurrent < 1 {
		c.Segment.MaxConcurrent = 1
	}
	if c.Segment.DefaultSensitivity < 0 {
		c.Segment.DefaultSensitivity = 0
	}
	if c.Segment.GrabCutIterations < 1 {
		c.Segment.GrabCutIterations = 1
	}
}
