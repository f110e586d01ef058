package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file not found: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

// setDefaults 队列与提醒相关的时间参数默认值
func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("reminder.interval", "4h")
	viper.SetDefault("reminder.display_threshold", "6h")
	viper.SetDefault("reminder.sweep_interval", "60s")
	viper.SetDefault("reminder.sweep_batch_size", 200)
	viper.SetDefault("queue.cache_ttl", "30s")
	viper.SetDefault("dispatch.idempotency_ttl", "5m")
	viper.SetDefault("dispatch.heartbeat_interval", "30s")
	viper.SetDefault("dispatch.send_buffer_size", 64)
	viper.SetDefault("redis.pool_size", 10)
}
