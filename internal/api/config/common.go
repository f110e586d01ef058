package config

import "time"

// Config 配置主体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logstash LogstashConfig `mapstructure:"logstash"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// MongoConfig MongoDB配置
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LogstashConfig 日志远程上报配置
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// ReminderConfig 提醒升级相关配置
// Interval 控制升级节奏，DisplayThreshold 控制列表中何时展示为提醒，
// 两者相互独立，不做统一换算。
type ReminderConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	DisplayThreshold time.Duration `mapstructure:"display_threshold"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize   int           `mapstructure:"sweep_batch_size"`
}

// QueueConfig 实时队列列表配置
type QueueConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// DispatchConfig 实时推送配置
type DispatchConfig struct {
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	SendBufferSize    int           `mapstructure:"send_buffer_size"`
}
