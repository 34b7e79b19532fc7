package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Stats          StatsConfig          `mapstructure:"stats"`
	Pigeon         PigeonConfig         `mapstructure:"pigeon"`
	SMS            SMSConfig            `mapstructure:"sms"`
	Email          EmailConfig          `mapstructure:"email"`
	Web            WebConfig            `mapstructure:"web"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type BrokerConfig struct {
	Type string     `mapstructure:"type"`
	AMQP AMQPConfig `mapstructure:"amqp"`
}

type AMQPConfig struct {
	URL       string          `mapstructure:"url"`
	Prefetch  int             `mapstructure:"prefetch"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
}

type ReconnectConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type DatabaseConfig struct {
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StatsConfig struct {
	PeriodSeconds    int `mapstructure:"period_seconds"`
	RetentionSeconds int `mapstructure:"retention_seconds"`
}

type PigeonConfig struct {
	ProfileCache bool `mapstructure:"profile_cache"`
}

type SMSConfig struct {
	AccountSID     string  `mapstructure:"account_sid"`
	AuthToken      string  `mapstructure:"auth_token"`
	From           string  `mapstructure:"from"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

type EmailConfig struct {
	ServerToken    string  `mapstructure:"server_token"`
	AccountToken   string  `mapstructure:"account_token"`
	From           string  `mapstructure:"from"`
	DefaultSubject string  `mapstructure:"default_subject"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

type WebConfig struct {
	Port                 int `mapstructure:"port"`
	AnnounceGraceSeconds int `mapstructure:"announce_grace_seconds"`
	SendBuffer           int `mapstructure:"send_buffer"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}
