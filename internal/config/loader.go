package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("broker.amqp.url", "BROKER_AMQP_URL")
	viper.BindEnv("broker.amqp.prefetch", "BROKER_AMQP_PREFETCH")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("sms.account_sid", "SMS_ACCOUNT_SID")
	viper.BindEnv("sms.auth_token", "SMS_AUTH_TOKEN")
	viper.BindEnv("sms.from", "SMS_FROM")

	viper.BindEnv("email.server_token", "EMAIL_SERVER_TOKEN")
	viper.BindEnv("email.account_token", "EMAIL_ACCOUNT_TOKEN")
	viper.BindEnv("email.from", "EMAIL_FROM")

	viper.BindEnv("web.port", "WEB_PORT")
}

func setDefaults() {
	viper.SetDefault("broker.type", "amqp")
	viper.SetDefault("broker.amqp.prefetch", 8)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("stats.period_seconds", 60)
	viper.SetDefault("stats.retention_seconds", 900)
	viper.SetDefault("database.mongodb.collection", "profiles")
	viper.SetDefault("database.redis.ttl_seconds", 60)
	viper.SetDefault("web.announce_grace_seconds", 3)
	viper.SetDefault("web.send_buffer", 16)
	viper.SetDefault("sms.timeout_seconds", 15)
	viper.SetDefault("email.timeout_seconds", 15)
}
