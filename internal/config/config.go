/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the top-up service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	FieldEncryptionKey      string `mapstructure:"FIELD_ENCRYPTION_KEY"`
	AccessTokenSecret       string `mapstructure:"ACCESS_TOKEN_SECRET"`
	MinTopupAmount          int64  `mapstructure:"MIN_TOPUP_AMOUNT"`
	VoidWindowMinutes       int    `mapstructure:"VOID_WINDOW_MINUTES"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	TopupEventExchange      string `mapstructure:"TOPUP_EVENT_EXCHANGE"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	TopupRateLimitPerMinute int    `mapstructure:"TOPUP_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MIN_TOPUP_AMOUNT", 27)
	viper.SetDefault("VOID_WINDOW_MINUTES", 60)
	viper.SetDefault("TOPUP_EVENT_EXCHANGE", "topup_events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "chargenet:rate_limit")
	viper.SetDefault("TOPUP_RATE_LIMIT_PER_MINUTE", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("FIELD_ENCRYPTION_KEY")
	_ = viper.BindEnv("ACCESS_TOKEN_SECRET")
	_ = viper.BindEnv("MIN_TOPUP_AMOUNT")
	_ = viper.BindEnv("VOID_WINDOW_MINUTES")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TOPUP_EVENT_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("TOPUP_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "chargenet:rate_limit"
	}
	config.TopupEventExchange = strings.TrimSpace(config.TopupEventExchange)
	if config.TopupEventExchange == "" {
		config.TopupEventExchange = "topup_events"
	}

	if config.MinTopupAmount <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive minimum top-up configured; using default\" min_topup_amount=%d", config.MinTopupAmount)
		config.MinTopupAmount = 27
	}
	if config.VoidWindowMinutes <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive void window configured; using default\" void_window_minutes=%d", config.VoidWindowMinutes)
		config.VoidWindowMinutes = 60
	}
	if config.TopupRateLimitPerMinute <= 0 {
		config.TopupRateLimitPerMinute = 60
	}

	return
}
