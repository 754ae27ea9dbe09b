// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver                    string        `mapstructure:"DB_DRIVER"`
	DBSource                    string        `mapstructure:"DB_SOURCE"`
	ServerAddress               string        `mapstructure:"SERVER_ADDRESS"`
	TokenSymmetricKey           string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration         time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	AMQPSource                  string        `mapstructure:"AMQP_SOURCE"`
	TransferQueue               string        `mapstructure:"TRANSFER_QUEUE"`
	TransferQueuePrefetch       int           `mapstructure:"TRANSFER_QUEUE_PREFETCH"`
	RedisAddress                string        `mapstructure:"REDIS_ADDRESS"`
	RateCacheTTL                time.Duration `mapstructure:"RATE_CACHE_TTL"`
	RateAPIURL                  string        `mapstructure:"RATE_API_URL"`
	RateRequestTimeout          time.Duration `mapstructure:"RATE_REQUEST_TIMEOUT"`
	DefaultFixedCommission      string        `mapstructure:"DEFAULT_FIXED_COMMISSION"`
	DefaultPercentageCommission string        `mapstructure:"DEFAULT_PERCENTAGE_COMMISSION"`
	Environment                 string        `mapstructure:"GO_ENV"`
}

// Load reads configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = viper.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
