// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver      string `mapstructure:"DB_DRIVER"`
	DBSource      string `mapstructure:"DB_SOURCE"`
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	MinimumAmount string `mapstructure:"MINIMUM_AMOUNT"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	Environement  string `mapstructure:"GO_ENV"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.SetDefault("MINIMUM_AMOUNT", "0")

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

// BrokerList splits the KAFKA_BROKERS value into broker addresses.
// It returns nil when no brokers are configured.
func (c Config) BrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}

	brokers := strings.Split(c.KafkaBrokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	return brokers
}
