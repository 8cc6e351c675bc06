// internal/config/config.go
package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Storage struct {
		Backend string `mapstructure:"backend"` // file, sqlite, postgres, influx
		Strict  bool   `mapstructure:"strict"`
		Dir     string `mapstructure:"dir"`
	} `mapstructure:"storage"`
	Metrics struct {
		HistoryLimit          int  `mapstructure:"history_limit"`
		SampleIntervalSeconds int  `mapstructure:"sample_interval_seconds"`
		GeneratorEnabled      bool `mapstructure:"generator_enabled"`
	} `mapstructure:"metrics"`
	Sqlite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`
	Postgres struct {
		URL      string `mapstructure:"url"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Database string `mapstructure:"database"`
	} `mapstructure:"postgres"`
	Influx struct {
		URL    string `mapstructure:"url"`
		Token  string `mapstructure:"token"`
		Org    string `mapstructure:"org"`
		Bucket string `mapstructure:"bucket"`
		Range  string `mapstructure:"range"`
	} `mapstructure:"influx"`
	MQTT struct {
		Enabled          bool   `mapstructure:"enabled"`
		Broker           string `mapstructure:"broker"`
		Topic            string `mapstructure:"topic"`
		ClientID         string `mapstructure:"client_id"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"mqtt"`
	Auth struct {
		CookieName string `mapstructure:"cookie_name"`
		Users      []User `mapstructure:"users"`
	} `mapstructure:"auth"`
}

type User struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

// Load reads config.yaml from path, overlaying BASIN_* environment
// variables. A missing file is not fatal; defaults cover everything.
func Load(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.SetEnvPrefix("basin")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: error reading config file: %v", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.strict", false)
	viper.SetDefault("storage.dir", "./storage")
	viper.SetDefault("metrics.history_limit", 120)
	viper.SetDefault("metrics.sample_interval_seconds", 10)
	viper.SetDefault("metrics.generator_enabled", true)
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.database", "basin")
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.org", "basin")
	viper.SetDefault("influx.bucket", "aquaculture")
	viper.SetDefault("influx.range", "-30d")
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "basin/metrics")
	viper.SetDefault("mqtt.client_id", "basin-gateway")
	viper.SetDefault("mqtt.reconnect_seconds", 5)
	viper.SetDefault("auth.cookie_name", "basin_session")
}
