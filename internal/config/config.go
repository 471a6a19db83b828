package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode      string `mapstructure:"mode"`
	Port      int    `mapstructure:"port"`
	ReadLimit int64  `mapstructure:"read_limit"`
	Secret    string `mapstructure:"secret"`

	// Provider selects the translation backend wiring: "demo" or
	// "groq_google".
	Provider       string        `mapstructure:"provider"`
	GroqAPIKey     string        `mapstructure:"groq_api_key"`
	GoogleAPIKey   string        `mapstructure:"google_api_key"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout"`

	TokenTTL time.Duration `mapstructure:"token_ttl"`

	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	RoomMaxAge      time.Duration `mapstructure:"room_max_age"`
	RoomEmptyAge    time.Duration `mapstructure:"room_empty_age"`
	GuestSessionAge time.Duration `mapstructure:"guest_session_age"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8000)
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("provider", "demo")
	v.SetDefault("backend_timeout", "10s")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("sweep_interval", "10m")
	v.SetDefault("room_max_age", "24h")
	v.SetDefault("room_empty_age", "1h")
	v.SetDefault("guest_session_age", "1h")

	// Secrets come from the environment, never the yaml file.
	_ = v.BindEnv("groq_api_key", "GROQ_API_KEY")
	_ = v.BindEnv("google_api_key", "GOOGLE_API_KEY")
	_ = v.BindEnv("secret", "SERVER_SECRET")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Provider: %s\n", cfg.Mode, cfg.Port, cfg.Provider)
	return &cfg, nil
}
