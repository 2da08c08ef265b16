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

	// Upstream realtime provider.
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	RealtimeBaseURL string        `mapstructure:"realtime_base_url"`
	RealtimeModel   string        `mapstructure:"realtime_model"`
	RealtimeVoice   string        `mapstructure:"realtime_voice"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`

	// Session reaping.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`

	// Offer rate limiting.
	OfferLimit    int           `mapstructure:"offer_limit"`
	OfferInterval time.Duration `mapstructure:"offer_interval"`
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
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("realtime_base_url", "https://api.openai.com/v1/realtime")
	v.SetDefault("realtime_model", "gpt-4o-realtime-preview")
	v.SetDefault("realtime_voice", "alloy")
	v.SetDefault("upstream_timeout", "30s")
	v.SetDefault("sweep_interval", "60s")
	v.SetDefault("idle_timeout", "5m")
	v.SetDefault("offer_limit", 5)
	v.SetDefault("offer_interval", "30s")

	// Deploy environments set these without a config file.
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("realtime_base_url", "REALTIME_BASE_URL")
	_ = v.BindEnv("secret", "COOKIE_SECRET")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Model: %s\n", cfg.Mode, cfg.Port, cfg.RealtimeModel)
	return &cfg, nil
}
