package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Auth   AuthConfig   `mapstructure:"auth"`
	Quiz   QuizConfig   `mapstructure:"quiz"`
	Rooms  RoomsConfig  `mapstructure:"rooms"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Scores ScoresConfig `mapstructure:"scores"`
	ICE    ICEConfig    `mapstructure:"ice"`
}

type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
	// DevLogin enables POST /api/session without a token (local testing).
	DevLogin bool `mapstructure:"dev_login"`
}

type QuizConfig struct {
	Points int `mapstructure:"points"`
}

type RoomsConfig struct {
	IdleTTL     time.Duration `mapstructure:"idle_ttl"`
	SweepPeriod time.Duration `mapstructure:"sweep_period"`
	// DropSlowFrames keeps sinks with a full buffer instead of evicting them.
	DropSlowFrames bool `mapstructure:"drop_slow_frames"`
}

type ChatConfig struct {
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type ScoresConfig struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	URI       string `mapstructure:"uri"`
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type ICEConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "stage-dev-cookie-secret")
	v.SetDefault("log_level", "info")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "stage")
	v.SetDefault("auth.ttl", "12h")
	v.SetDefault("auth.dev_login", false)
	v.SetDefault("quiz.points", 100)
	v.SetDefault("rooms.idle_ttl", "2m")
	v.SetDefault("rooms.sweep_period", "30s")
	v.SetDefault("rooms.drop_slow_frames", false)
	v.SetDefault("chat.rate_limit", 5)
	v.SetDefault("chat.rate_interval", "3s")
	v.SetDefault("scores.driver", "memory")
	v.SetDefault("scores.redis.uri", "")
	v.SetDefault("scores.redis.address", "localhost:6379")
	v.SetDefault("scores.redis.password", "")
	v.SetDefault("scores.redis.db", 0)
	v.SetDefault("scores.redis.key_prefix", "stage:")
	v.SetDefault("ice.urls", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("ice.username", "")
	v.SetDefault("ice.credential", "")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). Every key
// can be overridden from the environment, e.g. AUTH_SECRET.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("scores", cfg.Scores.Driver).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret is required")
	}
	switch c.Scores.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown scores.driver %q", c.Scores.Driver)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("config: send_buffer must be positive")
	}
	if c.Rooms.SweepPeriod <= 0 || c.PingPeriod <= 0 {
		return fmt.Errorf("config: rooms.sweep_period and ping_period must be positive")
	}
	if c.Quiz.Points <= 0 {
		return fmt.Errorf("config: quiz.points must be positive")
	}
	return nil
}
