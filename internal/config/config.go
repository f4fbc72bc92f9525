package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	HTTP struct {
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`
	Database struct {
		DSN string `mapstructure:"dsn"` // пусто = хранилище в памяти
	} `mapstructure:"database"`
	Redis struct {
		Addr     string        `mapstructure:"addr"` // пусто = блокировки в процессе, без кеша
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
		LockWait time.Duration `mapstructure:"lock_wait"`
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"` // пусто = публикация выключена
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Stripe struct {
		APIKey   string `mapstructure:"api_key"`
		Currency string `mapstructure:"currency"`
	} `mapstructure:"stripe"`
	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`
	Timeline struct {
		PageSize  int           `mapstructure:"page_size"`
		SourceCap int           `mapstructure:"source_cap"`
		Window    time.Duration `mapstructure:"window"`
	} `mapstructure:"timeline"`
}

// IsProduction production окружение
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 30*time.Second)
	v.SetDefault("redis.lock_wait", 5*time.Second)
	v.SetDefault("redis.cache_ttl", 15*time.Minute)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "backoffice_audit_events")
	v.SetDefault("stripe.api_key", "")
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("timeline.page_size", 25)
	v.SetDefault("timeline.source_cap", 150)
	v.SetDefault("timeline.window", 90*24*time.Hour)
}

// LoadConfig загружает конфигурацию: .env (если есть), затем config.yaml из dir
// (если есть), затем переменные окружения BACKOFFICE_*, например BACKOFFICE_DATABASE_DSN.
func LoadConfig(envPath, dir string) (*Config, error) {
	if os.Getenv("BACKOFFICE_APP_ENV") != "production" && envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// brokers из env приходят одной строкой через запятую
	if len(config.Kafka.Brokers) == 1 && strings.Contains(config.Kafka.Brokers[0], ",") {
		config.Kafka.Brokers = strings.Split(config.Kafka.Brokers[0], ",")
	}
	var brokers []string
	for _, b := range config.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	config.Kafka.Brokers = brokers

	if config.IsProduction() && config.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required in production")
	}

	return &config, nil
}
