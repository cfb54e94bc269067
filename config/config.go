package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig настройки HTTP-серверов
type ServerConfig struct {
	Port    int `mapstructure:"port"`
	OpsPort int `mapstructure:"ops_port"` // 0 отключает служебный сервер
	// Адреса и подсети прокси, которым доверяется X-Forwarded-For
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DBConfig настройки базы данных
type DBConfig struct {
	Driver   string `mapstructure:"driver"` // postgres или sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	Path     string `mapstructure:"path"` // файл sqlite
}

// JWTConfig настройки токенов
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	ExpiresIn int    `mapstructure:"expires_in"` // в часах
}

// SMTPConfig настройки почтовых уведомлений
type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// TelegramConfig настройки бота
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

// SchedulerConfig настройки фоновых задач
type SchedulerConfig struct {
	ExpirySpec string `mapstructure:"expiry_spec"` // cron-выражение с секундами
}

// RateLimitConfig настройки ограничения частоты запросов
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN возвращает строку подключения PostgreSQL
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.DBName,
	)
}

// URL возвращает URL PostgreSQL для миграций
func (d DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
	)
}

// NewConfig читает конфигурацию из config.yaml (если есть) и переменных окружения.
// Переменные окружения используют подчеркивание вместо точки: DB_HOST, JWT_SECRET_KEY, TELEGRAM_TOKEN.
func NewConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("неизвестный драйвер базы данных: %q", c.DB.Driver)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("неверный порт сервера: %d", c.Server.Port)
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required when telegram is enabled")
	}
	return nil
}

// setDefaults задает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.ops_port", 4001)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "wallet")
	v.SetDefault("db.path", "wallet.db")

	// Секрет обязателен: пустое значение только делает ключ видимым для окружения
	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.expires_in", 24)

	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "wallet@localhost")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")

	v.SetDefault("scheduler.expiry_spec", "0 0 10 1 * *")

	v.SetDefault("ratelimit.limit", 100)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}
