// Package config предоставляет структуры и функции для загрузки конфигурации сервиса.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string     `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageConnectionString string     `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string     `yaml:"migrations_path" env-default:"./migrations"`
	HTTPServer              HTTPServer `yaml:"http_server"`
	Redis                   Redis      `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ   `yaml:"rabbitmq"`
	JWT                     JWT        `yaml:"jwt"`
	RateLimit               RateLimit  `yaml:"rate_limit"`
	Providers               Providers  `yaml:"providers"`
	Billing                 Billing    `yaml:"billing"`
	Scheduler               Scheduler  `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	Address     string        `yaml:"address" env-default:":8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"90s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Redis структура для настройки подключения к redis. Пустой Address отключает redis.
type Redis struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env-default:"3s"`
}

// RabbitMQ настройки брокера событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWT настройки проверки токенов сессии.
type JWT struct {
	Secret   string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RateLimit настройки ограничения частоты запросов.
type RateLimit struct {
	// Backend — "memory" для одного процесса или "redis" для нескольких инстансов.
	Backend     string        `yaml:"backend" env:"RATE_LIMIT_BACKEND" env-default:"memory"`
	Window      time.Duration `yaml:"window" env-default:"60s"`
	MaxRequests int           `yaml:"max_requests" env-default:"20"`
	GlobalRPS   float64       `yaml:"global_rps" env-default:"50"`
	GlobalBurst int           `yaml:"global_burst" env-default:"100"`
}

// Provider настройки одного генератора ответа.
type Provider struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// Providers настройки генераторов A и B.
type Providers struct {
	// Mode — "mock" или "live".
	Mode                 string        `yaml:"mode" env:"PROVIDER_MODE" env-default:"mock"`
	Timeout              time.Duration `yaml:"timeout" env-default:"60s"`
	MaxTokensExploration int           `yaml:"max_tokens_exploration" env-default:"900"`
	MaxTokensVerified    int           `yaml:"max_tokens_verified" env-default:"1200"`
	A                    Provider      `yaml:"a"`
	B                    Provider      `yaml:"b"`
}

// Billing настройки платёжного шлюза и продления подписки.
type Billing struct {
	// Mode — "disabled", "test" или "live".
	Mode       string           `yaml:"mode" env:"BILLING_MODE" env-default:"disabled"`
	KeyID      string           `yaml:"key_id" env:"BILLING_KEY_ID"`
	KeySecret  string           `yaml:"key_secret" env:"BILLING_KEY_SECRET"`
	Currency   string           `yaml:"currency" env:"BILLING_CURRENCY" env-default:"INR"`
	PeriodDays int              `yaml:"period_days" env:"SUBSCRIPTION_PERIOD_DAYS" env-default:"30"`
	APIURL     string           `yaml:"api_url" env-default:"https://api.razorpay.com/v1"`
	Prices     map[string]int64 `yaml:"prices"`
}

// Scheduler настройки напоминаний об окончании подписки.
// Работает только при заданном rabbitmq.url.
type Scheduler struct {
	Interval     time.Duration `yaml:"interval" env-default:"12h"`
	NoticeWindow time.Duration `yaml:"notice_window" env-default:"72h"`
	BatchSize    int           `yaml:"batch_size" env-default:"100"`
}

const (
	minOutputTokens = 300
	maxOutputTokens = 2000
	defaultPeriod   = 30

	defaultProviderTimeout = 60 * time.Second
)

var defaultPrices = map[string]int64{"A1": 9900, "A2": 19900}

// Load читает конфиг из файла path и переменных окружения и нормализует значения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.normalize()
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) normalize() {
	if c.Billing.PeriodDays <= 0 {
		c.Billing.PeriodDays = defaultPeriod
	}
	if c.Providers.Timeout <= 0 {
		c.Providers.Timeout = defaultProviderTimeout
	}
	if c.Scheduler.Interval <= 0 {
		c.Scheduler.Interval = 12 * time.Hour
	}
	if c.Scheduler.BatchSize <= 0 {
		c.Scheduler.BatchSize = 100
	}
	if len(c.Billing.Prices) == 0 {
		c.Billing.Prices = defaultPrices
	}
	c.Providers.MaxTokensExploration = clamp(c.Providers.MaxTokensExploration, minOutputTokens, maxOutputTokens)
	c.Providers.MaxTokensVerified = clamp(c.Providers.MaxTokensVerified, minOutputTokens, maxOutputTokens)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// BillingConfigured сообщает, включён ли биллинг и заданы ли ключи шлюза.
func (b Billing) BillingConfigured() bool {
	return (b.Mode == "test" || b.Mode == "live") && b.KeyID != "" && b.KeySecret != ""
}

// Configured сообщает, заданы ли все параметры live-провайдера.
func (p Provider) Configured() bool {
	return p.BaseURL != "" && p.APIKey != "" && p.Model != ""
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer: %s (timeout %s)\n"+
			"Redis: %s\n"+
			"RateLimit: %s %d/%s\n"+
			"Providers: %s (timeout %s)\n"+
			"Billing: %s (%s, %d days)\n",
		c.Env,
		c.HTTPServer.Address, c.HTTPServer.Timeout,
		c.Redis.Address,
		c.RateLimit.Backend, c.RateLimit.MaxRequests, c.RateLimit.Window,
		c.Providers.Mode, c.Providers.Timeout,
		c.Billing.Mode, c.Billing.Currency, c.Billing.PeriodDays,
	)
}
