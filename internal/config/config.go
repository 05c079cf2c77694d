package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure. It covers the
// environment, the operational HTTP server, the CT-log client, the monitoring
// loop, persistence and the Telegram bot.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains settings for the operational server (metrics, health, pprof)
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":9090" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// CTLog contains settings for the Certificate Transparency query client
	CTLog struct {
		// BaseURL is the CT-log search endpoint
		BaseURL string `env:"CTLOG_BASE_URL" env-default:"https://crt.sh" yaml:"baseURL"`
		// RequestTimeout bounds a single query so one slow lookup cannot stall a pass
		RequestTimeout time.Duration `env:"CTLOG_REQUEST_TIMEOUT" env-default:"15s" yaml:"requestTimeout"`
		// UserAgent is sent with every query
		UserAgent string `env:"CTLOG_USER_AGENT" env-default:"certwatch/1.0" yaml:"userAgent"`
	} `yaml:"ctlog"`

	// Monitor contains settings for the scan scheduler and retry policy
	Monitor struct {
		// Interval is the sleep between two full scan passes
		Interval time.Duration `env:"MONITOR_INTERVAL" env-default:"1h" yaml:"interval"`
		// Attempts is the total number of query attempts per domain scan (1 initial + retries)
		Attempts int `env:"MONITOR_ATTEMPTS" env-default:"3" yaml:"attempts"`
		// BackoffBase is the delay before the first retry; each further retry doubles it
		BackoffBase time.Duration `env:"MONITOR_BACKOFF_BASE" env-default:"5s" yaml:"backoffBase"`
		// DomainDelay spaces consecutive CT-log queries to stay under the endpoint's rate limit
		DomainDelay time.Duration `env:"MONITOR_DOMAIN_DELAY" env-default:"10s" yaml:"domainDelay"`
	} `yaml:"monitor"`

	// Storage contains settings for the known-subdomain store
	Storage struct {
		// Dir is the directory holding one JSON file per monitored domain
		Dir string `env:"STORAGE_DIR" env-default:"data" yaml:"dir"`
	} `yaml:"storage"`

	// Telegram contains settings for the command/notification bot
	Telegram struct {
		// Token is the bot token issued by BotFather
		Token string `env:"TELEGRAM_TOKEN" yaml:"token"`
		// BaseURL overrides the Bot API endpoint, mainly for tests
		BaseURL string `env:"TELEGRAM_BASE_URL" env-default:"https://api.telegram.org" yaml:"baseURL"`
		// AdminChatID is the only chat the bot listens to and alerts
		AdminChatID int64 `env:"TELEGRAM_ADMIN_CHAT_ID" yaml:"adminChatID"`
		// Password gates commands; the chat must authenticate once per process lifetime
		Password string `env:"TELEGRAM_PASSWORD" yaml:"password"`
		// PollTimeout is the getUpdates long-poll wait
		PollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT" env-default:"30s" yaml:"pollTimeout"`
	} `yaml:"telegram"`

	// GracefulShutdownTimeout is the maximum duration to wait for in-flight work during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
