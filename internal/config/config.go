package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Payment   PaymentConfig
	Callback  CallbackConfig
	Worker    WorkerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
	// PublicBaseURL is used to build payUrl; the request host is used when empty.
	PublicBaseURL string
	CORSOrigins   []string
}

type DatabaseConfig struct {
	Driver string
	URL    string
}

type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
	TopupTopic  string
	Partitions  int
	// Sarama-specific
	Version       string
	ConsumerGroup string
}

// Enabled reports whether any broker address is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type PaymentConfig struct {
	SessionTTL        time.Duration
	PaymentServiceURL string
	BcryptCost        int
}

type CallbackConfig struct {
	Secret           string
	Timeout          time.Duration
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxTotalAttempts int
	RetryBatch       int
}

type WorkerConfig struct {
	ProcessingInterval time.Duration
	SweepInterval      time.Duration
	SweepBatch         int
}

type AuthConfig struct {
	TokenTTL time.Duration
}

type RateLimitConfig struct {
	Window       time.Duration
	PaymentLimit int
	LoginLimit   int
}

type LogConfig struct {
	Level string
}

func New() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          getenv("SERVER_PORT", ":4000"),
			PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
			CORSOrigins:   splitList(getenv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Driver: getenv("DB_DRIVER", "postgres"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			EventsTopic:   getenv("KAFKA_EVENTS_TOPIC", "wallet.events"),
			TopupTopic:    getenv("KAFKA_TOPUP_TOPIC", "wallet.topups"),
			Partitions:    getInt("KAFKA_PARTITIONS", 1),
			Version:       os.Getenv("KAFKA_VERSION"),
			ConsumerGroup: getenv("KAFKA_CONSUMER_GROUP", "topup-worker"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			PoolSize: getInt("REDIS_POOL_SIZE", 10),
		},
		Payment: PaymentConfig{
			SessionTTL:        getDuration("SESSION_TTL", time.Hour),
			PaymentServiceURL: strings.TrimRight(os.Getenv("PAYMENT_SERVICE_URL"), "/"),
			BcryptCost:        getInt("BCRYPT_COST", 10),
		},
		Callback: CallbackConfig{
			Secret:           os.Getenv("WEBHOOK_SECRET"),
			Timeout:          getDuration("CALLBACK_TIMEOUT", 10*time.Second),
			MaxAttempts:      getInt("CALLBACK_RETRY_ATTEMPTS", 3),
			BaseDelay:        getDuration("CALLBACK_RETRY_DELAY", time.Second),
			MaxTotalAttempts: getInt("CALLBACK_MAX_TOTAL_ATTEMPTS", 10),
			RetryBatch:       getInt("CALLBACK_RETRY_BATCH", 10),
		},
		Worker: WorkerConfig{
			ProcessingInterval: getDuration("WORKER_PROCESSING_INTERVAL", time.Second),
			SweepInterval:      getDuration("SWEEP_INTERVAL", time.Minute),
			SweepBatch:         getInt("SWEEP_BATCH", 500),
		},
		Auth: AuthConfig{
			TokenTTL: getDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Window:       getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			PaymentLimit: getInt("RATE_LIMIT_PAYMENT", 20),
			LoginLimit:   getInt("RATE_LIMIT_LOGIN", 10),
		},
		Log: LogConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
	}
}

// Validate checks the settings the gateway cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		errs = append(errs, errors.New("DB_DRIVER must be postgres or sqlite"))
	}
	if c.Callback.Secret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required"))
	}
	if c.Callback.MaxAttempts < 1 {
		errs = append(errs, errors.New("CALLBACK_RETRY_ATTEMPTS must be at least 1"))
	}
	if c.Callback.MaxTotalAttempts < c.Callback.MaxAttempts {
		errs = append(errs, errors.New("CALLBACK_MAX_TOTAL_ATTEMPTS must not be below CALLBACK_RETRY_ATTEMPTS"))
	}
	if c.Payment.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func (k *KafkaConfig) GetSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()

	if k.Version != "" {
		version, err := sarama.ParseKafkaVersion(k.Version)
		if err == nil {
			config.Version = version
		}
	}

	// Consumer settings
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.AutoCommit.Enable = true
	config.Consumer.Offsets.AutoCommit.Interval = 2 * time.Minute
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	// Topup commands are small; keep fetches modest
	config.Consumer.Fetch.Min = 1
	config.Consumer.Fetch.Default = 256 * 1024
	config.Consumer.MaxWaitTime = 100 * time.Millisecond

	config.Net.MaxOpenRequests = 5
	config.Net.DialTimeout = 30 * time.Second
	config.Net.ReadTimeout = 30 * time.Second
	config.Net.WriteTimeout = 30 * time.Second

	return config
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
