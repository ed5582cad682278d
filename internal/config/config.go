// Package config загружает конфигурацию kycdoc.
//
// Источники по возрастанию приоритета: значения по умолчанию, YAML файл
// (если указан), переменные окружения KYCDOC_* (например,
// KYCDOC_BROKER_URL для broker.url). Для совместимости читаются также
// RABBITMQ_URL, DB_URL, LOG_LEVEL, LOG_FORMAT, JWT_SECRET и GEMINI_API_KEY.
package config

import "time"

// Config — вся конфигурация процессов kycdoc.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Broker     BrokerConfig     `mapstructure:"broker"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Summary    SummaryConfig    `mapstructure:"summary"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// LogConfig — настройки логирования.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// ServerConfig — HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" validate:"gte=0"`
}

// DatabaseConfig — PostgreSQL.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// BrokerConfig — RabbitMQ.
type BrokerConfig struct {
	URL               string        `mapstructure:"url" validate:"required"`
	Queue             string        `mapstructure:"queue" validate:"required"`
	ConnectAttempts   int           `mapstructure:"connect_attempts" validate:"gte=1"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	Prefetch          int           `mapstructure:"prefetch" validate:"eq=1"`
	WaitForConnection bool          `mapstructure:"wait_for_connection"`
	PublisherConfirms bool          `mapstructure:"publisher_confirms"`
}

// WorkerConfig — процесс генерации документов.
type WorkerConfig struct {
	StartRetryDelay time.Duration `mapstructure:"start_retry_delay" validate:"gt=0"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout" validate:"gte=0"`
	MaxRedeliveries int           `mapstructure:"max_redeliveries" validate:"gte=0"`
	OpsAddr         string        `mapstructure:"ops_addr" validate:"required"`
}

// RedisConfig — счётчик повторных доставок. Пустой Addr — счётчик в памяти.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// StorageConfig — хранилище документов.
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=local gcs"`
	Dir    string `mapstructure:"dir" validate:"required_if=Driver local"`
	Bucket string `mapstructure:"bucket" validate:"required_if=Driver gcs"`
}

// AuthConfig — токены и администратор по умолчанию.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// SummaryConfig — генерация описания заявителя. Пустой ключ — статическое описание.
type SummaryConfig struct {
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// ReconcilerConfig — повторная публикация потерянных задач.
type ReconcilerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Schedule  string        `mapstructure:"schedule" validate:"required_if=Enabled true"`
	Grace     time.Duration `mapstructure:"grace" validate:"gt=0"`
	BatchSize int           `mapstructure:"batch_size" validate:"gt=0"`
}

// TracingConfig — экспорт трейсов OTLP.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `mapstructure:"service_name"`
}
