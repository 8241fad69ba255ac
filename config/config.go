// Ininicializing common application configuration
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	ArmBackendTimer    = "timer"
	ArmBackendRabbitMQ = "rabbitmq"

	// MaxTimerDelay (2^31-1 ms, about 24.8 days) bounds a single timer stage.
	MaxTimerDelay = time.Duration(1<<31-1) * time.Millisecond
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Rabbit   RabbitConfig   `mapstructure:"rabbit"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Email    EmailConfig    `mapstructure:"email"`
	Push     PushConfig     `mapstructure:"push"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Reminder ReminderConfig `mapstructure:"reminder"`
}

type ServerConfig struct {
	AppVersion   string        `mapstructure:"appVersion"`
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Idle_timeout time.Duration `mapstructure:"idle_timeout"`
	Env          string        `mapstructure:"environment"`
	Mode         string        `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// Настройки пула соединений
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

type RabbitConfig struct {
	URL       string `mapstructure:"url"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	QueueName string `mapstructure:"queue_name"`
}

func (c RabbitConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.Username, c.Password, c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Enabled  bool   `mapstructure:"enabled"`
}

type PushConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	VAPIDPublicKey  string        `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string        `mapstructure:"vapid_private_key"`
	Subscriber      string        `mapstructure:"subscriber"`
	TTL             time.Duration `mapstructure:"ttl"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	Enabled  bool   `mapstructure:"enabled"`
}

type ReminderConfig struct {
	Timezone         string        `mapstructure:"timezone"`
	SweepSchedule    string        `mapstructure:"sweep_schedule"`
	CatchUpWindow    time.Duration `mapstructure:"catch_up_window"`
	DeliveryTimeout  time.Duration `mapstructure:"delivery_timeout"`
	ClaimTTL         time.Duration `mapstructure:"claim_ttl"`
	ArmBackend       string        `mapstructure:"arm_backend"`
	MaxArmDelay      time.Duration `mapstructure:"max_arm_delay"`
	SweepConcurrency int           `mapstructure:"sweep_concurrency"`
	RetentionDays    int           `mapstructure:"retention_days"`
	CronSecret       string        `mapstructure:"cron_secret"`
	AppURL           string        `mapstructure:"app_url"`
}

// Location resolves Timezone, falling back to UTC.
func (c ReminderConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

func (c ReminderConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func LoadConfig() (*viper.Viper, error) {
	// .env is optional, real environment variables win over it
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("cannot load .env file: %v", err)
	}

	viperInstance := newViper()
	viperInstance.AddConfigPath(GetEnv("CONFIG_PATH", "./config"))
	viperInstance.SetConfigName("config")

	err := viperInstance.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Println("config file not found, using defaults and environment")
	}
	return viperInstance, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	// REMINDER_CATCH_UP_WINDOW overrides reminder.catch_up_window
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	r := c.Reminder

	if _, err := cron.ParseStandard(r.SweepSchedule); err != nil {
		return fmt.Errorf("invalid reminder.sweep_schedule %q: %w", r.SweepSchedule, err)
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return fmt.Errorf("invalid reminder.timezone %q: %w", r.Timezone, err)
		}
	}
	switch r.ArmBackend {
	case ArmBackendTimer, ArmBackendRabbitMQ:
	default:
		return fmt.Errorf("invalid reminder.arm_backend %q", r.ArmBackend)
	}
	if r.DeliveryTimeout <= 0 {
		return fmt.Errorf("reminder.delivery_timeout must be positive")
	}
	if r.MaxArmDelay <= 0 || r.MaxArmDelay > MaxTimerDelay {
		return fmt.Errorf("reminder.max_arm_delay must be in (0, %s]", MaxTimerDelay)
	}
	if r.SweepConcurrency < 1 {
		return fmt.Errorf("reminder.sweep_concurrency must be at least 1")
	}
	if r.RetentionDays < 1 {
		return fmt.Errorf("reminder.retention_days must be at least 1")
	}
	return nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.appVersion", "1.0.0")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "calendar")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "calendar")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_timeout", 4*time.Second)

	// RabbitMQ defaults
	v.SetDefault("rabbit.url", "")
	v.SetDefault("rabbit.host", "localhost")
	v.SetDefault("rabbit.port", 5672)
	v.SetDefault("rabbit.username", "guest")
	v.SetDefault("rabbit.password", "guest")
	v.SetDefault("rabbit.queue_name", "calendar_reminders")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "reminder-deliveries")

	// Email defaults
	v.SetDefault("email.from", "reminders@calendar.local")
	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.enabled", false)

	// Push defaults
	v.SetDefault("push.enabled", false)
	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.vapid_private_key", "")
	v.SetDefault("push.subscriber", "mailto:admin@calendar.local")
	v.SetDefault("push.ttl", 24*time.Hour)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")

	// Reminder defaults
	v.SetDefault("reminder.timezone", "UTC")
	v.SetDefault("reminder.sweep_schedule", "* * * * *")
	v.SetDefault("reminder.catch_up_window", 30*time.Minute)
	v.SetDefault("reminder.delivery_timeout", 15*time.Second)
	v.SetDefault("reminder.claim_ttl", time.Minute)
	v.SetDefault("reminder.arm_backend", ArmBackendTimer)
	v.SetDefault("reminder.max_arm_delay", MaxTimerDelay)
	v.SetDefault("reminder.sweep_concurrency", 8)
	v.SetDefault("reminder.retention_days", 30)
	v.SetDefault("reminder.cron_secret", "")
	v.SetDefault("reminder.app_url", "http://localhost:3000")
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
