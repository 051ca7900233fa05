package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Payment    PaymentConfig    `yaml:"payment"`
	Invoice    InvoiceConfig    `yaml:"invoice"`
}

// HTTPServerConfig holds the listener settings
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig holds the token settings, the secret comes from the environment only
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// RedisConfig holds the cache settings; invoice URLs and completed payment
// session statuses are kept here with a TTL
type RedisConfig struct {
	Address    string        `yaml:"address" env-default:"localhost:6379"`
	InvoiceTTL time.Duration `yaml:"invoice_ttl" env-default:"720h"`
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"24h"`
}

// KafkaConfig holds the broker settings for order-confirmed events
type KafkaConfig struct {
	Brokers        []string `yaml:"brokers" env-default:"localhost:9092"`
	OrdersTopic    string   `yaml:"orders_topic" env-default:"orders.confirmed"`
	InvoiceGroupID string   `yaml:"invoice_group_id" env-default:"invoice-worker"`
}

// PaymentConfig holds the hosted-checkout provider settings, the API key
// comes from the environment only
type PaymentConfig struct {
	BaseURL    string        `yaml:"base_url" env-required:"true"`
	APIKey     string        `yaml:"-" env:"PAYMENT_API_KEY" env-required:"true"`
	SuccessURL string        `yaml:"success_url" env-default:"http://localhost:3000/checkout/success"`
	Timeout    time.Duration `yaml:"timeout" env-default:"10s"`
}

// InvoiceConfig holds the invoice worker settings. BaseURL is the public
// root under which generated invoice documents are served.
type InvoiceConfig struct {
	BaseURL string `yaml:"base_url" env-default:"http://localhost:8080"`
}

// MustLoad panics when the config cannot be loaded
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
