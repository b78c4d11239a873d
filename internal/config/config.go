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
	Storage    StorageConfig    `yaml:"storage"`
	Payment    PaymentConfig    `yaml:"payment"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// StorageConfig — настройки объектного хранилища для картинок и документов
type StorageConfig struct {
	Bucket    string `yaml:"bucket" env-default:"e-kicker"`
	Region    string `yaml:"region" env-default:"us-east-1"`
	AccessKey string `yaml:"-" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"-" env:"S3_SECRET_KEY"`
}

// PaymentConfig — настройки платёжного шлюза, секрет только из окружения
type PaymentConfig struct {
	KeyID     string `yaml:"key_id" env:"PAYMENT_KEY_ID"`
	KeySecret string `yaml:"-" env:"PAYMENT_KEY_SECRET"`
	Currency  string `yaml:"currency" env-default:"INR"`
}

// CheckoutConfig — список индексов зоны доставки, проверяется на сервере
type CheckoutConfig struct {
	DeliveryZipCodes []string `yaml:"delivery_zip_codes"`
}

// CatalogConfig — заглушка картинки, если загрузка в хранилище не удалась
type CatalogConfig struct {
	DefaultImage string `yaml:"default_image" env-default:"vite.svg"`
}

// MustLoad - если не загружаем - паникуем
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
