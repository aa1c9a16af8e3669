package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DriverWebDAV = "webdav"
	DriverS3     = "s3"
	DriverFS     = "fs"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	DSN       string          `yaml:"dsn" env:"DATABASE_URL" env-required:"true"`
	HTTP      HTTPConfig      `yaml:"http"`
	Blob      BlobConfig      `yaml:"blob"`
	Redis     RedisConf       `yaml:"redis"`
	Photos    PhotosConfig    `yaml:"photos"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
	AllowOrigins    []string      `yaml:"allow_origins" env:"HTTP_ALLOW_ORIGINS" env-separator:","`
}

type BlobConfig struct {
	Driver       string        `yaml:"driver" env:"BLOB_DRIVER" env-default:"webdav"`
	Root         string        `yaml:"root" env:"BLOB_ROOT" env-default:"Photos"`
	Timeout      time.Duration `yaml:"timeout" env-default:"30s"`
	WebDAV       WebDAVConfig  `yaml:"webdav"`
	S3           S3Config      `yaml:"s3"`
	FS           FSConfig      `yaml:"fs"`
	Retry        RetryConfig   `yaml:"retry"`
	ReadAttempts int           `yaml:"read_attempts" env-default:"2"`
}

type WebDAVConfig struct {
	URL      string `yaml:"url" env:"WEBDAV_URL"`
	User     string `yaml:"user" env:"WEBDAV_USER"`
	Password string `yaml:"password" env:"WEBDAV_PASSWORD"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
}

// FSConfig keeps blobs on local disk, for development.
type FSConfig struct {
	Dir string `yaml:"dir" env:"BLOB_FS_DIR" env-default:"./data/blobs"`
}

type RetryConfig struct {
	Attempts   int           `yaml:"attempts" env-default:"3"`
	Base       time.Duration `yaml:"base" env-default:"1s"`
	MaxBackoff time.Duration `yaml:"max_backoff" env-default:"4s"`
}

type RedisConf struct {
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	Timeout       time.Duration `yaml:"timeout" env-default:"3s"`
}

type PhotosConfig struct {
	APIPrefix        string        `yaml:"api_prefix" env-default:"/api/photos"`
	PlaceholderURL   string        `yaml:"placeholder_url" env:"PHOTOS_PLACEHOLDER_URL" env-default:"/images/placeholder.jpg"`
	ResizeThreshold  int           `yaml:"resize_threshold_bytes" env-default:"2097152"`
	MaxWidth         int           `yaml:"max_width" env-default:"2400"`
	MaxHeight        int           `yaml:"max_height" env-default:"2400"`
	QualityStart     int           `yaml:"quality_start" env-default:"85"`
	QualityStep      int           `yaml:"quality_step" env-default:"10"`
	QualityFloor     int           `yaml:"quality_floor" env-default:"40"`
	MaxUploadBytes   int           `yaml:"max_upload_bytes" env-default:"26214400"`
	MetadataCacheTTL time.Duration `yaml:"metadata_cache_ttl" env-default:"1m"`
}

type AuthConfig struct {
	AdminUsername string        `yaml:"admin_username" env:"ADMIN_USERNAME" env-required:"true"`
	AdminPassword string        `yaml:"admin_password" env:"ADMIN_PASSWORD" env-required:"true"`
	SessionSecret string        `yaml:"session_secret" env:"SESSION_SECRET" env-required:"true"`
	TokenSecret   string        `yaml:"token_secret" env:"TOKEN_SECRET" env-required:"true"`
	TokenTTL      time.Duration `yaml:"token_ttl" env-default:"12h"`
}

type RateLimitConfig struct {
	SocialPerMinute int `yaml:"social_per_minute" env-default:"30"`
}

func MustLoad() *Config {
	// A missing .env file is fine; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

// Load reads configPath, or only the environment when configPath is empty,
// and validates the result.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from environment: %w", err)
		}
	} else {
		// check if file exists
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}

		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks rules that span several fields.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("env must be one of local, dev, prod, got %q", c.Env))
	}

	switch c.Blob.Driver {
	case DriverWebDAV:
		if c.Blob.WebDAV.URL == "" {
			errs = append(errs, errors.New("blob.webdav.url is required for the webdav driver"))
		}
	case DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for the s3 driver"))
		}
	case DriverFS:
		if c.Blob.FS.Dir == "" {
			errs = append(errs, errors.New("blob.fs.dir is required for the fs driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver must be webdav, s3 or fs, got %q", c.Blob.Driver))
	}

	if strings.Contains(c.Blob.Root, "..") {
		errs = append(errs, errors.New("blob.root must not contain .."))
	}
	if c.Blob.Retry.Attempts < 0 {
		errs = append(errs, errors.New("blob.retry.attempts must not be negative"))
	}
	if c.Blob.ReadAttempts < 1 {
		errs = append(errs, errors.New("blob.read_attempts must be at least 1"))
	}

	if c.Photos.PlaceholderURL == "" {
		errs = append(errs, errors.New("photos.placeholder_url is required"))
	}
	if c.Photos.QualityFloor < 1 || c.Photos.QualityFloor > c.Photos.QualityStart || c.Photos.QualityStart > 100 {
		errs = append(errs, errors.New("photos quality must satisfy 1 <= quality_floor <= quality_start <= 100"))
	}
	if c.Photos.QualityStep < 1 {
		errs = append(errs, errors.New("photos.quality_step must be positive"))
	}

	if len(c.Auth.SessionSecret) < 16 {
		errs = append(errs, errors.New("auth.session_secret must be at least 16 bytes"))
	}
	if len(c.Auth.TokenSecret) < 16 {
		errs = append(errs, errors.New("auth.token_secret must be at least 16 bytes"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

func (c *Config) Address() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
