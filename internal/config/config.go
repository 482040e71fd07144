package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDynamo = "dynamo"
	StoreBolt   = "bolt"

	defaultCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	StoreDriver string
	BoltPath    string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	AdminSecret     string
	AdminSecretHash string // bcrypt hash; takes precedence over AdminSecret
	TokenSecret     string
	TokenExpiry     time.Duration

	MaxBatchSize int
	CodeLength   int
	CodeAlphabet string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	ActivationCodes string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreDynamo)),
		BoltPath:       getEnv("BOLT_PATH", "./data/licenses.db"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			ActivationCodes: getEnv("DYNAMO_TABLE_ACTIVATION_CODES", "activation_codes"),
		},
		AdminSecret:     getEnv("ADMIN_SECRET", ""),
		AdminSecretHash: getEnv("ADMIN_SECRET_HASH", ""),
		TokenSecret:     getEnv("TOKEN_SECRET", ""),
		TokenExpiry:     time.Duration(getEnvInt("TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,
		MaxBatchSize:    getEnvInt("MAX_BATCH_SIZE", 100),
		CodeLength:      getEnvInt("CODE_LENGTH", 16),
		CodeAlphabet:    getEnv("CODE_ALPHABET", defaultCodeAlphabet),
		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Validate reports configuration that would leave the service unable to run safely.
func (c *Config) Validate() error {
	var errs []error
	if c.AdminSecret == "" && c.AdminSecretHash == "" {
		errs = append(errs, errors.New("ADMIN_SECRET or ADMIN_SECRET_HASH is required"))
	}
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("TOKEN_SECRET is required"))
	}
	if c.TokenExpiry <= 0 {
		errs = append(errs, errors.New("TOKEN_EXPIRY_DAYS must be positive"))
	}
	if c.MaxBatchSize < 1 {
		errs = append(errs, errors.New("MAX_BATCH_SIZE must be at least 1"))
	}
	if c.CodeLength < 1 {
		errs = append(errs, errors.New("CODE_LENGTH must be at least 1"))
	}
	if len(c.CodeAlphabet) < 2 {
		errs = append(errs, errors.New("CODE_ALPHABET needs at least two characters"))
	}
	switch c.StoreDriver {
	case StoreDynamo, StoreBolt:
	default:
		errs = append(errs, errors.New("STORE_DRIVER must be dynamo or bolt"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
