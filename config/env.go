package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

// Output formats accepted by RECON_OUTPUT_FORMAT.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var defaultOutlets = []string{"OUTLET_01", "OUTLET_02", "OUTLET_03"}

// DatabaseConfig describes one side of the reconciliation.
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"required,min=1,max=65535"`
	User     string `validate:"required"`
	Password string
	Name     string `validate:"required"`
	SSLMode  string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
}

// PoolConfig tunes database/sql for both connections.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int `validate:"min=1"`
}

type StorageConfig struct {
	Bucket          string
	Prefix          string
	CredentialsJSON string
}

type AlertConfig struct {
	Topic           string
	CreateTopic     bool
	ProjectID       string `validate:"required_with=Topic"`
	CredentialsJSON string
}

type RedisConfig struct {
	Address  string
	Password string
	LockKey  string        `validate:"required_with=Address"`
	LockTTL  time.Duration `validate:"required_with=Address"`
}

// Config is built once at startup and handed to every constructor.
type Config struct {
	Source DatabaseConfig
	Target DatabaseConfig
	Pool   PoolConfig

	Outlets      []string `validate:"required,min=1,dive,required,excludesall=/\\"`
	OutputDir    string   `validate:"required"`
	OutputFormat string   `validate:"oneof=csv xlsx"`
	Concurrency  int      `validate:"min=1,max=32"`
	FailFast     bool
	DryRun       bool
	QueryTimeout time.Duration
	LogLevel     string

	Storage StorageConfig
	Alert   AlertConfig
	Redis   RedisConfig

	// envErrs holds the variables Load could not parse.
	envErrs []string
}

// Load reads .env (if present) and the process environment. Unset variables
// fall back to local-testing defaults; malformed values are recorded and
// reported by Validate. Apply any flag overrides first and then call Validate.
func Load() *Config {
	// Missing .env is fine.
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		Source: DatabaseConfig{
			Host:     getEnv("SRC_DB_HOST", "db-source.example.com"),
			Port:     env.readInt("SRC_DB_PORT", 3306),
			User:     getEnv("SRC_DB_USER", "readonly_user"),
			Password: getEnv("SRC_DB_PASSWORD", "password"),
			Name:     getEnv("SRC_DB_NAME", "source_db"),
		},
		Target: DatabaseConfig{
			Host:     getEnv("TGT_DB_HOST", "db-target.example.com"),
			Port:     env.readInt("TGT_DB_PORT", 5432),
			User:     getEnv("TGT_DB_USER", "readonly_user"),
			Password: getEnv("TGT_DB_PASSWORD", "password"),
			Name:     getEnv("TGT_DB_NAME", "target_db"),
			SSLMode:  getEnv("TGT_DB_SSLMODE", "disable"),
		},
		Pool: PoolConfig{
			MaxOpenConns:    env.readInt("DB_MAX_OPEN_CONNS", 4),
			MaxIdleConns:    env.readInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: env.readDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectAttempts: env.readInt("DB_CONNECT_ATTEMPTS", 3),
		},
		Outlets:      defaultOutlets,
		OutputDir:    getEnv("RECON_OUTPUT_DIR", "."),
		OutputFormat: strings.ToLower(getEnv("RECON_OUTPUT_FORMAT", FormatCSV)),
		Concurrency:  env.readInt("RECON_CONCURRENCY", 1),
		FailFast:     env.readBool("RECON_FAIL_FAST", false),
		DryRun:       env.readBool("RECON_DRY_RUN", false),
		QueryTimeout: env.readDuration("RECON_QUERY_TIMEOUT", 2*time.Minute),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Storage: StorageConfig{
			Bucket:          strings.TrimSpace(os.Getenv("RECON_GCS_BUCKET")),
			Prefix:          strings.Trim(os.Getenv("RECON_GCS_PREFIX"), "/"),
			CredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
		},
		Alert: AlertConfig{
			Topic:           strings.TrimSpace(os.Getenv("RECON_ALERT_TOPIC")),
			CreateTopic:     env.readBool("RECON_ALERT_CREATE_TOPIC", false),
			ProjectID:       pubSubProjectID(),
			CredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),
		},
		Redis: RedisConfig{
			Address:  strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
			Password: os.Getenv("REDIS_PASSWORD"),
			LockKey:  getEnv("RECON_LOCK_KEY", "menu-recon:run"),
			LockTTL:  env.readDuration("RECON_LOCK_TTL", 30*time.Minute),
		},
	}
	if outlets := utils.SplitAndTrim(os.Getenv("RECON_OUTLETS")); len(outlets) > 0 {
		cfg.Outlets = outlets
	}
	cfg.envErrs = env.errs
	return cfg
}

// Validate checks the struct tags and returns one error listing every bad field.
func (c *Config) Validate() error {
	msgs := append([]string(nil), c.envErrs...)
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func pubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return os.Getenv("GCP_PROJECT")
}

// getEnv reads an environment variable with a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// envReader parses typed variables. Blank or unset keeps the default; a value
// that does not parse keeps the default and is recorded in errs.
type envReader struct {
	errs []string
}

func (r *envReader) readInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s=%q is not an integer", key, v))
		return def
	}
	return n
}

func (r *envReader) readDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s=%q is not a duration (e.g. 90s, 2m)", key, v))
		return def
	}
	return d
}

func (r *envReader) readBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		r.errs = append(r.errs, fmt.Sprintf("%s=%q is not a boolean", key, v))
		return def
	}
}
