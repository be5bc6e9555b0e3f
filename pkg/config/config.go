package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App         AppConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Matching    MatchingConfig
	Suppression SuppressionConfig
	Unlock      UnlockConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
	LogFile     string
}

type ServerConfig struct {
	Port    string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	MaxRetries int
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        string
	Password    string
	DB          int
	CacheTTL    time.Duration
	DialTimeout time.Duration
	// read and write timeout of each command
	IOTimeout time.Duration
	PoolSize  int
}

type JWTConfig struct {
	SecretKey string
}

type StorageConfig struct {
	Driver string
}

type MatchingConfig struct {
	// "skill:0.4,commute:0.2,..."; parsed and checked by the scoring package
	Weights           string
	VacuousSkillScore float64
	MaxCommuteKm      float64
	DefaultK          int
	MaxK              int
}

type SuppressionConfig struct {
	DefaultCooldownDays int
	MaxCooldownDays     int
}

type UnlockConfig struct {
	Cost int64
}

// WeightsValidator checks the matching weights string. It is injected so
// this package does not depend on the scoring package.
type WeightsValidator func(raw string) error

func Load(validateWeights WeightsValidator) (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	num := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	flt := func(key string, def float64) float64 {
		v, err := getEnvFloat(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	dur := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	flag := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Talent Market Matching"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFile:     getEnv("LOG_FILE", ""),
		},
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			Timeout: dur("SERVER_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			Name:       getEnv("DB_NAME", "talent_market"),
			SSLMode:    getEnv("DB_SSL_MODE", "disable"),
			MaxRetries: num("DB_MAX_TX_RETRIES", 3),
		},
		Redis: RedisConfig{
			Enabled:  flag("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       num("REDIS_DB", 0),
			CacheTTL: dur("RANKING_CACHE_TTL", 10*time.Minute),

			DialTimeout: dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			IOTimeout:   dur("REDIS_IO_TIMEOUT", 3*time.Second),
			PoolSize:    num("REDIS_POOL_SIZE", 10),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		},
		Matching: MatchingConfig{
			Weights:           getEnv("MATCH_WEIGHTS", "skill:0.4,commute:0.2,language:0.2,benefits:0.1,quality:0.1"),
			VacuousSkillScore: flt("MATCH_VACUOUS_SKILL_SCORE", 1),
			MaxCommuteKm:      flt("MATCH_MAX_COMMUTE_KM", 50),
			DefaultK:          num("MATCH_DEFAULT_K", 20),
			MaxK:              num("MATCH_MAX_K", 200),
		},
		Suppression: SuppressionConfig{
			DefaultCooldownDays: num("SUPPRESSION_DEFAULT_DAYS", 30),
			MaxCooldownDays:     num("SUPPRESSION_MAX_DAYS", 365),
		},
		Unlock: UnlockConfig{
			Cost: int64(num("UNLOCK_COST", 10)),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	switch cfg.Storage.Driver {
	case DriverPostgres:
		if cfg.Database.Password == "" {
			return nil, errors.New("missing database password")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if validateWeights != nil {
		if err := validateWeights(cfg.Matching.Weights); err != nil {
			return nil, fmt.Errorf("invalid MATCH_WEIGHTS: %w", err)
		}
	}
	if cfg.Matching.VacuousSkillScore < 0 || cfg.Matching.VacuousSkillScore > 1 {
		return nil, errors.New("MATCH_VACUOUS_SKILL_SCORE must be within [0,1]")
	}
	if cfg.Matching.DefaultK <= 0 || cfg.Matching.MaxK < cfg.Matching.DefaultK {
		return nil, errors.New("MATCH_DEFAULT_K must be positive and not above MATCH_MAX_K")
	}
	if cfg.Suppression.DefaultCooldownDays <= 0 || cfg.Suppression.MaxCooldownDays < cfg.Suppression.DefaultCooldownDays {
		return nil, errors.New("SUPPRESSION_DEFAULT_DAYS must be positive and not above SUPPRESSION_MAX_DAYS")
	}
	if cfg.Redis.Enabled && (cfg.Redis.DialTimeout <= 0 || cfg.Redis.IOTimeout <= 0 || cfg.Redis.PoolSize <= 0) {
		return nil, errors.New("REDIS_DIAL_TIMEOUT, REDIS_IO_TIMEOUT and REDIS_POOL_SIZE must be positive")
	}
	if cfg.Unlock.Cost <= 0 {
		return nil, errors.New("UNLOCK_COST must be positive")
	}

	return cfg, nil
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, val)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, val)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, val)
	}
	return b, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, val)
	}
	return d, nil
}
