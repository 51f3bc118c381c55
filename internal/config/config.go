package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	LockBackendNone  = "none"
	LockBackendRedis = "redis"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	StoreBackend string // postgres/memory

	DatabaseURL      string // あれば POSTGRES_* より優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string
	MaxOpenConns     int
	MaxIdleConns     int

	JWTSecret string // JWT署名シークレット

	LockTimeout time.Duration // 商品ロック待ちの上限
	LockBackend string        // none/redis

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// available + reserved <= stock を強制する
	StrictReconcile bool

	LogLevel    string // debug/info/warn/error
	LogEncoding string // console/json
}

func (c Config) IsDev() bool {
	return c.GoEnv == "" || c.GoEnv == "dev" || c.GoEnv == "development"
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := intOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := intOr("POSTGRES_MAX_OPEN_CONNS", 20)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := intOr("POSTGRES_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	lockMS, err := intOr("LOCK_TIMEOUT_MS", 5000)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := intOr("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	strict, err := boolOr("INVENTORY_STRICT_RECONCILE", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		StoreBackend: getenv("STORE_BACKEND", StoreBackendPostgres),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "app"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		MaxOpenConns:     maxOpen,
		MaxIdleConns:     maxIdle,

		JWTSecret: os.Getenv("JWT_SECRET"),

		LockTimeout: time.Duration(lockMS) * time.Millisecond,
		LockBackend: getenv("LOCK_BACKEND", LockBackendNone),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		StrictReconcile: strict,

		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogEncoding: getenv("LOG_ENCODING", "json"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND must be postgres or memory")
	}
	switch cfg.LockBackend {
	case LockBackendNone, LockBackendRedis:
	default:
		return Config{}, fmt.Errorf("LOCK_BACKEND must be none or redis")
	}
	if cfg.LockTimeout <= 0 {
		return Config{}, fmt.Errorf("LOCK_TIMEOUT_MS must be > 0")
	}

	return cfg, nil
}

// PostgresDSNはgorm用の接続文字列
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}
