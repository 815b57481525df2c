package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings
type Config struct {
	ListenAddr  string
	Environment string

	RedisURL       string
	DatabaseURL    string
	DBMaxOpenConns int

	// SigningKeyHex is the ES256 signing key as hex-encoded SEC1
	// bytes. Empty means generate an ephemeral dev key.
	SigningKeyHex string

	SentryDSN string

	// Chain settings; empty ChainRPCURL disables on-chain scoring.
	ChainRPCURL     string
	ScoreContract   string
	ChainPrivateKey string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid int for %s, using default: %v", key, err)
		return def
	}
	return i
}

// Load reads configuration from the environment, honoring a local
// .env file when present
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:      getenv("LISTEN_ADDR", ":9000"),
		Environment:     getenv("APP_ENV", "development"),
		RedisURL:        getenv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		DBMaxOpenConns:  getInt("DB_MAX_OPEN_CONNS", 10),
		SigningKeyHex:   getenv("SESSION_SIGNING_KEY", ""),
		SentryDSN:       getenv("SENTRY_DSN", ""),
		ChainRPCURL:     getenv("CHAIN_RPC_URL", ""),
		ScoreContract:   getenv("SCORE_CONTRACT_ADDRESS", ""),
		ChainPrivateKey: getenv("CHAIN_PRIVATE_KEY", ""),
	}
}
