package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"database/sql"
	"encoding/hex"
	"log"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/midnight-labs/pincade/adapters/chain"
	"github.com/midnight-labs/pincade/adapters/events"
	"github.com/midnight-labs/pincade/adapters/leaderboard"
	"github.com/midnight-labs/pincade/adapters/store"
	"github.com/midnight-labs/pincade/adapters/tokenizer"
	"github.com/midnight-labs/pincade/adapters/users"
	"github.com/midnight-labs/pincade/internal/config"
	"github.com/midnight-labs/pincade/internal/observability"
	"github.com/midnight-labs/pincade/ports"
	"github.com/midnight-labs/pincade/service"
	"github.com/midnight-labs/pincade/transport/http"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Error("failed to init sentry", "error", err)
	}
	defer observability.FlushSentry()

	signKey, err := loadSigningKey(cfg.SigningKeyHex)
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}

	// Redis backs the credential store, the leaderboard and the event
	// stream.
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to reach Redis: %v", err)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}
	if err := users.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}

	var scoreChain ports.ScoreChain
	if cfg.ChainRPCURL != "" {
		scoreChain, err = chain.NewEthereumChain(ctx, cfg.ChainRPCURL, common.HexToAddress(cfg.ScoreContract), cfg.ChainPrivateKey)
		if err != nil {
			log.Fatalf("Failed to connect to chain: %v", err)
		}
	} else {
		logger.Warn("no chain rpc configured, scores stay off-chain")
	}

	credStore := store.NewRedisStore(redisClient)
	userRepo := users.NewPostgresRepository(db)
	eventPub := events.NewWatermillPublisher(publisher)
	board := leaderboard.NewRedisLeaderboard(redisClient)

	authService := service.NewAuthService(tokenizer.NewJWTTokenizer(signKey), credStore, userRepo, eventPub, logger)
	gameService := service.NewGameService(credStore, board, scoreChain, userRepo, logger)

	router := http.SetupRouter(authService, gameService, credStore)

	logger.Info("starting pincade", "addr", cfg.ListenAddr, "env", cfg.Environment)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadSigningKey parses the configured ES256 key (hex-encoded SEC1
// DER), or generates an ephemeral one for development. Ephemeral keys
// invalidate every outstanding access credential on restart.
func loadSigningKey(keyHex string) (*ecdsa.PrivateKey, error) {
	if keyHex == "" {
		slog.Warn("SESSION_SIGNING_KEY not set, generating ephemeral key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}

	return x509.ParseECPrivateKey(raw)
}
