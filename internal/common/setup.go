package common

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/database"
	"roundup-pipeline-go/internal/models"
	"roundup-pipeline-go/internal/plaid"
	"roundup-pipeline-go/internal/queue"
	"roundup-pipeline-go/internal/signer"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		// Only log if the file exists but couldn't be read
		// (godotenv returns an error if .env doesn't exist)
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService       *database.Service
	PlaidService    *plaid.Service
	QueueService    *queue.Service
	SignerService   *signer.Service
	SigningKey      ed25519.PrivateKey
	ServerPublicKey string // hex, derived from the signing key
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the full intake stack: database, aggregator
// client, queues, signer trigger, and the server signing key.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Initializing aggregator client", zap.String("environment", cfg.Plaid.Environment))
	plaidService, err := plaid.NewService(cfg.Plaid)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	queueService, err := queue.NewService(ctx, cfg.Queue)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	signerService, err := signer.NewService(cfg.Signer)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	signingKey, publicKey, err := loadSigningKey(cfg)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	return &Services{
		DbService:       dbService,
		PlaidService:    plaidService,
		QueueService:    queueService,
		SignerService:   signerService,
		SigningKey:      signingKey,
		ServerPublicKey: publicKey,
	}, nil
}

// InitializeConsumerServices wires only what the queue consumer needs:
// database, queues, and the server key for signature verification.
func InitializeConsumerServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	queueService, err := queue.NewService(ctx, cfg.Queue)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	signingKey, publicKey, err := loadSigningKey(cfg)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	return &Services{
		DbService:       dbService,
		QueueService:    queueService,
		SigningKey:      signingKey,
		ServerPublicKey: publicKey,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for seeding and read-only inspection commands
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func loadSigningKey(cfg *models.Config) (ed25519.PrivateKey, string, error) {
	if cfg.Crypto.ServerPrivateKey == "" {
		return nil, "", fmt.Errorf("missing required signing key: SERVER_PRIVATE_KEY")
	}

	signingKey, err := chain.ParsePrivateKey(cfg.Crypto.ServerPrivateKey)
	if err != nil {
		return nil, "", fmt.Errorf("unable to parse SERVER_PRIVATE_KEY: %w", err)
	}

	publicKey := hex.EncodeToString(signingKey.Public().(ed25519.PublicKey))
	return signingKey, publicKey, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
