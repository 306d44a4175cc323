package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Plaid    PlaidConfig
	Queue    QueueConfig
	Signer   SignerConfig
	Crypto   CryptoConfig
	Roundup  RoundupConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// PlaidConfig holds aggregator API settings
type PlaidConfig struct {
	Environment string
	ClientId    string
	Secret      string
	Timeout     time.Duration
}

// QueueConfig holds SQS settings for both signer queues
type QueueConfig struct {
	ToSignerUrl    string
	FromSignerUrl  string
	WaitTime       time.Duration
	EmptyPollLimit int
}

// SignerConfig holds the external co-signing service settings
type SignerConfig struct {
	Url       string
	PublicKey string // hex ed25519 fallback for addresses without their own key
	Timeout   time.Duration
}

// CryptoConfig holds the server long-term signing key settings
type CryptoConfig struct {
	ServerPrivateKey string
	ServerKid        string
}

// RoundupConfig holds scheduler settings
type RoundupConfig struct {
	Concurrency int
}
