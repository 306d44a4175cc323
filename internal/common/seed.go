package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/database"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// SeedConfig is the YAML document consumed by cmd/setup. It provisions
// banks, users with aggregator tokens, pledges with their monthly address
// map, and the ledger addresses themselves.
type SeedConfig struct {
	Banks     []SeedBank    `yaml:"banks"`
	Users     []SeedUser    `yaml:"users"`
	Addresses []SeedAddress `yaml:"addresses"`
}

type SeedBank struct {
	Id   string `yaml:"id"`
	Type string `yaml:"type"`
}

type SeedUser struct {
	Id      string       `yaml:"id"`
	Active  bool         `yaml:"active"`
	Tokens  []SeedToken  `yaml:"tokens"`
	Pledges []SeedPledge `yaml:"pledges"`
}

type SeedToken struct {
	BankType    string `yaml:"bank_type"`
	AccessToken string `yaml:"access_token"`
	AccountId   string `yaml:"account_id"`
}

type SeedPledge struct {
	Id           string            `yaml:"id"`
	BankId       string            `yaml:"bank_id"`
	NpoId        string            `yaml:"npo_id"`
	Active       bool              `yaml:"active"`
	MonthlyLimit string            `yaml:"monthly_limit"`
	Position     int               `yaml:"position"`
	Addresses    map[string]string `yaml:"addresses"` // YYYY-MM -> address
}

type SeedAddress struct {
	Address   string `yaml:"address"`
	PublicKey string `yaml:"public_key"`
	Currency  string `yaml:"currency"`
	Limit     string `yaml:"limit"`
	Genesis   bool   `yaml:"genesis"`
}

// LoadSeedConfig reads and validates a seed file.
func LoadSeedConfig(seedFile string) (*SeedConfig, error) {
	var seedPath string
	if filepath.IsAbs(seedFile) {
		seedPath = seedFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		seedPath = filepath.Join(wd, seedFile)
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", seedFile, err)
	}

	var config SeedConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", seedFile, err)
	}

	for i, bank := range config.Banks {
		if bank.Id == "" || bank.Type == "" {
			return nil, fmt.Errorf("bank at index %d missing id or type", i)
		}
	}
	for i, user := range config.Users {
		if user.Id == "" {
			return nil, fmt.Errorf("user at index %d missing id", i)
		}
	}
	for i, addr := range config.Addresses {
		if addr.Address == "" {
			return nil, fmt.Errorf("address at index %d missing address", i)
		}
		if addr.PublicKey == "" {
			return nil, fmt.Errorf("address %s missing public_key", addr.Address)
		}
	}

	return &config, nil
}

// ApplySeed provisions everything in the seed file. It is idempotent:
// existing rows are upserted or left untouched, and genesis entries only
// initialize addresses whose chain tip is still empty.
func ApplySeed(ctx context.Context, dbService *database.Service, config *SeedConfig) error {
	for _, bank := range config.Banks {
		if err := dbService.CreateBank(ctx, bank.Id, bank.Type); err != nil {
			return err
		}
	}

	for _, addr := range config.Addresses {
		if err := dbService.CreateAddress(ctx, addr.Address, addr.PublicKey); err != nil {
			return err
		}
		if addr.Genesis {
			if err := seedGenesisEntry(ctx, dbService, addr); err != nil {
				return err
			}
		}
	}

	for _, user := range config.Users {
		if err := dbService.CreateUser(ctx, user.Id, user.Active); err != nil {
			return err
		}
		for _, token := range user.Tokens {
			if err := dbService.SetUserToken(ctx, user.Id, token.BankType, token.AccessToken, token.AccountId); err != nil {
				return err
			}
		}
		for _, pledge := range user.Pledges {
			limit, err := chain.ParseAmount(pledge.MonthlyLimit)
			if err != nil {
				return fmt.Errorf("invalid monthly limit for user %s: %w", user.Id, err)
			}

			pledgeId, err := dbService.CreatePledge(ctx, database.CreatePledgeParams{
				Id:           pledge.Id,
				UserId:       user.Id,
				BankId:       pledge.BankId,
				NpoId:        pledge.NpoId,
				Active:       pledge.Active,
				MonthlyLimit: limit,
				Position:     pledge.Position,
			})
			if err != nil {
				return err
			}

			for month, address := range pledge.Addresses {
				if err := dbService.SetPledgeAddress(ctx, pledgeId, month, address); err != nil {
					return err
				}
			}
		}
	}

	zap.L().Info("Seed applied",
		zap.Int("banks", len(config.Banks)),
		zap.Int("users", len(config.Users)),
		zap.Int("addresses", len(config.Addresses)))

	return nil
}

// seedGenesisEntry writes the count-0 entry for a fresh address and points
// the chain tip at it. Addresses that already have a tip are skipped.
func seedGenesisEntry(ctx context.Context, dbService *database.Service, seed SeedAddress) error {
	existing, err := dbService.GetAddress(ctx, seed.Address)
	if err != nil {
		return err
	}
	if existing.LatestTransaction != "" {
		zap.L().Debug("Address already has a chain tip, skipping genesis",
			zap.String("address", seed.Address))
		return nil
	}

	currency := seed.Currency
	if currency == "" {
		currency = "USD"
	}
	limit := decimal.Zero
	if seed.Limit != "" {
		limit, err = chain.ParseAmount(seed.Limit)
		if err != nil {
			return fmt.Errorf("invalid limit for address %s: %w", seed.Address, err)
		}
	}

	entry, err := chain.NewEntry(chain.Payload{
		Count:     0,
		Address:   seed.Address,
		Amount:    decimal.Zero,
		Roundup:   decimal.Zero,
		Balance:   decimal.Zero,
		Currency:  currency,
		Limit:     limit,
		Previous:  nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Reference: "genesis",
	})
	if err != nil {
		return fmt.Errorf("unable to build genesis entry for %s: %w", seed.Address, err)
	}

	if err := dbService.UpsertChainEntry(ctx, seed.Address, entry); err != nil {
		return err
	}
	if err := dbService.SetLatestTransaction(ctx, seed.Address, entry.Hash.Value); err != nil {
		return err
	}

	zap.L().Info("Genesis entry created",
		zap.String("address", seed.Address),
		zap.String("hash", entry.Hash.Value))

	return nil
}
