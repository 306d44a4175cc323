/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/common"
	"roundup-pipeline-go/internal/config"
	"roundup-pipeline-go/internal/database"
	"roundup-pipeline-go/internal/models"

	"go.uber.org/zap"
)

type chainStats struct {
	totalAddresses int
	totalEntries   int
	brokenChains   int
}

func formatHash(hashValue string) string {
	if hashValue == "" {
		return "none"
	}
	if len(hashValue) > 12 {
		return hashValue[:12] + "..."
	}
	return hashValue
}

func printEntry(entry chain.Entry, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	previous := "genesis"
	if entry.Payload.Previous != nil {
		previous = formatHash(*entry.Payload.Previous)
	}

	fmt.Printf("%s #%-5d %s  amount: %10s  roundup: %8s  balance: %10s  prev: %s\n",
		symbol,
		entry.Payload.Count,
		formatHash(entry.Hash.Value),
		entry.Payload.Amount.String(),
		entry.Payload.Roundup.String(),
		entry.Payload.Balance.String(),
		previous)
}

func printAddressHeader(addr models.Address, entryCount int) {
	fmt.Printf("\n┌─ Address: %s\n", addr.Address)
	fmt.Printf("│  Tip: %s\n", formatHash(addr.LatestTransaction))
	fmt.Printf("│  Entries shown: %d\n", entryCount)
	common.PrintBoxSeparator(98)
}

// walkChain follows previous links from the tip, newest first, up to depth
// entries.
func walkChain(ctx context.Context, dbService *database.Service, addr models.Address, depth int) ([]chain.Entry, error) {
	var entries []chain.Entry

	hashValue := addr.LatestTransaction
	for hashValue != "" && len(entries) < depth {
		entry, err := dbService.GetChainEntry(ctx, hashValue)
		if err != nil {
			return entries, fmt.Errorf("chain broken at %s: %w", hashValue, err)
		}
		entries = append(entries, *entry)

		if entry.Payload.Previous == nil {
			break
		}
		hashValue = *entry.Payload.Previous
	}

	return entries, nil
}

func processAddress(ctx context.Context, dbService *database.Service, addr models.Address, depth int, stats *chainStats) {
	stats.totalAddresses++

	if addr.LatestTransaction == "" {
		fmt.Printf("\n┌─ Address: %s\n", addr.Address)
		fmt.Println("└  No chain entries yet")
		return
	}

	entries, err := walkChain(ctx, dbService, addr, depth)
	if err != nil {
		stats.brokenChains++
		zap.L().Error("Failed to walk chain",
			zap.String("address", addr.Address),
			zap.Error(err))
	}
	if len(entries) == 0 {
		return
	}

	printAddressHeader(addr, len(entries))
	for i, entry := range entries {
		printEntry(entry, i == len(entries)-1)
	}
	stats.totalEntries += len(entries)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	addressFlag := flag.String("address", "", "Filter by a specific ledger address (optional)")
	depthFlag := flag.Int("depth", 10, "Maximum entries to show per chain, newest first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	var addresses []models.Address
	if *addressFlag != "" {
		addr, err := dbService.GetAddress(ctx, *addressFlag)
		if err != nil {
			zap.L().Fatal("Failed to get address", zap.Error(err))
		}
		addresses = []models.Address{*addr}
	} else {
		addresses, err = dbService.GetAddresses(ctx)
		if err != nil {
			zap.L().Fatal("Failed to get addresses", zap.Error(err))
		}
	}

	common.PrintHeader("ROUNDUP CHAIN REPORT", common.WideWidth)

	stats := chainStats{}
	for _, addr := range addresses {
		processAddress(ctx, dbService, addr, *depthFlag, &stats)
	}

	summary := fmt.Sprintf("SUMMARY: %d addresses, %d entries shown, %d broken chains",
		stats.totalAddresses, stats.totalEntries, stats.brokenChains)
	common.PrintFooter(summary, common.WideWidth)

	zap.L().Info("Chain report completed",
		zap.Int("addresses", stats.totalAddresses),
		zap.Int("entries", stats.totalEntries),
		zap.Int("broken_chains", stats.brokenChains))
}
