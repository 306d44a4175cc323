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
	"errors"
	"os"
	"os/signal"
	"syscall"

	"roundup-pipeline-go/internal/common"
	"roundup-pipeline-go/internal/config"
	"roundup-pipeline-go/internal/consumer"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		zap.L().Info("Shutdown signal received, stopping consumer", zap.String("signal", sig.String()))
		cancel()
	}()

	zap.L().Info("Starting from-signer queue consumer")

	services, err := common.InitializeConsumerServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	c := consumer.NewConsumer(consumer.Config{
		Queue:           services.QueueService,
		Store:           services.DbService,
		FromSignerUrl:   cfg.Queue.FromSignerUrl,
		ServerPublicKey: services.ServerPublicKey,
		ServerKid:       cfg.Crypto.ServerKid,
		SignerPublicKey: cfg.Signer.PublicKey,
		EmptyPollLimit:  cfg.Queue.EmptyPollLimit,
	})

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Fatal("Consumer failed", zap.Error(err))
	}

	zap.L().Info("Consumer finished")
}
