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
	"os"
	"os/signal"
	"syscall"

	"roundup-pipeline-go/internal/common"
	"roundup-pipeline-go/internal/config"
	"roundup-pipeline-go/internal/intake"
	"roundup-pipeline-go/internal/models"

	"go.uber.org/zap"
)

func main() {
	gteFlag := flag.String("gte", "", "Optional fetch window start (YYYY-MM-DD), overrides per-user resume dates")
	lteFlag := flag.String("lte", "", "Optional fetch window end (YYYY-MM-DD)")
	flag.Parse()

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
		zap.L().Info("Shutdown signal received, cancelling run", zap.String("signal", sig.String()))
		cancel()
	}()

	zap.L().Info("Starting roundup intake run")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	worker := intake.NewWorker(intake.WorkerConfig{
		Store:       services.DbService,
		Plaid:       services.PlaidService,
		Queue:       services.QueueService,
		Signer:      services.SignerService,
		SigningKey:  services.SigningKey,
		ServerKid:   cfg.Crypto.ServerKid,
		ToSignerUrl: cfg.Queue.ToSignerUrl,
	})

	scheduler := intake.NewScheduler(intake.SchedulerConfig{
		Store:       services.DbService,
		Worker:      worker,
		Concurrency: cfg.Roundup.Concurrency,
	})

	if err := scheduler.Run(ctx, models.RunOptions{Gte: *gteFlag, Lte: *lteFlag}); err != nil {
		zap.L().Fatal("Roundup run failed", zap.Error(err))
	}

	zap.L().Info("Roundup intake run finished")
}
