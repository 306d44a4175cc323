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

package intake

import (
	"context"
	"time"

	"roundup-pipeline-go/internal/models"
	"roundup-pipeline-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	processName    = "roundup"
	maxConcurrency = 10
	dateLayout     = "2006-01-02"
	monthLayout    = "2006-01"
)

// Processor handles one user's intake work item.
type Processor interface {
	Process(ctx context.Context, item models.WorkItem) (bool, error)
}

// SchedulerConfig contains configuration for Scheduler
type SchedulerConfig struct {
	Store       store.RoundupStore
	Worker      Processor
	Concurrency int
}

// Scheduler fans one daily run out over all eligible users with a bounded
// worker pool.
type Scheduler struct {
	store       store.RoundupStore
	worker      Processor
	concurrency int
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	concurrency := cfg.Concurrency
	if concurrency <= 0 || concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}
	return &Scheduler{
		store:       cfg.Store,
		worker:      cfg.Worker,
		concurrency: concurrency,
	}
}

// Run executes one intake run. Per-user failures are logged and never abort
// the run; latestRoundupDate advances only for users whose envelope was
// enqueued, so failed users are retried on the next run.
func (s *Scheduler) Run(ctx context.Context, opts models.RunOptions) error {
	users, err := s.store.GetRoundupUsers(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	today := now.Format(dateLayout)
	month := now.Format(monthLayout)

	items := make([]models.WorkItem, 0, len(users))
	for _, user := range users {
		item, ok := workItemFor(user, opts, today, month)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	zap.L().Info("Starting roundup run",
		zap.String("date", today),
		zap.Int("users", len(users)),
		zap.Int("scheduled", len(items)),
		zap.Int("concurrency", s.concurrency))

	group := new(errgroup.Group)
	group.SetLimit(s.concurrency)
	for _, item := range items {
		item := item
		group.Go(func() error {
			enqueued, err := s.worker.Process(ctx, item)
			if err != nil {
				zap.L().Error("Roundup intake failed",
					zap.String("user_id", item.UserId),
					zap.Error(err))
			}
			if enqueued {
				if err := s.store.SetLatestRoundupDate(ctx, item.UserId, today); err != nil {
					zap.L().Error("Failed to advance latest roundup date",
						zap.String("user_id", item.UserId),
						zap.Error(err))
				}
			}
			return nil
		})
	}
	_ = group.Wait()

	if err := s.store.RecordRun(ctx, processName, now); err != nil {
		return err
	}

	zap.L().Info("Roundup run complete", zap.String("date", today))
	return nil
}

// workItemFor decides whether a user participates in today's run and, if so,
// the date range and monthly address to use.
func workItemFor(user models.RoundupUser, opts models.RunOptions, today, month string) (models.WorkItem, bool) {
	if user.LatestRoundupDate == today {
		zap.L().Debug("User already processed today", zap.String("user_id", user.Id))
		return models.WorkItem{}, false
	}

	address, ok := user.Addresses[month]
	if !ok {
		zap.L().Warn("No pledge address for current month, skipping user",
			zap.String("user_id", user.Id),
			zap.String("month", month))
		return models.WorkItem{}, false
	}

	return models.WorkItem{
		UserId:       user.Id,
		Address:      address,
		AccessToken:  user.AccessToken,
		AccountId:    user.AccountId,
		BankType:     user.BankType,
		MonthlyLimit: user.MonthlyLimit,
		Range:        dateRangeFor(user, opts, today),
	}, true
}

// dateRangeFor computes the fetch window. Both bounds are clamped strictly
// before today so a day is only swept once it is complete.
func dateRangeFor(user models.RoundupUser, opts models.RunOptions, today string) models.DateRange {
	gte := opts.Gte
	if gte == "" {
		gte = user.LatestRoundupDate
	}
	if gte == "" {
		gte = today[:8] + "01"
	}
	gte = clampBeforeToday(gte, today)

	lte := opts.Lte
	if lte != "" {
		lte = clampBeforeToday(lte, today)
	}

	return models.DateRange{Gte: gte, Lte: lte}
}

// clampBeforeToday pulls a date back to yesterday when it is today or later.
// ISO dates compare correctly as strings.
func clampBeforeToday(date, today string) string {
	if date < today {
		return date
	}
	day, err := time.Parse(dateLayout, today)
	if err != nil {
		return date
	}
	return day.AddDate(0, 0, -1).Format(dateLayout)
}
