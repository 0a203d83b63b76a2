package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	appsync "github.com/channelport/backend/internal/application/sync"
	"github.com/channelport/backend/internal/domain/shared"
	"github.com/channelport/backend/internal/infrastructure/cache"
	"github.com/channelport/backend/internal/infrastructure/config"
	"github.com/channelport/backend/internal/infrastructure/logger"
	"github.com/channelport/backend/internal/infrastructure/marketplace"
	"github.com/channelport/backend/internal/infrastructure/persistence"
)

// batchLockName is the shared lock preventing concurrent batch runs
const batchLockName = "catalog-batch"

func main() {
	var (
		syncTree     bool
		force        bool
		dictionaries bool
		categoryList string
	)

	flag.BoolVar(&syncTree, "tree", false, "Synchronize the category tree before the batch")
	flag.BoolVar(&force, "force", false, "Bypass the freshness policy and re-fetch everything")
	flag.BoolVar(&dictionaries, "dictionaries", false, "Also synchronize dictionary values")
	flag.StringVar(&categoryList, "categories", "", "Comma-separated category IDs (default: all known leaves)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(cfg, log, syncTree, force, dictionaries, categoryList); err != nil {
		log.Fatal("Sync run failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, syncTree, force, dictionaries bool, categoryList string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	categoryIDs, err := parseCategoryIDs(categoryList)
	if err != nil {
		return err
	}

	gl := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gl)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// The engine is strictly serial across all instances; a distributed
	// lock keeps overlapping scheduler invocations from racing.
	lock, err := cache.NewRedisSyncLock(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer lock.Close()

	token, err := lock.Acquire(ctx, batchLockName, cfg.Sync.LockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			log.Warn("another sync run is already in progress, exiting")
			return nil
		}
		return fmt.Errorf("failed to acquire batch lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.Background(), batchLockName, token); err != nil {
			log.Warn("failed to release batch lock", zap.Error(err))
		}
	}()

	client, err := marketplace.NewClient(&marketplace.Config{
		ClientID:             cfg.Marketplace.ClientID,
		APIKey:               cfg.Marketplace.APIKey,
		BaseURL:              cfg.Marketplace.BaseURL,
		TimeoutSeconds:       cfg.Marketplace.TimeoutSeconds,
		PrimaryLanguageTag:   cfg.Marketplace.PrimaryLanguageTag,
		SecondaryLanguageTag: cfg.Marketplace.SecondaryLanguageTag,
		RequestsPerSecond:    cfg.Marketplace.RequestsPerSecond,
		Burst:                cfg.Marketplace.Burst,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to build marketplace client: %w", err)
	}

	categories := persistence.NewGormCategoryRepository(db.DB)
	attributes := persistence.NewGormAttributeRepository(db.DB)
	values := persistence.NewGormDictionaryValueRepository(db.DB)

	treeSyncer := appsync.NewTreeSyncer(client, categories, cfg.Sync.TreeResync, log)
	attributeSyncer := appsync.NewAttributeSyncer(client, attributes, cfg.Sync.FreshnessWindow, log)
	dictionarySyncer := appsync.NewDictionarySyncer(client, values, cfg.Sync.FreshnessWindow, cfg.Sync.DictionaryPageSize, log)
	coordinator := appsync.NewBatchCoordinator(categories, attributeSyncer, dictionarySyncer, cfg.Sync.MaxReportedErrors, log)

	if syncTree {
		treeReport, err := treeSyncer.SyncTree(ctx, nil, force, func(processed, total int, label string) {
			if processed%500 == 0 || processed == total {
				log.Info("tree sync progress",
					zap.Int("processed", processed),
					zap.Int("total", total),
				)
			}
		})
		if err != nil {
			return fmt.Errorf("tree sync failed: %w", err)
		}
		if treeReport.SkippedRun {
			log.Info("tree sync skipped, cache is authoritative")
		}
	}

	report, err := coordinator.Run(ctx, appsync.BatchRequest{
		CategoryIDs:         categoryIDs,
		IncludeDictionaries: dictionaries,
		Force:               force,
		Progress: func(done, total int, attrsSynced, valuesSynced int64) {
			if done%50 == 0 || done == total {
				log.Info("batch progress",
					zap.Int("categories_done", done),
					zap.Int("categories_total", total),
					zap.Int64("attributes_synced", attrsSynced),
					zap.Int64("values_synced", valuesSynced),
				)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("batch run aborted: %w", err)
	}

	for _, catErr := range report.Errors {
		log.Error("category failed",
			zap.Int64("category_id", catErr.CategoryID),
			zap.String("error", catErr.Err),
		)
	}
	if !report.Success {
		return fmt.Errorf("batch finished with %d failed categories", report.CategoriesFailed)
	}
	return nil
}

// parseCategoryIDs parses the -categories flag
func parseCategoryIDs(list string) ([]int64, error) {
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid category ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
