// Package bootstrap assembles the services from configuration. It is shared
// by the HTTP server and the operator CLI.
package bootstrap

import (
	"fmt"

	"talentMarket/business/catalog"
	"talentMarket/business/ledger"
	"talentMarket/business/pipeline"
	"talentMarket/business/ranking"
	"talentMarket/business/refund"
	"talentMarket/business/scoring"
	"talentMarket/business/suppression"
	"talentMarket/business/unlock"
	"talentMarket/domain"
	"talentMarket/internal/repository/memory"
	"talentMarket/internal/repository/postgres"
	rediscache "talentMarket/internal/repository/redis"
	"talentMarket/pkg/config"
	"talentMarket/pkg/database"
	redisclient "talentMarket/pkg/database/redis"
	"talentMarket/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Config *config.Config
	Tx     domain.Transactor
	DB     *gorm.DB
	Redis  *redis.Client

	Scorer      *scoring.Engine
	Catalog     *catalog.Service
	Suppression *suppression.Service
	Pipeline    *pipeline.Service
	Ranking     *ranking.Service
	Ledger      *ledger.Service
	Unlock      *unlock.Service
	Refund      *refund.Service
}

// ValidateWeights is the weights check handed to config.Load.
func ValidateWeights(raw string) error {
	_, err := scoring.ParseWeights(raw)
	return err
}

// Open connects the configured storage (and Redis when enabled) and wires
// every service on top of it. With migrate set, postgres tables are created first.
func Open(cfg *config.Config, migrate bool) (*Container, error) {
	c := &Container{Config: cfg}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory storage, data is lost on exit")
		c.Tx = memory.NewStore()
	case config.DriverPostgres:
		db, err := database.InitPostgres(cfg)
		if err != nil {
			return nil, err
		}
		c.DB = db
		if migrate {
			if err := postgres.Migrate(db); err != nil {
				c.Close()
				return nil, err
			}
		}
		c.Tx = postgres.NewTransactor(db, cfg.Database.MaxRetries)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	var cache ranking.Cache
	if cfg.Redis.Enabled {
		client, err := redisclient.NewRedisClient(cfg)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Redis = client
		cache = rediscache.NewRankingCache(client, cfg.Redis.CacheTTL)
	}

	if err := c.wire(cache); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewWithStore wires services over an existing transactor, without a cache.
func NewWithStore(cfg *config.Config, tx domain.Transactor) (*Container, error) {
	c := &Container{Config: cfg, Tx: tx}
	if err := c.wire(nil); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(cache ranking.Cache) error {
	cfg := c.Config

	weights, err := scoring.ParseWeights(cfg.Matching.Weights)
	if err != nil {
		return fmt.Errorf("invalid matching weights: %w", err)
	}
	c.Scorer = scoring.NewEngine(scoring.Config{
		Weights:           weights,
		VacuousSkillScore: cfg.Matching.VacuousSkillScore,
		MaxCommuteKm:      cfg.Matching.MaxCommuteKm,
	})

	c.Catalog = catalog.NewService(c.Tx, nil)
	c.Suppression = suppression.NewService(c.Tx, suppression.Config{
		DefaultCooldownDays: cfg.Suppression.DefaultCooldownDays,
		MaxCooldownDays:     cfg.Suppression.MaxCooldownDays,
	}, nil)
	c.Pipeline = pipeline.NewService(c.Tx, c.Suppression, nil)
	c.Ranking = ranking.NewService(c.Tx, c.Scorer, c.Pipeline, cache, ranking.Config{
		DefaultK: cfg.Matching.DefaultK,
		MaxK:     cfg.Matching.MaxK,
	}, nil)
	c.Ledger = ledger.NewService(c.Tx, nil)
	c.Unlock = unlock.NewService(c.Tx, c.Ledger, c.Suppression, c.Pipeline, unlock.Config{
		Cost: cfg.Unlock.Cost,
	}, nil)
	c.Refund = refund.NewService(c.Tx, c.Ledger, nil)

	return nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		if err := redisclient.CloseRedisClient(c.Redis); err != nil {
			logger.Error("Failed to close redis", "error", err)
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Error("Failed to close database", "error", err)
			}
		}
	}
}
