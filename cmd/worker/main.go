// Package main runs the transfer execution worker.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/go-petr/fx-bank/internal/accountrepo"
	"github.com/go-petr/fx-bank/internal/accountservice"
	"github.com/go-petr/fx-bank/internal/auditrepo"
	"github.com/go-petr/fx-bank/internal/auditservice"
	"github.com/go-petr/fx-bank/internal/fxrepo"
	"github.com/go-petr/fx-bank/internal/fxservice"
	"github.com/go-petr/fx-bank/internal/idempotencyrepo"
	"github.com/go-petr/fx-bank/internal/ledgerrepo"
	"github.com/go-petr/fx-bank/internal/middleware"
	"github.com/go-petr/fx-bank/internal/transferrepo"
	"github.com/go-petr/fx-bank/internal/transferservice"
	"github.com/go-petr/fx-bank/internal/transferworker"
	"github.com/go-petr/fx-bank/pkg/configpkg"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
	"github.com/go-petr/fx-bank/pkg/mqpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	publisher, err := mqpkg.NewPublisher(config.AMQPSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to message broker")
	}
	defer publisher.Close()

	consumer, err := mqpkg.NewConsumer(config.AMQPSource, config.TransferQueuePrefetch)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to message broker")
	}
	defer consumer.Close()

	defaultFixed, err := decimal.NewFromString(config.DefaultFixedCommission)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot parse default fixed commission")
	}

	defaultPercentage, err := decimal.NewFromString(config.DefaultPercentageCommission)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot parse default percentage commission")
	}

	rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddress})

	accountService := accountservice.New(accountrepo.NewRepoPGS(db), ledgerrepo.NewRepoPGS(db))
	auditService := auditservice.New(auditrepo.NewRepoPGS(db))
	fxService := fxservice.New(fxrepo.NewRepoPGS(db), fxservice.NewRedisCache(rdb), config.RateAPIURL, config.RateCacheTTL)

	transferService := transferservice.New(
		transferrepo.NewRepoPGS(db),
		idempotencyrepo.NewRepoPGS(db),
		accountService,
		fxService,
		publisher,
		auditService,
		transferservice.Config{
			Queue:                       config.TransferQueue,
			RateTimeout:                 config.RateRequestTimeout,
			DefaultFixedCommission:      defaultFixed,
			DefaultPercentageCommission: defaultPercentage,
		},
	)

	worker := transferworker.New(consumer, transferService, config.TransferQueue)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithContext(ctx)

	logger.Info().Msg("TRANSFER EXECUTION WORKER HAS STARTED")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker stopped")
	}

	logger.Info().Msg("TRANSFER EXECUTION WORKER HAS STOPPED")
}
