// Package main runs the transfer and ledger API server.
package main

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/fx-bank/cmd/httpserver"
	"github.com/go-petr/fx-bank/internal/middleware"
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

	rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddress})

	server, err := httpserver.New(db, rdb, publisher, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	logger.Info().Msg("TRANSFER API SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
