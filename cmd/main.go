// Package main starts the banking API server.
package main

import (
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/jameelag1995/banking-backend/cmd/httpserver"
	"github.com/jameelag1995/banking-backend/internal/middleware"
	"github.com/jameelag1995/banking-backend/pkg/configpkg"
	"github.com/jameelag1995/banking-backend/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	var db *sql.DB
	if config.DBDriver != "memory" {
		db, err = dbpkg.Setup(config.DBDriver, config.DBSource)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot connect to database")
		}
	}

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	logger.Info().Msg("BANK API SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
