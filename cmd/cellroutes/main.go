package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/cellroutes/pkg/api"
	"github.com/travigo/cellroutes/pkg/routeimporter"
	"github.com/travigo/cellroutes/pkg/util"
	"github.com/urfave/cli/v2"
)

func main() {
	if os.Getenv("CELLROUTES_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if util.EnvironmentFlag("CELLROUTES_DEBUG") {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "cellroutes",
		Description: "Imports pre-computed route alternatives and vehicle departures of cell simulation scenarios",

		Commands: []*cli.Command{
			routeimporter.RegisterCLI(),
			api.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
