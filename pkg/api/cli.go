package api

import (
	"github.com/rs/zerolog/log"
	"github.com/travigo/cellroutes/pkg/api/routes"
	"github.com/travigo/cellroutes/pkg/routeimporter"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides a read-only web API over imported scenarios",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "import the scenarios and run the web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Usage:    "Scenario YAML file or directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Only serve the scenario with this identifier",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of scenarios imported at once",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					selected, err := routeimporter.SelectScenarios(c.String("config"), c.String("id"))
					if err != nil {
						return err
					}

					results, report, err := routeimporter.Run(c.Context, selected, c.Int("workers"), routeimporter.EmitterOptions{})
					if results == nil {
						return err
					}
					if err != nil {
						// Failed scenarios are still listed with their error
						log.Error().Err(err).Msg("Some scenarios failed to import")
					}

					log.Info().Str("listen", c.String("listen")).Msg("Starting web api")

					return SetupServer(c.String("listen"), routes.NewStore(results, report))
				},
			},
		},
	}
}
