package routeimporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/cellroutes/pkg/binio"
	"github.com/travigo/cellroutes/pkg/database"
	"github.com/travigo/cellroutes/pkg/elastic_client"
	"github.com/travigo/cellroutes/pkg/loadreport"
	"github.com/travigo/cellroutes/pkg/redis_client"
	"github.com/travigo/cellroutes/pkg/routeimporter/formats/cell"
	"github.com/travigo/cellroutes/pkg/routeimporter/manager"
	"github.com/travigo/cellroutes/pkg/routeimporter/scenarios"
	"github.com/urfave/cli/v2"
)

// SelectScenarios loads the scenario configuration and narrows it down to a
// single scenario when id is set
func SelectScenarios(configPath string, id string) ([]scenarios.Scenario, error) {
	all, err := scenarios.Load(configPath)
	if err != nil {
		return nil, err
	}

	if id != "" {
		scenario, err := scenarios.Find(all, id)
		if err != nil {
			return nil, err
		}
		return []scenarios.Scenario{scenario}, nil
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no scenarios defined in %s", configPath)
	}

	return all, nil
}

func usesIndexCache(selected []scenarios.Scenario) bool {
	for _, scenario := range selected {
		if scenario.IndexStore == scenarios.IndexStoreCache {
			return true
		}
	}
	return false
}

// Run imports the selected scenarios, connecting to whatever the emitters
// and index stores need first
func Run(ctx context.Context, selected []scenarios.Scenario, workers int, emitterOptions EmitterOptions) ([]*manager.Result, *loadreport.Report, error) {
	options := manager.Options{
		Workers:  workers,
		Emitters: NewEmitterFactory(emitterOptions),
		Report:   loadreport.New(),
	}

	if emitterOptions.Mongo {
		if err := database.Connect(); err != nil {
			return nil, nil, err
		}
	}

	if emitterOptions.Queue || usesIndexCache(selected) {
		if err := redis_client.Connect(); err != nil {
			return nil, nil, err
		}
		options.IndexCache = redis_client.NewIndexCache(7 * 24 * time.Hour)
	}

	if err := elastic_client.Connect(false); err != nil {
		return nil, nil, err
	}
	elastic_client.IndexReport(options.Report)
	defer elastic_client.WaitUntilQueueEmpty()

	results, err := manager.ImportAll(ctx, selected, options)

	kinds, counts := options.Report.Summary()
	for _, kind := range kinds {
		log.Warn().Str("kind", string(kind)).Int("count", counts[kind]).Msg("Load report")
	}

	return results, options.Report, err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "route-importer",
		Usage: "Import pre-computed route alternatives and vehicle departures",
		Subcommands: []*cli.Command{
			{
				Name:  "load",
				Usage: "Import scenarios",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Usage:    "Scenario YAML file or directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Only import the scenario with this identifier",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of scenarios imported at once",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "mongo",
						Usage: "Store the imported routes and vehicles in MongoDB",
					},
					&cli.BoolFlag{
						Name:  "queue",
						Usage: "Publish a departure event per vehicle",
					},
					&cli.StringFlag{
						Name:  "csv-dir",
						Usage: "Write vehicles and routes as CSV files into this directory",
					},
				},
				Action: func(c *cli.Context) error {
					selected, err := SelectScenarios(c.String("config"), c.String("id"))
					if err != nil {
						return err
					}

					ctx, cancel := signalContext()
					defer cancel()

					startTime := time.Now()

					results, _, err := Run(ctx, selected, c.Int("workers"), EmitterOptions{
						Mongo:  c.Bool("mongo"),
						Queue:  c.Bool("queue"),
						CSVDir: c.String("csv-dir"),
					})

					for _, result := range results {
						if result.Err != nil {
							continue
						}
						log.Info().
							Str("scenario", result.Scenario.Identifier).
							Int("vehicles", result.Stats.Vehicles).
							Int("dropped", result.Stats.DroppedAlternatives).
							Str("took", result.Took.String()).
							Msg("Imported scenario")
					}

					log.Info().Msgf("Operation took %s", time.Since(startTime).String())

					return err
				},
			},
			{
				Name:  "index",
				Usage: "Build and save the route index of a scenario",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "prefix",
						Usage:    "Path of the scenario files without extension",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					prefix := c.String("prefix")

					routeFile, err := os.Open(prefix + cell.RouteExtension)
					if err != nil {
						return &cell.FileError{Path: prefix + cell.RouteExtension, Err: err}
					}
					defer routeFile.Close()

					index, err := cell.ScanIndex(routeFile)
					if err != nil {
						return err
					}

					store := &cell.FileIndexStore{Path: prefix + cell.IndexExtension}
					if err := store.Save(c.Context, index); err != nil {
						return err
					}

					log.Info().Str("path", store.Path).Int("routes", index.Len()).Msg("Saved route index")

					return nil
				},
			},
			{
				Name:  "inspect",
				Usage: "Print the header and the first departures of a .driver file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "prefix",
						Usage:    "Path of the scenario files without extension",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "intel",
						Usage: "The departures are little-endian",
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of departures to print",
						Value: 10,
					},
				},
				Action: func(c *cli.Context) error {
					return Inspect(os.Stdout, c.String("prefix"), c.Bool("intel"), c.Int("count"))
				},
			},
		},
	}
}

// Inspect dumps the header and up to count departure records
func Inspect(out io.Writer, prefix string, intel bool, count int) error {
	driverFile, err := os.Open(prefix + cell.DriverExtension)
	if err != nil {
		return &cell.FileError{Path: prefix + cell.DriverExtension, Err: err}
	}
	defer driverFile.Close()

	decoder := cell.NewDepartureDecoder(driverFile, binio.OrderFromIntel(intel))

	header, err := decoder.ReadHeader()
	if err != nil {
		return err
	}
	pretty.Fprintf(out, "%# v\n", header)

	for i := 0; i < count; i++ {
		record, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		pretty.Fprintf(out, "%# v\n", record)
	}

	return nil
}
