package routeimporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/travigo/cellroutes/pkg/database"
	"github.com/travigo/cellroutes/pkg/network"
	"github.com/travigo/cellroutes/pkg/redis_client"
	"github.com/travigo/cellroutes/pkg/routeimporter/manager"
	"github.com/travigo/cellroutes/pkg/routeimporter/scenarios"
)

type EmitterOptions struct {
	Mongo  bool
	Queue  bool
	CSVDir string
}

// csvFileEmitter writes <scenario>.vehicles.csv and <scenario>.routes.csv
type csvFileEmitter struct {
	*network.CSVEmitter
	files []*os.File
}

func newCSVFileEmitter(directory string, scenario string) (*csvFileEmitter, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, err
	}

	vehiclesFile, err := os.Create(filepath.Join(directory, fmt.Sprintf("%s.vehicles.csv", scenario)))
	if err != nil {
		return nil, err
	}
	routesFile, err := os.Create(filepath.Join(directory, fmt.Sprintf("%s.routes.csv", scenario)))
	if err != nil {
		vehiclesFile.Close()
		return nil, err
	}

	return &csvFileEmitter{
		CSVEmitter: network.NewCSVEmitter(vehiclesFile, routesFile),
		files:      []*os.File{vehiclesFile, routesFile},
	}, nil
}

func (e *csvFileEmitter) Close() error {
	var errs []error
	for _, file := range e.files {
		errs = append(errs, file.Close())
	}
	return errors.Join(errs...)
}

// NewEmitterFactory builds the emitters selected on the command line. The
// database and Redis connections have to be open already.
func NewEmitterFactory(options EmitterOptions) manager.EmitterFactory {
	return func(scenario scenarios.Scenario) ([]network.Emitter, error) {
		var emitters []network.Emitter

		if options.Mongo {
			emitters = append(emitters, database.NewRouteEmitter())
		}

		if options.Queue {
			queueEmitter, err := redis_client.NewQueueEmitter()
			if err != nil {
				return nil, err
			}
			emitters = append(emitters, queueEmitter)
		}

		if options.CSVDir != "" {
			csvEmitter, err := newCSVFileEmitter(options.CSVDir, scenario.Identifier)
			if err != nil {
				return nil, err
			}
			emitters = append(emitters, csvEmitter)
		}

		return emitters, nil
	}
}
