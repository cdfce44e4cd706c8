package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/cellroutes/pkg/loadreport"
	"github.com/travigo/cellroutes/pkg/network"
	"github.com/travigo/cellroutes/pkg/routeimporter/formats/cell"
	"github.com/travigo/cellroutes/pkg/routeimporter/scenarios"
)

// EmitterFactory creates the emitters a single scenario import writes to
type EmitterFactory func(scenario scenarios.Scenario) ([]network.Emitter, error)

type Options struct {
	// Workers bounds how many scenarios are imported at once, zero means one
	Workers int

	Emitters EmitterFactory
	// IndexCache backs scenarios using the cache index store
	IndexCache *cache.Cache[string]
	Report     *loadreport.Report
}

type Result struct {
	Scenario scenarios.Scenario
	Network  *network.Memory
	Stats    cell.Stats
	Header   cell.Header
	Took     time.Duration
	Err      error
}

func indexStore(scenario scenarios.Scenario, options Options) (cell.IndexStore, error) {
	switch scenario.IndexStore {
	case scenarios.IndexStoreCache:
		if options.IndexCache == nil {
			return nil, fmt.Errorf("scenario %q uses the cache index store but no cache is connected", scenario.Identifier)
		}
		return cell.NewCacheIndexStore(options.IndexCache, scenario.Prefix+cell.RouteExtension)
	case scenarios.IndexStoreFile, "":
		return &cell.FileIndexStore{Path: scenario.Prefix + cell.IndexExtension}, nil
	default:
		return nil, fmt.Errorf("unknown index store %q", scenario.IndexStore)
	}
}

func closeEmitters(emitters []network.Emitter) error {
	var errs []error
	for _, emitter := range emitters {
		if closer, ok := emitter.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

// ImportScenario loads the edge registry of a scenario and reads all of its
// departures into a fresh in-memory network
func ImportScenario(ctx context.Context, scenario scenarios.Scenario, options Options) (*Result, error) {
	startTime := time.Now()

	if options.Report == nil {
		options.Report = loadreport.New()
	}

	if scenario.Format != scenarios.FormatCell {
		return nil, fmt.Errorf("unrecognised format %s", scenario.Format)
	}

	config, err := scenario.LoaderConfig()
	if err != nil {
		return nil, err
	}
	config.IndexStore, err = indexStore(scenario, options)
	if err != nil {
		return nil, err
	}

	memory := network.NewMemory(nil)
	if _, err := network.LoadEdgesFile(scenario.Edges, memory); err != nil {
		return nil, err
	}

	var emitters []network.Emitter
	if options.Emitters != nil {
		emitters, err = options.Emitters(scenario)
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		if err := closeEmitters(emitters); err != nil {
			log.Error().Err(err).Str("scenario", scenario.Identifier).Msg("Failed to close emitters")
		}
	}()
	for _, emitter := range emitters {
		memory.AddEmitter(emitter)
	}

	loader := cell.NewLoader(config, memory, options.Report)
	defer loader.Close()

	log.Info().
		Str("scenario", scenario.Identifier).
		Str("prefix", scenario.Prefix).
		Int("edges", memory.EdgeCount()).
		Msgf("Importing %s", loader.DataName())

	stats, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := memory.Flush(ctx); err != nil {
		return nil, err
	}

	return &Result{
		Scenario: scenario,
		Network:  memory,
		Stats:    stats,
		Header:   loader.Header(),
		Took:     time.Since(startTime),
	}, nil
}

// ImportAll imports every scenario, running up to options.Workers at once.
// The results keep the order of the scenarios; failed imports carry Err and
// are joined into the returned error.
func ImportAll(ctx context.Context, all []scenarios.Scenario, options Options) ([]*Result, error) {
	workers := options.Workers
	if workers < 1 {
		workers = 1
	}
	if options.Report == nil {
		options.Report = loadreport.New()
	}

	results := make([]*Result, len(all))

	p := pool.New().WithMaxGoroutines(workers)

	for i, scenario := range all {
		p.Go(func() {
			result, err := ImportScenario(ctx, scenario, options)
			if err != nil {
				log.Error().Err(err).Str("scenario", scenario.Identifier).Msg("Failed to import scenario")
				result = &Result{Scenario: scenario, Err: err}
			}
			results[i] = result
		})
	}

	p.Wait()

	var errs []error
	for _, result := range results {
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", result.Scenario.Identifier, result.Err))
		}
	}

	return results, errors.Join(errs...)
}
