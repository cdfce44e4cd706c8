package cell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/cellroutes/pkg/binio"
	"github.com/travigo/cellroutes/pkg/loadreport"
	"github.com/travigo/cellroutes/pkg/network"
	"github.com/travigo/cellroutes/pkg/routeimporter/formats"
)

const (
	DriverExtension = ".driver"
	RouteExtension  = ".rinfo"
	IndexExtension  = ".rindex"
)

type Config struct {
	// Scenario names the import in IDs and reports, defaults to the prefix base name
	Scenario string
	// Prefix is the path shared by the .driver, .rinfo and .rindex files
	Prefix string

	// Intel selects little-endian decoding of the departure stream
	Intel     bool
	UseLast   bool
	SaveIndex bool

	Begin int32
	// End stops a full load after this time step, zero means no end
	End int32

	GawronBeta float64
	GawronA    float64

	// IndexStore defaults to the .rindex side file
	IndexStore IndexStore
	Filter     FilterFunc

	DataSource *network.DataSource
}

type State int

const (
	StateUninitialized State = iota
	StateIndexReady
	StateHeaderSkipped
	StateReading
	StateStreamEnd
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIndexReady:
		return "index-ready"
	case StateHeaderSkipped:
		return "header-skipped"
	case StateReading:
		return "reading"
	case StateStreamEnd:
		return "stream-end"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CheckFiles reports whether both required companion files exist
func CheckFiles(prefix string) bool {
	for _, extension := range []string{DriverExtension, RouteExtension} {
		if _, err := os.Stat(prefix + extension); err != nil {
			return false
		}
	}
	return true
}

var _ formats.RouteSource = (*Loader)(nil)

// Loader reads one .driver/.rinfo pair. It is not safe for concurrent use.
type Loader struct {
	config Config
	sink   network.Sink
	report *loadreport.Report

	driverFile string
	routeFile  string

	state   State
	failure error

	driver    *os.File
	decoder   *DepartureDecoder
	header    Header
	index     *RouteIndex
	resolver  *Resolver
	assembler *Assembler

	pending         *DepartureRecord
	currentTimeStep int32
}

func NewLoader(config Config, sink network.Sink, report *loadreport.Report) *Loader {
	if config.Scenario == "" {
		config.Scenario = filepath.Base(config.Prefix)
	}
	if config.IndexStore == nil {
		config.IndexStore = &FileIndexStore{Path: config.Prefix + IndexExtension}
	}
	if config.DataSource == nil {
		config.DataSource = &network.DataSource{
			OriginalFormat: "cell",
			Dataset:        config.Scenario,
			Identifier:     fmt.Sprint(time.Now().Unix()),
		}
	}
	if report == nil {
		report = loadreport.New()
	}

	return &Loader{
		config:     config,
		sink:       sink,
		report:     report,
		driverFile: config.Prefix + DriverExtension,
		routeFile:  config.Prefix + RouteExtension,
		state:      StateUninitialized,
	}
}

func (l *Loader) DataName() string {
	return "cell routes"
}

func (l *Loader) fail(err error) error {
	l.state = StateFailed
	l.failure = err
	return err
}

// Init validates the companion files, builds or loads the route index and
// positions the departure stream on its first record.
func (l *Loader) Init(ctx context.Context) error {
	if l.state != StateUninitialized {
		return fmt.Errorf("loader for %s already initialised (%s)", l.config.Prefix, l.state)
	}

	for _, path := range []string{l.driverFile, l.routeFile} {
		if _, err := os.Stat(path); err != nil {
			return l.fail(&FileError{Path: path, Err: err})
		}
	}

	if err := l.initIndex(ctx); err != nil {
		return l.fail(err)
	}
	l.state = StateIndexReady

	if err := l.initDriver(); err != nil {
		return l.fail(err)
	}
	l.state = StateHeaderSkipped

	l.resolver = NewResolver(l.routeFile, l.sink)
	l.assembler = &Assembler{
		sink:       l.sink,
		index:      l.index,
		resolver:   l.resolver,
		report:     l.report,
		routeIDs:   network.NewIDSupplier(fmt.Sprintf("Cell_%s_", l.config.Scenario), 0),
		vehicleIDs: network.NewIDSupplier(fmt.Sprintf("Cell_%s_veh", l.config.Scenario), 0),
		gawronBeta: l.config.GawronBeta,
		gawronA:    l.config.GawronA,
		useLast:    l.config.UseLast,
		filter:     l.config.Filter,
		scenario:   l.config.Scenario,
		driverFile: l.driverFile,
		routeFile:  l.routeFile,
		dataSource: l.config.DataSource,
	}

	return nil
}

func (l *Loader) initIndex(ctx context.Context) error {
	store := l.config.IndexStore

	index, found, err := store.Load(ctx)
	if err != nil {
		return err
	}

	if found {
		log.Debug().
			Str("scenario", l.config.Scenario).
			Str("store", store.Name()).
			Int("routes", index.Len()).
			Msg("Loaded route index")

		l.index = index
		return nil
	}

	startTime := time.Now()

	routeFile, err := os.Open(l.routeFile)
	if err != nil {
		return &FileError{Path: l.routeFile, Err: err}
	}
	defer routeFile.Close()

	index, err = ScanIndex(routeFile)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", l.routeFile, err)
	}
	l.index = index

	log.Info().
		Str("scenario", l.config.Scenario).
		Int("routes", index.Len()).
		Str("took", time.Since(startTime).String()).
		Msg("Scanned route index")

	if l.config.SaveIndex {
		log.Info().Str("store", store.Name()).Msg("Saving the route index")

		if err := store.Save(ctx, index); err != nil {
			log.Error().Err(err).Str("store", store.Name()).Msg("Failed to save route index")
		}
	}

	return nil
}

func (l *Loader) initDriver() error {
	driver, err := os.Open(l.driverFile)
	if err != nil {
		return &FileError{Path: l.driverFile, Err: err}
	}
	l.driver = driver

	l.decoder = NewDepartureDecoder(driver, binio.OrderFromIntel(l.config.Intel))

	header, err := l.decoder.ReadHeader()
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", l.driverFile, err)
	}
	l.header = header

	log.Debug().
		Str("scenario", l.config.Scenario).
		Bool("header", header.Present).
		Int64("offset", header.RecordOffset).
		Int32("makeroutetime", header.MakeRouteTime).
		Msg("Prepared departure stream")

	return nil
}

// next returns the pending record or decodes a new one. ok is false at the
// end of the stream.
func (l *Loader) next() (DepartureRecord, bool, error) {
	if l.pending != nil {
		record := *l.pending
		l.pending = nil
		return record, true, nil
	}

	record, err := l.decoder.Next()
	if err == io.EOF {
		return record, false, nil
	}
	if errors.Is(err, ErrTruncatedRecord) {
		l.report.Addf(loadreport.KindTruncatedStream, l.config.Scenario, l.driverFile, "%v", err)
		return record, false, nil
	}
	if err != nil {
		return record, false, err
	}

	l.currentTimeStep = record.Timestamp

	return record, true, nil
}

func (l *Loader) ready() (bool, error) {
	switch l.state {
	case StateFailed:
		return false, l.failure
	case StateStreamEnd:
		return false, nil
	case StateUninitialized, StateIndexReady:
		return false, fmt.Errorf("loader for %s is not initialised", l.config.Prefix)
	}

	l.state = StateReading
	return true, nil
}

func (l *Loader) ReadNext(ctx context.Context, begin int32) (bool, error) {
	if ok, err := l.ready(); !ok {
		return false, err
	}

	record, ok, err := l.next()
	if err != nil {
		return false, l.fail(err)
	}
	if !ok {
		l.state = StateStreamEnd
		return false, nil
	}

	if _, err := l.assembler.Assemble(ctx, record, begin); err != nil {
		return false, l.fail(err)
	}

	return true, nil
}

func (l *Loader) ReadUntil(ctx context.Context, begin int32, until int32) (bool, error) {
	if ok, err := l.ready(); !ok {
		return false, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return false, l.fail(err)
		}

		record, ok, err := l.next()
		if err != nil {
			return false, l.fail(err)
		}
		if !ok {
			l.state = StateStreamEnd
			return false, nil
		}

		if record.Timestamp > until {
			l.pending = &record
			return true, nil
		}

		if _, err := l.assembler.Assemble(ctx, record, begin); err != nil {
			return false, l.fail(err)
		}
	}
}

// Load initialises the loader when needed and reads every departure between
// the configured begin and end.
func (l *Loader) Load(ctx context.Context) (Stats, error) {
	startTime := time.Now()

	if l.state == StateUninitialized {
		if err := l.Init(ctx); err != nil {
			return Stats{}, err
		}
	}

	until := int32(math.MaxInt32 - 1)
	if l.config.End > 0 {
		until = l.config.End
	}

	if _, err := l.ReadUntil(ctx, l.config.Begin, until); err != nil {
		return l.Stats(), err
	}

	stats := l.Stats()

	log.Info().
		Str("scenario", l.config.Scenario).
		Int("records", stats.Records).
		Int("vehicles", stats.Vehicles).
		Int("skipped", stats.Skipped).
		Int("dropped", stats.DroppedAlternatives).
		Int("empty", stats.EmptySets).
		Msgf("Operation took %s", time.Since(startTime).String())

	return stats, nil
}

func (l *Loader) CurrentTimeStep() int32 {
	return l.currentTimeStep
}

func (l *Loader) State() State {
	return l.state
}

func (l *Loader) Header() Header {
	return l.header
}

func (l *Loader) Index() *RouteIndex {
	return l.index
}

func (l *Loader) Report() *loadreport.Report {
	return l.report
}

func (l *Loader) Stats() Stats {
	if l.assembler == nil {
		return Stats{}
	}
	return l.assembler.Stats()
}

func (l *Loader) Close() error {
	var err error

	if l.resolver != nil {
		err = l.resolver.Close()
	}
	if l.driver != nil {
		if closeErr := l.driver.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		l.driver = nil
	}

	return err
}
