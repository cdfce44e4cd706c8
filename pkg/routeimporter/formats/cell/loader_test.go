package cell

import (
	"context"
	"errors"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/cellroutes/pkg/loadreport"
	"github.com/travigo/cellroutes/pkg/network"
)

const naturalRoutes = "A B C\nA D\nB C\n"

func threeAlternatives() []AlternativeSlot {
	return []AlternativeSlot{alt(1.0, 0.5, 0), alt(1.2, 0.3, 1), alt(2.0, 0.2, 2)}
}

func load(t *testing.T, config Config, memory *network.Memory) (*Loader, *loadreport.Report, Stats) {
	t.Helper()

	report := loadreport.New()
	loader := NewLoader(config, memory, report)
	t.Cleanup(func() { loader.Close() })

	stats, err := loader.Load(context.Background())
	require.NoError(t, err)

	return loader, report, stats
}

func TestEndToEndScenario(t *testing.T) {
	driver := newDriver(true).withHeader().record(100, 5, threeAlternatives()...)
	prefix := writeScenario(t, "e2e", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	loader, report, stats := load(t, Config{Prefix: prefix, Intel: true, GawronBeta: 0.3, GawronA: 0.05}, memory)

	assert.Equal(t, StateStreamEnd, loader.State())
	assert.True(t, loader.Header().Present)
	assert.Equal(t, 0, report.Len())
	assert.Equal(t, 1, stats.Vehicles)

	vehicles := memory.Vehicles()
	require.Len(t, vehicles, 1)
	assert.Equal(t, int32(100), vehicles[0].Depart)
	assert.Same(t, memory.DefaultVehicleType(), vehicles[0].Type)

	set, found := memory.RouteDef(vehicles[0].RouteDefRef)
	require.True(t, found)
	assert.Equal(t, [][]string{{"A", "B", "C"}, {"A", "D"}, {"B", "C"}}, routeNames(memory, set))
	assert.Equal(t, 0.3, set.GawronBeta)
	assert.Equal(t, 0.05, set.GawronA)
	assert.Equal(t, 1.2, set.Routes[1].Cost)
	assert.Equal(t, 0.3, set.Routes[1].Probability)
	assert.Equal(t, "e2e", set.DataSource.Dataset)
}

func TestUnknownEdgeScenario(t *testing.T) {
	driver := newDriver(true).withHeader().record(100, 5, threeAlternatives()...)
	prefix := writeScenario(t, "unknown", driver.bytes(), "A B C\nA Z\nB C\n")

	memory := newRegistry("A", "B", "C", "D")
	_, report, stats := load(t, Config{Prefix: prefix, Intel: true}, memory)

	require.Len(t, memory.Vehicles(), 1)
	set, _ := memory.RouteDef(memory.Vehicles()[0].RouteDefRef)
	assert.Equal(t, [][]string{{"A", "B", "C"}, {"B", "C"}}, routeNames(memory, set))

	assert.Equal(t, 1, report.Count(loadreport.KindUnknownEdge))
	assert.Equal(t, 1, report.Len())
	assert.Equal(t, 1, stats.DroppedAlternatives)
}

func TestPartialAlternativeResilience(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(100, 5, alt(1.0, 0.5, 9), alt(1.2, 0.3, 1), alt(2.0, 0.2, 2))
	prefix := writeScenario(t, "partial", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	_, report, _ := load(t, Config{Prefix: prefix, Intel: true}, memory)

	require.Len(t, memory.Vehicles(), 1)
	set, _ := memory.RouteDef(memory.Vehicles()[0].RouteDefRef)
	assert.Equal(t, [][]string{{"A", "D"}, {"B", "C"}}, routeNames(memory, set))

	assert.Equal(t, 1, report.Count(loadreport.KindMissingRoute))
	assert.Equal(t, 1, report.Len())
	assert.Contains(t, report.Entries()[0].Message, "route #9")
}

func TestBlankRouteLineIsMissingRoute(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(100, 5, alt(1.0, 0.5, 0), alt(1.2, 0.3, 1))
	prefix := writeScenario(t, "blank", driver.bytes(), "A B\n\n")

	memory := newRegistry("A", "B")
	_, report, _ := load(t, Config{Prefix: prefix, Intel: true}, memory)

	require.Len(t, memory.Vehicles(), 1)
	// route 1 is blank and slot 3 references route -1
	assert.Equal(t, 2, report.Count(loadreport.KindMissingRoute))
}

func TestCleanTermination(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(100, 5, threeAlternatives()...).
		end().
		record(200, 5, threeAlternatives()...)
	prefix := writeScenario(t, "end", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	loader, report, stats := load(t, Config{Prefix: prefix, Intel: true}, memory)

	assert.Len(t, memory.Vehicles(), 1)
	assert.Equal(t, 0, report.Len())
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, StateStreamEnd, loader.State())

	more, err := loader.ReadNext(context.Background(), 0)
	assert.NoError(t, err)
	assert.False(t, more)
}

func TestOnlyTerminator(t *testing.T) {
	prefix := writeScenario(t, "empty", newDriver(true).withHeader().end().bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	_, report, stats := load(t, Config{Prefix: prefix, Intel: true}, memory)

	assert.Empty(t, memory.Vehicles())
	assert.Empty(t, memory.RouteDefs())
	assert.Equal(t, 0, report.Len())
	assert.Equal(t, Stats{}, stats)
}

func idNumber(t *testing.T, id string, prefix string) int {
	t.Helper()

	require.True(t, strings.HasPrefix(id, prefix), id)
	number, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	require.NoError(t, err)

	return number
}

func TestIDMonotonicity(t *testing.T) {
	driver := newDriver(true).withHeader()
	for i := int32(0); i < 6; i++ {
		driver.record(10*i, 1, threeAlternatives()...)
	}
	prefix := writeScenario(t, "ids", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	load(t, Config{Prefix: prefix, Intel: true}, memory)

	vehicles := memory.Vehicles()
	require.Len(t, vehicles, 6)

	seen := map[string]bool{}
	previousVehicle, previousSet := -1, -1
	for _, vehicle := range vehicles {
		vehicleNumber := idNumber(t, vehicle.ID, "Cell_ids_veh")
		assert.Greater(t, vehicleNumber, previousVehicle)
		previousVehicle = vehicleNumber

		set, _ := memory.RouteDef(vehicle.RouteDefRef)
		setNumber := idNumber(t, set.ID, "Cell_ids_")
		assert.Greater(t, setNumber, previousSet)
		previousSet = setNumber

		for _, id := range append([]string{set.ID}, set.Routes[0].ID, set.Routes[1].ID, set.Routes[2].ID) {
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
}

func TestSetIDPrecedesItsRouteIDs(t *testing.T) {
	driver := newDriver(true).withHeader().record(100, 1, threeAlternatives()...)
	prefix := writeScenario(t, "order", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	load(t, Config{Prefix: prefix, Intel: true}, memory)

	require.Len(t, memory.Vehicles(), 1)
	set, found := memory.RouteDef(memory.Vehicles()[0].RouteDefRef)
	require.True(t, found)

	assert.Equal(t, "Cell_order_0", set.ID)
	require.Len(t, set.Routes, 3)
	for i, route := range set.Routes {
		assert.Equal(t, "Cell_order_"+strconv.Itoa(i+1), route.ID)
	}
}

func TestSkipNegativeAndEarlyRecords(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(50, 1, threeAlternatives()...).
		record(150, -1, threeAlternatives()...).
		record(150, 1, threeAlternatives()...).
		record(99, 1, threeAlternatives()...)
	prefix := writeScenario(t, "skip", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	_, report, stats := load(t, Config{Prefix: prefix, Intel: true, Begin: 100}, memory)

	require.Len(t, memory.Vehicles(), 1)
	assert.Equal(t, int32(150), memory.Vehicles()[0].Depart)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 4, stats.Records)
	assert.Equal(t, 0, report.Len())
}

func TestAllAlternativesFailSkipsVehicle(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(100, 1, alt(1, 0.5, 7), alt(1, 0.5, 8), alt(1, 0.5, 9)).
		record(110, 1, threeAlternatives()...)
	prefix := writeScenario(t, "allfail", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	_, report, stats := load(t, Config{Prefix: prefix, Intel: true}, memory)

	require.Len(t, memory.Vehicles(), 1)
	assert.Equal(t, int32(110), memory.Vehicles()[0].Depart)
	assert.Len(t, memory.RouteDefs(), 1)
	assert.Equal(t, 3, report.Count(loadreport.KindMissingRoute))
	assert.Equal(t, 1, report.Count(loadreport.KindEmptyAlternativeSet))
	assert.Equal(t, 1, stats.EmptySets)
}

func TestBigEndianWithoutHeader(t *testing.T) {
	driver := newDriver(false).header(0, 0, 0).record(42, 0, alt(3.5, 1.0, 2))
	prefix := writeScenario(t, "big", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	loader, _, _ := load(t, Config{Prefix: prefix, Intel: false}, memory)

	assert.False(t, loader.Header().Present)
	require.Len(t, memory.Vehicles(), 1)
	assert.Equal(t, int32(42), memory.Vehicles()[0].Depart)

	set, _ := memory.RouteDef(memory.Vehicles()[0].RouteDefRef)
	assert.Equal(t, [][]string{{"B", "C"}}, routeNames(memory, set))
	assert.Equal(t, 3.5, set.Routes[0].Cost)
}

func TestUseLast(t *testing.T) {
	driver := newDriver(true).withHeader().record(100, 2, threeAlternatives()...)
	memory := newRegistry("A", "B", "C", "D")

	prefix := writeScenario(t, "last", driver.bytes(), naturalRoutes)
	load(t, Config{Prefix: prefix, Intel: true, UseLast: true}, memory)
	set, _ := memory.RouteDef(memory.Vehicles()[0].RouteDefRef)
	assert.Equal(t, 2, set.LastUsed)

	other := newRegistry("A", "B", "C", "D")
	prefix = writeScenario(t, "nolast", driver.bytes(), naturalRoutes)
	load(t, Config{Prefix: prefix, Intel: true}, other)
	set, _ = other.RouteDef(other.Vehicles()[0].RouteDefRef)
	assert.Equal(t, 0, set.LastUsed)
}

func TestReadUntil(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(10, 0, threeAlternatives()...).
		record(20, 0, threeAlternatives()...).
		record(30, 0, threeAlternatives()...)
	prefix := writeScenario(t, "steps", driver.bytes(), naturalRoutes)

	ctx := context.Background()
	memory := newRegistry("A", "B", "C", "D")
	loader := NewLoader(Config{Prefix: prefix, Intel: true}, memory, nil)
	defer loader.Close()

	_, err := loader.ReadUntil(ctx, 0, 20)
	assert.Error(t, err, "reading before Init")

	require.NoError(t, loader.Init(ctx))
	assert.Equal(t, StateHeaderSkipped, loader.State())

	more, err := loader.ReadUntil(ctx, 0, 20)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Len(t, memory.Vehicles(), 2)
	assert.Equal(t, int32(30), loader.CurrentTimeStep())
	assert.Equal(t, StateReading, loader.State())

	more, err = loader.ReadUntil(ctx, 0, 100)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, memory.Vehicles(), 3)
}

func TestLoadEnd(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(10, 0, threeAlternatives()...).
		record(20, 0, threeAlternatives()...)
	prefix := writeScenario(t, "bounded", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	loader, _, _ := load(t, Config{Prefix: prefix, Intel: true, End: 15}, memory)

	assert.Len(t, memory.Vehicles(), 1)
	assert.Equal(t, StateReading, loader.State())
}

func TestFilter(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(10, 0, threeAlternatives()...).
		record(20, 1, threeAlternatives()...)
	prefix := writeScenario(t, "filter", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	filter := func(record DepartureRecord) (bool, error) {
		return record.RouteNumber != 1, nil
	}
	_, _, stats := load(t, Config{Prefix: prefix, Intel: true, Filter: filter}, memory)

	require.Len(t, memory.Vehicles(), 1)
	assert.Equal(t, int32(10), memory.Vehicles()[0].Depart)
	assert.Equal(t, 1, stats.Skipped)
}

func TestTruncatedStreamIsReported(t *testing.T) {
	driver := newDriver(true).withHeader().
		record(10, 0, threeAlternatives()...).
		int32(20).int32(0)
	prefix := writeScenario(t, "truncated", driver.bytes(), naturalRoutes)

	memory := newRegistry("A", "B", "C", "D")
	loader, report, _ := load(t, Config{Prefix: prefix, Intel: true}, memory)

	assert.Len(t, memory.Vehicles(), 1)
	assert.Equal(t, 1, report.Count(loadreport.KindTruncatedStream))
	assert.Equal(t, StateStreamEnd, loader.State())
}

func TestMissingCompanionFile(t *testing.T) {
	prefix := writeScenario(t, "missing", newDriver(true).withHeader().bytes(), "")
	require.NoError(t, os.Remove(prefix+RouteExtension))

	assert.False(t, CheckFiles(prefix))

	loader := NewLoader(Config{Prefix: prefix}, newRegistry(), nil)
	_, err := loader.Load(context.Background())

	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, prefix+RouteExtension, fileErr.Path)
	assert.Equal(t, StateFailed, loader.State())

	_, err = loader.ReadNext(context.Background(), 0)
	assert.Error(t, err)
}

func TestCorruptPersistedIndexIsFatal(t *testing.T) {
	prefix := writeScenario(t, "corrupt", newDriver(true).withHeader().bytes(), naturalRoutes)
	require.NoError(t, os.WriteFile(prefix+IndexExtension, []byte("0\nsix\n"), 0o644))

	loader := NewLoader(Config{Prefix: prefix, Intel: true}, newRegistry(), nil)
	err := loader.Init(context.Background())

	var formatErr *IndexFormatError
	assert.True(t, errors.As(err, &formatErr))
	assert.Equal(t, StateFailed, loader.State())
}

func TestOverflowingPersistedOffsetIsFatal(t *testing.T) {
	driver := newDriver(true).withHeader().record(100, 0, alt(1.0, 0.5, 0), alt(1.2, 0.5, 1))
	prefix := writeScenario(t, "huge", driver.bytes(), naturalRoutes)
	require.NoError(t, os.WriteFile(prefix+IndexExtension, []byte("0\n18446744073709551615\n"), 0o644))

	memory := newRegistry("A", "B", "C", "D")
	loader := NewLoader(Config{Prefix: prefix, Intel: true}, memory, loadreport.New())
	t.Cleanup(func() { loader.Close() })

	_, err := loader.Load(context.Background())

	var formatErr *IndexFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, 2, formatErr.Line)
	assert.Equal(t, StateFailed, loader.State())
	assert.Empty(t, memory.Vehicles())
}

func TestSaveAndReuseIndex(t *testing.T) {
	driver := newDriver(true).withHeader().record(100, 5, threeAlternatives()...)
	prefix := writeScenario(t, "persist", driver.bytes(), naturalRoutes)

	first := newRegistry("A", "B", "C", "D")
	loader, _, _ := load(t, Config{Prefix: prefix, Intel: true, SaveIndex: true}, first)
	assert.True(t, loader.Index().Scanned())

	content, err := os.ReadFile(prefix + IndexExtension)
	require.NoError(t, err)
	assert.Equal(t, "0\n6\n10\n", string(content))

	second := newRegistry("A", "B", "C", "D")
	reloaded, _, _ := load(t, Config{Prefix: prefix, Intel: true}, second)
	assert.False(t, reloaded.Index().Scanned())
	assert.Equal(t, loader.Index().Offsets(), reloaded.Index().Offsets())

	firstSet, _ := first.RouteDef(first.Vehicles()[0].RouteDefRef)
	secondSet, _ := second.RouteDef(second.Vehicles()[0].RouteDefRef)
	assert.Equal(t, routeNames(first, firstSet), routeNames(second, secondSet))
}

func TestIndexNotSavedUnlessRequested(t *testing.T) {
	driver := newDriver(true).withHeader().end()
	prefix := writeScenario(t, "nosave", driver.bytes(), naturalRoutes)

	load(t, Config{Prefix: prefix, Intel: true}, newRegistry())

	_, err := os.Stat(prefix + IndexExtension)
	assert.True(t, os.IsNotExist(err))
}

func TestHeaderOffsetBeyondStream(t *testing.T) {
	driver := newDriver(true).header(math.MaxInt32, 4096, 0)
	prefix := writeScenario(t, "far", driver.bytes(), naturalRoutes)

	memory := newRegistry("A")
	_, report, stats := load(t, Config{Prefix: prefix, Intel: true}, memory)

	assert.Empty(t, memory.Vehicles())
	assert.Equal(t, 0, report.Len())
	assert.Equal(t, 0, stats.Records)
}
