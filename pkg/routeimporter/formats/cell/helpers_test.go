package cell

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/travigo/cellroutes/pkg/network"
)

type driverBuilder struct {
	buf   bytes.Buffer
	order binary.ByteOrder
}

func newDriver(intel bool) *driverBuilder {
	builder := &driverBuilder{order: binary.BigEndian}
	if intel {
		builder.order = binary.LittleEndian
	}
	return builder
}

func (b *driverBuilder) int32(value int32) *driverBuilder {
	binary.Write(&b.buf, b.order, value)
	return b
}

func (b *driverBuilder) float64(value float64) *driverBuilder {
	binary.Write(&b.buf, b.order, value)
	return b
}

func (b *driverBuilder) header(mark int32, offset int32, makeRouteTime int32) *driverBuilder {
	return b.int32(mark).int32(offset).int32(makeRouteTime)
}

// withHeader writes a header pointing directly behind itself
func (b *driverBuilder) withHeader() *driverBuilder {
	return b.header(math.MaxInt32, 12, 0)
}

func (b *driverBuilder) record(timestamp int32, routeNumber int32, alternatives ...AlternativeSlot) *driverBuilder {
	b.int32(timestamp).int32(routeNumber)

	for i := 0; i < AlternativeSlots; i++ {
		slot := AlternativeSlot{RouteNumber: -1}
		if i < len(alternatives) {
			slot = alternatives[i]
		}
		b.float64(slot.Cost).float64(slot.Probability).int32(slot.RouteNumber)
	}

	return b
}

func (b *driverBuilder) end() *driverBuilder {
	return b.int32(math.MaxInt32)
}

func (b *driverBuilder) bytes() []byte {
	return b.buf.Bytes()
}

func alt(cost float64, probability float64, routeNumber int32) AlternativeSlot {
	return AlternativeSlot{Cost: cost, Probability: probability, RouteNumber: routeNumber}
}

// writeScenario creates <dir>/<name>.driver and <dir>/<name>.rinfo and
// returns the shared prefix
func writeScenario(t *testing.T, name string, driver []byte, routes string) string {
	t.Helper()

	prefix := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(prefix+DriverExtension, driver, 0o644))
	require.NoError(t, os.WriteFile(prefix+RouteExtension, []byte(routes), 0o644))

	return prefix
}

func newRegistry(edges ...string) *network.Memory {
	memory := network.NewMemory(nil)
	for _, edge := range edges {
		memory.AddEdge(edge, "", "")
	}
	return memory
}

func routeNames(memory *network.Memory, set *network.AlternativeSet) [][]string {
	var names [][]string
	for _, route := range set.Routes {
		names = append(names, memory.EdgeNames(route.Edges))
	}
	return names
}
