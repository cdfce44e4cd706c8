package routeimporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/cellroutes/pkg/network"
	"github.com/travigo/cellroutes/pkg/routeimporter/scenarios"
)

func TestCSVEmitterFactory(t *testing.T) {
	ctx := context.Background()
	directory := filepath.Join(t.TempDir(), "out")

	factory := NewEmitterFactory(EmitterOptions{CSVDir: directory})
	emitters, err := factory(scenarios.Scenario{Identifier: "town"})
	require.NoError(t, err)
	require.Len(t, emitters, 1)

	memory := network.NewMemory(nil)
	edge := memory.AddEdge("A", "", "")
	memory.AddEmitter(emitters[0])

	require.NoError(t, memory.AddRouteDef(ctx, &network.AlternativeSet{
		ID:     "set0",
		Routes: []*network.Route{{ID: "r0", Edges: []network.EdgeID{edge}, Probability: 1}},
	}))
	require.NoError(t, memory.AddVehicle(ctx, "veh0", &network.Vehicle{ID: "veh0", RouteDefRef: "set0", Type: memory.DefaultVehicleType()}))
	require.NoError(t, memory.Flush(ctx))
	require.NoError(t, emitters[0].(*csvFileEmitter).Close())

	vehicles, err := os.ReadFile(filepath.Join(directory, "town.vehicles.csv"))
	require.NoError(t, err)
	assert.Equal(t, "vehicle_id,depart,route_def,type\nveh0,0,set0,DEFAULT_VEHTYPE\n", string(vehicles))

	routes, err := os.ReadFile(filepath.Join(directory, "town.routes.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(routes), "set0,r0,0,1,true,A")
}

func TestEmitterFactoryNothingSelected(t *testing.T) {
	emitters, err := NewEmitterFactory(EmitterOptions{})(scenarios.Scenario{Identifier: "town"})
	require.NoError(t, err)
	assert.Empty(t, emitters)
}
