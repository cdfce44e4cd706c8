package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/cellroutes/pkg/api/routes"
	"github.com/travigo/cellroutes/pkg/loadreport"
	"github.com/travigo/cellroutes/pkg/network"
	"github.com/travigo/cellroutes/pkg/routeimporter/formats/cell"
	"github.com/travigo/cellroutes/pkg/routeimporter/manager"
	"github.com/travigo/cellroutes/pkg/routeimporter/scenarios"
)

func testStore(t *testing.T) *routes.Store {
	t.Helper()
	ctx := context.Background()

	memory := network.NewMemory(nil)
	edgeA := memory.AddEdge("A", "n1", "n2")
	edgeB := memory.AddEdge("B", "n2", "n3")

	for i, id := range []string{"Cell_town_0", "Cell_town_3"} {
		require.NoError(t, memory.AddRouteDef(ctx, &network.AlternativeSet{
			ID: id,
			Routes: []*network.Route{
				{ID: id + "a", Edges: []network.EdgeID{edgeA}, Cost: 1, Probability: 0.4},
				{ID: id + "b", Edges: []network.EdgeID{edgeA, edgeB}, Cost: 2, Probability: 0.6},
			},
			LastUsed:   1,
			GawronBeta: 0.3,
		}))
		vehicleID := []string{"Cell_town_veh0", "Cell_town_veh1"}[i]
		require.NoError(t, memory.AddVehicle(ctx, vehicleID, &network.Vehicle{
			ID:          vehicleID,
			RouteDefRef: id,
			Depart:      int32(100 + i),
			Type:        memory.DefaultVehicleType(),
		}))
	}

	report := loadreport.New()
	report.Addf(loadreport.KindUnknownEdge, "town", "town.rinfo", "unknown edge Z")
	report.Addf(loadreport.KindMissingRoute, "town", "town.driver", "route #9")
	report.Addf(loadreport.KindMissingRoute, "village", "village.driver", "route #2")

	return routes.NewStore([]*manager.Result{
		{
			Scenario: scenarios.Scenario{Identifier: "town", Format: scenarios.FormatCell, Prefix: "/data/town"},
			Network:  memory,
			Stats:    cell.Stats{Records: 3, Vehicles: 2, Skipped: 1},
			Header:   cell.Header{Present: true, RecordOffset: 12},
		},
		{
			Scenario: scenarios.Scenario{Identifier: "broken", Format: scenarios.FormatCell},
			Err:      errors.New("problems on opening"),
		},
	}, report)
}

func get(t *testing.T, path string, target interface{}) int {
	t.Helper()

	app := NewApp(testStore(t))

	response, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), string(body))
	}

	return response.StatusCode
}

func TestVersion(t *testing.T) {
	var version map[string]string
	assert.Equal(t, 200, get(t, "/core/version", &version))
	assert.Equal(t, routes.Version, version["version"])
}

func TestListScenarios(t *testing.T) {
	var scenarioList []map[string]interface{}
	assert.Equal(t, 200, get(t, "/core/scenarios", &scenarioList))

	require.Len(t, scenarioList, 2)
	assert.Equal(t, "town", scenarioList[0]["Identifier"])
	assert.Equal(t, float64(2), scenarioList[0]["Vehicles"])
	assert.NotContains(t, scenarioList[0], "Prefix")
	assert.Equal(t, "problems on opening", scenarioList[1]["Error"])
}

func TestGetScenario(t *testing.T) {
	var scenario map[string]interface{}
	assert.Equal(t, 200, get(t, "/core/scenarios/town", &scenario))

	assert.Equal(t, "/data/town", scenario["Prefix"])
	assert.Equal(t, true, scenario["HeaderPresent"])
	assert.Equal(t, float64(1), scenario["Skipped"])
	assert.Equal(t, float64(2), scenario["Edges"])

	assert.Equal(t, 404, get(t, "/core/scenarios/nowhere", nil))
}

func TestListVehicles(t *testing.T) {
	var vehicles []map[string]interface{}
	assert.Equal(t, 200, get(t, "/core/scenarios/town/vehicles", &vehicles))

	require.Len(t, vehicles, 2)
	assert.Equal(t, "Cell_town_veh0", vehicles[0]["ID"])
	assert.Equal(t, float64(100), vehicles[0]["Depart"])
	assert.NotContains(t, vehicles[0], "Type")

	assert.Equal(t, 200, get(t, "/core/scenarios/town/vehicles?offset=1&limit=5", &vehicles))
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Cell_town_veh1", vehicles[0]["ID"])

	assert.Equal(t, 400, get(t, "/core/scenarios/town/vehicles?limit=0", nil))
	assert.Equal(t, 404, get(t, "/core/scenarios/broken/vehicles", nil))
}

func TestGetVehicle(t *testing.T) {
	var vehicle struct {
		ID       string
		Type     map[string]interface{}
		RouteDef struct {
			ID       string
			LastUsed int
			Routes   []struct {
				ID          string
				Edges       []string
				Probability float64
			}
		}
	}
	assert.Equal(t, 200, get(t, "/core/scenarios/town/vehicles/Cell_town_veh1", &vehicle))

	assert.Equal(t, "Cell_town_veh1", vehicle.ID)
	assert.Equal(t, "DEFAULT_VEHTYPE", vehicle.Type["ID"])
	assert.Equal(t, "Cell_town_3", vehicle.RouteDef.ID)
	assert.Equal(t, 1, vehicle.RouteDef.LastUsed)
	require.Len(t, vehicle.RouteDef.Routes, 2)
	assert.Equal(t, []string{"A", "B"}, vehicle.RouteDef.Routes[1].Edges)

	assert.Equal(t, 404, get(t, "/core/scenarios/town/vehicles/nobody", nil))
}

func TestGetRouteDef(t *testing.T) {
	var set map[string]interface{}
	assert.Equal(t, 200, get(t, "/core/scenarios/town/routes/Cell_town_0", &set))

	assert.Equal(t, "Cell_town_0", set["ID"])
	assert.Equal(t, 0.3, set["GawronBeta"])

	assert.Equal(t, 404, get(t, "/core/scenarios/town/routes/Cell_town_1", nil))
}

func TestReports(t *testing.T) {
	var entries []map[string]interface{}

	assert.Equal(t, 200, get(t, "/core/reports", &entries))
	assert.Len(t, entries, 3)

	assert.Equal(t, 200, get(t, "/core/reports?scenario=town&kind=missing-route", &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "route #9", entries[0]["Message"])

	var summary map[string]int
	assert.Equal(t, 200, get(t, "/core/reports/summary", &summary))
	assert.Equal(t, 2, summary["missing-route"])
	assert.Equal(t, 1, summary["unknown-edge"])
}
