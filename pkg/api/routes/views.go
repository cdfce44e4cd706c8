package routes

import (
	"github.com/travigo/cellroutes/pkg/network"
	"github.com/travigo/cellroutes/pkg/routeimporter/manager"
)

type ScenarioView struct {
	Identifier string `groups:"basic,detailed"`
	Format     string `groups:"basic,detailed"`
	Error      string `groups:"basic,detailed"`

	Vehicles int `groups:"basic,detailed"`
	Edges    int `groups:"detailed"`

	Prefix        string `groups:"detailed"`
	HeaderPresent bool   `groups:"detailed"`
	MakeRouteTime int32  `groups:"detailed"`

	Records             int    `groups:"detailed"`
	Skipped             int    `groups:"detailed"`
	DroppedAlternatives int    `groups:"detailed"`
	EmptySets           int    `groups:"detailed"`
	Took                string `groups:"detailed"`
}

type RouteView struct {
	ID          string   `groups:"basic,detailed"`
	Edges       []string `groups:"detailed"`
	Cost        float64  `groups:"basic,detailed"`
	Probability float64  `groups:"basic,detailed"`
}

type AlternativeSetView struct {
	ID         string       `groups:"basic,detailed"`
	Routes     []*RouteView `groups:"basic,detailed"`
	LastUsed   int          `groups:"detailed"`
	GawronBeta float64      `groups:"detailed"`
	GawronA    float64      `groups:"detailed"`
}

type VehicleView struct {
	ID          string               `groups:"basic,detailed"`
	Depart      int32                `groups:"basic,detailed"`
	RouteDefRef string               `groups:"basic,detailed"`
	Type        *network.VehicleType `groups:"detailed"`
	RouteDef    *AlternativeSetView  `groups:"detailed"`
}

func newScenarioView(result *manager.Result) *ScenarioView {
	view := &ScenarioView{
		Identifier: result.Scenario.Identifier,
		Format:     string(result.Scenario.Format),
		Prefix:     result.Scenario.Prefix,
	}

	if result.Err != nil {
		view.Error = result.Err.Error()
		return view
	}

	view.Vehicles = result.Stats.Vehicles
	view.Edges = result.Network.EdgeCount()
	view.HeaderPresent = result.Header.Present
	view.MakeRouteTime = result.Header.MakeRouteTime
	view.Records = result.Stats.Records
	view.Skipped = result.Stats.Skipped
	view.DroppedAlternatives = result.Stats.DroppedAlternatives
	view.EmptySets = result.Stats.EmptySets
	view.Took = result.Took.String()

	return view
}

func newAlternativeSetView(names network.EdgeNamer, set *network.AlternativeSet) *AlternativeSetView {
	view := &AlternativeSetView{
		ID:         set.ID,
		LastUsed:   set.LastUsed,
		GawronBeta: set.GawronBeta,
		GawronA:    set.GawronA,
	}

	for _, route := range set.Routes {
		view.Routes = append(view.Routes, &RouteView{
			ID:          route.ID,
			Edges:       names.EdgeNames(route.Edges),
			Cost:        route.Cost,
			Probability: route.Probability,
		})
	}

	return view
}

func newVehicleView(vehicle *network.Vehicle) *VehicleView {
	return &VehicleView{
		ID:          vehicle.ID,
		Depart:      vehicle.Depart,
		RouteDefRef: vehicle.RouteDefRef,
		Type:        vehicle.Type,
	}
}
