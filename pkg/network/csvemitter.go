package network

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
)

type VehicleRow struct {
	ID       string `csv:"vehicle_id"`
	Depart   int32  `csv:"depart"`
	RouteDef string `csv:"route_def"`
	Type     string `csv:"type"`
}

type RouteRow struct {
	RouteDef    string  `csv:"route_def"`
	RouteID     string  `csv:"route_id"`
	Cost        float64 `csv:"cost"`
	Probability float64 `csv:"probability"`
	LastUsed    bool    `csv:"last_used"`
	Edges       string  `csv:"edges"`
}

// CSVEmitter buffers vehicles and alternatives and writes them as two CSV
// tables on Flush.
type CSVEmitter struct {
	mutex sync.Mutex

	vehiclesOut io.Writer
	routesOut   io.Writer

	vehicles []*VehicleRow
	routes   []*RouteRow
}

func NewCSVEmitter(vehiclesOut io.Writer, routesOut io.Writer) *CSVEmitter {
	return &CSVEmitter{
		vehiclesOut: vehiclesOut,
		routesOut:   routesOut,
	}
}

func (e *CSVEmitter) EmitRouteDef(ctx context.Context, names EdgeNamer, set *AlternativeSet) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for i, route := range set.Routes {
		e.routes = append(e.routes, &RouteRow{
			RouteDef:    set.ID,
			RouteID:     route.ID,
			Cost:        route.Cost,
			Probability: route.Probability,
			LastUsed:    i == set.LastUsed,
			Edges:       strings.Join(names.EdgeNames(route.Edges), " "),
		})
	}

	return nil
}

func (e *CSVEmitter) EmitVehicle(ctx context.Context, vehicle *Vehicle) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	row := &VehicleRow{
		ID:       vehicle.ID,
		Depart:   vehicle.Depart,
		RouteDef: vehicle.RouteDefRef,
	}
	if vehicle.Type != nil {
		row.Type = vehicle.Type.ID
	}
	e.vehicles = append(e.vehicles, row)

	return nil
}

func (e *CSVEmitter) Flush(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.vehiclesOut != nil && len(e.vehicles) > 0 {
		if err := gocsv.Marshal(e.vehicles, e.vehiclesOut); err != nil {
			return err
		}
	}
	if e.routesOut != nil && len(e.routes) > 0 {
		if err := gocsv.Marshal(e.routes, e.routesOut); err != nil {
			return err
		}
	}

	e.vehicles = nil
	e.routes = nil

	return nil
}
