package cell

import (
	"context"
	"errors"

	"github.com/travigo/cellroutes/pkg/loadreport"
	"github.com/travigo/cellroutes/pkg/network"
)

// FilterFunc decides whether a departure should be imported at all
type FilterFunc func(record DepartureRecord) (bool, error)

type Stats struct {
	Records             int
	Skipped             int
	Vehicles            int
	DroppedAlternatives int
	EmptySets           int
}

// Assembler turns departure records into alternative sets and vehicles
type Assembler struct {
	sink     network.Sink
	index    *RouteIndex
	resolver *Resolver
	report   *loadreport.Report

	routeIDs   *network.IDSupplier
	vehicleIDs *network.IDSupplier

	gawronBeta float64
	gawronA    float64
	useLast    bool
	filter     FilterFunc

	scenario   string
	driverFile string
	routeFile  string
	dataSource *network.DataSource

	stats Stats
}

// Accepts reports whether a record is imported. Records with a negative
// route number or departing before begin are dropped without an error.
func (a *Assembler) Accepts(record DepartureRecord, begin int32) (bool, error) {
	if record.RouteNumber < 0 || record.Timestamp < begin {
		return false, nil
	}

	if a.filter != nil {
		return a.filter(record)
	}

	return true, nil
}

// Assemble resolves the alternatives of one record and hands the resulting
// alternative set and vehicle to the sink. Alternatives that cannot be
// resolved are reported and left out. When none are left nothing is emitted.
func (a *Assembler) Assemble(ctx context.Context, record DepartureRecord, begin int32) (bool, error) {
	a.stats.Records++

	accepted, err := a.Accepts(record, begin)
	if err != nil {
		return false, err
	}
	if !accepted {
		a.stats.Skipped++
		return false, nil
	}

	setID := a.routeIDs.Next()

	var routes []*network.Route
	var routeNumbers []int32

	for _, slot := range record.Alternatives {
		route, err := a.alternative(slot)
		if err != nil {
			return false, err
		}
		if route == nil {
			a.stats.DroppedAlternatives++
			continue
		}

		routes = append(routes, route)
		routeNumbers = append(routeNumbers, slot.RouteNumber)
	}

	if len(routes) == 0 {
		a.stats.EmptySets++
		a.report.Addf(loadreport.KindEmptyAlternativeSet, a.scenario, a.driverFile,
			"none of the alternatives of the departure at %d (route #%d) could be resolved, vehicle skipped",
			record.Timestamp, record.RouteNumber)
		return false, nil
	}

	set := &network.AlternativeSet{
		ID:         setID,
		Routes:     routes,
		LastUsed:   a.lastUsed(record, routes, routeNumbers),
		GawronBeta: a.gawronBeta,
		GawronA:    a.gawronA,
		DataSource: a.dataSource,
	}
	if err := a.sink.AddRouteDef(ctx, set); err != nil {
		return false, err
	}

	vehicleID := a.vehicleIDs.Next()
	vehicle := &network.Vehicle{
		ID:          vehicleID,
		RouteDefRef: set.ID,
		Depart:      record.Timestamp,
		Type:        a.sink.DefaultVehicleType(),
		DataSource:  a.dataSource,
	}
	if err := a.sink.AddVehicle(ctx, vehicleID, vehicle); err != nil {
		return false, err
	}

	a.stats.Vehicles++

	return true, nil
}

// alternative returns nil without an error when the alternative has been
// reported and should be dropped
func (a *Assembler) alternative(slot AlternativeSlot) (*network.Route, error) {
	offset, found := a.index.OffsetFor(slot.RouteNumber)

	var edges []network.EdgeID
	var err error
	if found {
		edges, err = a.resolver.Resolve(offset)
	}

	var unknownEdge *UnknownEdgeError
	switch {
	case !found || errors.Is(err, ErrEmptyRoute):
		missing := &MissingRouteError{
			DriverFile:  a.driverFile,
			RouteFile:   a.routeFile,
			RouteNumber: slot.RouteNumber,
		}
		a.report.Add(loadreport.Entry{
			Kind:     loadreport.KindMissingRoute,
			Scenario: a.scenario,
			File:     a.driverFile,
			Message:  missing.Error(),
		})
		return nil, nil
	case errors.As(err, &unknownEdge):
		a.report.Add(loadreport.Entry{
			Kind:     loadreport.KindUnknownEdge,
			Scenario: a.scenario,
			File:     a.routeFile,
			Message:  unknownEdge.Error(),
		})
		return nil, nil
	case err != nil:
		return nil, err
	}

	return &network.Route{
		ID:          a.routeIDs.Next(),
		Edges:       edges,
		Cost:        slot.Cost,
		Probability: slot.Probability,
	}, nil
}

// lastUsed picks the alternative the vehicle drove previously. With useLast
// that is the alternative carrying the record's own route number, otherwise
// (or without a match) the most probable one.
func (a *Assembler) lastUsed(record DepartureRecord, routes []*network.Route, routeNumbers []int32) int {
	if a.useLast {
		for i, routeNumber := range routeNumbers {
			if routeNumber == record.RouteNumber {
				return i
			}
		}
	}

	best := 0
	for i, route := range routes {
		if route.Probability > routes[best].Probability {
			best = i
		}
	}

	return best
}

func (a *Assembler) Stats() Stats {
	return a.stats
}
