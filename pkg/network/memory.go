package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

var DefaultVehicleType = VehicleType{
	ID:       "DEFAULT_VEHTYPE",
	Length:   5,
	MaxSpeed: 70,
}

// Memory is an in-process network: it interns edges, stores every accepted
// alternative set and vehicle and passes them on to any registered emitters.
type Memory struct {
	mutex sync.RWMutex

	edgeIDs map[string]EdgeID
	edges   []Edge

	defaultType *VehicleType

	routeDefs     map[string]*AlternativeSet
	routeDefOrder []string
	vehicles      map[string]*Vehicle
	vehicleOrder  []string

	emitters []Emitter
}

func NewMemory(defaultType *VehicleType) *Memory {
	if defaultType == nil {
		vehicleType := DefaultVehicleType
		defaultType = &vehicleType
	}

	return &Memory{
		edgeIDs:     map[string]EdgeID{},
		defaultType: defaultType,
		routeDefs:   map[string]*AlternativeSet{},
		vehicles:    map[string]*Vehicle{},
	}
}

func (m *Memory) AddEmitter(emitter Emitter) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.emitters = append(m.emitters, emitter)
}

// AddEdge interns an edge, adding the same name twice returns the first ID
func (m *Memory) AddEdge(name string, from string, to string) EdgeID {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if id, exists := m.edgeIDs[name]; exists {
		return id
	}

	id := EdgeID(len(m.edges))
	m.edges = append(m.edges, Edge{
		ID:   id,
		Name: name,
		From: from,
		To:   to,
	})
	m.edgeIDs[name] = id

	return id
}

func (m *Memory) GetEdge(name string) (EdgeID, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	id, exists := m.edgeIDs[name]
	return id, exists
}

func (m *Memory) Edge(id EdgeID) (Edge, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if int(id) >= len(m.edges) {
		return Edge{}, false
	}
	return m.edges[id], true
}

func (m *Memory) EdgeCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.edges)
}

func (m *Memory) EdgeNames(edges []EdgeID) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	names := make([]string, 0, len(edges))
	for _, id := range edges {
		if int(id) < len(m.edges) {
			names = append(names, m.edges[id].Name)
		}
	}

	return names
}

func (m *Memory) DefaultVehicleType() *VehicleType {
	return m.defaultType
}

func (m *Memory) AddRouteDef(ctx context.Context, set *AlternativeSet) error {
	m.mutex.Lock()
	if _, exists := m.routeDefs[set.ID]; exists {
		m.mutex.Unlock()
		return fmt.Errorf("route definition %s already added", set.ID)
	}
	m.routeDefs[set.ID] = set
	m.routeDefOrder = append(m.routeDefOrder, set.ID)
	emitters := m.emitters
	m.mutex.Unlock()

	for _, emitter := range emitters {
		if err := emitter.EmitRouteDef(ctx, m, set); err != nil {
			return err
		}
	}

	return nil
}

func (m *Memory) AddVehicle(ctx context.Context, id string, vehicle *Vehicle) error {
	m.mutex.Lock()
	if _, exists := m.vehicles[id]; exists {
		m.mutex.Unlock()
		return fmt.Errorf("vehicle %s already added", id)
	}
	if _, exists := m.routeDefs[vehicle.RouteDefRef]; !exists {
		m.mutex.Unlock()
		return fmt.Errorf("vehicle %s references unknown route definition %s", id, vehicle.RouteDefRef)
	}
	m.vehicles[id] = vehicle
	m.vehicleOrder = append(m.vehicleOrder, id)
	emitters := m.emitters
	m.mutex.Unlock()

	for _, emitter := range emitters {
		if err := emitter.EmitVehicle(ctx, vehicle); err != nil {
			return err
		}
	}

	return nil
}

func (m *Memory) RouteDef(id string) (*AlternativeSet, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	set, exists := m.routeDefs[id]
	return set, exists
}

func (m *Memory) Vehicle(id string) (*Vehicle, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	vehicle, exists := m.vehicles[id]
	return vehicle, exists
}

// Vehicles returns the vehicles in the order they were added
func (m *Memory) Vehicles() []*Vehicle {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	vehicles := make([]*Vehicle, 0, len(m.vehicleOrder))
	for _, id := range m.vehicleOrder {
		vehicles = append(vehicles, m.vehicles[id])
	}

	return vehicles
}

func (m *Memory) RouteDefs() []*AlternativeSet {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	sets := make([]*AlternativeSet, 0, len(m.routeDefOrder))
	for _, id := range m.routeDefOrder {
		sets = append(sets, m.routeDefs[id])
	}

	return sets
}

func (m *Memory) VehicleIDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := slices.Clone(m.vehicleOrder)
	slices.Sort(ids)

	return ids
}

// Flush pushes out anything the emitters are still buffering
func (m *Memory) Flush(ctx context.Context) error {
	m.mutex.RLock()
	emitters := m.emitters
	vehicleCount := len(m.vehicleOrder)
	routeDefCount := len(m.routeDefOrder)
	m.mutex.RUnlock()

	for _, emitter := range emitters {
		if err := emitter.Flush(ctx); err != nil {
			return err
		}
	}

	log.Debug().
		Int("vehicles", vehicleCount).
		Int("routedefs", routeDefCount).
		Msg("Flushed network emitters")

	return nil
}
