package redis_client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/cellroutes/pkg/network"
)

const VehicleDeparturesQueue = "vehicle-departures"

const EventTypeVehicleDeparture = "VehicleDeparture"

type EventRoute struct {
	ID          string
	Edges       []string
	Cost        float64
	Probability float64
}

type VehicleDepartureEvent struct {
	Type      string
	Timestamp time.Time

	Scenario string
	Vehicle  string
	Depart   int32
	RouteDef string
	LastUsed int
	Routes   []EventRoute
}

type publisher interface {
	PublishBytes(payload ...[]byte) error
}

// QueueEmitter publishes a VehicleDepartureEvent per imported vehicle
type QueueEmitter struct {
	mutex sync.Mutex

	queue     publisher
	batchSize int

	routeDefs map[string]VehicleDepartureEvent
	payloads  [][]byte
	published int
}

func NewQueueEmitter() (*QueueEmitter, error) {
	queue, err := QueueConnection.OpenQueue(VehicleDeparturesQueue)
	if err != nil {
		return nil, err
	}

	return newQueueEmitter(queue, 100), nil
}

func newQueueEmitter(queue publisher, batchSize int) *QueueEmitter {
	return &QueueEmitter{
		queue:     queue,
		batchSize: batchSize,
		routeDefs: map[string]VehicleDepartureEvent{},
	}
}

func (e *QueueEmitter) EmitRouteDef(ctx context.Context, names network.EdgeNamer, set *network.AlternativeSet) error {
	event := VehicleDepartureEvent{
		Type:     EventTypeVehicleDeparture,
		RouteDef: set.ID,
		LastUsed: set.LastUsed,
	}
	if set.DataSource != nil {
		event.Scenario = set.DataSource.Dataset
	}
	for _, route := range set.Routes {
		event.Routes = append(event.Routes, EventRoute{
			ID:          route.ID,
			Edges:       names.EdgeNames(route.Edges),
			Cost:        route.Cost,
			Probability: route.Probability,
		})
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.routeDefs[set.ID] = event

	return nil
}

func (e *QueueEmitter) EmitVehicle(ctx context.Context, vehicle *network.Vehicle) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	event, exists := e.routeDefs[vehicle.RouteDefRef]
	if !exists {
		event = VehicleDepartureEvent{
			Type:     EventTypeVehicleDeparture,
			RouteDef: vehicle.RouteDefRef,
		}
	}
	delete(e.routeDefs, vehicle.RouteDefRef)

	event.Timestamp = time.Now()
	event.Vehicle = vehicle.ID
	event.Depart = vehicle.Depart

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	e.payloads = append(e.payloads, eventBytes)

	if len(e.payloads) >= e.batchSize {
		return e.publish()
	}
	return nil
}

func (e *QueueEmitter) publish() error {
	if len(e.payloads) == 0 {
		return nil
	}

	if err := e.queue.PublishBytes(e.payloads...); err != nil {
		return err
	}

	e.published += len(e.payloads)
	e.payloads = nil

	return nil
}

func (e *QueueEmitter) Flush(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if err := e.publish(); err != nil {
		return err
	}

	log.Info().
		Str("queue", VehicleDeparturesQueue).
		Int("length", e.published).
		Msg("Published vehicle departures")

	return nil
}
