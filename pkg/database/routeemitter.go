package database

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/cellroutes/pkg/network"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultBatchSize = 1000

type RouteDocument struct {
	PrimaryIdentifier string
	Edges             []string
	Cost              float64
	Probability       float64
}

type RouteAlternativesDocument struct {
	PrimaryIdentifier string

	Routes     []RouteDocument
	LastUsed   int
	GawronBeta float64
	GawronA    float64

	CreationDateTime time.Time
	DataSource       *network.DataSource
}

type VehicleDocument struct {
	PrimaryIdentifier string
	RouteDefRef       string
	Depart            int32
	VehicleType       string

	CreationDateTime time.Time
	DataSource       *network.DataSource
}

type bulkCollection interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// RouteEmitter upserts alternative sets and vehicles into MongoDB in batches.
// On Flush everything of the same dataset left from an earlier import is
// removed.
type RouteEmitter struct {
	mutex sync.Mutex

	routeAlternatives bulkCollection
	vehicles          bulkCollection
	batchSize         int

	routeAlternativeOperations []mongo.WriteModel
	vehicleOperations          []mongo.WriteModel

	dataSource *network.DataSource
}

func NewRouteEmitter() *RouteEmitter {
	return newRouteEmitter(GetCollection(RouteAlternativesCollection), GetCollection(VehiclesCollection), defaultBatchSize)
}

func newRouteEmitter(routeAlternatives bulkCollection, vehicles bulkCollection, batchSize int) *RouteEmitter {
	return &RouteEmitter{
		routeAlternatives: routeAlternatives,
		vehicles:          vehicles,
		batchSize:         batchSize,
	}
}

func upsertModel(primaryIdentifier string, document interface{}) (mongo.WriteModel, error) {
	bsonRep, err := bson.Marshal(bson.M{"$set": document})
	if err != nil {
		return nil, err
	}

	updateModel := mongo.NewUpdateOneModel()
	updateModel.SetFilter(bson.M{"primaryidentifier": primaryIdentifier})
	updateModel.SetUpdate(bsonRep)
	updateModel.SetUpsert(true)

	return updateModel, nil
}

func (e *RouteEmitter) EmitRouteDef(ctx context.Context, names network.EdgeNamer, set *network.AlternativeSet) error {
	document := RouteAlternativesDocument{
		PrimaryIdentifier: set.ID,
		LastUsed:          set.LastUsed,
		GawronBeta:        set.GawronBeta,
		GawronA:           set.GawronA,
		CreationDateTime:  time.Now(),
		DataSource:        set.DataSource,
	}
	for _, route := range set.Routes {
		document.Routes = append(document.Routes, RouteDocument{
			PrimaryIdentifier: route.ID,
			Edges:             names.EdgeNames(route.Edges),
			Cost:              route.Cost,
			Probability:       route.Probability,
		})
	}

	model, err := upsertModel(set.ID, document)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.noteDataSource(set.DataSource)
	e.routeAlternativeOperations = append(e.routeAlternativeOperations, model)

	if len(e.routeAlternativeOperations) >= e.batchSize {
		return e.writeRouteAlternatives(ctx)
	}
	return nil
}

func (e *RouteEmitter) EmitVehicle(ctx context.Context, vehicle *network.Vehicle) error {
	document := VehicleDocument{
		PrimaryIdentifier: vehicle.ID,
		RouteDefRef:       vehicle.RouteDefRef,
		Depart:            vehicle.Depart,
		CreationDateTime:  time.Now(),
		DataSource:        vehicle.DataSource,
	}
	if vehicle.Type != nil {
		document.VehicleType = vehicle.Type.ID
	}

	model, err := upsertModel(vehicle.ID, document)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.noteDataSource(vehicle.DataSource)
	e.vehicleOperations = append(e.vehicleOperations, model)

	if len(e.vehicleOperations) >= e.batchSize {
		return e.writeVehicles(ctx)
	}
	return nil
}

func (e *RouteEmitter) noteDataSource(dataSource *network.DataSource) {
	if e.dataSource == nil && dataSource != nil {
		e.dataSource = dataSource
	}
}

func (e *RouteEmitter) writeRouteAlternatives(ctx context.Context) error {
	if len(e.routeAlternativeOperations) == 0 {
		return nil
	}

	startTime := time.Now()
	_, err := e.routeAlternatives.BulkWrite(ctx, e.routeAlternativeOperations, &options.BulkWriteOptions{})
	if err != nil {
		return err
	}

	log.Debug().
		Int("length", len(e.routeAlternativeOperations)).
		Str("bulkwrite", time.Since(startTime).String()).
		Msg("Wrote route alternatives")

	e.routeAlternativeOperations = nil
	return nil
}

func (e *RouteEmitter) writeVehicles(ctx context.Context) error {
	if len(e.vehicleOperations) == 0 {
		return nil
	}

	startTime := time.Now()
	_, err := e.vehicles.BulkWrite(ctx, e.vehicleOperations, &options.BulkWriteOptions{})
	if err != nil {
		return err
	}

	log.Debug().
		Int("length", len(e.vehicleOperations)).
		Str("bulkwrite", time.Since(startTime).String()).
		Msg("Wrote vehicles")

	e.vehicleOperations = nil
	return nil
}

// Flush writes the remaining batches and removes records of the same dataset
// that this import did not touch
func (e *RouteEmitter) Flush(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	// Alternatives first so vehicles never reference a missing set
	if err := e.writeRouteAlternatives(ctx); err != nil {
		return err
	}
	if err := e.writeVehicles(ctx); err != nil {
		return err
	}

	if e.dataSource == nil {
		return nil
	}

	return e.cleanupOldRecords(ctx, e.dataSource)
}

func (e *RouteEmitter) cleanupOldRecords(ctx context.Context, dataSource *network.DataSource) error {
	deleteQuery := bson.M{
		"datasource.originalformat": dataSource.OriginalFormat,
		"datasource.dataset":        dataSource.Dataset,
		"datasource.identifier":     bson.M{"$ne": dataSource.Identifier},
	}

	for name, collection := range map[string]bulkCollection{
		RouteAlternativesCollection: e.routeAlternatives,
		VehiclesCollection:          e.vehicles,
	} {
		result, err := collection.DeleteMany(ctx, deleteQuery)
		if err != nil {
			return err
		}

		if result != nil && result.DeletedCount > 0 {
			log.Info().
				Str("collection", name).
				Str("dataset", dataSource.Dataset).
				Int64("length", result.DeletedCount).
				Msg("Deleted old records")
		}
	}

	return nil
}
