package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RouteAlternativesCollection = "route_alternatives"
	VehiclesCollection          = "vehicles"
)

func createIndexes() {
	dataSourceIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "datasource.dataset", Value: 1},
			{Key: "datasource.identifier", Value: 1},
		},
	}

	// Route alternatives
	routeAlternativesCollection := GetCollection(RouteAlternativesCollection)
	_, err := routeAlternativesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		dataSourceIndex,
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// Vehicles
	vehiclesCollection := GetCollection(VehiclesCollection)
	_, err = vehiclesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "routedefref", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "depart", Value: 1}},
		},
		dataSourceIndex,
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
