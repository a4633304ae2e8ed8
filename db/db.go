package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	FarmersCollectionName     = "farmers"
	CropBatchesCollectionName = "crop_batches"
	InputLogsCollectionName   = "input_logs"
	HarvestLogsCollectionName = "harvest_logs"
)

// DB holds the client and the collections the service writes to.
type DB struct {
	Client *mongo.Client

	FarmersCollection     *mongo.Collection
	CropBatchesCollection *mongo.Collection
	InputLogsCollection   *mongo.Collection
	HarvestLogsCollection *mongo.Collection
}

// Connect dials MongoDB, pings it and binds the collections of database.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	return &DB{
		Client:                client,
		FarmersCollection:     db.Collection(FarmersCollectionName),
		CropBatchesCollection: db.Collection(CropBatchesCollectionName),
		InputLogsCollection:   db.Collection(InputLogsCollectionName),
		HarvestLogsCollection: db.Collection(HarvestLogsCollectionName),
	}, nil
}

func (d *DB) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// OptionsFindLatest sorts newest log date first; limit 0 returns everything.
func OptionsFindLatest(limit int64) *options.FindOptions {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}
