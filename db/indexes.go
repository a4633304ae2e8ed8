package db

import (
	"context"
	"fmt"

	"farmledger/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	IndexActiveZone   = "uniq_active_zone"
	IndexBatchID      = "uniq_batch_id"
	IndexHarvestBatch = "uniq_harvest_batch_id"
	IndexFarmerAuthID = "uniq_farmer_auth_id"
	IndexFarmerEmail  = "uniq_farmer_email"
)

func ownerDateIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "authId", Value: 1}, {Key: "date", Value: -1}},
		Options: options.Index().SetName("owner_date"),
	}
}

// IndexModels lists the indexes per collection. The partial unique index on
// zoneId is what keeps a zone down to one Active batch under concurrent
// planting requests. The unique batchId index on harvest logs does the same
// for two harvests racing on one batch.
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CropBatchesCollectionName: {
			{
				Keys:    bson.D{{Key: "batchId", Value: 1}},
				Options: options.Index().SetName(IndexBatchID).SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "zoneId", Value: 1}},
				Options: options.Index().
					SetName(IndexActiveZone).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": string(models.BatchActive)}),
			},
			ownerDateIndex(),
		},
		InputLogsCollectionName:   {ownerDateIndex()},
		HarvestLogsCollectionName: {
			{
				Keys:    bson.D{{Key: "batchId", Value: 1}},
				Options: options.Index().SetName(IndexHarvestBatch).SetUnique(true),
			},
			ownerDateIndex(),
		},
		FarmersCollectionName: {
			{
				Keys:    bson.D{{Key: "authId", Value: 1}},
				Options: options.Index().SetName(IndexFarmerAuthID).SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName(IndexFarmerEmail).SetUnique(true),
			},
		},
	}
}

func (d *DB) EnsureIndexes(ctx context.Context) error {
	collections := map[string]*mongo.Collection{
		CropBatchesCollectionName: d.CropBatchesCollection,
		InputLogsCollectionName:   d.InputLogsCollection,
		HarvestLogsCollectionName: d.HarvestLogsCollection,
		FarmersCollectionName:     d.FarmersCollection,
	}
	for name, specs := range IndexModels() {
		if _, err := collections[name].Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
