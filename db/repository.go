package db

import (
	"context"
	"time"

	"farmledger/models"
	"farmledger/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ store.Store = (*DB)(nil)

func (d *DB) InsertBatch(ctx context.Context, b *models.CropBatch) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	_, err := d.CropBatchesCollection.InsertOne(ctx, b)
	return translateInsertErr(err)
}

func (d *DB) FindActiveBatch(ctx context.Context, zoneID string) (*models.CropBatch, error) {
	var b models.CropBatch
	filter := bson.M{"zoneId": zoneID, "status": models.BatchActive}
	if err := d.CropBatchesCollection.FindOne(ctx, filter).Decode(&b); err != nil {
		return nil, translateFindErr(err)
	}
	return &b, nil
}

func (d *DB) UpdateBatchStatus(ctx context.Context, id primitive.ObjectID, status models.BatchStatus, at time.Time) error {
	res, err := d.CropBatchesCollection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": at}},
	)
	if err != nil {
		return translateInsertErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) ListBatches(ctx context.Context, authID string, limit int64) ([]models.CropBatch, error) {
	cursor, err := d.CropBatchesCollection.Find(ctx, bson.M{"authId": authID}, OptionsFindLatest(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	batches := []models.CropBatch{}
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

func (d *DB) InsertInputLog(ctx context.Context, l *models.InputLog) error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	_, err := d.InputLogsCollection.InsertOne(ctx, l)
	return err
}

func (d *DB) ListInputLogs(ctx context.Context, authID string, limit int64) ([]models.InputLog, error) {
	cursor, err := d.InputLogsCollection.Find(ctx, bson.M{"authId": authID}, OptionsFindLatest(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []models.InputLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (d *DB) InsertHarvestLog(ctx context.Context, l *models.HarvestLog) error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	_, err := d.HarvestLogsCollection.InsertOne(ctx, l)
	return translateInsertErr(err)
}

func (d *DB) FindHarvestLog(ctx context.Context, authID string, id primitive.ObjectID) (*models.HarvestLog, error) {
	var l models.HarvestLog
	if err := d.HarvestLogsCollection.FindOne(ctx, bson.M{"_id": id, "authId": authID}).Decode(&l); err != nil {
		return nil, translateFindErr(err)
	}
	return &l, nil
}

func (d *DB) UpdateHarvestStatus(ctx context.Context, authID string, id primitive.ObjectID, status models.HarvestStatus, at time.Time) error {
	res, err := d.HarvestLogsCollection.UpdateOne(ctx,
		bson.M{"_id": id, "authId": authID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) ListHarvestLogs(ctx context.Context, authID string, limit int64) ([]models.HarvestLog, error) {
	cursor, err := d.HarvestLogsCollection.Find(ctx, bson.M{"authId": authID}, OptionsFindLatest(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []models.HarvestLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (d *DB) InsertFarmer(ctx context.Context, f *models.FarmerProfile) error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	_, err := d.FarmersCollection.InsertOne(ctx, f)
	return translateInsertErr(err)
}

func (d *DB) FindFarmerByAuthID(ctx context.Context, authID string) (*models.FarmerProfile, error) {
	var f models.FarmerProfile
	if err := d.FarmersCollection.FindOne(ctx, bson.M{"authId": authID}).Decode(&f); err != nil {
		return nil, translateFindErr(err)
	}
	return &f, nil
}
