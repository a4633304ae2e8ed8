package db

import (
	"errors"
	"testing"

	"farmledger/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func dupKey(index string) error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{
			Code:    11000,
			Message: "E11000 duplicate key error collection: farmledger.crop_batches index: " + index + " dup key: { zoneId: \"Z1\" }",
		}},
	}
}

func TestTranslateInsertErr(t *testing.T) {
	assert.ErrorIs(t, translateInsertErr(dupKey(IndexActiveZone)), store.ErrActiveBatchExists)
	assert.ErrorIs(t, translateInsertErr(dupKey(IndexBatchID)), store.ErrDuplicateBatchID)
	assert.ErrorIs(t, translateInsertErr(dupKey(IndexHarvestBatch)), store.ErrDuplicateHarvest)
	assert.ErrorIs(t, translateInsertErr(dupKey(IndexFarmerEmail)), store.ErrDuplicateProfile)
	assert.ErrorIs(t, translateInsertErr(dupKey(IndexFarmerAuthID)), store.ErrDuplicateProfile)
	assert.NoError(t, translateInsertErr(nil))

	other := errors.New("socket closed")
	assert.Same(t, other, translateInsertErr(other))
}

func TestTranslateFindErr(t *testing.T) {
	assert.ErrorIs(t, translateFindErr(mongo.ErrNoDocuments), store.ErrNotFound)
}

func TestActiveZoneIndexIsPartialAndUnique(t *testing.T) {
	specs := IndexModels()[CropBatchesCollectionName]

	var found bool
	for _, m := range specs {
		if m.Options == nil || m.Options.Name == nil || *m.Options.Name != IndexActiveZone {
			continue
		}
		found = true
		require.NotNil(t, m.Options.Unique)
		assert.True(t, *m.Options.Unique)
		assert.Equal(t, bson.M{"status": "Active"}, m.Options.PartialFilterExpression)
	}
	assert.True(t, found, "active zone index missing")
}

func TestHarvestBatchIndexIsUnique(t *testing.T) {
	specs := IndexModels()[HarvestLogsCollectionName]

	var found bool
	for _, m := range specs {
		if m.Options == nil || m.Options.Name == nil || *m.Options.Name != IndexHarvestBatch {
			continue
		}
		found = true
		assert.Equal(t, bson.D{{Key: "batchId", Value: 1}}, m.Keys)
		require.NotNil(t, m.Options.Unique)
		assert.True(t, *m.Options.Unique)
		assert.Nil(t, m.Options.PartialFilterExpression)
	}
	assert.True(t, found, "harvest batch index missing")
}

func TestOptionsFindLatest(t *testing.T) {
	opts := OptionsFindLatest(3)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(3), *opts.Limit)

	assert.Nil(t, OptionsFindLatest(0).Limit)
}
