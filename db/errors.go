package db

import (
	"errors"
	"strings"

	"farmledger/store"

	"go.mongodb.org/mongo-driver/mongo"
)

// translateInsertErr maps duplicate-key failures onto store sentinels by the
// name of the index that rejected the write.
func translateInsertErr(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, IndexActiveZone):
		return store.ErrActiveBatchExists
	case strings.Contains(msg, IndexHarvestBatch):
		return store.ErrDuplicateHarvest
	case strings.Contains(msg, IndexBatchID):
		return store.ErrDuplicateBatchID
	case strings.Contains(msg, IndexFarmerAuthID), strings.Contains(msg, IndexFarmerEmail):
		return store.ErrDuplicateProfile
	}
	return err
}

func translateFindErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}
