// Package store declares the persistence contracts the domain packages
// depend on. Implementations live in db (MongoDB) and store/memstore.
package store

import (
	"context"
	"errors"
	"time"

	"farmledger/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrActiveBatchExists is returned when an insert would leave two Active
	// batches in one zone.
	ErrActiveBatchExists = errors.New("store: zone already has an active batch")
	ErrDuplicateBatchID  = errors.New("store: batch id already taken")
	ErrDuplicateProfile  = errors.New("store: farmer profile already exists")
	// ErrDuplicateHarvest is returned when a batch already has a harvest log.
	ErrDuplicateHarvest = errors.New("store: batch already harvested")
)

// Batches persists crop batches. List methods return newest date first; a
// limit of 0 means no limit.
type Batches interface {
	InsertBatch(ctx context.Context, b *models.CropBatch) error
	FindActiveBatch(ctx context.Context, zoneID string) (*models.CropBatch, error)
	UpdateBatchStatus(ctx context.Context, id primitive.ObjectID, status models.BatchStatus, at time.Time) error
	ListBatches(ctx context.Context, authID string, limit int64) ([]models.CropBatch, error)
}

type InputLogs interface {
	InsertInputLog(ctx context.Context, l *models.InputLog) error
	ListInputLogs(ctx context.Context, authID string, limit int64) ([]models.InputLog, error)
}

type HarvestLogs interface {
	InsertHarvestLog(ctx context.Context, l *models.HarvestLog) error
	// FindHarvestLog only matches logs owned by authID.
	FindHarvestLog(ctx context.Context, authID string, id primitive.ObjectID) (*models.HarvestLog, error)
	UpdateHarvestStatus(ctx context.Context, authID string, id primitive.ObjectID, status models.HarvestStatus, at time.Time) error
	ListHarvestLogs(ctx context.Context, authID string, limit int64) ([]models.HarvestLog, error)
}

type Farmers interface {
	InsertFarmer(ctx context.Context, f *models.FarmerProfile) error
	FindFarmerByAuthID(ctx context.Context, authID string) (*models.FarmerProfile, error)
}

// Store is everything the service needs from a backend.
type Store interface {
	Batches
	InputLogs
	HarvestLogs
	Farmers
}
