// Package batches owns crop batches and the rule that a zone holds at most
// one Active batch.
package batches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"farmledger/apperr"
	"farmledger/models"
	"farmledger/mq"
	"farmledger/store"
	"farmledger/utils"

	"go.uber.org/zap"
)

const (
	maxBatchIDAttempts = 5
	varietyPrefixLen   = 5
	fallbackPrefix     = "BATCH"
)

const errZoneOccupied = "This zone already has an active crop batch. Please harvest or close it before planting again."

type Registry struct {
	store  store.Batches
	events mq.Emitter
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithEmitter(e mq.Emitter) Option {
	return func(r *Registry) { r.events = e }
}

func NewRegistry(s store.Batches, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:  s,
		events: mq.Nop{},
		logger: logger.Named("batches"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type OpenBatchInput struct {
	OwnerID      string
	ZoneID       string
	Date         string
	CropVariety  string
	SeedQuantity float64
	AreaCovered  float64
}

// OpenBatch plants a new batch in a zone. The zone check is not scoped to
// the owner: a zone is busy while anyone's batch in it is Active.
func (r *Registry) OpenBatch(ctx context.Context, in OpenBatchInput) (*models.CropBatch, error) {
	zoneID := strings.TrimSpace(in.ZoneID)
	variety := strings.TrimSpace(in.CropVariety)
	if in.OwnerID == "" || zoneID == "" || in.Date == "" || variety == "" || in.SeedQuantity == 0 || in.AreaCovered == 0 {
		return nil, apperr.Validation("Missing required fields")
	}
	if !utils.Positive(in.SeedQuantity) || !utils.Positive(in.AreaCovered) {
		return nil, apperr.Validation("seedQuantity and areaCovered must be positive numbers")
	}
	planted := utils.ParseDate(in.Date)
	if planted == nil {
		return nil, apperr.Validation("date must be a valid date")
	}

	existing, err := r.FindActive(ctx, zoneID)
	if err != nil {
		return nil, apperr.Internal("Internal server error", err)
	}
	if existing != nil {
		r.conflict(ctx, in.OwnerID, zoneID, "precheck")
		return nil, apperr.Conflict(errZoneOccupied)
	}

	now := r.now().UTC()
	prefix := sanitizeVariety(variety)
	for attempt := 0; attempt < maxBatchIDAttempts; attempt++ {
		batch := &models.CropBatch{
			AuthID:              in.OwnerID,
			ZoneID:              zoneID,
			BatchID:             batchID(prefix, now, attempt),
			Date:                *planted,
			CropVariety:         variety,
			SeedQuantity:        in.SeedQuantity,
			AreaCovered:         in.AreaCovered,
			Status:              models.BatchActive,
			CurrentOrganicLevel: models.DefaultOrganicLevel,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		err := r.store.InsertBatch(ctx, batch)
		switch {
		case err == nil:
			r.logger.Info("batch opened",
				zap.String("owner", in.OwnerID),
				zap.String("zone", zoneID),
				zap.String("batch", batch.BatchID))
			r.events.Emit(ctx, mq.BatchOpened, mq.Index{
				EntityType: "batch",
				Method:     "opened",
				EntityId:   batch.ID.Hex(),
				OwnerId:    batch.AuthID,
				ZoneId:     batch.ZoneID,
				BatchId:    batch.BatchID,
				Action:     "Planted " + batch.CropVariety,
				Date:       batch.Date,
			})
			return batch, nil
		case errors.Is(err, store.ErrDuplicateBatchID):
			r.logger.Warn("batch id collision", zap.String("batch", batch.BatchID), zap.Int("attempt", attempt))
		case errors.Is(err, store.ErrActiveBatchExists):
			// Lost the race against a concurrent planting in the same zone.
			r.conflict(ctx, in.OwnerID, zoneID, "index")
			return nil, apperr.Conflict(errZoneOccupied)
		default:
			r.logger.Error("insert batch",
				zap.String("owner", in.OwnerID),
				zap.String("zone", zoneID),
				zap.Error(err))
			return nil, apperr.Internal("Internal server error", err)
		}
	}
	return nil, apperr.Conflict("Could not allocate a unique batch id, please retry")
}

// CloseBatch marks the batch Harvested. Closing an already Harvested batch
// rewrites the same status.
func (r *Registry) CloseBatch(ctx context.Context, batch *models.CropBatch) (*models.CropBatch, error) {
	now := r.now().UTC()
	if err := r.store.UpdateBatchStatus(ctx, batch.ID, models.BatchHarvested, now); err != nil {
		return nil, fmt.Errorf("close batch %s: %w", batch.BatchID, err)
	}
	batch.Status = models.BatchHarvested
	batch.UpdatedAt = now

	r.events.Emit(ctx, mq.BatchClosed, mq.Index{
		EntityType: "batch",
		Method:     "closed",
		EntityId:   batch.ID.Hex(),
		OwnerId:    batch.AuthID,
		ZoneId:     batch.ZoneID,
		BatchId:    batch.BatchID,
		Date:       now,
	})
	return batch, nil
}

// FindActive returns the zone's Active batch, or nil when the zone is free.
func (r *Registry) FindActive(ctx context.Context, zoneID string) (*models.CropBatch, error) {
	batch, err := r.store.FindActiveBatch(ctx, zoneID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active batch in zone %s: %w", zoneID, err)
	}
	return batch, nil
}

func (r *Registry) conflict(ctx context.Context, owner, zone, reason string) {
	r.logger.Info("zone already active", zap.String("owner", owner), zap.String("zone", zone), zap.String("detected_by", reason))
	r.events.Emit(ctx, mq.BatchConflict, mq.Index{
		EntityType: "batch",
		Method:     reason,
		OwnerId:    owner,
		ZoneId:     zone,
		Date:       r.now().UTC(),
	})
}

// sanitizeVariety keeps the first five ASCII letters and digits, upper-cased.
func sanitizeVariety(variety string) string {
	var b strings.Builder
	for _, c := range variety {
		if c > unicode.MaxASCII || !(unicode.IsLetter(c) || unicode.IsDigit(c)) {
			continue
		}
		b.WriteRune(unicode.ToUpper(c))
		if b.Len() == varietyPrefixLen {
			break
		}
	}
	if b.Len() == 0 {
		return fallbackPrefix
	}
	return b.String()
}

// batchID appends the last six digits of the creation time in milliseconds,
// stepped forward by attempt after a collision.
func batchID(prefix string, created time.Time, attempt int) string {
	suffix := (created.UnixMilli() + int64(attempt)) % 1_000_000
	return fmt.Sprintf("%s-%06d", prefix, suffix)
}
