// Package ledger appends input and harvest logs against a zone's Active
// batch. Batch attributes are always copied from the batch, never taken
// from the caller.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"farmledger/apperr"
	"farmledger/models"
	"farmledger/mq"
	"farmledger/store"
	"farmledger/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ActiveBatches is the slice of the batch registry the ledger needs.
type ActiveBatches interface {
	FindActive(ctx context.Context, zoneID string) (*models.CropBatch, error)
	CloseBatch(ctx context.Context, batch *models.CropBatch) (*models.CropBatch, error)
}

type Ledger struct {
	batches  ActiveBatches
	inputs   store.InputLogs
	harvests store.HarvestLogs
	events   mq.Emitter
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithEmitter(e mq.Emitter) Option {
	return func(l *Ledger) { l.events = e }
}

func New(batches ActiveBatches, inputs store.InputLogs, harvests store.HarvestLogs, logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		batches:  batches,
		inputs:   inputs,
		harvests: harvests,
		events:   mq.Nop{},
		logger:   logger.Named("ledger"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type InputLogInput struct {
	OwnerID     string
	ZoneID      string
	Date        string
	Category    models.InputCategory
	ProductName string
	Quantity    float64
	Unit        models.Unit
}

func (l *Ledger) AppendInputLog(ctx context.Context, in InputLogInput) (*models.InputLog, error) {
	zoneID := strings.TrimSpace(in.ZoneID)
	product := strings.TrimSpace(in.ProductName)
	if in.OwnerID == "" || zoneID == "" || in.Date == "" || in.Category == "" || product == "" || in.Quantity == 0 || in.Unit == "" {
		return nil, apperr.Validation("Missing required fields")
	}
	if !in.Category.Valid() {
		return nil, apperr.Validation("inputCategory must be one of: Organic Fertilizer, Chemical Fertilizer, Pesticide")
	}
	if !in.Unit.Valid() {
		return nil, apperr.Validation("unit must be one of: kg, L")
	}
	if !utils.Positive(in.Quantity) {
		return nil, apperr.Validation("quantity must be a positive number")
	}
	date := utils.ParseDate(in.Date)
	if date == nil {
		return nil, apperr.Validation("date must be a valid date")
	}

	batch, err := l.activeBatchFor(ctx, in.OwnerID, zoneID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, apperr.Precondition("No active crop batch found for this zone. Please log planting first.")
	}

	now := l.now().UTC()
	entry := &models.InputLog{
		AuthID:        in.OwnerID,
		ZoneID:        zoneID,
		BatchID:       batch.BatchID,
		Date:          *date,
		InputCategory: in.Category,
		ProductName:   product,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.inputs.InsertInputLog(ctx, entry); err != nil {
		l.logger.Error("insert input log",
			zap.String("owner", in.OwnerID),
			zap.String("zone", zoneID),
			zap.String("batch", batch.BatchID),
			zap.Error(err))
		return nil, apperr.Internal("Internal server error", err)
	}

	l.events.Emit(ctx, mq.InputLogged, mq.Index{
		EntityType: "input",
		Method:     "logged",
		EntityId:   entry.ID.Hex(),
		OwnerId:    entry.AuthID,
		ZoneId:     entry.ZoneID,
		BatchId:    entry.BatchID,
		Action:     InputAction(entry.InputCategory, entry.ProductName),
		Date:       entry.Date,
	})
	return entry, nil
}

type HarvestLogInput struct {
	OwnerID           string
	ZoneID            string
	Date              string
	YieldAmount       float64
	MarketDestination string
}

// AppendHarvestLog writes the harvest log and then closes the batch. A
// failed log write leaves the batch Active. A failed close after a
// successful log write is reported and logged but not undone.
func (l *Ledger) AppendHarvestLog(ctx context.Context, in HarvestLogInput) (*models.HarvestLog, error) {
	zoneID := strings.TrimSpace(in.ZoneID)
	destination := strings.TrimSpace(in.MarketDestination)
	if in.OwnerID == "" || zoneID == "" || in.Date == "" || in.YieldAmount == 0 || destination == "" {
		return nil, apperr.Validation("Missing required fields")
	}
	if !utils.Positive(in.YieldAmount) {
		return nil, apperr.Validation("yieldAmount must be a positive number")
	}
	date := utils.ParseDate(in.Date)
	if date == nil {
		return nil, apperr.Validation("date must be a valid date")
	}

	batch, err := l.activeBatchFor(ctx, in.OwnerID, zoneID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, apperr.Precondition("No active crop batch found for this zone. Cannot log harvest.")
	}

	now := l.now().UTC()
	entry := &models.HarvestLog{
		AuthID:            in.OwnerID,
		ZoneID:            zoneID,
		BatchID:           batch.BatchID,
		Date:              *date,
		PlantedDate:       batch.Date,
		CropVariety:       batch.CropVariety,
		YieldAmount:       in.YieldAmount,
		MarketDestination: destination,
		Status:            models.HarvestHarvested,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = l.harvests.InsertHarvestLog(ctx, entry)
	if errors.Is(err, store.ErrDuplicateHarvest) {
		return nil, apperr.Conflict("A harvest has already been logged for this batch")
	}
	if err != nil {
		l.logger.Error("insert harvest log",
			zap.String("owner", in.OwnerID),
			zap.String("zone", zoneID),
			zap.String("batch", batch.BatchID),
			zap.Error(err))
		return nil, apperr.Internal("Internal server error", err)
	}

	if _, err := l.batches.CloseBatch(ctx, batch); err != nil {
		l.logger.Error("harvest logged but batch left active",
			zap.String("owner", in.OwnerID),
			zap.String("zone", zoneID),
			zap.String("batch", batch.BatchID),
			zap.String("harvest_log", entry.ID.Hex()),
			zap.Error(err))
		return nil, apperr.Internal("Internal server error", err)
	}

	l.events.Emit(ctx, mq.HarvestLogged, mq.Index{
		EntityType: "harvest",
		Method:     "logged",
		EntityId:   entry.ID.Hex(),
		OwnerId:    entry.AuthID,
		ZoneId:     entry.ZoneID,
		BatchId:    entry.BatchID,
		Action:     "Harvested " + entry.CropVariety,
		Date:       entry.Date,
	})
	return entry, nil
}

// UpdateHarvestStatus moves a harvest log to Transported. A log that is
// already Transported is returned unchanged.
func (l *Ledger) UpdateHarvestStatus(ctx context.Context, ownerID, harvestLogID string) (*models.HarvestLog, error) {
	notFound := apperr.NotFound("Harvest log not found or unauthorized")

	id, err := primitive.ObjectIDFromHex(harvestLogID)
	if err != nil || ownerID == "" {
		return nil, notFound
	}

	entry, err := l.harvests.FindHarvestLog(ctx, ownerID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, apperr.Internal("Internal server error", err)
	}
	if entry.Status == models.HarvestTransported {
		return entry, nil
	}

	now := l.now().UTC()
	err = l.harvests.UpdateHarvestStatus(ctx, ownerID, id, models.HarvestTransported, now)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		l.logger.Error("update harvest status",
			zap.String("owner", ownerID),
			zap.String("harvest_log", harvestLogID),
			zap.Error(err))
		return nil, apperr.Internal("Internal server error", err)
	}
	entry.Status = models.HarvestTransported
	entry.UpdatedAt = now

	l.events.Emit(ctx, mq.HarvestTransported, mq.Index{
		EntityType: "harvest",
		Method:     "transported",
		EntityId:   entry.ID.Hex(),
		OwnerId:    entry.AuthID,
		ZoneId:     entry.ZoneID,
		BatchId:    entry.BatchID,
		Date:       now,
	})
	return entry, nil
}

// activeBatchFor returns the zone's Active batch only when ownerID owns it.
func (l *Ledger) activeBatchFor(ctx context.Context, ownerID, zoneID string) (*models.CropBatch, error) {
	batch, err := l.batches.FindActive(ctx, zoneID)
	if err != nil {
		l.logger.Error("find active batch", zap.String("owner", ownerID), zap.String("zone", zoneID), zap.Error(err))
		return nil, apperr.Internal("Internal server error", err)
	}
	if !batch.IsActive() || batch.AuthID != ownerID {
		return nil, nil
	}
	return batch, nil
}

// InputAction is the activity-feed wording for an input application.
func InputAction(category models.InputCategory, product string) string {
	if category == models.Pesticide {
		return "Applied " + product
	}
	return "Added " + product
}
