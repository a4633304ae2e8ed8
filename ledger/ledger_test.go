package ledger

import (
	"context"
	"errors"
	"math"
	"testing"

	"farmledger/apperr"
	"farmledger/batches"
	"farmledger/models"
	"farmledger/mq"
	"farmledger/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	store    *memstore.Store
	registry *batches.Registry
	ledger   *Ledger
	events   *mq.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	rec := &mq.Recorder{}
	registry := batches.NewRegistry(s, zap.NewNop())
	return &fixture{
		store:    s,
		registry: registry,
		ledger:   New(registry, s, s, zap.NewNop(), WithEmitter(rec)),
		events:   rec,
	}
}

func (f *fixture) plant(t *testing.T, owner, zone, variety string) *models.CropBatch {
	t.Helper()
	b, err := f.registry.OpenBatch(context.Background(), batches.OpenBatchInput{
		OwnerID:      owner,
		ZoneID:       zone,
		Date:         "2024-02-01",
		CropVariety:  variety,
		SeedQuantity: 100,
		AreaCovered:  1,
	})
	require.NoError(t, err)
	return b
}

func inputFor(owner, zone string) InputLogInput {
	return InputLogInput{
		OwnerID:     owner,
		ZoneID:      zone,
		Date:        "2024-02-10",
		Category:    models.OrganicFertilizer,
		ProductName: "Vermicompost",
		Quantity:    25,
		Unit:        models.UnitKg,
	}
}

func harvestFor(owner, zone string) HarvestLogInput {
	return HarvestLogInput{
		OwnerID:           owner,
		ZoneID:            zone,
		Date:              "2024-05-20",
		YieldAmount:       1200,
		MarketDestination: "Azadpur Mandi",
	}
}

func TestAppendInputLogCopiesBatch(t *testing.T) {
	f := newFixture(t)
	batch := f.plant(t, "farmer-1", "Z1", "Wheat")

	entry, err := f.ledger.AppendInputLog(context.Background(), inputFor("farmer-1", "Z1"))
	require.NoError(t, err)

	assert.Equal(t, batch.BatchID, entry.BatchID)
	assert.Equal(t, 25.0, entry.Quantity)
	assert.False(t, entry.ID.IsZero())
	require.Len(t, f.events.Events, 1)
	assert.Equal(t, "Added Vermicompost", f.events.Events[0].Content.Action)
}

func TestAppendInputLogWithoutActiveBatch(t *testing.T) {
	f := newFixture(t)
	for _, owner := range []string{"farmer-1", "farmer-2"} {
		_, err := f.ledger.AppendInputLog(context.Background(), inputFor(owner, "Z1"))
		assert.True(t, apperr.Is(err, apperr.KindPrecondition), "owner %s: %v", owner, err)
	}
}

func TestAppendInputLogOnSomeoneElsesBatch(t *testing.T) {
	f := newFixture(t)
	f.plant(t, "farmer-1", "Z1", "Wheat")

	_, err := f.ledger.AppendInputLog(context.Background(), inputFor("farmer-2", "Z1"))
	assert.True(t, apperr.Is(err, apperr.KindPrecondition))
}

func TestAppendInputLogValidation(t *testing.T) {
	f := newFixture(t)
	f.plant(t, "farmer-1", "Z1", "Wheat")

	cases := map[string]func(*InputLogInput){
		"missing product": func(in *InputLogInput) { in.ProductName = "" },
		"zero quantity":   func(in *InputLogInput) { in.Quantity = 0 },
		"NaN quantity":    func(in *InputLogInput) { in.Quantity = math.NaN() },
		"infinite amount": func(in *InputLogInput) { in.Quantity = math.Inf(1) },
		"bad category":    func(in *InputLogInput) { in.Category = "Compost Tea" },
		"bad unit":        func(in *InputLogInput) { in.Unit = "gallon" },
		"bad date":        func(in *InputLogInput) { in.Date = "02/31" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := inputFor("farmer-1", "Z1")
			mutate(&in)
			_, err := f.ledger.AppendInputLog(context.Background(), in)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestAppendHarvestLogClosesBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	batch := f.plant(t, "farmer-1", "Z1", "Sona Masoori")

	entry, err := f.ledger.AppendHarvestLog(ctx, harvestFor("farmer-1", "Z1"))
	require.NoError(t, err)

	assert.Equal(t, batch.BatchID, entry.BatchID)
	assert.Equal(t, "Sona Masoori", entry.CropVariety)
	assert.Equal(t, batch.Date, entry.PlantedDate)
	assert.Equal(t, models.HarvestHarvested, entry.Status)

	active, err := f.registry.FindActive(ctx, "Z1")
	require.NoError(t, err)
	assert.Nil(t, active)

	stored := f.store.Batches()
	require.Len(t, stored, 1)
	assert.Equal(t, models.BatchHarvested, stored[0].Status)

	_, err = f.ledger.AppendInputLog(ctx, inputFor("farmer-1", "Z1"))
	assert.True(t, apperr.Is(err, apperr.KindPrecondition))

	again := f.plant(t, "farmer-1", "Z1", "Wheat")
	assert.Equal(t, models.BatchActive, again.Status)
}

func TestAppendHarvestLogRejectsNonFiniteYield(t *testing.T) {
	f := newFixture(t)
	f.plant(t, "farmer-1", "Z1", "Wheat")

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		in := harvestFor("farmer-1", "Z1")
		in.YieldAmount = v
		_, err := f.ledger.AppendHarvestLog(context.Background(), in)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "yield %v: got %v", v, err)
	}
	logs, err := f.store.ListHarvestLogs(context.Background(), "farmer-1", 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

// staleBatches hands back whatever batch it holds, active or not.
type staleBatches struct {
	batch *models.CropBatch
}

func (s staleBatches) FindActive(context.Context, string) (*models.CropBatch, error) {
	return s.batch, nil
}

func (s staleBatches) CloseBatch(_ context.Context, b *models.CropBatch) (*models.CropBatch, error) {
	return b, nil
}

func TestAppendLogsIgnoreClosedBatch(t *testing.T) {
	s := memstore.New()
	closed := &models.CropBatch{AuthID: "farmer-1", ZoneID: "Z1", BatchID: "WHE-old", Status: models.BatchHarvested}
	l := New(staleBatches{batch: closed}, s, s, zap.NewNop())

	_, err := l.AppendInputLog(context.Background(), inputFor("farmer-1", "Z1"))
	assert.True(t, apperr.Is(err, apperr.KindPrecondition), "got %v", err)

	_, err = l.AppendHarvestLog(context.Background(), harvestFor("farmer-1", "Z1"))
	assert.True(t, apperr.Is(err, apperr.KindPrecondition), "got %v", err)
}

func TestAppendHarvestLogSecondHarvestForBatchIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	batch := f.plant(t, "farmer-1", "Z1", "Wheat")

	// Another request got its harvest in between our read and our write.
	require.NoError(t, f.store.InsertHarvestLog(ctx, &models.HarvestLog{
		AuthID:  "farmer-1",
		ZoneID:  "Z1",
		BatchID: batch.BatchID,
		Status:  models.HarvestHarvested,
	}))

	_, err := f.ledger.AppendHarvestLog(ctx, harvestFor("farmer-1", "Z1"))
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	logs, err := f.store.ListHarvestLogs(ctx, "farmer-1", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Empty(t, f.events.Events)
}

func TestAppendHarvestLogWithoutActiveBatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.AppendHarvestLog(context.Background(), harvestFor("farmer-1", "Z1"))
	assert.True(t, apperr.Is(err, apperr.KindPrecondition))
}

func TestAppendHarvestLogWriteFailureKeepsBatchActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.plant(t, "farmer-1", "Z1", "Wheat")
	f.store.Fail = func(op string) error {
		if op == "InsertHarvestLog" {
			return errors.New("write concern timeout")
		}
		return nil
	}

	_, err := f.ledger.AppendHarvestLog(ctx, harvestFor("farmer-1", "Z1"))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	active, err := f.registry.FindActive(ctx, "Z1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, models.BatchActive, active.Status)
}

func TestAppendHarvestLogCloseFailureIsReported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.plant(t, "farmer-1", "Z1", "Wheat")
	f.store.Fail = func(op string) error {
		if op == "UpdateBatchStatus" {
			return errors.New("primary stepped down")
		}
		return nil
	}

	_, err := f.ledger.AppendHarvestLog(ctx, harvestFor("farmer-1", "Z1"))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	logs, err := f.store.ListHarvestLogs(ctx, "farmer-1", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "harvest log is not rolled back")

	active, err := f.registry.FindActive(ctx, "Z1")
	require.NoError(t, err)
	assert.NotNil(t, active)
}

func TestUpdateHarvestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.plant(t, "farmer-1", "Z1", "Wheat")
	entry, err := f.ledger.AppendHarvestLog(ctx, harvestFor("farmer-1", "Z1"))
	require.NoError(t, err)

	updated, err := f.ledger.UpdateHarvestStatus(ctx, "farmer-1", entry.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.HarvestTransported, updated.Status)

	before := len(f.events.Events)
	again, err := f.ledger.UpdateHarvestStatus(ctx, "farmer-1", entry.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.HarvestTransported, again.Status)
	assert.Len(t, f.events.Events, before, "no-op transition emits nothing")
}

func TestUpdateHarvestStatusNotOwned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.plant(t, "farmer-1", "Z1", "Wheat")
	entry, err := f.ledger.AppendHarvestLog(ctx, harvestFor("farmer-1", "Z1"))
	require.NoError(t, err)

	got, err := f.ledger.UpdateHarvestStatus(ctx, "farmer-2", entry.ID.Hex())
	assert.Nil(t, got)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.ledger.UpdateHarvestStatus(ctx, "farmer-1", "not-an-id")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.ledger.UpdateHarvestStatus(ctx, "farmer-1", primitive.NewObjectID().Hex())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestInputAction(t *testing.T) {
	assert.Equal(t, "Applied Neem Oil", InputAction(models.Pesticide, "Neem Oil"))
	assert.Equal(t, "Added Urea", InputAction(models.ChemicalFertilizer, "Urea"))
}
