// Package history builds the read-only views over a farmer's batches and
// logs: the full history and the recent-activity strip.
package history

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"farmledger/apperr"
	"farmledger/ledger"
	"farmledger/models"
	"farmledger/store"
)

// RecentLimit bounds both the per-source reads and the merged result.
const RecentLimit = 3

// NoOrganicLevel stands in for a harvest whose batch could not be found.
const NoOrganicLevel = "N/A"

const (
	dayLayout = "2006-01-02"
	isoLayout = "2006-01-02T15:04:05.000Z07:00"
)

type Reader interface {
	ListBatches(ctx context.Context, authID string, limit int64) ([]models.CropBatch, error)
	ListInputLogs(ctx context.Context, authID string, limit int64) ([]models.InputLog, error)
	ListHarvestLogs(ctx context.Context, authID string, limit int64) ([]models.HarvestLog, error)
}

var _ Reader = (store.Store)(nil)

type PlantingRow struct {
	ID          string             `json:"id"`
	Date        string             `json:"date"`
	CropVariety string             `json:"cropVariety"`
	SeedAmount  string             `json:"seedAmount"`
	AreaCovered string             `json:"areaCovered"`
	BatchID     string             `json:"batchId"`
	ZoneID      string             `json:"zoneId"`
	Status      models.BatchStatus `json:"status"`
}

type InputRow struct {
	ID          string               `json:"id"`
	Date        string               `json:"date"`
	Category    models.InputCategory `json:"category"`
	ProductName string               `json:"productName"`
	Quantity    string               `json:"quantity"`
	Location    string               `json:"location"`
	BatchID     string               `json:"batchId"`
}

type HarvestRow struct {
	ID                string               `json:"id"`
	Date              string               `json:"date"`
	CropVariety       string               `json:"cropVariety"`
	YieldAmount       string               `json:"yieldAmount"`
	MarketDestination string               `json:"marketDestination"`
	BatchID           string               `json:"batchId"`
	Status            models.HarvestStatus `json:"status"`
	// OrganicLevel is a number, or NoOrganicLevel when the batch is gone.
	OrganicLevel interface{} `json:"organicLevel"`
}

type View struct {
	Plantings []PlantingRow `json:"plantings"`
	Inputs    []InputRow    `json:"inputs"`
	Harvests  []HarvestRow  `json:"harvests"`
}

type ActivityType string

const (
	ActivityPlanting ActivityType = "Planting"
	ActivityInput    ActivityType = "Input"
	ActivityHarvest  ActivityType = "Harvest"
)

type Activity struct {
	ID     string       `json:"id"`
	Type   ActivityType `json:"type"`
	Action string       `json:"action"`
	Date   string       `json:"date"`

	at time.Time
}

type Aggregator struct {
	reader Reader
	logger *zap.Logger
}

func NewAggregator(r Reader, logger *zap.Logger) *Aggregator {
	return &Aggregator{reader: r, logger: logger}
}

type snapshot struct {
	batches  []models.CropBatch
	inputs   []models.InputLog
	harvests []models.HarvestLog
}

// load runs the three owner-scoped reads concurrently.
func (a *Aggregator) load(ctx context.Context, ownerID string, limit int64) (*snapshot, error) {
	var s snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.batches, err = a.reader.ListBatches(ctx, ownerID, limit)
		return err
	})
	g.Go(func() (err error) {
		s.inputs, err = a.reader.ListInputLogs(ctx, ownerID, limit)
		return err
	})
	g.Go(func() (err error) {
		s.harvests, err = a.reader.ListHarvestLogs(ctx, ownerID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *Aggregator) GetHistory(ctx context.Context, ownerID string) (*View, error) {
	s, err := a.load(ctx, ownerID, 0)
	if err != nil {
		a.logger.Error("history read failed", zap.String("owner", ownerID), zap.Error(err))
		return nil, apperr.Internal("Internal server error", err)
	}

	view := &View{
		Plantings: make([]PlantingRow, 0, len(s.batches)),
		Inputs:    make([]InputRow, 0, len(s.inputs)),
		Harvests:  make([]HarvestRow, 0, len(s.harvests)),
	}

	levels := make(map[string]float64, len(s.batches))
	for _, b := range s.batches {
		levels[b.BatchID] = b.CurrentOrganicLevel
		view.Plantings = append(view.Plantings, PlantingRow{
			ID:          b.ID.Hex(),
			Date:        b.Date.UTC().Format(dayLayout),
			CropVariety: b.CropVariety,
			SeedAmount:  number(b.SeedQuantity) + " seeds/seedlings",
			AreaCovered: number(b.AreaCovered) + " Acres",
			BatchID:     b.BatchID,
			ZoneID:      b.ZoneID,
			Status:      b.Status,
		})
	}

	for _, l := range s.inputs {
		view.Inputs = append(view.Inputs, InputRow{
			ID:          l.ID.Hex(),
			Date:        l.Date.UTC().Format(dayLayout),
			Category:    l.InputCategory,
			ProductName: l.ProductName,
			Quantity:    number(l.Quantity) + " " + string(l.Unit),
			Location:    l.ZoneID,
			BatchID:     l.BatchID,
		})
	}

	for _, h := range s.harvests {
		var organic interface{} = NoOrganicLevel
		if level, ok := levels[h.BatchID]; ok {
			organic = level
		}
		status := h.Status
		if status == "" {
			status = models.HarvestHarvested
		}
		view.Harvests = append(view.Harvests, HarvestRow{
			ID:                h.ID.Hex(),
			Date:              h.Date.UTC().Format(dayLayout),
			CropVariety:       h.CropVariety,
			YieldAmount:       number(h.YieldAmount) + " kg",
			MarketDestination: h.MarketDestination,
			BatchID:           h.BatchID,
			Status:            status,
			OrganicLevel:      organic,
		})
	}
	return view, nil
}

// GetRecentActivity takes the newest RecentLimit entries from each source,
// merges them and keeps the newest RecentLimit overall.
func (a *Aggregator) GetRecentActivity(ctx context.Context, ownerID string) ([]Activity, error) {
	s, err := a.load(ctx, ownerID, RecentLimit)
	if err != nil {
		a.logger.Error("recent activity read failed", zap.String("owner", ownerID), zap.Error(err))
		return nil, apperr.Internal("Internal server error", err)
	}

	out := make([]Activity, 0, len(s.batches)+len(s.inputs)+len(s.harvests))
	for _, b := range s.batches {
		out = append(out, activity(b.ID.Hex(), ActivityPlanting, "Planted "+b.CropVariety, b.Date))
	}
	for _, l := range s.inputs {
		out = append(out, activity(l.ID.Hex(), ActivityInput, ledger.InputAction(l.InputCategory, l.ProductName), l.Date))
	}
	for _, h := range s.harvests {
		out = append(out, activity(h.ID.Hex(), ActivityHarvest, "Harvested "+h.CropVariety, h.Date))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].at.After(out[j].at) })
	if len(out) > RecentLimit {
		out = out[:RecentLimit]
	}
	return out, nil
}

func activity(id string, typ ActivityType, action string, at time.Time) Activity {
	return Activity{ID: id, Type: typ, Action: action, Date: at.UTC().Format(isoLayout), at: at}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
