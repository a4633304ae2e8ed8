// Package memstore is an in-process store.Store. It enforces the same
// uniqueness rules as the MongoDB indexes and backs STORE=memory and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"farmledger/models"
	"farmledger/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.Mutex
	batches  []models.CropBatch
	inputs   []models.InputLog
	harvests []models.HarvestLog
	farmers  []models.FarmerProfile

	// Fail, when set, is consulted before every write; a non-nil return
	// aborts the write. Keyed by operation name, e.g. "InsertFarmer".
	Fail func(op string) error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op)
}

func (s *Store) InsertBatch(_ context.Context, b *models.CropBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertBatch"); err != nil {
		return err
	}
	for _, existing := range s.batches {
		if existing.BatchID == b.BatchID {
			return store.ErrDuplicateBatchID
		}
		if b.Status == models.BatchActive && existing.Status == models.BatchActive && existing.ZoneID == b.ZoneID {
			return store.ErrActiveBatchExists
		}
	}
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	s.batches = append(s.batches, *b)
	return nil
}

func (s *Store) FindActiveBatch(_ context.Context, zoneID string) (*models.CropBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.batches {
		if b.ZoneID == zoneID && b.Status == models.BatchActive {
			found := b
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateBatchStatus(_ context.Context, id primitive.ObjectID, status models.BatchStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateBatchStatus"); err != nil {
		return err
	}
	for i := range s.batches {
		if s.batches[i].ID != id {
			continue
		}
		if status == models.BatchActive {
			for _, other := range s.batches {
				if other.ID != id && other.ZoneID == s.batches[i].ZoneID && other.Status == models.BatchActive {
					return store.ErrActiveBatchExists
				}
			}
		}
		s.batches[i].Status = status
		s.batches[i].UpdatedAt = at
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) ListBatches(_ context.Context, authID string, limit int64) ([]models.CropBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.CropBatch{}
	for _, b := range s.batches {
		if b.AuthID == authID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Date, out[i].CreatedAt, out[j].Date, out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *Store) InsertInputLog(_ context.Context, l *models.InputLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertInputLog"); err != nil {
		return err
	}
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	s.inputs = append(s.inputs, *l)
	return nil
}

func (s *Store) ListInputLogs(_ context.Context, authID string, limit int64) ([]models.InputLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.InputLog{}
	for _, l := range s.inputs {
		if l.AuthID == authID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Date, out[i].CreatedAt, out[j].Date, out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *Store) InsertHarvestLog(_ context.Context, l *models.HarvestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertHarvestLog"); err != nil {
		return err
	}
	for _, existing := range s.harvests {
		if existing.BatchID == l.BatchID {
			return store.ErrDuplicateHarvest
		}
	}
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	s.harvests = append(s.harvests, *l)
	return nil
}

func (s *Store) FindHarvestLog(_ context.Context, authID string, id primitive.ObjectID) (*models.HarvestLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.harvests {
		if l.ID == id && l.AuthID == authID {
			found := l
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateHarvestStatus(_ context.Context, authID string, id primitive.ObjectID, status models.HarvestStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateHarvestStatus"); err != nil {
		return err
	}
	for i := range s.harvests {
		if s.harvests[i].ID == id && s.harvests[i].AuthID == authID {
			s.harvests[i].Status = status
			s.harvests[i].UpdatedAt = at
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListHarvestLogs(_ context.Context, authID string, limit int64) ([]models.HarvestLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.HarvestLog{}
	for _, l := range s.harvests {
		if l.AuthID == authID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Date, out[i].CreatedAt, out[j].Date, out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *Store) InsertFarmer(_ context.Context, f *models.FarmerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertFarmer"); err != nil {
		return err
	}
	for _, existing := range s.farmers {
		if existing.AuthID == f.AuthID || existing.Email == f.Email {
			return store.ErrDuplicateProfile
		}
	}
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	s.farmers = append(s.farmers, *f)
	return nil
}

func (s *Store) FindFarmerByAuthID(_ context.Context, authID string) (*models.FarmerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.farmers {
		if f.AuthID == authID {
			found := f
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

// Batches returns a copy of every stored batch, for assertions.
func (s *Store) Batches() []models.CropBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CropBatch(nil), s.batches...)
}

func newer(d1, c1, d2, c2 time.Time) bool {
	if !d1.Equal(d2) {
		return d1.After(d2)
	}
	return c1.After(c2)
}

func truncate[T any](items []T, limit int64) []T {
	if limit > 0 && int64(len(items)) > limit {
		return items[:limit]
	}
	return items
}
