package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"max.ks1230/rates-bot/internal/entity/rate"
	"max.ks1230/rates-bot/internal/model/customerr"
)

// InMemStorage keeps rate records in memory, keyed by calendar date. Used by
// tests and local runs without postgres.
type InMemStorage struct {
	mu      sync.RWMutex
	records map[string]rate.Record
}

func NewInMemStorage() *InMemStorage {
	return &InMemStorage{records: make(map[string]rate.Record)}
}

func (s *InMemStorage) Upsert(_ context.Context, rec rate.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Key()] = rec
	return nil
}

func (s *InMemStorage) GetByDate(_ context.Context, date time.Time) (rate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[date.Format(rate.DateLayout)]
	if !ok {
		return rate.Record{}, customerr.ErrNotFound
	}
	return rec, nil
}

func (s *InMemStorage) GetLatest(_ context.Context) (rate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest rate.Record
	found := false
	for _, rec := range s.records {
		if !found || rec.Key() > latest.Key() {
			latest = rec
			found = true
		}
	}
	if !found {
		return rate.Record{}, customerr.ErrNotFound
	}
	return latest, nil
}

func (s *InMemStorage) GetRange(_ context.Context, from, to *time.Time) ([]rate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]rate.Record, 0)
	for key, rec := range s.records {
		if from != nil && key < from.Format(rate.DateLayout) {
			continue
		}
		if to != nil && key > to.Format(rate.DateLayout) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Key() < recs[j].Key()
	})
	return recs, nil
}

func (s *InMemStorage) ExistsForDate(_ context.Context, date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[date.Format(rate.DateLayout)]
	return ok, nil
}
