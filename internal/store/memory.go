package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

// MemoryStore is an ordered in-process store. Unknown dates are appended in
// arrival order, like rows added to the bottom of a sheet.
type MemoryStore struct {
	mu     sync.Mutex
	order  []string
	values map[string]*float64
	now    func() time.Time
}

func NewMemory(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{values: make(map[string]*float64), now: now}
}

// NewDemo returns a store filled with a year of mock values starting on
// January 1st of now's year: integers 0..99 with roughly one day in five
// left empty.
func NewDemo(now time.Time, seed uint64) *MemoryStore {
	s := NewMemory(func() time.Time { return now })
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		var v *float64
		if rng.Float64() <= 0.8 {
			v = core.Float(float64(rng.IntN(100)))
		}
		key := d.Format(core.DateKeyLayout)
		s.order = append(s.order, key)
		s.values[key] = v
	}
	return s
}

func (s *MemoryStore) FetchAll(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	today := core.TodayKey(s.now())
	out := make([]core.Record, 0, len(s.order))
	for _, k := range s.order {
		var v *float64
		if p := s.values[k]; p != nil {
			v = core.Float(*p)
		}
		rec, err := core.RecordFromDateKey(k, v, today)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, dateKey string, value *float64) (core.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return core.UpsertResult{}, err
	}
	if err := validateKey(dateKey); err != nil {
		return core.UpsertResult{}, fmt.Errorf("store: upsert: %w", err)
	}
	if value != nil {
		value = core.Float(*value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[dateKey]; ok {
		s.values[dateKey] = value
		return success(core.UpsertActionUpdated), nil
	}
	s.order = append(s.order, dateKey)
	s.values[dateKey] = value
	return success(core.UpsertActionAppended), nil
}

// Len reports the number of stored days.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
