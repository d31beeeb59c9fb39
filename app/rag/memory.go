package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

var _ Index = &MemoryStore{}

// MemoryStore keeps records in process. Used for local runs and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]memoryEntry
	seq        int
}

type memoryEntry struct {
	record Record
	order  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{namespaces: make(map[string]map[string]memoryEntry)}
}

func (s *MemoryStore) EnsureCollection(context.Context, int) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Upsert(ctx context.Context, namespace string, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]memoryEntry)
		s.namespaces[namespace] = ns
	}
	for _, r := range records {
		r.Namespace = namespace
		r.Vector = append([]float32(nil), r.Vector...)
		order := s.seq
		if prev, exists := ns[r.ID]; exists {
			order = prev.order
		} else {
			s.seq++
		}
		ns[r.ID] = memoryEntry{record: r, order: order}
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.namespaces[namespace]
	type scored struct {
		Match
		order int
	}
	all := make([]scored, 0, len(ns))
	for _, e := range ns {
		all = append(all, scored{Match: Match{Record: e.record, Score: cosine(vector, e.record.Vector)}, order: e.order})
	}
	// ties keep insertion order
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].order < all[j].order
	})

	if k > len(all) {
		k = len(all)
	}
	if k < 0 {
		k = 0
	}
	out := make([]Match, k)
	for i := range out {
		out[i] = all[i].Match
	}
	return out, nil
}

// Len reports how many records a namespace holds.
func (s *MemoryStore) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
