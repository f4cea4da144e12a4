package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/ports"
)

// Store implements ports.ReportStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.RunReport
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.RunReport),
	}
}

// Save stores a copy of the report.
func (s *Store) Save(ctx context.Context, report *domain.RunReport) error {
	if report.ID == "" {
		return fmt.Errorf("report ID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[report.ID] = clone(report)
	return nil
}

// Load returns a copy so callers cannot mutate the stored report.
func (s *Store) Load(ctx context.Context, id string) (*domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.data[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	return clone(report), nil
}

// Delete removes the report.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored report IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func clone(r *domain.RunReport) *domain.RunReport {
	out := *r
	out.Methods = slices.Clone(r.Methods)
	return &out
}

var _ ports.ReportStore = (*Store)(nil)
