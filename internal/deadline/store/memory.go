// Package store persists deadline records and their scheduled alerts.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"safeharbour/internal/deadline/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	records map[id.CaseID]*models.Record
	alerts  map[id.AlertID]*models.Alert
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.CaseID]*models.Record),
		alerts:  make(map[id.AlertID]*models.Alert),
	}
}

func (s *InMemory) CreateRecord(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.SubjectID]; ok {
		return sentinel.ErrConflict
	}
	copied := *rec
	s.records[rec.SubjectID] = &copied
	return nil
}

func (s *InMemory) FindRecord(_ context.Context, subject id.CaseID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[subject]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *InMemory) Extend(_ context.Context, subject id.CaseID, days int) (time.Time, *models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[subject]
	if !ok {
		return time.Time{}, nil, sentinel.ErrNotFound
	}
	next, ok := rec.ExtendedBy(days)
	if !ok {
		unchanged := *rec
		return time.Time{}, &unchanged, sentinel.ErrInvalidState
	}
	previous := rec.CurrentDeadline
	rec.CurrentDeadline = next
	rec.ExtensionCount++
	copied := *rec
	return previous, &copied, nil
}

func (s *InMemory) CreateAlerts(_ context.Context, alerts []*models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range alerts {
		if s.findByKeyLocked(a.SubjectID, a.Kind) != nil {
			return sentinel.ErrConflict
		}
	}
	for _, a := range alerts {
		copied := *a
		s.alerts[a.ID] = &copied
	}
	return nil
}

func (s *InMemory) FindAlert(_ context.Context, alertID id.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *InMemory) FindAlertByKey(_ context.Context, subject id.CaseID, kind models.AlertKind) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.findByKeyLocked(subject, kind)
	if a == nil {
		return nil, sentinel.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *InMemory) findByKeyLocked(subject id.CaseID, kind models.AlertKind) *models.Alert {
	for _, a := range s.alerts {
		if a.SubjectID == subject && a.Kind == kind {
			return a
		}
	}
	return nil
}

func (s *InMemory) ListAlerts(_ context.Context, f models.AlertFilter) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for _, a := range s.alerts {
		if f.SubjectID != nil && a.SubjectID != *f.SubjectID {
			continue
		}
		if f.OrgID != nil && a.OrgID != *f.OrgID {
			continue
		}
		if f.Kind != "" && a.Kind != f.Kind {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	slices.SortFunc(out, func(a, b *models.Alert) int {
		return a.FireAt.Compare(b.FireAt)
	})
	return out, nil
}

func (s *InMemory) CancelScheduled(_ context.Context, subject id.CaseID) ([]*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Alert
	for _, a := range s.alerts {
		if a.SubjectID == subject && a.Status == models.AlertScheduled {
			a.Status = models.AlertCancelled
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemory) MarkDelivered(_ context.Context, alertID id.AlertID, recipient *string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if a.Status != models.AlertScheduled {
		return false, nil
	}
	a.Status = models.AlertDelivered
	a.Recipient = recipient
	a.DeliveredAt = &at
	return true, nil
}

func (s *InMemory) MarkSuppressed(_ context.Context, alertID id.AlertID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if a.Status != models.AlertScheduled {
		return false, nil
	}
	a.Status = models.AlertSuppressed
	return true, nil
}

func (s *InMemory) Acknowledge(_ context.Context, alertID id.AlertID, actor string, at time.Time) (*models.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return nil, false, sentinel.ErrNotFound
	}
	if a.Status != models.AlertDelivered {
		return nil, false, sentinel.ErrInvalidState
	}
	first := a.AcknowledgedAt == nil
	if first {
		a.AcknowledgedAt = &at
		a.AcknowledgedBy = &actor
	}
	copied := *a
	return &copied, first, nil
}
