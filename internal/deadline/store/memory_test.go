package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeharbour/internal/deadline/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
)

var created = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *InMemory, p models.Policy) (*models.Record, *models.Alert, *models.Alert) {
	t.Helper()
	ctx := context.Background()
	rec := models.NewRecord(id.NewCaseID(), id.NewOrgID(), created, p)
	require.NoError(t, s.CreateRecord(ctx, rec))
	red := &models.Alert{ID: id.NewAlertID(), SubjectID: rec.SubjectID, OrgID: rec.OrgID, Kind: models.AlertRed, FireAt: created.Add(p.RedOffset), Status: models.AlertScheduled}
	amber := &models.Alert{ID: id.NewAlertID(), SubjectID: rec.SubjectID, OrgID: rec.OrgID, Kind: models.AlertAmber, FireAt: created.Add(p.AmberOffset), Status: models.AlertScheduled}
	require.NoError(t, s.CreateAlerts(ctx, []*models.Alert{red, amber}))
	return rec, amber, red
}

func TestInMemoryExtendStopsAtMax(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	rec, _, _ := seed(t, s, models.PolicyFromDays(80, 90, 10, 15, 20))

	prev, updated, err := s.Extend(ctx, rec.SubjectID, 10)
	require.NoError(t, err)
	assert.Equal(t, created.Add(80*24*time.Hour), prev)
	assert.Equal(t, rec.MaxDeadline, updated.CurrentDeadline)
	assert.Equal(t, 1, updated.ExtensionCount)

	_, unchanged, err := s.Extend(ctx, rec.SubjectID, 1)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	require.NotNil(t, unchanged)
	assert.Equal(t, rec.MaxDeadline, unchanged.MaxDeadline)

	_, _, err = s.Extend(ctx, rec.SubjectID, 213503)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	_, _, err = s.Extend(ctx, id.NewCaseID(), 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.ErrorIs(t, s.CreateRecord(ctx, rec), sentinel.ErrConflict)
}

func TestInMemoryAlertTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	rec, amber, red := seed(t, s, models.DefaultPolicy())

	alerts, err := s.ListAlerts(ctx, models.AlertFilter{SubjectID: &rec.SubjectID})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertAmber, alerts[0].Kind, "ordered by fire time")

	_, _, err = s.Acknowledge(ctx, amber.ID, "1", created)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	recipient := "7000000001"
	won, err := s.MarkDelivered(ctx, amber.ID, &recipient, created)
	require.NoError(t, err)
	assert.True(t, won)
	won, err = s.MarkDelivered(ctx, amber.ID, &recipient, created)
	require.NoError(t, err)
	assert.False(t, won)

	cancelled, err := s.CancelScheduled(ctx, rec.SubjectID)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, red.ID, cancelled[0].ID)

	won, err = s.MarkSuppressed(ctx, red.ID)
	require.NoError(t, err)
	assert.False(t, won, "cancelled alerts stay cancelled")

	first, set, err := s.Acknowledge(ctx, amber.ID, "1", created)
	require.NoError(t, err)
	assert.True(t, set)
	second, set, err := s.Acknowledge(ctx, amber.ID, "2", created.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, set)
	assert.Equal(t, *first.AcknowledgedAt, *second.AcknowledgedAt)
	assert.Equal(t, "1", *second.AcknowledgedBy)

	delivered, err := s.ListAlerts(ctx, models.AlertFilter{OrgID: &rec.OrgID, Status: models.AlertDelivered})
	require.NoError(t, err)
	assert.Len(t, delivered, 1)
}
