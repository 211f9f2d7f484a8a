package outlets

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkin/internal/shared/apperr"
	"walkin/internal/shared/database/sqlitedb"
	"walkin/pkg/logger"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "outlets_test.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	repo := NewRepository(db)
	return NewService(repo, nil, DefaultServiceConfig(), logger.Discard()), repo
}

func TestCreateOutletDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	outlet, err := svc.CreateOutlet(ctx, CreateOutletRequest{Name: "  Harbour Grill ", DefaultReservationPercent: 50})
	require.NoError(t, err)

	assert.Equal(t, "Harbour Grill", outlet.Name)
	assert.Equal(t, "UTC", outlet.Timezone)
	assert.True(t, outlet.QueueEnabled)
	assert.Equal(t, 20, outlet.MaxPartySize)

	disabled := false
	outlet, err = svc.CreateOutlet(ctx, CreateOutletRequest{Name: "Closed Kitchen", QueueEnabled: &disabled})
	require.NoError(t, err)
	stored, err := svc.GetOutlet(ctx, outlet.ID)
	require.NoError(t, err)
	assert.False(t, stored.QueueEnabled)
}

func TestCreateOutletRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateOutlet(ctx, CreateOutletRequest{Name: ""})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.CreateOutlet(ctx, CreateOutletRequest{Name: "X", Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestGetActiveTablesSkipsInactive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	outlet, err := svc.CreateOutlet(ctx, CreateOutletRequest{Name: "Noodle Bar"})
	require.NoError(t, err)

	t1, err := svc.CreateTable(ctx, outlet.ID, CreateTableRequest{Number: "T1", Capacity: 2})
	require.NoError(t, err)
	_, err = svc.CreateTable(ctx, outlet.ID, CreateTableRequest{Number: "T2", Capacity: 4, Section: "patio"})
	require.NoError(t, err)

	_, err = svc.SetTableActive(ctx, outlet.ID, t1.ID, false)
	require.NoError(t, err)

	tables, err := svc.GetActiveTables(ctx, outlet.ID)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "T2", tables[0].Number)
	assert.Equal(t, "patio", tables[0].Section)
	assert.True(t, tables[0].Active)

	_, err = svc.SetTableActive(ctx, uuid.New(), t1.ID, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCurrentReservationPercentUsesOutletTimezone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	outlet, err := svc.CreateOutlet(ctx, CreateOutletRequest{Name: "Tapas", Timezone: "Asia/Singapore", DefaultReservationPercent: 30})
	require.NoError(t, err)
	_, err = svc.CreatePeakHourRule(ctx, outlet.ID, CreatePeakHourRuleRequest{
		DayOfWeek: int(time.Friday), StartTime: "19:00", EndTime: "21:00", ReservationPercent: 60,
	})
	require.NoError(t, err)

	// 11:30 UTC on Friday is 19:30 in Singapore
	peak := time.Date(2026, 3, 6, 11, 30, 0, 0, time.UTC)
	percent, err := svc.GetCurrentReservationAllocationPercent(ctx, outlet.ID, peak)
	require.NoError(t, err)
	assert.Equal(t, 60, percent)

	offPeak := time.Date(2026, 3, 6, 19, 30, 0, 0, time.UTC)
	percent, err = svc.GetCurrentReservationAllocationPercent(ctx, outlet.ID, offPeak)
	require.NoError(t, err)
	assert.Equal(t, 30, percent)
}

func TestCreatePeakHourRuleValidatesClock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	outlet, err := svc.CreateOutlet(ctx, CreateOutletRequest{Name: "Diner"})
	require.NoError(t, err)

	_, err = svc.CreatePeakHourRule(ctx, outlet.ID, CreatePeakHourRuleRequest{StartTime: "25:00", EndTime: "21:00"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestApplyFieldChange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	outlet, err := svc.CreateOutlet(ctx, CreateOutletRequest{Name: "Bistro", DefaultReservationPercent: 40})
	require.NoError(t, err)

	tests := []struct {
		field string
		raw   string
		check func(t *testing.T, o *Outlet)
	}{
		{"name", `"Bistro Nord"`, func(t *testing.T, o *Outlet) { assert.Equal(t, "Bistro Nord", o.Name) }},
		{"default_reservation_percent", `65`, func(t *testing.T, o *Outlet) { assert.Equal(t, 65, o.DefaultReservationPercent) }},
		{"queue_enabled", `false`, func(t *testing.T, o *Outlet) { assert.False(t, o.QueueEnabled) }},
		{"max_party_size", `12`, func(t *testing.T, o *Outlet) { assert.Equal(t, 12, o.MaxPartySize) }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			change, err := ParseFieldChange(tt.field, json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, FieldName(tt.field), change.Field())

			updated, err := svc.ApplyFieldChange(ctx, outlet.ID, change)
			require.NoError(t, err)
			tt.check(t, updated)
		})
	}

	_, err = svc.ApplyFieldChange(ctx, uuid.New(), QueueEnabledChange{Value: true})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestParseFieldChangeRejects(t *testing.T) {
	tests := []struct {
		field string
		raw   string
	}{
		{"timezone", `"UTC"`},
		{"name", `42`},
		{"name", `"   "`},
		{"default_reservation_percent", `101`},
		{"default_reservation_percent", `"half"`},
		{"queue_enabled", `"yes"`},
		{"max_party_size", `0`},
	}

	for _, tt := range tests {
		_, err := ParseFieldChange(tt.field, json.RawMessage(tt.raw))
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "%s=%s", tt.field, tt.raw)
	}
}
