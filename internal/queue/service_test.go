package queue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"walkin/internal/allocation"
	"walkin/internal/outlets"
	"walkin/internal/shared/apperr"
	"walkin/internal/shared/database/sqlitedb"
	"walkin/internal/waittime"
	"walkin/pkg/logger"
)

// fakeCatalog serves a fixed floor plan
type fakeCatalog struct {
	mu       sync.Mutex
	outlets  []uuid.UUID
	tables   []allocation.Table
	percent  int
	settings outlets.QueueSettings
	err      error
}

func (f *fakeCatalog) GetActiveTables(context.Context, uuid.UUID) ([]allocation.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]allocation.Table, len(f.tables))
	copy(out, f.tables)
	return out, nil
}

func (f *fakeCatalog) GetCurrentReservationAllocationPercent(context.Context, uuid.UUID, time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.percent, f.err
}

func (f *fakeCatalog) GetQueueSettings(_ context.Context, outletID uuid.UUID) (*outlets.QueueSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	settings := f.settings
	settings.OutletID = outletID
	return &settings, nil
}

func (f *fakeCatalog) ListOutletIDs(context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outlets, nil
}

type sentMessage struct {
	kind    string
	entryID uuid.UUID
	code    string
	tables  []string
	reason  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (n *recordingNotifier) record(msg sentMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	if n.fail {
		return errors.New("sms gateway down")
	}
	return nil
}

func (n *recordingNotifier) SendQueueConfirmation(_ context.Context, e *QueueEntry) error {
	return n.record(sentMessage{kind: "QUEUE_CONFIRMATION", entryID: e.ID, code: e.Code})
}

func (n *recordingNotifier) SendQueueUpdate(_ context.Context, e *QueueEntry) error {
	return n.record(sentMessage{kind: "QUEUE_UPDATE", entryID: e.ID, code: e.Code})
}

func (n *recordingNotifier) SendTableReady(_ context.Context, e *QueueEntry, tables []string) error {
	return n.record(sentMessage{kind: "TABLE_READY", entryID: e.ID, code: e.Code, tables: tables})
}

func (n *recordingNotifier) SendQueueCancellation(_ context.Context, e *QueueEntry, reason string) error {
	return n.record(sentMessage{kind: "QUEUE_CANCELLATION", entryID: e.ID, code: e.Code, reason: reason})
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

func (n *recordingNotifier) count(kind string) int {
	c := 0
	for _, m := range n.messages() {
		if m.kind == kind {
			c++
		}
	}
	return c
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	reasons []string
}

func (b *recordingBroadcaster) BroadcastQueueChanged(_ context.Context, _ uuid.UUID, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reasons = append(b.reasons, reason)
	return nil
}

func (b *recordingBroadcaster) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.reasons...)
}

// testClock ticks one second per reading so queue times are strictly ordered
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	db          *gorm.DB
	repo        Repository
	catalog     *fakeCatalog
	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster
	clock       *testClock
	svc         Service
	outletID    uuid.UUID
	tables      map[string]allocation.Table
}

// flakyPositions fails the next renumbering writes while failures is positive
type flakyPositions struct {
	Repository
	failures *atomic.Int32
}

func (f flakyPositions) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	return f.Repository.WithinTx(ctx, func(tx Repository) error {
		return fn(flakyPositions{Repository: tx, failures: f.failures})
	})
}

func (f flakyPositions) UpdatePositions(ctx context.Context, updates []PositionUpdate) error {
	if f.failures.Add(-1) >= 0 {
		return errors.New("failed to update positions: connection reset by peer")
	}
	return f.Repository.UpdatePositions(ctx, updates)
}

// newHarness wires a service over a fresh database. wraps decorate the
// repository the service writes through; h.repo stays unwrapped.
func newHarness(t *testing.T, wraps ...func(Repository) Repository) *harness {
	t.Helper()

	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	outletID := uuid.New()
	tables := []allocation.Table{
		{ID: uuid.New(), Number: "T1", Capacity: 2, Active: true},
		{ID: uuid.New(), Number: "T2", Capacity: 4, Active: true},
		{ID: uuid.New(), Number: "T3", Capacity: 4, Active: true},
		{ID: uuid.New(), Number: "T4", Capacity: 6, Active: true},
	}
	byNumber := make(map[string]allocation.Table, len(tables))
	for _, tb := range tables {
		byNumber[tb.Number] = tb
	}

	catalog := &fakeCatalog{
		outlets: []uuid.UUID{outletID},
		tables:  tables,
		settings: outlets.QueueSettings{
			QueueEnabled: true,
			MaxPartySize: 20,
			Location:     time.UTC,
		},
	}
	clock := &testClock{now: time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC)}
	repo := NewRepository(db)
	estimator := waittime.NewEstimator(repo, waittime.DefaultParams(), logger.Discard(), waittime.WithClock(clock.Now))
	notifier := &recordingNotifier{}
	broadcaster := &recordingBroadcaster{}

	var svcRepo Repository = repo
	for _, wrap := range wraps {
		svcRepo = wrap(svcRepo)
	}

	svc := NewService(svcRepo, catalog, estimator, logger.Discard(),
		WithNotifier(notifier),
		WithBroadcaster(broadcaster),
		WithClock(clock.Now),
		WithConfig(&ServiceConfig{LockTimeout: 5 * time.Second}),
	)
	t.Cleanup(svc.Wait)

	return &harness{
		db:          db,
		repo:        repo,
		catalog:     catalog,
		notifier:    notifier,
		broadcaster: broadcaster,
		clock:       clock,
		svc:         svc,
		outletID:    outletID,
		tables:      byNumber,
	}
}

func (h *harness) admit(t *testing.T, name string, partySize int) *QueueEntry {
	t.Helper()
	entry, err := h.svc.Admit(context.Background(), h.outletID, AdmitRequest{CustomerName: name, Phone: "+6590000000", PartySize: partySize}, ActorCustomer)
	require.NoError(t, err)
	return entry
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *QueueEntry {
	t.Helper()
	entry, err := h.repo.GetEntryByID(context.Background(), id)
	require.NoError(t, err)
	return entry
}

// assertDensePositions checks non-held waiting entries hold exactly 1..N and held ones hold 0
func (h *harness) assertDensePositions(t *testing.T) {
	t.Helper()
	waiting, err := h.repo.ListWaiting(context.Background(), h.outletID)
	require.NoError(t, err)

	var positions []int
	for _, e := range waiting {
		if e.IsHeld {
			assert.Zero(t, e.Position, "held entry %s", e.Code)
			continue
		}
		positions = append(positions, e.Position)
	}
	sort.Ints(positions)
	for i, p := range positions {
		assert.Equal(t, i+1, p, "positions %v", positions)
	}
}

func TestAdmit(t *testing.T) {
	h := newHarness(t)

	first := h.admit(t, "Ana", 2)
	second := h.admit(t, "Ben", 4)
	third := h.admit(t, "Chen", 6)

	assert.Equal(t, "Q001", first.Code)
	assert.Equal(t, "Q002", second.Code)
	assert.Equal(t, "Q003", third.Code)
	assert.Equal(t, []int{1, 2, 3}, []int{first.Position, second.Position, third.Position})
	assert.Equal(t, StatusWaiting, third.Status)
	assert.Equal(t, "2026-03-06", third.QueueDate)
	assert.Positive(t, third.EstimatedWaitMinutes)

	h.svc.Wait()
	assert.Equal(t, 3, h.notifier.count("QUEUE_CONFIRMATION"))
	assert.Equal(t, []string{ReasonAdmitted, ReasonAdmitted, ReasonAdmitted}, h.broadcaster.all())

	var audit []StatusChange
	require.NoError(t, h.db.Where("entry_id = ?", first.ID).Find(&audit).Error)
	require.Len(t, audit, 1)
	assert.Equal(t, StatusWaiting, audit[0].ToStatus)
	assert.Equal(t, ActorCustomer, audit[0].Actor)
}

func TestAdmitRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  AdmitRequest
		want error
	}{
		{"blank name", AdmitRequest{CustomerName: "  ", PartySize: 2}, apperr.ErrInvalidInput},
		{"empty party", AdmitRequest{CustomerName: "Ana", PartySize: 0}, apperr.ErrInvalidInput},
		{"party above outlet maximum", AdmitRequest{CustomerName: "Ana", PartySize: 21}, apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Admit(ctx, h.outletID, tt.req, ActorCustomer)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	h.catalog.settings.QueueEnabled = false
	_, err := h.svc.Admit(ctx, h.outletID, AdmitRequest{CustomerName: "Ana", PartySize: 2}, ActorCustomer)
	assert.ErrorIs(t, err, apperr.ErrQueueDisabled)

	count, err := h.repo.CountByDate(ctx, h.outletID, "2026-03-06")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConcurrentAdmitsGetDistinctPositions(t *testing.T) {
	h := newHarness(t)

	const parties = 12
	var wg sync.WaitGroup
	for i := 0; i < parties; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.Admit(context.Background(), h.outletID, AdmitRequest{
				CustomerName: fmt.Sprintf("guest-%d", i),
				PartySize:    1 + i%6,
			}, ActorCustomer)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	waiting, err := h.repo.ListWaiting(context.Background(), h.outletID)
	require.NoError(t, err)
	require.Len(t, waiting, parties)

	codes := make(map[string]bool)
	for _, e := range waiting {
		codes[e.Code] = true
	}
	assert.Len(t, codes, parties)
	h.assertDensePositions(t)
}

func TestConcurrentMixedOperationsKeepPositionsDense(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seeded := make([]*QueueEntry, 8)
	for i := range seeded {
		seeded[i] = h.admit(t, fmt.Sprintf("seed-%d", i), 1+i%6)
	}

	allowed := func(err error) bool {
		return err == nil || errors.Is(err, apperr.ErrInvalidTransition) || errors.Is(err, apperr.ErrNoCandidates)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		called []uuid.UUID
	)
	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn()
			assert.True(t, allowed(err), "unexpected error: %v", err)
		}()
	}

	for i := 0; i < 3; i++ {
		run(func() error {
			entry, err := h.svc.CallNext(ctx, h.outletID, "staff-1")
			if err == nil {
				mu.Lock()
				called = append(called, entry.ID)
				mu.Unlock()
			}
			return err
		})
	}
	for _, e := range seeded[:4] {
		id := e.ID
		run(func() error {
			_, err := h.svc.Cancel(ctx, id, ActorCustomer, "")
			return err
		})
	}
	run(func() error {
		if _, err := h.svc.Hold(ctx, seeded[5].ID, "staff-1"); err != nil {
			return err
		}
		_, err := h.svc.Unhold(ctx, seeded[5].ID, "staff-1")
		return err
	})
	run(func() error {
		_, err := h.svc.Hold(ctx, seeded[6].ID, "staff-2")
		return err
	})
	for i := 0; i < 4; i++ {
		i := i
		run(func() error {
			_, err := h.svc.Admit(ctx, h.outletID, AdmitRequest{
				CustomerName: fmt.Sprintf("late-%d", i),
				PartySize:    2,
			}, ActorCustomer)
			return err
		})
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool)
	for _, id := range called {
		assert.False(t, seen[id], "entry %s called twice", id)
		seen[id] = true
	}
	h.assertDensePositions(t)

	count, err := h.repo.CountByDate(ctx, h.outletID, "2026-03-06")
	require.NoError(t, err)
	assert.EqualValues(t, 12, count)
}

func TestFailedRenumberRollsBackTransition(t *testing.T) {
	var failures atomic.Int32
	h := newHarness(t, func(r Repository) Repository {
		return flakyPositions{Repository: r, failures: &failures}
	})
	ctx := context.Background()

	first := h.admit(t, "Ana", 2)
	second := h.admit(t, "Ben", 2)
	third := h.admit(t, "Chen", 2)
	h.svc.Wait()
	h.notifier.reset()
	broadcasts := len(h.broadcaster.all())

	failures.Store(1)
	_, err := h.svc.Cancel(ctx, second.ID, ActorCustomer, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")

	kept := h.reload(t, second.ID)
	assert.Equal(t, StatusWaiting, kept.Status)
	assert.Equal(t, 2, kept.Position)
	assert.Equal(t, 3, h.reload(t, third.ID).Position)

	var audit int64
	require.NoError(t, h.db.Model(&StatusChange{}).
		Where("entry_id = ? AND to_status = ?", second.ID, StatusCancelled).
		Count(&audit).Error)
	assert.Zero(t, audit)
	h.assertDensePositions(t)

	h.svc.Wait()
	assert.Empty(t, h.notifier.messages())
	assert.Len(t, h.broadcaster.all(), broadcasts)

	fourth := h.admit(t, "Dee", 2)
	assert.Equal(t, 4, fourth.Position)
	h.assertDensePositions(t)

	_, err = h.svc.Cancel(ctx, second.ID, ActorCustomer, "")
	require.NoError(t, err)
	assert.Equal(t, 1, h.reload(t, first.ID).Position)
	assert.Equal(t, 2, h.reload(t, third.ID).Position)
	assert.Equal(t, 3, h.reload(t, fourth.ID).Position)
	h.assertDensePositions(t)
}

func TestInvalidTransitionLeavesEntryUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry := h.admit(t, "Ana", 2)
	_, err := h.svc.UpdateStatus(ctx, entry.ID, StatusCalled, "staff-1", "")
	require.NoError(t, err)
	seated, err := h.svc.UpdateStatus(ctx, entry.ID, StatusSeated, "staff-1", "")
	require.NoError(t, err)
	require.NotNil(t, seated.SeatedAt)

	for _, target := range []Status{StatusWaiting, StatusCalled, StatusCancelled, StatusNoShow} {
		_, err := h.svc.UpdateStatus(ctx, entry.ID, target, "staff-1", "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "SEATED -> %s", target)
	}

	after := h.reload(t, entry.ID)
	assert.Equal(t, StatusSeated, after.Status)
	assert.Equal(t, seated.SeatedAt.UTC(), after.SeatedAt.UTC())
	assert.Nil(t, after.CompletedAt)

	_, err = h.svc.UpdateStatus(ctx, entry.ID, Status("LOST"), "staff-1", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = h.svc.UpdateStatus(ctx, entry.ID, StatusDayEnd, "staff-1", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = h.svc.UpdateStatus(ctx, uuid.New(), StatusCalled, "staff-1", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelMovesPartiesBehindForward(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.admit(t, "Ana", 2)
	second := h.admit(t, "Ben", 2)
	third := h.admit(t, "Chen", 2)
	require.Equal(t, 3, third.Position)
	before := third.EstimatedWaitMinutes

	h.svc.Wait()
	h.notifier.reset()

	cancelled, err := h.svc.Cancel(ctx, second.ID, ActorCustomer, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Zero(t, cancelled.Position)

	moved := h.reload(t, third.ID)
	assert.Equal(t, 2, moved.Position)
	assert.LessOrEqual(t, moved.EstimatedWaitMinutes, before)
	assert.Equal(t, 1, h.reload(t, first.ID).Position)
	h.assertDensePositions(t)

	h.svc.Wait()
	msgs := h.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, sentMessage{kind: "QUEUE_CANCELLATION", entryID: second.ID, code: "Q002", reason: ReasonCancelled}, msgs[0])
	assert.Equal(t, "QUEUE_UPDATE", msgs[1].kind)
	assert.Equal(t, third.ID, msgs[1].entryID)

	_, err = h.svc.Cancel(ctx, second.ID, ActorCustomer, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestNotificationFailureDoesNotAbortTransition(t *testing.T) {
	h := newHarness(t)
	h.notifier.fail = true

	entry := h.admit(t, "Ana", 2)
	cancelled, err := h.svc.Cancel(context.Background(), entry.ID, ActorCustomer, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	h.svc.Wait()
	assert.Equal(t, 2, len(h.notifier.messages()))
}

func TestHoldAndUnhold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.admit(t, "Ana", 2)
	b := h.admit(t, "Ben", 4)
	c := h.admit(t, "Chen", 2)

	held, err := h.svc.Hold(ctx, a.ID, "staff-1")
	require.NoError(t, err)
	assert.True(t, held.IsHeld)
	assert.NotNil(t, held.HeldSince)
	assert.Zero(t, held.Position)
	assert.Equal(t, StatusWaiting, held.Status)
	assert.Equal(t, 1, h.reload(t, b.ID).Position)
	assert.Equal(t, 2, h.reload(t, c.ID).Position)
	h.assertDensePositions(t)

	_, err = h.svc.Hold(ctx, a.ID, "staff-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	h.svc.Wait()
	h.notifier.reset()

	released, err := h.svc.Unhold(ctx, a.ID, "staff-1")
	require.NoError(t, err)
	assert.False(t, released.IsHeld)
	assert.Nil(t, released.HeldSince)
	assert.Equal(t, 1, released.Position)
	assert.Equal(t, 2, h.reload(t, b.ID).Position)
	assert.Equal(t, 3, h.reload(t, c.ID).Position)
	h.assertDensePositions(t)

	h.svc.Wait()
	msgs := h.notifier.messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "QUEUE_UPDATE", msgs[0].kind)
	assert.Equal(t, a.ID, msgs[0].entryID)
	assert.Equal(t, 3, h.notifier.count("QUEUE_UPDATE"))

	_, err = h.svc.Unhold(ctx, a.ID, "staff-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestCallNextSkipsHeldParties(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CallNext(ctx, h.outletID, "staff-1")
	assert.ErrorIs(t, err, apperr.ErrNoCandidates)

	a := h.admit(t, "Ana", 2)
	b := h.admit(t, "Ben", 4)
	_, err = h.svc.Hold(ctx, a.ID, "staff-1")
	require.NoError(t, err)

	called, err := h.svc.CallNext(ctx, h.outletID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, called.ID)
	assert.Equal(t, StatusCalled, called.Status)
	assert.NotNil(t, called.CalledAt)
	assert.Zero(t, called.Position)

	_, err = h.svc.CallNext(ctx, h.outletID, "staff-1")
	assert.ErrorIs(t, err, apperr.ErrNoCandidates)

	h.svc.Wait()
	assert.Equal(t, 1, h.notifier.count("TABLE_READY"))
}

func TestAssignTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	four := h.admit(t, "Ana", 4)
	two := h.admit(t, "Ben", 2)

	_, err := h.svc.AssignTable(ctx, four.ID, AssignTableRequest{TableIDs: []uuid.UUID{uuid.New()}}, "staff-1")
	assert.ErrorIs(t, err, apperr.ErrNotAQueueTable)

	_, err = h.svc.AssignTable(ctx, four.ID, AssignTableRequest{TableIDs: []uuid.UUID{h.tables["T1"].ID}}, "staff-1")
	assert.ErrorIs(t, err, apperr.ErrCapacityConflict)
	assert.Equal(t, StatusWaiting, h.reload(t, four.ID).Status)

	assigned, err := h.svc.AssignTable(ctx, four.ID, AssignTableRequest{TableIDs: []uuid.UUID{h.tables["T2"].ID}}, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCalled, assigned.Status)
	assert.Zero(t, assigned.Position)
	require.Len(t, assigned.ActiveAssignments(), 1)
	assert.Equal(t, "T2", assigned.ActiveAssignments()[0].TableNumber)
	assert.Equal(t, 1, h.reload(t, two.ID).Position)

	_, err = h.svc.AssignTable(ctx, two.ID, AssignTableRequest{TableIDs: []uuid.UUID{h.tables["T2"].ID}}, "staff-1")
	assert.ErrorIs(t, err, apperr.ErrAlreadyAssigned)

	h.svc.Wait()
	var ready []sentMessage
	for _, m := range h.notifier.messages() {
		if m.kind == "TABLE_READY" {
			ready = append(ready, m)
		}
	}
	require.Len(t, ready, 1)
	assert.Equal(t, []string{"T2"}, ready[0].tables)
}

func TestAssignUndersizedTableWithConfirmation(t *testing.T) {
	h := newHarness(t)

	entry := h.admit(t, "Ana", 4)
	assigned, err := h.svc.AssignTable(context.Background(), entry.ID, AssignTableRequest{
		TableIDs:          []uuid.UUID{h.tables["T1"].ID},
		ConfirmUndersized: true,
	}, "staff-9")
	require.NoError(t, err)
	assert.Equal(t, StatusCalled, assigned.Status)
	assert.Contains(t, assigned.Notes, ReasonOverridden)
	assert.Contains(t, assigned.Notes, "staff-9")
}

func TestAssignJoinedTablesAndReplaceSet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry := h.admit(t, "Big party", 8)
	joined, err := h.svc.AssignTable(ctx, entry.ID, AssignTableRequest{
		TableIDs: []uuid.UUID{h.tables["T2"].ID, h.tables["T3"].ID, h.tables["T3"].ID},
	}, "staff-1")
	require.NoError(t, err)
	assert.Len(t, joined.ActiveAssignments(), 2)

	// a called party can be moved to a different set
	moved, err := h.svc.AssignTable(ctx, entry.ID, AssignTableRequest{
		TableIDs:          []uuid.UUID{h.tables["T4"].ID},
		ConfirmUndersized: true,
	}, "staff-1")
	require.NoError(t, err)
	require.Len(t, moved.ActiveAssignments(), 1)
	assert.Equal(t, "T4", moved.ActiveAssignments()[0].TableNumber)

	free, err := h.repo.FindActiveAssignments(ctx, []uuid.UUID{h.tables["T2"].ID, h.tables["T3"].ID})
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestSeatAndCompletePropagateToTables(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry := h.admit(t, "Ana", 4)
	_, err := h.svc.AssignTable(ctx, entry.ID, AssignTableRequest{TableIDs: []uuid.UUID{h.tables["T2"].ID}}, "staff-1")
	require.NoError(t, err)

	seated, err := h.svc.UpdateStatus(ctx, entry.ID, StatusSeated, "staff-1", "")
	require.NoError(t, err)
	require.Len(t, seated.Assignments, 1)
	assert.Equal(t, AssignmentSeated, seated.Assignments[0].Status)
	assert.NotNil(t, seated.Assignments[0].SeatedAt)

	done, err := h.svc.UpdateStatus(ctx, entry.ID, StatusCompleted, "staff-1", "")
	require.NoError(t, err)
	assert.Equal(t, AssignmentCompleted, done.Assignments[0].Status)
	assert.Empty(t, done.ActiveAssignments())

	history, err := h.repo.SeatingHistory(ctx, h.outletID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 4, history[0].PartySize)
}

func TestRandomOperationsKeepPositionsDense(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 60; step++ {
		waiting, err := h.repo.ListWaiting(ctx, h.outletID)
		require.NoError(t, err)

		op := rng.Intn(6)
		if len(waiting) == 0 {
			op = 0
		}
		switch op {
		case 0, 1:
			h.admit(t, fmt.Sprintf("guest-%d", step), 1+rng.Intn(6))
		case 2:
			_, _ = h.svc.Cancel(ctx, waiting[rng.Intn(len(waiting))].ID, ActorCustomer, "")
		case 3:
			_, _ = h.svc.Hold(ctx, waiting[rng.Intn(len(waiting))].ID, "staff-1")
		case 4:
			_, _ = h.svc.Unhold(ctx, waiting[rng.Intn(len(waiting))].ID, "staff-1")
		case 5:
			_, _ = h.svc.CallNext(ctx, h.outletID, "staff-1")
		}
		h.assertDensePositions(t)
	}
}

func TestGetRecommendation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.GetRecommendation(ctx, h.outletID, h.tables["T2"].ID)
	assert.ErrorIs(t, err, apperr.ErrNoCandidates)

	h.admit(t, "Ana", 2)
	four := h.admit(t, "Ben", 4)
	h.admit(t, "Chen", 6)

	rec, err := h.svc.GetRecommendation(ctx, h.outletID, h.tables["T2"].ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Entry)
	assert.Equal(t, four.ID, rec.Entry.ID)
	assert.Equal(t, 4, rec.Capacity)
	assert.Equal(t, "PERFECT_MATCH", rec.Reason)
	assert.False(t, rec.TooSmall)

	_, err = h.svc.GetRecommendation(ctx, h.outletID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotAQueueTable)

	_, err = h.svc.AssignTable(ctx, four.ID, AssignTableRequest{TableIDs: []uuid.UUID{h.tables["T2"].ID}}, "staff-1")
	require.NoError(t, err)
	_, err = h.svc.GetRecommendation(ctx, h.outletID, h.tables["T2"].ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyAssigned)
}

func TestCatalogOutageIsNotReportedAsReservationTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry := h.admit(t, "Ana", 4)

	h.catalog.mu.Lock()
	h.catalog.err = errors.New("catalog database unreachable")
	h.catalog.mu.Unlock()

	_, err := h.svc.AssignTable(ctx, entry.ID, AssignTableRequest{TableIDs: []uuid.UUID{h.tables["T2"].ID}}, "staff-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNotAQueueTable)
	assert.Contains(t, err.Error(), "catalog database unreachable")
	assert.Equal(t, StatusWaiting, h.reload(t, entry.ID).Status)

	_, err = h.svc.GetRecommendation(ctx, h.outletID, h.tables["T2"].ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNotAQueueTable)
	assert.Contains(t, err.Error(), "catalog database unreachable")
}

func TestGetAllocationFollowsReservationPercent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	snapshot, err := h.svc.GetAllocation(ctx, h.outletID)
	require.NoError(t, err)
	assert.Len(t, snapshot.QueuePool, 4)
	assert.Equal(t, 16, snapshot.QueueCapacity)
	assert.Equal(t, h.outletID, snapshot.OutletID)

	h.catalog.percent = 50
	snapshot, err = h.svc.GetAllocation(ctx, h.outletID)
	require.NoError(t, err)
	assert.Equal(t, 16, snapshot.ReservationCapacity+snapshot.QueueCapacity)
	assert.NotEmpty(t, snapshot.ReservationPool)

	// tables moved to the reservation pool can no longer take walk-ins
	entry := h.admit(t, "Ana", 2)
	_, err = h.svc.AssignTable(ctx, entry.ID, AssignTableRequest{TableIDs: []uuid.UUID{snapshot.ReservationPool[0].ID}, ConfirmUndersized: true}, "staff-1")
	assert.ErrorIs(t, err, apperr.ErrNotAQueueTable)

	h.catalog.err = errors.New("catalog offline")
	_, err = h.svc.GetAllocation(ctx, h.outletID)
	assert.Error(t, err)
}

func TestLookupsAndSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.admit(t, "Ana", 2)
	b := h.admit(t, "Ben", 4)
	c := h.admit(t, "Chen", 4)
	d := h.admit(t, "Dee", 6)

	found, err := h.svc.GetEntryByCode(ctx, h.outletID, " q002 ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)
	_, err = h.svc.GetEntryByCode(ctx, h.outletID, "Q999")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.svc.Hold(ctx, c.ID, "staff-1")
	require.NoError(t, err)
	_, err = h.svc.AssignTable(ctx, a.ID, AssignTableRequest{TableIDs: []uuid.UUID{h.tables["T1"].ID}}, "staff-1")
	require.NoError(t, err)
	_, err = h.svc.Cancel(ctx, d.ID, ActorCustomer, "")
	require.NoError(t, err)

	entries, err := h.svc.ListEntries(ctx, h.outletID, ListFilter{Statuses: []Status{StatusWaiting}})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].ID, "positioned entries come before held ones")
	assert.Equal(t, c.ID, entries[1].ID)

	held, err := h.svc.ListEntries(ctx, h.outletID, ListFilter{HeldOnly: true})
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, c.ID, held[0].ID)

	_, err = h.svc.ListEntries(ctx, h.outletID, ListFilter{Date: "06/03/2026"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = h.svc.ListEntries(ctx, h.outletID, ListFilter{Statuses: []Status{"GONE"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	summary, err := h.svc.GetSummary(ctx, h.outletID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-06", summary.Date)
	assert.Equal(t, 1, summary.Waiting)
	assert.Equal(t, 1, summary.Held)
	assert.Equal(t, 1, summary.Called)
	assert.Equal(t, 1, summary.Cancelled)
	assert.Equal(t, map[int]int{4: 1}, summary.WaitingByPartySize)
	assert.Equal(t, 4, summary.QueuePoolTableCount)
	assert.Equal(t, 1, summary.OccupiedQueueTables)
	assert.Equal(t, 3, summary.AvailableQueueTables)
	assert.True(t, summary.QueueEnabled)
}

func TestEndOfDayCleanup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.admit(t, "Ana", 2)
	b := h.admit(t, "Ben", 4)
	c := h.admit(t, "Chen", 4)
	done := h.admit(t, "Dee", 2)

	_, err := h.svc.Hold(ctx, b.ID, "staff-1")
	require.NoError(t, err)
	_, err = h.svc.AssignTable(ctx, c.ID, AssignTableRequest{TableIDs: []uuid.UUID{h.tables["T3"].ID}}, "staff-1")
	require.NoError(t, err)
	_, err = h.svc.Cancel(ctx, done.ID, ActorCustomer, "")
	require.NoError(t, err)

	closed, err := h.svc.EndOfDayCleanup(ctx, h.outletID)
	require.NoError(t, err)
	assert.Equal(t, 3, closed)

	for _, id := range []uuid.UUID{a.ID, b.ID, c.ID} {
		e := h.reload(t, id)
		assert.Equal(t, StatusDayEnd, e.Status)
		assert.Zero(t, e.Position)
		assert.False(t, e.IsHeld)
		assert.Empty(t, e.ActiveAssignments())
	}
	assert.Equal(t, StatusCancelled, h.reload(t, done.ID).Status)

	var audit int64
	require.NoError(t, h.db.Model(&StatusChange{}).
		Where("reason = ? AND to_status = ? AND actor = ?", ReasonEndOfDay, StatusDayEnd, ActorSystem).
		Count(&audit).Error)
	assert.EqualValues(t, 3, audit)

	free, err := h.repo.FindActiveAssignments(ctx, []uuid.UUID{h.tables["T3"].ID})
	require.NoError(t, err)
	assert.Empty(t, free)

	again, err := h.svc.EndOfDayCleanup(ctx, h.outletID)
	require.NoError(t, err)
	assert.Zero(t, again)

	_, err = h.svc.UpdateStatus(ctx, a.ID, StatusCalled, "staff-1", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	h.svc.Wait()
	assert.Contains(t, h.broadcaster.all(), ReasonEndOfDay)
}
