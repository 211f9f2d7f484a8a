package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"walkin/internal/allocation"
	"walkin/internal/outlets"
	"walkin/internal/recommend"
	"walkin/internal/shared/apperr"
	"walkin/internal/waittime"
	"walkin/pkg/logger"
	"walkin/pkg/metrics"
)

// OutletCatalog is the read-only outlet view the engine needs (to avoid import cycles)
type OutletCatalog interface {
	GetActiveTables(ctx context.Context, outletID uuid.UUID) ([]allocation.Table, error)
	GetCurrentReservationAllocationPercent(ctx context.Context, outletID uuid.UUID, at time.Time) (int, error)
	GetQueueSettings(ctx context.Context, outletID uuid.UUID) (*outlets.QueueSettings, error)
	ListOutletIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Notifier delivers customer-facing queue messages. Failures never abort a transition.
type Notifier interface {
	SendQueueConfirmation(ctx context.Context, entry *QueueEntry) error
	SendQueueUpdate(ctx context.Context, entry *QueueEntry) error
	SendTableReady(ctx context.Context, entry *QueueEntry, tableNumbers []string) error
	SendQueueCancellation(ctx context.Context, entry *QueueEntry, reason string) error
}

// Broadcaster pushes queue-changed events to connected staff and customer screens
type Broadcaster interface {
	BroadcastQueueChanged(ctx context.Context, outletID uuid.UUID, reason string) error
}

// Service interface defines the contract for queue engine operations
type Service interface {
	// Customer and staff transitions
	Admit(ctx context.Context, outletID uuid.UUID, req AdmitRequest, actor string) (*QueueEntry, error)
	UpdateStatus(ctx context.Context, entryID uuid.UUID, target Status, actor, reason string) (*QueueEntry, error)
	Cancel(ctx context.Context, entryID uuid.UUID, actor, reason string) (*QueueEntry, error)
	AssignTable(ctx context.Context, entryID uuid.UUID, req AssignTableRequest, actor string) (*QueueEntry, error)
	Hold(ctx context.Context, entryID uuid.UUID, actor string) (*QueueEntry, error)
	Unhold(ctx context.Context, entryID uuid.UUID, actor string) (*QueueEntry, error)
	CallNext(ctx context.Context, outletID uuid.UUID, actor string) (*QueueEntry, error)

	// Reads
	GetRecommendation(ctx context.Context, outletID, tableID uuid.UUID) (*RecommendationResponse, error)
	GetAllocation(ctx context.Context, outletID uuid.UUID) (*allocation.Snapshot, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (*QueueEntry, error)
	GetEntryByCode(ctx context.Context, outletID uuid.UUID, code string) (*QueueEntry, error)
	ListEntries(ctx context.Context, outletID uuid.UUID, filter ListFilter) ([]QueueEntry, error)
	GetSummary(ctx context.Context, outletID uuid.UUID) (*Summary, error)

	// Background job operations
	EndOfDayCleanup(ctx context.Context, outletID uuid.UUID) (int, error)

	// Wait blocks until queued notification fan-out has finished
	Wait()
}

const (
	ActorCustomer = "customer"
	ActorSystem   = "system"
)

// ServiceConfig contains configuration for the queue engine
type ServiceConfig struct {
	NotifyDelay time.Duration
	LockTimeout time.Duration
}

// DefaultServiceConfig returns default service configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		NotifyDelay: 200 * time.Millisecond,
		LockTimeout: 5 * time.Second,
	}
}

type service struct {
	repo        Repository
	catalog     OutletCatalog
	estimator   *waittime.Estimator
	policy      *allocation.Policy
	recommender *recommend.Recommender
	notifier    Notifier
	broadcaster Broadcaster
	locker      OutletLocker
	config      *ServiceConfig
	logger      *logger.Logger
	now         func() time.Time
	wg          sync.WaitGroup
}

// Option customises the engine
type Option func(*service)

func WithNotifier(n Notifier) Option {
	return func(s *service) { s.notifier = n }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(s *service) { s.broadcaster = b }
}

// WithLocker replaces the in-process lock, e.g. with a ChainLocker that adds Redis
func WithLocker(l OutletLocker) Option {
	return func(s *service) { s.locker = l }
}

func WithPolicy(p *allocation.Policy) Option {
	return func(s *service) { s.policy = p }
}

func WithRecommender(r *recommend.Recommender) Option {
	return func(s *service) { s.recommender = r }
}

func WithConfig(c *ServiceConfig) Option {
	return func(s *service) { s.config = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates the queue engine. Without options it uses an in-process
// lock and drops notifications and broadcasts.
func NewService(repo Repository, catalog OutletCatalog, estimator *waittime.Estimator, log *logger.Logger, opts ...Option) Service {
	s := &service{
		repo:        repo,
		catalog:     catalog,
		estimator:   estimator,
		policy:      allocation.NewPolicy(allocation.DefaultParams()),
		recommender: recommend.NewRecommender(recommend.DefaultParams()),
		notifier:    noopNotifier{},
		broadcaster: noopBroadcaster{},
		locker:      NewLocalLocker(),
		config:      DefaultServiceConfig(),
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Admit adds a walk-in party to the back of the outlet queue
func (s *service) Admit(ctx context.Context, outletID uuid.UUID, req AdmitRequest, actor string) (*QueueEntry, error) {
	settings, err := s.catalog.GetQueueSettings(ctx, outletID)
	if err != nil {
		return nil, err
	}
	if !settings.QueueEnabled {
		return nil, fmt.Errorf("outlet %s: %w", outletID, apperr.ErrQueueDisabled)
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, fmt.Errorf("customer name is required: %w", apperr.ErrInvalidInput)
	}
	if req.PartySize < 1 || req.PartySize > settings.MaxPartySize {
		return nil, fmt.Errorf("party size %d outside 1..%d: %w", req.PartySize, settings.MaxPartySize, apperr.ErrInvalidInput)
	}

	var entry *QueueEntry
	err = s.withOutletLock(ctx, outletID, func() error {
		snapshot := s.prepareEstimates(ctx, outletID)

		return s.repo.WithinTx(ctx, func(tx Repository) error {
			now := s.now()
			date := now.In(settings.Location).Format(DateLayout)

			seq, err := tx.CountByDate(ctx, outletID, date)
			if err != nil {
				return err
			}
			waiting, err := tx.ListWaiting(ctx, outletID)
			if err != nil {
				return err
			}
			active := 0
			for _, e := range waiting {
				if !e.IsHeld {
					active++
				}
			}
			position := active + 1

			view, err := viewFrom(ctx, tx, outletID, snapshot)
			if err != nil {
				return err
			}
			estimate := s.estimate(outletID, view, req.PartySize, position, position)

			entry = &QueueEntry{
				ID:                   uuid.New(),
				OutletID:             outletID,
				QueueDate:            date,
				Code:                 fmt.Sprintf(CodeFormat, seq+1),
				CustomerName:         name,
				Phone:                strings.TrimSpace(req.Phone),
				PartySize:            req.PartySize,
				Notes:                strings.TrimSpace(req.Notes),
				Status:               StatusWaiting,
				Position:             position,
				EstimatedWaitMinutes: estimate,
				QueuedAt:             now,
			}

			if err := tx.CreateEntry(ctx, entry); err != nil {
				return err
			}
			return tx.CreateStatusChange(ctx, &StatusChange{
				EntryID:   entry.ID,
				OutletID:  outletID,
				ToStatus:  StatusWaiting,
				Actor:     actor,
				Reason:    ReasonAdmitted,
				ChangedAt: now,
			})
		})
	})
	metrics.TrackQueueOperation("admit", outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.LogEntryAdmitted(ctx, entry.ID.String(), outletID.String(), entry.Code, entry.Position, entry.EstimatedWaitMinutes)
	s.dispatch(effects{
		outletID: outletID,
		reason:   ReasonAdmitted,
		trigger:  entry,
		kind:     notifyConfirmation,
	})
	return entry, nil
}

// UpdateStatus moves an entry along the state graph
func (s *service) UpdateStatus(ctx context.Context, entryID uuid.UUID, target Status, actor, reason string) (*QueueEntry, error) {
	return s.transition(ctx, "update_status", entryID, target, actor, reason)
}

// Cancel withdraws a waiting or called party
func (s *service) Cancel(ctx context.Context, entryID uuid.UUID, actor, reason string) (*QueueEntry, error) {
	if reason == "" {
		reason = ReasonCancelled
	}
	return s.transition(ctx, "cancel", entryID, StatusCancelled, actor, reason)
}

func (s *service) transition(ctx context.Context, op string, entryID uuid.UUID, target Status, actor, reason string) (*QueueEntry, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("unknown status %q: %w", target, apperr.ErrInvalidInput)
	}

	current, err := s.repo.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var (
		eff     effects
		from    Status
		res     *reorderResult
		updated *QueueEntry
	)
	err = s.withOutletLock(ctx, current.OutletID, func() error {
		snapshot := s.prepareEstimates(ctx, current.OutletID)

		return s.repo.WithinTx(ctx, func(tx Repository) error {
			entry, err := tx.GetEntryByID(ctx, entryID)
			if err != nil {
				return err
			}
			from = entry.Status
			tables := tableNumbers(entry.ActiveAssignments())

			if err := s.applyTransition(ctx, tx, entry, target, actor, reason); err != nil {
				return err
			}
			res, err = s.reorderTx(ctx, tx, entry.OutletID, snapshot, uuid.Nil)
			if err != nil {
				return err
			}

			eff = effects{outletID: entry.OutletID, reason: string(target), trigger: entry, updates: res.affected}
			switch target {
			case StatusCalled:
				eff.kind, eff.tables = notifyTableReady, tables
			case StatusCancelled, StatusNoShow:
				eff.kind, eff.cancelReason = notifyCancellation, reason
			}

			updated, err = tx.GetEntryByID(ctx, entryID)
			return err
		})
	})
	metrics.TrackQueueOperation(op, outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.LogStatusChanged(ctx, entryID.String(), string(from), string(target), actor)
	s.recordReorder(ctx, current.OutletID, res)
	s.dispatch(eff)
	return updated, nil
}

// applyTransition validates one state change and writes it through tx.
// entry is updated in place once the writes succeed.
func (s *service) applyTransition(ctx context.Context, tx Repository, entry *QueueEntry, target Status, actor, reason string) error {
	if !entry.Status.CanTransitionTo(target) {
		return fmt.Errorf("entry %s %s -> %s: %w", entry.Code, entry.Status, target, apperr.ErrInvalidTransition)
	}

	now := s.now()
	updated := *entry
	updated.Status = target

	var (
		assignmentStatus AssignmentStatus
		propagate        bool
	)
	switch target {
	case StatusCalled:
		updated.CalledAt = &now
		updated.Position = 0
		updated.IsHeld, updated.HeldSince = false, nil
	case StatusSeated:
		updated.SeatedAt = &now
		assignmentStatus, propagate = AssignmentSeated, true
	case StatusCompleted:
		updated.CompletedAt = &now
		assignmentStatus, propagate = AssignmentCompleted, true
	case StatusCancelled:
		updated.Position = 0
		updated.IsHeld, updated.HeldSince = false, nil
		assignmentStatus, propagate = AssignmentCancelled, true
	case StatusNoShow:
		updated.Position = 0
		updated.IsHeld, updated.HeldSince = false, nil
		assignmentStatus, propagate = AssignmentNoShow, true
	}

	if err := tx.SaveEntry(ctx, &updated); err != nil {
		return err
	}
	if propagate {
		if err := tx.UpdateActiveAssignments(ctx, entry.ID, assignmentStatus, now); err != nil {
			return err
		}
	}
	err := tx.CreateStatusChange(ctx, &StatusChange{
		EntryID:    entry.ID,
		OutletID:   entry.OutletID,
		FromStatus: entry.Status,
		ToStatus:   target,
		Actor:      actor,
		Reason:     reason,
		ChangedAt:  now,
	})
	if err != nil {
		return err
	}

	*entry = updated
	return nil
}

// Hold parks a waiting party without changing its status
func (s *service) Hold(ctx context.Context, entryID uuid.UUID, actor string) (*QueueEntry, error) {
	return s.setHeld(ctx, entryID, true, actor)
}

// Unhold returns a held party to the front of the queue
func (s *service) Unhold(ctx context.Context, entryID uuid.UUID, actor string) (*QueueEntry, error) {
	return s.setHeld(ctx, entryID, false, actor)
}

func (s *service) setHeld(ctx context.Context, entryID uuid.UUID, held bool, actor string) (*QueueEntry, error) {
	op, reason := "unhold", ReasonUnheld
	if held {
		op, reason = "hold", ReasonHeld
	}

	current, err := s.repo.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var (
		eff     effects
		res     *reorderResult
		updated *QueueEntry
	)
	err = s.withOutletLock(ctx, current.OutletID, func() error {
		snapshot := s.prepareEstimates(ctx, current.OutletID)

		return s.repo.WithinTx(ctx, func(tx Repository) error {
			entry, err := tx.GetEntryByID(ctx, entryID)
			if err != nil {
				return err
			}
			if entry.Status != StatusWaiting {
				return fmt.Errorf("entry %s is %s, only waiting parties can be %s: %w", entry.Code, entry.Status, reason, apperr.ErrInvalidTransition)
			}
			if entry.IsHeld == held {
				return fmt.Errorf("entry %s already %s: %w", entry.Code, reason, apperr.ErrInvalidTransition)
			}

			now := s.now()
			front := uuid.Nil
			if held {
				entry.IsHeld, entry.HeldSince = true, &now
				entry.Position = 0
			} else {
				entry.IsHeld, entry.HeldSince = false, nil
				front = entry.ID
			}

			if err := tx.SaveEntry(ctx, entry); err != nil {
				return err
			}
			err = tx.CreateStatusChange(ctx, &StatusChange{
				EntryID:    entry.ID,
				OutletID:   entry.OutletID,
				FromStatus: StatusWaiting,
				ToStatus:   StatusWaiting,
				Actor:      actor,
				Reason:     reason,
				ChangedAt:  now,
			})
			if err != nil {
				return err
			}

			res, err = s.reorderTx(ctx, tx, entry.OutletID, snapshot, front)
			if err != nil {
				return err
			}
			updated, err = tx.GetEntryByID(ctx, entryID)
			if err != nil {
				return err
			}

			eff = effects{outletID: entry.OutletID, reason: reason, updates: res.affected}
			if !held {
				eff.trigger, eff.kind = updated, notifyUpdate
			}
			return nil
		})
	})
	metrics.TrackQueueOperation(op, outcome(err))
	if err != nil {
		return nil, err
	}

	s.recordReorder(ctx, current.OutletID, res)
	s.dispatch(eff)
	return updated, nil
}

// AssignTable offers one or more joined queue-pool tables to a party and calls it
func (s *service) AssignTable(ctx context.Context, entryID uuid.UUID, req AssignTableRequest, actor string) (*QueueEntry, error) {
	tableIDs := uniqueIDs(req.TableIDs)
	if len(tableIDs) == 0 {
		return nil, fmt.Errorf("at least one table is required: %w", apperr.ErrInvalidInput)
	}

	current, err := s.repo.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var (
		eff     effects
		from    Status
		called  bool
		res     *reorderResult
		updated *QueueEntry
	)
	err = s.withOutletLock(ctx, current.OutletID, func() error {
		snapshot, err := s.loadSnapshot(ctx, current.OutletID)
		if err != nil {
			return err
		}
		s.estimator.Refresh(ctx, current.OutletID)

		return s.repo.WithinTx(ctx, func(tx Repository) error {
			entry, err := tx.GetEntryByID(ctx, entryID)
			if err != nil {
				return err
			}
			if !entry.Status.IsOpen() {
				return fmt.Errorf("entry %s is %s: %w", entry.Code, entry.Status, apperr.ErrInvalidTransition)
			}

			tables := make([]allocation.Table, 0, len(tableIDs))
			capacity := 0
			for _, id := range tableIDs {
				table, ok := findTable(snapshot.QueuePool, id)
				if !ok {
					return fmt.Errorf("table %s: %w", id, apperr.ErrNotAQueueTable)
				}
				tables = append(tables, table)
				capacity += table.Capacity
			}

			active, err := tx.FindActiveAssignments(ctx, tableIDs)
			if err != nil {
				return err
			}
			for _, a := range active {
				if a.EntryID != entry.ID {
					return fmt.Errorf("table %s is held by another party: %w", a.TableNumber, apperr.ErrAlreadyAssigned)
				}
			}

			notes := entry.Notes
			if capacity < entry.PartySize {
				if !req.ConfirmUndersized {
					return fmt.Errorf("%d seats for a party of %d: %w", capacity, entry.PartySize, apperr.ErrCapacityConflict)
				}
				notes = appendNote(notes, fmt.Sprintf("%s: %d seats for party of %d, confirmed by %s", ReasonOverridden, capacity, entry.PartySize, actor))
			}

			now := s.now()
			from = entry.Status
			next := *entry
			next.Notes = notes
			called = entry.Status == StatusWaiting
			if called {
				next.Status = StatusCalled
				next.CalledAt = &now
				next.Position = 0
				next.IsHeld, next.HeldSince = false, nil
			}

			assignments := make([]QueueTableAssignment, 0, len(tables))
			numbers := make([]string, 0, len(tables))
			for _, t := range tables {
				assignments = append(assignments, QueueTableAssignment{
					ID:          uuid.New(),
					EntryID:     entry.ID,
					OutletID:    entry.OutletID,
					TableID:     t.ID,
					TableNumber: t.Number,
					Status:      AssignmentAssigned,
					AssignedBy:  actor,
					AssignedAt:  now,
				})
				numbers = append(numbers, t.Number)
			}

			// a new set replaces whatever the party was offered before
			if err := tx.UpdateActiveAssignments(ctx, entry.ID, AssignmentCancelled, now); err != nil {
				return err
			}
			if err := tx.CreateAssignments(ctx, assignments); err != nil {
				return err
			}
			if err := tx.SaveEntry(ctx, &next); err != nil {
				return err
			}
			err = tx.CreateStatusChange(ctx, &StatusChange{
				EntryID:    entry.ID,
				OutletID:   entry.OutletID,
				FromStatus: entry.Status,
				ToStatus:   next.Status,
				Actor:      actor,
				Reason:     ReasonAssigned,
				ChangedAt:  now,
			})
			if err != nil {
				return err
			}

			var affected []QueueEntry
			if called {
				res, err = s.reorderTx(ctx, tx, entry.OutletID, snapshot, uuid.Nil)
				if err != nil {
					return err
				}
				affected = res.affected
			}

			eff = effects{
				outletID: entry.OutletID,
				reason:   ReasonAssigned,
				trigger:  &next,
				kind:     notifyTableReady,
				tables:   numbers,
				updates:  affected,
			}

			updated, err = tx.GetEntryByID(ctx, entryID)
			return err
		})
	})
	metrics.TrackQueueOperation("assign_table", outcome(err))
	if err != nil {
		return nil, err
	}

	if called {
		s.logger.LogStatusChanged(ctx, entryID.String(), string(from), string(StatusCalled), actor)
	}
	s.recordReorder(ctx, current.OutletID, res)
	s.dispatch(eff)
	return updated, nil
}

// CallNext calls the head-of-line party that is not on hold
func (s *service) CallNext(ctx context.Context, outletID uuid.UUID, actor string) (*QueueEntry, error) {
	var (
		eff     effects
		res     *reorderResult
		updated *QueueEntry
	)
	err := s.withOutletLock(ctx, outletID, func() error {
		snapshot := s.prepareEstimates(ctx, outletID)

		return s.repo.WithinTx(ctx, func(tx Repository) error {
			waiting, err := tx.ListWaiting(ctx, outletID)
			if err != nil {
				return err
			}

			var head *QueueEntry
			for i := range waiting {
				if waiting[i].IsHeld {
					continue
				}
				if head == nil || waiting[i].Position < head.Position {
					head = &waiting[i]
				}
			}
			if head == nil {
				return fmt.Errorf("outlet %s: %w", outletID, apperr.ErrNoCandidates)
			}

			if err := s.applyTransition(ctx, tx, head, StatusCalled, actor, ReasonCalled); err != nil {
				return err
			}
			res, err = s.reorderTx(ctx, tx, outletID, snapshot, uuid.Nil)
			if err != nil {
				return err
			}
			eff = effects{outletID: outletID, reason: ReasonCalled, trigger: head, kind: notifyTableReady, updates: res.affected}

			updated, err = tx.GetEntryByID(ctx, head.ID)
			return err
		})
	})
	metrics.TrackQueueOperation("call_next", outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.LogStatusChanged(ctx, updated.ID.String(), string(StatusWaiting), string(StatusCalled), actor)
	s.recordReorder(ctx, outletID, res)
	s.dispatch(eff)
	return updated, nil
}

// GetRecommendation picks the best-fit waiting party for a free queue-pool table
func (s *service) GetRecommendation(ctx context.Context, outletID, tableID uuid.UUID) (*RecommendationResponse, error) {
	snapshot, err := s.loadSnapshot(ctx, outletID)
	if err != nil {
		return nil, err
	}

	waiting, err := s.repo.ListWaiting(ctx, outletID)
	if err != nil {
		return nil, err
	}
	candidates := make([]recommend.Candidate, 0, len(waiting))
	for _, e := range waiting {
		candidates = append(candidates, recommend.Candidate{
			EntryID:   e.ID,
			PartySize: e.PartySize,
			Position:  e.Position,
			IsHeld:    e.IsHeld,
		})
	}

	rec, err := s.recommender.Recommend(tableID, snapshot.QueuePool, candidates)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.FindActiveAssignments(ctx, []uuid.UUID{tableID})
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, fmt.Errorf("table %s: %w", active[0].TableNumber, apperr.ErrAlreadyAssigned)
	}
	if rec == nil {
		return nil, fmt.Errorf("outlet %s: %w", outletID, apperr.ErrNoCandidates)
	}

	var chosen *QueueEntry
	for i := range waiting {
		if waiting[i].ID == rec.Candidate.EntryID {
			chosen = &waiting[i]
			break
		}
	}

	return &RecommendationResponse{
		TableID:     rec.Table.ID,
		TableNumber: rec.Table.Number,
		Capacity:    rec.Table.Capacity,
		Entry:       chosen,
		Reason:      string(rec.Reason),
		TooSmall:    rec.TooSmall,
	}, nil
}

func (s *service) GetAllocation(ctx context.Context, outletID uuid.UUID) (*allocation.Snapshot, error) {
	view, err := s.tryLoadView(ctx, outletID)
	if err != nil {
		return nil, err
	}
	return &view.snapshot, nil
}

func (s *service) GetEntry(ctx context.Context, entryID uuid.UUID) (*QueueEntry, error) {
	return s.repo.GetEntryByID(ctx, entryID)
}

// GetEntryByCode finds today's entry by its printed code
func (s *service) GetEntryByCode(ctx context.Context, outletID uuid.UUID, code string) (*QueueEntry, error) {
	settings, err := s.catalog.GetQueueSettings(ctx, outletID)
	if err != nil {
		return nil, err
	}
	date := s.now().In(settings.Location).Format(DateLayout)
	return s.repo.GetEntryByCode(ctx, outletID, date, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *service) ListEntries(ctx context.Context, outletID uuid.UUID, filter ListFilter) ([]QueueEntry, error) {
	if filter.Date == "" {
		settings, err := s.catalog.GetQueueSettings(ctx, outletID)
		if err != nil {
			return nil, err
		}
		filter.Date = s.now().In(settings.Location).Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, filter.Date); err != nil {
		return nil, fmt.Errorf("date %q: %w", filter.Date, apperr.ErrInvalidInput)
	}
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			return nil, fmt.Errorf("unknown status %q: %w", st, apperr.ErrInvalidInput)
		}
	}
	return s.repo.ListEntries(ctx, outletID, filter)
}

// GetSummary builds today's dashboard numbers for an outlet
func (s *service) GetSummary(ctx context.Context, outletID uuid.UUID) (*Summary, error) {
	settings, err := s.catalog.GetQueueSettings(ctx, outletID)
	if err != nil {
		return nil, err
	}
	view, err := s.tryLoadView(ctx, outletID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := now.In(settings.Location).Format(DateLayout)
	entries, err := s.repo.ListEntries(ctx, outletID, ListFilter{Date: date})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		OutletID:           outletID,
		Date:               date,
		QueueEnabled:       settings.QueueEnabled,
		ReservationPercent: view.snapshot.TargetPercent,
		WaitingByPartySize: make(map[int]int),
		CountsByStatus:     make(map[Status]int),
	}

	var seatedWaits []float64
	for _, e := range entries {
		summary.CountsByStatus[e.Status]++
		switch e.Status {
		case StatusWaiting:
			if e.IsHeld {
				summary.Held++
			} else {
				summary.Waiting++
				summary.WaitingByPartySize[e.PartySize]++
			}
			if waited := int(now.Sub(e.QueuedAt).Minutes()); waited > summary.LongestWaitMinutes {
				summary.LongestWaitMinutes = waited
			}
		case StatusCalled:
			summary.Called++
		case StatusSeated:
			summary.Seated++
		case StatusCompleted:
			summary.Completed++
		case StatusCancelled:
			summary.Cancelled++
		case StatusNoShow:
			summary.NoShow++
		case StatusDayEnd:
			summary.DayEnd++
		}
		if e.SeatedAt != nil && e.SeatedAt.After(e.QueuedAt) {
			seatedWaits = append(seatedWaits, e.SeatedAt.Sub(e.QueuedAt).Minutes())
		}
	}
	if len(seatedWaits) > 0 {
		total := 0.0
		for _, w := range seatedWaits {
			total += w
		}
		summary.AverageWaitMinutes = int(total/float64(len(seatedWaits)) + 0.5)
	}

	poolIDs := make([]uuid.UUID, 0, len(view.snapshot.QueuePool))
	for _, t := range view.snapshot.QueuePool {
		poolIDs = append(poolIDs, t.ID)
	}
	summary.QueuePoolTableCount = len(poolIDs)
	summary.QueuePoolCapacity = view.snapshot.QueueCapacity

	active, err := s.repo.FindActiveAssignments(ctx, poolIDs)
	if err != nil {
		return nil, err
	}
	occupied := make(map[uuid.UUID]struct{}, len(active))
	for _, a := range active {
		occupied[a.TableID] = struct{}{}
	}
	summary.OccupiedQueueTables = len(occupied)
	summary.AvailableQueueTables = summary.QueuePoolTableCount - summary.OccupiedQueueTables

	return summary, nil
}

// EndOfDayCleanup closes every open entry of the outlet as DAY_END.
// It is the only status change that bypasses the transition graph.
func (s *service) EndOfDayCleanup(ctx context.Context, outletID uuid.UUID) (int, error) {
	closed := 0
	err := s.withOutletLock(ctx, outletID, func() error {
		open, err := s.repo.ListOpen(ctx, outletID)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return nil
		}

		now := s.now()
		err = s.repo.WithinTx(ctx, func(tx Repository) error {
			for i := range open {
				e := &open[i]
				from := e.Status
				e.Status = StatusDayEnd
				e.Position = 0
				e.IsHeld, e.HeldSince = false, nil

				if err := tx.SaveEntry(ctx, e); err != nil {
					return err
				}
				if err := tx.UpdateActiveAssignments(ctx, e.ID, AssignmentCancelled, now); err != nil {
					return err
				}
				if err := tx.CreateStatusChange(ctx, &StatusChange{
					EntryID:    e.ID,
					OutletID:   outletID,
					FromStatus: from,
					ToStatus:   StatusDayEnd,
					Actor:      ActorSystem,
					Reason:     ReasonEndOfDay,
					ChangedAt:  now,
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		closed = len(open)
		metrics.SetQueueLength(outletID.String(), 0, 0)
		return nil
	})
	metrics.TrackQueueOperation("end_of_day", outcome(err))
	if err != nil {
		return 0, err
	}

	s.logger.LogCleanup(ctx, outletID.String(), closed)
	if closed > 0 {
		s.dispatch(effects{outletID: outletID, reason: ReasonEndOfDay})
	}
	return closed, nil
}

func (s *service) Wait() {
	s.wg.Wait()
}

func (s *service) withOutletLock(ctx context.Context, outletID uuid.UUID, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.config.LockTimeout)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, outletID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrCapacityConflict),
		errors.Is(err, apperr.ErrAlreadyAssigned),
		errors.Is(err, apperr.ErrNotAQueueTable),
		errors.Is(err, apperr.ErrQueueDisabled),
		errors.Is(err, apperr.ErrNoCandidates),
		errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrInvalidInput):
		return "rejected"
	default:
		return "error"
	}
}

func findTable(pool []allocation.Table, id uuid.UUID) (allocation.Table, bool) {
	for _, t := range pool {
		if t.ID == id {
			return t, true
		}
	}
	return allocation.Table{}, false
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func tableNumbers(assignments []QueueTableAssignment) []string {
	numbers := make([]string, 0, len(assignments))
	for _, a := range assignments {
		numbers = append(numbers, a.TableNumber)
	}
	sort.Strings(numbers)
	return numbers
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
