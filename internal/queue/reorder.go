package queue

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"walkin/internal/allocation"
	"walkin/internal/waittime"
	"walkin/pkg/metrics"
)

// outletView is the live state estimates and assignments are computed against
type outletView struct {
	snapshot allocation.Snapshot
	waiting  int
	called   int
	seated   int
}

// loadSnapshot partitions the outlet's active tables at the current allocation percent
func (s *service) loadSnapshot(ctx context.Context, outletID uuid.UUID) (allocation.Snapshot, error) {
	at := s.now()

	tables, err := s.catalog.GetActiveTables(ctx, outletID)
	if err != nil {
		return allocation.Snapshot{}, err
	}
	percent, err := s.catalog.GetCurrentReservationAllocationPercent(ctx, outletID, at)
	if err != nil {
		return allocation.Snapshot{}, err
	}

	snapshot := s.policy.Compute(tables, percent)
	snapshot.OutletID = outletID
	snapshot.ComputedAt = at
	return snapshot, nil
}

// viewFrom adds entry counts read through repo, which may be bound to a transaction
func viewFrom(ctx context.Context, repo Repository, outletID uuid.UUID, snapshot allocation.Snapshot) (*outletView, error) {
	counts, err := repo.CountByStatus(ctx, outletID)
	if err != nil {
		return nil, err
	}
	return &outletView{
		snapshot: snapshot,
		waiting:  counts[StatusWaiting],
		called:   counts[StatusCalled],
		seated:   counts[StatusSeated],
	}, nil
}

func (s *service) tryLoadView(ctx context.Context, outletID uuid.UUID) (*outletView, error) {
	snapshot, err := s.loadSnapshot(ctx, outletID)
	if err != nil {
		return nil, err
	}
	return viewFrom(ctx, s.repo, outletID, snapshot)
}

// prepareEstimates retrains the wait model if due and returns the snapshot estimates
// are computed against. It reads outside any transaction and never fails: without
// table state estimates are still clamped.
func (s *service) prepareEstimates(ctx context.Context, outletID uuid.UUID) allocation.Snapshot {
	s.estimator.Refresh(ctx, outletID)

	snapshot, err := s.loadSnapshot(ctx, outletID)
	if err != nil {
		s.logger.WarnContext(ctx, "queue view unavailable, estimating without table state",
			"outlet_id", outletID.String(),
			"error", err.Error(),
		)
		return allocation.Snapshot{OutletID: outletID}
	}
	return snapshot
}

func (s *service) estimate(outletID uuid.UUID, view *outletView, partySize, position, waiting int) int {
	suitable := 0
	for _, t := range view.snapshot.QueuePool {
		if t.Capacity >= partySize {
			suitable++
		}
	}

	minutes := s.estimator.Predict(outletID, partySize, position, waittime.QueueState{
		WaitingCount:   waiting,
		CalledCount:    view.called,
		OccupiedCount:  view.called + view.seated,
		SuitableTables: suitable,
	})
	metrics.ObserveWaitEstimate(minutes)
	return minutes
}

type reorderResult struct {
	affected []QueueEntry
	active   int
	held     int
	duration time.Duration
}

// reorderTx renumbers the outlet's waiting entries 1..N, held entries last at
// position 0, and refreshes their estimates. front, when set, is placed first.
// It runs inside the mutation's transaction so the change and the renumbering
// commit or roll back together. affected lists the entries whose position moved.
func (s *service) reorderTx(ctx context.Context, tx Repository, outletID uuid.UUID, snapshot allocation.Snapshot, front uuid.UUID) (*reorderResult, error) {
	start := time.Now()

	waiting, err := tx.ListWaiting(ctx, outletID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(waiting, func(i, j int) bool {
		a, b := waiting[i], waiting[j]
		if a.IsHeld != b.IsHeld {
			return !a.IsHeld
		}
		if front != uuid.Nil && (a.ID == front) != (b.ID == front) {
			return a.ID == front
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.QueuedAt.Before(b.QueuedAt)
	})

	active := 0
	for _, e := range waiting {
		if !e.IsHeld {
			active++
		}
	}

	view, err := viewFrom(ctx, tx, outletID, snapshot)
	if err != nil {
		return nil, err
	}

	var (
		updates  []PositionUpdate
		affected []QueueEntry
	)
	for i := range waiting {
		e := &waiting[i]
		position, estimate := 0, e.EstimatedWaitMinutes
		if !e.IsHeld {
			position = i + 1
			estimate = s.estimate(outletID, view, e.PartySize, position, active)
		}
		if position == e.Position && estimate == e.EstimatedWaitMinutes {
			continue
		}

		moved := position != e.Position
		e.Position, e.EstimatedWaitMinutes = position, estimate
		updates = append(updates, PositionUpdate{EntryID: e.ID, Position: position, EstimatedWaitMinutes: estimate})
		if moved && !e.IsHeld {
			affected = append(affected, *e)
		}
	}

	if len(updates) > 0 {
		if err := tx.UpdatePositions(ctx, updates); err != nil {
			return nil, err
		}
	}

	return &reorderResult{
		affected: affected,
		active:   active,
		held:     len(waiting) - active,
		duration: time.Since(start),
	}, nil
}

// recordReorder publishes metrics for a committed reorder
func (s *service) recordReorder(ctx context.Context, outletID uuid.UUID, res *reorderResult) {
	if res == nil {
		return
	}
	metrics.SetQueueLength(outletID.String(), res.active, res.held)
	metrics.ObserveReorder(outletID.String(), res.duration)
	s.logger.LogReorder(ctx, outletID.String(), res.active, res.held, res.duration)
}

type notifyKind int

const (
	notifyNone notifyKind = iota
	notifyConfirmation
	notifyUpdate
	notifyTableReady
	notifyCancellation
)

// effects are the side effects of a committed mutation, run after the outlet lock is released
type effects struct {
	outletID     uuid.UUID
	reason       string
	trigger      *QueueEntry
	kind         notifyKind
	tables       []string
	cancelReason string
	updates      []QueueEntry
}

// dispatch broadcasts the change, notifies the triggering party, then sends a
// position update to every other affected party with NotifyDelay between messages.
func (s *service) dispatch(eff effects) {
	var trigger *QueueEntry
	if eff.trigger != nil {
		snapshot := *eff.trigger
		trigger = &snapshot
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		if err := s.broadcaster.BroadcastQueueChanged(ctx, eff.outletID, eff.reason); err != nil {
			s.logger.WarnContext(ctx, "queue broadcast failed",
				"outlet_id", eff.outletID.String(),
				"reason", eff.reason,
				"error", err.Error(),
			)
		}

		if trigger != nil {
			s.notifyTrigger(ctx, trigger, eff)
		}

		sent := 0
		for i := range eff.updates {
			entry := &eff.updates[i]
			if trigger != nil && entry.ID == trigger.ID {
				continue
			}
			if sent > 0 && s.config.NotifyDelay > 0 {
				time.Sleep(s.config.NotifyDelay)
			}
			err := s.notifier.SendQueueUpdate(ctx, entry)
			s.trackNotification(ctx, "QUEUE_UPDATE", entry.ID, err)
			sent++
		}
	}()
}

func (s *service) notifyTrigger(ctx context.Context, entry *QueueEntry, eff effects) {
	var (
		kind string
		err  error
	)
	switch eff.kind {
	case notifyConfirmation:
		kind, err = "QUEUE_CONFIRMATION", s.notifier.SendQueueConfirmation(ctx, entry)
	case notifyUpdate:
		kind, err = "QUEUE_UPDATE", s.notifier.SendQueueUpdate(ctx, entry)
	case notifyTableReady:
		kind, err = "TABLE_READY", s.notifier.SendTableReady(ctx, entry, eff.tables)
	case notifyCancellation:
		kind, err = "QUEUE_CANCELLATION", s.notifier.SendQueueCancellation(ctx, entry, eff.cancelReason)
	default:
		return
	}
	s.trackNotification(ctx, kind, entry.ID, err)
}

func (s *service) trackNotification(ctx context.Context, kind string, entryID uuid.UUID, err error) {
	metrics.TrackNotification(kind, err)
	if err != nil {
		s.logger.LogNotificationFailed(ctx, kind, entryID.String(), err)
	}
}

type noopNotifier struct{}

func (noopNotifier) SendQueueConfirmation(context.Context, *QueueEntry) error { return nil }
func (noopNotifier) SendQueueUpdate(context.Context, *QueueEntry) error       { return nil }
func (noopNotifier) SendTableReady(context.Context, *QueueEntry, []string) error {
	return nil
}
func (noopNotifier) SendQueueCancellation(context.Context, *QueueEntry, string) error {
	return nil
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastQueueChanged(context.Context, uuid.UUID, string) error { return nil }
