package waittime

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"walkin/internal/shared/apperr"
	"walkin/pkg/logger"
)

// HistorySource provides completed seatings for retraining
type HistorySource interface {
	SeatingHistory(ctx context.Context, outletID uuid.UUID, since time.Time) ([]Sample, error)
}

// QueueState is the live outlet snapshot an estimate is computed against
type QueueState struct {
	WaitingCount   int
	CalledCount    int
	OccupiedCount  int
	SuitableTables int
}

// Estimator predicts minutes until a party is seated
type Estimator struct {
	params  Params
	history HistorySource
	models  *ModelStore
	logger  *logger.Logger
	now     func() time.Time
	group   singleflight.Group
}

// Option customises an Estimator
type Option func(*Estimator)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		e.now = now
	}
}

// WithModelStore shares an existing model store
func WithModelStore(store *ModelStore) Option {
	return func(e *Estimator) {
		e.models = store
	}
}

// NewEstimator creates an estimator. history may be nil, in which case only the heuristic is used.
func NewEstimator(history HistorySource, params Params, log *logger.Logger, opts ...Option) *Estimator {
	e := &Estimator{
		params:  params,
		history: history,
		models:  NewModelStore(),
		logger:  log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Models exposes the model store for invalidation
func (e *Estimator) Models() *ModelStore {
	return e.models
}

// Estimate retrains the outlet model if due, then predicts the wait in minutes
func (e *Estimator) Estimate(ctx context.Context, outletID uuid.UUID, partySize, queuePosition int, state QueueState) int {
	e.Refresh(ctx, outletID)
	return e.Predict(outletID, partySize, queuePosition, state)
}

// Predict returns the wait in minutes from the current model without touching
// the history source, always within [MinEstimate, MaxEstimate]
func (e *Estimator) Predict(outletID uuid.UUID, partySize, queuePosition int, state QueueState) int {
	minutes, err := e.compute(outletID, partySize, queuePosition, state)
	if err != nil {
		e.logger.Warn("wait estimate fell back to per-position default",
			"outlet_id", outletID.String(),
			"party_size", partySize,
			"position", queuePosition,
			"error", err.Error(),
		)
		return e.clamp(queuePosition * e.params.FallbackPerPos)
	}
	return minutes
}

func (e *Estimator) compute(outletID uuid.UUID, partySize, queuePosition int, state QueueState) (int, error) {
	if partySize <= 0 {
		return 0, fmt.Errorf("party size %d: %w", partySize, apperr.ErrInvalidInput)
	}
	if queuePosition < 0 || state.WaitingCount < 0 || state.CalledCount < 0 {
		return 0, fmt.Errorf("queue state: %w", apperr.ErrInvalidInput)
	}

	effective := min(queuePosition, state.WaitingCount)

	base := float64(effective * e.params.MinutesPerPosition)
	halved := effective <= 1 || state.WaitingCount <= 1
	if halved {
		base = math.Max(base/2, float64(e.params.HalvedFloorMinutes))
	} else if mean, ok := e.models.Mean(outletID, partySize); ok {
		base = (base + mean) / 2
	}

	base *= PartySizeFactor(partySize)

	available := max(0, state.SuitableTables-state.OccupiedCount)
	availability := AvailabilityFactor(available)
	if effective <= e.params.NearPositionLimit && availability < 1.0 {
		if effective <= 1 {
			return e.params.ShortWaitMinutes, nil
		}
		return e.params.NearWaitMinutes, nil
	}
	base *= availability

	relief := math.Max(e.params.CalledReliefFloor, 1-e.params.CalledReliefStep*float64(state.CalledCount))
	base *= relief

	if math.IsNaN(base) || math.IsInf(base, 0) {
		return 0, fmt.Errorf("estimate overflow for position %d", queuePosition)
	}
	return e.clamp(int(math.Ceil(base))), nil
}

func (e *Estimator) clamp(minutes int) int {
	return min(max(minutes, e.params.MinEstimate), e.params.MaxEstimate)
}

// Refresh retrains the outlet model when the retrain interval has elapsed.
// Failures are logged and keep the previous model.
func (e *Estimator) Refresh(ctx context.Context, outletID uuid.UUID) {
	if e.history == nil {
		return
	}
	now := e.now()
	if !e.models.due(outletID, now, e.params.RetrainInterval) {
		return
	}

	// callers arriving mid-retrain wait for it instead of estimating from the stale model
	_, _, _ = e.group.Do(outletID.String(), func() (interface{}, error) {
		if !e.models.due(outletID, now, e.params.RetrainInterval) {
			return nil, nil
		}
		defer e.models.markAttempt(outletID, now)

		samples, err := e.history.SeatingHistory(ctx, outletID, now.Add(-e.params.HistoryWindow))
		if err != nil {
			e.logger.ErrorWithContext(ctx, "wait model retrain failed", err, map[string]interface{}{
				"outlet_id": outletID.String(),
			})
			return nil, err
		}

		means, valid := train(samples)
		if valid < e.params.MinSamples {
			e.logger.DebugContext(ctx, "wait model retrain skipped, not enough samples",
				"outlet_id", outletID.String(),
				"samples", valid,
			)
			return nil, nil
		}

		e.models.Put(outletID, means, valid, now)
		e.logger.LogModelRetrained(ctx, outletID.String(), valid, len(means))
		return nil, nil
	})
}
