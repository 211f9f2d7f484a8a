package waittime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sample is one historical seating, queued to seated
type Sample struct {
	PartySize int
	QueuedAt  time.Time
	SeatedAt  time.Time
}

type model struct {
	means     map[int]float64
	samples   int
	trainedAt time.Time
}

// ModelStore owns the trained per-outlet models and their retrain gates
type ModelStore struct {
	mu       sync.RWMutex
	models   map[uuid.UUID]model
	attempts map[uuid.UUID]time.Time
}

// NewModelStore creates an empty store
func NewModelStore() *ModelStore {
	return &ModelStore{
		models:   make(map[uuid.UUID]model),
		attempts: make(map[uuid.UUID]time.Time),
	}
}

// Mean returns the historical minutes-to-seat for the party size, if trained
func (s *ModelStore) Mean(outletID uuid.UUID, partySize int) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[outletID]
	if !ok {
		return 0, false
	}
	mean, ok := m.means[partySize]
	return mean, ok
}

// TrainedAt returns when the outlet model was last replaced
func (s *ModelStore) TrainedAt(outletID uuid.UUID) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[outletID]
	return m.trainedAt, ok
}

// Put replaces the outlet model
func (s *ModelStore) Put(outletID uuid.UUID, means map[int]float64, samples int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.models[outletID] = model{means: means, samples: samples, trainedAt: at}
}

// Invalidate drops the outlet model and lets the next estimate retrain immediately
func (s *ModelStore) Invalidate(outletID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.models, outletID)
	delete(s.attempts, outletID)
}

// due reports whether a retrain is due without recording an attempt
func (s *ModelStore) due(outletID uuid.UUID, now time.Time, interval time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last, ok := s.attempts[outletID]
	return !ok || now.Sub(last) >= interval
}

// markAttempt records a retrain attempt, successful or not
func (s *ModelStore) markAttempt(outletID uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[outletID] = at
}

// train groups valid samples by party size and averages minutes-to-seat
func train(samples []Sample) (map[int]float64, int) {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	valid := 0
	for _, s := range samples {
		if s.QueuedAt.IsZero() || s.SeatedAt.IsZero() || !s.SeatedAt.After(s.QueuedAt) {
			continue
		}
		sums[s.PartySize] += s.SeatedAt.Sub(s.QueuedAt).Minutes()
		counts[s.PartySize]++
		valid++
	}

	means := make(map[int]float64, len(sums))
	for size, sum := range sums {
		means[size] = sum / float64(counts[size])
	}
	return means, valid
}
