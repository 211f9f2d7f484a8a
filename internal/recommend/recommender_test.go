package recommend

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkin/internal/allocation"
	"walkin/internal/shared/apperr"
)

func party(size, position int) Candidate {
	return Candidate{EntryID: uuid.New(), PartySize: size, Position: position}
}

func heldParty(size int) Candidate {
	return Candidate{EntryID: uuid.New(), PartySize: size, IsHeld: true}
}

func poolWith(capacity int) (allocation.Table, []allocation.Table) {
	table := allocation.Table{ID: uuid.New(), Number: "T1", Capacity: capacity, Active: true}
	other := allocation.Table{ID: uuid.New(), Number: "T2", Capacity: 8, Active: true}
	return table, []allocation.Table{other, table}
}

func TestRecommendRejectsReservationTable(t *testing.T) {
	r := NewRecommender(DefaultParams())
	_, pool := poolWith(4)

	_, err := r.Recommend(uuid.New(), pool, []Candidate{party(2, 1)})

	assert.True(t, errors.Is(err, apperr.ErrNotAQueueTable))
}

func TestRecommendNoCandidates(t *testing.T) {
	r := NewRecommender(DefaultParams())
	table, pool := poolWith(4)

	rec, err := r.Recommend(table.ID, pool, nil)

	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecommendPerfectMatchRegardlessOfOrder(t *testing.T) {
	r := NewRecommender(DefaultParams())
	table, pool := poolWith(4)

	orders := [][]int{{2, 4, 6}, {6, 4, 2}, {4, 2, 6}, {6, 2, 4}}
	for _, sizes := range orders {
		candidates := make([]Candidate, 0, len(sizes))
		for i, size := range sizes {
			candidates = append(candidates, party(size, i+1))
		}

		rec, err := r.Recommend(table.ID, pool, candidates)

		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, 4, rec.Candidate.PartySize, "order %v", sizes)
		assert.Equal(t, ReasonPerfectMatch, rec.Reason)
		assert.False(t, rec.TooSmall)
	}
}

func TestRecommend(t *testing.T) {
	r := NewRecommender(DefaultParams())

	tests := []struct {
		name       string
		capacity   int
		candidates []Candidate
		wantIndex  int
		wantReason Reason
		tooSmall   bool
	}{
		{
			name:       "nobody fits returns head flagged",
			capacity:   2,
			candidates: []Candidate{party(6, 1), party(4, 2)},
			wantIndex:  0,
			wantReason: ReasonTooSmall,
			tooSmall:   true,
		},
		{
			name:       "earliest perfect match wins",
			capacity:   4,
			candidates: []Candidate{party(2, 1), party(4, 3), party(4, 2)},
			wantIndex:  2,
			wantReason: ReasonPerfectMatch,
		},
		{
			name:       "held perfect match loses to non-held one",
			capacity:   4,
			candidates: []Candidate{heldParty(4), party(4, 2)},
			wantIndex:  1,
			wantReason: ReasonPerfectMatch,
		},
		{
			name:       "best fit is head",
			capacity:   6,
			candidates: []Candidate{party(5, 1), party(2, 2)},
			wantIndex:  0,
			wantReason: ReasonBestFitIsHead,
		},
		{
			name:       "materially better utilisation skips head",
			capacity:   6,
			candidates: []Candidate{party(2, 1), party(5, 2)},
			wantIndex:  1,
			wantReason: ReasonUtilization,
		},
		{
			name:       "small gain keeps queue fairness",
			capacity:   10,
			candidates: []Candidate{party(7, 1), party(8, 2)},
			wantIndex:  0,
			wantReason: ReasonFairness,
		},
		{
			name:       "head too large, best fit wins on utilisation",
			capacity:   6,
			candidates: []Candidate{party(8, 1), party(3, 2)},
			wantIndex:  1,
			wantReason: ReasonUtilization,
		},
		{
			name:       "largest ties broken by position",
			capacity:   8,
			candidates: []Candidate{party(2, 1), party(6, 3), party(6, 2)},
			wantIndex:  2,
			wantReason: ReasonUtilization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, pool := poolWith(tt.capacity)

			rec, err := r.Recommend(table.ID, pool, tt.candidates)

			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, tt.candidates[tt.wantIndex].EntryID, rec.Candidate.EntryID)
			assert.Equal(t, tt.wantReason, rec.Reason)
			assert.Equal(t, tt.tooSmall, rec.TooSmall)
			assert.Equal(t, table.ID, rec.Table.ID)
		})
	}
}

func TestOrderedPutsHeldLast(t *testing.T) {
	held := heldParty(2)
	first := party(4, 1)
	second := party(3, 2)

	ordered := Ordered([]Candidate{held, second, first})

	assert.Equal(t, []uuid.UUID{first.EntryID, second.EntryID, held.EntryID},
		[]uuid.UUID{ordered[0].EntryID, ordered[1].EntryID, ordered[2].EntryID})
}
