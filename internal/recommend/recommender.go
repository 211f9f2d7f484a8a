package recommend

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"walkin/internal/allocation"
	"walkin/internal/shared/apperr"
)

// DefaultUtilizationGap is the percentage-point gain that justifies skipping the head of line
const DefaultUtilizationGap = 20.0

// Reason explains why a candidate was chosen
type Reason string

const (
	ReasonPerfectMatch  Reason = "PERFECT_MATCH"
	ReasonBestFitIsHead Reason = "BEST_FIT_IS_HEAD"
	ReasonUtilization   Reason = "BETTER_UTILIZATION"
	ReasonFairness      Reason = "HEAD_OF_LINE"
	ReasonBestFit       Reason = "BEST_FIT"
	ReasonTooSmall      Reason = "TABLE_TOO_SMALL"
)

// Candidate is a waiting party as seen by the recommender
type Candidate struct {
	EntryID   uuid.UUID
	PartySize int
	Position  int
	IsHeld    bool
}

// Recommendation is the chosen party for a table
type Recommendation struct {
	Candidate Candidate
	Table     allocation.Table
	Reason    Reason
	// TooSmall is a capacity warning, not a failure
	TooSmall bool
}

// Params configures the recommender
type Params struct {
	UtilizationGap float64
}

// DefaultParams returns the production settings
func DefaultParams() Params {
	return Params{UtilizationGap: DefaultUtilizationGap}
}

// Recommender picks the best-fit waiting party for a table
type Recommender struct {
	params Params
}

// NewRecommender creates a recommender
func NewRecommender(params Params) *Recommender {
	return &Recommender{params: params}
}

// Recommend selects a party for tableID. The table must be in queuePool.
// Returns nil without error when there are no candidates.
func (r *Recommender) Recommend(tableID uuid.UUID, queuePool []allocation.Table, candidates []Candidate) (*Recommendation, error) {
	table, ok := findTable(queuePool, tableID)
	if !ok {
		return nil, fmt.Errorf("table %s: %w", tableID, apperr.ErrNotAQueueTable)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ordered := Ordered(candidates)
	head := ordered[0]
	capacity := table.Capacity

	var eligible []Candidate
	for _, c := range ordered {
		if c.PartySize <= capacity {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return &Recommendation{Candidate: head, Table: table, Reason: ReasonTooSmall, TooSmall: true}, nil
	}

	for _, c := range eligible {
		if c.PartySize == capacity {
			return &Recommendation{Candidate: c, Table: table, Reason: ReasonPerfectMatch}, nil
		}
	}

	// eligible is already in serving order, so the first largest party wins ties
	bestFit := eligible[0]
	for _, c := range eligible[1:] {
		if c.PartySize > bestFit.PartySize {
			bestFit = c
		}
	}
	if bestFit.EntryID == head.EntryID {
		return &Recommendation{Candidate: bestFit, Table: table, Reason: ReasonBestFitIsHead}, nil
	}

	headFits := head.PartySize <= capacity
	headUtil := 0.0
	if headFits {
		headUtil = utilization(head.PartySize, capacity)
	}
	bestUtil := utilization(bestFit.PartySize, capacity)

	switch {
	case bestUtil-headUtil >= r.params.UtilizationGap:
		return &Recommendation{Candidate: bestFit, Table: table, Reason: ReasonUtilization}, nil
	case headFits:
		return &Recommendation{Candidate: head, Table: table, Reason: ReasonFairness}, nil
	default:
		return &Recommendation{Candidate: bestFit, Table: table, Reason: ReasonBestFit}, nil
	}
}

// Ordered returns candidates in serving order: non-held first, then by position
func Ordered(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsHeld != out[j].IsHeld {
			return !out[i].IsHeld
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func findTable(pool []allocation.Table, tableID uuid.UUID) (allocation.Table, bool) {
	for _, t := range pool {
		if t.ID == tableID {
			return t, true
		}
	}
	return allocation.Table{}, false
}

func utilization(partySize, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(partySize) / float64(capacity) * 100
}
