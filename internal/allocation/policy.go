package allocation

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Table is the allocation view of a physical table
type Table struct {
	ID       uuid.UUID `json:"id"`
	Number   string    `json:"number"`
	Capacity int       `json:"capacity"`
	Section  string    `json:"section,omitempty"`
	Active   bool      `json:"active"`
}

// Strategy names the partition strategy that produced a snapshot
type Strategy string

const (
	StrategyNone          Strategy = "NONE"
	StrategyLargestFirst  Strategy = "LARGEST_FIRST"
	StrategySmallestFirst Strategy = "SMALLEST_FIRST"
	StrategyBinPacking    Strategy = "BIN_PACKING"
)

const (
	// DefaultOvershootTolerance is the fraction of the target a table may overshoot before a smaller one is preferred
	DefaultOvershootTolerance = 0.10

	// DefaultRemainderSlack is the leftover capacity below which a bin-packing pick counts as a hit
	DefaultRemainderSlack = 3
)

// Params holds the tunable thresholds of the partition strategies
type Params struct {
	OvershootTolerance float64
	RemainderSlack     int
}

// DefaultParams returns the production thresholds
func DefaultParams() Params {
	return Params{
		OvershootTolerance: DefaultOvershootTolerance,
		RemainderSlack:     DefaultRemainderSlack,
	}
}

// Snapshot is the partition of an outlet's active tables at one instant
type Snapshot struct {
	OutletID            uuid.UUID `json:"outlet_id"`
	ComputedAt          time.Time `json:"computed_at"`
	TargetPercent       int       `json:"target_percent"`
	TotalCapacity       int       `json:"total_capacity"`
	TargetCapacity      int       `json:"target_capacity"`
	ReservationPool     []Table   `json:"reservation_pool"`
	QueuePool           []Table   `json:"queue_pool"`
	ReservationCapacity int       `json:"reservation_capacity"`
	QueueCapacity       int       `json:"queue_capacity"`
	Strategy            Strategy  `json:"strategy"`
	CapacityError       int       `json:"capacity_error"`
}

// InQueuePool reports whether the table belongs to the queue pool
func (s *Snapshot) InQueuePool(tableID uuid.UUID) bool {
	for _, t := range s.QueuePool {
		if t.ID == tableID {
			return true
		}
	}
	return false
}

// Policy splits tables between reservation holders and walk-ins by capacity
type Policy struct {
	params Params
}

// NewPolicy creates a new allocation policy
func NewPolicy(params Params) *Policy {
	return &Policy{params: params}
}

// Partition returns the reservation and queue pools for the target reservation percentage
func (p *Policy) Partition(tables []Table, targetPercent int) (reservationPool, queuePool []Table) {
	snapshot := p.Compute(tables, targetPercent)
	return snapshot.ReservationPool, snapshot.QueuePool
}

// Compute builds a full snapshot. Inactive tables are ignored.
func (p *Policy) Compute(tables []Table, targetPercent int) Snapshot {
	active := make([]Table, 0, len(tables))
	total := 0
	for _, t := range tables {
		if !t.Active {
			continue
		}
		active = append(active, t)
		total += t.Capacity
	}

	snapshot := Snapshot{
		TargetPercent: targetPercent,
		TotalCapacity: total,
		Strategy:      StrategyNone,
	}

	switch {
	case targetPercent <= 0 || len(active) == 0:
		snapshot.ReservationPool = []Table{}
		snapshot.QueuePool = active
		snapshot.QueueCapacity = total
		return snapshot
	case targetPercent >= 100:
		snapshot.ReservationPool = active
		snapshot.QueuePool = []Table{}
		snapshot.ReservationCapacity = total
		snapshot.TargetCapacity = total
		return snapshot
	}

	target := TargetCapacity(total, targetPercent)
	snapshot.TargetCapacity = target

	best := p.choose(active, target)
	picked := make([]bool, len(active))
	for _, idx := range best.picked {
		picked[idx] = true
	}

	snapshot.ReservationPool = make([]Table, 0, len(best.picked))
	snapshot.QueuePool = make([]Table, 0, len(active)-len(best.picked))
	for i, t := range active {
		if picked[i] {
			snapshot.ReservationPool = append(snapshot.ReservationPool, t)
		} else {
			snapshot.QueuePool = append(snapshot.QueuePool, t)
		}
	}
	snapshot.ReservationCapacity = best.capacity
	snapshot.QueueCapacity = total - best.capacity
	snapshot.Strategy = best.strategy
	snapshot.CapacityError = abs(best.capacity - target)

	return snapshot
}

// TargetCapacity is ceil(total * percent / 100)
func TargetCapacity(total, percent int) int {
	return (total*percent + 99) / 100
}

type plan struct {
	strategy Strategy
	picked   []int
	capacity int
}

// plans evaluates every strategy in declaration order
func (p *Policy) plans(tables []Table, target int) []plan {
	strategies := []struct {
		name Strategy
		run  func([]Table, int) []int
	}{
		{StrategyLargestFirst, p.largestFirst},
		{StrategySmallestFirst, p.smallestFirst},
		{StrategyBinPacking, p.binPacking},
	}

	plans := make([]plan, 0, len(strategies))
	for _, s := range strategies {
		picked := s.run(tables, target)
		plans = append(plans, plan{
			strategy: s.name,
			picked:   picked,
			capacity: capacityOf(tables, picked),
		})
	}
	return plans
}

func (p *Policy) choose(tables []Table, target int) plan {
	plans := p.plans(tables, target)
	best := plans[0]
	for _, candidate := range plans[1:] {
		// strict comparison keeps declaration order on ties
		if abs(candidate.capacity-target) < abs(best.capacity-target) {
			best = candidate
		}
	}
	return best
}

// largestFirst adds tables from the largest down, swapping in a smaller table
// whenever the next one would overshoot the target by more than the tolerance.
func (p *Policy) largestFirst(tables []Table, target int) []int {
	order := sortedIndices(tables, true)
	limit := float64(target) * (1 + p.params.OvershootTolerance)
	used := make([]bool, len(tables))

	var picked []int
	sum := 0
	for i, idx := range order {
		if sum >= target {
			break
		}
		if used[idx] {
			continue
		}

		capacity := tables[idx].Capacity
		if float64(sum+capacity) > limit {
			if swap := firstFitting(tables, order[i+1:], used, target-sum); swap >= 0 {
				used[swap] = true
				picked = append(picked, swap)
				sum += tables[swap].Capacity
				continue
			}
		}

		used[idx] = true
		picked = append(picked, idx)
		sum += capacity
	}
	return picked
}

// smallestFirst adds tables from the smallest up until the target is reached
func (p *Policy) smallestFirst(tables []Table, target int) []int {
	var picked []int
	sum := 0
	for _, idx := range sortedIndices(tables, false) {
		if sum >= target {
			break
		}
		picked = append(picked, idx)
		sum += tables[idx].Capacity
	}
	return picked
}

// binPacking takes near-exact hits first, then first-fit-decreasing on the rest
func (p *Policy) binPacking(tables []Table, target int) []int {
	order := sortedIndices(tables, true)
	used := make([]bool, len(tables))
	remaining := target

	var picked []int
	for _, idx := range order {
		if remaining <= 0 {
			break
		}
		capacity := tables[idx].Capacity
		diff := remaining - capacity
		closeHit := float64(abs(diff)) <= float64(remaining)*p.params.OvershootTolerance
		smallRemainder := diff >= 0 && diff < p.params.RemainderSlack
		if closeHit || smallRemainder {
			used[idx] = true
			picked = append(picked, idx)
			remaining -= capacity
		}
	}

	for _, idx := range order {
		if remaining <= 0 {
			break
		}
		if used[idx] {
			continue
		}
		if tables[idx].Capacity <= remaining {
			used[idx] = true
			picked = append(picked, idx)
			remaining -= tables[idx].Capacity
		}
	}

	if len(picked) == 0 && len(tables) > 0 {
		picked = append(picked, sortedIndices(tables, false)[0])
	}
	return picked
}

// firstFitting returns the first unused table in candidates that fits within room, or -1
func firstFitting(tables []Table, candidates []int, used []bool, room int) int {
	for _, idx := range candidates {
		if used[idx] {
			continue
		}
		if tables[idx].Capacity <= room {
			return idx
		}
	}
	return -1
}

func sortedIndices(tables []Table, descending bool) []int {
	order := make([]int, len(tables))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if descending {
			return tables[order[a]].Capacity > tables[order[b]].Capacity
		}
		return tables[order[a]].Capacity < tables[order[b]].Capacity
	})
	return order
}

func capacityOf(tables []Table, picked []int) int {
	sum := 0
	for _, idx := range picked {
		sum += tables[idx].Capacity
	}
	return sum
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
