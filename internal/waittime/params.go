package waittime

import "time"

// Heuristic constants, overridable through Params
const (
	DefaultMinutesPerPosition = 8
	DefaultHalvedFloorMinutes = 2
	DefaultMinEstimate        = 5
	DefaultMaxEstimate        = 180
	DefaultFallbackPerPos     = 5

	DefaultShortWaitMinutes  = 5
	DefaultNearWaitMinutes   = 10
	DefaultNearPositionLimit = 3

	DefaultCalledReliefStep  = 0.1
	DefaultCalledReliefFloor = 0.5

	DefaultRetrainInterval = time.Hour
	DefaultHistoryWindow   = 7 * 24 * time.Hour
	DefaultMinSamples      = 10
)

// Params configures the estimator
type Params struct {
	MinutesPerPosition int
	HalvedFloorMinutes int
	MinEstimate        int
	MaxEstimate        int
	FallbackPerPos     int

	ShortWaitMinutes  int
	NearWaitMinutes   int
	NearPositionLimit int

	CalledReliefStep  float64
	CalledReliefFloor float64

	RetrainInterval time.Duration
	HistoryWindow   time.Duration
	MinSamples      int
}

// DefaultParams returns the production estimator settings
func DefaultParams() Params {
	return Params{
		MinutesPerPosition: DefaultMinutesPerPosition,
		HalvedFloorMinutes: DefaultHalvedFloorMinutes,
		MinEstimate:        DefaultMinEstimate,
		MaxEstimate:        DefaultMaxEstimate,
		FallbackPerPos:     DefaultFallbackPerPos,
		ShortWaitMinutes:   DefaultShortWaitMinutes,
		NearWaitMinutes:    DefaultNearWaitMinutes,
		NearPositionLimit:  DefaultNearPositionLimit,
		CalledReliefStep:   DefaultCalledReliefStep,
		CalledReliefFloor:  DefaultCalledReliefFloor,
		RetrainInterval:    DefaultRetrainInterval,
		HistoryWindow:      DefaultHistoryWindow,
		MinSamples:         DefaultMinSamples,
	}
}

// PartySizeFactor scales the estimate by how hard a party is to seat
func PartySizeFactor(partySize int) float64 {
	switch {
	case partySize <= 2:
		return 0.8
	case partySize <= 4:
		return 1.0
	case partySize <= 6:
		return 1.2
	case partySize <= 8:
		return 1.5
	default:
		return 1.8
	}
}

// AvailabilityFactor scales the estimate by the number of free suitable tables
func AvailabilityFactor(available int) float64 {
	switch {
	case available <= 0:
		return 1.5
	case available == 1:
		return 1.2
	case available <= 3:
		return 1.0
	default:
		return 0.8
	}
}
