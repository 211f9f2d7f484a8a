package outlets

import "time"

// ResolveReservationPercent returns the reservation percentage in force at the given
// instant. When several active rules cover the instant the highest percentage wins.
func ResolveReservationPercent(defaultPercent int, rules []PeakHourRule, at time.Time) int {
	percent := defaultPercent
	matched := false
	for _, rule := range rules {
		if !rule.Active || !rule.covers(at) {
			continue
		}
		if !matched || rule.ReservationPercent > percent {
			percent = rule.ReservationPercent
			matched = true
		}
	}
	return percent
}

// covers reports whether the rule window includes at, which must already be in outlet local time
func (r PeakHourRule) covers(at time.Time) bool {
	start, err := parseClock(r.StartTime)
	if err != nil {
		return false
	}
	end, err := parseClock(r.EndTime)
	if err != nil {
		return false
	}

	minute := at.Hour()*60 + at.Minute()
	day := at.Weekday()

	if start < end {
		return day == r.DayOfWeek && minute >= start && minute < end
	}
	if start == end {
		// whole day
		return day == r.DayOfWeek
	}

	// overnight: the tail belongs to the following weekday
	next := (r.DayOfWeek + 1) % 7
	return (day == r.DayOfWeek && minute >= start) || (day == next && minute < end)
}

// validateWindow checks both clocks parse
func validateWindow(start, end string) error {
	if _, err := parseClock(start); err != nil {
		return err
	}
	_, err := parseClock(end)
	return err
}
