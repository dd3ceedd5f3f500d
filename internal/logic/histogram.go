package logic

// Histogram counts breaks per hour of the day, indexed by 24-hour clock hour.
type Histogram [HoursPerDay]uint32

// Record adds n to the slot for hour. Hours outside 0-23 are ignored and
// reported as false.
func (h *Histogram) Record(hour int, n uint32) bool {
	if hour < 0 || hour >= HoursPerDay {
		return false
	}
	h[hour] += n
	return true
}

// Slot returns the count for hour, or 0 for an hour outside 0-23.
func (h *Histogram) Slot(hour int) uint32 {
	if hour < 0 || hour >= HoursPerDay {
		return 0
	}
	return h[hour]
}

// Busiest returns the hour with the highest count. Ties resolve to the
// lowest hour; an empty histogram reports hour 0.
func (h *Histogram) Busiest() int {
	busiest := 0
	for i := 1; i < HoursPerDay; i++ {
		if h[i] > h[busiest] {
			busiest = i
		}
	}
	return busiest
}

// Total returns the sum of all slots.
func (h *Histogram) Total() uint32 {
	var total uint32
	for _, n := range h {
		total += n
	}
	return total
}
