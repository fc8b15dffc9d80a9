package attendance

import (
	"slices"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/checkin"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/interval"
)

// PairEvents turns check-ins into work intervals. At most one IN is open at a
// time: a newer IN replaces an unmatched one, an OUT closes the open IN, and
// an OUT with nothing open is dropped. Pairs that do not move forward in time
// are dropped as well.
func PairEvents(events []checkin.Event) interval.Set {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b checkin.Event) int {
		return a.Time.Compare(b.Time)
	})

	var (
		pairs  interval.Set
		open   time.Time
		isOpen bool
	)
	for _, e := range sorted {
		switch e.LogType {
		case checkin.LogTypeIn:
			open, isOpen = e.Time, true
		case checkin.LogTypeOut:
			if !isOpen {
				continue
			}
			if e.Time.After(open) {
				pairs = append(pairs, interval.New(open, e.Time))
			}
			isOpen = false
		}
	}

	return pairs
}
