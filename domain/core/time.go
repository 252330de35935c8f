package core

import (
	"time"
)

// EpochWidth is the width of one alignment bucket.
const EpochWidth = time.Second

// FloorSecond truncates t to the whole UTC second at or before it.
func FloorSecond(t time.Time) time.Time {
	return t.UTC().Truncate(EpochWidth)
}

// SecondsBetween returns floor((to - from) / 1s). The second result is false when to is before from.
func SecondsBetween(from, to time.Time) (int, bool) {
	d := to.Sub(from)
	if d < 0 {
		return 0, false
	}
	return int(d / EpochWidth), true
}
