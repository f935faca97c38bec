package event

import (
	"sort"
	"strings"
)

// SortByStart orders records by start time, earliest first. Records without a
// parseable date go last, ordered by title. The sort is stable.
func SortByStart(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return compareByStart(records[i], records[j])
	})
}

// compareByStart returns true if i should come before j
func compareByStart(i, j *Record) bool {
	startI := i.StartsAt()
	startJ := j.StartsAt()

	// If both dates are valid, compare them
	if !startI.IsZero() && !startJ.IsZero() {
		return startI.Before(startJ)
	}

	// If only one date is valid, put the valid one first
	if !startI.IsZero() {
		return true
	}
	if !startJ.IsZero() {
		return false
	}

	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}
