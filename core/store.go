package core

import (
	"context"
	"sort"
)

// RecordStore persists finished simulation records. Implementations write
// each record exactly once and return the name it was stored under.
type RecordStore interface {
	Save(ctx context.Context, record *SimulationRecord) (string, error)
}

// RecordReader is the read contract consumed by the log viewer.
//
// List returns one summary per stored record sorted by start time, newest
// first. Get returns the stored document for filename or an error wrapping
// ErrNotFound.
type RecordReader interface {
	List(ctx context.Context) ([]RecordSummary, error)
	Get(ctx context.Context, filename string) ([]byte, error)
}

// SortSummaries orders summaries newest first, breaking ties by filename.
func SortSummaries(s []RecordSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].StartTime.Equal(s[j].StartTime) {
			return s[i].StartTime.After(s[j].StartTime)
		}
		return s[i].Filename < s[j].Filename
	})
}

func sortedStrings(in []string) []string {
	sort.Strings(in)
	return in
}
