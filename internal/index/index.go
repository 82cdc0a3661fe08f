// Package index wraps a parsed OEM dataset with lookup, nearest-past search,
// and range-limited listing over its ordered state vectors.
package index

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
)

var (
	// ErrInvalidQuery reports malformed query parameters (negative limit/offset).
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound reports a well-formed but unmatched epoch timestamp.
	ErrNotFound = errors.New("epoch not found")

	// ErrEmptyDataset reports a loaded dataset with zero state vectors.
	ErrEmptyDataset = errors.New("dataset contains no state vectors")
)

// Index provides epoch lookups over a single immutable dataset snapshot.
// Construct a new Index per snapshot; it never observes dataset swaps.
type Index struct {
	vectors []oem.StateVector
	byEpoch map[string]int
}

// New builds an Index over the dataset's state vectors. On (defensively
// handled) duplicate timestamps the first record in source order wins.
func New(ds *oem.Dataset) *Index {
	byEpoch := make(map[string]int, len(ds.StateVectors))
	for i, sv := range ds.StateVectors {
		if _, ok := byEpoch[sv.Epoch]; !ok {
			byEpoch[sv.Epoch] = i
		}
	}
	return &Index{
		vectors: ds.StateVectors,
		byEpoch: byEpoch,
	}
}

// Len returns the number of state vectors in the snapshot.
func (ix *Index) Len() int {
	return len(ix.vectors)
}

// List returns a contiguous slice of state vectors in source order.
// A nil limit means "all remaining"; a nil offset means 0. An offset past
// the end of the dataset yields an empty slice. Negative values are rejected
// with ErrInvalidQuery.
func (ix *Index) List(limit, offset *int) ([]oem.StateVector, error) {
	off := 0
	if offset != nil {
		if *offset < 0 {
			return nil, fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalidQuery, *offset)
		}
		off = *offset
	}

	lim := len(ix.vectors)
	if limit != nil {
		if *limit < 0 {
			return nil, fmt.Errorf("%w: limit must be >= 0, got %d", ErrInvalidQuery, *limit)
		}
		lim = *limit
	}

	if off >= len(ix.vectors) {
		return []oem.StateVector{}, nil
	}

	end := off + lim
	if end > len(ix.vectors) || end < off {
		end = len(ix.vectors)
	}
	return ix.vectors[off:end], nil
}

// Find returns the state vector whose epoch string matches ts exactly.
func (ix *Index) Find(ts string) (oem.StateVector, error) {
	i, ok := ix.byEpoch[ts]
	if !ok {
		return oem.StateVector{}, fmt.Errorf("%w: %s", ErrNotFound, ts)
	}
	return ix.vectors[i], nil
}

// NearestPast returns the record with the latest epoch that is <= t.
// If every record is in the future relative to t, the earliest record is
// returned as a documented fallback. An empty dataset yields ErrEmptyDataset.
func (ix *Index) NearestPast(t time.Time) (oem.StateVector, error) {
	if len(ix.vectors) == 0 {
		return oem.StateVector{}, ErrEmptyDataset
	}

	// Epoch times are monotonically non-decreasing in source order, so a
	// binary search finds the first record strictly after t.
	i := sort.Search(len(ix.vectors), func(i int) bool {
		return ix.vectors[i].EpochTime.After(t)
	})
	if i == 0 {
		// All records in the future: fall back to the earliest.
		return ix.vectors[0], nil
	}
	return ix.vectors[i-1], nil
}
