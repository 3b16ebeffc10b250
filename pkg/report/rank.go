// Package report projects history and candidate state into rankings and plain
// text lines. Nothing here mutates tracker state.
package report

import (
	"sort"

	"github.com/climabus/climabus/pkg/decode"
)

// DefaultTop is the number of byte positions shown per identifier.
const DefaultTop = 3

// Source is the read-only view both trackers satisfy.
type Source interface {
	ID() uint32
	Length() int
	ChangeCount(i int) int
	// Temperatures returns the plausible decoded values for byte i.
	Temperatures(i int) []decode.Signal
}

// Ranked is one active byte position.
type Ranked struct {
	Index   int
	Changes int
	Values  []decode.Signal
}

// TopBytes ranks byte positions by change count, highest first, ties broken
// by the lower index. Positions that never changed are left out.
func TopBytes(src Source, n int) []Ranked {
	if n <= 0 {
		n = DefaultTop
	}
	var all []Ranked
	for i := 0; i < 8; i++ {
		c := src.ChangeCount(i)
		if c == 0 {
			continue
		}
		all = append(all, Ranked{Index: i, Changes: c})
	}
	sort.SliceStable(all, func(a, b int) bool {
		if all[a].Changes != all[b].Changes {
			return all[a].Changes > all[b].Changes
		}
		return all[a].Index < all[b].Index
	})
	if len(all) > n {
		all = all[:n]
	}
	for k := range all {
		for _, v := range src.Temperatures(all[k].Index) {
			if v.Plausible() {
				all[k].Values = append(all[k].Values, v)
			}
		}
	}
	return all
}

// TotalChanges sums every byte counter of src.
func TotalChanges(src Source) int {
	total := 0
	for i := 0; i < 8; i++ {
		total += src.ChangeCount(i)
	}
	return total
}
