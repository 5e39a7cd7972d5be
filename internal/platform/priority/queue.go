package priority

import (
	"sort"
	"time"
)

// Order sorts items into queue order: descending by score, ties broken by
// earlier requested-at so equal-priority requests stay FIFO. The sort is
// stable, so two observers of the same snapshot always see the same order.
func Order[T any](items []T, rank func(T) (score int, requestedAt time.Time)) {
	sort.SliceStable(items, func(i, j int) bool {
		si, ti := rank(items[i])
		sj, tj := rank(items[j])
		if si != sj {
			return si > sj
		}
		return ti.Before(tj)
	})
}
