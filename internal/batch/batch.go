// Package batch runs lookups over a list in fixed-size concurrent chunks.
package batch

import "github.com/sourcegraph/conc"

// Process applies lookup to every item and returns the results in input order.
//
// Items are split into consecutive chunks of size elements. Lookups within a
// chunk run concurrently; the next chunk starts only after the whole current
// chunk has finished, so at most size lookups are ever in flight. A size of
// zero or less is treated as 1.
//
// lookup is expected to report failure through its return value. A panic in
// lookup is re-raised from Process once the current chunk has settled.
func Process[T, R any](items []T, size int, lookup func(T) R) []R {
	if size <= 0 {
		size = 1
	}

	results := make([]R, len(items))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))

		var wg conc.WaitGroup
		for i := start; i < end; i++ {
			i := i // per-iteration copy; go directive is below 1.22
			wg.Go(func() {
				results[i] = lookup(items[i])
			})
		}
		wg.Wait()
	}

	return results
}
