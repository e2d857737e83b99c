package dynamo

import "sync"

// Ranges splits [0, n) into at most workers contiguous half-open ranges of
// at least minChunk indices each, in order.
func Ranges(n, minChunk, workers int) [][2]int {
	if n <= 0 {
		return nil
	}
	minChunk = max(minChunk, 1)
	workers = max(min(workers, n/minChunk), 1)

	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// ParallelFor runs fn once per range from Ranges, concurrently when there is
// more than one. Ranges are disjoint, so fn may write index-aligned slices
// without locking and the result does not depend on the worker count.
func ParallelFor(n, minChunk, workers int, fn func(start, end int)) {
	ranges := Ranges(n, minChunk, workers)
	if len(ranges) == 1 {
		fn(ranges[0][0], ranges[0][1])
		return
	}

	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(r[0], r[1])
		}()
	}
	wg.Wait()
}
