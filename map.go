package threadpool

// Map applies fn to each item on p and returns the results in input order.
// Each job writes only its own slot, so no further synchronization is needed.
//
// Semantics follow ForEach: on rejection it returns the partially filled
// results (zero values for items that were not accepted, were never run or whose
// fn panicked) together with an error wrapping ErrPoolClosed or ErrNoWorkers.
func Map[T, R any](p *Pool, items []T, fn func(T) R) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]R, len(items))
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}

	err := ForEach(p, idx, func(i int) {
		results[i] = fn(items[i])
	})
	return results, err
}
