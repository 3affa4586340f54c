package guard

import "sync"

type operation[T any] struct {
	wg     *sync.WaitGroup
	result T
	err    error
}

// flightGroup deduplicates concurrent calls by key: while one goroutine
// runs fn for a key, others calling with the same key wait and share its
// result instead of running fn again.
type flightGroup[K comparable, T any] struct {
	operations sync.Map // map[K]*operation[T]
}

func (g *flightGroup[K, T]) Do(key K, fn func() (T, error)) (T, error) {
	var wg sync.WaitGroup
	wg.Add(1)
	defer wg.Done()

	if inflight, loaded := g.operations.LoadOrStore(key, &operation[T]{wg: &wg}); loaded {
		op := inflight.(*operation[T])
		op.wg.Wait()
		return op.result, op.err
	} else {
		op := inflight.(*operation[T])
		op.result, op.err = fn()
		g.operations.Delete(key)
		return op.result, op.err
	}
}
