// Package batch groups independent asynchronous sub-operations under a single completion.
package batch

import (
	"sort"
	"sync"
)

// Failure records a sub-operation that did not produce a value.
type Failure struct {
	Index int
	Err   error
}

// Result is what the completion receives: the successful values sorted by the index
// they were reported under, and the failures sorted the same way.
type Result[T any] struct {
	Values   []T
	Failures []Failure
}

type indexed[T any] struct {
	index int
	value T
}

// Aggregator counts reports from n sub-operations and fires done exactly once, after
// every index in [0, n) has reported either a success or a failure.
//
// Reports may come from any goroutine. A second report for the same index, or a
// report for an index outside the batch, is ignored.
type Aggregator[T any] struct {
	mu        sync.Mutex
	size      int
	remaining int
	reported  []bool
	values    []indexed[T]
	failures  []Failure
	done      func(Result[T])
	fired     bool
}

// New creates an aggregator for n sub-operations. With n == 0 done is called
// immediately, before New returns, with an empty result.
func New[T any](n int, done func(Result[T])) *Aggregator[T] {
	if n < 0 {
		n = 0
	}
	a := &Aggregator[T]{
		size:      n,
		remaining: n,
		reported:  make([]bool, n),
		done:      done,
	}
	if n == 0 {
		a.fired = true
		if done != nil {
			done(Result[T]{Values: []T{}})
		}
	}
	return a
}

// Succeed reports a value for sub-operation i.
func (a *Aggregator[T]) Succeed(i int, v T) {
	a.report(i, func() {
		a.values = append(a.values, indexed[T]{index: i, value: v})
	})
}

// Fail reports that sub-operation i produced no value. It still counts toward completion.
func (a *Aggregator[T]) Fail(i int, err error) {
	a.report(i, func() {
		a.failures = append(a.failures, Failure{Index: i, Err: err})
	})
}

// Pending returns how many sub-operations have not reported yet.
func (a *Aggregator[T]) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

func (a *Aggregator[T]) report(i int, record func()) {
	a.mu.Lock()
	if a.fired || i < 0 || i >= a.size || a.reported[i] {
		a.mu.Unlock()
		return
	}
	a.reported[i] = true
	record()
	a.remaining--
	if a.remaining > 0 {
		a.mu.Unlock()
		return
	}
	a.fired = true
	result := a.collect()
	a.mu.Unlock()

	if a.done != nil {
		a.done(result)
	}
}

func (a *Aggregator[T]) collect() Result[T] {
	sort.Slice(a.values, func(x, y int) bool { return a.values[x].index < a.values[y].index })
	sort.Slice(a.failures, func(x, y int) bool { return a.failures[x].Index < a.failures[y].Index })

	values := make([]T, 0, len(a.values))
	for _, v := range a.values {
		values = append(values, v.value)
	}
	failures := make([]Failure, len(a.failures))
	copy(failures, a.failures)
	return Result[T]{Values: values, Failures: failures}
}
