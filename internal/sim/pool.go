package sim

import (
	"golang.org/x/sync/errgroup"
)

// minRangePerWorker keeps tiny grids on the calling goroutine.
const minRangePerWorker = 64

// Pool runs index ranges across a bounded set of goroutines. Only the
// per-chunk passes use it: every iteration there writes its own slot, so the
// parallel result matches the serial one exactly.
type Pool struct {
	workers int
}

// NewPool returns a pool of the given width. workers <= 1 runs everything inline.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers returns the configured width.
func (p *Pool) Workers() int {
	return p.workers
}

// ForRange calls fn over contiguous sub-ranges covering [0, n).
func (p *Pool) ForRange(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	parts := p.workers
	if maxParts := n / minRangePerWorker; parts > maxParts {
		parts = maxParts
	}
	if parts <= 1 {
		fn(0, n)
		return
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	step := (n + parts - 1) / parts
	for lo := 0; lo < n; lo += step {
		hi := lo + step
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait() // fn cannot fail
}
