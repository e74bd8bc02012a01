package centrality

import (
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/azybler/route_impact/pkg/graph"
)

// blockSize is the number of consecutive sources whose dependencies are
// summed into one partial vector before it is folded into the total.
// Summation order is fixed by the block layout, not by the worker count.
const blockSize = 64

type blockResult struct {
	block   uint32
	partial []float64
}

// accumulate sums the dependencies of every source. Sources are grouped in
// fixed blocks; each block's partial is built in source order and partials
// are added to the total in block order, so the floating-point result does
// not depend on how many workers ran.
func accumulate(c *graph.CSR, workers int) []float64 {
	n := c.NumNodes
	total := make([]float64, n)
	numBlocks := (n + blockSize - 1) / blockSize

	if workers < 2 || numBlocks < 2 {
		st := newSourceState(n)
		partial := make([]float64, n)
		for b := range numBlocks {
			clear(partial)
			st.runBlock(c, b, partial)
			addInto(total, partial)
		}
		return total
	}

	workers = min(workers, int(numBlocks))

	// A fixed set of partial buffers doubles as the in-flight limit. A
	// worker takes a buffer before claiming a block, so the lowest
	// unfinished block always owns a buffer and the ordered fold below
	// cannot stall.
	inFlight := 2 * workers
	buffers := make(chan []float64, inFlight)
	for range inFlight {
		buffers <- make([]float64, n)
	}
	results := make(chan blockResult, inFlight)

	var next atomic.Uint32
	p := pool.New().WithMaxGoroutines(workers)
	for range workers {
		p.Go(func() {
			st := newSourceState(n)
			for {
				buf := <-buffers
				b := next.Add(1) - 1
				if b >= numBlocks {
					buffers <- buf
					return
				}
				clear(buf)
				st.runBlock(c, b, buf)
				results <- blockResult{block: b, partial: buf}
			}
		})
	}

	pending := make(map[uint32][]float64, inFlight)
	for want := range numBlocks {
		buf, ok := pending[want]
		for !ok {
			r := <-results
			if r.block == want {
				buf, ok = r.partial, true
			} else {
				pending[r.block] = r.partial
			}
		}
		delete(pending, want)
		addInto(total, buf)
		buffers <- buf
	}
	p.Wait()

	return total
}

// runBlock accumulates the sources of block b into partial.
func (s *sourceState) runBlock(c *graph.CSR, b uint32, partial []float64) {
	first := b * blockSize
	last := min(first+blockSize, c.NumNodes)
	for src := first; src < last; src++ {
		s.run(c, src, partial)
	}
}

func addInto(dst, src []float64) {
	for i, v := range src {
		dst[i] += v
	}
}
