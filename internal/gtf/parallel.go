package gtf

import (
	"runtime"
	"sync"
)

// lineItem holds a raw GTF line ready for parsing.
type lineItem struct {
	Seq  int
	Line int // 1-based line number in the input
	Text string
}

// lineResult holds the parse output for a single line.
type lineResult struct {
	Seq    int
	Line   int
	Record Record
	Err    error
}

// parallelParse parses lines using a pool of workers.
// Results are sent in arrival order (not sequence order).
// If workers is 0, runtime.NumCPU() is used.
func parallelParse(items <-chan lineItem, workers int) <-chan lineResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan lineResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				rec, err := parseLine(item.Text, item.Line)
				results <- lineResult{
					Seq:    item.Seq,
					Line:   item.Line,
					Record: rec,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// orderedCollect calls fn for each result in sequence-number order.
// Out-of-order results wait in a pending map until the next expected
// sequence number arrives. Blocks until the results channel is closed.
func orderedCollect(results <-chan lineResult, fn func(lineResult) error) error {
	pending := make(map[int]lineResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
