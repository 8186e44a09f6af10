package sim

import (
	"runtime"
	"sync"
)

// parallelThreshold is the default minimum particle count for parallel passes.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 256

// passFunc processes slots [start, end) on the given worker.
type passFunc func(start, end, worker int)

// workerScratch holds per-worker counters, summed after each pass.
type workerScratch struct {
	Contacts int
	Faulted  int
}

// workChunk represents a range of slots for a worker to process.
type workChunk struct {
	start, end int
	fn         passFunc
}

// workerPool runs passes over particle ranges with a barrier after each pass.
type workerPool struct {
	scratches  []workerScratch
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newWorkerPool(numWorkers, threshold int) *workerPool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if threshold < 1 {
		threshold = parallelThreshold
	}
	return &workerPool{
		numWorkers: numWorkers,
		threshold:  threshold,
		scratches:  make([]workerScratch, numWorkers),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *workerPool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *workerPool) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *workerPool) worker(workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(chunk.start, chunk.end, workerID)
			p.doneChan <- struct{}{}
		}
	}
}

// resetScratch zeroes the per-worker counters.
func (p *workerPool) resetScratch() {
	clear(p.scratches)
}

// totals sums the per-worker counters.
func (p *workerPool) totals() (contacts, faulted int) {
	for _, s := range p.scratches {
		contacts += s.Contacts
		faulted += s.Faulted
	}
	return contacts, faulted
}

// run executes fn over [0, n) and returns when every chunk is done.
func (p *workerPool) run(n int, fn passFunc) {
	if n == 0 {
		return
	}
	if n < p.threshold || p.numWorkers == 1 {
		fn(0, n, 0)
		return
	}

	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end, fn: fn}
		chunksDispatched++
	}

	// Barrier: no pass reads state another pass is still writing.
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}
