package enrich

import "sync"

// workerPool bounds the number of in-flight provider calls within a tier to
// the tier's budget.
type workerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

func newWorkerPool(maxWorkers int) *workerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &workerPool{semaphore: make(chan struct{}, maxWorkers)}
}

// Submit enqueues a job for execution in the pool.
func (wp *workerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *workerPool) Wait() {
	wp.wg.Wait()
}
