package cleanup

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/metrics"
)

// Scheduler runs deletions on a small worker pool so handlers never wait for them.
type Scheduler struct {
	deleter *Deleter
	root    string
	jobs    chan string

	// OnFailure is called when a file could not be deleted
	OnFailure func(path string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewScheduler starts workers goroutines. root is the download directory; after a
// file is removed its parent directory is removed too when it is inside root.
func NewScheduler(deleter *Deleter, root string, workers, queueSize int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		deleter: deleter,
		root:    filepath.Clean(root),
		jobs:    make(chan string, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

// Schedule queues path for deletion and returns immediately. When the queue is
// full the deletion runs on its own goroutine instead of being dropped.
func (s *Scheduler) Schedule(path string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return
	}

	metrics.CleanupQueueDepth.Inc()
	select {
	case s.jobs <- path:
	default:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(path)
		}()
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for path := range s.jobs {
		s.run(path)
	}
}

func (s *Scheduler) run(path string) {
	defer metrics.CleanupQueueDepth.Dec()

	if !s.deleter.Delete(s.ctx, path) {
		if s.OnFailure != nil {
			s.OnFailure(path)
		}
		return
	}
	s.removeParent(path)
}

// removeParent drops the per-request directory once its file is gone.
func (s *Scheduler) removeParent(path string) {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == s.root || filepath.Dir(dir) != s.root {
		return
	}
	// Fails harmlessly when the directory is not empty.
	_ = s.deleter.Fs.Remove(dir)
}

// Stop stops accepting work and waits for queued deletions. When ctx expires
// first, in-flight backoff waits are cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.jobs)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return errors.Join(errors.New("cleanup scheduler stopped before queue drained"), ctx.Err())
	}
}
