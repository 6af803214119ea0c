// Package crawler downloads the section pages of every listed IPO.
package crawler

import (
	"path/filepath"
	"sync"
)

// Job is one page to download.
type Job struct {
	Segment  string
	Section  string
	Company  string
	URL      string
	Path     string // output file
	External bool   // fetched through the external-page fetcher
}

// JobQueue holds pending jobs, deduplicated by output path.
type JobQueue struct {
	mu    sync.Mutex
	queue []Job
	seen  map[string]bool
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{
		queue: make([]Job, 0),
		seen:  make(map[string]bool),
	}
}

// Add enqueues a job unless another job already writes the same file.
func (q *JobQueue) Add(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job.Path == "" || job.URL == "" {
		return false
	}
	key := filepath.Clean(job.Path)
	if q.seen[key] {
		return false
	}
	q.seen[key] = true
	q.queue = append(q.queue, job)
	return true
}

// Pop removes and returns the next job.
func (q *JobQueue) Pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return Job{}, false
	}
	job := q.queue[0]
	q.queue = q.queue[1:]
	return job, true
}

// Len returns the number of pending jobs.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Has reports whether a job for path was ever queued.
func (q *JobQueue) Has(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seen[filepath.Clean(path)]
}
