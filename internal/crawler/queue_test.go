package crawler

import (
	"fmt"
	"sync"
	"testing"
)

// --- JobQueue Tests ---

func TestJobQueue_Add_NewJob(t *testing.T) {
	q := NewJobQueue()

	if !q.Add(Job{URL: "https://example.com/a", Path: "out/a.html"}) {
		t.Error("Add() should return true for a new job")
	}
	if q.Len() != 1 {
		t.Errorf("expected queue length 1, got %d", q.Len())
	}
}

func TestJobQueue_Add_DuplicatePath(t *testing.T) {
	q := NewJobQueue()

	q.Add(Job{URL: "https://example.com/a", Path: "out/a.html"})
	added := q.Add(Job{URL: "https://example.com/other", Path: "out/./a.html"})

	if added {
		t.Error("Add() should return false for a job writing the same file")
	}
	if q.Len() != 1 {
		t.Errorf("expected queue length 1, got %d", q.Len())
	}
}

func TestJobQueue_Add_Incomplete(t *testing.T) {
	q := NewJobQueue()

	if q.Add(Job{Path: "out/a.html"}) {
		t.Error("Add() should reject a job without URL")
	}
	if q.Add(Job{URL: "https://example.com"}) {
		t.Error("Add() should reject a job without path")
	}
}

func TestJobQueue_Pop_Empty(t *testing.T) {
	q := NewJobQueue()

	job, ok := q.Pop()
	if ok {
		t.Error("Pop() should return false for empty queue")
	}
	if job != (Job{}) {
		t.Errorf("expected zero job, got %+v", job)
	}
}

func TestJobQueue_Pop_FIFO_Order(t *testing.T) {
	q := NewJobQueue()
	for i := range 3 {
		q.Add(Job{URL: fmt.Sprintf("https://example.com/%d", i), Path: fmt.Sprintf("out/%d.html", i)})
	}

	for i := range 3 {
		job, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() #%d should return true", i)
		}
		if want := fmt.Sprintf("out/%d.html", i); job.Path != want {
			t.Errorf("Pop() #%d = %s, want %s", i, job.Path, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestJobQueue_Has_AfterPop(t *testing.T) {
	q := NewJobQueue()
	q.Add(Job{URL: "https://example.com/a", Path: "out/a.html"})
	q.Pop()

	if !q.Has("out/a.html") {
		t.Error("Has() should remember popped jobs")
	}
	if q.Add(Job{URL: "https://example.com/a", Path: "out/a.html"}) {
		t.Error("Add() should not requeue a popped job")
	}
}

func TestJobQueue_ConcurrentAccess(t *testing.T) {
	q := NewJobQueue()
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Add(Job{URL: "https://example.com", Path: fmt.Sprintf("out/%d.html", n%50)})
		}(i)
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 unique jobs, got %d", q.Len())
	}
}
