package queue

import (
	"strings"
	"sync"
)

// Queue is a thread-safe FIFO of lecture URLs. A URL is accepted once; later
// additions of the same lecture are ignored.
type Queue struct {
	urls []string
	seen map[string]bool
	done int
	mu   sync.Mutex
}

// New creates a new Queue instance
func New() *Queue {
	return &Queue{
		urls: make([]string, 0),
		seen: make(map[string]bool),
	}
}

// Key is the form used to detect duplicate lecture URLs: trimmed, without
// fragment and without a trailing slash.
func Key(url string) string {
	url = strings.TrimSpace(url)
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	return strings.TrimRight(url, "/")
}

// Add queues url unless it is blank or was added before.
func (q *Queue) Add(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := Key(url)
	if key == "" || q.seen[key] {
		return false
	}
	q.seen[key] = true
	q.urls = append(q.urls, strings.TrimSpace(url))
	return true
}

// Next returns the next URL to process.
func (q *Queue) Next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.urls) == 0 {
		return "", false
	}

	url := q.urls[0]
	q.urls = q.urls[1:]
	q.done++

	return url, true
}

// Len returns the number of URLs still waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.urls)
}

// Total returns how many distinct URLs were ever queued.
func (q *Queue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}

// Done returns how many URLs have been handed out by Next.
func (q *Queue) Done() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}
