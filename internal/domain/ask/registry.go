package ask

import (
	"sync"
	"time"
)

// stopper cancels a pending timer. *time.Timer satisfies it.
type stopper interface {
	Stop() bool
}

// settlement is what a waiting caller receives: an answer or an error.
type settlement struct {
	answer string
	err    error
}

// PendingQuestion is an outstanding question awaiting an answer.
type PendingQuestion struct {
	ID        string
	Question  string
	Title     string
	CreatedAt time.Time
	Timeout   time.Duration

	timer  stopper
	result chan settlement
}

// Snapshot is a read-only copy of a pending question for the view page.
type Snapshot struct {
	ID        string
	Question  string
	Title     string
	CreatedAt time.Time
	Timeout   time.Duration
}

// Remaining returns the time left before the question expires, never negative.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	left := s.CreatedAt.Add(s.Timeout).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Registry holds the pending questions of one coordinator.
// Removal through take is the only way a question is settled.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*PendingQuestion
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]*PendingQuestion)}
}

// add registers q and arms its timer while holding the lock, so a settlement
// racing the registration always sees the timer.
func (r *Registry) add(q *PendingQuestion, arm func() stopper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[q.ID] = q
	q.timer = arm()
}

// get returns a snapshot of the question with id.
func (r *Registry) get(id string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.pending[id]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		ID:        q.ID,
		Question:  q.Question,
		Title:     q.Title,
		CreatedAt: q.CreatedAt,
		Timeout:   q.Timeout,
	}, true
}

// take removes and returns the question with id. Only one caller ever
// receives a given question.
func (r *Registry) take(id string) (*PendingQuestion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return q, ok
}

// Len returns the number of pending questions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
