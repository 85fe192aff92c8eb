package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/cvrgpt/internal/model"
)

// Thread is per-conversation state. It holds only what later turns need:
// the resolved company, requested years, pending disambiguation and the
// last rendered table for CSV export.
type Thread struct {
	ID        string
	CVR       string
	Years     []int
	LastTable *model.TableBlock

	// Pending disambiguation: candidates shown to the user and the message
	// to re-dispatch once one is picked.
	Choices        []model.ChoiceItem
	PendingMessage string

	CreatedAt time.Time
	touchedAt time.Time
}

// ThreadStore keeps threads in memory with an idle-expiry bound, so
// abandoned conversations cannot grow the process without limit. Turns are
// last-write-wins; the store never merges concurrent updates.
type ThreadStore struct {
	mu      sync.Mutex
	threads map[string]*Thread
	ttl     time.Duration
	now     func() time.Time
}

// NewThreadStore creates a store whose threads expire after ttl of
// inactivity. A zero ttl keeps threads for the process lifetime.
func NewThreadStore(ttl time.Duration) *ThreadStore {
	return &ThreadStore{
		threads: make(map[string]*Thread),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewThreadStoreWithClock is NewThreadStore with an injectable clock.
func NewThreadStoreWithClock(ttl time.Duration, now func() time.Time) *ThreadStore {
	s := NewThreadStore(ttl)
	s.now = now
	return s
}

func (s *ThreadStore) expired(t *Thread, now time.Time) bool {
	return s.ttl != 0 && now.Sub(t.touchedAt) > s.ttl
}

// GetOrCreate returns the thread with the given id, creating a fresh one
// when id is empty, unknown or expired. The returned thread is a copy; call
// Put to persist changes.
func (s *ThreadStore) GetOrCreate(id string) Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id != "" {
		if t, ok := s.threads[id]; ok && !s.expired(t, now) {
			t.touchedAt = now
			return *t
		}
	}

	t := &Thread{ID: uuid.NewString(), CreatedAt: now, touchedAt: now}
	s.threads[t.ID] = t
	s.sweep(now)
	return *t
}

// Get returns the thread with the given id, if present and unexpired.
func (s *ThreadStore) Get(id string) (Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t, ok := s.threads[id]
	if !ok || s.expired(t, now) {
		return Thread{}, false
	}
	t.touchedAt = now
	return *t, true
}

// Put stores the thread, replacing any previous state (last-write-wins).
func (s *ThreadStore) Put(t Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.touchedAt = s.now()
	s.threads[t.ID] = &t
}

// Len reports the number of live threads.
func (s *ThreadStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, t := range s.threads {
		if !s.expired(t, now) {
			n++
		}
	}
	return n
}

// sweep drops expired threads. Called with the lock held.
func (s *ThreadStore) sweep(now time.Time) {
	for id, t := range s.threads {
		if s.expired(t, now) {
			delete(s.threads, id)
		}
	}
}
