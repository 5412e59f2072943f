package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMaxSessions = 1000
	DefaultIdleTTL     = time.Hour
)

// Sessions maps conversation ids to their memories. It holds at most max
// conversations; idle ones expire and the least recently used one is
// evicted to make room.
type Sessions struct {
	mu     sync.Mutex
	window int
	max    int
	idle   time.Duration
	byID   map[string]*session
	now    func() time.Time
}

type session struct {
	mem      *Memory
	lastUsed time.Time
}

// NewSessions creates a registry. Zero maxSessions or idle select the defaults.
func NewSessions(window, maxSessions int, idle time.Duration) *Sessions {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idle <= 0 {
		idle = DefaultIdleTTL
	}
	return &Sessions{
		window: window,
		max:    maxSessions,
		idle:   idle,
		byID:   make(map[string]*session),
		now:    time.Now,
	}
}

// Get returns the memory for id, creating it on first use. An empty id
// starts a new conversation; the id actually used is returned.
func (s *Sessions) Get(id string) (string, *Memory) {
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.byID[id]; ok && now.Sub(e.lastUsed) <= s.idle {
		e.lastUsed = now
		return id, e.mem
	}
	s.expire(now)
	for len(s.byID) >= s.max {
		s.evictOldest()
	}
	e := &session{mem: New(s.window), lastUsed: now}
	s.byID[id] = e
	return id, e.mem
}

func (s *Sessions) expire(now time.Time) {
	for id, e := range s.byID {
		if now.Sub(e.lastUsed) > s.idle {
			delete(s.byID, id)
		}
	}
}

func (s *Sessions) evictOldest() {
	var oldest string
	var at time.Time
	for id, e := range s.byID {
		if oldest == "" || e.lastUsed.Before(at) {
			oldest, at = id, e.lastUsed
		}
	}
	delete(s.byID, oldest)
}

// Drop forgets a conversation.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
