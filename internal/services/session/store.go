// Package session keeps one orchestrator per editing session in memory.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/product-studio/internal/services/orchestrator"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID           string
	CreatedAt    time.Time
	Orchestrator *orchestrator.Orchestrator

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Factory builds the orchestrator of a new session.
type Factory func(sessionID string) *orchestrator.Orchestrator

type Store struct {
	factory Factory
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewStore starts a janitor that drops sessions idle for longer than ttl.
// A non-positive ttl keeps sessions until deleted. Stop must be called to
// release the janitor.
func NewStore(factory Factory, ttl time.Duration, logger *zap.Logger) *Store {
	s := &Store{
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if ttl > 0 {
		go s.janitor(janitorInterval(ttl))
	} else {
		close(s.done)
	}
	return s
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

func (s *Store) Create() *Session {
	now := s.now()
	id := uuid.NewString()
	sess := &Session{
		ID:           id,
		CreatedAt:    now,
		Orchestrator: s.factory(id),
		lastSeen:     now,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info("Session created", zap.String("session_id", id))
	return sess
}

// Get returns the session and marks it as seen.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	sess.touch(s.now())
	return sess, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	sess.Orchestrator.Reset()
	s.logger.Info("Session deleted", zap.String("session_id", id))
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Expire drops sessions idle for longer than the TTL and returns how many
// were dropped. Sessions with a run in progress are kept.
func (s *Store) Expire() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	var expired []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.LastSeen().After(cutoff) || sess.Orchestrator.State().Running() {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, sess)
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Orchestrator.Reset()
		s.logger.Info("Session expired", zap.String("session_id", sess.ID))
	}
	return len(expired)
}

func (s *Store) janitor(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Expire()
		}
	}
}

// Stop ends the janitor and waits for it to exit.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
