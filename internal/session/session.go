// Package session keeps the page state of each browser session.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/domain/feedback"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
	"github.com/kailas-cloud/vecdemo/internal/page"
	"github.com/kailas-cloud/vecdemo/internal/usecase/imagepage"
	"github.com/kailas-cloud/vecdemo/internal/usecase/knowledgepage"
)

// Session holds one browser's page controllers.
type Session struct {
	ID        string
	Images    *imagepage.Service
	Knowledge *knowledgepage.Service

	lastSeen time.Time
}

// Factory builds the controllers of a fresh session.
type Factory func(id string) (*Session, error)

// NewFactory returns a Factory wiring both pages to their backends.
func NewFactory(
	images imagepage.Backend,
	knowledge knowledgepage.Backend,
	imagesMode, knowledgeMode feedback.Mode,
	logger *zap.Logger,
) Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(id string) (*Session, error) {
		ip, err := page.NewImages()
		if err != nil {
			return nil, fmt.Errorf("image page: %w", err)
		}
		kp, err := page.NewKnowledge()
		if err != nil {
			return nil, fmt.Errorf("knowledge page: %w", err)
		}
		l := logger.With(zap.String("session", id))
		return &Session{
			ID:        id,
			Images:    imagepage.New(ip, images, imagesMode, l),
			Knowledge: knowledgepage.New(kp, knowledge, knowledgeMode, l),
		}, nil
	}
}

// Store keeps sessions in memory until they are idle for longer than the TTL.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	limit    int
	factory  Factory
	now      func() time.Time
	logger   *zap.Logger
}

// NewStore creates a Store. A ttl of zero keeps sessions forever.
func NewStore(ttl time.Duration, factory Factory, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		logger:   logger,
	}
}

// WithLimit caps the number of stored sessions. Zero or less means no cap.
func (s *Store) WithLimit(n int) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = n
	return s
}

// Acquire returns the session with the given id, creating a new one under a
// fresh id when it is unknown or expired. created reports a new session.
func (s *Store) Acquire(id string) (sess *Session, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[id]; ok {
		if !s.expired(sess, now) {
			sess.lastSeen = now
			return sess, false, nil
		}
		delete(s.sessions, id)
	}

	newID := uuid.NewString()
	sess, err = s.factory(newID)
	if err != nil {
		return nil, false, fmt.Errorf("create session: %w", err)
	}
	sess.lastSeen = now
	if s.limit > 0 && len(s.sessions) >= s.limit {
		s.evictOldest()
	}
	s.sessions[newID] = sess
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.logger.Debug("session created", zap.String("session", newID))
	return sess, true, nil
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle since before now-ttl and returns how many were dropped.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			dropped++
		}
	}
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return dropped
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || s.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Info("expired sessions dropped", zap.Int("count", n))
			}
		}
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

// evictOldest drops the least recently seen session. Callers hold s.mu.
func (s *Store) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	if oldestID == "" {
		return
	}
	delete(s.sessions, oldestID)
	metrics.SessionsEvictedTotal.Inc()
	s.logger.Debug("session evicted", zap.String("session", oldestID))
}
