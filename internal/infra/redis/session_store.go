package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizcraze/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions own timers, so the live objects stay in a local map.
//   - Redis holds a liveness marker per session so other instances and
//     operators can see who is playing what:
//     HSET quiz:session:{sessionID} user_id {userID} quiz_id {quizID}
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	// best-effort liveness marker
	ctx := context.Background()
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.key(session.ID()), "user_id", session.UserID(), "quiz_id", session.QuizID())
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(session.ID()), s.ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if ok {
		_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
	}
}

// Touch extends the liveness marker while the player is connected.
func (s *SessionStore) Touch(ctx context.Context, sessionID string) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.client.Expire(ctx, s.key(sessionID), s.ttl).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
