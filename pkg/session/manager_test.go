package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/aretw0/proofreader/pkg/ports"
	"github.com/aretw0/proofreader/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[sessionID] = sess.Snapshot()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[sessionID]; ok {
		return sess.Snapshot(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestManager_LoadOrStart(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := manager.LoadOrStart(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, sess)
		}()
	}
	wg.Wait()

	sess, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, domain.ModeAwaitingText, sess.Mode)
	assert.Empty(t, sess.Transcript)
}

func TestManager_Update_SerializesReadModifyWrite(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(ctx context.Context, current *domain.Session) (*domain.Session, error) {
				next := current.Snapshot()
				role := domain.RoleUser
				if last, ok := next.Transcript.Last(); ok && last.Role == domain.RoleUser {
					role = domain.RoleAssistant
				}
				next.Transcript = next.Transcript.Append(domain.Utterance{Role: role, Text: "turn"})
				return next, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := manager.Load(ctx, id)
	require.NoError(t, err)
	// Without serialization some appends would be lost.
	assert.Len(t, sess.Transcript, writers)
	assert.NoError(t, sess.Validate())
}

func TestManager_Update_SavesPartialProgressOnError(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	boom := errors.New("boom")

	got, err := manager.Update(ctx, "partial", func(ctx context.Context, current *domain.Session) (*domain.Session, error) {
		next := current.Snapshot()
		next.Transcript = next.Transcript.Append(domain.UserSaid("hello"))
		return next, boom
	})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, got)

	stored, err := manager.Load(ctx, "partial")
	require.NoError(t, err)
	assert.Len(t, stored.Transcript, 1)
}

func TestManager_Update_NilResultSkipsSave(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	require.NoError(t, manager.Save(ctx, "keep", domain.NewSession("keep")))

	_, err := manager.Update(ctx, "keep", func(ctx context.Context, current *domain.Session) (*domain.Session, error) {
		return nil, &domain.InvalidStateError{Reason: "test"}
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	stored, err := manager.Load(ctx, "keep")
	require.NoError(t, err)
	assert.Empty(t, stored.Transcript)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	released int
	ttl      time.Duration
	failWith error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "s1", domain.NewSession("s1")))
	_, err := manager.Load(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s1"}, locker.locked)
	assert.Equal(t, 2, locker.released)
	assert.Equal(t, time.Minute, locker.ttl)
}

func TestManager_DistributedLockerFailure(t *testing.T) {
	locker := &recordingLocker{failWith: errors.New("redis down")}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker))

	called := false
	err := manager.WithLock(context.Background(), "s1", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
