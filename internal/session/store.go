package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps picking sessions in Redis so a front-end can resume them
// across its own restarts.  When no Redis client is configured the
// store degrades to a process-local map, which is sufficient for a
// single front-end instance and for tests.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string

	mu    sync.Mutex
	local map[uint64][]byte
}

// NewStore returns a session store.  rdb may be nil; ttl bounds how
// long an abandoned session survives (independent of the engine's hold
// TTL, which protects the inventory itself).
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb:    rdb,
		ttl:    ttl,
		prefix: "session",
		local:  make(map[uint64][]byte),
	}
}

func (st *Store) key(requesterID uint64) string {
	return fmt.Sprintf("%s:%d", st.prefix, requesterID)
}

// Get loads the requester's session, returning a fresh idle session
// when none is stored.
func (st *Store) Get(ctx context.Context, requesterID uint64) (*PickSession, error) {
	var raw []byte
	if st.rdb != nil {
		b, err := st.rdb.Get(ctx, st.key(requesterID)).Bytes()
		if err == redis.Nil {
			return New(requesterID), nil
		}
		if err != nil {
			return nil, err
		}
		raw = b
	} else {
		st.mu.Lock()
		b, ok := st.local[requesterID]
		st.mu.Unlock()
		if !ok {
			return New(requesterID), nil
		}
		raw = b
	}
	var s PickSession
	if err := json.Unmarshal(raw, &s); err != nil {
		// Corrupt session payloads are discarded rather than wedging
		// the requester permanently.
		return New(requesterID), nil
	}
	return &s, nil
}

// Save writes the session back with the store TTL.
func (st *Store) Save(ctx context.Context, s *PickSession) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if st.rdb != nil {
		return st.rdb.Set(ctx, st.key(s.RequesterID), raw, st.ttl).Err()
	}
	st.mu.Lock()
	st.local[s.RequesterID] = raw
	st.mu.Unlock()
	return nil
}

// Delete removes the requester's session.
func (st *Store) Delete(ctx context.Context, requesterID uint64) error {
	if st.rdb != nil {
		return st.rdb.Del(ctx, st.key(requesterID)).Err()
	}
	st.mu.Lock()
	delete(st.local, requesterID)
	st.mu.Unlock()
	return nil
}
