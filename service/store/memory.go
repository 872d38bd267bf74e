package store

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/b-harvest/stele-backend/schema"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// MemStore is an in-process Store. Values are copied through JSON so
// callers never share memory with stored entities.
type MemStore struct {
	mux sync.Mutex
	m   map[Kind]map[string][]byte
	cp  schema.Checkpoint
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[Kind]map[string][]byte)}
}

func (s *MemStore) Load(ctx context.Context, kind Kind, id string, v interface{}) error {
	s.mux.Lock()
	b, ok := s.m[kind][id]
	s.mux.Unlock()
	if !ok {
		return ErrNotFound
	}
	return jsonit.Unmarshal(b, v)
}

func (s *MemStore) Save(ctx context.Context, kind Kind, id string, v interface{}) error {
	b, err := jsonit.Marshal(v)
	if err != nil {
		return err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.m[kind] == nil {
		s.m[kind] = make(map[string][]byte)
	}
	s.m[kind][id] = b
	return nil
}

func (s *MemStore) Checkpoint(ctx context.Context) (schema.Checkpoint, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.cp, nil
}

func (s *MemStore) SetLatestBlockNumber(ctx context.Context, blockNumber uint64) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.cp = schema.Checkpoint{BlockNumber: blockNumber, Timestamp: time.Now()}
	return nil
}

func (s *MemStore) Ping(ctx context.Context) error {
	return nil
}

// Count returns the number of stored entities of a kind.
func (s *MemStore) Count(kind Kind) int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.m[kind])
}
