package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/petar/GoLLRB/llrb"
	"github.com/pingcap-incubator/tempstore/kv/util/engine_util"
)

// MemStorage is a Storage backed by memory, for testing. Data is not written to disk.
type MemStorage struct {
	mu        sync.RWMutex
	CfDefault *llrb.LLRB
	CfWrite   *llrb.LLRB
	writes    int
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		CfDefault: llrb.New(),
		CfWrite:   llrb.New(),
	}
}

func (s *MemStorage) Stop() error {
	return nil
}

func (s *MemStorage) Reader() (StorageReader, error) {
	return &memReader{s}, nil
}

func (s *MemStorage) Write(ctx context.Context, batch []Modify) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range batch {
		tree := s.tree(m.Cf())
		if tree == nil {
			return fmt.Errorf("mem-storage: bad CF %s", m.Cf())
		}
		switch data := m.Data.(type) {
		case Put:
			tree.ReplaceOrInsert(memItem{data.Key, data.Value})
		case Delete:
			tree.Delete(memItem{key: data.Key})
		}
	}
	s.writes++
	return nil
}

// Get returns the value at key, nil if there is none.
func (s *MemStorage) Get(cf string, key []byte) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree := s.tree(cf)
	if tree == nil {
		return nil
	}
	result := tree.Get(memItem{key: key})
	if result == nil {
		return nil
	}
	return result.(memItem).value
}

func (s *MemStorage) Len(cf string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tree := s.tree(cf); tree != nil {
		return tree.Len()
	}
	return -1
}

// Writes returns the number of Write calls that succeeded.
func (s *MemStorage) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Keys returns the keys of cf in ascending order.
func (s *MemStorage) Keys(cf string) [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree := s.tree(cf)
	if tree == nil {
		return nil
	}
	keys := make([][]byte, 0, tree.Len())
	tree.AscendGreaterOrEqual(memItem{key: []byte{}}, func(item llrb.Item) bool {
		keys = append(keys, item.(memItem).key)
		return true
	})
	return keys
}

func (s *MemStorage) tree(cf string) *llrb.LLRB {
	switch cf {
	case engine_util.CfDefault:
		return s.CfDefault
	case engine_util.CfWrite:
		return s.CfWrite
	}
	return nil
}

// memReader is a StorageReader which reads from a MemStorage.
type memReader struct {
	inner *MemStorage
}

func (mr *memReader) GetCF(cf string, key []byte) ([]byte, error) {
	if mr.inner.tree(cf) == nil {
		return nil, fmt.Errorf("mem-storage: bad CF %s", cf)
	}
	return mr.inner.Get(cf, key), nil
}

func (mr *memReader) Close() {}

type memItem struct {
	key   []byte
	value []byte
}

func (it memItem) Less(than llrb.Item) bool {
	other := than.(memItem)
	return bytes.Compare(it.key, other.key) < 0
}
