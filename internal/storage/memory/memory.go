package memory

import (
	"context"
	"errors"
	"sync"

	"bisky/internal/core"
	"bisky/internal/ledger"
)

// ErrInjected is returned by Save after FailNextSave.
var ErrInjected = errors.New("memory store: injected save failure")

type Store struct {
	mu       sync.Mutex
	items    []core.Entry
	exists   bool
	saves    int
	failNext bool
}

var (
	_ ledger.Store       = (*Store)(nil)
	_ ledger.Initializer = (*Store)(nil)
)

// New returns a store holding rows. A nil slice means no ledger yet.
func New(rows []core.Entry) *Store {
	return &Store{items: clone(rows), exists: rows != nil}
}

func (s *Store) Load(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items), nil
}

func (s *Store) Save(_ context.Context, rows []core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return ErrInjected
	}
	s.items = clone(rows)
	s.exists = true
	s.saves++
	return nil
}

func (s *Store) Exists(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists, nil
}

func (s *Store) Init(ctx context.Context, seed core.Entry) error {
	return s.Save(ctx, []core.Entry{seed})
}

// Saves counts successful Save calls.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FailNextSave makes the next Save return ErrInjected.
func (s *Store) FailNextSave() {
	s.mu.Lock()
	s.failNext = true
	s.mu.Unlock()
}

func clone(in []core.Entry) []core.Entry {
	if in == nil {
		return nil
	}
	return append(make([]core.Entry, 0, len(in)), in...)
}
