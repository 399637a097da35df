// Package memory provides an in-memory TransactionWriter for tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"moneta/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	fail  error
}

func New() *Store {
	return &Store{}
}

// FailWith makes every subsequent Append return err.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.items = append(s.items, tx)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Transactions returns a copy of everything appended so far.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}

var ErrUnavailable = errors.New("mirror unavailable")
