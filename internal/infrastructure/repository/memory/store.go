// Package memory implements the repository ports in process. It backs the
// memory storage driver and the use-case tests.
package memory

import (
	"context"
	"sync"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

type txKey struct{}

type journal struct {
	undo []func()
}

// Store owns all in-memory tables. Transactions are serialized; writes made
// inside a failed transaction are rolled back from a journal.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	types         map[string]domain.DocumentType
	requests      map[string]domain.DocumentRequest
	meetings      map[string]domain.ClearanceMeeting
	users         map[string]domain.Identity
	notifications map[string]domain.Notification
}

func NewStore() *Store {
	return &Store{
		types:         make(map[string]domain.DocumentType),
		requests:      make(map[string]domain.DocumentRequest),
		meetings:      make(map[string]domain.ClearanceMeeting),
		users:         make(map[string]domain.Identity),
		notifications: make(map[string]domain.Notification),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	err := fn(context.WithValue(ctx, txKey{}, j))
	if err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
	}
	return err
}

// record registers an undo step for the transaction in ctx, if any.
// Caller must hold s.mu.
func (s *Store) record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(txKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

func (s *Store) Catalog() *CatalogRepository {
	return &CatalogRepository{s: s}
}

func (s *Store) Requests() *RequestRepository {
	return &RequestRepository{s: s}
}

func (s *Store) Meetings() *MeetingRepository {
	return &MeetingRepository{s: s}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{s: s}
}

func putWithUndo[K comparable, V any](ctx context.Context, s *Store, table map[K]V, key K, value V) {
	prev, existed := table[key]
	table[key] = value
	s.record(ctx, func() {
		if existed {
			table[key] = prev
			return
		}
		delete(table, key)
	})
}

func deleteWithUndo[K comparable, V any](ctx context.Context, s *Store, table map[K]V, key K) {
	prev, existed := table[key]
	if !existed {
		return
	}
	delete(table, key)
	s.record(ctx, func() { table[key] = prev })
}
