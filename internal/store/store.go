// Package store keeps an owner's entities in a local cache that is merged
// from the remote store's responses.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/google/uuid"
)

// Remote is the persistence collaborator for one entity collection. Every
// call is scoped to owner.
type Remote[T core.Entity] interface {
	Select(ctx context.Context, owner uuid.UUID) ([]T, error)
	Insert(ctx context.Context, owner uuid.UUID, items ...T) ([]T, error)
	// Update returns *core.NotFoundError when no row matched.
	Update(ctx context.Context, owner uuid.UUID, item T) (T, error)
	// Delete returns the number of rows removed.
	Delete(ctx context.Context, owner, id uuid.UUID) (int, error)
}

// Store is the generic entity store. The cache changes only after the
// remote call returns, and only from the rows it returned.
type Store[T core.Entity] struct {
	entity    string
	owner     uuid.UUID
	remote    Remote[T]
	less      func(a, b T) bool
	createKey func(T) string
	logger    *log.Logger

	mu       sync.RWMutex
	items    []T
	inflight map[string]struct{}
}

type options[T core.Entity] struct {
	less      func(a, b T) bool
	createKey func(T) string
	logger    *log.Logger
}

func newStore[T core.Entity](entity string, owner uuid.UUID, remote Remote[T], opts options[T]) *Store[T] {
	logger := opts.logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Store[T]{
		entity:    entity,
		owner:     owner,
		remote:    remote,
		less:      opts.less,
		createKey: opts.createKey,
		logger:    logger.WithComponent(log.ComponentStore).With(log.FieldEntity, entity, log.FieldOwnerID, owner.String()),
		inflight:  make(map[string]struct{}),
	}
}

// Owner returns the owner this store is scoped to.
func (s *Store[T]) Owner() uuid.UUID { return s.owner }

// Load replaces the cache with the remote rows.
func (s *Store[T]) Load(ctx context.Context) error {
	rows, err := s.remote.Select(ctx, s.owner)
	if err != nil {
		s.logger.ErrorContext(ctx, "Load failed", log.FieldOperation, log.OpLoad, log.FieldError, err)
		return &core.PersistenceError{Op: s.entity + " load", Err: err}
	}
	s.mu.Lock()
	s.items = append([]T(nil), rows...)
	s.mu.Unlock()
	s.logger.DebugContext(ctx, "Loaded", log.FieldCount, len(rows))
	return nil
}

// List returns a copy of the cache in list order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	out := append(make([]T, 0, len(s.items)), s.items...)
	s.mu.RUnlock()
	if s.less != nil {
		sort.SliceStable(out, func(i, j int) bool { return s.less(out[i], out[j]) })
	}
	return out
}

// Get returns the cached entity with id.
func (s *Store[T]) Get(id uuid.UUID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Find returns the first cached entity matching match.
func (s *Store[T]) Find(match func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Create validates item, inserts it remotely and merges the stored row.
func (s *Store[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	if err := item.Validate(); err != nil {
		return zero, err
	}

	key := "create:"
	if s.createKey != nil {
		key += s.createKey(item)
	}
	release, err := s.acquire(key)
	if err != nil {
		return zero, err
	}
	defer release()

	rows, err := s.remote.Insert(ctx, s.owner, item)
	if err != nil {
		return zero, s.remoteError(ctx, log.OpCreate, "", err)
	}
	if len(rows) != 1 {
		return zero, &core.PersistenceError{Op: s.entity + " create", Err: fmt.Errorf("remote returned %d rows, want 1", len(rows))}
	}

	s.mu.Lock()
	s.items = append(s.items, rows[0])
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Created", log.FieldOperation, log.OpCreate, log.FieldEntityID, rows[0].EntityID().String())
	return rows[0], nil
}

// CreateMany inserts items as one remote batch.
func (s *Store[T]) CreateMany(ctx context.Context, items []T) ([]T, error) {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, nil
	}

	release, err := s.acquire("batch")
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.remote.Insert(ctx, s.owner, items...)
	if err != nil {
		return nil, s.remoteError(ctx, log.OpCreate, "", err)
	}

	s.mu.Lock()
	s.items = append(s.items, rows...)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Created batch", log.FieldOperation, log.OpCreate, log.FieldCount, len(rows))
	return rows, nil
}

// Update writes item remotely and replaces the cached row with the result.
// A vanished target is pruned from the cache and reported as NotFound.
func (s *Store[T]) Update(ctx context.Context, item T) (T, error) {
	var zero T
	if err := item.Validate(); err != nil {
		return zero, err
	}
	id := item.EntityID()

	release, err := s.acquire("id:" + id.String())
	if err != nil {
		return zero, err
	}
	defer release()
	return s.updateLocked(ctx, item)
}

// Modify reads the cached row for id and writes what fn makes of it, all
// under the id's in-flight lock, so the row fn sees is the one replaced.
// It returns the row as it was before and the stored result.
func (s *Store[T]) Modify(ctx context.Context, id uuid.UUID, fn func(current T) (T, error)) (prev, updated T, err error) {
	var zero T
	release, err := s.acquire("id:" + id.String())
	if err != nil {
		return zero, zero, err
	}
	defer release()

	prev, ok := s.Get(id)
	if !ok {
		return zero, zero, &core.NotFoundError{Entity: s.entity, ID: id.String()}
	}
	next, err := fn(prev)
	if err != nil {
		return zero, zero, err
	}
	if next.EntityID() != id {
		return zero, zero, fmt.Errorf("modify %s %s: id changed to %s", s.entity, id, next.EntityID())
	}
	if err := next.Validate(); err != nil {
		return zero, zero, err
	}
	updated, err = s.updateLocked(ctx, next)
	if err != nil {
		return zero, zero, err
	}
	return prev, updated, nil
}

func (s *Store[T]) updateLocked(ctx context.Context, item T) (T, error) {
	var zero T
	id := item.EntityID()
	updated, err := s.remote.Update(ctx, s.owner, item)
	if err != nil {
		if core.IsNotFound(err) {
			s.prune(id)
		}
		return zero, s.remoteError(ctx, log.OpUpdate, id.String(), err)
	}

	s.replace(func(it T) bool { return it.EntityID() == id }, updated)
	s.logger.InfoContext(ctx, "Updated", log.FieldOperation, log.OpUpdate, log.FieldEntityID, id.String())
	return updated, nil
}

// Delete removes the entity remotely. When no row was removed the cache is
// still pruned and a NotFoundError is returned.
func (s *Store[T]) Delete(ctx context.Context, id uuid.UUID) error {
	release, err := s.acquire("id:" + id.String())
	if err != nil {
		return err
	}
	defer release()
	return s.deleteLocked(ctx, id)
}

func (s *Store[T]) deleteLocked(ctx context.Context, id uuid.UUID) error {
	n, err := s.remote.Delete(ctx, s.owner, id)
	if err != nil {
		return s.remoteError(ctx, log.OpDelete, id.String(), err)
	}
	s.prune(id)
	if n == 0 {
		s.logger.WarnContext(ctx, "Delete matched no rows, pruned cache", log.FieldOperation, log.OpDelete, log.FieldEntityID, id.String())
		return &core.NotFoundError{Entity: s.entity, ID: id.String()}
	}
	s.logger.InfoContext(ctx, "Deleted", log.FieldOperation, log.OpDelete, log.FieldEntityID, id.String())
	return nil
}

// acquire takes the in-flight lock for key. The returned func releases it.
func (s *Store[T]) acquire(key string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, core.ErrInFlight
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}, nil
}

func (s *Store[T]) prune(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.EntityID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// replace swaps the first row matching match for item, or appends item.
func (s *Store[T]) replace(match func(T) bool, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if match(it) {
			s.items[i] = item
			return
		}
	}
	s.items = append(s.items, item)
}

// remoteError passes typed domain errors through and wraps everything else
// in a PersistenceError.
func (s *Store[T]) remoteError(ctx context.Context, op, id string, err error) error {
	switch {
	case core.IsNotFound(err):
		s.logger.WarnContext(ctx, "Target not found", log.FieldOperation, op, log.FieldEntityID, id)
		return err
	case core.IsValidation(err):
		return err
	}
	s.logger.ErrorContext(ctx, "Remote call failed", log.FieldOperation, op, log.FieldEntityID, id, log.FieldError, err)
	return &core.PersistenceError{Op: s.entity + " " + op, Err: err}
}
