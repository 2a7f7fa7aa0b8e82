// Package memory is the in-process Store. Transactions take per-entity locks
// and buffer their writes; the buffer is validated and applied under a single
// short critical section at commit, so readers never observe half a transaction.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
)

var (
	errClosed   = errors.New("memory store closed")
	errReadOnly = errors.New("write in read-only transaction")
)

type Store struct {
	// Exclusive transactions hold the write side; all others share the read side.
	global sync.RWMutex
	locks  lockTable

	mu   sync.Mutex
	data *data

	closed atomic.Bool
}

type data struct {
	accounts     map[domain.ID]domain.Account
	transactions []domain.Transaction
	polls        map[domain.ID]*domain.Poll
	requests     map[domain.ID]domain.AdminRequest
	messages     []domain.ChatMessage
	analysis     []domain.AnalysisRecord
}

func New() *Store {
	return &Store{
		locks: lockTable{m: make(map[string]*lockEntry)},
		data: &data{
			accounts: make(map[domain.ID]domain.Account),
			polls:    make(map[domain.ID]*domain.Poll),
			requests: make(map[domain.ID]domain.AdminRequest),
		},
	}
}

func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Store) InTx(ctx context.Context, opts store.TxOptions, fn func(tx store.Tx) error) error {
	if s.closed.Load() {
		return domain.Unavailable(errClosed)
	}
	if err := ctx.Err(); err != nil {
		return domain.Unavailable(err)
	}

	if opts.Exclusive {
		s.global.Lock()
		defer s.global.Unlock()
	} else {
		s.global.RLock()
		defer s.global.RUnlock()
	}

	t := &tx{s: s, opts: opts, held: make(map[string]bool)}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

// read runs f against committed state.
func (s *Store) read(f func(d *data)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.data)
}

type tx struct {
	s    *Store
	opts store.TxOptions
	held map[string]bool

	checks []func(d *data) error
	writes []func(d *data)
}

// lock takes the entity lock for key unless this transaction already holds it
// or runs exclusively, in which case no other transaction can be active.
func (t *tx) lock(key string) {
	if t.opts.Exclusive || t.held[key] {
		return
	}
	t.s.locks.acquire(key)
	t.held[key] = true
}

func (t *tx) release() {
	for key := range t.held {
		t.s.locks.release(key)
	}
	t.held = nil
}

func (t *tx) write(check func(d *data) error, apply func(d *data)) error {
	if t.opts.ReadOnly {
		return domain.Unavailable(errReadOnly)
	}
	if check != nil {
		t.checks = append(t.checks, check)
	}
	t.writes = append(t.writes, apply)
	return nil
}

func (t *tx) commit() error {
	if len(t.writes) == 0 {
		return nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, check := range t.checks {
		if err := check(t.s.data); err != nil {
			return err
		}
	}
	for _, apply := range t.writes {
		apply(t.s.data)
	}
	return nil
}

type lockTable struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (lt *lockTable) acquire(key string) {
	lt.mu.Lock()
	e, ok := lt.m[key]
	if !ok {
		e = &lockEntry{}
		lt.m[key] = e
	}
	e.refs++
	lt.mu.Unlock()

	e.mu.Lock()
}

func (lt *lockTable) release(key string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	e := lt.m[key]
	e.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(lt.m, key)
	}
}

func accountKey(id domain.ID) string { return "account:" + id.String() }
func pollKey(id domain.ID) string    { return "poll:" + id.String() }
func requestKey(id domain.ID) string { return "request:" + id.String() }

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)
