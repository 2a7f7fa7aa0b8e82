// Package store defines the transactional storage contract shared by every
// backend. Core packages only ever talk to a Store; the backends live in the
// memory, postgres, sqlite and mongo subpackages.
package store

import (
	"context"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

// TxOptions tunes a single transaction.
type TxOptions struct {
	// Exclusive transactions are serialized against every other transaction.
	// Only operations that span many collections (account deletion) need it;
	// everything else relies on per-entity locks.
	Exclusive bool
	// ReadOnly transactions never write.
	ReadOnly bool
}

// Store runs functions inside atomic units. Either every write made through
// the Tx becomes visible when fn returns nil, or none does.
type Store interface {
	InTx(ctx context.Context, opts TxOptions, fn func(tx Tx) error) error
	Close() error
}

// Tx is the view of the store inside one atomic unit.
//
// Lock* methods read a record and hold it against concurrent writers until
// the transaction ends. Writes are not guaranteed to be visible to reads made
// later in the same transaction, so callers read everything they need first.
// Failures are reported as domain errors; anything unexpected is wrapped in
// domain.ErrStoreUnavailable.
type Tx interface {
	AccountTx
	TransactionTx
	PollTx
	AdminRequestTx
	ActivityTx
}

type AccountTx interface {
	GetAccount(ctx context.Context, id domain.ID) (*domain.Account, error)
	// LockAccounts locks every id in domain.SortIDs order and returns the
	// accounts keyed by id. A missing account fails with domain.ErrNotFound.
	LockAccounts(ctx context.Context, ids ...domain.ID) (map[domain.ID]*domain.Account, error)
	FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	// InsertAccount fails with domain.ErrConflict when the username or email is taken.
	InsertAccount(ctx context.Context, a *domain.Account) error
	UpdateAccount(ctx context.Context, a *domain.Account) error
	DeleteAccount(ctx context.Context, id domain.ID) error
}

type TransactionTx interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	// ListTransactions returns the log newest first. A nil involving returns
	// every record; otherwise only those where the account is either endpoint.
	ListTransactions(ctx context.Context, involving *domain.ID) ([]*domain.Transaction, error)
	DeleteTransactionsInvolving(ctx context.Context, id domain.ID) (int, error)
}

type PollTx interface {
	GetPoll(ctx context.Context, id domain.ID) (*domain.Poll, error)
	LockPoll(ctx context.Context, id domain.ID) (*domain.Poll, error)
	ListPolls(ctx context.Context) ([]*domain.Poll, error)
	InsertPoll(ctx context.Context, p *domain.Poll) error
	UpdatePoll(ctx context.Context, p *domain.Poll) error
	DeletePoll(ctx context.Context, id domain.ID) error
	DeletePollsCreatedBy(ctx context.Context, creator domain.ID) (int, error)
}

type AdminRequestTx interface {
	GetAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error)
	LockAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error)
	// ListAdminRequests returns requests newest first, optionally for one user.
	ListAdminRequests(ctx context.Context, user *domain.ID) ([]*domain.AdminRequest, error)
	// InsertAdminRequest fails with domain.ErrDuplicateRequest when a pending
	// request is inserted for a user who already has one.
	InsertAdminRequest(ctx context.Context, r *domain.AdminRequest) error
	UpdateAdminRequest(ctx context.Context, r *domain.AdminRequest) error
	DeleteAdminRequestsBy(ctx context.Context, user domain.ID) (int, error)
}

type ActivityTx interface {
	InsertChatMessage(ctx context.Context, m *domain.ChatMessage) error
	// ListChatMessages returns messages oldest first; an empty room lists all rooms.
	ListChatMessages(ctx context.Context, room string) ([]*domain.ChatMessage, error)
	DeleteChatMessagesBy(ctx context.Context, user domain.ID) (int, error)

	InsertAnalysisRecord(ctx context.Context, r *domain.AnalysisRecord) error
	// ListAnalysisRecords returns records newest first, optionally for one owner.
	ListAnalysisRecords(ctx context.Context, owner *domain.ID) ([]*domain.AnalysisRecord, error)
	DeleteAnalysisRecordsBy(ctx context.Context, owner domain.ID) (int, error)
}

// View is a convenience for read-only transactions.
func View(ctx context.Context, s Store, fn func(tx Tx) error) error {
	return s.InTx(ctx, TxOptions{ReadOnly: true}, fn)
}

// Update runs fn in an ordinary read-write transaction.
func Update(ctx context.Context, s Store, fn func(tx Tx) error) error {
	return s.InTx(ctx, TxOptions{}, fn)
}
