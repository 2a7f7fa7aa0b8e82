// Package ledger moves points between accounts. Every transfer debits the
// sender, credits the receiver and appends the immutable Transaction record in
// one store transaction, so the sum of all balances never changes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
)

var transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pointsops_transfers_total",
	Help: "Transfers attempted, labeled by outcome code",
}, []string{"result"})

type Ledger struct {
	store store.Store
	now   func() time.Time
}

func New(s store.Store) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

// Transfer moves amount points from sender to receiver. Self-transfers are
// allowed: the balance is unchanged and the transaction is still logged.
func (l *Ledger) Transfer(ctx context.Context, senderID, receiverID domain.ID, amount int64) (*domain.Transaction, error) {
	t, err := l.transfer(ctx, senderID, receiverID, amount)
	if err != nil {
		transfersTotal.WithLabelValues(domain.Code(err)).Inc()
		return nil, err
	}
	transfersTotal.WithLabelValues("ok").Inc()
	return t, nil
}

func (l *Ledger) transfer(ctx context.Context, senderID, receiverID domain.ID, amount int64) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount must be positive")
	}

	var rec *domain.Transaction
	err := store.Update(ctx, l.store, func(tx store.Tx) error {
		// Both rows are locked in id order before anything is read.
		accounts, err := tx.LockAccounts(ctx, senderID, receiverID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("transfer %s -> %s: %w", senderID, receiverID, domain.ErrNotFound)
			}
			return err
		}
		sender, receiver := accounts[senderID], accounts[receiverID]

		if sender.Points < amount {
			return domain.ErrInsufficientBalance
		}

		if senderID != receiverID {
			sender.Points -= amount
			receiver.Points += amount
			if err := tx.UpdateAccount(ctx, sender); err != nil {
				return err
			}
			if err := tx.UpdateAccount(ctx, receiver); err != nil {
				return err
			}
		}

		rec = &domain.Transaction{
			ID:         domain.NewID(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Amount:     amount,
			Timestamp:  l.now().UTC(),
		}
		return tx.InsertTransaction(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListTransactionsFor returns every transaction the account sent or received, newest first.
func (l *Ledger) ListTransactionsFor(ctx context.Context, accountID domain.ID) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	err := store.View(ctx, l.store, func(tx store.Tx) error {
		if _, err := tx.GetAccount(ctx, accountID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListTransactions(ctx, &accountID)
		return err
	})
	return out, err
}

// ListAllTransactions returns the whole log, newest first.
func (l *Ledger) ListAllTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	err := store.View(ctx, l.store, func(tx store.Tx) error {
		var err error
		out, err = tx.ListTransactions(ctx, nil)
		return err
	})
	return out, err
}

// Balances reads several balances as one consistent snapshot: the accounts are
// locked together, so a transfer between them is seen entirely or not at all.
func (l *Ledger) Balances(ctx context.Context, ids ...domain.ID) (map[domain.ID]int64, error) {
	out := make(map[domain.ID]int64, len(ids))
	err := store.Update(ctx, l.store, func(tx store.Tx) error {
		accounts, err := tx.LockAccounts(ctx, ids...)
		if err != nil {
			return err
		}
		for id, a := range accounts {
			out[id] = a.Points
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
