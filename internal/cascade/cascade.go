// Package cascade deletes an account together with every record that exists
// only in reference to it.
package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
)

type Deleter struct {
	store store.Store
}

func NewDeleter(s store.Store) *Deleter {
	return &Deleter{store: s}
}

// DeleteUser removes the account's transactions (either side), chat messages,
// polls it created, admin requests and analysis history, then the account. It
// all happens in one exclusive transaction: on any failure nothing is removed.
// Votes the user cast in other users' polls stay counted, and their id stays
// in those voter sets.
func (d *Deleter) DeleteUser(ctx context.Context, userID domain.ID) (*domain.DeleteSummary, error) {
	sum := &domain.DeleteSummary{UserID: userID}
	err := d.store.InTx(ctx, store.TxOptions{Exclusive: true}, func(tx store.Tx) error {
		if _, err := tx.LockAccounts(ctx, userID); err != nil {
			return err
		}

		var err error
		if sum.Transactions, err = tx.DeleteTransactionsInvolving(ctx, userID); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if sum.ChatMessages, err = tx.DeleteChatMessagesBy(ctx, userID); err != nil {
			return fmt.Errorf("delete chat messages: %w", err)
		}
		if sum.Polls, err = tx.DeletePollsCreatedBy(ctx, userID); err != nil {
			return fmt.Errorf("delete polls: %w", err)
		}
		if sum.AdminRequests, err = tx.DeleteAdminRequestsBy(ctx, userID); err != nil {
			return fmt.Errorf("delete admin requests: %w", err)
		}
		if sum.AnalysisRecords, err = tx.DeleteAnalysisRecordsBy(ctx, userID); err != nil {
			return fmt.Errorf("delete analysis history: %w", err)
		}
		if err := tx.DeleteAccount(ctx, userID); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("account deleted",
		"user_id", userID,
		"transactions", sum.Transactions,
		"chat_messages", sum.ChatMessages,
		"polls", sum.Polls,
		"admin_requests", sum.AdminRequests,
		"analysis_records", sum.AnalysisRecords,
	)
	return sum, nil
}
