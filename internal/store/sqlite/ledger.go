package sqlite

import (
	"context"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

type transactionRow struct {
	ID         domain.ID `db:"id"`
	SenderID   domain.ID `db:"sender_id"`
	ReceiverID domain.ID `db:"receiver_id"`
	Amount     int64     `db:"amount"`
	CreatedAt  int64     `db:"created_at"`
}

func (t *tx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	_, err := t.exec(ctx, `
		INSERT INTO transactions (id, sender_id, receiver_id, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, tr.ID, tr.SenderID, tr.ReceiverID, tr.Amount, toNanos(tr.Timestamp))
	return err
}

func (t *tx) ListTransactions(ctx context.Context, involving *domain.ID) ([]*domain.Transaction, error) {
	var (
		rows []transactionRow
		err  error
	)
	if involving == nil {
		err = t.tx.SelectContext(ctx, &rows, `SELECT * FROM transactions ORDER BY created_at DESC`)
	} else {
		err = t.tx.SelectContext(ctx, &rows, `
			SELECT * FROM transactions
			WHERE sender_id = ?1 OR receiver_id = ?1
			ORDER BY created_at DESC
		`, *involving)
	}
	if err != nil {
		return nil, castErr(err)
	}

	out := make([]*domain.Transaction, len(rows))
	for i, r := range rows {
		out[i] = &domain.Transaction{
			ID:         r.ID,
			SenderID:   r.SenderID,
			ReceiverID: r.ReceiverID,
			Amount:     r.Amount,
			Timestamp:  fromNanos(r.CreatedAt),
		}
	}
	return out, nil
}

func (t *tx) DeleteTransactionsInvolving(ctx context.Context, id domain.ID) (int, error) {
	return t.exec(ctx, `DELETE FROM transactions WHERE sender_id = ?1 OR receiver_id = ?1`, id)
}
