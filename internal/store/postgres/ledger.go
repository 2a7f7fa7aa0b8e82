package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/pointsops/internal/domain"
)

func (t *tx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO transactions (id, sender_id, receiver_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, tr.ID, tr.SenderID, tr.ReceiverID, tr.Amount, tr.Timestamp)
	return castErr(err)
}

func (t *tx) ListTransactions(ctx context.Context, involving *domain.ID) ([]*domain.Transaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if involving == nil {
		rows, err = t.tx.Query(ctx, `
			SELECT id, sender_id, receiver_id, amount, created_at
			FROM transactions
			ORDER BY created_at DESC`)
	} else {
		rows, err = t.tx.Query(ctx, `
			SELECT id, sender_id, receiver_id, amount, created_at
			FROM transactions
			WHERE sender_id = $1 OR receiver_id = $1
			ORDER BY created_at DESC`, *involving)
	}
	if err != nil {
		return nil, castErr(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Transaction, error) {
		var tr domain.Transaction
		err := row.Scan(&tr.ID, &tr.SenderID, &tr.ReceiverID, &tr.Amount, &tr.Timestamp)
		return &tr, err
	})
	return out, castErr(err)
}

func (t *tx) DeleteTransactionsInvolving(ctx context.Context, id domain.ID) (int, error) {
	return affected(t.tx.Exec(ctx, "DELETE FROM transactions WHERE sender_id = $1 OR receiver_id = $1", id))
}
