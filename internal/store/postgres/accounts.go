package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/pointsops/internal/domain"
)

const accountColumns = "id, username, email, password_hash, points, is_admin, avatar, created_at"

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Points, &a.IsAdmin, &a.Avatar, &a.CreatedAt)
	if err != nil {
		return nil, castErr(err)
	}
	return &a, nil
}

// GetAccount retrieves a single account by ID.
func (t *tx) GetAccount(ctx context.Context, id domain.ID) (*domain.Account, error) {
	return scanAccount(t.tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id))
}

// LockAccounts acquires row locks one at a time in id order, which keeps two
// opposing transfers from deadlocking.
func (t *tx) LockAccounts(ctx context.Context, ids ...domain.ID) (map[domain.ID]*domain.Account, error) {
	out := make(map[domain.ID]*domain.Account, len(ids))
	for _, id := range domain.SortIDs(ids) {
		a, err := scanAccount(t.tx.QueryRow(ctx,
			"SELECT "+accountColumns+" FROM accounts WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

func (t *tx) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return scanAccount(t.tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE username = $1", username))
}

func (t *tx) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	rows, err := t.tx.Query(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY created_at, username")
	if err != nil {
		return nil, castErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Account, error) {
		return scanAccount(row)
	})
	return out, castErr(err)
}

func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, points, is_admin, avatar, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.Username, a.Email, a.PasswordHash, a.Points, a.IsAdmin, a.Avatar, a.CreatedAt)
	return castErr(err)
}

func (t *tx) UpdateAccount(ctx context.Context, a *domain.Account) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts
		SET username = $2, email = $3, points = $4, is_admin = $5, avatar = $6
		WHERE id = $1
	`, a.ID, a.Username, a.Email, a.Points, a.IsAdmin, a.Avatar)
	if err != nil {
		return castErr(err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteAccount(ctx context.Context, id domain.ID) error {
	n, err := affected(t.tx.Exec(ctx, "DELETE FROM accounts WHERE id = $1", id))
	if err != nil {
		return err
	}
	if n != 1 {
		return domain.ErrNotFound
	}
	return nil
}
