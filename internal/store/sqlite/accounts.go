package sqlite

import (
	"context"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

type accountRow struct {
	ID           domain.ID `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Points       int64     `db:"points"`
	IsAdmin      bool      `db:"is_admin"`
	Avatar       string    `db:"avatar"`
	CreatedAt    int64     `db:"created_at"`
}

func (r *accountRow) account() *domain.Account {
	return &domain.Account{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Points:       r.Points,
		IsAdmin:      r.IsAdmin,
		Avatar:       r.Avatar,
		CreatedAt:    fromNanos(r.CreatedAt),
	}
}

func (t *tx) GetAccount(ctx context.Context, id domain.ID) (*domain.Account, error) {
	var r accountRow
	if err := t.tx.GetContext(ctx, &r, `SELECT * FROM accounts WHERE id = ?`, id); err != nil {
		return nil, castErr(err)
	}
	return r.account(), nil
}

// LockAccounts reads the accounts in id order. The surrounding IMMEDIATE
// transaction already holds the database write lock.
func (t *tx) LockAccounts(ctx context.Context, ids ...domain.ID) (map[domain.ID]*domain.Account, error) {
	out := make(map[domain.ID]*domain.Account, len(ids))
	for _, id := range domain.SortIDs(ids) {
		a, err := t.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

func (t *tx) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var r accountRow
	if err := t.tx.GetContext(ctx, &r, `SELECT * FROM accounts WHERE username = ?`, username); err != nil {
		return nil, castErr(err)
	}
	return r.account(), nil
}

func (t *tx) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []accountRow
	if err := t.tx.SelectContext(ctx, &rows, `SELECT * FROM accounts ORDER BY created_at, username`); err != nil {
		return nil, castErr(err)
	}
	out := make([]*domain.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].account()
	}
	return out, nil
}

func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	_, err := t.exec(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, points, is_admin, avatar, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Username, a.Email, a.PasswordHash, a.Points, a.IsAdmin, a.Avatar, toNanos(a.CreatedAt))
	return err
}

func (t *tx) UpdateAccount(ctx context.Context, a *domain.Account) error {
	return t.execOne(ctx, `
		UPDATE accounts SET username = ?, email = ?, points = ?, is_admin = ?, avatar = ?
		WHERE id = ?
	`, a.Username, a.Email, a.Points, a.IsAdmin, a.Avatar, a.ID)
}

func (t *tx) DeleteAccount(ctx context.Context, id domain.ID) error {
	return t.execOne(ctx, `DELETE FROM accounts WHERE id = ?`, id)
}
