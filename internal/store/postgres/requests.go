package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/pointsops/internal/domain"
)

const requestColumns = "id, user_id, reason, status, created_at, updated_at"

func scanRequest(row rowScanner) (*domain.AdminRequest, error) {
	var r domain.AdminRequest
	if err := row.Scan(&r.ID, &r.UserID, &r.Reason, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, castErr(err)
	}
	return &r, nil
}

func (t *tx) GetAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
	return scanRequest(t.tx.QueryRow(ctx, "SELECT "+requestColumns+" FROM admin_requests WHERE id = $1", id))
}

func (t *tx) LockAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
	return scanRequest(t.tx.QueryRow(ctx, "SELECT "+requestColumns+" FROM admin_requests WHERE id = $1 FOR UPDATE", id))
}

func (t *tx) ListAdminRequests(ctx context.Context, user *domain.ID) ([]*domain.AdminRequest, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if user == nil {
		rows, err = t.tx.Query(ctx, "SELECT "+requestColumns+" FROM admin_requests ORDER BY created_at DESC")
	} else {
		rows, err = t.tx.Query(ctx, "SELECT "+requestColumns+" FROM admin_requests WHERE user_id = $1 ORDER BY created_at DESC", *user)
	}
	if err != nil {
		return nil, castErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AdminRequest, error) {
		return scanRequest(row)
	})
	return out, castErr(err)
}

// InsertAdminRequest relies on the admin_requests_one_pending index to turn a
// second pending request into domain.ErrDuplicateRequest.
func (t *tx) InsertAdminRequest(ctx context.Context, r *domain.AdminRequest) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO admin_requests (id, user_id, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.UserID, r.Reason, string(r.Status), r.CreatedAt, r.UpdatedAt)
	return castErr(err)
}

func (t *tx) UpdateAdminRequest(ctx context.Context, r *domain.AdminRequest) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE admin_requests SET reason = $2, status = $3, updated_at = $4 WHERE id = $1
	`, r.ID, r.Reason, string(r.Status), r.UpdatedAt)
	if err != nil {
		return castErr(err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteAdminRequestsBy(ctx context.Context, user domain.ID) (int, error) {
	return affected(t.tx.Exec(ctx, "DELETE FROM admin_requests WHERE user_id = $1", user))
}
