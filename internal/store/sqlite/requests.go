package sqlite

import (
	"context"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

type requestRow struct {
	ID        domain.ID `db:"id"`
	UserID    domain.ID `db:"user_id"`
	Reason    string    `db:"reason"`
	Status    string    `db:"status"`
	CreatedAt int64     `db:"created_at"`
	UpdatedAt int64     `db:"updated_at"`
}

func (r *requestRow) request() *domain.AdminRequest {
	return &domain.AdminRequest{
		ID:        r.ID,
		UserID:    r.UserID,
		Reason:    r.Reason,
		Status:    domain.RequestStatus(r.Status),
		CreatedAt: fromNanos(r.CreatedAt),
		UpdatedAt: fromNanos(r.UpdatedAt),
	}
}

func (t *tx) GetAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
	var r requestRow
	if err := t.tx.GetContext(ctx, &r, `SELECT * FROM admin_requests WHERE id = ?`, id); err != nil {
		return nil, castErr(err)
	}
	return r.request(), nil
}

func (t *tx) LockAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
	return t.GetAdminRequest(ctx, id)
}

func (t *tx) ListAdminRequests(ctx context.Context, user *domain.ID) ([]*domain.AdminRequest, error) {
	var (
		rows []requestRow
		err  error
	)
	if user == nil {
		err = t.tx.SelectContext(ctx, &rows, `SELECT * FROM admin_requests ORDER BY created_at DESC`)
	} else {
		err = t.tx.SelectContext(ctx, &rows, `SELECT * FROM admin_requests WHERE user_id = ? ORDER BY created_at DESC`, *user)
	}
	if err != nil {
		return nil, castErr(err)
	}
	out := make([]*domain.AdminRequest, len(rows))
	for i := range rows {
		out[i] = rows[i].request()
	}
	return out, nil
}

func (t *tx) InsertAdminRequest(ctx context.Context, r *domain.AdminRequest) error {
	_, err := t.exec(ctx, `
		INSERT INTO admin_requests (id, user_id, reason, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.Reason, string(r.Status), toNanos(r.CreatedAt), toNanos(r.UpdatedAt))
	return err
}

func (t *tx) UpdateAdminRequest(ctx context.Context, r *domain.AdminRequest) error {
	return t.execOne(ctx, `
		UPDATE admin_requests SET reason = ?, status = ?, updated_at = ? WHERE id = ?
	`, r.Reason, string(r.Status), toNanos(r.UpdatedAt), r.ID)
}

func (t *tx) DeleteAdminRequestsBy(ctx context.Context, user domain.ID) (int, error) {
	return t.exec(ctx, `DELETE FROM admin_requests WHERE user_id = ?`, user)
}
