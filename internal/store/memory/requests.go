package memory

import (
	"context"
	"sort"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

func (t *tx) GetAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
	var (
		r  domain.AdminRequest
		ok bool
	)
	t.s.read(func(d *data) { r, ok = d.requests[id] })
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (t *tx) LockAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
	t.lock(requestKey(id))
	return t.GetAdminRequest(ctx, id)
}

func (t *tx) ListAdminRequests(ctx context.Context, user *domain.ID) ([]*domain.AdminRequest, error) {
	var out []*domain.AdminRequest
	t.s.read(func(d *data) {
		for _, r := range d.requests {
			if user != nil && r.UserID != *user {
				continue
			}
			r := r
			out = append(out, &r)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// singlePending enforces at most one pending request per user.
func singlePending(d *data, r domain.AdminRequest) error {
	if r.Status != domain.StatusPending {
		return nil
	}
	for id, other := range d.requests {
		if id != r.ID && other.UserID == r.UserID && other.Status == domain.StatusPending {
			return domain.ErrDuplicateRequest
		}
	}
	return nil
}

func (t *tx) InsertAdminRequest(ctx context.Context, r *domain.AdminRequest) error {
	rec := *r
	return t.write(func(d *data) error {
		if _, ok := d.requests[rec.ID]; ok {
			return domain.ErrConflict
		}
		return singlePending(d, rec)
	}, func(d *data) {
		d.requests[rec.ID] = rec
	})
}

func (t *tx) UpdateAdminRequest(ctx context.Context, r *domain.AdminRequest) error {
	rec := *r
	return t.write(func(d *data) error {
		if _, ok := d.requests[rec.ID]; !ok {
			return domain.ErrNotFound
		}
		return singlePending(d, rec)
	}, func(d *data) {
		d.requests[rec.ID] = rec
	})
}

func (t *tx) DeleteAdminRequestsBy(ctx context.Context, user domain.ID) (int, error) {
	var ids []domain.ID
	t.s.read(func(d *data) {
		for id, r := range d.requests {
			if r.UserID == user {
				ids = append(ids, id)
			}
		}
	})
	err := t.write(nil, func(d *data) {
		for _, id := range ids {
			delete(d.requests, id)
		}
	})
	return len(ids), err
}
