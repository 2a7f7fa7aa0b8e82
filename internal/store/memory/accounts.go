package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

func (t *tx) GetAccount(ctx context.Context, id domain.ID) (*domain.Account, error) {
	var (
		a  domain.Account
		ok bool
	)
	t.s.read(func(d *data) { a, ok = d.accounts[id] })
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (t *tx) LockAccounts(ctx context.Context, ids ...domain.ID) (map[domain.ID]*domain.Account, error) {
	sorted := domain.SortIDs(ids)
	for _, id := range sorted {
		t.lock(accountKey(id))
	}

	out := make(map[domain.ID]*domain.Account, len(sorted))
	var missing bool
	t.s.read(func(d *data) {
		for _, id := range sorted {
			a, ok := d.accounts[id]
			if !ok {
				missing = true
				return
			}
			out[id] = &a
		}
	})
	if missing {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (t *tx) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var (
		a  domain.Account
		ok bool
	)
	t.s.read(func(d *data) {
		for _, acc := range d.accounts {
			if acc.Username == username {
				a, ok = acc, true
				return
			}
		}
	})
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (t *tx) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var out []*domain.Account
	t.s.read(func(d *data) {
		out = make([]*domain.Account, 0, len(d.accounts))
		for _, a := range d.accounts {
			a := a
			out = append(out, &a)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// uniqueIdentity rejects a username or email already held by another account.
func uniqueIdentity(d *data, a domain.Account) error {
	for id, other := range d.accounts {
		if id == a.ID {
			continue
		}
		if other.Username == a.Username || strings.EqualFold(other.Email, a.Email) {
			return domain.ErrConflict
		}
	}
	return nil
}

func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	acc := *a
	return t.write(func(d *data) error {
		if _, ok := d.accounts[acc.ID]; ok {
			return domain.ErrConflict
		}
		return uniqueIdentity(d, acc)
	}, func(d *data) {
		d.accounts[acc.ID] = acc
	})
}

func (t *tx) UpdateAccount(ctx context.Context, a *domain.Account) error {
	acc := *a
	return t.write(func(d *data) error {
		if _, ok := d.accounts[acc.ID]; !ok {
			return domain.ErrNotFound
		}
		return uniqueIdentity(d, acc)
	}, func(d *data) {
		d.accounts[acc.ID] = acc
	})
}

func (t *tx) DeleteAccount(ctx context.Context, id domain.ID) error {
	var ok bool
	t.s.read(func(d *data) { _, ok = d.accounts[id] })
	if !ok {
		return domain.ErrNotFound
	}
	return t.write(nil, func(d *data) {
		delete(d.accounts, id)
	})
}
