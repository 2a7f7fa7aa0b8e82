package memory

import (
	"context"
	"sort"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

func (t *tx) GetPoll(ctx context.Context, id domain.ID) (*domain.Poll, error) {
	var p *domain.Poll
	t.s.read(func(d *data) {
		if stored, ok := d.polls[id]; ok {
			p = stored.Clone()
		}
	})
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (t *tx) LockPoll(ctx context.Context, id domain.ID) (*domain.Poll, error) {
	t.lock(pollKey(id))
	return t.GetPoll(ctx, id)
}

func (t *tx) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	var out []*domain.Poll
	t.s.read(func(d *data) {
		out = make([]*domain.Poll, 0, len(d.polls))
		for _, p := range d.polls {
			out = append(out, p.Clone())
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (t *tx) InsertPoll(ctx context.Context, p *domain.Poll) error {
	rec := p.Clone()
	return t.write(func(d *data) error {
		if _, ok := d.polls[rec.ID]; ok {
			return domain.ErrConflict
		}
		return nil
	}, func(d *data) {
		d.polls[rec.ID] = rec
	})
}

func (t *tx) UpdatePoll(ctx context.Context, p *domain.Poll) error {
	rec := p.Clone()
	return t.write(func(d *data) error {
		if _, ok := d.polls[rec.ID]; !ok {
			return domain.ErrNotFound
		}
		return nil
	}, func(d *data) {
		d.polls[rec.ID] = rec
	})
}

func (t *tx) DeletePoll(ctx context.Context, id domain.ID) error {
	var ok bool
	t.s.read(func(d *data) { _, ok = d.polls[id] })
	if !ok {
		return domain.ErrNotFound
	}
	return t.write(nil, func(d *data) {
		delete(d.polls, id)
	})
}

func (t *tx) DeletePollsCreatedBy(ctx context.Context, creator domain.ID) (int, error) {
	var ids []domain.ID
	t.s.read(func(d *data) {
		for id, p := range d.polls {
			if p.OwnedBy(creator) {
				ids = append(ids, id)
			}
		}
	})
	err := t.write(nil, func(d *data) {
		for _, id := range ids {
			delete(d.polls, id)
		}
	})
	return len(ids), err
}
