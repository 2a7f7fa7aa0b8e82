package memory

import (
	"context"
	"sort"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

func (t *tx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	rec := *tr
	return t.write(nil, func(d *data) {
		d.transactions = append(d.transactions, rec)
	})
}

func (t *tx) ListTransactions(ctx context.Context, involving *domain.ID) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	t.s.read(func(d *data) {
		for i := len(d.transactions) - 1; i >= 0; i-- {
			tr := d.transactions[i]
			if involving != nil && !tr.Involves(*involving) {
				continue
			}
			out = append(out, &tr)
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (t *tx) DeleteTransactionsInvolving(ctx context.Context, id domain.ID) (int, error) {
	var n int
	t.s.read(func(d *data) {
		for _, tr := range d.transactions {
			if tr.Involves(id) {
				n++
			}
		}
	})
	err := t.write(nil, func(d *data) {
		kept := d.transactions[:0]
		for _, tr := range d.transactions {
			if !tr.Involves(id) {
				kept = append(kept, tr)
			}
		}
		d.transactions = kept
	})
	return n, err
}
