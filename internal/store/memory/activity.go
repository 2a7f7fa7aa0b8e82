package memory

import (
	"context"
	"sort"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

func (t *tx) InsertChatMessage(ctx context.Context, m *domain.ChatMessage) error {
	rec := *m
	return t.write(nil, func(d *data) {
		d.messages = append(d.messages, rec)
	})
}

func (t *tx) ListChatMessages(ctx context.Context, room string) ([]*domain.ChatMessage, error) {
	var out []*domain.ChatMessage
	t.s.read(func(d *data) {
		for _, m := range d.messages {
			if room != "" && m.RoomID != room {
				continue
			}
			m := m
			out = append(out, &m)
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (t *tx) DeleteChatMessagesBy(ctx context.Context, user domain.ID) (int, error) {
	var n int
	t.s.read(func(d *data) {
		for _, m := range d.messages {
			if m.UserID == user {
				n++
			}
		}
	})
	err := t.write(nil, func(d *data) {
		kept := d.messages[:0]
		for _, m := range d.messages {
			if m.UserID != user {
				kept = append(kept, m)
			}
		}
		d.messages = kept
	})
	return n, err
}

func (t *tx) InsertAnalysisRecord(ctx context.Context, r *domain.AnalysisRecord) error {
	rec := *r
	return t.write(nil, func(d *data) {
		d.analysis = append(d.analysis, rec)
	})
}

func (t *tx) ListAnalysisRecords(ctx context.Context, owner *domain.ID) ([]*domain.AnalysisRecord, error) {
	var out []*domain.AnalysisRecord
	t.s.read(func(d *data) {
		for i := len(d.analysis) - 1; i >= 0; i-- {
			r := d.analysis[i]
			if owner != nil && r.UserID != *owner {
				continue
			}
			out = append(out, &r)
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (t *tx) DeleteAnalysisRecordsBy(ctx context.Context, owner domain.ID) (int, error) {
	var n int
	t.s.read(func(d *data) {
		for _, r := range d.analysis {
			if r.UserID == owner {
				n++
			}
		}
	})
	err := t.write(nil, func(d *data) {
		kept := d.analysis[:0]
		for _, r := range d.analysis {
			if r.UserID != owner {
				kept = append(kept, r)
			}
		}
		d.analysis = kept
	})
	return n, err
}
