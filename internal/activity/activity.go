// Package activity stores the peripheral per-user records: chat messages and
// sentiment analysis history.
package activity

import (
	"context"
	"strings"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// PostMessage appends a message to room on behalf of userID.
func (s *Service) PostMessage(ctx context.Context, userID domain.ID, room, message string) (*domain.ChatMessage, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, domain.Invalid("room is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, domain.Invalid("message is required")
	}

	m := &domain.ChatMessage{
		ID:        domain.NewID(),
		RoomID:    room,
		UserID:    userID,
		Message:   message,
		Timestamp: s.now().UTC(),
	}
	err := store.Update(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.LockAccounts(ctx, userID); err != nil {
			return err
		}
		return tx.InsertChatMessage(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns a room's messages oldest first; an empty room lists every room.
func (s *Service) ListMessages(ctx context.Context, room string) ([]*domain.ChatMessage, error) {
	var out []*domain.ChatMessage
	err := store.View(ctx, s.store, func(tx store.Tx) error {
		var err error
		out, err = tx.ListChatMessages(ctx, room)
		return err
	})
	return out, err
}

// SaveAnalysis records one analysis result owned by rec.UserID.
func (s *Service) SaveAnalysis(ctx context.Context, rec domain.AnalysisRecord) (*domain.AnalysisRecord, error) {
	switch {
	case strings.TrimSpace(rec.Text) == "":
		return nil, domain.Invalid("text is required")
	case rec.Sentiment == "":
		return nil, domain.Invalid("sentiment is required")
	case rec.Confidence < 0 || rec.Confidence > 1:
		return nil, domain.Invalid("confidence must be between 0 and 1")
	}

	rec.ID = domain.NewID()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	rec.Timestamp = rec.Timestamp.UTC()

	err := store.Update(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.LockAccounts(ctx, rec.UserID); err != nil {
			return err
		}
		return tx.InsertAnalysisRecord(ctx, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListAnalysis returns history newest first, optionally for one owner.
func (s *Service) ListAnalysis(ctx context.Context, owner *domain.ID) ([]*domain.AnalysisRecord, error) {
	var out []*domain.AnalysisRecord
	err := store.View(ctx, s.store, func(tx store.Tx) error {
		var err error
		out, err = tx.ListAnalysisRecords(ctx, owner)
		return err
	})
	return out, err
}

// ClearAnalysis deletes analysis history, all of it when owner is nil, and
// reports how many records went.
func (s *Service) ClearAnalysis(ctx context.Context, owner *domain.ID) (int, error) {
	var n int
	err := store.Update(ctx, s.store, func(tx store.Tx) error {
		owners := []domain.ID{}
		if owner != nil {
			owners = append(owners, *owner)
		} else {
			recs, err := tx.ListAnalysisRecords(ctx, nil)
			if err != nil {
				return err
			}
			seen := make(map[domain.ID]bool)
			for _, r := range recs {
				if !seen[r.UserID] {
					seen[r.UserID] = true
					owners = append(owners, r.UserID)
				}
			}
		}
		for _, id := range owners {
			deleted, err := tx.DeleteAnalysisRecordsBy(ctx, id)
			if err != nil {
				return err
			}
			n += deleted
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
