package sqlite

import (
	"context"

	"github.com/punchamoorthee/pointsops/internal/domain"
)

type messageRow struct {
	ID        domain.ID `db:"id"`
	RoomID    string    `db:"room_id"`
	UserID    domain.ID `db:"user_id"`
	Message   string    `db:"message"`
	CreatedAt int64     `db:"created_at"`
}

type analysisRow struct {
	ID         domain.ID `db:"id"`
	UserID     domain.ID `db:"user_id"`
	Text       string    `db:"text"`
	Sentiment  string    `db:"sentiment"`
	Confidence float64   `db:"confidence"`
	Score      float64   `db:"score"`
	CreatedAt  int64     `db:"created_at"`
}

func (t *tx) InsertChatMessage(ctx context.Context, m *domain.ChatMessage) error {
	_, err := t.exec(ctx, `
		INSERT INTO chat_messages (id, room_id, user_id, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.RoomID, m.UserID, m.Message, toNanos(m.Timestamp))
	return err
}

func (t *tx) ListChatMessages(ctx context.Context, room string) ([]*domain.ChatMessage, error) {
	var rows []messageRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT * FROM chat_messages
		WHERE ?1 = '' OR room_id = ?1
		ORDER BY created_at
	`, room)
	if err != nil {
		return nil, castErr(err)
	}
	out := make([]*domain.ChatMessage, len(rows))
	for i, r := range rows {
		out[i] = &domain.ChatMessage{
			ID:        r.ID,
			RoomID:    r.RoomID,
			UserID:    r.UserID,
			Message:   r.Message,
			Timestamp: fromNanos(r.CreatedAt),
		}
	}
	return out, nil
}

func (t *tx) DeleteChatMessagesBy(ctx context.Context, user domain.ID) (int, error) {
	return t.exec(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, user)
}

func (t *tx) InsertAnalysisRecord(ctx context.Context, r *domain.AnalysisRecord) error {
	_, err := t.exec(ctx, `
		INSERT INTO analysis_history (id, user_id, text, sentiment, confidence, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.Text, r.Sentiment, r.Confidence, r.Score, toNanos(r.Timestamp))
	return err
}

func (t *tx) ListAnalysisRecords(ctx context.Context, owner *domain.ID) ([]*domain.AnalysisRecord, error) {
	var (
		rows []analysisRow
		err  error
	)
	if owner == nil {
		err = t.tx.SelectContext(ctx, &rows, `SELECT * FROM analysis_history ORDER BY created_at DESC`)
	} else {
		err = t.tx.SelectContext(ctx, &rows, `SELECT * FROM analysis_history WHERE user_id = ? ORDER BY created_at DESC`, *owner)
	}
	if err != nil {
		return nil, castErr(err)
	}
	out := make([]*domain.AnalysisRecord, len(rows))
	for i, r := range rows {
		out[i] = &domain.AnalysisRecord{
			ID:         r.ID,
			UserID:     r.UserID,
			Text:       r.Text,
			Sentiment:  r.Sentiment,
			Confidence: r.Confidence,
			Score:      r.Score,
			Timestamp:  fromNanos(r.CreatedAt),
		}
	}
	return out, nil
}

func (t *tx) DeleteAnalysisRecordsBy(ctx context.Context, owner domain.ID) (int, error) {
	return t.exec(ctx, `DELETE FROM analysis_history WHERE user_id = ?`, owner)
}
