package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/pointsops/internal/domain"
)

func (t *tx) InsertChatMessage(ctx context.Context, m *domain.ChatMessage) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO chat_messages (id, room_id, user_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.RoomID, m.UserID, m.Message, m.Timestamp)
	return castErr(err)
}

func (t *tx) ListChatMessages(ctx context.Context, room string) ([]*domain.ChatMessage, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, room_id, user_id, message, created_at
		FROM chat_messages
		WHERE $1::text = '' OR room_id = $1
		ORDER BY created_at
	`, room)
	if err != nil {
		return nil, castErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ChatMessage, error) {
		var m domain.ChatMessage
		err := row.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Message, &m.Timestamp)
		return &m, err
	})
	return out, castErr(err)
}

func (t *tx) DeleteChatMessagesBy(ctx context.Context, user domain.ID) (int, error) {
	return affected(t.tx.Exec(ctx, "DELETE FROM chat_messages WHERE user_id = $1", user))
}

func (t *tx) InsertAnalysisRecord(ctx context.Context, r *domain.AnalysisRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO analysis_history (id, user_id, text, sentiment, confidence, score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.UserID, r.Text, r.Sentiment, r.Confidence, r.Score, r.Timestamp)
	return castErr(err)
}

func (t *tx) ListAnalysisRecords(ctx context.Context, owner *domain.ID) ([]*domain.AnalysisRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	const cols = "SELECT id, user_id, text, sentiment, confidence, score, created_at FROM analysis_history"
	if owner == nil {
		rows, err = t.tx.Query(ctx, cols+" ORDER BY created_at DESC")
	} else {
		rows, err = t.tx.Query(ctx, cols+" WHERE user_id = $1 ORDER BY created_at DESC", *owner)
	}
	if err != nil {
		return nil, castErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AnalysisRecord, error) {
		var r domain.AnalysisRecord
		err := row.Scan(&r.ID, &r.UserID, &r.Text, &r.Sentiment, &r.Confidence, &r.Score, &r.Timestamp)
		return &r, err
	})
	return out, castErr(err)
}

func (t *tx) DeleteAnalysisRecordsBy(ctx context.Context, owner domain.ID) (int, error) {
	return affected(t.tx.Exec(ctx, "DELETE FROM analysis_history WHERE user_id = $1", owner))
}
