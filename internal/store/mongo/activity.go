package mongo

import (
	"context"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

type messageDoc struct {
	ID        string    `bson:"_id"`
	RoomID    string    `bson:"room_id"`
	UserID    string    `bson:"user_id"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"created_at"`
}

type analysisDoc struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Text       string    `bson:"text"`
	Sentiment  string    `bson:"sentiment"`
	Confidence float64   `bson:"confidence"`
	Score      float64   `bson:"score"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (t *tx) InsertChatMessage(ctx context.Context, m *domain.ChatMessage) error {
	return t.insert(ctx, colMessages, messageDoc{
		ID:        m.ID.String(),
		RoomID:    m.RoomID,
		UserID:    m.UserID.String(),
		Message:   m.Message,
		CreatedAt: m.Timestamp,
	})
}

func (t *tx) ListChatMessages(ctx context.Context, room string) ([]*domain.ChatMessage, error) {
	filter := bson.M{}
	if room != "" {
		filter["room_id"] = room
	}
	var docs []messageDoc
	if err := t.find(ctx, colMessages, filter, false, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.ChatMessage, 0, len(docs))
	for _, d := range docs {
		id, err := parseID(d.ID)
		if err != nil {
			return nil, err
		}
		user, err := parseID(d.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, &domain.ChatMessage{
			ID:        id,
			RoomID:    d.RoomID,
			UserID:    user,
			Message:   d.Message,
			Timestamp: d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (t *tx) DeleteChatMessagesBy(ctx context.Context, user domain.ID) (int, error) {
	return t.deleteMany(ctx, colMessages, bson.M{"user_id": user.String()})
}

func (t *tx) InsertAnalysisRecord(ctx context.Context, r *domain.AnalysisRecord) error {
	return t.insert(ctx, colAnalysis, analysisDoc{
		ID:         r.ID.String(),
		UserID:     r.UserID.String(),
		Text:       r.Text,
		Sentiment:  r.Sentiment,
		Confidence: r.Confidence,
		Score:      r.Score,
		CreatedAt:  r.Timestamp,
	})
}

func (t *tx) ListAnalysisRecords(ctx context.Context, owner *domain.ID) ([]*domain.AnalysisRecord, error) {
	filter := bson.M{}
	if owner != nil {
		filter["user_id"] = owner.String()
	}
	var docs []analysisDoc
	if err := t.find(ctx, colAnalysis, filter, true, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.AnalysisRecord, 0, len(docs))
	for _, d := range docs {
		id, err := parseID(d.ID)
		if err != nil {
			return nil, err
		}
		user, err := parseID(d.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, &domain.AnalysisRecord{
			ID:         id,
			UserID:     user,
			Text:       d.Text,
			Sentiment:  d.Sentiment,
			Confidence: d.Confidence,
			Score:      d.Score,
			Timestamp:  d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (t *tx) DeleteAnalysisRecordsBy(ctx context.Context, owner domain.ID) (int, error) {
	return t.deleteMany(ctx, colAnalysis, bson.M{"user_id": owner.String()})
}
