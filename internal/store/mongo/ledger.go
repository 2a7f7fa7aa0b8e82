package mongo

import (
	"context"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

type transactionDoc struct {
	ID         string    `bson:"_id"`
	SenderID   string    `bson:"sender_id"`
	ReceiverID string    `bson:"receiver_id"`
	Amount     int64     `bson:"amount"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (t *tx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	return t.insert(ctx, colTransactions, transactionDoc{
		ID:         tr.ID.String(),
		SenderID:   tr.SenderID.String(),
		ReceiverID: tr.ReceiverID.String(),
		Amount:     tr.Amount,
		CreatedAt:  tr.Timestamp,
	})
}

func (t *tx) ListTransactions(ctx context.Context, involving *domain.ID) ([]*domain.Transaction, error) {
	filter := bson.M{}
	if involving != nil {
		filter = involvingFilter(*involving)
	}
	var docs []transactionDoc
	if err := t.find(ctx, colTransactions, filter, true, &docs); err != nil {
		return nil, err
	}

	out := make([]*domain.Transaction, 0, len(docs))
	for _, d := range docs {
		tr := &domain.Transaction{Amount: d.Amount, Timestamp: d.CreatedAt.UTC()}
		var err error
		if tr.ID, err = parseID(d.ID); err != nil {
			return nil, err
		}
		if tr.SenderID, err = parseID(d.SenderID); err != nil {
			return nil, err
		}
		if tr.ReceiverID, err = parseID(d.ReceiverID); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

func (t *tx) DeleteTransactionsInvolving(ctx context.Context, id domain.ID) (int, error) {
	return t.deleteMany(ctx, colTransactions, involvingFilter(id))
}

func involvingFilter(id domain.ID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": id.String()},
		bson.M{"receiver_id": id.String()},
	}}
}
