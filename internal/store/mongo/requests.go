package mongo

import (
	"context"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

type requestDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Reason    string    `bson:"reason"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *requestDoc) request() (*domain.AdminRequest, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	user, err := parseID(d.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.AdminRequest{
		ID:        id,
		UserID:    user,
		Reason:    d.Reason,
		Status:    domain.RequestStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func (t *tx) GetAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
	var d requestDoc
	if err := castErr(t.col(colRequests).FindOne(t.sc(ctx), bson.M{"_id": id.String()}).Decode(&d)); err != nil {
		return nil, err
	}
	return d.request()
}

func (t *tx) LockAdminRequest(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
	var d requestDoc
	if err := t.lockOne(ctx, colRequests, id.String(), &d); err != nil {
		return nil, err
	}
	return d.request()
}

func (t *tx) ListAdminRequests(ctx context.Context, user *domain.ID) ([]*domain.AdminRequest, error) {
	filter := bson.M{}
	if user != nil {
		filter["user_id"] = user.String()
	}
	var docs []requestDoc
	if err := t.find(ctx, colRequests, filter, true, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.AdminRequest, 0, len(docs))
	for i := range docs {
		r, err := docs[i].request()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *tx) InsertAdminRequest(ctx context.Context, r *domain.AdminRequest) error {
	return t.insert(ctx, colRequests, requestDoc{
		ID:        r.ID.String(),
		UserID:    r.UserID.String(),
		Reason:    r.Reason,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	})
}

func (t *tx) UpdateAdminRequest(ctx context.Context, r *domain.AdminRequest) error {
	return t.updateOne(ctx, colRequests, r.ID.String(), bson.M{
		"reason":     r.Reason,
		"status":     string(r.Status),
		"updated_at": r.UpdatedAt,
	})
}

func (t *tx) DeleteAdminRequestsBy(ctx context.Context, user domain.ID) (int, error) {
	return t.deleteMany(ctx, colRequests, bson.M{"user_id": user.String()})
}
