package mongo

import (
	"context"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Points       int64     `bson:"points"`
	IsAdmin      bool      `bson:"is_admin"`
	Avatar       string    `bson:"avatar"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d *accountDoc) account() (*domain.Account, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:           id,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Points:       d.Points,
		IsAdmin:      d.IsAdmin,
		Avatar:       d.Avatar,
		CreatedAt:    d.CreatedAt.UTC(),
	}, nil
}

func (t *tx) GetAccount(ctx context.Context, id domain.ID) (*domain.Account, error) {
	var d accountDoc
	if err := castErr(t.col(colAccounts).FindOne(t.sc(ctx), bson.M{"_id": id.String()}).Decode(&d)); err != nil {
		return nil, err
	}
	return d.account()
}

func (t *tx) LockAccounts(ctx context.Context, ids ...domain.ID) (map[domain.ID]*domain.Account, error) {
	out := make(map[domain.ID]*domain.Account, len(ids))
	for _, id := range domain.SortIDs(ids) {
		var d accountDoc
		if err := t.lockOne(ctx, colAccounts, id.String(), &d); err != nil {
			return nil, err
		}
		a, err := d.account()
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

func (t *tx) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var d accountDoc
	if err := castErr(t.col(colAccounts).FindOne(t.sc(ctx), bson.M{"username": username}).Decode(&d)); err != nil {
		return nil, err
	}
	return d.account()
}

func (t *tx) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var docs []accountDoc
	if err := t.find(ctx, colAccounts, bson.M{}, false, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		a, err := docs[i].account()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	return t.insert(ctx, colAccounts, accountDoc{
		ID:           a.ID.String(),
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Points:       a.Points,
		IsAdmin:      a.IsAdmin,
		Avatar:       a.Avatar,
		CreatedAt:    a.CreatedAt,
	})
}

func (t *tx) UpdateAccount(ctx context.Context, a *domain.Account) error {
	return t.updateOne(ctx, colAccounts, a.ID.String(), bson.M{
		"username": a.Username,
		"email":    a.Email,
		"points":   a.Points,
		"is_admin": a.IsAdmin,
		"avatar":   a.Avatar,
	})
}

func (t *tx) DeleteAccount(ctx context.Context, id domain.ID) error {
	return t.deleteOne(ctx, colAccounts, id.String())
}
