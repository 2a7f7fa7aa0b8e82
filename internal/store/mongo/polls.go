package mongo

import (
	"context"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

// The tally is a list rather than a subdocument because option labels are
// free text and may contain '.' or '$'.
type pollDoc struct {
	ID        string     `bson:"_id"`
	Title     string     `bson:"title"`
	Options   []string   `bson:"options"`
	Votes     []tallyDoc `bson:"votes"`
	Voters    []string   `bson:"voters"`
	Active    bool       `bson:"active"`
	CreatorID *string    `bson:"creator_id"`
	CreatedAt time.Time  `bson:"created_at"`
}

type tallyDoc struct {
	Option string `bson:"option"`
	Count  int64  `bson:"count"`
}

func newPollDoc(p *domain.Poll) pollDoc {
	d := pollDoc{
		ID:        p.ID.String(),
		Title:     p.Title,
		Options:   p.Options,
		Votes:     make([]tallyDoc, 0, len(p.Votes)),
		Voters:    make([]string, 0, len(p.Voters)),
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
	for _, o := range p.Options {
		d.Votes = append(d.Votes, tallyDoc{Option: o, Count: p.Votes[o]})
	}
	for _, v := range p.Voters {
		d.Voters = append(d.Voters, v.String())
	}
	if p.CreatorID != nil {
		c := p.CreatorID.String()
		d.CreatorID = &c
	}
	return d
}

func (d *pollDoc) poll() (*domain.Poll, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	p := &domain.Poll{
		ID:        id,
		Title:     d.Title,
		Options:   d.Options,
		Votes:     make(map[string]int64, len(d.Votes)),
		Voters:    make([]domain.ID, 0, len(d.Voters)),
		Active:    d.Active,
		CreatedAt: d.CreatedAt.UTC(),
	}
	for _, v := range d.Votes {
		p.Votes[v.Option] = v.Count
	}
	for _, s := range d.Voters {
		v, err := parseID(s)
		if err != nil {
			return nil, err
		}
		p.Voters = append(p.Voters, v)
	}
	if d.CreatorID != nil {
		c, err := parseID(*d.CreatorID)
		if err != nil {
			return nil, err
		}
		p.CreatorID = &c
	}
	return p, nil
}

func (t *tx) GetPoll(ctx context.Context, id domain.ID) (*domain.Poll, error) {
	var d pollDoc
	if err := castErr(t.col(colPolls).FindOne(t.sc(ctx), bson.M{"_id": id.String()}).Decode(&d)); err != nil {
		return nil, err
	}
	return d.poll()
}

func (t *tx) LockPoll(ctx context.Context, id domain.ID) (*domain.Poll, error) {
	var d pollDoc
	if err := t.lockOne(ctx, colPolls, id.String(), &d); err != nil {
		return nil, err
	}
	return d.poll()
}

func (t *tx) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	var docs []pollDoc
	if err := t.find(ctx, colPolls, bson.M{}, true, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Poll, 0, len(docs))
	for i := range docs {
		p, err := docs[i].poll()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *tx) InsertPoll(ctx context.Context, p *domain.Poll) error {
	return t.insert(ctx, colPolls, newPollDoc(p))
}

func (t *tx) UpdatePoll(ctx context.Context, p *domain.Poll) error {
	d := newPollDoc(p)
	return t.updateOne(ctx, colPolls, d.ID, bson.M{
		"title":   d.Title,
		"options": d.Options,
		"votes":   d.Votes,
		"voters":  d.Voters,
		"active":  d.Active,
	})
}

func (t *tx) DeletePoll(ctx context.Context, id domain.ID) error {
	return t.deleteOne(ctx, colPolls, id.String())
}

func (t *tx) DeletePollsCreatedBy(ctx context.Context, creator domain.ID) (int, error) {
	return t.deleteMany(ctx, colPolls, bson.M{"creator_id": creator.String()})
}
