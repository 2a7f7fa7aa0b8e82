package sqlite

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/punchamoorthee/pointsops/internal/domain"
)

// Options, votes and voters are kept as JSON text.
type pollRow struct {
	ID        domain.ID     `db:"id"`
	Title     string        `db:"title"`
	Options   string        `db:"options"`
	Votes     string        `db:"votes"`
	Voters    string        `db:"voters"`
	Active    bool          `db:"active"`
	CreatorID uuid.NullUUID `db:"creator_id"`
	CreatedAt int64         `db:"created_at"`
}

func (r *pollRow) poll() (*domain.Poll, error) {
	p := &domain.Poll{
		ID:        r.ID,
		Title:     r.Title,
		Active:    r.Active,
		CreatedAt: fromNanos(r.CreatedAt),
		Votes:     map[string]int64{},
	}
	if err := json.Unmarshal([]byte(r.Options), &p.Options); err != nil {
		return nil, domain.Unavailable(err)
	}
	if err := json.Unmarshal([]byte(r.Votes), &p.Votes); err != nil {
		return nil, domain.Unavailable(err)
	}
	if err := json.Unmarshal([]byte(r.Voters), &p.Voters); err != nil {
		return nil, domain.Unavailable(err)
	}
	if r.CreatorID.Valid {
		id := r.CreatorID.UUID
		p.CreatorID = &id
	}
	return p, nil
}

type pollColumns struct {
	options, votes, voters []byte
	creator                uuid.NullUUID
}

func encodePoll(p *domain.Poll) (pollColumns, error) {
	var (
		c   pollColumns
		err error
	)
	if c.options, err = json.Marshal(p.Options); err != nil {
		return c, domain.Unavailable(err)
	}
	votes := p.Votes
	if votes == nil {
		votes = map[string]int64{}
	}
	if c.votes, err = json.Marshal(votes); err != nil {
		return c, domain.Unavailable(err)
	}
	voters := p.Voters
	if voters == nil {
		voters = []domain.ID{}
	}
	if c.voters, err = json.Marshal(voters); err != nil {
		return c, domain.Unavailable(err)
	}
	if p.CreatorID != nil {
		c.creator = uuid.NullUUID{UUID: *p.CreatorID, Valid: true}
	}
	return c, nil
}

func (t *tx) GetPoll(ctx context.Context, id domain.ID) (*domain.Poll, error) {
	var r pollRow
	if err := t.tx.GetContext(ctx, &r, `SELECT * FROM polls WHERE id = ?`, id); err != nil {
		return nil, castErr(err)
	}
	return r.poll()
}

func (t *tx) LockPoll(ctx context.Context, id domain.ID) (*domain.Poll, error) {
	return t.GetPoll(ctx, id)
}

func (t *tx) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	var rows []pollRow
	if err := t.tx.SelectContext(ctx, &rows, `SELECT * FROM polls ORDER BY created_at DESC`); err != nil {
		return nil, castErr(err)
	}
	out := make([]*domain.Poll, 0, len(rows))
	for i := range rows {
		p, err := rows[i].poll()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *tx) InsertPoll(ctx context.Context, p *domain.Poll) error {
	c, err := encodePoll(p)
	if err != nil {
		return err
	}
	_, err = t.exec(ctx, `
		INSERT INTO polls (id, title, options, votes, voters, active, creator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, string(c.options), string(c.votes), string(c.voters), p.Active, c.creator, toNanos(p.CreatedAt))
	return err
}

func (t *tx) UpdatePoll(ctx context.Context, p *domain.Poll) error {
	c, err := encodePoll(p)
	if err != nil {
		return err
	}
	return t.execOne(ctx, `
		UPDATE polls SET title = ?, options = ?, votes = ?, voters = ?, active = ?
		WHERE id = ?
	`, p.Title, string(c.options), string(c.votes), string(c.voters), p.Active, p.ID)
}

func (t *tx) DeletePoll(ctx context.Context, id domain.ID) error {
	return t.execOne(ctx, `DELETE FROM polls WHERE id = ?`, id)
}

func (t *tx) DeletePollsCreatedBy(ctx context.Context, creator domain.ID) (int, error) {
	return t.exec(ctx, `DELETE FROM polls WHERE creator_id = ?`, creator)
}
