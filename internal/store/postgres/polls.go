package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/pointsops/internal/domain"
)

const pollColumns = "id, title, options, votes, voters, active, creator_id, created_at"

func scanPoll(row rowScanner) (*domain.Poll, error) {
	var (
		p       domain.Poll
		voters  []string
		creator *uuid.UUID
	)
	err := row.Scan(&p.ID, &p.Title, &p.Options, &p.Votes, &voters, &p.Active, &creator, &p.CreatedAt)
	if err != nil {
		return nil, castErr(err)
	}
	p.Voters = make([]domain.ID, 0, len(voters))
	for _, v := range voters {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, domain.Unavailable(err)
		}
		p.Voters = append(p.Voters, id)
	}
	if p.Votes == nil {
		p.Votes = map[string]int64{}
	}
	p.CreatorID = creator
	return &p, nil
}

func voterStrings(ids []domain.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (t *tx) GetPoll(ctx context.Context, id domain.ID) (*domain.Poll, error) {
	return scanPoll(t.tx.QueryRow(ctx, "SELECT "+pollColumns+" FROM polls WHERE id = $1", id))
}

// LockPoll holds the poll row so concurrent votes on it apply one at a time.
func (t *tx) LockPoll(ctx context.Context, id domain.ID) (*domain.Poll, error) {
	return scanPoll(t.tx.QueryRow(ctx, "SELECT "+pollColumns+" FROM polls WHERE id = $1 FOR UPDATE", id))
}

func (t *tx) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	rows, err := t.tx.Query(ctx, "SELECT "+pollColumns+" FROM polls ORDER BY created_at DESC")
	if err != nil {
		return nil, castErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Poll, error) {
		return scanPoll(row)
	})
	return out, castErr(err)
}

func (t *tx) InsertPoll(ctx context.Context, p *domain.Poll) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO polls (id, title, options, votes, voters, active, creator_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Title, p.Options, p.Votes, voterStrings(p.Voters), p.Active, p.CreatorID, p.CreatedAt)
	return castErr(err)
}

func (t *tx) UpdatePoll(ctx context.Context, p *domain.Poll) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE polls
		SET title = $2, options = $3, votes = $4, voters = $5, active = $6
		WHERE id = $1
	`, p.ID, p.Title, p.Options, p.Votes, voterStrings(p.Voters), p.Active)
	if err != nil {
		return castErr(err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) DeletePoll(ctx context.Context, id domain.ID) error {
	n, err := affected(t.tx.Exec(ctx, "DELETE FROM polls WHERE id = $1", id))
	if err != nil {
		return err
	}
	if n != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) DeletePollsCreatedBy(ctx context.Context, creator domain.ID) (int, error) {
	return affected(t.tx.Exec(ctx, "DELETE FROM polls WHERE creator_id = $1", creator))
}
