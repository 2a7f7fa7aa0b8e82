// Package polls creates polls and records votes. The tally and voter set of a
// poll change together under the poll's lock, so a user's vote is counted at
// most once no matter how many requests race.
package polls

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
)

var votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pointsops_votes_total",
	Help: "Votes attempted, labeled by outcome code",
}, []string{"result"})

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// CreatePoll opens a new poll with every option's tally at zero. creator may
// be nil for polls nobody owns.
func (s *Service) CreatePoll(ctx context.Context, title string, options []string, creator *domain.ID) (*domain.Poll, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.Invalid("title is required")
	}
	if len(options) == 0 {
		return nil, domain.Invalid("at least one option is required")
	}

	votes := make(map[string]int64, len(options))
	for _, o := range options {
		if o == "" {
			return nil, domain.Invalid("options cannot be empty")
		}
		if _, dup := votes[o]; dup {
			return nil, domain.Invalid("duplicate option " + o)
		}
		votes[o] = 0
	}

	p := &domain.Poll{
		ID:        domain.NewID(),
		Title:     title,
		Options:   append([]string(nil), options...),
		Votes:     votes,
		Voters:    []domain.ID{},
		Active:    true,
		CreatorID: creator,
		CreatedAt: s.now().UTC(),
	}
	err := store.Update(ctx, s.store, func(tx store.Tx) error {
		if creator != nil {
			if _, err := tx.LockAccounts(ctx, *creator); err != nil {
				return err
			}
		}
		return tx.InsertPoll(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Vote records userID's choice. Checks run in a fixed order: the poll must
// exist, be active, not already hold userID, and offer option.
func (s *Service) Vote(ctx context.Context, pollID, userID domain.ID, option string) (*domain.Poll, error) {
	var out *domain.Poll
	err := store.Update(ctx, s.store, func(tx store.Tx) error {
		p, err := tx.LockPoll(ctx, pollID)
		if err != nil {
			return err
		}
		switch {
		case !p.Active:
			return domain.ErrPollClosed
		case p.HasVoted(userID):
			return domain.ErrDuplicateVote
		case !p.HasOption(option):
			return domain.ErrInvalidOption
		}

		p.Votes[option]++
		p.Voters = append(p.Voters, userID)
		if err := tx.UpdatePoll(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		votesTotal.WithLabelValues(domain.Code(err)).Inc()
		return nil, err
	}
	votesTotal.WithLabelValues("ok").Inc()
	return out, nil
}

// ToggleActive flips whether the poll accepts votes.
func (s *Service) ToggleActive(ctx context.Context, pollID domain.ID) (*domain.Poll, error) {
	var out *domain.Poll
	err := store.Update(ctx, s.store, func(tx store.Tx) error {
		p, err := tx.LockPoll(ctx, pollID)
		if err != nil {
			return err
		}
		p.Active = !p.Active
		if err := tx.UpdatePoll(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, pollID domain.ID) (*domain.Poll, error) {
	var out *domain.Poll
	err := store.View(ctx, s.store, func(tx store.Tx) error {
		var err error
		out, err = tx.GetPoll(ctx, pollID)
		return err
	})
	return out, err
}

// List returns every poll, newest first.
func (s *Service) List(ctx context.Context) ([]*domain.Poll, error) {
	var out []*domain.Poll
	err := store.View(ctx, s.store, func(tx store.Tx) error {
		var err error
		out, err = tx.ListPolls(ctx)
		return err
	})
	return out, err
}

// Delete removes a poll together with its tally and voter set.
func (s *Service) Delete(ctx context.Context, pollID domain.ID) error {
	return store.Update(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.LockPoll(ctx, pollID); err != nil {
			return err
		}
		return tx.DeletePoll(ctx, pollID)
	})
}
