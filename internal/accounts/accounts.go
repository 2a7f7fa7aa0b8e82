// Package accounts registers users and manages their profiles. Balances are
// never touched here: only the ledger moves points.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Registration is what a new user supplies.
type Registration struct {
	Username string
	Email    string
	Password string
	// Points seeds the starting balance. Registration through the API always uses zero.
	Points int64
}

func (r Registration) validate() error {
	switch {
	case strings.TrimSpace(r.Username) == "":
		return domain.Invalid("username is required")
	case len(r.Password) < 6:
		return domain.Invalid("password must be at least 6 characters")
	case r.Points < 0:
		return domain.Invalid("points cannot be negative")
	}
	return domain.AccountUpdate{Email: &r.Email}.Validate()
}

type Service struct {
	store store.Store
	cost  int
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithHashCost returns a copy using a different bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	c := *s
	c.cost = cost
	return &c
}

// Register creates an account. Usernames and emails are unique.
func (s *Service) Register(ctx context.Context, reg Registration) (*domain.Account, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return nil, domain.Invalid(err.Error())
	}

	a := &domain.Account{
		ID:           domain.NewID(),
		Username:     strings.TrimSpace(reg.Username),
		Email:        reg.Email,
		PasswordHash: string(hash),
		Points:       reg.Points,
		Avatar:       domain.DefaultAvatar,
		CreatedAt:    s.now().UTC(),
	}
	err = store.Update(ctx, s.store, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Authenticate checks a username and password pair. Issuing a session for the
// returned account is up to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	var a *domain.Account
	err := store.View(ctx, s.store, func(tx store.Tx) error {
		var err error
		a, err = tx.FindAccountByUsername(ctx, username)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrUnauthorized
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id domain.ID) (*domain.Account, error) {
	var a *domain.Account
	err := store.View(ctx, s.store, func(tx store.Tx) error {
		var err error
		a, err = tx.GetAccount(ctx, id)
		return err
	})
	return a, err
}

func (s *Service) List(ctx context.Context) ([]*domain.Account, error) {
	var out []*domain.Account
	err := store.View(ctx, s.store, func(tx store.Tx) error {
		var err error
		out, err = tx.ListAccounts(ctx)
		return err
	})
	return out, err
}

// Update applies a validated partial update. Fields outside AccountUpdate,
// the balance and admin flag included, cannot be changed this way.
func (s *Service) Update(ctx context.Context, id domain.ID, upd domain.AccountUpdate) (*domain.Account, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	var out *domain.Account
	err := store.Update(ctx, s.store, func(tx store.Tx) error {
		accounts, err := tx.LockAccounts(ctx, id)
		if err != nil {
			return err
		}
		a := accounts[id]
		upd.Apply(a)
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}
