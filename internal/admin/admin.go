// Package admin runs the admin request workflow:
//
//	pending -> approved   (terminal; promotes the account)
//	pending -> rejected
//	rejected -> pending   (reapply files a fresh request)
//
// A user never has more than one pending request.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
)

type Workflow struct {
	store store.Store
	now   func() time.Time
}

func NewWorkflow(s store.Store) *Workflow {
	return &Workflow{store: s, now: time.Now}
}

// Create files a pending request for userID.
func (w *Workflow) Create(ctx context.Context, userID domain.ID, reason string) (*domain.AdminRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.Invalid("reason is required")
	}

	var out *domain.AdminRequest
	err := store.Update(ctx, w.store, func(tx store.Tx) error {
		var err error
		out, err = w.file(ctx, tx, userID, reason)
		return err
	})
	return out, err
}

// file inserts a new pending request after checking the user exists and has
// none pending. The account lock serializes concurrent filings for one user.
func (w *Workflow) file(ctx context.Context, tx store.Tx, userID domain.ID, reason string) (*domain.AdminRequest, error) {
	if _, err := tx.LockAccounts(ctx, userID); err != nil {
		return nil, err
	}
	existing, err := tx.ListAdminRequests(ctx, &userID)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.Status == domain.StatusPending {
			return nil, domain.ErrDuplicateRequest
		}
	}

	now := w.now().UTC()
	r := &domain.AdminRequest{
		ID:        domain.NewID(),
		UserID:    userID,
		Reason:    reason,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.InsertAdminRequest(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Approve marks the request approved and grants the requester admin rights.
// If the account is gone the approval still stands and the grant is skipped.
func (w *Workflow) Approve(ctx context.Context, requestID domain.ID) (*domain.AdminRequest, error) {
	var out *domain.AdminRequest
	err := store.Update(ctx, w.store, func(tx store.Tx) error {
		r, err := pendingRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}

		var account *domain.Account
		accounts, err := tx.LockAccounts(ctx, r.UserID)
		switch {
		case err == nil:
			account = accounts[r.UserID]
		case errors.Is(err, domain.ErrNotFound):
			slog.Warn("approved admin request for missing account", "request_id", r.ID, "user_id", r.UserID)
		default:
			return err
		}

		r.Status = domain.StatusApproved
		r.UpdatedAt = w.now().UTC()
		if err := tx.UpdateAdminRequest(ctx, r); err != nil {
			return err
		}
		if account != nil && !account.IsAdmin {
			account.IsAdmin = true
			if err := tx.UpdateAccount(ctx, account); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	return out, err
}

// Reject closes a pending request without granting anything.
func (w *Workflow) Reject(ctx context.Context, requestID domain.ID) (*domain.AdminRequest, error) {
	var out *domain.AdminRequest
	err := store.Update(ctx, w.store, func(tx store.Tx) error {
		r, err := pendingRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		r.Status = domain.StatusRejected
		r.UpdatedAt = w.now().UTC()
		if err := tx.UpdateAdminRequest(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// Reapply files a fresh pending request in place of a rejected one. An empty
// reason reuses the rejected request's reason.
func (w *Workflow) Reapply(ctx context.Context, requestID domain.ID, reason string) (*domain.AdminRequest, error) {
	var out *domain.AdminRequest
	err := store.Update(ctx, w.store, func(tx store.Tx) error {
		old, err := tx.LockAdminRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if old.Status != domain.StatusRejected {
			return domain.ErrInvalidTransition
		}
		if reason = strings.TrimSpace(reason); reason == "" {
			reason = old.Reason
		}
		out, err = w.file(ctx, tx, old.UserID, reason)
		return err
	})
	return out, err
}

func pendingRequest(ctx context.Context, tx store.Tx, id domain.ID) (*domain.AdminRequest, error) {
	r, err := tx.LockAdminRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.StatusPending {
		return nil, domain.ErrInvalidTransition
	}
	return r, nil
}

// List returns every request, newest first.
func (w *Workflow) List(ctx context.Context) ([]*domain.AdminRequest, error) {
	var out []*domain.AdminRequest
	err := store.View(ctx, w.store, func(tx store.Tx) error {
		var err error
		out, err = tx.ListAdminRequests(ctx, nil)
		return err
	})
	return out, err
}

// ForUser returns the user's requests, newest first.
func (w *Workflow) ForUser(ctx context.Context, userID domain.ID) ([]*domain.AdminRequest, error) {
	var out []*domain.AdminRequest
	err := store.View(ctx, w.store, func(tx store.Tx) error {
		var err error
		out, err = tx.ListAdminRequests(ctx, &userID)
		return err
	})
	return out, err
}

// SetAdmin grants or revokes admin rights directly.
func (w *Workflow) SetAdmin(ctx context.Context, userID domain.ID, admin bool) (*domain.Account, error) {
	var out *domain.Account
	err := store.Update(ctx, w.store, func(tx store.Tx) error {
		accounts, err := tx.LockAccounts(ctx, userID)
		if err != nil {
			return err
		}
		a := accounts[userID]
		a.IsAdmin = admin
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}
