package admin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
	"github.com/punchamoorthee/pointsops/internal/store/memory"
	"github.com/punchamoorthee/pointsops/internal/store/storetest"
)

func TestApproveGrantsAdmin(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "hopeful", 0)
	wf := NewWorkflow(s)

	r, err := wf.Create(ctx, u.ID, "I moderate a lot")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Status != domain.StatusPending {
		t.Errorf("Status = %s, want pending", r.Status)
	}

	approved, err := wf.Approve(ctx, r.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != domain.StatusApproved {
		t.Errorf("Status = %s, want approved", approved.Status)
	}
	if !isAdmin(t, s, u.ID) {
		t.Error("Approved requester is not an admin")
	}

	if _, err := wf.Approve(ctx, r.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Approving twice: got %v, want ErrInvalidTransition", err)
	}
	if _, err := wf.Reject(ctx, r.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Rejecting an approved request: got %v, want ErrInvalidTransition", err)
	}
}

func TestRejectAndReapply(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "persistent", 0)
	wf := NewWorkflow(s)

	r, _ := wf.Create(ctx, u.ID, "first try")
	if _, err := wf.Reapply(ctx, r.ID, ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Reapply on pending: got %v, want ErrInvalidTransition", err)
	}

	rejected, err := wf.Reject(ctx, r.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != domain.StatusRejected || isAdmin(t, s, u.ID) {
		t.Errorf("Reject produced %s, admin=%v", rejected.Status, isAdmin(t, s, u.ID))
	}

	again, err := wf.Reapply(ctx, r.ID, "")
	if err != nil {
		t.Fatalf("Reapply: %v", err)
	}
	if again.ID == r.ID || again.Status != domain.StatusPending || again.Reason != "first try" {
		t.Errorf("Unexpected reapplication: %+v", again)
	}
	if _, err := wf.Reapply(ctx, r.ID, "third"); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("Second reapply while pending: got %v, want ErrDuplicateRequest", err)
	}

	history, _ := wf.ForUser(ctx, u.ID)
	if len(history) != 2 {
		t.Errorf("Expected 2 requests in history, got %d", len(history))
	}
}

func TestCreateValidation(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "u", 0)
	wf := NewWorkflow(s)

	tests := []struct {
		name   string
		user   domain.ID
		reason string
		want   error
	}{
		{"blank reason", u.ID, "   ", domain.ErrInvalidInput},
		{"unknown user", domain.NewID(), "why not", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := wf.Create(ctx, tt.user, tt.reason); !errors.Is(err, tt.want) {
				t.Errorf("Create error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := wf.Approve(ctx, domain.NewID()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Approve unknown request: got %v, want ErrNotFound", err)
	}
}

// TestConcurrentCreateSinglePending races many filings for one user; only one
// may end up pending.
func TestConcurrentCreateSinglePending(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "eager", 0)
	wf := NewWorkflow(s)

	const attempts = 20
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := wf.Create(ctx, u.ID, "pick me")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrDuplicateRequest):
				dup.Add(1)
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || dup.Load() != attempts-1 {
		t.Errorf("Got %d created and %d duplicates, want 1 and %d", ok.Load(), dup.Load(), attempts-1)
	}
	list, _ := wf.List(ctx)
	if len(list) != 1 {
		t.Errorf("Expected one stored request, got %d", len(list))
	}
}

// TestApproveWithMissingAccount approves a request whose account vanished
// outside the cascade path. The approval stands; there is nobody to promote.
func TestApproveWithMissingAccount(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "ghost", 0)
	wf := NewWorkflow(s)
	r, _ := wf.Create(ctx, u.ID, "boo")

	err := store.Update(ctx, s, func(tx store.Tx) error { return tx.DeleteAccount(ctx, u.ID) })
	if err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	approved, err := wf.Approve(ctx, r.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != domain.StatusApproved {
		t.Errorf("Status = %s, want approved", approved.Status)
	}
}

func TestSetAdmin(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "u", 0)
	wf := NewWorkflow(s)

	if _, err := wf.SetAdmin(ctx, u.ID, true); err != nil || !isAdmin(t, s, u.ID) {
		t.Errorf("make admin: err=%v admin=%v", err, isAdmin(t, s, u.ID))
	}
	if _, err := wf.SetAdmin(ctx, u.ID, false); err != nil || isAdmin(t, s, u.ID) {
		t.Errorf("remove admin: err=%v admin=%v", err, isAdmin(t, s, u.ID))
	}
	if _, err := wf.SetAdmin(ctx, domain.NewID(), true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func isAdmin(t *testing.T, s store.Store, id domain.ID) bool {
	t.Helper()
	var a *domain.Account
	err := store.View(context.Background(), s, func(tx store.Tx) error {
		var err error
		a, err = tx.GetAccount(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	return a.IsAdmin
}
