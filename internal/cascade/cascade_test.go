package cascade

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/punchamoorthee/pointsops/internal/activity"
	"github.com/punchamoorthee/pointsops/internal/admin"
	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/ledger"
	"github.com/punchamoorthee/pointsops/internal/polls"
	"github.com/punchamoorthee/pointsops/internal/store"
	"github.com/punchamoorthee/pointsops/internal/store/memory"
	"github.com/punchamoorthee/pointsops/internal/store/storetest"
)

type fixture struct {
	store  store.Store
	victim *domain.Account
	other  *domain.Account
}

// populate gives the victim one record of every kind that references them,
// plus unrelated records owned by someone else.
func populate(t *testing.T, s store.Store) fixture {
	t.Helper()
	ctx := context.Background()
	victim := storetest.CreateAccount(t, s, "victim", 100)
	other := storetest.CreateAccount(t, s, "other", 100)

	must := func(_ any, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	l := ledger.New(s)
	must(l.Transfer(ctx, victim.ID, other.ID, 10))
	must(l.Transfer(ctx, other.ID, victim.ID, 5))

	act := activity.NewService(s)
	must(act.PostMessage(ctx, victim.ID, "general", "bye"))
	must(act.PostMessage(ctx, other.ID, "general", "stay"))
	must(act.SaveAnalysis(ctx, domain.AnalysisRecord{UserID: victim.ID, Text: "meh", Sentiment: "neutral", Confidence: 0.5}))
	must(act.SaveAnalysis(ctx, domain.AnalysisRecord{UserID: other.ID, Text: "yay", Sentiment: "positive", Confidence: 0.9}))

	ps := polls.NewService(s)
	must(ps.CreatePoll(ctx, "Victim's", []string{"a"}, &victim.ID))
	must(ps.CreatePoll(ctx, "Other's", []string{"a"}, &other.ID))

	wf := admin.NewWorkflow(s)
	must(wf.Create(ctx, victim.ID, "please"))
	must(wf.Create(ctx, other.ID, "me too"))

	return fixture{store: s, victim: victim, other: other}
}

// references counts every record still pointing at id.
func references(t *testing.T, s store.Store, id domain.ID) (n int, accountExists bool) {
	t.Helper()
	ctx := context.Background()
	err := store.View(ctx, s, func(tx store.Tx) error {
		_, err := tx.GetAccount(ctx, id)
		accountExists = err == nil

		txs, err := tx.ListTransactions(ctx, &id)
		if err != nil {
			return err
		}
		n += len(txs)
		msgs, err := tx.ListChatMessages(ctx, "")
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if m.UserID == id {
				n++
			}
		}
		ps, err := tx.ListPolls(ctx)
		if err != nil {
			return err
		}
		for _, p := range ps {
			if p.OwnedBy(id) {
				n++
			}
		}
		reqs, err := tx.ListAdminRequests(ctx, &id)
		if err != nil {
			return err
		}
		n += len(reqs)
		recs, err := tx.ListAnalysisRecords(ctx, &id)
		if err != nil {
			return err
		}
		n += len(recs)
		return nil
	})
	if err != nil {
		t.Fatalf("Counting references: %v", err)
	}
	return n, accountExists
}

func TestDeleteUser(t *testing.T) {
	f := populate(t, memory.New())
	ctx := context.Background()

	sum, err := NewDeleter(f.store).DeleteUser(ctx, f.victim.ID)
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	want := domain.DeleteSummary{
		UserID:          f.victim.ID,
		Transactions:    2,
		ChatMessages:    1,
		Polls:           1,
		AdminRequests:   1,
		AnalysisRecords: 1,
	}
	if *sum != want {
		t.Errorf("Summary = %+v, want %+v", *sum, want)
	}

	if n, exists := references(t, f.store, f.victim.ID); n != 0 || exists {
		t.Errorf("After delete: %d references remain, account exists=%v", n, exists)
	}
	// The shared transactions went with the victim; the rest of other's records stay.
	if n, exists := references(t, f.store, f.other.ID); n != 4 || !exists {
		t.Errorf("Other user: %d references, exists=%v; want 4 and true", n, exists)
	}
}

func TestDeleteMissingUser(t *testing.T) {
	s := memory.New()
	_, err := NewDeleter(s).DeleteUser(context.Background(), domain.NewID())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

var errInjected = errors.New("injected failure")

// faultyStore fails one step of the cascade.
type faultyStore struct {
	store.Store
}

func (f faultyStore) InTx(ctx context.Context, opts store.TxOptions, fn func(tx store.Tx) error) error {
	return f.Store.InTx(ctx, opts, func(tx store.Tx) error {
		return fn(faultyTx{tx})
	})
}

type faultyTx struct {
	store.Tx
}

func (faultyTx) DeleteAdminRequestsBy(context.Context, domain.ID) (int, error) {
	return 0, domain.Unavailable(errInjected)
}

func TestDeleteUserFailureChangesNothing(t *testing.T) {
	f := populate(t, memory.New())
	ctx := context.Background()
	before, _ := references(t, f.store, f.victim.ID)

	_, err := NewDeleter(faultyStore{f.store}).DeleteUser(ctx, f.victim.ID)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("Expected ErrStoreUnavailable, got %v", err)
	}

	after, exists := references(t, f.store, f.victim.ID)
	if !exists || after != before {
		t.Errorf("Failed delete left %d of %d references, account exists=%v", after, before, exists)
	}
}

// TestDeleteUserDuringTransfers deletes an account while others keep sending
// to it; no transaction may survive that names the deleted account.
func TestDeleteUserDuringTransfers(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	victim := storetest.CreateAccount(t, s, "victim", 0)
	senders := make([]*domain.Account, 4)
	for i := range senders {
		senders[i] = storetest.CreateAccount(t, s, "sender"+string(rune('a'+i)), 100)
	}
	l := ledger.New(s)

	var wg sync.WaitGroup
	for _, from := range senders {
		wg.Add(1)
		go func(from domain.ID) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := l.Transfer(ctx, from, victim.ID, 1)
				if err != nil && !errors.Is(err, domain.ErrNotFound) {
					t.Errorf("Unexpected transfer error: %v", err)
				}
			}
		}(from.ID)
	}
	if _, err := NewDeleter(s).DeleteUser(ctx, victim.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	wg.Wait()

	if n, exists := references(t, s, victim.ID); n != 0 || exists {
		t.Errorf("%d references to the deleted account remain, exists=%v", n, exists)
	}
}

func TestDeleteUserKeepsVotesInOthersPolls(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	voter := storetest.CreateAccount(t, s, "voter", 0)
	owner := storetest.CreateAccount(t, s, "owner", 0)

	ps := polls.NewService(s)
	p, err := ps.CreatePoll(ctx, "Lunch", []string{"soup", "salad"}, &owner.ID)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if _, err := ps.Vote(ctx, p.ID, voter.ID, "soup"); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	sum, err := NewDeleter(s).DeleteUser(ctx, voter.ID)
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if sum.Polls != 0 {
		t.Errorf("Deleted %d polls, want 0", sum.Polls)
	}

	got, err := ps.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Votes["soup"] != 1 || !got.HasVoted(voter.ID) {
		t.Errorf("Vote of deleted user was dropped: votes=%v voters=%v", got.Votes, got.Voters)
	}
}
