// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/ledger"
	"github.com/punchamoorthee/pointsops/internal/polls"
	"github.com/punchamoorthee/pointsops/internal/store"
)

// Opener returns an empty store and registers its cleanup with t. It is
// called once per subtest.
type Opener func(t *testing.T) store.Store

// Run executes the whole suite against the backend produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Accounts", testAccounts},
		{"AccountUniqueness", testAccountUniqueness},
		{"LockAccounts", testLockAccounts},
		{"Transactions", testTransactions},
		{"Polls", testPolls},
		{"AdminRequests", testAdminRequests},
		{"Activity", testActivity},
		{"Rollback", testRollback},
		{"ReadOnly", testReadOnly},
		{"ConcurrentTransfers", testConcurrentTransfers},
		{"ConcurrentVotes", testConcurrentVotes},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, open(t))
		})
	}
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// at returns a timestamp n seconds after a fixed epoch. Whole seconds survive
// every backend's precision.
func at(n int) time.Time {
	return epoch.Add(time.Duration(n) * time.Second)
}

// CreateAccount inserts an account directly through the store.
func CreateAccount(t *testing.T, s store.Store, username string, points int64) *domain.Account {
	t.Helper()
	a := &domain.Account{
		ID:           domain.NewID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Points:       points,
		Avatar:       domain.DefaultAvatar,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	err := store.Update(context.Background(), s, func(tx store.Tx) error {
		return tx.InsertAccount(context.Background(), a)
	})
	if err != nil {
		t.Fatalf("Failed to create account %s: %v", username, err)
	}
	return a
}

func getAccount(t *testing.T, s store.Store, id domain.ID) (*domain.Account, error) {
	t.Helper()
	var a *domain.Account
	err := store.View(context.Background(), s, func(tx store.Tx) error {
		var err error
		a, err = tx.GetAccount(context.Background(), id)
		return err
	})
	return a, err
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := CreateAccount(t, s, "alice", 100)

	got, err := getAccount(t, s, alice.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Username != "alice" || got.Points != 100 || got.Email != "alice@example.com" {
		t.Errorf("Unexpected account: %+v", got)
	}
	if !got.CreatedAt.Equal(alice.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, alice.CreatedAt)
	}

	err = store.View(ctx, s, func(tx store.Tx) error {
		a, err := tx.FindAccountByUsername(ctx, "alice")
		if err != nil {
			return err
		}
		if a.ID != alice.ID {
			t.Errorf("FindAccountByUsername returned %s, want %s", a.ID, alice.ID)
		}
		_, err = tx.FindAccountByUsername(ctx, "nobody")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown username, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	alice.Avatar = "/cat.png"
	alice.IsAdmin = true
	err = store.Update(ctx, s, func(tx store.Tx) error { return tx.UpdateAccount(ctx, alice) })
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	got, _ = getAccount(t, s, alice.ID)
	if got.Avatar != "/cat.png" || !got.IsAdmin {
		t.Errorf("Update not persisted: %+v", got)
	}

	CreateAccount(t, s, "bob", 0)
	var list []*domain.Account
	store.View(ctx, s, func(tx store.Tx) error {
		list, err = tx.ListAccounts(ctx)
		return err
	})
	if len(list) != 2 {
		t.Errorf("Expected 2 accounts, got %d", len(list))
	}

	err = store.Update(ctx, s, func(tx store.Tx) error { return tx.DeleteAccount(ctx, alice.ID) })
	if err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := getAccount(t, s, alice.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	err = store.Update(ctx, s, func(tx store.Tx) error { return tx.DeleteAccount(ctx, alice.ID) })
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func testAccountUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	CreateAccount(t, s, "carol", 0)

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"same username", "carol", "other@example.com"},
		{"same email", "carol2", "carol@example.com"},
		{"email differs only in case", "carol3", "Carol@Example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &domain.Account{
				ID:        domain.NewID(),
				Username:  tt.username,
				Email:     tt.email,
				Avatar:    domain.DefaultAvatar,
				CreatedAt: time.Now().UTC(),
			}
			err := store.Update(ctx, s, func(tx store.Tx) error { return tx.InsertAccount(ctx, a) })
			if !errors.Is(err, domain.ErrConflict) {
				t.Errorf("Expected ErrConflict, got %v", err)
			}
		})
	}
}

func testLockAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := CreateAccount(t, s, "lock-a", 1)
	b := CreateAccount(t, s, "lock-b", 2)

	err := store.Update(ctx, s, func(tx store.Tx) error {
		got, err := tx.LockAccounts(ctx, b.ID, a.ID, b.ID)
		if err != nil {
			return err
		}
		if len(got) != 2 || got[a.ID].Points != 1 || got[b.ID].Points != 2 {
			t.Errorf("Unexpected lock result: %v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("LockAccounts: %v", err)
	}

	err = store.Update(ctx, s, func(tx store.Tx) error {
		_, err := tx.LockAccounts(ctx, a.ID, domain.NewID())
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound locking a missing account, got %v", err)
	}
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := CreateAccount(t, s, "tx-a", 0)
	b := CreateAccount(t, s, "tx-b", 0)
	c := CreateAccount(t, s, "tx-c", 0)

	records := []*domain.Transaction{
		{ID: domain.NewID(), SenderID: a.ID, ReceiverID: b.ID, Amount: 1, Timestamp: at(1)},
		{ID: domain.NewID(), SenderID: b.ID, ReceiverID: c.ID, Amount: 2, Timestamp: at(2)},
		{ID: domain.NewID(), SenderID: c.ID, ReceiverID: a.ID, Amount: 3, Timestamp: at(3)},
	}
	err := store.Update(ctx, s, func(tx store.Tx) error {
		for _, r := range records {
			if err := tx.InsertTransaction(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}

	var all, forA []*domain.Transaction
	err = store.View(ctx, s, func(tx store.Tx) error {
		var err error
		if all, err = tx.ListTransactions(ctx, nil); err != nil {
			return err
		}
		forA, err = tx.ListTransactions(ctx, &a.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 transactions, got %d", len(all))
	}
	if all[0].Amount != 3 || all[2].Amount != 1 {
		t.Errorf("Expected newest first, got amounts %d..%d", all[0].Amount, all[2].Amount)
	}
	if len(forA) != 2 {
		t.Fatalf("Expected 2 transactions involving a, got %d", len(forA))
	}
	for _, r := range forA {
		if !r.Involves(a.ID) {
			t.Errorf("Transaction %s does not involve a", r.ID)
		}
	}
	if !forA[0].Timestamp.Equal(at(3)) {
		t.Errorf("Timestamp = %v, want %v", forA[0].Timestamp, at(3))
	}

	var n int
	err = store.Update(ctx, s, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteTransactionsInvolving(ctx, a.ID)
		return err
	})
	if err != nil || n != 2 {
		t.Errorf("DeleteTransactionsInvolving = %d, %v; want 2, nil", n, err)
	}
}

func testPolls(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := CreateAccount(t, s, "poll-owner", 0)
	voter := domain.NewID()

	p := &domain.Poll{
		ID:        domain.NewID(),
		Title:     "Lunch?",
		Options:   []string{"pizza", "sushi", "a.b $c"},
		Votes:     map[string]int64{"pizza": 1, "sushi": 0, "a.b $c": 0},
		Voters:    []domain.ID{voter},
		Active:    true,
		CreatorID: &owner.ID,
		CreatedAt: at(10),
	}
	orphan := &domain.Poll{
		ID:        domain.NewID(),
		Title:     "Nobody's",
		Options:   []string{"x"},
		Votes:     map[string]int64{"x": 0},
		Voters:    []domain.ID{},
		Active:    true,
		CreatedAt: at(11),
	}
	err := store.Update(ctx, s, func(tx store.Tx) error {
		if err := tx.InsertPoll(ctx, p); err != nil {
			return err
		}
		return tx.InsertPoll(ctx, orphan)
	})
	if err != nil {
		t.Fatalf("InsertPoll: %v", err)
	}

	var got *domain.Poll
	err = store.Update(ctx, s, func(tx store.Tx) error {
		var err error
		got, err = tx.LockPoll(ctx, p.ID)
		return err
	})
	if err != nil {
		t.Fatalf("LockPoll: %v", err)
	}
	if got.Title != "Lunch?" || len(got.Options) != 3 || got.Votes["pizza"] != 1 {
		t.Errorf("Unexpected poll: %+v", got)
	}
	if !got.HasVoted(voter) || !got.OwnedBy(owner.ID) || !got.Active {
		t.Errorf("Voters, creator or active flag lost: %+v", got)
	}

	got.Votes["a.b $c"]++
	got.Voters = append(got.Voters, domain.NewID())
	got.Active = false
	err = store.Update(ctx, s, func(tx store.Tx) error { return tx.UpdatePoll(ctx, got) })
	if err != nil {
		t.Fatalf("UpdatePoll: %v", err)
	}

	var list []*domain.Poll
	err = store.View(ctx, s, func(tx store.Tx) error {
		var err error
		list, err = tx.ListPolls(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("ListPolls: %v", err)
	}
	if len(list) != 2 || list[0].ID != orphan.ID {
		t.Fatalf("Expected 2 polls newest first, got %d", len(list))
	}
	updated := list[1]
	if updated.Active || updated.TotalVotes() != 2 || len(updated.Voters) != 2 || updated.Votes["a.b $c"] != 1 {
		t.Errorf("Update not persisted: %+v", updated)
	}
	if orphan := list[0]; orphan.CreatorID != nil {
		t.Errorf("Expected nil creator, got %v", orphan.CreatorID)
	}

	var n int
	err = store.Update(ctx, s, func(tx store.Tx) error {
		var err error
		n, err = tx.DeletePollsCreatedBy(ctx, owner.ID)
		return err
	})
	if err != nil || n != 1 {
		t.Errorf("DeletePollsCreatedBy = %d, %v; want 1, nil", n, err)
	}
	err = store.Update(ctx, s, func(tx store.Tx) error { return tx.DeletePoll(ctx, p.ID) })
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting removed poll, got %v", err)
	}
}

func testAdminRequests(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := CreateAccount(t, s, "requester", 0)

	insert := func(status domain.RequestStatus, n int) (*domain.AdminRequest, error) {
		r := &domain.AdminRequest{
			ID:        domain.NewID(),
			UserID:    u.ID,
			Reason:    fmt.Sprintf("reason %d", n),
			Status:    status,
			CreatedAt: at(n),
			UpdatedAt: at(n),
		}
		return r, store.Update(ctx, s, func(tx store.Tx) error { return tx.InsertAdminRequest(ctx, r) })
	}

	first, err := insert(domain.StatusPending, 1)
	if err != nil {
		t.Fatalf("InsertAdminRequest: %v", err)
	}
	if _, err := insert(domain.StatusPending, 2); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("Expected ErrDuplicateRequest for second pending request, got %v", err)
	}

	first.Status = domain.StatusRejected
	first.UpdatedAt = at(3)
	err = store.Update(ctx, s, func(tx store.Tx) error { return tx.UpdateAdminRequest(ctx, first) })
	if err != nil {
		t.Fatalf("UpdateAdminRequest: %v", err)
	}
	if _, err := insert(domain.StatusPending, 4); err != nil {
		t.Errorf("Pending request after rejection should succeed, got %v", err)
	}

	var list []*domain.AdminRequest
	err = store.View(ctx, s, func(tx store.Tx) error {
		var err error
		list, err = tx.ListAdminRequests(ctx, &u.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ListAdminRequests: %v", err)
	}
	if len(list) != 2 || list[0].Status != domain.StatusPending || list[1].Status != domain.StatusRejected {
		t.Errorf("Unexpected requests: %+v", list)
	}

	var n int
	err = store.Update(ctx, s, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteAdminRequestsBy(ctx, u.ID)
		return err
	})
	if err != nil || n != 2 {
		t.Errorf("DeleteAdminRequestsBy = %d, %v; want 2, nil", n, err)
	}
}

func testActivity(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := CreateAccount(t, s, "chatty", 0)
	b := CreateAccount(t, s, "quiet", 0)

	err := store.Update(ctx, s, func(tx store.Tx) error {
		msgs := []*domain.ChatMessage{
			{ID: domain.NewID(), RoomID: "general", UserID: a.ID, Message: "second", Timestamp: at(2)},
			{ID: domain.NewID(), RoomID: "general", UserID: b.ID, Message: "first", Timestamp: at(1)},
			{ID: domain.NewID(), RoomID: "random", UserID: a.ID, Message: "elsewhere", Timestamp: at(3)},
		}
		for _, m := range msgs {
			if err := tx.InsertChatMessage(ctx, m); err != nil {
				return err
			}
		}
		return tx.InsertAnalysisRecord(ctx, &domain.AnalysisRecord{
			ID: domain.NewID(), UserID: a.ID, Text: "great", Sentiment: "positive",
			Confidence: 0.9, Score: 0.8, Timestamp: at(4),
		})
	})
	if err != nil {
		t.Fatalf("Insert activity: %v", err)
	}

	var room, everything []*domain.ChatMessage
	var history []*domain.AnalysisRecord
	err = store.View(ctx, s, func(tx store.Tx) error {
		var err error
		if room, err = tx.ListChatMessages(ctx, "general"); err != nil {
			return err
		}
		if everything, err = tx.ListChatMessages(ctx, ""); err != nil {
			return err
		}
		history, err = tx.ListAnalysisRecords(ctx, &a.ID)
		return err
	})
	if err != nil {
		t.Fatalf("List activity: %v", err)
	}
	if len(room) != 2 || room[0].Message != "first" {
		t.Errorf("Expected room messages oldest first, got %+v", room)
	}
	if len(everything) != 3 {
		t.Errorf("Expected 3 messages across rooms, got %d", len(everything))
	}
	if len(history) != 1 || history[0].Sentiment != "positive" || history[0].Confidence != 0.9 {
		t.Errorf("Unexpected analysis history: %+v", history)
	}

	var msgs, recs int
	err = store.Update(ctx, s, func(tx store.Tx) error {
		var err error
		if msgs, err = tx.DeleteChatMessagesBy(ctx, a.ID); err != nil {
			return err
		}
		recs, err = tx.DeleteAnalysisRecordsBy(ctx, a.ID)
		return err
	})
	if err != nil || msgs != 2 || recs != 1 {
		t.Errorf("Deletes = %d messages, %d records, %v; want 2, 1, nil", msgs, recs, err)
	}
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := CreateAccount(t, s, "rollback", 50)
	boom := errors.New("boom")

	err := store.Update(ctx, s, func(tx store.Tx) error {
		accounts, err := tx.LockAccounts(ctx, a.ID)
		if err != nil {
			return err
		}
		acc := accounts[a.ID]
		acc.Points = 0
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.InsertChatMessage(ctx, &domain.ChatMessage{
			ID: domain.NewID(), RoomID: "r", UserID: a.ID, Message: "lost", Timestamp: at(1),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the callback error back, got %v", err)
	}

	got, _ := getAccount(t, s, a.ID)
	if got.Points != 50 {
		t.Errorf("Points = %d after rollback, want 50", got.Points)
	}
	var msgs []*domain.ChatMessage
	store.View(ctx, s, func(tx store.Tx) error {
		msgs, err = tx.ListChatMessages(ctx, "r")
		return err
	})
	if len(msgs) != 0 {
		t.Errorf("Expected no messages after rollback, got %d", len(msgs))
	}
}

func testReadOnly(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := store.View(ctx, s, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, &domain.Account{
			ID: domain.NewID(), Username: "ro", Email: "ro@example.com", CreatedAt: time.Now(),
		})
	})
	if err == nil {
		t.Fatal("Expected a write in a read-only transaction to fail")
	}
}

// testConcurrentTransfers moves points around a ring of accounts from many
// goroutines and checks no point is created or destroyed.
func testConcurrentTransfers(t *testing.T, s store.Store) {
	ctx := context.Background()
	l := ledger.New(s)

	const numAccounts, perAccount, workers, rounds = 4, 100, 8, 25
	ids := make([]domain.ID, numAccounts)
	for i := range ids {
		ids[i] = CreateAccount(t, s, fmt.Sprintf("ring%d", i), perAccount).ID
	}

	var ok, insufficient atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				from := ids[(w+r)%numAccounts]
				to := ids[(w+r+1+w%2)%numAccounts]
				_, err := l.Transfer(ctx, from, to, int64(1+r%7))
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, domain.ErrInsufficientBalance):
					insufficient.Add(1)
				default:
					t.Errorf("Unexpected transfer error: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	balances, err := l.Balances(ctx, ids...)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	var total int64
	for _, b := range balances {
		if b < 0 {
			t.Errorf("Negative balance %d", b)
		}
		total += b
	}
	if total != numAccounts*perAccount {
		t.Errorf("Total points = %d, want %d", total, numAccounts*perAccount)
	}

	log, err := l.ListAllTransactions(ctx)
	if err != nil {
		t.Fatalf("ListAllTransactions: %v", err)
	}
	if len(log) != int(ok.Load()) {
		t.Errorf("Log has %d records, want %d successful transfers", len(log), ok.Load())
	}
}

// testConcurrentVotes has one user race many identical votes; exactly one
// may count.
func testConcurrentVotes(t *testing.T, s store.Store) {
	ctx := context.Background()
	svc := polls.NewService(s)
	p, err := svc.CreatePoll(ctx, "Race", []string{"A", "B"}, nil)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	user := domain.NewID()

	const attempts = 10
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Vote(ctx, p.ID, user, "A")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrDuplicateVote):
				dup.Add(1)
			default:
				t.Errorf("Unexpected vote error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || dup.Load() != attempts-1 {
		t.Errorf("Got %d accepted and %d duplicate votes, want 1 and %d", ok.Load(), dup.Load(), attempts-1)
	}
	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Votes["A"] != 1 || len(got.Voters) != 1 || got.TotalVotes() != int64(len(got.Voters)) {
		t.Errorf("Tally %v with %d voters, want A=1 and one voter", got.Votes, len(got.Voters))
	}
}
