package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
	"github.com/punchamoorthee/pointsops/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s := New()
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestClosedStore(t *testing.T) {
	s := New()
	s.Close()

	err := store.View(context.Background(), s, func(tx store.Tx) error { return nil })
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable from a closed store, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Update(ctx, New(), func(tx store.Tx) error { return nil })
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable for a cancelled context, got %v", err)
	}
}

// TestExclusiveBlocksOthers verifies no ordinary transaction runs while an
// exclusive one is open.
func TestExclusiveBlocksOthers(t *testing.T) {
	s := New()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	var ranDuring atomic.Bool
	var exclusiveOpen atomic.Bool

	go func() {
		s.InTx(ctx, store.TxOptions{Exclusive: true}, func(tx store.Tx) error {
			exclusiveOpen.Store(true)
			close(entered)
			<-release
			exclusiveOpen.Store(false)
			return nil
		})
	}()
	<-entered

	go func() {
		defer close(done)
		store.View(ctx, s, func(tx store.Tx) error {
			if exclusiveOpen.Load() {
				ranDuring.Store(true)
			}
			return nil
		})
	}()

	select {
	case <-done:
		t.Fatal("Ordinary transaction finished while an exclusive one was open")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-done

	if ranDuring.Load() {
		t.Error("Ordinary transaction observed the exclusive transaction in progress")
	}
}

// TestWritesInvisibleUntilCommit checks readers never see a half-applied transaction.
func TestWritesInvisibleUntilCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := storetest.CreateAccount(t, s, "a", 10)
	b := storetest.CreateAccount(t, s, "b", 0)

	inside := make(chan struct{})
	proceed := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- store.Update(ctx, s, func(tx store.Tx) error {
			accts, err := tx.LockAccounts(ctx, a.ID, b.ID)
			if err != nil {
				return err
			}
			accts[a.ID].Points -= 10
			accts[b.ID].Points += 10
			tx.UpdateAccount(ctx, accts[a.ID])
			tx.UpdateAccount(ctx, accts[b.ID])
			close(inside)
			<-proceed
			return nil
		})
	}()

	<-inside
	var sum int64
	store.View(ctx, s, func(tx store.Tx) error {
		for _, id := range []domain.ID{a.ID, b.ID} {
			acc, err := tx.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			sum += acc.Points
		}
		return nil
	})
	close(proceed)
	if err := <-errc; err != nil {
		t.Fatalf("Update: %v", err)
	}

	if sum != 10 {
		t.Errorf("Reader saw a total of %d during the transfer, want 10", sum)
	}
}
