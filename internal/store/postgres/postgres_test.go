package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
	"github.com/punchamoorthee/pointsops/internal/store/storetest"
)

// openTest connects to TEST_DB_SOURCE and empties every table.
func openTest(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DB_SOURCE")
	if dsn == "" {
		t.Skipf("TEST_DB_SOURCE not set, skipping postgres tests")
	}
	ctx := context.Background()
	s, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	_, err = s.Db.Exec(ctx, `TRUNCATE analysis_history, chat_messages, admin_requests, polls, transactions, accounts`)
	if err != nil {
		s.Close()
		t.Fatalf("Failed to truncate tables: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s := openTest(t)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestCastErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"other", errors.New("connection reset"), domain.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := castErr(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Errorf("castErr(nil) = %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("castErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestForeignKeyBlocksOrphanTransaction(t *testing.T) {
	s := openTest(t)
	defer s.Close()
	ctx := context.Background()
	a := storetest.CreateAccount(t, s, "fk", 10)

	err := store.Update(ctx, s, func(tx store.Tx) error {
		return tx.InsertTransaction(ctx, &domain.Transaction{
			ID: domain.NewID(), SenderID: a.ID, ReceiverID: domain.NewID(), Amount: 1,
		})
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing receiver, got %v", err)
	}
}
