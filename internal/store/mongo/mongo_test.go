package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
	"github.com/punchamoorthee/pointsops/internal/store/storetest"
	driver "go.mongodb.org/mongo-driver/mongo"
)

// openTest connects to TEST_MONGODB_URI using a throwaway database. The
// server must be a replica set for transactions to work.
func openTest(t *testing.T) store.Store {
	t.Helper()
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skipf("TEST_MONGODB_URI not set, skipping mongo tests")
	}
	ctx := context.Background()
	name := fmt.Sprintf("pointsops_test_%d", time.Now().UnixNano())
	s, err := Open(ctx, uri, name)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, openTest)
}

func TestCastErr(t *testing.T) {
	if got := castErr(nil); got != nil {
		t.Errorf("castErr(nil) = %v", got)
	}
	if got := castErr(domain.ErrPollClosed); got != domain.ErrPollClosed {
		t.Errorf("Domain errors must pass through, got %v", got)
	}
	if got := castErr(errors.New("socket closed")); !errors.Is(got, domain.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", got)
	}

	// WithTransaction only retries errors that still carry their label.
	transient := driver.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{transientTxnLabel}}
	got := castErr(transient)
	var labeled driver.LabeledError
	if !errors.As(got, &labeled) || !labeled.HasErrorLabel(transientTxnLabel) {
		t.Errorf("Transient error lost its label: %v", got)
	}
	if errors.Is(got, domain.ErrStoreUnavailable) {
		t.Errorf("Transient error must not be mapped, got %v", got)
	}
}
