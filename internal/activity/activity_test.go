package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store/memory"
	"github.com/punchamoorthee/pointsops/internal/store/storetest"
)

func TestMessages(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "talker", 0)
	svc := NewService(s)

	if _, err := svc.PostMessage(ctx, u.ID, "general", "hello"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	svc.PostMessage(ctx, u.ID, "random", "elsewhere")

	msgs, err := svc.ListMessages(ctx, "general")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Message != "hello" || msgs[0].UserID != u.ID {
		t.Errorf("Unexpected messages: %+v", msgs)
	}

	tests := []struct {
		name          string
		user          domain.ID
		room, message string
		want          error
	}{
		{"blank room", u.ID, " ", "hi", domain.ErrInvalidInput},
		{"blank message", u.ID, "general", "  ", domain.ErrInvalidInput},
		{"unknown author", domain.NewID(), "general", "hi", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.PostMessage(ctx, tt.user, tt.room, tt.message); !errors.Is(err, tt.want) {
				t.Errorf("PostMessage error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAnalysisHistory(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "analyst", 0)
	other := storetest.CreateAccount(t, s, "other", 0)
	svc := NewService(s)

	rec, err := svc.SaveAnalysis(ctx, domain.AnalysisRecord{UserID: u.ID, Text: "love it", Sentiment: "positive", Confidence: 0.97, Score: 0.9})
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if rec.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	svc.SaveAnalysis(ctx, domain.AnalysisRecord{UserID: other.ID, Text: "meh", Sentiment: "neutral", Confidence: 0.4})

	mine, _ := svc.ListAnalysis(ctx, &u.ID)
	all, _ := svc.ListAnalysis(ctx, nil)
	if len(mine) != 1 || len(all) != 2 {
		t.Errorf("Got %d own and %d total records, want 1 and 2", len(mine), len(all))
	}

	bad := []domain.AnalysisRecord{
		{UserID: u.ID, Text: "", Sentiment: "positive"},
		{UserID: u.ID, Text: "x", Sentiment: ""},
		{UserID: u.ID, Text: "x", Sentiment: "positive", Confidence: 1.5},
	}
	for _, r := range bad {
		if _, err := svc.SaveAnalysis(ctx, r); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("SaveAnalysis(%+v) = %v, want ErrInvalidInput", r, err)
		}
	}
}

func TestClearAnalysis(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	u := storetest.CreateAccount(t, s, "u", 0)
	other := storetest.CreateAccount(t, s, "other", 0)
	svc := NewService(s)

	for _, id := range []domain.ID{u.ID, u.ID, other.ID, other.ID} {
		if _, err := svc.SaveAnalysis(ctx, domain.AnalysisRecord{UserID: id, Text: "ok", Sentiment: "neutral"}); err != nil {
			t.Fatalf("SaveAnalysis: %v", err)
		}
	}

	n, err := svc.ClearAnalysis(ctx, &u.ID)
	if err != nil || n != 2 {
		t.Fatalf("ClearAnalysis(owner) = %d, %v; want 2", n, err)
	}
	if left, _ := svc.ListAnalysis(ctx, nil); len(left) != 2 {
		t.Errorf("Expected only other's 2 records left, got %d", len(left))
	}

	n, err = svc.ClearAnalysis(ctx, nil)
	if err != nil || n != 2 {
		t.Fatalf("ClearAnalysis(all) = %d, %v; want 2", n, err)
	}
	if left, _ := svc.ListAnalysis(ctx, nil); len(left) != 0 {
		t.Errorf("History not cleared: %d records left", len(left))
	}

	if n, err := svc.ClearAnalysis(ctx, nil); err != nil || n != 0 {
		t.Errorf("Clearing empty history = %d, %v; want 0", n, err)
	}
}
