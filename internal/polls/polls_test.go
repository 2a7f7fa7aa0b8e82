package polls_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/polls"
	"github.com/punchamoorthee/pointsops/internal/store/memory"
	"github.com/punchamoorthee/pointsops/internal/store/storetest"
)

func TestVoteScenario(t *testing.T) {
	svc := polls.NewService(memory.New())
	ctx := context.Background()

	p, err := svc.CreatePoll(ctx, "Colour", []string{"red", "blue"}, nil)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if p.Votes["red"] != 0 || p.Votes["blue"] != 0 || !p.Active {
		t.Fatalf("Unexpected new poll: %+v", p)
	}

	userX := domain.NewID()
	got, err := svc.Vote(ctx, p.ID, userX, "red")
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if got.Votes["red"] != 1 || got.Votes["blue"] != 0 || len(got.Voters) != 1 || got.Voters[0] != userX {
		t.Errorf("Unexpected poll after vote: %+v", got)
	}

	if _, err := svc.Vote(ctx, p.ID, userX, "blue"); !errors.Is(err, domain.ErrDuplicateVote) {
		t.Errorf("Expected ErrDuplicateVote, got %v", err)
	}
	after, _ := svc.Get(ctx, p.ID)
	if after.Votes["red"] != 1 || after.Votes["blue"] != 0 {
		t.Errorf("Tally changed after rejected vote: %v", after.Votes)
	}
}

func TestVoteErrors(t *testing.T) {
	svc := polls.NewService(memory.New())
	ctx := context.Background()

	open, _ := svc.CreatePoll(ctx, "Open", []string{"a", "b"}, nil)
	closed, _ := svc.CreatePoll(ctx, "Closed", []string{"a", "b"}, nil)
	if _, err := svc.ToggleActive(ctx, closed.ID); err != nil {
		t.Fatalf("ToggleActive: %v", err)
	}
	voted := domain.NewID()
	svc.Vote(ctx, open.ID, voted, "a")

	tests := []struct {
		name   string
		poll   domain.ID
		user   domain.ID
		option string
		want   error
	}{
		{"missing poll", domain.NewID(), domain.NewID(), "a", domain.ErrNotFound},
		{"closed poll", closed.ID, domain.NewID(), "a", domain.ErrPollClosed},
		{"closed beats unknown option", closed.ID, domain.NewID(), "zzz", domain.ErrPollClosed},
		{"already voted", open.ID, voted, "b", domain.ErrDuplicateVote},
		{"duplicate beats unknown option", open.ID, voted, "zzz", domain.ErrDuplicateVote},
		{"unknown option", open.ID, domain.NewID(), "zzz", domain.ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Vote(ctx, tt.poll, tt.user, tt.option)
			if !errors.Is(err, tt.want) {
				t.Errorf("Vote error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestVoteIdentityIsNormalized checks two spellings of one id count as one voter.
func TestVoteIdentityIsNormalized(t *testing.T) {
	svc := polls.NewService(memory.New())
	ctx := context.Background()
	p, _ := svc.CreatePoll(ctx, "Case", []string{"a", "b"}, nil)

	id := domain.NewID()
	lower, err := domain.ParseID(id.String())
	if err != nil {
		t.Fatal(err)
	}
	upper, err := domain.ParseID(strings.ToUpper(id.String()))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Vote(ctx, p.ID, lower, "a"); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if _, err := svc.Vote(ctx, p.ID, upper, "b"); !errors.Is(err, domain.ErrDuplicateVote) {
		t.Errorf("Expected ErrDuplicateVote for the same id in upper case, got %v", err)
	}
}

func TestCreatePollValidation(t *testing.T) {
	svc := polls.NewService(memory.New())
	ctx := context.Background()
	missing := domain.NewID()

	tests := []struct {
		name    string
		title   string
		options []string
		creator *domain.ID
		want    error
	}{
		{"blank title", "  ", []string{"a"}, nil, domain.ErrInvalidInput},
		{"no options", "t", nil, nil, domain.ErrInvalidInput},
		{"empty option", "t", []string{"a", ""}, nil, domain.ErrInvalidInput},
		{"duplicate option", "t", []string{"a", "a"}, nil, domain.ErrInvalidInput},
		{"unknown creator", "t", []string{"a"}, &missing, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePoll(ctx, tt.title, tt.options, tt.creator)
			if !errors.Is(err, tt.want) {
				t.Errorf("CreatePoll error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConcurrentDistinctVoters(t *testing.T) {
	svc := polls.NewService(memory.New())
	ctx := context.Background()
	p, _ := svc.CreatePoll(ctx, "Crowd", []string{"a", "b", "c"}, nil)
	options := []string{"a", "b", "c"}

	const numVoters = 60
	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Vote(ctx, p.ID, domain.NewID(), options[i%3]); err == nil {
				ok.Add(1)
			}
		}(i)
	}
	wg.Wait()

	got, _ := svc.Get(ctx, p.ID)
	if ok.Load() != numVoters || got.TotalVotes() != numVoters || len(got.Voters) != numVoters {
		t.Errorf("Accepted %d, tally %d, voters %d; want %d each", ok.Load(), got.TotalVotes(), len(got.Voters), numVoters)
	}
	for _, o := range options {
		if got.Votes[o] != numVoters/3 {
			t.Errorf("Votes[%s] = %d, want %d", o, got.Votes[o], numVoters/3)
		}
	}
}

func TestToggleAndDelete(t *testing.T) {
	s := memory.New()
	svc := polls.NewService(s)
	ctx := context.Background()
	owner := storetest.CreateAccount(t, s, "owner", 0)

	p, err := svc.CreatePoll(ctx, "Owned", []string{"x"}, &owner.ID)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if !p.OwnedBy(owner.ID) {
		t.Errorf("Poll not owned by creator")
	}

	closed, _ := svc.ToggleActive(ctx, p.ID)
	reopened, _ := svc.ToggleActive(ctx, p.ID)
	if closed.Active || !reopened.Active {
		t.Errorf("Toggle did not flip: %v then %v", closed.Active, reopened.Active)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Errorf("Expected no polls, got %d", len(list))
	}
}
