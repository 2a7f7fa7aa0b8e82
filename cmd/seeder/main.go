package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/pointsops/internal/accounts"
	"github.com/punchamoorthee/pointsops/internal/backend"
	"github.com/punchamoorthee/pointsops/internal/config"
	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/polls"
	"github.com/punchamoorthee/pointsops/internal/store"
	"github.com/punchamoorthee/pointsops/internal/store/postgres"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const seedPassword = "password"

var (
	totalAccounts  int
	initialBalance int64
	workers        int
)

func init() {
	flag.IntVar(&totalAccounts, "accounts", 1000, "Number of accounts to create")
	flag.Int64Var(&initialBalance, "points", 10000, "Starting points per account")
	flag.IntVar(&workers, "workers", 8, "Concurrent inserts for non-postgres backends")
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	if cfg.Backend == config.BackendMemory {
		logger.Error("the memory backend does not outlive the seeder; choose postgres, sqlite or mongo")
		os.Exit(1)
	}

	ctx := context.Background()
	s, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("unable to open store", "err", err)
		os.Exit(1)
	}
	defer s.Close()

	var existing []*domain.Account
	err = store.View(ctx, s, func(tx store.Tx) error {
		existing, err = tx.ListAccounts(ctx)
		return err
	})
	if err != nil {
		logger.Error("cannot count accounts", "err", err)
		os.Exit(1)
	}
	if len(existing) >= totalAccounts {
		logger.Info("store already seeded, skipping", "accounts", len(existing))
		return
	}

	logger.Info("seeding", "backend", cfg.Backend, "accounts", totalAccounts, "points", initialBalance)
	start := time.Now()
	if pg, ok := s.(*postgres.Store); ok {
		err = copyAccounts(ctx, pg)
	} else {
		err = registerAccounts(ctx, s)
	}
	if err != nil {
		logger.Error("seeding failed", "err", err)
		os.Exit(1)
	}

	if _, err := polls.NewService(s).CreatePoll(ctx, "Benchmark poll", []string{"red", "green", "blue"}, nil); err != nil {
		logger.Error("cannot create poll", "err", err)
		os.Exit(1)
	}
	logger.Info("seeded", "accounts", totalAccounts, "elapsed", time.Since(start))
}

// copyAccounts bulk-loads accounts with COPY. Every seeded account shares one
// password hash.
func copyAccounts(ctx context.Context, pg *postgres.Store) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, totalAccounts)
	for i := 0; i < totalAccounts; i++ {
		rows = append(rows, []any{
			domain.NewID(),
			fmt.Sprintf("user%04d", i),
			fmt.Sprintf("user%04d@example.com", i),
			string(hash),
			initialBalance,
			domain.DefaultAvatar,
			now,
		})
	}

	_, err = pg.Db.CopyFrom(ctx,
		pgx.Identifier{"accounts"},
		[]string{"id", "username", "email", "password_hash", "points", "avatar", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("bulk insert failed: %w", err)
	}
	return nil
}

func registerAccounts(ctx context.Context, s store.Store) error {
	svc := accounts.NewService(s).WithHashCost(bcrypt.MinCost)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < totalAccounts; i++ {
		i := i
		g.Go(func() error {
			_, err := svc.Register(ctx, accounts.Registration{
				Username: fmt.Sprintf("user%04d", i),
				Email:    fmt.Sprintf("user%04d@example.com", i),
				Password: seedPassword,
				Points:   initialBalance,
			})
			return err
		})
	}
	return g.Wait()
}
