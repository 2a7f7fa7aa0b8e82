package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
)

// Outcome counters
var (
	totalRequests uint64
	success       uint64
	rejected      uint64 // 4xx business outcomes: insufficient balance, duplicate vote
	failOther     uint64
)

type account struct {
	ID     string `json:"id"`
	Points int64  `json:"points"`
}

type poll struct {
	ID         string           `json:"id"`
	Votes      map[string]int64 `json:"votes"`
	TotalVotes int64            `json:"total_votes"`
}

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot | vote")
}

func main() {
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("starting benchmark", "workload", workload, "workers", concurrency, "duration", duration)

	client := &http.Client{Timeout: 5 * time.Second}
	users, err := fetchAccounts(client)
	if err != nil {
		logger.Error("cannot list accounts", "err", err)
		os.Exit(1)
	}
	if len(users) < 2 {
		logger.Error("need at least two seeded accounts", "found", len(users))
		os.Exit(1)
	}

	var check func() (map[string]any, error)
	var run func(ctx context.Context, worker int) error
	switch workload {
	case "uniform", "hotspot":
		check, run = transferWorkload(client, users)
	case "vote":
		check, run, err = voteWorkload(client, users)
		if err != nil {
			logger.Error("cannot prepare vote workload", "err", err)
			os.Exit(1)
		}
	default:
		logger.Error("unknown workload", "workload", workload)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		i := i
		g.Go(func() error { return run(ctx, i) })
	}
	if err := g.Wait(); err != nil {
		logger.Error("worker failed", "err", err)
	}
	elapsed := time.Since(start)

	checks, err := check()
	if err != nil {
		logger.Error("consistency check failed", "err", err)
	}
	printResults(elapsed, checks)
	if err != nil {
		os.Exit(1)
	}
}

// transferWorkload moves 100 points between random pairs and afterwards
// verifies the total number of points in the system did not change.
func transferWorkload(client *http.Client, users []account) (func() (map[string]any, error), func(context.Context, int) error) {
	var before int64
	for _, u := range users {
		before += u.Points
	}

	run := func(ctx context.Context, _ int) error {
		for ctx.Err() == nil {
			from, to := pickPair(users)
			status, err := post(ctx, client, "/api/v1/transactions", map[string]any{
				"sender_id":   from,
				"receiver_id": to,
				"amount":      100,
			}, nil)
			record(ctx, status, err)
		}
		return nil
	}

	check := func() (map[string]any, error) {
		after, err := fetchAccounts(client)
		if err != nil {
			return nil, err
		}
		var total int64
		for _, u := range after {
			total += u.Points
		}
		res := map[string]any{"points_before": before, "points_after": total}
		if total != before {
			return res, fmt.Errorf("points not conserved: %d before, %d after", before, total)
		}
		return res, nil
	}
	return check, run
}

// voteWorkload has every account try to vote on one fresh poll, several times
// over, and verifies exactly one vote per account was counted.
func voteWorkload(client *http.Client, users []account) (func() (map[string]any, error), func(context.Context, int) error, error) {
	var p poll
	_, err := post(context.Background(), client, "/api/v1/polls", map[string]any{
		"title":   fmt.Sprintf("benchmark %d", time.Now().Unix()),
		"options": []string{"red", "green", "blue"},
	}, &p)
	if err != nil {
		return nil, nil, err
	}
	options := []string{"red", "green", "blue"}

	var next uint64
	run := func(ctx context.Context, _ int) error {
		for ctx.Err() == nil {
			n := atomic.AddUint64(&next, 1) - 1
			if n >= uint64(len(users))*3 {
				return nil
			}
			u := users[n%uint64(len(users))]
			// Votes are never cancelled mid-flight so the tally check stays exact.
			status, err := post(context.Background(), client, "/api/v1/polls/"+p.ID+"/vote", map[string]any{
				"user_id": u.ID,
				"option":  options[rand.Intn(len(options))],
			}, nil)
			record(context.Background(), status, err)
		}
		return nil
	}

	check := func() (map[string]any, error) {
		var after poll
		if err := get(client, "/api/v1/polls/"+p.ID, &after); err != nil {
			return nil, err
		}
		counted := atomic.LoadUint64(&success)
		res := map[string]any{"poll_total_votes": after.TotalVotes, "accepted_votes": counted}
		if uint64(after.TotalVotes) != counted {
			return res, fmt.Errorf("tally %d does not match %d accepted votes", after.TotalVotes, counted)
		}
		if after.TotalVotes > int64(len(users)) {
			return res, fmt.Errorf("tally %d exceeds %d voters", after.TotalVotes, len(users))
		}
		return res, nil
	}
	return check, run, nil
}

func pickPair(users []account) (string, string) {
	if workload == "hotspot" && rand.Float32() < 0.90 {
		// 90% of traffic goes between the first two accounts
		if rand.Float32() < 0.5 {
			return users[0].ID, users[1].ID
		}
		return users[1].ID, users[0].ID
	}
	a := rand.Intn(len(users))
	b := rand.Intn(len(users))
	for a == b {
		b = rand.Intn(len(users))
	}
	return users[a].ID, users[b].ID
}

func record(ctx context.Context, status int, err error) {
	if err != nil {
		// Requests cut off by the end of the run are not failures.
		if ctx.Err() == nil {
			atomic.AddUint64(&failOther, 1)
		}
		return
	}
	atomic.AddUint64(&totalRequests, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddUint64(&success, 1)
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		atomic.AddUint64(&rejected, 1)
	default:
		atomic.AddUint64(&failOther, 1)
	}
}

func post(ctx context.Context, client *http.Client, path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", targetURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if resp.StatusCode >= 300 {
			return resp.StatusCode, fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
		}
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}

func get(client *http.Client, path string, out any) error {
	resp, err := client.Get(targetURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchAccounts(client *http.Client) ([]account, error) {
	var out []account
	err := get(client, "/api/v1/users", &out)
	return out, err
}

func printResults(d time.Duration, checks map[string]any) {
	total := atomic.LoadUint64(&totalRequests)
	ok := atomic.LoadUint64(&success)
	rej := atomic.LoadUint64(&rejected)
	fErr := atomic.LoadUint64(&failOther)

	var rejectRate float64
	if total > 0 {
		rejectRate = float64(rej) / float64(total) * 100
	}

	results := map[string]any{
		"workload":        workload,
		"duration_sec":    d.Seconds(),
		"total_requests":  total,
		"throughput_tps":  float64(total) / d.Seconds(),
		"success":         ok,
		"rejected":        rej,
		"reject_rate_pct": rejectRate,
		"errors":          fErr,
		"checks":          checks,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
