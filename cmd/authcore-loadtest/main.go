// Command authcore-loadtest measures login and refresh-rotation throughput of
// an engine backed by a real Postgres instance.
//
// It seeds a set of verified accounts, then runs two timed phases: concurrent
// password logins across random accounts, and concurrent refresh rotations
// where each worker chains the successor token it received. Latency
// percentiles and failure counts are printed per phase.
//
// Usage:
//
//	authcore-loadtest -dsn postgres://localhost/authcore_bench \
//	  -accounts 1000 -concurrency 64 -ops 20000
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/pgstore"
)

const seedPassword = "l0ad-Test-Passw0rd!"

type accountState struct {
	email   string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (login + refresh)")
		redisAddr   = flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "redis address; embedded miniredis when empty")
	)
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "a postgres dsn is required (-dsn or DATABASE_URL)")
		os.Exit(2)
	}
	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb, cleanup, err := redisClient(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := benchConfig()
	store := pgstore.New(pool)

	engine, err := authcore.New().
		WithConfig(cfg).
		WithStore(store).
		WithEmailSender(discardSender{}).
		WithRedis(rdb).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]accountState, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	runID := time.Now().UnixNano()
	for i := range states {
		email := fmt.Sprintf("bench-%d-%d@loadtest.invalid", runID, i)
		res, err := engine.Register(ctx, email, "Bench User", seedPassword, authcore.DeviceInfo{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed register: %v\n", err)
			os.Exit(1)
		}
		// Bypass the email round trip so the login phase can run.
		if err := store.MarkEmailVerified(ctx, res.Account.ID, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "seed verify: %v\n", err)
			os.Exit(1)
		}
		states[i] = accountState{email: email, refresh: res.Tokens.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runLoginPhase(ctx, engine, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("refresh", refreshStats)
}

func runLoginPhase(ctx context.Context, engine *authcore.Engine, states []accountState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				_, err := engine.Login(ctx, states[idx].email, seedPassword, authcore.DeviceInfo{})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runRefreshPhase(ctx context.Context, engine *authcore.Engine, states []accountState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				t0 := time.Now()
				pair, err := engine.Refresh(ctx, state.refresh, authcore.DeviceInfo{})
				d := time.Since(t0)
				if err == nil {
					state.refresh = pair.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// discardSender drops transactional emails; the bench never reads them.
type discardSender struct{}

func (discardSender) Send(context.Context, authcore.EmailKind, string, string, string) error {
	return nil
}

func redisClient(addr string) (*redis.Client, func(), error) {
	if addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func benchConfig() authcore.Config {
	if os.Getenv("AUTH_SIGNING_SECRET") == "" {
		// Throwaway secret for a local bench run.
		os.Setenv("AUTH_SIGNING_SECRET", fmt.Sprintf("%064x", time.Now().UnixNano()))
	}
	cfg, err := authcore.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
