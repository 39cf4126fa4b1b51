// Command tokengate-loadtest drives an in-process engine with concurrent
// register, login, authorize and rate-limit traffic and prints latency
// percentiles plus the engine's metrics.
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
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/metrics/export/prometheus"
)

const loadSecret = "tokengate-loadtest-secret-0123456789abcdef"

func main() {
	var (
		users       = flag.Int("users", 200, "number of accounts to register")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (login, authorize, rate)")
		rateKeys    = flag.Int("rate-keys", 50000, "distinct client keys in the rate phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; \"miniredis\" for embedded; empty keeps state in memory")
		argonMemory = flag.Uint("argon-memory", 8*1024, "argon2id memory in KiB")
		argonTime   = flag.Uint("argon-time", 1, "argon2id passes")
		failRatio   = flag.Float64("fail-ratio", 0.1, "fraction of logins using a wrong password")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *rateKeys <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops and rate-keys must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := tokengate.DefaultConfig()
	cfg.JWT.Secret = []byte(loadSecret)
	cfg.Password.Memory = uint32(*argonMemory)
	cfg.Password.Time = uint32(*argonTime)
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false

	builder := tokengate.New().WithConfig(cfg)
	if client != nil {
		builder = builder.WithRedis(client)
	}
	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	names := make([]string, *users)
	fmt.Printf("registering %d users...\n", *users)
	registerStats := runPhase(*users, *concurrency, func(i int, _ *rand.Rand) error {
		names[i] = fmt.Sprintf("load_user_%d", i)
		_, err := engine.Register(ctx, names[i], passwordFor(i))
		return err
	})

	var (
		tokensMu sync.Mutex
		tokens   = make([]string, 0, *ops)
	)
	loginStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) error {
		idx := r.Intn(len(names))
		pw := passwordFor(idx)
		wantFail := r.Float64() < *failRatio
		if wantFail {
			pw += "!"
		}
		res, err := engine.Login(ctx, names[idx], pw)
		if wantFail {
			if err == nil {
				return fmt.Errorf("login with wrong password succeeded")
			}
			return nil
		}
		if err != nil {
			return err
		}
		tokensMu.Lock()
		tokens = append(tokens, res.Token)
		tokensMu.Unlock()
		return nil
	})

	if len(tokens) == 0 {
		fmt.Fprintln(os.Stderr, "no tokens issued; skipping authorize phase")
		os.Exit(1)
	}
	authorizeStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) error {
		_, err := engine.Authorize(ctx, "Bearer "+tokens[r.Intn(len(tokens))])
		return err
	})

	var refused int64
	rateStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) error {
		key := fmt.Sprintf("client-%d", r.Intn(*rateKeys))
		_, err := engine.CheckRate(ctx, tokengate.RatePolicyLogin, key)
		if err != nil {
			atomic.AddInt64(&refused, 1)
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("register", registerStats)
	printStats("login", loginStats)
	printStats("authorize", authorizeStats)
	printStats("rate", rateStats)
	fmt.Printf("rate refusals: %d\n", refused)
	fmt.Println("---- metrics ----")
	fmt.Print(prometheus.New(engine).Render())
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		fmt.Println("using in-memory stores")
		return nil, func() {}, nil
	}

	var mr *miniredis.Miniredis
	if addr == "miniredis" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	return client, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}

// runPhase runs fn ops times across concurrency workers.
func runPhase(ops, concurrency int, fn func(i int, r *rand.Rand) error) phaseStats {
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
				t0 := time.Now()
				err := fn(i, r)
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

func passwordFor(i int) string {
	return fmt.Sprintf("Load!Pass%d", i)
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
