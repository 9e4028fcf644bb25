// README: Smoke and load runner for a deployed saferoute-api; executes HTTP/DB/Redis checks and prints results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"saferoute/internal/types"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	bench := NewRunner(cfg)
	results := bench.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, pending, skipped := 0, 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case statusPass:
			pass++
		case statusFail:
			fail++
		case statusPending:
			pending++
		case statusSkip:
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d PENDING=%d SKIP=%d\n", pass, fail, pending, skipped)

	if fail > 0 || (cfg.Strict && pending > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL        string
	Token          string
	DSN            string
	RedisAddr      string
	MigrationsDir  string
	ApplyMigration bool
	Strict         bool
	Timeout        time.Duration
	Concurrency    int
	Duration       time.Duration
	Origin         types.Point
	Destination    types.Point
}

func loadConfig() Config {
	var cfg Config
	var origin, destination string
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("SAFEROUTE_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&cfg.Token, "token", os.Getenv("SAFEROUTE_BENCH_TOKEN"), "Firebase ID token sent as a Bearer header")
	flag.StringVar(&cfg.DSN, "dsn", os.Getenv("SAFEROUTE_DB_DSN"), "Postgres DSN")
	flag.StringVar(&cfg.RedisAddr, "redis", os.Getenv("SAFEROUTE_REDIS_ADDR"), "Redis address")
	flag.StringVar(&cfg.MigrationsDir, "migrations", envOrDefault("SAFEROUTE_BENCH_MIGRATIONS", "migrations"), "Directory of migration SQL files")
	flag.BoolVar(&cfg.ApplyMigration, "apply-migration", envOrDefaultBool("SAFEROUTE_BENCH_APPLY_MIGRATION", false), "Apply migrations before tests")
	flag.BoolVar(&cfg.Strict, "strict", envOrDefaultBool("SAFEROUTE_BENCH_STRICT", false), "Fail on pending tests")
	flag.DurationVar(&cfg.Timeout, "timeout", envOrDefaultDuration("SAFEROUTE_BENCH_TIMEOUT", 60*time.Second), "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", envOrDefaultInt("SAFEROUTE_BENCH_CONCURRENCY", 20), "Concurrency for perf tests")
	flag.DurationVar(&cfg.Duration, "duration", envOrDefaultDuration("SAFEROUTE_BENCH_DURATION", 10*time.Second), "Duration for perf tests")
	flag.StringVar(&origin, "origin", "30.2864,-97.7370", "Route search origin as lat,lng")
	flag.StringVar(&destination, "destination", "30.2910,-97.7370", "Route search destination as lat,lng")
	flag.Parse()

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	var err error
	if cfg.Origin, err = parseCoord(origin); err != nil {
		fmt.Fprintln(os.Stderr, "origin:", err)
		os.Exit(2)
	}
	if cfg.Destination, err = parseCoord(destination); err != nil {
		fmt.Fprintln(os.Stderr, "destination:", err)
		os.Exit(2)
	}
	return cfg
}

func parseCoord(s string) (types.Point, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return types.Point{}, fmt.Errorf("want lat,lng, got %q", s)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	p := types.Point{Lat: lat, Lng: lng}
	if err1 != nil || err2 != nil || !p.Valid() {
		return types.Point{}, fmt.Errorf("invalid coordinate %q", s)
	}
	return p, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
