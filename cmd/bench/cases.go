// README: Smoke cases for saferoute-api; includes HTTP, DB, Redis, concurrency and throughput checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	statusPass    = "PASS"
	statusFail    = "FAIL"
	statusPending = "PENDING"
	statusSkip    = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// selectionID is filled by the route search case and reused by later cases.
	selectionID string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	search := map[string]any{"origin": r.cfg.Origin, "destination": r.cfg.Destination}
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "activity reports storage",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "route selection storage",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "apply every migration file in order",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				files, err := migrationFiles(r.cfg.MigrationsDir)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, f := range files {
					sql, err := os.ReadFile(f)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					for _, s := range splitSQL(string(sql)) {
						if _, err := r.db.Exec(ctx, s); err != nil {
							return Result{Status: statusFail, Note: fmt.Sprintf("%s: %v", filepath.Base(f), err)}
						}
					}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("files=%d", len(files))}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "every CREATE TABLE in migrations is present",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationsDir)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("tables=%d", len(tables))}
			},
		},

		httpCaseMethod("API: health", http.MethodGet, "/health", nil, []int{200}, nil),

		// Routes
		httpCase("Routes: search (missing fields -> 400)", "/api/routes/search", map[string]any{}, []int{400}, nil),
		httpCaseMethod("Routes: unknown selection -> 404", http.MethodGet, "/api/routes/selections/does-not-exist", nil, []int{404}, nil),
		{
			Name:  "Routes: search (valid)",
			Focus: "candidates rated and one recommended",
			Run: func(ctx context.Context, r *Runner) Result {
				var sel struct {
					ID          string `json:"id"`
					Recommended int    `json:"recommended"`
					Candidates  []struct {
						Rating float64 `json:"rating"`
					} `json:"candidates"`
				}
				code, latency, err := r.call(ctx, http.MethodPost, "/api/routes/search", search, &sel)
				switch {
				case err != nil:
					return Result{Status: statusFail, Note: err.Error()}
				case code == http.StatusNotFound || code == http.StatusBadGateway:
					return Result{Status: statusPending, Latency: latency, Note: fmt.Sprintf("status=%d (provider)", code)}
				case code != http.StatusCreated:
					return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
				}
				if len(sel.Candidates) == 0 || sel.Recommended >= len(sel.Candidates) {
					return Result{Status: statusFail, Latency: latency, Note: "bad recommendation"}
				}
				for _, c := range sel.Candidates {
					if c.Rating > sel.Candidates[sel.Recommended].Rating {
						return Result{Status: statusFail, Latency: latency, Note: "recommended route is not the highest rated"}
					}
				}
				r.selectionID = sel.ID
				return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("candidates=%d", len(sel.Candidates))}
			},
		},

		// Navigation
		{
			Name:  "Navigation: session lifecycle",
			Focus: "start, position, voice, end",
			Run:   sessionLifecycle,
		},
		{
			Name:  "Navigation: location denied -> 409",
			Focus: "no session without inputs",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.selectionID == "" {
					return Result{Status: statusSkip, Note: "no selection"}
				}
				code, latency, err := r.call(ctx, http.MethodPost, "/api/navigation/sessions", map[string]any{
					"selection_id":    r.selectionID,
					"location_denied": true,
				}, nil)
				return expect(code, latency, err, []int{409}, nil)
			},
		},
		httpCaseMethod("Navigation: unknown session -> 404", http.MethodGet, "/api/navigation/sessions/does-not-exist", nil, []int{404}, nil),
		manualCase("Navigation: spoken announcements", "needs a registered device token to observe FCM delivery"),

		// Reports
		httpCase("Reports: invalid kind -> 400", "/api/reports", map[string]any{
			"kind":     "aliens",
			"position": r.cfg.Origin,
		}, []int{400}, []int{503}),
		httpCase("Reports: submit (valid)", "/api/reports", map[string]any{
			"kind":     "lighting",
			"position": r.cfg.Origin,
			"note":     "streetlight out",
		}, []int{201}, []int{503, 429}),
		httpCaseMethod("Reports: recent", http.MethodGet, "/api/reports?limit=5", nil, []int{200}, []int{503}),

		// Concurrency
		{
			Name:  "Concurrency: parallel session starts",
			Focus: "every start yields a distinct session",
			Run:   concurrentStarts,
		},

		// Performance
		{
			Name:  "Perf: position push throughput",
			Focus: "position fixes per second into one session",
			Run:   positionLoad,
		},
	}
}

func (r *Runner) call(ctx context.Context, method, path string, body, out any) (int, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, latency, err
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, latency, nil
}

func expect(code int, latency time.Duration, err error, okStatuses, pendingStatuses []int) Result {
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	note := fmt.Sprintf("status=%d", code)
	if contains(okStatuses, code) {
		return Result{Status: statusPass, Latency: latency, Note: note}
	}
	if contains(pendingStatuses, code) {
		return Result{Status: statusPending, Latency: latency, Note: note}
	}
	return Result{Status: statusFail, Latency: latency, Note: note}
}

func httpCase(name, path string, body any, okStatuses, pendingStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, path, body, okStatuses, pendingStatuses)
}

func httpCaseMethod(name, method, path string, body any, okStatuses, pendingStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			code, latency, err := r.call(ctx, method, path, body, nil)
			return expect(code, latency, err, okStatuses, pendingStatuses)
		},
	}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "Manual",
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: statusSkip, Note: note}
		},
	}
}

type startedSession struct {
	ID string `json:"id"`
}

func (r *Runner) startSession(ctx context.Context) (*startedSession, error) {
	var s startedSession
	code, _, err := r.call(ctx, http.MethodPost, "/api/navigation/sessions", map[string]any{"selection_id": r.selectionID}, &s)
	if err != nil {
		return nil, err
	}
	if code != http.StatusCreated {
		return nil, fmt.Errorf("start status=%d", code)
	}
	return &s, nil
}

func sessionLifecycle(ctx context.Context, r *Runner) Result {
	if r.selectionID == "" {
		return Result{Status: statusSkip, Note: "no selection"}
	}
	start := time.Now()
	s, err := r.startSession(ctx)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	base := "/api/navigation/sessions/" + s.ID

	steps := []struct {
		method string
		path   string
		body   any
		want   int
	}{
		{http.MethodPut, base + "/position", r.cfg.Origin, http.StatusAccepted},
		{http.MethodPut, base + "/position", map[string]float64{"lat": 95, "lng": 0}, http.StatusBadRequest},
		{http.MethodPut, base + "/heading", map[string]float64{"x": 0, "y": 1}, http.StatusAccepted},
		{http.MethodPut, base + "/voice", map[string]bool{"enabled": false}, http.StatusOK},
		{http.MethodGet, base, nil, http.StatusOK},
		{http.MethodDelete, base, nil, http.StatusOK},
		{http.MethodGet, base, nil, http.StatusNotFound},
	}
	for _, st := range steps {
		code, _, err := r.call(ctx, st.method, st.path, st.body, nil)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if code != st.want {
			return Result{Status: statusFail, Note: fmt.Sprintf("%s %s: status=%d want=%d", st.method, st.path, code, st.want)}
		}
	}
	return Result{Status: statusPass, Latency: time.Since(start)}
}

func concurrentStarts(ctx context.Context, r *Runner) Result {
	if r.selectionID == "" {
		return Result{Status: statusSkip, Note: "no selection"}
	}
	var (
		mu  sync.Mutex
		ids = make(map[string]struct{})
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Concurrency; i++ {
		g.Go(func() error {
			s, err := r.startSession(gctx)
			if err != nil {
				return err
			}
			mu.Lock()
			ids[s.ID] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	for id := range ids {
		_, _, _ = r.call(ctx, http.MethodDelete, "/api/navigation/sessions/"+id, nil, nil)
	}
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if len(ids) != r.cfg.Concurrency {
		return Result{Status: statusFail, Note: fmt.Sprintf("distinct=%d want=%d", len(ids), r.cfg.Concurrency)}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("sessions=%d", len(ids))}
}

func positionLoad(ctx context.Context, r *Runner) Result {
	if r.selectionID == "" {
		return Result{Status: statusSkip, Note: "no selection"}
	}
	s, err := r.startSession(ctx)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	path := "/api/navigation/sessions/" + s.ID
	defer func() { _, _, _ = r.call(ctx, http.MethodDelete, path, nil, nil) }()

	end := time.Now().Add(r.cfg.Duration)
	var count, errCount, dropped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Concurrency; i++ {
		g.Go(func() error {
			for time.Now().Before(end) && gctx.Err() == nil {
				var resp struct {
					Delivered bool `json:"delivered"`
				}
				code, _, err := r.call(gctx, http.MethodPut, path+"/position", r.cfg.Origin, &resp)
				if err != nil || code != http.StatusAccepted {
					errCount.Add(1)
					continue
				}
				count.Add(1)
				if !resp.Delivered {
					dropped.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if count.Load() == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f gated=%d errors=%d", rps, dropped.Load(), errCount.Load())}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func migrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(dir string) ([]string, error) {
	files, err := migrationFiles(dir)
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, m := range createTableRe.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
