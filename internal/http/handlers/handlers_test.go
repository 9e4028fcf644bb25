package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"saferoute/internal/http/handlers"
	"saferoute/internal/maps"
	"saferoute/internal/modules/navigation"
	"saferoute/internal/modules/reports"
	"saferoute/internal/modules/routes"
	"saferoute/internal/modules/safety"
	"saferoute/internal/types"
)

type stubPlaces struct {
	near *types.Point
	err  error
}

func (s *stubPlaces) SearchDestinations(_ context.Context, query string, near *types.Point) ([]maps.Place, error) {
	s.near = near
	if s.err != nil {
		return nil, s.err
	}
	return []maps.Place{{Name: query, PlaceID: "p1"}}, nil
}

type stubProvider struct {
	routes []routes.ProviderRoute
	err    error
}

func (p stubProvider) WalkingRoutes(context.Context, types.Point, types.Point) ([]routes.ProviderRoute, error) {
	return p.routes, p.err
}

type sequenceSource struct {
	conds []safety.RouteConditions
	i     int
}

func (s *sequenceSource) Conditions() safety.RouteConditions {
	c := s.conds[s.i%len(s.conds)]
	s.i++
	return c
}

var (
	poor = safety.RouteConditions{Crime: safety.CrimeHigh, Lighting: safety.LightingPoor, Activity: safety.ActivityQuiet, Construction: safety.ConstructionHeavy}
	good = safety.RouteConditions{Crime: safety.CrimeLow, Lighting: safety.LightingWell, Activity: safety.ActivityBusy, Construction: safety.ConstructionNone}
)

func twoRoutes() []routes.ProviderRoute {
	route := func(summary string, lng float64) routes.ProviderRoute {
		return routes.ProviderRoute{
			Summary: summary,
			Legs: []routes.ProviderLeg{{
				DistanceText: "0.2 mi",
				DurationText: "4 mins",
				Steps: []routes.ProviderStep{
					{End: &types.Point{Lat: 30.2880, Lng: lng}, HTMLInstructions: "Head <b>north</b>"},
					{End: &types.Point{Lat: 30.2900, Lng: lng}, HTMLInstructions: "Continue"},
				},
			}},
		}
	}
	return []routes.ProviderRoute{route("Dark alley", -97.7380), route("Main St", -97.7370)}
}

// quotaRepo accepts inserts and grants each reporter a fixed allowance.
type quotaRepo struct {
	allowance int
	used      map[string]int
}

func (r *quotaRepo) Insert(context.Context, *reports.Report) error { return nil }

func (r *quotaRepo) Recent(_ context.Context, limit int) ([]reports.Report, error) {
	return make([]reports.Report, 0, limit), nil
}

func (r *quotaRepo) UseQuota(_ context.Context, uid string, _ time.Time) error {
	if r.used[uid] >= r.allowance {
		return reports.ErrQuotaExceeded
	}
	r.used[uid]++
	return nil
}

func (r *quotaRepo) EnsureReporter(context.Context, string, time.Time) error { return nil }

type fixture struct {
	engine *gin.Engine
	places *stubPlaces
}

func newFixture(t *testing.T, provider stubProvider, repo reports.Repository) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	places := &stubPlaces{}
	routeSvc := routes.NewService(provider, routes.NewMemoryStore(time.Minute), &sequenceSource{conds: []safety.RouteConditions{poor, good}}, nil)
	sessions := navigation.NewManager(navigation.ManagerConfig{
		Tracker: navigation.DefaultTrackerOptions(),
		Voice:   navigation.DefaultVoiceOptions(),
	})
	t.Cleanup(sessions.Close)

	var reportSvc *reports.Service
	if repo != nil {
		reportSvc = reports.NewService(repo)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-UID"); uid != "" {
			c.Set("caller_uid", uid)
		}
		c.Next()
	})
	ph := handlers.NewPlacesHandler(places)
	rh := handlers.NewRoutesHandler(routeSvc)
	nh := handlers.NewNavigationHandler(routeSvc, sessions)
	reh := handlers.NewReportsHandler(reportSvc)

	r.GET("/places/search", ph.Search)
	r.POST("/routes/search", rh.Search)
	r.GET("/routes/selections/:id", rh.Get)
	r.POST("/sessions", nh.Start)
	r.GET("/sessions/:id", nh.Get)
	r.PUT("/sessions/:id/position", nh.Position)
	r.PUT("/sessions/:id/heading", nh.Heading)
	r.PUT("/sessions/:id/voice", nh.Voice)
	r.DELETE("/sessions/:id", nh.End)
	r.POST("/reports", reh.Submit)
	r.GET("/reports", reh.Recent)

	return &fixture{engine: r, places: places}
}

func (f *fixture) do(t *testing.T, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-Test-UID", uid)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

var searchBody = map[string]any{
	"origin":      map[string]float64{"lat": 30.2864, "lng": -97.7375},
	"destination": map[string]float64{"lat": 30.2900, "lng": -97.7370},
}

func TestPlacesSearch(t *testing.T) {
	f := newFixture(t, stubProvider{}, nil)

	w := f.do(t, http.MethodGet, "/places/search?q=library&near=30.28,-97.73", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if f.places.near == nil || f.places.near.Lat != 30.28 {
		t.Errorf("near = %+v", f.places.near)
	}

	if w := f.do(t, http.MethodGet, "/places/search?q=library&near=north", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad near: expected 400, got %d", w.Code)
	}

	f.places.err = maps.ErrEmptyQuery
	if w := f.do(t, http.MethodGet, "/places/search", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty query: expected 400, got %d", w.Code)
	}
	f.places.err = errors.New("upstream down")
	if w := f.do(t, http.MethodGet, "/places/search?q=x", "", nil); w.Code != http.StatusBadGateway {
		t.Errorf("upstream failure: expected 502, got %d", w.Code)
	}
}

func TestRoutesSearch(t *testing.T) {
	f := newFixture(t, stubProvider{routes: twoRoutes()}, nil)

	w := f.do(t, http.MethodPost, "/routes/search", "", searchBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	sel := decode[routes.Selection](t, w)
	if sel.Recommended != 1 || len(sel.Candidates) != 2 {
		t.Fatalf("recommended=%d candidates=%d", sel.Recommended, len(sel.Candidates))
	}
	if sel.Candidates[0].Rating != 1.6 || sel.Candidates[1].Rating != 5.0 {
		t.Errorf("ratings = %v, %v", sel.Candidates[0].Rating, sel.Candidates[1].Rating)
	}

	if w := f.do(t, http.MethodGet, "/routes/selections/"+string(sel.ID), "", nil); w.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/routes/selections/missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", w.Code)
	}
}

func TestRoutesSearchErrors(t *testing.T) {
	cases := []struct {
		name     string
		provider stubProvider
		body     any
		want     int
	}{
		{"malformed json", stubProvider{}, "{", http.StatusBadRequest},
		{"missing destination", stubProvider{}, map[string]any{"origin": map[string]float64{"lat": 1, "lng": 1}}, http.StatusBadRequest},
		{"no routes", stubProvider{}, searchBody, http.StatusNotFound},
		{"provider down", stubProvider{err: errors.New("timeout")}, searchBody, http.StatusBadGateway},
		{"only malformed", stubProvider{routes: []routes.ProviderRoute{{Summary: "no legs"}}}, searchBody, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.provider, nil)
			if w := f.do(t, http.MethodPost, "/routes/search", "", tc.body); w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func startSession(t *testing.T, f *fixture, uid string, extra map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	w := f.do(t, http.MethodPost, "/routes/search", uid, searchBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("search: %d", w.Code)
	}
	sel := decode[routes.Selection](t, w)
	body := map[string]any{"selection_id": sel.ID}
	for k, v := range extra {
		body[k] = v
	}
	return f.do(t, http.MethodPost, "/sessions", uid, body)
}

func TestNavigationStartUsesRecommendedRoute(t *testing.T) {
	f := newFixture(t, stubProvider{routes: twoRoutes()}, nil)

	w := startSession(t, f, "u1", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	started := decode[navigation.Started](t, w)
	if len(started.Polyline) != 2 || started.Polyline[0].Lng != -97.7370 {
		t.Errorf("polyline = %+v, want the Main St route", started.Polyline)
	}
	if started.State.Status != navigation.StatusTracking || started.State.Instruction != "Head north" {
		t.Errorf("state = %+v", started.State)
	}

	base := "/sessions/" + string(started.ID)
	if w := f.do(t, http.MethodPut, base+"/heading", "u1", map[string]float64{"x": 0, "y": 1}); w.Code != http.StatusAccepted {
		t.Errorf("heading: expected 202, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPut, base+"/voice", "u1", map[string]bool{"enabled": false}); w.Code != http.StatusOK {
		t.Errorf("voice: expected 200, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPut, base+"/voice", "u1", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("voice without enabled: expected 400, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPut, base+"/position", "u1", map[string]float64{"lat": 95, "lng": 0}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid position: expected 400, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, base, "u2", nil); w.Code != http.StatusNotFound {
		t.Errorf("other caller: expected 404, got %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, base, "u1", nil); w.Code != http.StatusOK {
		t.Errorf("end: expected 200, got %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, base, "u1", nil); w.Code != http.StatusNotFound {
		t.Errorf("second end: expected 404, got %d", w.Code)
	}
}

func TestNavigationStartErrors(t *testing.T) {
	f := newFixture(t, stubProvider{routes: twoRoutes()}, nil)

	cases := []struct {
		name  string
		extra map[string]any
		want  int
	}{
		{"location denied", map[string]any{"location_denied": true}, http.StatusConflict},
		{"compass missing", map[string]any{"compass_missing": true}, http.StatusConflict},
		{"route index out of range", map[string]any{"route_index": 7}, http.StatusBadRequest},
		{"invalid start", map[string]any{"start": map[string]float64{"lat": 0, "lng": 200}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := startSession(t, f, "u1", tc.extra); w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}

	if w := f.do(t, http.MethodPost, "/sessions", "u1", map[string]string{"selection_id": "gone"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown selection: expected 404, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/sessions", "u1", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing selection: expected 400, got %d", w.Code)
	}
}

func TestReports(t *testing.T) {
	repo := &quotaRepo{allowance: 1, used: make(map[string]int)}
	f := newFixture(t, stubProvider{}, repo)

	report := map[string]any{"kind": "lighting", "position": map[string]float64{"lat": 30.2864, "lng": -97.737}}
	w := f.do(t, http.MethodPost, "/reports", "u1", report)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[reports.Report](t, w); got.Reporter != "u1" || got.ID == "" {
		t.Errorf("report = %+v", got)
	}
	if w := f.do(t, http.MethodPost, "/reports", "u1", report); w.Code != http.StatusTooManyRequests {
		t.Errorf("over quota: expected 429, got %d", w.Code)
	}

	bad := map[string]any{"kind": "aliens", "position": map[string]float64{"lat": 1, "lng": 1}}
	if w := f.do(t, http.MethodPost, "/reports", "u2", bad); w.Code != http.StatusBadRequest {
		t.Errorf("bad kind: expected 400, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/reports", "u2", map[string]any{"kind": "crime"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing position: expected 400, got %d", w.Code)
	}

	if w := f.do(t, http.MethodGet, "/reports?limit=5", "", nil); w.Code != http.StatusOK {
		t.Errorf("recent: expected 200, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/reports?limit=five", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestReportsDisabled(t *testing.T) {
	f := newFixture(t, stubProvider{}, nil)
	if w := f.do(t, http.MethodPost, "/reports", "u1", map[string]any{}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
