package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"googlemaps.github.io/maps"

	"saferoute/internal/modules/routes"
	"saferoute/internal/types"
)

const directionsOK = `{
  "status": "OK",
  "geocoded_waypoints": [],
  "routes": [
    {
      "summary": "Guadalupe St",
      "legs": [
        {
          "distance": {"text": "0.3 mi", "value": 510},
          "duration": {"text": "7 mins", "value": 410},
          "start_location": {"lat": 30.2864, "lng": -97.7370},
          "end_location": {"lat": 30.29099, "lng": -97.7370},
          "steps": [
            {
              "html_instructions": "Head <b>north</b> on <b>Guadalupe St</b>",
              "distance": {"text": "0.1 mi", "value": 170},
              "duration": {"text": "2 mins", "value": 130},
              "start_location": {"lat": 30.2864, "lng": -97.7370},
              "end_location": {"lat": 30.28793, "lng": -97.7370},
              "travel_mode": "WALKING"
            },
            {
              "html_instructions": "Turn <b>right</b>",
              "distance": {"text": "0.2 mi", "value": 340},
              "duration": {"text": "5 mins", "value": 280},
              "start_location": {"lat": 30.28793, "lng": -97.7370},
              "end_location": {"lat": 30.29099, "lng": -97.7370},
              "travel_mode": "WALKING"
            }
          ]
        }
      ]
    },
    {
      "summary": "Speedway",
      "legs": [
        {
          "distance": {"text": "0.4 mi", "value": 640},
          "duration": {"text": "1 hour 2 mins", "value": 3720},
          "steps": [
            {
              "html_instructions": "Head <b>east</b>",
              "distance": {"text": "0.4 mi", "value": 640},
              "duration": {"text": "9 mins", "value": 540},
              "travel_mode": "WALKING"
            }
          ]
        }
      ]
    }
  ]
}`

func newTestMapsClient(t *testing.T, handler http.HandlerFunc) *maps.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient("AIza-test-key", maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

var (
	testOrigin      = types.Point{Lat: 30.2864, Lng: -97.7370}
	testDestination = types.Point{Lat: 30.29099, Lng: -97.7370}
)

func TestWalkingRoutes_MapsResponse(t *testing.T) {
	var query map[string]string
	client := newTestMapsClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/directions/json") {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		query = map[string]string{
			"mode":         q.Get("mode"),
			"alternatives": q.Get("alternatives"),
			"origin":       q.Get("origin"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(directionsOK))
	})
	svc := NewRouteService(client, time.Second)

	got, err := svc.WalkingRoutes(context.Background(), testOrigin, testDestination)
	if err != nil {
		t.Fatalf("walking routes: %v", err)
	}
	if query["mode"] != "walking" || query["alternatives"] != "true" || query["origin"] != "30.286400,-97.737000" {
		t.Errorf("request query = %v", query)
	}
	if len(got) != 2 {
		t.Fatalf("routes = %d, want 2", len(got))
	}

	leg := got[0].Legs[0]
	if leg.DistanceText != "0.3 mi" || leg.DistanceMeters != 510 || leg.Duration != 410*time.Second || leg.DurationText != "7 mins" {
		t.Errorf("leg = %+v", leg)
	}
	if len(leg.Steps) != 2 || leg.Steps[1].End == nil || *leg.Steps[1].End != testDestination {
		t.Errorf("steps = %+v", leg.Steps)
	}
	if leg.Steps[0].HTMLInstructions != "Head <b>north</b> on <b>Guadalupe St</b>" {
		t.Errorf("instruction = %q", leg.Steps[0].HTMLInstructions)
	}

	// Second route's step has no end location.
	if end := got[1].Legs[0].Steps[0].End; end != nil {
		t.Errorf("missing end location mapped to %+v, want nil", end)
	}
	if got[1].Legs[0].DurationText != "1 hour 2 mins" {
		t.Errorf("duration text = %q", got[1].Legs[0].DurationText)
	}
}

func TestWalkingRoutes_FeedsRouteService(t *testing.T) {
	client := newTestMapsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(directionsOK))
	})
	svc := routes.NewService(NewRouteService(client, time.Second), routes.NewMemoryStore(time.Minute), nil, nil)

	sel, err := svc.Search(context.Background(), testOrigin, testDestination)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// The Speedway candidate lacks step end locations and is dropped.
	if len(sel.Candidates) != 1 || sel.Candidates[0].Summary != "Guadalupe St" {
		t.Errorf("candidates = %+v", sel.Candidates)
	}
}

func TestWalkingRoutes_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "zero results",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status": "ZERO_RESULTS", "routes": []}`))
			},
			want: routes.ErrEmptyRouteSet,
		},
		{
			name: "denied",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "bad key", "routes": []}`))
			},
			want: routes.ErrProvider,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: routes.ErrProvider,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRouteService(newTestMapsClient(t, tt.handler), time.Second)
			_, err := svc.WalkingRoutes(context.Background(), testOrigin, testDestination)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWalkingRoutes_Timeout(t *testing.T) {
	client := newTestMapsClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	svc := NewRouteService(client, 50*time.Millisecond)

	start := time.Now()
	_, err := svc.WalkingRoutes(context.Background(), testOrigin, testDestination)
	if !errors.Is(err, routes.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not applied, took %v", elapsed)
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{20 * time.Second, "1 min"},
		{90 * time.Second, "2 mins"},
		{7 * time.Minute, "7 mins"},
		{time.Hour, "1 hour"},
		{time.Hour + 5*time.Minute, "1 hour 5 mins"},
		{2*time.Hour + time.Minute, "2 hours 1 min"},
		{0, "0 mins"},
	}
	for _, tt := range tests {
		if got := humanDuration(tt.in); got != tt.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
